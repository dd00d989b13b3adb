package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/LJTian/AINewsHub/internal/logger"
	"github.com/LJTian/AINewsHub/internal/news"
)

// Snapshot 最近一次成功刷新的结果，每次刷新整体替换
type Snapshot struct {
	CreatedAt time.Time    `json:"created_at"`
	Stories   []news.Story `json:"stories"`
}

// snapshotFile 兼容旧格式：{cached_at, news} 或直接是数组
type snapshotFile struct {
	CreatedAt string          `json:"created_at"`
	CachedAt  string          `json:"cached_at"`
	Stories   json.RawMessage `json:"stories"`
	News      json.RawMessage `json:"news"`
}

// SnapshotStore 把新闻列表保存为单个 JSON 文件。文件名带版本号，格式变化时换版本即可。
type SnapshotStore struct {
	path string
	log  logger.Logger
	now  func() time.Time
}

func NewSnapshotStore(path string, log logger.Logger) *SnapshotStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &SnapshotStore{path: path, log: log, now: time.Now}
}

func (s *SnapshotStore) Path() string {
	return s.path
}

// Load 读取快照中的新闻；文件不存在或解析失败都返回空列表
func (s *SnapshotStore) Load() []news.Story {
	return s.LoadSnapshot().Stories
}

// LoadSnapshot 同 Load，额外返回写入时间（未知时为零值）
func (s *SnapshotStore) LoadSnapshot() Snapshot {
	empty := Snapshot{Stories: []news.Story{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("cache: read snapshot failed", logger.String("path", s.path), logger.Error(err))
		}
		return empty
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		s.log.Warn("cache: decode snapshot failed", logger.String("path", s.path), logger.Error(err))
		return empty
	}
	s.log.Info("cache: snapshot loaded", logger.Int("items", len(snap.Stories)))
	return snap
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Snapshot{}, errors.New("empty file")
	}

	if data[0] == '[' {
		var list []news.Story
		if err := json.Unmarshal(data, &list); err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Stories: nonNil(list)}, nil
	}

	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Snapshot{}, err
	}

	raw := f.Stories
	if len(raw) == 0 {
		raw = f.News
	}
	if len(raw) == 0 || raw[0] != '[' {
		return Snapshot{}, errors.New("unexpected snapshot structure")
	}
	var list []news.Story
	if err := json.Unmarshal(raw, &list); err != nil {
		return Snapshot{}, err
	}

	created := f.CreatedAt
	if created == "" {
		created = f.CachedAt
	}
	ts, _ := news.ParseTimestamp(created)
	return Snapshot{CreatedAt: ts, Stories: nonNil(list)}, nil
}

func nonNil(list []news.Story) []news.Story {
	if list == nil {
		return []news.Story{}
	}
	return list
}

// Save 先写同目录临时文件再 rename，读方不会看到写了一半的文件
func (s *SnapshotStore) Save(stories []news.Story) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: create dir: %w", err)
	}

	payload := Snapshot{CreatedAt: s.now().UTC(), Stories: nonNil(stories)}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("cache: rename snapshot: %w", err)
	}

	s.log.Info("cache: snapshot saved", logger.Int("items", len(payload.Stories)))
	return nil
}

// Clear 删除快照文件，文件不存在不算错误
func (s *SnapshotStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: remove snapshot: %w", err)
	}
	return nil
}
