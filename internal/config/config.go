package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort  string
	LogLevel string

	GNewsAPIKey      string
	NewsDataAPIKey   string
	GoogleAPIKey     string
	TranslateEnabled bool
	RapidAPIKey      string

	// CacheVersion 参与快照文件名，升级格式时换一个版本号即可让旧文件失效
	CacheVersion   int
	DataDir        string
	CacheTTL       time.Duration
	MaxStories     int
	MaxPerTopic    int
	DedupThreshold int

	CronSpec  string
	RedisAddr string

	AdminToken    string
	BasicAuthUser string
	BasicAuthPass string
}

// Load 读取 .env（可选）与环境变量
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		GNewsAPIKey:      strings.TrimSpace(os.Getenv("GNEWS_API_KEY")),
		NewsDataAPIKey:   strings.TrimSpace(os.Getenv("NEWSDATA_API_KEY")),
		GoogleAPIKey:     strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		TranslateEnabled: getBool("TRANSLATE_ENABLED", false),
		RapidAPIKey:      strings.TrimSpace(os.Getenv("YF_RAPIDAPI_KEY")),
		CacheVersion:     getInt("CACHE_VERSION", 5),
		DataDir:          getEnv("DATA_DIR", "data"),
		CacheTTL:         time.Duration(getInt("CACHE_TTL_MINUTES", 45)) * time.Minute,
		MaxStories:       getInt("MAX_TOTAL_STORIES", 12),
		MaxPerTopic:      getInt("MAX_PER_TOPIC", 2),
		DedupThreshold:   getInt("DEDUP_THRESHOLD", 92),
		CronSpec:         getEnv("CRON_SPEC", "*/30 * * * *"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		BasicAuthUser:    os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:    os.Getenv("APP_BASIC_PASS"),
	}
	return cfg
}

// CachePath 返回带版本号的快照文件路径
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "news_cache_"+strconv.Itoa(c.CacheVersion)+".json")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Mask 用于日志中展示密钥：只保留首尾各 3 个字符
func Mask(s string) string {
	if s == "" {
		return "(missing)"
	}
	if len(s) > 6 {
		return s[:3] + "…" + s[len(s)-3:]
	}
	return "***"
}
