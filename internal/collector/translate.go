package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/LJTian/AINewsHub/internal/logger"
)

const (
	googleTranslateV2URL   = "https://translation.googleapis.com/language/translate/v2"
	googleTranslateGTXURL  = "https://translate.googleapis.com/translate_a/single"
	translateClientTimeout = 8 * time.Second
	translateMaxLen        = 5000
	translateRPS           = 5
)

// GoogleTranslator 调用 Google Translate v2，v2 失败时再试一次公开 gtx 接口。
// 未启用或没有 API Key 时不发任何请求，原样返回输入。Translate 永远不会返回错误。
type GoogleTranslator struct {
	Enabled bool
	APIKey  string
	V2URL   string
	GTXURL  string

	client  *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

func NewGoogleTranslator(enabled bool, apiKey string, client *http.Client, log logger.Logger) *GoogleTranslator {
	if log == nil {
		log = logger.NewNop()
	}
	return &GoogleTranslator{
		Enabled: enabled,
		APIKey:  apiKey,
		V2URL:   googleTranslateV2URL,
		GTXURL:  googleTranslateGTXURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(translateRPS), translateRPS),
		log:     log.With(logger.String("source", "translate")),
	}
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, target string) string {
	text = strings.TrimSpace(text)
	if text == "" || !g.Active() {
		return text
	}
	if rs := []rune(text); len(rs) > translateMaxLen {
		return text
	}
	if err := g.limiter.Wait(ctx); err != nil {
		g.log.Warn("translate: rate limiter wait failed", logger.Error(err))
		return text
	}

	out, err := g.viaV2(ctx, text, target)
	if err == nil && out != "" {
		return out
	}
	g.log.Warn("translate (v2) failed", logger.Error(err))

	out, err = g.viaGTX(ctx, text, target)
	if err == nil && out != "" {
		return out
	}
	g.log.Warn("translate (gtx) failed", logger.Error(err))
	return text
}

// Active 启用且配置了 API Key
func (g *GoogleTranslator) Active() bool {
	return g.Enabled && g.APIKey != ""
}

func (g *GoogleTranslator) viaV2(ctx context.Context, text, target string) (string, error) {
	form := url.Values{}
	form.Set("q", text)
	form.Set("target", target)
	form.Set("format", "text")
	form.Set("key", g.APIKey)

	req, err := http.NewRequest(http.MethodPost, g.V2URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := doRequest(ctx, g.client, req, translateClientTimeout)
	if err != nil {
		return "", err
	}
	if res.Status != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", res.Status, snippet(res.Body, 140))
	}

	var out struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(out.Data.Translations) == 0 {
		return "", fmt.Errorf("empty translations")
	}
	return strings.TrimSpace(out.Data.Translations[0].TranslatedText), nil
}

// viaGTX 使用 Google Translate 公开接口（client=gtx，无需密钥）
func (g *GoogleTranslator) viaGTX(ctx context.Context, text, target string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", target)
	params.Set("dt", "t")
	params.Set("q", text)

	res, err := getWithParams(ctx, g.client, g.GTXURL, params, map[string]string{"User-Agent": "Mozilla/5.0"}, translateClientTimeout)
	if err != nil {
		return "", err
	}
	if res.Status != http.StatusOK {
		return "", fmt.Errorf("status %d", res.Status)
	}

	// 响应格式: [[["译文","原文",...],...],...]
	var raw []any
	if err := json.Unmarshal(res.Body, &raw); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty response")
	}
	outer, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("unexpected response shape")
	}
	var result strings.Builder
	for _, seg := range outer {
		pair, ok := seg.([]any)
		if !ok || len(pair) < 1 {
			continue
		}
		if s, ok := pair[0].(string); ok {
			result.WriteString(s)
		}
	}
	return strings.TrimSpace(result.String()), nil
}
