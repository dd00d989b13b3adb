package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LJTian/AINewsHub/internal/news"
)

// Fetcher 抽象每一个数据源。Fetch 不返回错误：网络、状态码、解析问题都在内部记录日志并返回空列表，
// 单个数据源失败不会中断整条管线。
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) []news.Story
}

const defaultMaxResponseBytes = 2 << 20 // 2MB

// NewHTTPClient 进程内共享的 HTTP 客户端；单次请求的超时由调用方的 context 控制
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

type httpResult struct {
	Status int
	Body   []byte
}

// doRequest 发起一次带超时的请求并读取（限长的）响应体；非 2xx 不视为错误，由调用方判断
func doRequest(ctx context.Context, client *http.Client, req *http.Request, timeout time.Duration) (httpResult, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return httpResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, defaultMaxResponseBytes))
	if err != nil {
		return httpResult{Status: resp.StatusCode}, fmt.Errorf("read body: %w", err)
	}
	return httpResult{Status: resp.StatusCode, Body: body}, nil
}

func getWithParams(ctx context.Context, client *http.Client, base string, params url.Values, headers map[string]string, timeout time.Duration) (httpResult, error) {
	u, err := url.Parse(base)
	if err != nil {
		return httpResult{}, fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return httpResult{}, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doRequest(ctx, client, req, timeout)
}

func snippet(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
