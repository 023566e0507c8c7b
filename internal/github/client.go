package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/gh_release_notes/internal/config"
	"github.com/iWorld-y/gh_release_notes/internal/logger"
)

// Prober 检查 GitHub 上是否存在某个版本的发布页
type Prober interface {
	Resolve(ctx context.Context, org, repo, version string) (Release, bool, error)
}

// Release 找到的发布页
type Release struct {
	URL     string
	Tag     string
	VPrefix bool
}

// Client GitHub 发布页探测客户端
type Client struct {
	baseURL   string
	token     string
	userAgent string
	retries   int
	backoff   time.Duration
	limiter   *rate.Limiter
	client    *http.Client
}

var _ Prober = (*Client)(nil)

// NewClient 创建一个新的 GitHub 客户端，limiter 为 nil 时不限流
func NewClient(cfg config.GitHubConfig, limiter *rate.Limiter) *Client {
	t := time.Duration(cfg.Timeout) * time.Second
	if t == 0 {
		t = 30 * time.Second
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		retries:   cfg.Retries,
		backoff:   cfg.BackoffDuration(),
		limiter:   limiter,
		client: &http.Client{
			Timeout: t,
		},
	}
}

// ReleaseURL 发布页地址
func (c *Client) ReleaseURL(org, repo, tag string) string {
	return fmt.Sprintf("%s/%s/%s/releases/tag/%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(repo), url.PathEscape(tag))
}

// Resolve 先尝试不带前缀的 tag，再尝试 v 前缀，两者都没有命中时才返回请求错误
func (c *Client) Resolve(ctx context.Context, org, repo, version string) (Release, bool, error) {
	var firstErr error
	for _, prefix := range []string{"", "v"} {
		tag := prefix + version
		ok, err := c.ReleaseExists(ctx, org, repo, tag)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Release{}, false, ctxErr
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return Release{
				URL:     c.ReleaseURL(org, repo, tag),
				Tag:     tag,
				VPrefix: prefix != "",
			}, true, nil
		}
	}
	return Release{}, false, firstErr
}

// ReleaseExists 对发布页发送 HEAD 请求，跟随重定向
func (c *Client) ReleaseExists(ctx context.Context, org, repo, tag string) (bool, error) {
	target := c.ReleaseURL(org, repo, tag)

	var lastErr error
	for i := 0; i <= c.retries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return false, fmt.Errorf("limiter wait error: %w", err)
		}

		status, err := c.head(ctx, target)
		switch {
		case err != nil:
			lastErr = err
		case status == http.StatusOK:
			return true, nil
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("github error (status %d): %s", status, target)
		default:
			logger.Log.Debugf("发布页不存在 [%s]: status %d", target, status)
			return false, nil
		}

		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if i < c.retries {
			delay := c.backoff * time.Duration(1<<i) // 指数退避
			logger.Log.Warnf("请求 %s 失败，等待 %v 后重试 (%d/%d): %v", target, delay, i+1, c.retries, lastErr)
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return false, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) head(ctx context.Context, target string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return 0, fmt.Errorf("create request failed: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode, nil
}
