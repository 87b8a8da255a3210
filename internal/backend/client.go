// Package backend 封装访问接车单/采购单后端的 HTTP 通道：
// bearer 凭证、单次超时、瞬时失败的有限重试、熔断与链路注入。
// 后端返回的任何失败都会被归类为 repair.FetchError，不会被吞成空结果。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AutoFixLink/AutoFixLink/internal/common/auth"
	"github.com/AutoFixLink/AutoFixLink/internal/common/config"
	"github.com/AutoFixLink/AutoFixLink/internal/common/discovery"
	"github.com/AutoFixLink/AutoFixLink/internal/common/logger"
	"github.com/AutoFixLink/AutoFixLink/internal/common/middleware"
	"github.com/AutoFixLink/AutoFixLink/internal/repair"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// Client 单个后端的 HTTP 客户端。
type Client struct {
	name     string // 后端名，用于错误 Op 与日志
	cfg      config.BackendConfig
	timeout  time.Duration
	retryMax int

	httpClient *http.Client
	tokens     auth.TokenSource
	breaker    *middleware.CircuitBreaker
	resolver   *discovery.Resolver // BaseURL 为空时用 Consul 解析
	log        logger.Logger
}

// New 创建后端客户端。resolver 可为 nil（此时要求配置了 BaseURL）。
func New(name string, bcfg config.BackendConfig, opts config.BackendsConfig, tokens auth.TokenSource, resolver *discovery.Resolver, log logger.Logger) *Client {
	return &Client{
		name:     name,
		cfg:      bcfg,
		timeout:  opts.Timeout(),
		retryMax: opts.RetryMax,
		httpClient: &http.Client{
			// 单次请求的截止时间由每次 attempt 的 ctx 控制
			Timeout: 0,
		},
		tokens:   tokens,
		breaker:  middleware.NewCircuitBreaker(name, opts.BreakerMaxFailures, opts.BreakerReset()),
		resolver: resolver,
		log:      log,
	}
}

// GetJSON 发起 GET 并把 2xx 响应解码到 out。
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON 发起 POST（JSON body），out 可为 nil。
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := fmt.Sprintf("%s %s %s", c.name, method, path)

	// 凭证缺失直接判未授权，不发请求
	token := ""
	if c.tokens != nil {
		token = strings.TrimSpace(c.tokens.AccessToken())
	}
	if token == "" {
		return &repair.FetchError{Kind: repair.FetchUnauthorized, Op: op}
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &repair.FetchError{Kind: repair.FetchBadPayload, Op: op, Err: err}
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			// 简单线性退避；ctx 取消时立即放弃
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
			if c.log != nil {
				c.log.WithFields(map[string]interface{}{"op": op, "attempt": attempt}).Warn("retrying backend request")
			}
		}

		data, err := c.attempt(ctx, op, method, path, query, payload, token)
		if err == nil {
			if out == nil {
				return nil
			}
			if len(data) == 0 {
				return &repair.FetchError{Kind: repair.FetchBadPayload, Op: op, Err: errors.New("empty response body")}
			}
			if err := json.Unmarshal(data, out); err != nil {
				return &repair.FetchError{Kind: repair.FetchBadPayload, Op: op, Err: err}
			}
			return nil
		}
		if ctx.Err() != nil {
			// 界面已离开：丢弃结果，按取消上抛
			return ctx.Err()
		}

		lastErr = err
		fe, ok := repair.AsFetch(err)
		if !ok || !fe.Retryable() {
			return err
		}
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, op, method, path string, query url.Values, payload []byte, token string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	base, err := c.baseURL()
	if err != nil {
		return nil, &repair.FetchError{Kind: repair.FetchUnavailable, Op: op, Err: err}
	}
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, u, reqBody)
	if err != nil {
		return nil, &repair.FetchError{Kind: repair.FetchBadPayload, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	span := c.startSpan(ctx, op, req)

	// callErr 是调用方侧的失败（401/404 等）：请求确实到达了后端，
	// 不计入熔断的连续失败统计——查错单号不应把整条通道熔断掉。
	var data []byte
	var callErr error
	var status int
	err = c.breaker.Call(attemptCtx, func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &repair.FetchError{Kind: repair.FetchUnavailable, Op: op, Err: err}
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return &repair.FetchError{Kind: repair.FetchUnavailable, Op: op, Err: err}
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			data = body
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			callErr = &repair.FetchError{Kind: repair.FetchUnauthorized, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			callErr = &repair.FetchError{Kind: repair.FetchNotFound, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
			return nil
		case resp.StatusCode >= 500:
			return &repair.FetchError{Kind: repair.FetchUnavailable, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
		default:
			callErr = &repair.FetchError{Kind: repair.FetchBadPayload, Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
			return nil
		}
	})
	c.finishSpan(span, status, err != nil || callErr != nil)
	if err != nil {
		if errors.Is(err, middleware.ErrBreakerOpen) {
			return nil, &repair.FetchError{Kind: repair.FetchUnavailable, Op: op, Err: err}
		}
		return nil, err
	}
	if callErr != nil {
		return nil, callErr
	}
	return data, nil
}

// baseURL 取配置的固定入口，否则走 Consul 按服务名解析。
func (c *Client) baseURL() (string, error) {
	if base := strings.TrimSpace(c.cfg.BaseURL); base != "" {
		return strings.TrimRight(base, "/"), nil
	}
	if c.resolver == nil {
		return "", fmt.Errorf("no base_url configured and no resolver for %s", c.name)
	}
	addr, err := c.resolver.Resolve(c.cfg.ServiceName)
	if err != nil {
		return "", err
	}
	return "http://" + addr, nil
}

// startSpan 创建 client span 并把 trace 上下文注入请求头。
// span 覆盖整个出站调用，由 finishSpan 在拿到响应后收尾。
func (c *Client) startSpan(ctx context.Context, op string, req *http.Request) opentracing.Span {
	tracer := opentracing.GlobalTracer()
	if tracer == nil {
		return nil
	}
	var spanOpts []opentracing.StartSpanOption
	if parent := opentracing.SpanFromContext(ctx); parent != nil {
		spanOpts = append(spanOpts, opentracing.ChildOf(parent.Context()))
	}
	span := tracer.StartSpan(op, spanOpts...)

	ext.SpanKindRPCClient.Set(span)
	ext.Component.Set(span, "http-client")
	ext.HTTPMethod.Set(span, req.Method)
	ext.HTTPUrl.Set(span, req.URL.String())
	_ = tracer.Inject(span.Context(), opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(req.Header))
	return span
}

// finishSpan 打上响应状态并结束 span。status 为 0 表示请求没有发出去。
func (c *Client) finishSpan(span opentracing.Span, status int, failed bool) {
	if span == nil {
		return
	}
	if status > 0 {
		ext.HTTPStatusCode.Set(span, uint16(status))
	}
	if failed {
		ext.Error.Set(span, true)
	}
	span.Finish()
}
