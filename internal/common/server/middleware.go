package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/AutoFixLink/AutoFixLink/internal/common/auth"
	"github.com/AutoFixLink/AutoFixLink/internal/common/config"
	"github.com/AutoFixLink/AutoFixLink/internal/common/logger"
	"github.com/AutoFixLink/AutoFixLink/internal/common/middleware"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// Middleware HTTP 中间件。
type Middleware func(http.Handler) http.Handler

// Chain 将多个中间件按传入顺序串起来（第一个在最外层）。
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		h = mws[i](h)
	}
	return h
}

// RecoveryMiddleware 防止 handler panic 把进程打崩，并记录栈信息。
func RecoveryMiddleware(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if log != nil {
						log.Errorf("panic in http path=%s err=%v stack=%s", r.URL.Path, rec, string(debug.Stack()))
					}
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder 捕获响应码，供访问日志使用。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// AccessLogMiddleware 记录每个 HTTP 请求的耗时/状态码。
func AccessLogMiddleware(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			cost := time.Since(start)

			if log != nil {
				fields := map[string]interface{}{
					"method": r.Method,
					"path":   r.URL.Path,
					"status": rec.status,
					"cost":   cost.String(),
				}
				if rec.status >= http.StatusInternalServerError {
					log.WithFields(fields).Warn("http request failed")
				} else {
					log.WithFields(fields).Info("http request ok")
				}
			}
		})
	}
}

// TracingMiddleware 基于 OpenTracing 的最小 server 中间件：
// - 从请求头提取上游 span context（uber-trace-id 等，取决于上游注入格式）
// - 创建 server span 并注入到 ctx，业务侧可用 opentracing.StartSpanFromContext 续接
func TracingMiddleware(serviceName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tracer := opentracing.GlobalTracer()

			var parent opentracing.SpanContext
			if sc, err := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(r.Header)); err == nil {
				parent = sc
			}

			operation := r.Method + " " + r.URL.Path
			var span opentracing.Span
			if parent != nil {
				span = tracer.StartSpan(operation, ext.RPCServerOption(parent))
			} else {
				span = tracer.StartSpan(operation)
			}
			defer span.Finish()

			ext.SpanKindRPCServer.Set(span)
			ext.Component.Set(span, "http")
			ext.HTTPMethod.Set(span, r.Method)
			ext.HTTPUrl.Set(span, r.URL.Path)
			if serviceName != "" {
				span.SetTag("service", serviceName)
			}

			next.ServeHTTP(w, r.WithContext(opentracing.ContextWithSpan(r.Context(), span)))
		})
	}
}

// RateLimitMiddleware 全局限流，超限返回 429。
func RateLimitMiddleware(limiter middleware.RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow(r.Context()) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type authContextKey struct{}

// AuthInfo 从 JWT 中解析出的最小会话信息（放入 ctx，供业务侧使用）。
type AuthInfo struct {
	Subject string   // 工程师 ID
	Name    string   // 展示名
	Roles   []string // 角色列表
}

// AuthFromContext 从 ctx 中取出鉴权信息。
func AuthFromContext(ctx context.Context) (AuthInfo, bool) {
	v := ctx.Value(authContextKey{})
	if v == nil {
		return AuthInfo{}, false
	}
	ai, ok := v.(AuthInfo)
	return ai, ok
}

// ContextWithAuth 注入鉴权信息（handler 测试用）。
func ContextWithAuth(ctx context.Context, ai AuthInfo) context.Context {
	return context.WithValue(ctx, authContextKey{}, ai)
}

// JWTAuthMiddleware 入站 JWT 鉴权：
// - 读取 `Authorization: Bearer <token>`
// - 校验 HS256 签名与 exp/nbf/iss/aud
// - 将解析结果写入 ctx；免鉴权路径直接放行
func JWTAuthMiddleware(cfg config.AuthConfig, log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isPublicPath(cfg.PublicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				if log != nil {
					log.Warn("auth enabled but jwt_secret is empty")
				}
				http.Error(w, "auth not configured", http.StatusUnauthorized)
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}
			tokenStr := raw
			if strings.HasPrefix(strings.ToLower(tokenStr), "bearer ") {
				tokenStr = strings.TrimSpace(tokenStr[len("bearer "):])
			}
			if tokenStr == "" {
				http.Error(w, "invalid authorization", http.StatusUnauthorized)
				return
			}

			claims, err := auth.VerifyAccessToken(cfg, tokenStr)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := ContextWithAuth(r.Context(), AuthInfo{
				Subject: claims.Subject,
				Name:    claims.Name,
				Roles:   claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isPublicPath(public []string, path string) bool {
	if path == "" || len(public) == 0 {
		return false
	}
	for _, p := range public {
		if strings.TrimSpace(p) == path {
			return true
		}
	}
	return false
}
