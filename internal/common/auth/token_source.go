package auth

import "sync"

// TokenSource 提供访问后端用的 bearer 凭证。
// OAuth2/PKCE 换取流程由外部会话模块负责，这里只暴露取 token 的边界；
// 返回空串表示当前没有可用凭证（未登录或已过期）。
type TokenSource interface {
	AccessToken() string
}

// TokenSourceFunc 函数适配器。
type TokenSourceFunc func() string

func (f TokenSourceFunc) AccessToken() string { return f() }

// StaticTokenSource 固定 token（测试/脚本用）。
func StaticTokenSource(token string) TokenSource {
	return TokenSourceFunc(func() string { return token })
}

// SessionTokenSource 可更新的 token 持有者，由会话模块在登录/续期时写入。
type SessionTokenSource struct {
	mu    sync.RWMutex
	token string
}

func (s *SessionTokenSource) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Update 覆盖当前凭证；传空串等价于清除（登出）。
func (s *SessionTokenSource) Update(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}
