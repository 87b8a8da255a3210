package middleware

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen 熔断器处于打开状态，调用被直接拒绝。
var ErrBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreakerState 熔断器状态
type CircuitBreakerState int

const (
	StateClosed   CircuitBreakerState = iota // 关闭状态（正常）
	StateOpen                                // 开启状态（熔断）
	StateHalfOpen                            // 半开状态（尝试恢复）
)

// CircuitBreaker 熔断器。
// 连续失败达到阈值后打开，经过恢复窗口进入半开试探，
// 试探成功则关闭、失败则重新打开。
type CircuitBreaker struct {
	name         string
	maxFailures  int           // 连续失败阈值
	resetTimeout time.Duration // 恢复窗口
	halfOpenMax  int           // 半开状态允许的试探请求数

	mu            sync.Mutex
	state         CircuitBreakerState
	failures      int
	halfOpenCount int
	lastFailTime  time.Time
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  3,
		state:        StateClosed,
	}
}

// Call 执行一次受保护的调用。
// 熔断打开（且未到恢复窗口）时返回 ErrBreakerOpen，不执行 fn。
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	// 上下文已取消的调用不进入熔断统计
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn()
	cb.afterCall(err)
	return err
}

// beforeCall 入口状态检查，必要时做 open -> half-open 的切换。
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailTime) < cb.resetTimeout {
			return ErrBreakerOpen
		}
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		fallthrough
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.halfOpenMax {
			return ErrBreakerOpen
		}
		cb.halfOpenCount++
	}
	return nil
}

// afterCall 根据调用结果推进状态。
func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == StateHalfOpen {
			cb.state = StateClosed
			cb.halfOpenCount = 0
		}
		cb.failures = 0
		return
	}

	cb.failures++
	cb.lastFailTime = time.Now()
	if cb.state == StateHalfOpen {
		// 半开试探失败，重新熔断
		cb.state = StateOpen
		cb.halfOpenCount = 0
	} else if cb.failures >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// GetState 获取当前状态
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name 熔断器标识（日志用）。
func (cb *CircuitBreaker) Name() string { return cb.name }
