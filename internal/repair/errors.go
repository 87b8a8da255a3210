package repair

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidTransitionError 非法状态流转。
// 属于调用方 bug 或并发下的过期状态，不重试，界面侧表现为“当前不可操作”。
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid repair status transition: %s -> %s", e.From, e.To)
}

// IsInvalidTransition 判断 err 是否为非法流转错误。
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// ValidationError 完工数据校验失败。
// Reasons 收集所有违反的规则（而不是只报第一条），便于界面一次性展示。
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// AsValidation 提取校验错误；非校验错误返回 nil, false。
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// FetchKind 后端访问失败的分类。
type FetchKind string

const (
	FetchUnavailable  FetchKind = "unavailable"  // 网络/5xx，可由用户重试
	FetchUnauthorized FetchKind = "unauthorized" // 凭证缺失或过期，需要触发外部登出
	FetchNotFound     FetchKind = "not_found"    // 目标资源不存在
	FetchBadPayload   FetchKind = "bad_payload"  // 响应报文结构不符合约定
)

// FetchError 后端访问失败。
// 永远不会被吞成“空结果的成功”：查不到配件 与 查询失败 必须可区分。
type FetchError struct {
	Kind FetchKind
	Op   string // 例如 "reconcile.FetchOrderedParts"
	Err  error  // 底层原因，可为 nil
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable 仅 unavailable 类失败可自动重试；
// 未授权/坏报文重试没有意义，直接上抛。
func (e *FetchError) Retryable() bool { return e.Kind == FetchUnavailable }

// AsFetch 提取后端访问错误。
func AsFetch(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsUnauthorized 判断 err 是否为凭证失效类失败。
func IsUnauthorized(err error) bool {
	fe, ok := AsFetch(err)
	return ok && fe.Kind == FetchUnauthorized
}
