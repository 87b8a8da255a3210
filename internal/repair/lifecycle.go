package repair

import (
	"fmt"
	"strings"
	"sync"
)

// SessionContext 当前登录工程师的最小会话信息。
// 显式作为参数传入，而不是从全局会话读取，避免隐藏耦合、方便测试。
type SessionContext struct {
	EngineerID string
	Name       string
}

// managerName 取负责工程师的展示名，姓名为空时退回工号。
func (s SessionContext) managerName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return strings.TrimSpace(s.EngineerID)
}

// KeyedMutex 按 key 独立互斥：同一 key 串行，不同 key 互不阻塞。
// 零值可用。
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock 锁住指定 key，返回对应的解锁函数。
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Controller 维修单状态流转的唯一入口。
// 同一个 Record 实例上的流转按单号串行执行，并发的两次流转只会有一次成功，
// 另一次以 InvalidTransitionError 失败，不会出现丢更新。
// 注意：这里的锁只覆盖传入的实例；持有各自副本的调用方（比如每个请求
// 都从后端重新取单的网关）必须自己用 KeyedMutex 把 取单-流转-上报
// 的整个序列锁住，否则两个副本都能通过前置状态检查。
type Controller struct {
	locks KeyedMutex
}

func NewController() *Controller {
	return &Controller{}
}

// StartRepair 开工：checked_in -> in_progress，并登记负责工程师。
// 前置状态不满足时返回 InvalidTransitionError。
func (c *Controller) StartRepair(rec *Record, sess SessionContext) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	manager := sess.managerName()
	if manager == "" {
		return &ValidationError{Reasons: []string{"manager is required"}}
	}

	unlock := c.locks.Lock(rec.ID)
	defer unlock()

	if err := checkTransition(rec.Status, StatusInProgress); err != nil {
		return err
	}
	rec.Status = StatusInProgress
	rec.Manager = manager
	return nil
}

// Complete 完工：in_progress -> completed。
// 校验完工汇总（收集全部违规项），通过后写入完工数据并派生维修周期天数。
// 对已完工单重复调用返回 InvalidTransitionError，不做静默幂等。
func (c *Controller) Complete(rec *Record, summary CompletionSummary) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}

	unlock := c.locks.Lock(rec.ID)
	defer unlock()

	if err := checkTransition(rec.Status, StatusCompleted); err != nil {
		return err
	}
	if reasons := validateSummary(summary); len(reasons) > 0 {
		return &ValidationError{Reasons: reasons}
	}

	rec.Status = StatusCompleted
	rec.Completion = &summary
	// 维修周期为派生信息：接车日期来自后端，可能不可解析，
	// 此时保持 nil（未知），不影响完工本身。
	if days, ok := DaysBetween(rec.IntakeDate, summary.CompletionDate); ok {
		rec.LeadTimeDays = &days
	} else {
		rec.LeadTimeDays = nil
	}
	return nil
}

// validateSummary 校验完工汇总，返回全部违规项（空切片表示通过）。
func validateSummary(s CompletionSummary) []string {
	var reasons []string

	if strings.TrimSpace(s.RepairDescription) == "" {
		reasons = append(reasons, "repair description is required")
	}
	if strings.TrimSpace(s.Cause) == "" {
		reasons = append(reasons, "cause is required")
	}
	if _, ok := ParseCivilDate(s.CompletionDate); !ok {
		reasons = append(reasons, fmt.Sprintf("completion date %q is not a valid yyyy-MM-dd date", s.CompletionDate))
	}

	reasons = append(reasons, validateLines("ordered", s.OrderedLines)...)
	reasons = append(reasons, validateLines("extra", s.ExtraLines)...)

	// 至少要有一条数量大于 0 的配件行：零配件零费用的完工不被接受
	hasUsableLine := false
	for _, l := range s.OrderedLines {
		if l.Quantity > 0 {
			hasUsableLine = true
			break
		}
	}
	if !hasUsableLine {
		for _, l := range s.ExtraLines {
			if l.Quantity > 0 {
				hasUsableLine = true
				break
			}
		}
	}
	if !hasUsableLine {
		reasons = append(reasons, "at least one part line with quantity > 0 is required")
	}

	return reasons
}

// validateLines 逐行校验配件清单，bucket 用于在提示里区分来源。
func validateLines(bucket string, lines []PartLine) []string {
	var reasons []string
	seen := make(map[string]struct{}, len(lines))
	for i, l := range lines {
		at := fmt.Sprintf("%s line %d", bucket, i+1)
		code := strings.TrimSpace(l.PartCode)
		if code == "" {
			reasons = append(reasons, at+": part code is required")
		} else if _, dup := seen[code]; dup {
			// 编码仅要求在各自清单内唯一；跨清单重复是合法的（来源不同）
			reasons = append(reasons, fmt.Sprintf("%s: duplicate part code %q", at, code))
		} else {
			seen[code] = struct{}{}
		}
		if strings.TrimSpace(l.PartName) == "" {
			reasons = append(reasons, at+": part name is required")
		}
		if l.Quantity <= 0 {
			reasons = append(reasons, at+": quantity must be greater than 0")
		}
		if l.UnitPrice < 0 {
			reasons = append(reasons, at+": unit price must not be negative")
		}
	}
	return reasons
}
