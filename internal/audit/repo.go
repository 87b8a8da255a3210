// Package audit 维修单流转的审计落库。
// 写失败只记日志，不反向影响业务流转。
package audit

import (
	"context"
	"fmt"

	"github.com/AutoFixLink/AutoFixLink/internal/repair"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// RecordStart 记录开工流转。
func (r *Repo) RecordStart(ctx context.Context, rec *repair.Record) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	return r.create(ctx, &TransitionEvent{
		ID:         uuid.NewString(),
		ReceiptID:  rec.ID,
		FromStatus: string(repair.StatusCheckedIn),
		ToStatus:   string(repair.StatusInProgress),
		Manager:    rec.Manager,
	})
}

// RecordComplete 记录完工流转及其汇总信息。
func (r *Repo) RecordComplete(ctx context.Context, rec *repair.Record) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	ev := &TransitionEvent{
		ID:           uuid.NewString(),
		ReceiptID:    rec.ID,
		FromStatus:   string(repair.StatusInProgress),
		ToStatus:     string(repair.StatusCompleted),
		Manager:      rec.Manager,
		LeadTimeDays: rec.LeadTimeDays,
	}
	if rec.Completion != nil {
		ev.GrandTotal = rec.Completion.GrandTotal()
	}
	return r.create(ctx, ev)
}

func (r *Repo) create(ctx context.Context, ev *TransitionEvent) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(ev).Error
}

// ListByReceipt 按接车单号查询流转历史（新到旧）+ 分页。
func (r *Repo) ListByReceipt(ctx context.Context, receiptID string, offset, limit int) ([]TransitionEvent, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&TransitionEvent{}).Where("receipt_id = ?", receiptID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []TransitionEvent
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
