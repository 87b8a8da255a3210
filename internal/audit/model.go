package audit

import "time"

// TransitionEvent 状态流转审计记录（transition_events 表的 GORM 模型）。
// 只记录网关侧完成的流转，不承担接车单本身的持久化。
type TransitionEvent struct {
	ID         string `gorm:"primaryKey;size:36"`
	ReceiptID  string `gorm:"index;size:64;not null"` // 接车单号
	FromStatus string `gorm:"type:varchar(16);not null"`
	ToStatus   string `gorm:"type:varchar(16);not null"`
	Manager    string `gorm:"size:64"` // 执行流转的工程师

	// 完工流转附带的汇总信息（开工流转为零值）
	GrandTotal   int64 `gorm:"not null;default:0"` // 最小货币单位
	LeadTimeDays *int  // 日期不可解析时为 NULL

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
