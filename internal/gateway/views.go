package gateway

import (
	"fmt"

	"github.com/AutoFixLink/AutoFixLink/internal/repair"
)

// FormatAmount 把最小货币单位的金额格式化为两位小数的展示串。
// 舍入只发生在这里（展示边界），内部求和始终是整数。
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// recordView 接车单的响应视图：模型字段 + 展示文案与金额汇总。
type recordView struct {
	repair.Record
	StatusText string          `json:"status_text"`
	Completion *completionView `json:"completion,omitempty"`
}

type completionView struct {
	repair.CompletionSummary
	OrderedSubtotal        int64  `json:"ordered_subtotal"`
	ExtraSubtotal          int64  `json:"extra_subtotal"`
	GrandTotal             int64  `json:"grand_total"`
	OrderedSubtotalDisplay string `json:"ordered_subtotal_display"`
	ExtraSubtotalDisplay   string `json:"extra_subtotal_display"`
	GrandTotalDisplay      string `json:"grand_total_display"`
}

func toRecordView(rec *repair.Record) recordView {
	v := recordView{
		Record:     *rec,
		StatusText: rec.Status.DisplayText(),
	}
	// 嵌套结构里的 completion 由视图字段接管，避免重复输出
	v.Record.Completion = nil
	if rec.Completion != nil {
		s := *rec.Completion
		v.Completion = &completionView{
			CompletionSummary:      s,
			OrderedSubtotal:        s.OrderedSubtotal(),
			ExtraSubtotal:          s.ExtraSubtotal(),
			GrandTotal:             s.GrandTotal(),
			OrderedSubtotalDisplay: FormatAmount(s.OrderedSubtotal()),
			ExtraSubtotalDisplay:   FormatAmount(s.ExtraSubtotal()),
			GrandTotalDisplay:      FormatAmount(s.GrandTotal()),
		}
	}
	return v
}

func toRecordViews(recs []repair.Record) []recordView {
	out := make([]recordView, 0, len(recs))
	for i := range recs {
		out = append(out, toRecordView(&recs[i]))
	}
	return out
}

// completeRequest 完工请求体：完工日期/说明/原因 + 手工补录的额外用料。
// ordered 清单不由客户端上送，由网关向采购单后端对账获得。
type completeRequest struct {
	CompletionDate    string            `json:"completion_date"`
	RepairDescription string            `json:"repair_description"`
	Cause             string            `json:"cause"`
	ExtraLines        []repair.PartLine `json:"extra_lines"`
}

// startRequest 开工请求体。鉴权开启时负责人取自会话，body 里的值仅作回退。
type startRequest struct {
	Manager string `json:"manager"`
}

// errorResponse 统一的错误响应。
type errorResponse struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
	Logout  bool     `json:"logout,omitempty"` // 会话失效信号，由外部执行登出
}
