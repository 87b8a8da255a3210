package reconcile

import (
	"strings"

	"github.com/AutoFixLink/AutoFixLink/internal/repair"
)

// orderLineDTO 采购单后端返回的配件行。
// 关键字段用指针表达“缺失”，与“值为零”区分开。
type orderLineDTO struct {
	PartCode  string `json:"part_code"`
	PartName  string `json:"part_name"`
	Quantity  *int64 `json:"quantity"`
	UnitPrice *int64 `json:"unit_price"`
}

// toPartLine 把后端行规整为 PartLine。
// 缺少编码/名称/数量（或数量非正、单价为负）的行整行丢弃，
// 绝不用零值占位补齐——伪造的行会污染小计。
func toPartLine(d orderLineDTO) (repair.PartLine, bool) {
	code := strings.TrimSpace(d.PartCode)
	name := strings.TrimSpace(d.PartName)
	if code == "" || name == "" {
		return repair.PartLine{}, false
	}
	if d.Quantity == nil || *d.Quantity <= 0 {
		return repair.PartLine{}, false
	}
	price := int64(0)
	if d.UnitPrice != nil {
		if *d.UnitPrice < 0 {
			return repair.PartLine{}, false
		}
		price = *d.UnitPrice
	}
	return repair.PartLine{
		PartCode:  code,
		PartName:  name,
		Quantity:  *d.Quantity,
		UnitPrice: price,
	}, true
}

// detailRequest 完工明细上报的请求体。
type detailRequest struct {
	ReceiptID      string          `json:"receipt_id"`
	CompletionDate string          `json:"completion_date"`
	Content        string          `json:"content"`
	Cause          string          `json:"cause"`
	ExtraParts     []detailPartDTO `json:"extra_parts"`
}

type detailPartDTO struct {
	PartCode  string `json:"part_code"`
	PartName  string `json:"part_name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

func toDetailParts(lines []repair.PartLine) []detailPartDTO {
	out := make([]detailPartDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, detailPartDTO{
			PartCode:  l.PartCode,
			PartName:  l.PartName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return out
}
