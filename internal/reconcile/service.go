// Package reconcile 对账服务：拉取某张接车单名下已采购的配件行，
// 供完工汇总的 ordered 清单使用；同时负责完工明细的上报。
package reconcile

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/AutoFixLink/AutoFixLink/internal/backend"
	"github.com/AutoFixLink/AutoFixLink/internal/common/logger"
	"github.com/AutoFixLink/AutoFixLink/internal/repair"
)

// Service 采购单后端客户端。
type Service struct {
	api *backend.Client
	log logger.Logger
}

func NewService(api *backend.Client, log logger.Logger) *Service {
	return &Service{api: api, log: log}
}

// FetchOrderedParts 拉取接车单+车牌对应的已采购配件行。
// 结构不完整的行被丢弃（不补零值占位）；
// 网络/后端失败按 FetchError 上抛，空清单只代表“确实没有采购记录”。
func (s *Service) FetchOrderedParts(ctx context.Context, receiptID, vehiclePlate string) ([]repair.PartLine, error) {
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return nil, fmt.Errorf("receipt id is required")
	}

	q := url.Values{
		"receipt_id": {receiptID},
		"car_number": {strings.TrimSpace(vehiclePlate)},
	}
	var dtos []orderLineDTO
	if err := s.api.GetJSON(ctx, "/api/orders/parts", q, &dtos); err != nil {
		return nil, err
	}

	lines := make([]repair.PartLine, 0, len(dtos))
	dropped := 0
	for _, d := range dtos {
		l, ok := toPartLine(d)
		if !ok {
			dropped++
			continue
		}
		lines = append(lines, l)
	}
	if dropped > 0 && s.log != nil {
		s.log.WithFields(map[string]interface{}{
			"receipt_id": receiptID,
			"dropped":    dropped,
		}).Warn("dropped incomplete order lines from backend")
	}
	return lines, nil
}

// SubmitRepairDetail 上报完工明细（维修说明/原因/额外用料）。
func (s *Service) SubmitRepairDetail(ctx context.Context, receiptID string, summary repair.CompletionSummary) error {
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return fmt.Errorf("receipt id is required")
	}
	body := detailRequest{
		ReceiptID:      receiptID,
		CompletionDate: summary.CompletionDate,
		Content:        summary.RepairDescription,
		Cause:          summary.Cause,
		ExtraParts:     toDetailParts(summary.ExtraLines),
	}
	return s.api.PostJSON(ctx, "/api/orders/repair-detail", body, nil)
}
