package receipt

import (
	"strings"

	"github.com/AutoFixLink/AutoFixLink/internal/repair"
)

// receiptDTO 接车单后端的响应结构。
// 字段均按可缺省处理，状态字符串在映射时统一规整为枚举。
type receiptDTO struct {
	ID             string `json:"id"`
	CarNumber      string `json:"car_number"`
	OwnerName      string `json:"owner_name"`
	CarModel       string `json:"car_model"`
	PhoneNumber    string `json:"phone_number"`
	RequestContent string `json:"request_content"`
	ReceiptDate    string `json:"receipt_date"` // yyyy-MM-dd
	State          string `json:"state"`
	Manager        string `json:"manager"`
}

// toRecord 把后端 DTO 规整为核心模型。
// 没有单号的条目无法参与任何流转，直接丢弃（ok=false）。
func toRecord(d receiptDTO) (repair.Record, bool) {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		return repair.Record{}, false
	}
	return repair.Record{
		ID:                 id,
		VehiclePlate:       strings.TrimSpace(d.CarNumber),
		OwnerName:          strings.TrimSpace(d.OwnerName),
		VehicleModel:       strings.TrimSpace(d.CarModel),
		PhoneNumber:        strings.TrimSpace(d.PhoneNumber),
		RequestDescription: strings.TrimSpace(d.RequestContent),
		IntakeDate:         strings.TrimSpace(d.ReceiptDate),
		Status:             repair.ParseBackendStatus(d.State),
		Manager:            strings.TrimSpace(d.Manager),
	}, true
}

func toRecords(dtos []receiptDTO) []repair.Record {
	out := make([]repair.Record, 0, len(dtos))
	for _, d := range dtos {
		if rec, ok := toRecord(d); ok {
			out = append(out, rec)
		}
	}
	return out
}
