package repair

import "strings"

// Status 维修单状态枚举（与后端交互时持久化为字符串）。
type Status string

const (
	StatusCheckedIn  Status = "checked_in"  // 已接车，待开工
	StatusInProgress Status = "in_progress" // 维修中
	StatusCompleted  Status = "completed"   // 已完工（终态）
)

// 后端返回的状态字符串 -> 枚举 的固定映射表。
// 后端历史原因存在韩文/英文两套写法，这里统一收敛；
// 未识别的值一律按 checked_in 处理，原始字符串不允许穿透到核心层。
var backendStatusTable = map[string]Status{
	"접수":         StatusCheckedIn,
	"receipt":    StatusCheckedIn,
	"수리중":        StatusInProgress,
	"inprogress": StatusInProgress,
	"완료":         StatusCompleted,
	"completed":  StatusCompleted,
}

// ParseBackendStatus 将后端状态字符串规整为枚举，未识别时回落为 StatusCheckedIn。
func ParseBackendStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := backendStatusTable[key]; ok {
		return s
	}
	return StatusCheckedIn
}

// DisplayText 返回状态对应的展示文案（与后端约定的韩文文案一致）。
func (s Status) DisplayText() string {
	switch s {
	case StatusInProgress:
		return "수리중"
	case StatusCompleted:
		return "완료"
	default:
		return "접수"
	}
}

// Record 维修单（接车记录）。
// 由后端的列表/详情接口创建，核心层只负责状态流转与完工数据，不做删除。
type Record struct {
	ID string `json:"id"`

	// 接车时录入的元数据（核心层视为不可变）
	VehiclePlate       string `json:"vehicle_plate"`
	OwnerName          string `json:"owner_name"`
	VehicleModel       string `json:"vehicle_model"`
	PhoneNumber        string `json:"phone_number"`
	RequestDescription string `json:"request_description"`
	IntakeDate         string `json:"intake_date"` // yyyy-MM-dd

	Status  Status `json:"status"`
	Manager string `json:"manager,omitempty"` // 开工时指定的负责工程师

	// 完工数据：仅在 Status == completed 时存在
	Completion   *CompletionSummary `json:"completion,omitempty"`
	LeadTimeDays *int               `json:"lead_time_days,omitempty"` // 派生值；日期不可解析时为 nil
}

// PartLine 配件行。
// Quantity / UnitPrice 采用最小货币单位的整数表示，
// 中间求和不做任何舍入，展示层再格式化为两位小数。
type PartLine struct {
	PartCode  string `json:"part_code"`
	PartName  string `json:"part_name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// LineTotal 行小计 = 数量 * 单价。
func (l PartLine) LineTotal() int64 {
	return l.Quantity * l.UnitPrice
}

// CompletionSummary 完工汇总：维修说明 + 两类来源独立的配件清单。
// OrderedLines 来自已提交的采购单（对账服务拉取），
// ExtraLines 为完工时手工补录的额外用料；
// 同一配件编码允许同时出现在两个清单中（进货 vs 额外消耗），不允许合并。
type CompletionSummary struct {
	CompletionDate    string     `json:"completion_date"` // yyyy-MM-dd
	RepairDescription string     `json:"repair_description"`
	Cause             string     `json:"cause"`
	OrderedLines      []PartLine `json:"ordered_lines"`
	ExtraLines        []PartLine `json:"extra_lines"`
}
