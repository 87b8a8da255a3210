package repair

import (
	"strings"
	"sync"
	"testing"
)

func newCheckedInRecord() *Record {
	return &Record{
		ID:                 "r-1001",
		VehiclePlate:       "12가3456",
		OwnerName:          "Park",
		VehicleModel:       "Avante",
		PhoneNumber:        "010-0000-0000",
		RequestDescription: "engine noise",
		IntakeDate:         "2025-10-01",
		Status:             StatusCheckedIn,
	}
}

func validSummary() CompletionSummary {
	return CompletionSummary{
		CompletionDate:    "2025-10-05",
		RepairDescription: "oil change",
		Cause:             "mileage",
		ExtraLines: []PartLine{
			{PartCode: "E1", PartName: "oil", Quantity: 2, UnitPrice: 45000},
		},
	}
}

func TestStartRepairOnce(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()
	sess := SessionContext{EngineerID: "eng-7", Name: "Kim"}

	if err := c.StartRepair(rec, sess); err != nil {
		t.Fatalf("StartRepair: %v", err)
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("status = %s, want %s", rec.Status, StatusInProgress)
	}
	if rec.Manager != "Kim" {
		t.Fatalf("manager = %q, want Kim", rec.Manager)
	}

	// 第二次开工必须失败
	if err := c.StartRepair(rec, sess); !IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError on second start, got %v", err)
	}
}

func TestStartRepairRequiresManager(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()

	err := c.StartRepair(rec, SessionContext{})
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Reasons) != 1 || !strings.Contains(ve.Reasons[0], "manager") {
		t.Fatalf("unexpected reasons: %v", ve.Reasons)
	}
	if rec.Status != StatusCheckedIn {
		t.Fatalf("record mutated on failed start: %s", rec.Status)
	}
}

// 完整场景：接车 2025-10-01，Kim 开工，10-05 完工，周期 4 天，总额 90000。
func TestStartThenCompleteScenario(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()

	if err := c.StartRepair(rec, SessionContext{Name: "Kim"}); err != nil {
		t.Fatalf("StartRepair: %v", err)
	}
	if err := c.Complete(rec, validSummary()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if rec.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", rec.Status)
	}
	if rec.Completion == nil {
		t.Fatalf("completion not attached")
	}
	if rec.LeadTimeDays == nil || *rec.LeadTimeDays != 4 {
		t.Fatalf("lead time = %v, want 4", rec.LeadTimeDays)
	}
	if got := rec.Completion.GrandTotal(); got != 90000 {
		t.Fatalf("grand total = %d, want 90000", got)
	}

	// 重复完工必须报非法流转，而不是静默成功
	if err := c.Complete(rec, validSummary()); !IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError on second complete, got %v", err)
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()
	if err := c.Complete(rec, validSummary()); !IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError from checked_in, got %v", err)
	}
}

func TestCompleteRejectsEmptyLineBuckets(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()
	if err := c.StartRepair(rec, SessionContext{Name: "Kim"}); err != nil {
		t.Fatalf("StartRepair: %v", err)
	}

	s := validSummary()
	s.ExtraLines = nil
	err := c.Complete(rec, s)
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, r := range ve.Reasons {
		if strings.Contains(r, "at least one part line") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected at-least-one-part reason, got %v", ve.Reasons)
	}
	if rec.Status != StatusInProgress {
		t.Fatalf("record mutated on failed complete: %s", rec.Status)
	}
}

// 校验必须收集全部违规项，而不是只报第一条。
func TestCompleteCollectsAllReasons(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()
	if err := c.StartRepair(rec, SessionContext{Name: "Kim"}); err != nil {
		t.Fatalf("StartRepair: %v", err)
	}

	bad := CompletionSummary{
		CompletionDate:    "05/10/2025",
		RepairDescription: " ",
		Cause:             "",
		ExtraLines: []PartLine{
			{PartCode: "", PartName: "", Quantity: 0, UnitPrice: -100},
		},
	}
	err := c.Complete(rec, bad)
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, want := range []string{
		"repair description is required",
		"cause is required",
		"not a valid yyyy-MM-dd date",
		"part code is required",
		"part name is required",
		"quantity must be greater than 0",
		"unit price must not be negative",
		"at least one part line",
	} {
		found := false
		for _, r := range ve.Reasons {
			if strings.Contains(r, want) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("missing reason containing %q in %v", want, ve.Reasons)
		}
	}
}

func TestCompleteRejectsDuplicateCodeWithinBucket(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()
	if err := c.StartRepair(rec, SessionContext{Name: "Kim"}); err != nil {
		t.Fatalf("StartRepair: %v", err)
	}

	s := validSummary()
	s.ExtraLines = append(s.ExtraLines, PartLine{PartCode: "E1", PartName: "oil again", Quantity: 1, UnitPrice: 45000})
	err := c.Complete(rec, s)
	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, r := range ve.Reasons {
		if strings.Contains(r, "duplicate part code") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected duplicate code reason, got %v", ve.Reasons)
	}
}

// 跨清单重复编码合法：采购来源与额外消耗属于不同口径。
func TestCompleteAllowsDuplicateCodeAcrossBuckets(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()
	if err := c.StartRepair(rec, SessionContext{Name: "Kim"}); err != nil {
		t.Fatalf("StartRepair: %v", err)
	}

	s := validSummary()
	s.OrderedLines = []PartLine{{PartCode: "E1", PartName: "oil", Quantity: 1, UnitPrice: 45000}}
	if err := c.Complete(rec, s); err != nil {
		t.Fatalf("expected cross-bucket duplicate to pass, got %v", err)
	}
}

// 接车日期来自后端，可能是坏数据：完工本身成功，周期保持未知。
func TestCompleteWithUnparseableIntakeDate(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()
	rec.IntakeDate = "not-a-date"
	if err := c.StartRepair(rec, SessionContext{Name: "Kim"}); err != nil {
		t.Fatalf("StartRepair: %v", err)
	}
	if err := c.Complete(rec, validSummary()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rec.LeadTimeDays != nil {
		t.Fatalf("lead time = %v, want nil for unknown intake date", *rec.LeadTimeDays)
	}
}

// 完工日期早于接车日期：保留负周期，由调用方决定呈现方式。
func TestCompleteKeepsNegativeLeadTime(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()
	rec.IntakeDate = "2025-10-13"
	if err := c.StartRepair(rec, SessionContext{Name: "Kim"}); err != nil {
		t.Fatalf("StartRepair: %v", err)
	}
	s := validSummary()
	s.CompletionDate = "2025-10-10"
	if err := c.Complete(rec, s); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if rec.LeadTimeDays == nil || *rec.LeadTimeDays != -3 {
		t.Fatalf("lead time = %v, want -3", rec.LeadTimeDays)
	}
}

// 并发对同一张单开工：只允许一次成功，其余以非法流转失败。
func TestConcurrentStartOnlyOneWins(t *testing.T) {
	c := NewController()
	rec := newCheckedInRecord()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.StartRepair(rec, SessionContext{Name: "Kim"})
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
		} else if !IsInvalidTransition(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if okCount != 1 {
		t.Fatalf("expected exactly one successful start, got %d", okCount)
	}
	if rec.Status != StatusInProgress || rec.Manager != "Kim" {
		t.Fatalf("unexpected record state: %s / %q", rec.Status, rec.Manager)
	}
}
