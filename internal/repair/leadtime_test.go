package repair

import "testing"

func TestDaysBetween(t *testing.T) {
	if days, ok := DaysBetween("2025-10-10", "2025-10-13"); !ok || days != 3 {
		t.Fatalf("expected 3 days, got %d ok=%v", days, ok)
	}
	// 完工日期早于接车日期时结果为负，不做钳制
	if days, ok := DaysBetween("2025-10-13", "2025-10-10"); !ok || days != -3 {
		t.Fatalf("expected -3 days, got %d ok=%v", days, ok)
	}
	if days, ok := DaysBetween("2025-10-10", "2025-10-10"); !ok || days != 0 {
		t.Fatalf("expected 0 days, got %d ok=%v", days, ok)
	}
	// 跨月/跨年
	if days, ok := DaysBetween("2024-12-30", "2025-01-02"); !ok || days != 3 {
		t.Fatalf("expected 3 days across year boundary, got %d ok=%v", days, ok)
	}
	if _, ok := DaysBetween("bad-date", "2025-10-13"); ok {
		t.Fatalf("expected not ok for malformed from date")
	}
	if _, ok := DaysBetween("2025-10-10", ""); ok {
		t.Fatalf("expected not ok for empty to date")
	}
}

func TestParseCivilDateStrict(t *testing.T) {
	if _, ok := ParseCivilDate("2025-10-10"); !ok {
		t.Fatalf("expected valid date to parse")
	}
	for _, s := range []string{"2025-1-2", "2025/10/10", "2025-10-10T00:00:00", "2025-13-01", "2025-02-30", ""} {
		if _, ok := ParseCivilDate(s); ok {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
	// 前后空白允许，内部格式仍需严格
	if _, ok := ParseCivilDate(" 2025-10-10 "); !ok {
		t.Fatalf("expected trimmed date to parse")
	}
}
