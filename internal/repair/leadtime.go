package repair

import (
	"strings"
	"time"
)

// DateLayout 维修单使用的民用日期格式（不含时区，不是时间点）。
const DateLayout = "2006-01-02"

// ParseCivilDate 严格按 yyyy-MM-dd 解析日期。
// 长度不符或含多余字符一律视为非法，避免 "2025-1-2" 这类松散写法混入。
func ParseCivilDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween 计算两个日期之间的整天数（to - from）。
// 任一日期解析失败时返回 ok=false，调用方必须按“未知”处理，不能当作 0。
// to 早于 from 时结果为负数，这里不做钳制，由调用方决定如何呈现。
func DaysBetween(from, to string) (int, bool) {
	f, ok := ParseCivilDate(from)
	if !ok {
		return 0, false
	}
	t, ok := ParseCivilDate(to)
	if !ok {
		return 0, false
	}
	return int(t.Sub(f) / (24 * time.Hour)), true
}
