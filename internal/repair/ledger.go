package repair

// Subtotal 清单小计：行小计求和，空清单为 0。
// 全程整数运算，不存在中间舍入。
func Subtotal(lines []PartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.LineTotal()
	}
	return total
}

// OrderedSubtotal 采购来源配件的小计。
func (s *CompletionSummary) OrderedSubtotal() int64 {
	return Subtotal(s.OrderedLines)
}

// ExtraSubtotal 手工补录配件的小计。
func (s *CompletionSummary) ExtraSubtotal() int64 {
	return Subtotal(s.ExtraLines)
}

// GrandTotal 完工总额 = 两类来源小计之和。
func (s *CompletionSummary) GrandTotal() int64 {
	return s.OrderedSubtotal() + s.ExtraSubtotal()
}

// MergeLines 由两类来源的配件清单组装完工汇总。
// 只做拼装：两个清单各自拷贝、互不去重——同一配件编码出现在两边
// 代表不同来源（已采购 vs 额外消耗），必须保持独立小计。
func MergeLines(completionDate, repairDescription, cause string, ordered, extra []PartLine) CompletionSummary {
	s := CompletionSummary{
		CompletionDate:    completionDate,
		RepairDescription: repairDescription,
		Cause:             cause,
	}
	if len(ordered) > 0 {
		s.OrderedLines = append([]PartLine(nil), ordered...)
	}
	if len(extra) > 0 {
		s.ExtraLines = append([]PartLine(nil), extra...)
	}
	return s
}
