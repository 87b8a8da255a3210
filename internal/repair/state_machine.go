package repair

// AllowTransition 定义维修单状态机的允许流转关系。
// 三个状态、两条有向边，状态只能单向推进：
// 接车 -> 维修中 -> 已完工；不允许回退、跳级，终态不允许再变更。
var AllowTransition = map[Status][]Status{
	StatusCheckedIn:  {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	// 终态
	StatusCompleted: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
// 注意：from == to 也是非法的——对已完工单再次调用完工必须报错，而不是静默幂等。
func CanTransition(from, to Status) bool {
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// checkTransition 返回流转校验结果，非法时带上 from/to 供上层定位。
func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
