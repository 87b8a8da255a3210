package repair

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusCheckedIn, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCheckedIn, StatusCompleted, false}, // 不允许跳级
		{StatusInProgress, StatusCheckedIn, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusCheckedIn, false},
		{StatusCompleted, StatusCompleted, false}, // 重复完工也非法
		{StatusCheckedIn, StatusCheckedIn, false},
		{Status("bogus"), StatusInProgress, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := checkTransition(StatusCompleted, StatusCompleted)
	if err == nil {
		t.Fatalf("expected error for completed -> completed")
	}
	if !IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError, got %T: %v", err, err)
	}
}
