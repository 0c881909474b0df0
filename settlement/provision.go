package settlement

import "time"

// SlotEnd floors now to the most recent multiple of mode minutes since the
// Unix epoch.
func SlotEnd(now time.Time, mode int) time.Time {
	period := int64(mode) * int64(time.Minute/time.Millisecond)
	ms := now.UnixMilli()
	return time.UnixMilli(ms - mod(ms, period)).UTC()
}

// NextSlot is the first slot boundary strictly after the current one.
func NextSlot(now time.Time, mode int) time.Time {
	return SlotEnd(now, mode).Add(time.Duration(mode) * time.Minute)
}

// Slots returns the lookback most recent slot ends, newest first.
func Slots(now time.Time, mode, lookback int) []time.Time {
	if lookback < 1 {
		lookback = 1
	}
	last := SlotEnd(now, mode)
	step := time.Duration(mode) * time.Minute
	out := make([]time.Time, 0, lookback)
	for i := 0; i < lookback; i++ {
		out = append(out, last.Add(-time.Duration(i)*step))
	}
	return out
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
