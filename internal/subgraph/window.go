package subgraph

import (
	"fmt"
	"time"
)

// Window is an inclusive range of unix timestamps.
type Window struct {
	Start int64
	End   int64
}

// SplitWindow splits [start, end] into consecutive windows of at most step.
func SplitWindow(start, end time.Time, step time.Duration) ([]Window, error) {
	width := int64(step / time.Second)
	if width <= 0 {
		return nil, fmt.Errorf("window must be at least one second")
	}
	from, to := start.Unix(), end.Unix()
	if to < from {
		return nil, fmt.Errorf("end must not be before start")
	}

	windows := make([]Window, 0, (to-from)/width+1)
	for lo := from; lo <= to; lo += width {
		hi := lo + width - 1
		if hi > to {
			hi = to
		}
		windows = append(windows, Window{Start: lo, End: hi})
	}
	return windows, nil
}
