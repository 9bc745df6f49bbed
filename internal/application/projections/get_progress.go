package projections

// WeekProgress counts completed workouts in one plan week.
type WeekProgress struct {
	WeekNum int
	Done    int
	Total   int
}

// Progress summarizes a calendar view.
type Progress struct {
	Done  int
	Total int
	Weeks []WeekProgress
}

// Percent returns Done as a whole percentage of Total.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return p.Done * 100 / p.Total
}

// SummarizeProgress counts completed cells per week.
// POST: Total is the number of cells in view
func SummarizeProgress(view CalendarView) Progress {
	p := Progress{Weeks: make([]WeekProgress, 0, len(view.Weeks))}
	for _, w := range view.Weeks {
		wp := WeekProgress{WeekNum: w.WeekNum, Total: len(w.Cells)}
		for _, c := range w.Cells {
			if c.IsCompleted {
				wp.Done++
			}
		}
		p.Done += wp.Done
		p.Total += wp.Total
		p.Weeks = append(p.Weeks, wp)
	}
	return p
}
