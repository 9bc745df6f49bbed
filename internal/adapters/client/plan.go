package client

import "marathon/internal/domain/plan"

// PlanResponse mirrors GET /api/plan.
type PlanResponse struct {
	Title    string                         `json:"title"`
	Goal     string                         `json:"goal"`
	Span     string                         `json:"span"`
	Weeks    []PlanWeek                     `json:"weeks"`
	Workouts map[int]map[plan.Day]string    `json:"workouts"`
	Colors   map[string]map[plan.Day]string `json:"colors"`
}

// PlanWeek is one row of the schedule header.
type PlanWeek struct {
	WeekNum int    `json:"week_num"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Workout returns the description for key, or "" when the plan has none.
func (p PlanResponse) Workout(key plan.Key) string {
	return p.Workouts[key.Week][key.Day]
}
