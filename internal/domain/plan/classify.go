package plan

import "strings"

// Category is the visual class of a workout.
type Category string

// Category constants
const (
	CategoryRed    Category = "red"
	CategoryYellow Category = "yellow"
	CategoryBlue   Category = "blue"
	CategoryGreen  Category = "green"
	CategoryGray   Category = "gray"
	CategoryWhite  Category = "white"
)

// CSSClass returns the background class used by the calendar templates.
func (c Category) CSSClass() string {
	return "bg-" + string(c) + "-100"
}

// Rule maps any of its keywords to a result. Matching is a case-sensitive substring test.
type Rule[T any] struct {
	Match  []string
	Result T
}

// Matches reports whether the workout contains any of the rule's keywords.
func (r Rule[T]) Matches(workout string) bool {
	for _, kw := range r.Match {
		if strings.Contains(workout, kw) {
			return true
		}
	}
	return false
}

// ColorRules is evaluated top to bottom; the first match wins.
var ColorRules = []Rule[Category]{
	{Match: []string{"tempo", "5K pace"}, Result: CategoryRed},
	{Match: []string{"MP"}, Result: CategoryYellow},
	{Match: []string{"long run", "RACE DAY"}, Result: CategoryBlue},
	{Match: []string{"easy"}, Result: CategoryGreen},
	{Match: []string{"Rest"}, Result: CategoryGray},
}

// NutritionRules is evaluated top to bottom; the first match wins.
var NutritionRules = []Rule[Nutrition]{
	{Match: []string{"long run", "RACE DAY"}, Result: LongRunNutrition},
	{Match: []string{"tempo", "MP"}, Result: TempoMPDayNutrition},
	{Match: []string{"easy"}, Result: EasyDayNutrition},
}

func firstMatch[T any](rules []Rule[T], workout string, fallback T) T {
	for _, r := range rules {
		if r.Matches(workout) {
			return r.Result
		}
	}
	return fallback
}

// Classify returns the color category of a workout description.
// PRE: none
// POST: returns CategoryWhite when no rule matches
func Classify(workout string) Category {
	return firstMatch(ColorRules, workout, CategoryWhite)
}

// NutritionFor returns the fueling template for a workout description.
// PRE: none
// POST: returns RestDayNutrition when no rule matches
func NutritionFor(workout string) Nutrition {
	return firstMatch(NutritionRules, workout, RestDayNutrition)
}
