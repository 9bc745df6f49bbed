package plan

// Header is the title block shown above the calendar.
type Header struct {
	Title string
	Goal  string
}

// PlanHeader describes the season this plan trains for.
var PlanHeader = Header{
	Title: "Marathon Training Plan",
	Goal:  "Goal: 3:25 Marathon (7:49 min/mile pace)",
}

// Weeks is the ordered list of training weeks with their display date spans.
var Weeks = []Week{
	{WeekNum: 1, Start: "Jan 6", End: "Jan 12"},
	{WeekNum: 2, Start: "Jan 13", End: "Jan 19"},
	{WeekNum: 3, Start: "Jan 20", End: "Jan 26"},
	{WeekNum: 4, Start: "Jan 27", End: "Feb 2"},
	{WeekNum: 5, Start: "Feb 3", End: "Feb 9"},
	{WeekNum: 6, Start: "Feb 10", End: "Feb 16"},
	{WeekNum: 7, Start: "Feb 17", End: "Feb 23"},
	{WeekNum: 8, Start: "Feb 24", End: "Mar 2"},
	{WeekNum: 9, Start: "Mar 3", End: "Mar 9"},
	{WeekNum: 10, Start: "Mar 10", End: "Mar 16"},
}

// Workouts maps week number to the workout description for each day.
var Workouts = map[int]map[Day]string{
	1: {
		Mon: "easy 6 miles",
		Tue: "7 miles w/ 3 mi tempo @ 7:15",
		Wed: "easy 5 miles",
		Thu: "8 miles w/ 4 @ MP",
		Fri: "Rest",
		Sat: "easy 4 miles + strides",
		Sun: "long run 14 miles",
	},
	2: {
		Mon: "easy 6 miles",
		Tue: "8 miles w/ 6x800m @ 5K pace",
		Wed: "easy 6 miles",
		Thu: "9 miles w/ 5 @ MP",
		Fri: "Rest",
		Sat: "easy 5 miles + strides",
		Sun: "long run 15 miles",
	},
	3: {
		Mon: "easy 7 miles",
		Tue: "8 miles w/ 4 mi tempo @ 7:10",
		Wed: "easy 6 miles",
		Thu: "10 miles w/ 6 @ MP",
		Fri: "Rest",
		Sat: "easy 5 miles",
		Sun: "long run 16 miles",
	},
	4: {
		Mon: "easy 5 miles",
		Tue: "7 miles w/ 5x1K @ 5K pace",
		Wed: "easy 5 miles",
		Thu: "8 miles w/ 4 @ MP",
		Fri: "Rest",
		Sat: "easy 4 miles + strides",
		Sun: "long run 13 miles (cutback)",
	},
	5: {
		Mon: "easy 7 miles",
		Tue: "9 miles w/ 5 mi tempo @ 7:10",
		Wed: "easy 6 miles",
		Thu: "11 miles w/ 7 @ MP",
		Fri: "Rest",
		Sat: "easy 5 miles + strides",
		Sun: "long run 18 miles",
	},
	6: {
		Mon: "easy 7 miles",
		Tue: "9 miles w/ 4x1 mile @ 5K pace",
		Wed: "easy 7 miles",
		Thu: "12 miles w/ 8 @ MP",
		Fri: "Rest",
		Sat: "easy 5 miles",
		Sun: "long run 19 miles",
	},
	7: {
		Mon: "easy 7 miles",
		Tue: "10 miles w/ 6 mi tempo @ 7:05",
		Wed: "easy 6 miles",
		Thu: "12 miles w/ 9 @ MP",
		Fri: "Rest",
		Sat: "easy 5 miles + strides",
		Sun: "long run 20 miles",
	},
	8: {
		Mon: "easy 6 miles",
		Tue: "9 miles w/ 5x1K @ 5K pace",
		Wed: "easy 6 miles",
		Thu: "10 miles w/ 7 @ MP",
		Fri: "Rest",
		Sat: "easy 5 miles",
		Sun: "long run 16 miles w/ last 4 @ goal pace",
	},
	9: {
		Mon: "easy 5 miles",
		Tue: "7 miles w/ 3 mi tempo @ 7:10",
		Wed: "easy 5 miles",
		Thu: "8 miles w/ 4 @ MP",
		Fri: "Rest",
		Sat: "easy 4 miles + strides",
		Sun: "long run 12 miles",
	},
	10: {
		Mon: "easy 4 miles",
		Tue: "5 miles w/ 2 @ MP",
		Wed: "easy 4 miles",
		Thu: "easy 3 miles + strides",
		Fri: "Rest",
		Sat: "easy 2 mile shakeout",
		Sun: "RACE DAY: 26.2 miles @ 7:49/mile",
	},
}

// Nutrition templates, one per workout family.
var (
	LongRunNutrition = Nutrition{
		Title:      "Long Run Fueling",
		PreMeal:    "Night before: carb-focused dinner (pasta, rice, potatoes), moderate protein, low fiber.",
		PreWorkout: "2-3 hours before: bagel with peanut butter and a banana. Take a gel every 45 minutes while running.",
	}
	TempoMPDayNutrition = Nutrition{
		Title:      "Quality Day Fueling",
		PreMeal:    "3-4 hours before: carb-rich meal such as oatmeal, toast and fruit.",
		PreWorkout: "30-60 minutes before: banana or energy chews with water.",
	}
	EasyDayNutrition = Nutrition{
		Title:      "Easy Day Fueling",
		PreMeal:    "Balanced meals with lean protein, whole grains and vegetables.",
		PreWorkout: "Light snack only if running more than an hour after your last meal.",
	}
	RestDayNutrition = Nutrition{
		Title:   "Rest Day Nutrition",
		PreMeal: "Prioritize protein for recovery, plenty of vegetables, and stay hydrated.",
	}
)

// Guidelines is the markdown body of the "Training Guidelines" tab.
const Guidelines = `## Paces

| Run | Pace |
|---|---|
| Easy | 8:45 - 9:30 /mile |
| Marathon pace (MP) | 7:49 /mile |
| Tempo | 7:05 - 7:15 /mile |
| 5K pace intervals | 6:45 - 6:55 /mile |

## Weekly rhythm

- **Easy days** should feel conversational. If in doubt, slow down.
- **Tempo and interval days** start with a 1-2 mile warm-up and finish with a 1 mile cool-down.
- **MP runs** practice race rhythm and fueling. Hold the pace, do not race it.
- **Long runs** build durability. Start easy and rehearse race-day nutrition.
- **Rest days** are part of the plan. Sleep, stretch and eat well.

## Taper

Weeks 9 and 10 cut volume while keeping some intensity. Trust the training.

## Race day

Eat breakfast 3 hours before the start. Run the first 10K a few seconds slower than goal pace,
settle in through halfway, and race the last 10K.
`
