package projections

// Region names the part of a calendar cell a click came from.
type Region string

const (
	RegionCell         Region = "cell"
	RegionCheerPopover Region = "cheer-popover"
)

// Action is what a click should do.
type Action int

const (
	ActionNone Action = iota
	ActionToggle
)

// Dispatch maps a click region to an action. Only the cell body toggles;
// clicks inside the cheer popover and unknown regions do nothing.
func Dispatch(region Region) Action {
	if region == RegionCell {
		return ActionToggle
	}
	return ActionNone
}
