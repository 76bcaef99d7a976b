package query

import (
	"fmt"
	"strings"
)

// Mode selects which statistic set the form collects.
type Mode string

const (
	ModeOffense Mode = "offense"
	// ModeDefense has no backend yet; its field group is scaffolding.
	ModeDefense Mode = "defense"
)

// DefenseFields lists the defensive stat fields in form order.
var DefenseFields = []string{
	"tackles_pg",
	"sacks_pg",
	"def_ints_pg",
	"forced_fumbles_pg",
	"passes_defended_pg",
}

// ParseMode parses a mode name; blank means ModeOffense.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeOffense:
		return ModeOffense, nil
	case ModeDefense:
		return ModeDefense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Supported reports whether a backend exists for the mode.
func (m Mode) Supported() bool { return m == ModeOffense }

// FieldGroup is one toggleable block of inputs.
type FieldGroup struct {
	Mode     Mode
	Fields   []string
	Visible  bool
	Required bool
}

// Groups returns the offense and defense groups as the selected mode
// leaves them: only the matching group is shown and required.
func Groups(selected Mode) []FieldGroup {
	return []FieldGroup{
		{Mode: ModeOffense, Fields: OffenseFields, Visible: selected == ModeOffense, Required: selected == ModeOffense},
		{Mode: ModeDefense, Fields: DefenseFields, Visible: selected == ModeDefense, Required: selected == ModeDefense},
	}
}
