package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActionKind enumerates the control actions a gesture can produce.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionNextTrack
	ActionPrevTrack
	ActionPlayPause
	ActionVolumeSet
)

var actionNames = map[ActionKind]string{
	ActionNone:      "NONE",
	ActionNextTrack: "NEXT_TRACK",
	ActionPrevTrack: "PREV_TRACK",
	ActionPlayPause: "PLAY_PAUSE",
	ActionVolumeSet: "VOLUME_SET",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// ParseActionKind is the inverse of [ActionKind.String]. Matching is case-insensitive.
func ParseActionKind(s string) (ActionKind, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for k, name := range actionNames {
		if name == upper {
			return k, nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// GestureAction is an immutable control action. Only VOLUME_SET carries a payload.
//
// The zero value is NONE. Values are comparable with ==.
type GestureAction struct {
	kind   ActionKind
	volume int
}

func NoAction() GestureAction  { return GestureAction{} }
func NextTrack() GestureAction { return GestureAction{kind: ActionNextTrack} }
func PrevTrack() GestureAction { return GestureAction{kind: ActionPrevTrack} }
func PlayPause() GestureAction { return GestureAction{kind: ActionPlayPause} }

// VolumeSet builds a VOLUME_SET action, clamping the percentage to [0, 100].
func VolumeSet(percent int) GestureAction {
	return GestureAction{kind: ActionVolumeSet, volume: max(0, min(100, percent))}
}

// Kind returns the action's variant.
func (a GestureAction) Kind() ActionKind { return a.kind }

// Volume returns the VOLUME_SET payload; zero for every other kind.
func (a GestureAction) Volume() int { return a.volume }

// IsNone reports whether a is NONE.
func (a GestureAction) IsNone() bool { return a.kind == ActionNone }

func (a GestureAction) String() string {
	if a.kind == ActionVolumeSet {
		return fmt.Sprintf("%s(%d)", a.kind, a.volume)
	}
	return a.kind.String()
}

// MarshalText encodes the action as its String form, e.g. "VOLUME_SET(65)".
func (a GestureAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText is the inverse of [GestureAction.MarshalText].
func (a *GestureAction) UnmarshalText(text []byte) error {
	s := string(text)
	name, rest, hasVolume := strings.Cut(s, "(")

	kind, err := ParseActionKind(name)
	if err != nil {
		return err
	}
	if kind != ActionVolumeSet {
		*a = GestureAction{kind: kind}
		return nil
	}
	if !hasVolume || !strings.HasSuffix(rest, ")") {
		return fmt.Errorf("volume action %q has no percentage", s)
	}
	percent, err := strconv.Atoi(strings.TrimSuffix(rest, ")"))
	if err != nil {
		return fmt.Errorf("volume action %q: %w", s, err)
	}
	*a = VolumeSet(percent)
	return nil
}

// GestureEvent is an action emitted by the debouncer.
type GestureEvent struct {
	Action GestureAction
	At     time.Time
}
