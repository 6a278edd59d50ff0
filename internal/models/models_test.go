package models

import "testing"

func TestGestureAction(t *testing.T) {
	t.Run("Zero Value Is None", func(t *testing.T) {
		var a GestureAction
		if !a.IsNone() || a != NoAction() {
			t.Errorf("expected zero value to be NONE, got %v", a)
		}
	})

	t.Run("VolumeSet Clamps", func(t *testing.T) {
		tc := []struct {
			in, want int
		}{
			{in: -5, want: 0},
			{in: 0, want: 0},
			{in: 55, want: 55},
			{in: 140, want: 100},
		}
		for _, tt := range tc {
			if got := VolumeSet(tt.in).Volume(); got != tt.want {
				t.Errorf("VolumeSet(%d).Volume() = %d, want %d", tt.in, got, tt.want)
			}
		}
	})

	t.Run("Equality Includes Payload", func(t *testing.T) {
		if VolumeSet(40) == VolumeSet(41) {
			t.Error("volume actions with different payloads should differ")
		}
		if VolumeSet(40) != VolumeSet(40) {
			t.Error("volume actions with equal payloads should be equal")
		}
		if NextTrack() == PrevTrack() {
			t.Error("distinct kinds should differ")
		}
	})

	t.Run("String", func(t *testing.T) {
		tc := []struct {
			action GestureAction
			want   string
		}{
			{NoAction(), "NONE"},
			{NextTrack(), "NEXT_TRACK"},
			{PrevTrack(), "PREV_TRACK"},
			{PlayPause(), "PLAY_PAUSE"},
			{VolumeSet(80), "VOLUME_SET(80)"},
		}
		for _, tt := range tc {
			if got := tt.action.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		}
	})

	t.Run("ParseActionKind", func(t *testing.T) {
		k, err := ParseActionKind("play_pause")
		if err != nil || k != ActionPlayPause {
			t.Errorf("expected PLAY_PAUSE, got %v (%v)", k, err)
		}
		if _, err := ParseActionKind("shuffle"); err == nil {
			t.Error("expected error for unknown action")
		}
	})
}

func TestDispatchRecord(t *testing.T) {
	t.Run("NewDispatchRecord", func(t *testing.T) {
		r := NewDispatchRecord(VolumeSet(65), OutcomeOK)
		if r.Action != ActionVolumeSet || r.Volume != 65 {
			t.Errorf("unexpected record %+v", r)
		}
		if r.GestureAction() != VolumeSet(65) {
			t.Errorf("expected VOLUME_SET(65), got %v", r.GestureAction())
		}
		if r.CreatedAt().IsZero() {
			t.Error("expected created_at to be set")
		}
		if err := r.Validate(); err != nil {
			t.Errorf("expected valid record, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			record *DispatchRecord
		}{
			{name: "none action", record: NewDispatchRecord(NoAction(), OutcomeOK)},
			{name: "bad outcome", record: NewDispatchRecord(NextTrack(), Outcome("maybe"))},
			{name: "bad attempt", record: func() *DispatchRecord {
				r := NewDispatchRecord(NextTrack(), OutcomeOK)
				r.Attempt = 0
				return r
			}()},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if err := tt.record.Validate(); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})
}

func TestPlaybackSnapshotString(t *testing.T) {
	s := PlaybackSnapshot{TrackName: "Song", IsPlaying: true}
	if s.String() != "Song (playing)" {
		t.Errorf("unexpected %q", s.String())
	}
	if (PlaybackSnapshot{}).String() != "nothing (paused)" {
		t.Errorf("unexpected %q", PlaybackSnapshot{}.String())
	}
}

func TestGestureActionText(t *testing.T) {
	t.Run("volume keeps its payload", func(t *testing.T) {
		var got GestureAction
		if err := got.UnmarshalText([]byte("VOLUME_SET(42)")); err != nil {
			t.Fatalf("UnmarshalText failed: %v", err)
		}
		if got != VolumeSet(42) {
			t.Errorf("expected VOLUME_SET(42), got %s", got)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		for _, in := range []string{"WAVE", "VOLUME_SET", "VOLUME_SET(loud)"} {
			var a GestureAction
			if err := a.UnmarshalText([]byte(in)); err == nil {
				t.Errorf("expected error for %q", in)
			}
		}
	})
}
