package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestProtocol(t *testing.T) {
	t.Run("writeFrame", func(t *testing.T) {
		var buf bytes.Buffer
		payload := []byte{0xff, 0xd8, 0x01, 0x02}

		if err := writeFrame(&buf, payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.Bytes()
		if got := binary.BigEndian.Uint32(out[:4]); got != uint32(len(payload)) {
			t.Errorf("expected length header %d, got %d", len(payload), got)
		}
		if !bytes.Equal(out[4:], payload) {
			t.Errorf("payload mismatch: %v", out[4:])
		}
	})

	t.Run("readHands Sorted By Score", func(t *testing.T) {
		points := strings.Repeat(`{"x":0.1,"y":0.2,"z":0},`, NumLandmarks-1) + `{"x":0.9,"y":0.8,"z":0}`
		line := `{"hands":[` +
			`{"points":[` + points + `],"handedness":"Left","score":0.71},` +
			`{"points":[` + points + `],"handedness":"Right","score":0.93}` +
			"]}\n"

		hands, err := readHands(bufio.NewReader(strings.NewReader(line)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Fatalf("expected 2 hands, got %d", len(hands))
		}
		if hands[0].Handedness != "Right" {
			t.Errorf("expected most confident hand first, got %s", hands[0].Handedness)
		}
		if hands[0].At(PinkyTip).X != 0.9 {
			t.Errorf("expected pinky tip x 0.9, got %v", hands[0].At(PinkyTip).X)
		}
	})

	t.Run("readHands Drops Partial Hands", func(t *testing.T) {
		line := `{"hands":[{"points":[{"x":0.1,"y":0.1,"z":0}],"handedness":"Left","score":0.9}]}` + "\n"
		hands, err := readHands(bufio.NewReader(strings.NewReader(line)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected partial hand to be dropped, got %d", len(hands))
		}
	})

	t.Run("readHands Empty", func(t *testing.T) {
		hands, err := readHands(bufio.NewReader(strings.NewReader("{\"hands\":[]}\n")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("readHands Service Error", func(t *testing.T) {
		_, err := readHands(bufio.NewReader(strings.NewReader(`{"hands":[],"error":"bad frame"}` + "\n")))
		if err == nil || !strings.Contains(err.Error(), "bad frame") {
			t.Errorf("expected service error, got %v", err)
		}
	})

	t.Run("readHands Malformed", func(t *testing.T) {
		if _, err := readHands(bufio.NewReader(strings.NewReader("not json\n"))); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()
	m.SetHands(OpenHand())

	hands, err := m.Detect(nil)
	if err != nil || len(hands) != 1 {
		t.Fatalf("expected one hand, got %d (%v)", len(hands), err)
	}

	boom := errors.New("boom")
	m.SetError(boom)
	if _, err := m.Detect(nil); !errors.Is(err, boom) {
		t.Errorf("expected preset error, got %v", err)
	}

	if m.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", m.Calls())
	}

	m.Close()
	if !m.Closed() {
		t.Error("expected detector to be closed")
	}
}

func TestResolveScript(t *testing.T) {
	if got := resolveScript("/definitely/not/here.py"); got != "" {
		t.Errorf("expected empty path for missing script, got %q", got)
	}
}
