package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestLogger(t *testing.T) {
	t.Run("ApplyLogLevel", func(t *testing.T) {
		tc := []struct {
			name    string
			level   string
			want    log.Level
			wantErr bool
		}{
			{name: "empty defaults to info", level: "", want: log.InfoLevel},
			{name: "debug", level: "debug", want: log.DebugLevel},
			{name: "warn", level: "warn", want: log.WarnLevel},
			{name: "unknown", level: "chatty", wantErr: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				l := NewLogger(&bytes.Buffer{})
				err := ApplyLogLevel(l, tt.level)
				if tt.wantErr {
					if err == nil {
						t.Error("expected error")
					}
					return
				}
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if l.GetLevel() != tt.want {
					t.Errorf("expected level %v, got %v", tt.want, l.GetLevel())
				}
			})
		}
	})

	t.Run("WithLogger", func(t *testing.T) {
		var buf bytes.Buffer
		l := WithLogger(NewLogger(&buf), "component", "dispatcher")
		l.Info("sent")

		if !strings.Contains(buf.String(), "component=dispatcher") {
			t.Errorf("expected component field in %q", buf.String())
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "spotigest.log")
		l, f, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("failed to create file logger: %v", err)
		}
		l.Info("hello")
		f.Close()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), "hello") {
			t.Errorf("expected log line in file, got %q", string(data))
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
}

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	timer := c.NewTimer(time.Millisecond)
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	if timer.Stop() {
		t.Error("Stop on a fired timer should report false")
	}
}
