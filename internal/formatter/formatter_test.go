package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
	th "github.com/desertthunder/spotigest/internal/testing"
)

func sampleRecords() []*models.DispatchRecord {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	next := models.NewDispatchRecord(models.NextTrack(), models.OutcomeOK)
	next.Sequence = 1
	next.Attempt = 1
	next.DeviceID = "dev-1"
	next.TrackID = "track-1"
	next.SetCreatedAt(at)

	vol := models.NewDispatchRecord(models.VolumeSet(65), models.OutcomeRetryScheduled)
	vol.Sequence = 2
	vol.Attempt = 2
	vol.ErrorKind = "rate_limited"
	vol.ErrorMessage = "spotify: too many requests | slow down"
	vol.SetCreatedAt(at.Add(time.Minute))

	return []*models.DispatchRecord{next, vol}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleRecords())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Sequence,Time,Action,Volume,Outcome,Attempt,Error Kind,Error,Device,Track") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,2025-03-01T09:30:00Z,NEXT_TRACK,,ok,1,,,dev-1,track-1") {
			t.Errorf("CSV missing next track row, got: %s", output)
		}
		if !strings.Contains(output, "VOLUME_SET,65,retry_scheduled,2,rate_limited") {
			t.Errorf("CSV missing volume row, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("with records", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleRecords(), "History")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# History",
				"**Dispatches**: 2",
				"**ok**: 1",
				"**retry_scheduled**: 1",
				"| # | Time | Action | Outcome | Attempt | Error |",
				`rate_limited: spotify: too many requests \| slow down`,
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
			if strings.Contains(output, "**dropped**") {
				t.Error("Markdown should omit empty outcome totals")
			}
		})

		t.Run("empty history has no table", func(t *testing.T) {
			data, err := ExportToMarkdown(nil, "History")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if strings.Contains(string(data), "| # |") {
				t.Error("expected no table for empty history")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleRecords())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Dispatches: 2") {
			t.Errorf("Text missing count, got: %s", output)
		}
		if !strings.Contains(output, "NEXT_TRACK -> ok") {
			t.Errorf("Text missing next track line, got: %s", output)
		}
		if !strings.Contains(output, "(attempt 2) [rate_limited]") {
			t.Errorf("Text missing retry details, got: %s", output)
		}
	})

	t.Run("DevicesToText", func(t *testing.T) {
		t.Run("marks the active device", func(t *testing.T) {
			output := string(DevicesToText([]models.Device{
				{ID: "a", Name: "Laptop", Type: "Computer", VolumePercent: 50},
				{ID: "b", Name: "Kitchen", Type: "Speaker", IsActive: true, IsRestricted: true, VolumePercent: 20},
			}))

			if !strings.Contains(output, "Found 2 devices") {
				t.Errorf("missing count, got: %s", output)
			}
			if !strings.Contains(output, "* 2. Kitchen (Speaker)") {
				t.Errorf("active device not marked, got: %s", output)
			}
			if !strings.Contains(output, "Restricted") {
				t.Errorf("restricted device not flagged, got: %s", output)
			}
		})

		t.Run("no devices", func(t *testing.T) {
			if !strings.Contains(string(DevicesToText(nil)), "No devices found") {
				t.Error("expected empty message")
			}
		})
	})
}

func TestFormats(t *testing.T) {
	t.Run("ParseFormat", func(t *testing.T) {
		tests := []struct {
			in   string
			want Format
		}{
			{"csv", FormatCSV},
			{"MD", FormatMarkdown},
			{"markdown", FormatMarkdown},
			{"txt", FormatText},
			{"", FormatText},
		}
		for _, tt := range tests {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("ParseFormat(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		}

		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("WriteExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			th.MustChdir(t, t.TempDir())

			path, err := WriteExport(sampleRecords(), FormatCSV, "")
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if path != "history.csv" {
				t.Errorf("expected history.csv, got %s", path)
			}
			th.AssertFileExists(t, path)
			if !strings.Contains(th.MustReadFile(t, path), "NEXT_TRACK") {
				t.Error("export file missing records")
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.md")

			got, err := WriteExport(sampleRecords(), FormatMarkdown, path)
			if err != nil {
				t.Fatalf("WriteExport failed: %v", err)
			}
			if got != path {
				t.Errorf("expected %s, got %s", path, got)
			}
			if !strings.HasPrefix(th.MustReadFile(t, path), "# Gesture history") {
				t.Error("expected markdown title")
			}
		})

		t.Run("UnwritablePath", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing", "out.txt")
			if _, err := WriteExport(sampleRecords(), FormatText, path); err == nil {
				t.Error("expected error for missing directory")
			}
		})
	})
}
