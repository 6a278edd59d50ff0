// package formatter renders dispatch history and device lists as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
)

const timeLayout = time.RFC3339

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts a format name, with "md" and "txt" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, s)
	}
}

// Extension returns the file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Render dispatches to the exporter for f.
func Render(f Format, records []*models.DispatchRecord) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(records)
	case FormatMarkdown:
		return ExportToMarkdown(records, "Gesture history")
	case FormatText:
		return ExportToText(records)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, f)
	}
}

// ExportToCSV converts dispatch records to CSV with columns:
// Sequence, Time, Action, Volume, Outcome, Attempt, Error Kind, Error, Device, Track
func ExportToCSV(records []*models.DispatchRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Time", "Action", "Volume", "Outcome", "Attempt", "Error Kind", "Error", "Device", "Track"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		volume := ""
		if r.Action == models.ActionVolumeSet {
			volume = strconv.Itoa(r.Volume)
		}
		row := []string{
			strconv.Itoa(r.Sequence),
			r.CreatedAt().UTC().Format(timeLayout),
			r.Action.String(),
			volume,
			string(r.Outcome),
			strconv.Itoa(r.Attempt),
			r.ErrorKind,
			r.ErrorMessage,
			r.DeviceID,
			r.TrackID,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders dispatch records as a Markdown table preceded by outcome totals.
func ExportToMarkdown(records []*models.DispatchRecord, title string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Dispatches**: %d\n", len(records))

	totals := countOutcomes(records)
	for _, o := range outcomeOrder {
		if totals[o] > 0 {
			fmt.Fprintf(&buf, "**%s**: %d\n", o, totals[o])
		}
	}
	buf.WriteString("\n")

	if len(records) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Time | Action | Outcome | Attempt | Error |\n")
	buf.WriteString("|---|------|--------|---------|---------|-------|\n")
	for _, r := range records {
		errPart := ""
		if r.ErrorKind != "" {
			errPart = fmt.Sprintf("%s: %s", r.ErrorKind, escapeCell(r.ErrorMessage))
		}
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %d | %s |\n",
			r.Sequence, r.CreatedAt().UTC().Format(timeLayout), r.GestureAction(), r.Outcome, r.Attempt, errPart)
	}

	return buf.Bytes(), nil
}

// ExportToText renders one line per dispatch.
func ExportToText(records []*models.DispatchRecord) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Dispatches: %d\n\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&buf, "%d. %s %s -> %s", r.Sequence, r.CreatedAt().Local().Format(time.DateTime), r.GestureAction(), r.Outcome)
		if r.Attempt > 1 {
			fmt.Fprintf(&buf, " (attempt %d)", r.Attempt)
		}
		if r.ErrorKind != "" {
			fmt.Fprintf(&buf, " [%s]", r.ErrorKind)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// DevicesToText lists Spotify devices, marking the active one.
func DevicesToText(devices []models.Device) []byte {
	var buf bytes.Buffer

	if len(devices) == 0 {
		buf.WriteString("No devices found. Open Spotify on a phone, desktop or speaker.\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Found %d devices:\n\n", len(devices))
	for i, d := range devices {
		marker := " "
		if d.IsActive {
			marker = "*"
		}
		fmt.Fprintf(&buf, "%s %d. %s (%s)\n", marker, i+1, d.Name, d.Type)
		fmt.Fprintf(&buf, "     ID: %s\n", d.ID)
		fmt.Fprintf(&buf, "     Volume: %d%%\n", d.VolumePercent)
		if d.IsRestricted {
			buf.WriteString("     Restricted: commands will be rejected\n")
		}
	}

	return buf.Bytes()
}

// WriteExport renders records in format f and writes them to path.
//
// Defaults to history{ext} when path is empty; returns the path written.
func WriteExport(records []*models.DispatchRecord, f Format, path string) (string, error) {
	if path == "" {
		path = "history" + f.Extension()
	}

	data, err := Render(f, records)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

var outcomeOrder = []models.Outcome{
	models.OutcomeOK, models.OutcomeRetryScheduled, models.OutcomeSkipped, models.OutcomeDropped,
}

func countOutcomes(records []*models.DispatchRecord) map[models.Outcome]int {
	totals := make(map[models.Outcome]int, len(outcomeOrder))
	for _, r := range records {
		totals[r.Outcome]++
	}
	return totals
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
