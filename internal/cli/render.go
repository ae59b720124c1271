package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/audiojournal/internal/apperr"
	"github.com/roach88/audiojournal/internal/repository"
)

const (
	listTimeFormat = "2006-01-02 15:04"
	showTimeFormat = "2006-01-02 15:04:05 MST"
)

func writeEntries(w io.Writer, entries []repository.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No entries.")
		return err
	}
	for _, e := range entries {
		line := fmt.Sprintf("%4d  %s  %s", e.ID, e.CreatedAt.Format(listTimeFormat), entryTitle(e))
		if e.Duration != nil {
			line += "  [" + formatSeconds(*e.Duration) + "]"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(w io.Writer, e *repository.Entry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:        %d\n", e.ID)
	fmt.Fprintf(&b, "Title:     %s\n", entryTitle(*e))
	fmt.Fprintf(&b, "Audio:     %s\n", e.AudioPath)
	if e.Duration != nil {
		fmt.Fprintf(&b, "Duration:  %s\n", formatSeconds(*e.Duration))
	}
	fmt.Fprintf(&b, "Created:   %s\n", e.CreatedAt.Format(showTimeFormat))
	fmt.Fprintf(&b, "Modified:  %s\n", e.ModifiedAt.Format(showTimeFormat))
	if e.Tags != nil {
		names := make([]string, 0, len(e.Tags))
		for _, t := range e.Tags {
			names = append(names, t.Name)
		}
		if len(names) == 0 {
			names = append(names, "-")
		}
		fmt.Fprintf(&b, "Tags:      %s\n", strings.Join(names, ", "))
	}
	if e.Transcript != nil {
		b.WriteString("Transcript:\n")
		for _, line := range strings.Split(*e.Transcript, "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTags(w io.Writer, tags []repository.Tag) error {
	if len(tags) == 0 {
		_, err := fmt.Fprintln(w, "No tags.")
		return err
	}
	for _, t := range tags {
		if _, err := fmt.Fprintf(w, "%4d  %s\n", t.ID, t.Name); err != nil {
			return err
		}
	}
	return nil
}

func entryTitle(e repository.Entry) string {
	if e.Title == nil || *e.Title == "" {
		return "(untitled)"
	}
	return *e.Title
}

// formatSeconds renders seconds as a Go duration rounded to a tenth.
func formatSeconds(secs float64) string {
	return time.Duration(secs * float64(time.Second)).Round(100 * time.Millisecond).String()
}

func parseID(op, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(op, "invalid id %q", arg)
	}
	return id, nil
}
