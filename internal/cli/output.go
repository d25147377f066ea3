package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vytor/realorai/internal/models"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output writes v as JSON, or calls text for the human-readable form.
func output(w io.Writer, opts *RootOptions, v any, text func(io.Writer)) error {
	if opts.Format == "json" {
		return writeJSON(w, v)
	}
	text(w)
	return nil
}

func printDay(w io.Writer, day *models.PuzzleDay) {
	fmt.Fprintf(w, "%s  %s  %d/%d pairs\n", day.DayKey, day.Status, len(day.Pairs), models.MaxPairs)
	for i, p := range day.Pairs {
		fmt.Fprintf(w, "  %d. %s\n     human: %s\n     ai:    %s\n", i+1, p.ID, p.HumanImageURL, p.AIImageURL)
	}
}

func printReport(w io.Writer, r *models.BatchReport) {
	fmt.Fprintf(w, "batch %s: scheduled=%d skipped=%d failed=%d\n", r.BatchID, r.Scheduled, r.Skipped, r.Failed)
	for _, res := range r.Results {
		switch res.Status {
		case models.ItemScheduled:
			fmt.Fprintf(w, "  ✓ %s -> %s\n", res.HumanImageURL, res.Date)
		default:
			fmt.Fprintf(w, "  ✗ %s: %s (%s)\n", res.HumanImageURL, res.Error, res.ErrorCode)
		}
	}
}
