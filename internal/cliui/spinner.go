package cliui

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// WithSpinner runs fn while showing an indeterminate spinner on w, if w is a
// terminal; otherwise fn just runs silently. Used by long-running ingest and
// embed CLI invocations per §10.5's incremental-progress requirement.
func WithSpinner(w io.Writer, label string, fn func() error) error {
	if !UseStyling(w) {
		return fn()
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan error, 1)
	go func() { done <- fn() }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			_ = bar.Finish()
			return err
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}
