// Package ui renders terminal progress for bulk indexing.
package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar reports indexing progress on a terminal. It satisfies
// arbor.Progress; every Start begins a new bar.
type ProgressBar struct {
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
	output io.Writer
}

// NewProgressBar creates a ProgressBar writing to output, usually stderr.
func NewProgressBar(output io.Writer) *ProgressBar {
	return &ProgressBar{output: output}
}

// Start begins a bar for total items.
func (pb *ProgressBar) Start(total int, description string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(pb.output),
		progressbar.OptionSetDescription(fmt.Sprintf("[%s]", description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(true),
	)
}

// Add advances the current bar by n. It is a no-op before Start.
func (pb *ProgressBar) Add(n int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.bar != nil {
		_ = pb.bar.Add(n)
	}
}

// Finish completes and clears the current bar.
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.bar != nil {
		_ = pb.bar.Finish()
		pb.bar = nil
	}
}

// Current returns the current bar's count, or 0 without one.
func (pb *ProgressBar) Current() int64 {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.bar == nil {
		return 0
	}
	return pb.bar.State().CurrentNum
}
