// Package pipeline wires the detection stages into one run over an image
// pair, carries the configuration surface, and orchestrates batches of
// independent pairs.
package pipeline

import (
	"fmt"
	"os"
)

// Observer receives progress and diagnostic events from a run. The core never
// prints and holds no logging state; callers inject an Observer when they
// want visibility.
type Observer interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NullObserver discards every event.
type NullObserver struct{}

func (NullObserver) Debugf(string, ...any) {}
func (NullObserver) Infof(string, ...any)  {}
func (NullObserver) Errorf(string, ...any) {}

// StdoutObserver prints events to stdout/stderr. Debug events require
// Verbose.
type StdoutObserver struct {
	Verbose bool
}

func (o StdoutObserver) Debugf(format string, args ...any) {
	if o.Verbose {
		fmt.Printf("[debug] "+format+"\n", args...)
	}
}

func (o StdoutObserver) Infof(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

func (o StdoutObserver) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[error] "+format+"\n", args...)
}
