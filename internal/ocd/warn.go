package ocd

import "fmt"

// WarningSink receives non-fatal problems found while importing or
// exporting: skipped items, lossy approximations, truncations.
type WarningSink interface {
	Warnf(format string, args ...interface{})
}

// WarningList is a WarningSink that accumulates formatted messages.
type WarningList struct {
	Warnings []string
}

func (w *WarningList) Warnf(format string, args ...interface{}) {
	w.Warnings = append(w.Warnings, fmt.Sprintf(format, args...))
}

type discardWarnings struct{}

func (discardWarnings) Warnf(string, ...interface{}) {}

func sinkOrDiscard(sink WarningSink) WarningSink {
	if sink == nil {
		return discardWarnings{}
	}
	return sink
}
