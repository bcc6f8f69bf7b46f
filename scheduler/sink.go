package scheduler

import (
	"fmt"
	"time"

	"go-cycles/stream"
)

// Dispatch is one event delivered to a sink at its clock time.
type Dispatch struct {
	Event    stream.Event
	At       time.Time // intended clock time of the onset
	Cycle    float64
	Late     bool
	Lateness time.Duration // how far past At delivery happened
}

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind int

const (
	LateDispatch DiagnosticKind = iota
	QueryFailed
)

func (k DiagnosticKind) String() string {
	switch k {
	case LateDispatch:
		return "late"
	case QueryFailed:
		return "query-failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Diagnostic reports a problem during playback. Playback continues.
type Diagnostic struct {
	Kind     DiagnosticKind
	Stream   string
	Cycle    float64
	Lateness time.Duration
	Err      error
}

func (d Diagnostic) String() string {
	switch d.Kind {
	case LateDispatch:
		return fmt.Sprintf("%s: %s cycle %.4f late by %s", d.Kind, d.Stream, d.Cycle, d.Lateness)
	case QueryFailed:
		return fmt.Sprintf("%s: %s cycle %.4f: %v", d.Kind, d.Stream, d.Cycle, d.Err)
	}
	return d.Kind.String()
}

// Sink receives dispatched events and diagnostics. Calls are serialised.
// A sink must not call Stop.
type Sink interface {
	Dispatch(d Dispatch)
	Diagnose(d Diagnostic)
}

// SinkFuncs adapts plain functions to Sink. Nil functions are skipped.
type SinkFuncs struct {
	OnDispatch func(Dispatch)
	OnDiagnose func(Diagnostic)
}

func (s SinkFuncs) Dispatch(d Dispatch) {
	if s.OnDispatch != nil {
		s.OnDispatch(d)
	}
}

func (s SinkFuncs) Diagnose(d Diagnostic) {
	if s.OnDiagnose != nil {
		s.OnDiagnose(d)
	}
}

// Sinks fans every call out to each sink in order.
type Sinks []Sink

func (ss Sinks) Dispatch(d Dispatch) {
	for _, s := range ss {
		s.Dispatch(d)
	}
}

func (ss Sinks) Diagnose(d Diagnostic) {
	for _, s := range ss {
		s.Diagnose(d)
	}
}
