package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"go-cycles/scheduler"
)

// Feed is a scheduler sink that hands dispatches and diagnostics to the
// model. It never blocks the scheduler: when the model falls behind,
// messages are dropped and counted.
type Feed struct {
	ch      chan tea.Msg
	dropped atomic.Int64
}

// DispatchMsg carries one dispatched event into the model.
type DispatchMsg scheduler.Dispatch

// DiagnosticMsg carries one diagnostic into the model.
type DiagnosticMsg scheduler.Diagnostic

// NewFeed returns a feed buffering up to size messages.
func NewFeed(size int) *Feed {
	return &Feed{ch: make(chan tea.Msg, size)}
}

func (f *Feed) Dispatch(d scheduler.Dispatch) { f.push(DispatchMsg(d)) }

func (f *Feed) Diagnose(d scheduler.Diagnostic) { f.push(DiagnosticMsg(d)) }

func (f *Feed) push(msg tea.Msg) {
	select {
	case f.ch <- msg:
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns how many messages the model never saw.
func (f *Feed) Dropped() int64 { return f.dropped.Load() }

// Listen returns a command that waits for the next message.
func (f *Feed) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-f.ch
	}
}
