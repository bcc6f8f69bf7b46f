// Package midi sends dispatched events to MIDI ports and captures held notes
// from MIDI keyboards.
package midi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DefaultPortTimeout bounds port enumeration. Some drivers hang when the
// MIDI server is wedged.
const DefaultPortTimeout = 3 * time.Second

// ErrPortTimeout is returned when the driver does not answer in time.
var ErrPortTimeout = errors.New("midi: port scan timed out")

// PortError reports a port name that matched nothing.
type PortError struct {
	Name      string
	Available []string
}

func (e *PortError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("midi: no port matching %q (no ports available)", e.Name)
	}
	return fmt.Sprintf("midi: no port matching %q (have %s)", e.Name, strings.Join(e.Available, ", "))
}

type scanResult struct {
	ins  []drivers.In
	outs []drivers.Out
}

// scan lists ports on a separate goroutine and gives up after timeout.
func scan(timeout time.Duration) (scanResult, error) {
	ch := make(chan scanResult, 1)
	go func() {
		ch <- scanResult{ins: gomidi.GetInPorts(), outs: gomidi.GetOutPorts()}
	}()
	select {
	case r := <-ch:
		return r, nil
	case <-time.After(timeout):
		return scanResult{}, ErrPortTimeout
	}
}

// Ports returns the names of the output ports.
func Ports(timeout time.Duration) ([]string, error) {
	r, err := scan(timeout)
	if err != nil {
		return nil, err
	}
	return names(r.outs), nil
}

// InPorts returns the names of the input ports.
func InPorts(timeout time.Duration) ([]string, error) {
	r, err := scan(timeout)
	if err != nil {
		return nil, err
	}
	return names(r.ins), nil
}

func names[P fmt.Stringer](ports []P) []string {
	out := make([]string, len(ports))
	for i, p := range ports {
		out[i] = p.String()
	}
	return out
}

// match picks the port whose name equals want, ignoring case, or failing
// that the first one containing it.
func match[P fmt.Stringer](ports []P, want string) (P, bool) {
	var zero P
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return zero, false
	}
	for _, p := range ports {
		if strings.ToLower(p.String()) == want {
			return p, true
		}
	}
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), want) {
			return p, true
		}
	}
	return zero, false
}

func findOut(name string, timeout time.Duration) (drivers.Out, error) {
	r, err := scan(timeout)
	if err != nil {
		return nil, err
	}
	p, ok := match(r.outs, name)
	if !ok {
		return nil, &PortError{Name: name, Available: names(r.outs)}
	}
	return p, nil
}

func findIn(name string, timeout time.Duration) (drivers.In, error) {
	r, err := scan(timeout)
	if err != nil {
		return nil, err
	}
	p, ok := match(r.ins, name)
	if !ok {
		return nil, &PortError{Name: name, Available: names(r.ins)}
	}
	return p, nil
}
