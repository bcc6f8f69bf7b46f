package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestCapture_Chord(t *testing.T) {
	c := NewCapture()
	c.Handle(gomidi.NoteOn(0, 64, 90))
	c.Handle(gomidi.NoteOn(0, 60, 90))
	c.Handle(gomidi.NoteOn(0, 67, 90))
	assert.Equal(t, []float64{60, 64, 67}, c.Held())

	c.Handle(gomidi.NoteOff(0, 64))
	c.Handle(gomidi.NoteOn(0, 60, 0))
	assert.Equal(t, []float64{67}, c.Held())
	assert.Equal(t, []float64{60, 64, 67}, c.Chord())

	c.Handle(gomidi.NoteOff(0, 67))
	assert.Empty(t, c.Held())
	assert.Equal(t, []float64{60, 64, 67}, c.Chord(), "chord survives release")

	c.Handle(gomidi.NoteOn(0, 62, 90))
	assert.Equal(t, []float64{62}, c.Chord(), "a new press after release starts over")

	c.Handle(gomidi.ControlChange(0, 1, 64))
	assert.Equal(t, []float64{62}, c.Held())
	assert.NoError(t, c.Close())
}

type fakePort string

func (p fakePort) String() string { return string(p) }

func TestMatch(t *testing.T) {
	ports := []fakePort{"IAC Driver Bus 1", "Launchpad X LPX MIDI", "bus 1"}

	p, ok := match(ports, "Bus 1")
	assert.True(t, ok)
	assert.Equal(t, fakePort("bus 1"), p, "exact match wins")

	p, ok = match(ports, "launchpad")
	assert.True(t, ok)
	assert.Equal(t, fakePort("Launchpad X LPX MIDI"), p)

	_, ok = match(ports, "fluid")
	assert.False(t, ok)
	_, ok = match(ports, "  ")
	assert.False(t, ok)

	assert.Equal(t, []string{"IAC Driver Bus 1", "Launchpad X LPX MIDI", "bus 1"}, names(ports))
}

func TestPortError(t *testing.T) {
	err := &PortError{Name: "fluid", Available: []string{"a", "b"}}
	assert.Equal(t, `midi: no port matching "fluid" (have a, b)`, err.Error())
	assert.Contains(t, (&PortError{Name: "x"}).Error(), "no ports available")
}
