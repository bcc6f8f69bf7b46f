// Command miditest checks MIDI wiring without a session file.
package main

import (
	"fmt"
	"os"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-cycles/midi"
	"go-cycles/pattern"
	"go-cycles/scheduler"
	"go-cycles/stream"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "scale":
		if len(os.Args) < 3 {
			usage()
			return
		}
		err = playScale(os.Args[2])
	case "watch":
		if len(os.Args) < 3 {
			usage()
			return
		}
		err = watch(os.Args[2])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List all MIDI ports")
	fmt.Println("  scale <port>  - Play one cycle of a C major scale")
	fmt.Println("  watch <port>  - Print the notes held on a keyboard")
}

func listPorts() error {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Printf("(waiting up to %s...)\n", midi.DefaultPortTimeout)
	ins, err := midi.InPorts(midi.DefaultPortTimeout)
	if err != nil {
		fmt.Println("\nTIMEOUT! The MIDI server is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	for i, p := range ins {
		fmt.Printf("  %d: %s\n", i, p)
	}

	fmt.Println("\n=== MIDI Output Ports ===")
	outs, err := midi.Ports(midi.DefaultPortTimeout)
	if err != nil {
		return err
	}
	for i, p := range outs {
		fmt.Printf("  %d: %s\n", i, p)
	}
	return nil
}

func playScale(port string) error {
	out, err := midi.OpenOutput(port)
	if err != nil {
		return err
	}
	defer out.Close()

	st := stream.New("s0")
	if err := st.Set(map[string]any{"e": "1*7", "n": "Cmaj..", "vel": 100}); err != nil {
		return err
	}

	const cps = 0.5
	sched := scheduler.New(scheduler.WallClock{}, out, scheduler.WithTempo(cps))
	sched.Add(st)
	fmt.Printf("Playing on %s...\n", port)
	if err := sched.Play(); err != nil {
		return err
	}
	time.Sleep(time.Duration(float64(time.Second)/cps) + scheduler.DefaultLatency)
	sched.Stop()

	sent, failed := out.Sent()
	fmt.Printf("Sent %d messages, %d failed\n", sent, failed)
	return nil
}

func watch(port string) error {
	c, err := midi.OpenCapture(port)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Println("Play some notes, Ctrl+C to quit")
	var last string
	for range time.Tick(50 * time.Millisecond) {
		held := fmt.Sprint(format(c.Held()), " | chord ", format(c.Chord()))
		if held != last {
			fmt.Println(held)
			last = held
		}
	}
	return nil
}

func format(notes []float64) string {
	s := ""
	for i, n := range notes {
		if i > 0 {
			s += " "
		}
		s += pattern.FormatValue(n)
	}
	return s
}
