// Package mini compiles mini-notation strings into patterns.
//
// A source string is normalised, parsed into a syntax tree of Nodes, and the
// tree is compiled bottom-up into pattern combinators. Parsing and compiling
// are separate so the tree can be inspected with Dump.
package mini

import (
	"math"
	"strings"
	"sync"

	"go-cycles/debug"
	"go-cycles/pattern"
)

// MaxSteps caps the number of copies or notes a single modifier may expand to.
const MaxSteps = 4096

// Compiler turns mini-notation into patterns. It carries the note-list
// bindings used by `name..` spreads and the entropy source for random choice.
// A Compiler is safe for concurrent use.
type Compiler struct {
	mu       sync.RWMutex
	bindings map[string][]float64
	rand     pattern.RandSource
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithBindings preloads named note lists.
func WithBindings(b map[string][]float64) Option {
	return func(c *Compiler) {
		for name, notes := range b {
			c.bindings[name] = append([]float64(nil), notes...)
		}
	}
}

// WithRand sets the source used by `?` choices.
func WithRand(src pattern.RandSource) Option {
	return func(c *Compiler) { c.rand = src }
}

// NewCompiler returns a compiler with no bindings and the default entropy source.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{bindings: map[string][]float64{}, rand: pattern.DefaultRand}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind names a note list for later `name..` spreads. Rebinding replaces the list
// for subsequent compiles only.
func (c *Compiler) Bind(name string, notes []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings[name] = append([]float64(nil), notes...)
}

// Bindings returns a copy of the current bindings.
func (c *Compiler) Bindings() map[string][]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]float64, len(c.bindings))
	for k, v := range c.bindings {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

// Compile parses and compiles src.
func (c *Compiler) Compile(src string) (pattern.Pattern, error) {
	n, err := Parse(src)
	if err != nil {
		debug.Log("compile", "parse %q: %v", src, err)
		return pattern.Pattern{}, err
	}
	p, err := c.CompileNode(n, Normalize(src))
	if err != nil {
		debug.Log("compile", "compile %q: %v", src, err)
		return pattern.Pattern{}, err
	}
	return p, nil
}

// CompileNode compiles an already parsed tree. src is the normalised source the
// tree came from and is only used to position errors.
func (c *Compiler) CompileNode(n Node, src string) (pattern.Pattern, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.compile(n, src)
}

// Compile compiles src with a fresh default Compiler.
func Compile(src string) (pattern.Pattern, error) {
	return NewCompiler().Compile(src)
}

func (c *Compiler) compile(n Node, src string) (pattern.Pattern, error) {
	switch n := n.(type) {
	case *Number:
		return pattern.Pure(n.Value), nil

	case *StringToken:
		return pattern.Pure(n.Value), nil

	case *Seq:
		items, err := c.compileAll(n.Items, src)
		if err != nil {
			return pattern.Pattern{}, err
		}
		return pattern.Seq(items...), nil

	case *Stack:
		items, err := c.compileAll(n.Items, src)
		if err != nil {
			return pattern.Pattern{}, err
		}
		return pattern.Stack(items...), nil

	case *Choose:
		items, err := c.compileAll(n.Items, src)
		if err != nil {
			return pattern.Pattern{}, err
		}
		return pattern.ChooseWith(c.rand, items...), nil

	case *Choice:
		var items []any
		for _, bar := range n.Bars {
			reps, err := count(bar.Repeat, src, n.Pos, "|*")
			if err != nil {
				return pattern.Pattern{}, err
			}
			p, err := c.compile(bar.Node, src)
			if err != nil {
				return pattern.Pattern{}, err
			}
			for range reps {
				items = append(items, p)
			}
		}
		return pattern.Cat(items...), nil

	case *Fast:
		reps, err := count(n.Count, src, n.Pos, "*")
		if err != nil {
			return pattern.Pattern{}, err
		}
		p, err := c.compile(n.Item, src)
		if err != nil {
			return pattern.Pattern{}, err
		}
		items := make([]any, reps)
		for i := range items {
			items[i] = p
		}
		return pattern.Seq(items...), nil

	case *Euclid:
		return euclid(n, src)

	case *Range:
		return c.rangeOf(n, src)

	case *Spread:
		notes, ok := c.bindings[n.Name]
		if !ok {
			return pattern.Pattern{}, newCompileError(src, n.Pos, n.Name, "unknown binding")
		}
		return c.spread(floats(notes), false, n.Random), nil

	case *StackLiteral:
		return c.chord(n, src)

	case *MidiNote:
		pc, ok := pitchClasses[n.Name]
		if !ok {
			return pattern.Pattern{}, newCompileError(src, n.Pos, n.Name, "unknown root note")
		}
		return pattern.Pure(float64(12 + n.Octave*12 + pc)), nil
	}
	return pattern.Pattern{}, newCompileError(src, n.Offset(), "", "unsupported node %T", n)
}

func (c *Compiler) compileAll(nodes []Node, src string) ([]any, error) {
	out := make([]any, len(nodes))
	for i, child := range nodes {
		p, err := c.compile(child, src)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// spread picks how a list of notes plays: one at random per cycle, in
// sequence, or all at once.
func (c *Compiler) spread(values []any, stack, random bool) pattern.Pattern {
	switch {
	case random:
		return pattern.ChooseWith(c.rand, values...)
	case stack:
		return pattern.Stack(values...)
	}
	return pattern.Seq(values...)
}

// chordToken returns the chord's text in src for error messages. src may not
// match the tree, so both ends are clamped.
func chordToken(n *StackLiteral, src string) string {
	start := min(n.Pos, len(src))
	end := min(len(src), start+len(n.Root)+len(n.Type)+len(n.Extension))
	return src[start:end]
}

func (c *Compiler) chord(n *StackLiteral, src string) (pattern.Pattern, error) {
	root, kind := n.Root, n.Type
	iv, ok := intervals(kind)
	if !ok && len(root) == 1 && strings.HasPrefix(kind, "b") {
		// "Bbmi" lexes as root B with type "bmi"
		if flat, found := intervals(kind[1:]); found {
			if _, known := rootNotes[root+"b"]; known {
				root, kind, iv, ok = root+"b", kind[1:], flat, true
			}
		}
	}
	if !ok {
		return pattern.Pattern{}, newCompileError(src, n.Pos, chordToken(n, src), "unknown chord or scale type %q", kind)
	}
	base, ok := rootNotes[root]
	if !ok {
		return pattern.Pattern{}, newCompileError(src, n.Pos, chordToken(n, src), "unknown root note %q", root)
	}
	exts, ok := splitExtensions(n.Extension)
	if !ok {
		return pattern.Pattern{}, newCompileError(src, n.Pos, chordToken(n, src), "unknown extension %q", n.Extension)
	}

	notes := make([]float64, 0, len(iv)+len(exts))
	for _, i := range iv {
		notes = append(notes, base+i)
	}
	for _, e := range exts {
		for _, i := range extensions[e] {
			notes = append(notes, base+i)
		}
	}

	if n.HasLength {
		l, err := count(n.Length, src, n.Pos, "%")
		if err != nil {
			return pattern.Pattern{}, err
		}
		cycled := make([]float64, l)
		for i := range cycled {
			cycled[i] = notes[i%len(notes)]
		}
		notes = cycled
	}
	return c.spread(floats(notes), !n.Spread, n.Random), nil
}

func (c *Compiler) rangeOf(n *Range, src string) (pattern.Pattern, error) {
	if n.Lo != math.Trunc(n.Lo) || n.Hi != math.Trunc(n.Hi) {
		return pattern.Pattern{}, newCompileError(src, n.Pos, "", "range bounds must be integers")
	}
	step := 1.0
	if n.Hi < n.Lo {
		step = -1
	}
	size := math.Abs(n.Hi-n.Lo) + 1
	if size > MaxSteps {
		return pattern.Pattern{}, newCompileError(src, n.Pos, "", "range of %v steps exceeds %d", size, MaxSteps)
	}
	values := make([]any, 0, int(size))
	for v := n.Lo; len(values) < int(size); v += step {
		values = append(values, v)
	}
	return c.spread(values, false, n.Random), nil
}

func euclid(n *Euclid, src string) (pattern.Pattern, error) {
	if n.K != math.Trunc(n.K) || n.N != math.Trunc(n.N) || n.K < 0 {
		return pattern.Pattern{}, newCompileError(src, n.Pos, "", "euclid arguments must be non-negative integers")
	}
	if n.N < 1 || n.N > MaxSteps {
		return pattern.Pattern{}, newCompileError(src, n.Pos, "", "euclid steps must be between 1 and %d", MaxSteps)
	}
	if n.K > n.N {
		return pattern.Pattern{}, newCompileError(src, n.Pos, "", "euclid onsets %v exceed steps %v", n.K, n.N)
	}
	steps := Bjorklund(int(n.K), int(n.N))
	values := make([]any, len(steps))
	for i, on := range steps {
		if on {
			values[i] = 1.0
		} else {
			values[i] = 0.0
		}
	}
	return pattern.Seq(values...), nil
}

// count validates a repeat modifier: a whole number between 1 and MaxSteps.
func count(v float64, src string, pos int, op string) (int, error) {
	if v < 1 || v > MaxSteps || v != math.Trunc(v) {
		return 0, newCompileError(src, pos, "", "invalid numeric modifier %s%v", op, v)
	}
	return int(v), nil
}

func floats(fs []float64) []any {
	out := make([]any, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}
