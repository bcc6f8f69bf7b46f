package mini

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is a mini-notation syntax tree node. Nodes are produced once by Parse
// and never modified; each node owns its children.
type Node interface {
	// Offset is the byte offset of the node in the normalised source.
	Offset() int
	node()
}

type base struct{ Pos int }

func (b base) Offset() int { return b.Pos }
func (base) node()         {}

// Seq is a space-separated sequence squeezed into one cycle.
type Seq struct {
	base
	Items []Node
}

// Bar is one `|`-separated alternative with its `|*n` repeat count.
type Bar struct {
	Node   Node
	Repeat float64
}

// Choice rotates through its bars, one per cycle.
type Choice struct {
	base
	Bars []Bar
}

// Choose picks one of its items per cycle (`a?b`).
type Choose struct {
	base
	Items []Node
}

// Stack plays its items simultaneously (`[a, b]`).
type Stack struct {
	base
	Items []Node
}

// Fast repeats a term Count times within its slot (`t*n`).
type Fast struct {
	base
	Item  Node
	Count float64
}

// Euclid is a Bjorklund rhythm of K onsets over N steps (`k:n`).
type Euclid struct {
	base
	K, N float64
}

// Range is an inclusive run of integers (`60..72`).
type Range struct {
	base
	Lo, Hi float64
	Random bool
}

// Spread flattens a bound note list into a sequence (`name..`).
type Spread struct {
	base
	Name   string
	Random bool
}

// StackLiteral is a chord or scale such as `Cmi7%8..?`.
type StackLiteral struct {
	base
	Root      string
	Type      string
	Extension string
	Length    float64
	HasLength bool
	Spread    bool
	Random    bool
}

// MidiNote is a note name with an octave (`C4`).
type MidiNote struct {
	base
	Name   string
	Octave int
}

// Number is a numeric literal.
type Number struct {
	base
	Value float64
}

// StringToken is any other word, such as a sample name.
type StringToken struct {
	base
	Value string
}

// Dump renders a node as an S-expression.
func Dump(n Node) string {
	var b strings.Builder
	dump(&b, n)
	return b.String()
}

func dump(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Seq:
		list(b, "seq", n.Items)
	case *Choice:
		b.WriteString("(cat")
		for _, bar := range n.Bars {
			b.WriteByte(' ')
			if bar.Repeat != 1 {
				fmt.Fprintf(b, "(rep %s ", num(bar.Repeat))
				dump(b, bar.Node)
				b.WriteByte(')')
				continue
			}
			dump(b, bar.Node)
		}
		b.WriteByte(')')
	case *Choose:
		list(b, "choose", n.Items)
	case *Stack:
		list(b, "stack", n.Items)
	case *Fast:
		fmt.Fprintf(b, "(fast %s ", num(n.Count))
		dump(b, n.Item)
		b.WriteByte(')')
	case *Euclid:
		fmt.Fprintf(b, "(euclid %s %s)", num(n.K), num(n.N))
	case *Range:
		fmt.Fprintf(b, "(range %s %s%s)", num(n.Lo), num(n.Hi), flag(n.Random, " random"))
	case *Spread:
		fmt.Fprintf(b, "(spread %s%s)", n.Name, flag(n.Random, " random"))
	case *StackLiteral:
		fmt.Fprintf(b, "(chord %s %s", n.Root, n.Type)
		if n.Extension != "" {
			fmt.Fprintf(b, " ext=%s", n.Extension)
		}
		if n.HasLength {
			fmt.Fprintf(b, " len=%s", num(n.Length))
		}
		b.WriteString(flag(n.Spread, " spread"))
		b.WriteString(flag(n.Random, " random"))
		b.WriteByte(')')
	case *MidiNote:
		fmt.Fprintf(b, "(note %s %d)", n.Name, n.Octave)
	case *Number:
		b.WriteString(num(n.Value))
	case *StringToken:
		b.WriteString(strconv.Quote(n.Value))
	default:
		fmt.Fprintf(b, "<%T>", n)
	}
}

func list(b *strings.Builder, head string, items []Node) {
	b.WriteByte('(')
	b.WriteString(head)
	for _, it := range items {
		b.WriteByte(' ')
		dump(b, it)
	}
	b.WriteByte(')')
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func flag(on bool, s string) string {
	if on {
		return s
	}
	return ""
}
