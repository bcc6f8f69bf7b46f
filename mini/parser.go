package mini

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	noteRe  = regexp.MustCompile(`^([A-G][#b]?)(-?[0-9]+)$`)
	chordRe = regexp.MustCompile(`^([A-G]#?)([a-z]+)([0-9#b]*)$`)
)

type parser struct {
	src  string
	toks []token
	i    int
}

// Parse normalises src and parses it into a syntax tree.
//
//	choice   = bar { "|" [ "*" number ] [ bar ] }
//	bar      = term { term }
//	term     = choose { "*" number }
//	choose   = primary { "?" primary }
//	primary  = "(" choice ")" | "[" choice { "," choice } "]"
//	         | number ":" number | number ".." number [ "?" ]
//	         | chord [ "%" number ] [ ".." ] [ "?" ]
//	         | word ".." [ "?" ] | note | number | word
func Parse(src string) (Node, error) {
	src = Normalize(src)
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, newParseError(src, 0, "empty pattern")
	}
	n, err := p.choice()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.unexpected(t)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(k int) token {
	if p.i+k >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+k]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) unexpected(t token) *ParseError {
	if t.kind == tokEOF {
		return newParseError(p.src, t.pos, "unexpected end of input")
	}
	return newParseError(p.src, t.pos, "unexpected %q", t.text)
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.peek()
	if t.kind != kind {
		if t.kind == tokEOF {
			return t, newParseError(p.src, t.pos, "expected %s, got end of input", kind)
		}
		return t, newParseError(p.src, t.pos, "expected %s, got %q", kind, t.text)
	}
	return p.next(), nil
}

func (p *parser) number() (float64, error) {
	t, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		return 0, newParseError(p.src, t.pos, "bad number %q", t.text)
	}
	return v, nil
}

func startsTerm(k tokenKind) bool {
	return k == tokNumber || k == tokWord || k == tokLParen || k == tokLBracket
}

func (p *parser) choice() (Node, error) {
	pos := p.peek().pos
	if !startsTerm(p.peek().kind) {
		return nil, p.unexpected(p.peek())
	}
	first, err := p.bar()
	if err != nil {
		return nil, err
	}
	bars := []Bar{{Node: first, Repeat: 1}}
	for p.peek().kind == tokPipe {
		p.next()
		if p.peek().kind == tokStar {
			p.next()
			n, err := p.number()
			if err != nil {
				return nil, err
			}
			bars[len(bars)-1].Repeat = n
		}
		if !startsTerm(p.peek().kind) {
			continue
		}
		n, err := p.bar()
		if err != nil {
			return nil, err
		}
		bars = append(bars, Bar{Node: n, Repeat: 1})
	}
	if len(bars) == 1 && bars[0].Repeat == 1 {
		return bars[0].Node, nil
	}
	return &Choice{base: base{pos}, Bars: bars}, nil
}

func (p *parser) bar() (Node, error) {
	pos := p.peek().pos
	var items []Node
	for startsTerm(p.peek().kind) {
		n, err := p.term()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &Seq{base: base{pos}, Items: items}, nil
}

func (p *parser) term() (Node, error) {
	n, err := p.choose()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokStar {
		star := p.next()
		c, err := p.number()
		if err != nil {
			return nil, err
		}
		n = &Fast{base: base{star.pos}, Item: n, Count: c}
	}
	return n, nil
}

func (p *parser) choose() (Node, error) {
	pos := p.peek().pos
	first, err := p.primary()
	if err != nil {
		return nil, err
	}
	items := []Node{first}
	for p.peek().kind == tokQuestion {
		p.next()
		n, err := p.primary()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	if len(items) == 1 {
		return first, nil
	}
	return &Choose{base: base{pos}, Items: items}, nil
}

// randomSuffix consumes a "?" glued to the previous atom when it is not the
// start of a choose, i.e. when no atom follows it directly.
func (p *parser) randomSuffix() bool {
	q := p.peek()
	if q.kind != tokQuestion || q.spaced {
		return false
	}
	after := p.peekAt(1)
	if startsTerm(after.kind) && !after.spaced {
		return false
	}
	p.next()
	return true
}

func (p *parser) primary() (Node, error) {
	t := p.peek()
	switch t.kind {
	case tokLParen:
		p.next()
		n, err := p.choice()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return n, nil

	case tokLBracket:
		p.next()
		var items []Node
		for {
			n, err := p.choice()
			if err != nil {
				return nil, err
			}
			items = append(items, n)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRBracket); err != nil {
			return nil, err
		}
		return &Stack{base: base{t.pos}, Items: items}, nil

	case tokNumber:
		v, err := p.number()
		if err != nil {
			return nil, err
		}
		switch p.peek().kind {
		case tokColon:
			p.next()
			n, err := p.number()
			if err != nil {
				return nil, err
			}
			return &Euclid{base: base{t.pos}, K: v, N: n}, nil
		case tokDotDot:
			p.next()
			hi, err := p.number()
			if err != nil {
				return nil, err
			}
			return &Range{base: base{t.pos}, Lo: v, Hi: hi, Random: p.randomSuffix()}, nil
		}
		return &Number{base: base{t.pos}, Value: v}, nil

	case tokWord:
		p.next()
		return p.word(t)
	}
	return nil, p.unexpected(t)
}

func (p *parser) word(t token) (Node, error) {
	if m := noteRe.FindStringSubmatch(t.text); m != nil {
		oct, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, newParseError(p.src, t.pos, "bad octave in %q", t.text)
		}
		return &MidiNote{base: base{t.pos}, Name: m[1], Octave: oct}, nil
	}

	if m := chordRe.FindStringSubmatch(t.text); m != nil {
		lit := &StackLiteral{base: base{t.pos}, Root: m[1], Type: m[2], Extension: m[3]}
		if p.peek().kind == tokPercent {
			p.next()
			n, err := p.number()
			if err != nil {
				return nil, err
			}
			lit.Length, lit.HasLength = n, true
		}
		if p.peek().kind == tokDotDot {
			p.next()
			lit.Spread = true
		}
		lit.Random = p.randomSuffix()
		return lit, nil
	}

	if strings.Contains(t.text, "#") {
		return nil, newParseError(p.src, t.pos, "malformed note or chord %q", t.text)
	}
	if p.peek().kind == tokDotDot {
		p.next()
		return &Spread{base: base{t.pos}, Name: t.text, Random: p.randomSuffix()}, nil
	}
	return &StringToken{base: base{t.pos}, Value: t.text}, nil
}
