package theme

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

//go:embed palettes/*.gpl
var builtin embed.FS

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// ParseGPL reads a GIMP palette. Lines that are not colour entries are skipped.
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "Name:") {
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		}

		// Skip headers and comments
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns") {
			continue
		}

		// first 3 fields are R G B
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			r, err1 := strconv.Atoi(fields[0])
			g, err2 := strconv.Atoi(fields[1])
			b, err3 := strconv.Atoi(fields[2])
			if err1 == nil && err2 == nil && err3 == nil {
				p.Colors = append(p.Colors, RGB{channel(r), channel(g), channel(b)})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found in palette %q", p.Name)
	}

	return p, nil
}

func channel(v int) uint8 {
	return uint8(max(0, min(255, v)))
}

// LoadGPL reads a GIMP palette file.
func LoadGPL(file string) (*Palette, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(file), ".gpl")
	}
	return p, nil
}

// Builtin returns the names of the embedded palettes.
func Builtin() []string {
	entries, _ := builtin.ReadDir("palettes")
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".gpl"))
	}
	slices.Sort(names)
	return names
}

// Named returns an embedded palette by name, or loads name as a file path
// when it ends in .gpl.
func Named(name string) (*Palette, error) {
	if strings.HasSuffix(name, ".gpl") {
		return LoadGPL(name)
	}
	f, err := builtin.Open("palettes/" + name + ".gpl")
	if err != nil {
		return nil, fmt.Errorf("unknown palette %q (have %s)", name, strings.Join(Builtin(), ", "))
	}
	defer f.Close()
	return ParseGPL(f)
}

// Default returns the embedded default palette.
func Default() *Palette {
	p, err := Named("default")
	if err != nil {
		panic(fmt.Sprintf("embedded palette: %v", err))
	}
	return p
}

// Lookup returns interpolated color for normalized value 0-1
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 || len(p.Colors) == 1 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	// Find the two colors to interpolate between
	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)

	c0 := p.Colors[i]
	c1 := p.Colors[i+1]

	return RGB{
		lerp(c0[0], c1[0], frac),
		lerp(c0[1], c1[1], frac),
		lerp(c0[2], c1[2], frac),
	}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

// Index returns color at specific index (no interpolation)
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}
