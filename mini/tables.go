package mini

// rootNotes maps chord and scale roots to MIDI numbers in the octave above middle C.
var rootNotes = map[string]float64{
	"C": 60, "C#": 61, "Db": 61, "D": 62, "D#": 63, "Eb": 63,
	"E": 64, "F": 65, "F#": 66, "Gb": 66, "G": 67, "G#": 68, "Ab": 68,
	"A": 69, "A#": 70, "Bb": 70, "B": 71,
}

// pitchClasses maps note names to semitones above C.
var pitchClasses = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3,
	"E": 4, "F": 5, "F#": 6, "Gb": 6, "G": 7, "G#": 8, "Ab": 8,
	"A": 9, "A#": 10, "Bb": 10, "B": 11,
}

// triads are the chord qualities: major, minor, diminished, augmented, suspended.
var triads = map[string][]float64{
	"ma": {0, 4, 7},
	"mi": {0, 3, 7},
	"di": {0, 3, 6},
	"au": {0, 4, 8},
	"su": {0, 5, 7},
}

// scales are keyed by lowercase names because chord types are read as [a-z]+.
var scales = map[string][]float64{
	"ion": {0, 2, 4, 5, 7, 9, 11},
	"dor": {0, 2, 3, 5, 7, 9, 10},
	"phr": {0, 1, 3, 5, 7, 8, 10},
	"lyd": {0, 2, 4, 6, 7, 9, 11},
	"mix": {0, 2, 4, 5, 7, 9, 10},
	"aeo": {0, 2, 3, 5, 7, 8, 10},
	"loc": {0, 1, 3, 5, 6, 8, 10},
	"maj": {0, 2, 4, 5, 7, 9, 11},
	"min": {0, 2, 3, 5, 7, 8, 10},
	"hmi": {0, 2, 3, 5, 7, 8, 11},
	"hma": {0, 2, 4, 5, 7, 8, 11},
	"mmi": {0, 2, 3, 5, 7, 9, 11},
	"pma": {0, 2, 4, 7, 9},
	"pmi": {0, 3, 5, 7, 10},
	"blu": {0, 3, 5, 6, 7, 10},
	"who": {0, 2, 4, 6, 8, 10},
	"chr": {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	"pro": {0, 2, 4, 6, 11},
	"dim": {0, 2, 3, 5, 6, 8, 9, 11},
}

// extensions are appended to a chord's intervals. They are pitch-class offsets
// within the root octave.
var extensions = map[string][]float64{
	"6":   {9},
	"7":   {10},
	"#7":  {11},
	"b9":  {1},
	"9":   {2},
	"11":  {5},
	"#11": {6},
	"13":  {9},
	"#13": {10},
}

// extensionTokens in longest-first order for greedy matching of suffixes like "7b9".
var extensionTokens = []string{"#11", "#13", "11", "13", "#7", "b9", "6", "7", "9"}

// intervals looks a type up in the triad table first, then the scale table.
func intervals(kind string) ([]float64, bool) {
	if iv, ok := triads[kind]; ok {
		return iv, true
	}
	iv, ok := scales[kind]
	return iv, ok
}

// splitExtensions breaks an extension suffix into known tokens.
func splitExtensions(s string) ([]string, bool) {
	var out []string
	for len(s) > 0 {
		matched := false
		for _, tok := range extensionTokens {
			if len(s) >= len(tok) && s[:len(tok)] == tok {
				out = append(out, tok)
				s = s[len(tok):]
				matched = true
				break
			}
		}
		if !matched {
			return nil, false
		}
	}
	return out, true
}

// Names returns the known triad and scale names, for help output.
func Names() (triadNames, scaleNames []string) {
	for k := range triads {
		triadNames = append(triadNames, k)
	}
	for k := range scales {
		scaleNames = append(scaleNames, k)
	}
	return triadNames, scaleNames
}
