// Package session loads playback sessions from YAML files.
//
// A session names a tempo, the note lists that notation can spread over,
// and the parameters of each stream:
//
//	tempo: 0.5
//	bindings:
//	  pads: [60, 63, 67, 70]
//	streams:
//	  s0:
//	    e: "1*4"
//	    n: "pads.."
//
// Documents are checked against a CUE schema before any notation is compiled.
package session

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"go-cycles/debug"
	"go-cycles/mini"
	"go-cycles/scheduler"
	"go-cycles/stream"
)

//go:embed schema.cue
var schemaSource string

// Session is a loaded set of streams ready for a scheduler.
type Session struct {
	ID       uuid.UUID
	Tempo    float64
	Bindings map[string][]float64
	Streams  []*stream.Stream
	Compiler *mini.Compiler
}

// Stream returns the stream with the given id.
func (s *Session) Stream(id string) (*stream.Stream, bool) {
	i := slices.IndexFunc(s.Streams, func(st *stream.Stream) bool { return st.ID() == id })
	if i < 0 {
		return nil, false
	}
	return s.Streams[i], true
}

type document struct {
	ID       string                    `yaml:"id"`
	Tempo    float64                   `yaml:"tempo"`
	Bindings map[string][]float64      `yaml:"bindings"`
	Streams  map[string]map[string]any `yaml:"streams"`
}

// SchemaError reports a document that does not fit the session schema.
type SchemaError struct {
	Path string // document path of the first offending value, if known
	Msg  string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "session schema: " + e.Msg
	}
	return fmt.Sprintf("session schema: %s: %s", e.Path, e.Msg)
}

// Load reads and parses the session file at path.
func Load(path string, opts ...mini.Option) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	debug.Log("session", "loaded %s: %d streams at %.4f cps", path, len(s.Streams), s.Tempo)
	return s, nil
}

// Parse decodes a session document, validates it and compiles every stream.
// Compiler options apply in addition to the document's bindings.
func Parse(data []byte, opts ...mini.Option) (*Session, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	var raw any
	var doc document
	if len(node.Content) > 0 {
		if err := node.Decode(&raw); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		if err := validate(raw); err != nil {
			return nil, err
		}
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}

	s := &Session{
		Tempo:    doc.Tempo,
		Bindings: doc.Bindings,
	}
	if s.Tempo == 0 {
		s.Tempo = scheduler.DefaultTempo
	}
	if s.Bindings == nil {
		s.Bindings = map[string][]float64{}
	}

	if doc.ID != "" {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("session id: %w", err)
		}
		s.ID = id
	} else {
		s.ID = uuid.Must(uuid.NewV7())
	}

	s.Compiler = mini.NewCompiler(append(slices.Clip(opts), mini.WithBindings(s.Bindings))...)

	ids := make([]string, 0, len(doc.Streams))
	for id := range doc.Streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		st := stream.New(id, stream.WithCompiler(s.Compiler))
		if err := st.Set(doc.Streams[id]); err != nil {
			return nil, err
		}
		s.Streams = append(s.Streams, st)
	}
	return s, nil
}

// validate checks a decoded document against #Session.
func validate(raw any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Session"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("session schema: %w", err)
	}
	v := schema.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return schemaError(err)
	}
	return nil
}

func schemaError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Msg: err.Error()}
	}
	first := errs[0]
	path := ""
	for i, p := range first.Path() {
		if i > 0 {
			path += "."
		}
		path += p
	}
	format, args := first.Msg()
	return &SchemaError{Path: path, Msg: fmt.Sprintf(format, args...)}
}
