package schema

import (
	_ "embed"
	"sync"

	"github.com/liverelay/webcast/internal/errors"
)

//go:embed schema.txt
var schemaDescription string

// Kind identifies the wire kind of a field.
type Kind uint8

const (
	KindUint32 Kind = iota
	KindUint64
	KindInt32
	KindInt64
	KindBool
	KindString
	KindBytes
	KindMessage
)

// Field describes one field of a message type.
type Field struct {
	Num      int32
	Name     string
	Kind     Kind
	Repeated bool

	// Message names the nested message type when Kind == KindMessage.
	Message string
}

// MessageType is the codec for one message type. It is immutable after load.
type MessageType struct {
	Name   string
	Fields []Field

	schema  *Schema
	byNum   map[int32]*Field
	byName  map[string]*Field
}

// Schema is the loaded, immutable mapping from message-type name to codec.
// It is shared by all sessions; lookups are read-only and safe for
// concurrent use.
type Schema struct {
	types map[string]*MessageType
}

// Lookup returns the codec for the named message type.
func (s *Schema) Lookup(name string) (*MessageType, error) {
	mt, ok := s.types[name]
	if !ok {
		return nil, errors.New(errors.CodeUnknownType).WithDetail("message type %q", name)
	}
	return mt, nil
}

// Types returns the names of all message types in the schema.
func (s *Schema) Types() []string {
	names := make([]string, 0, len(s.types))
	for name := range s.types {
		names = append(names, name)
	}
	return names
}

var (
	loadOnce   sync.Once
	loaded     *Schema
	loadErr    error
)

// Load parses the bundled schema description on first call and returns the
// cached schema on every subsequent call. A missing or malformed description
// is fatal for the whole decode pipeline.
func Load() (*Schema, error) {
	loadOnce.Do(func() {
		if schemaDescription == "" {
			loadErr = errors.New(errors.CodeSchemaMissing)
			return
		}
		loaded, loadErr = Parse(schemaDescription)
	})
	return loaded, loadErr
}
