package schema

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/liverelay/webcast/internal/errors"
)

var scalarKinds = map[string]Kind{
	"uint32": KindUint32,
	"uint64": KindUint64,
	"int32":  KindInt32,
	"int64":  KindInt64,
	"bool":   KindBool,
	"string": KindString,
	"bytes":  KindBytes,
}

// Parse parses a schema description into a Schema. The description is a
// sequence of message blocks:
//
//	message Name {
//	  <kind> <name> = <field number>;
//	}
//
// where kind is a scalar kind or the name of another message in the same
// description. Forward references are allowed; they are resolved after all
// blocks are read.
func Parse(description string) (*Schema, error) {
	s := &Schema{types: make(map[string]*MessageType)}

	var current *MessageType
	scanner := bufio.NewScanner(strings.NewReader(description))
	lineNo := 0

	malformed := func(format string, args ...any) error {
		return errors.New(errors.CodeSchemaMalformed).WithDetail("line %d: "+format, append([]any{lineNo}, args...)...)
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "message "):
			if current != nil {
				return nil, malformed("nested message block")
			}
			rest := strings.TrimPrefix(line, "message ")
			name := strings.TrimSpace(strings.TrimSuffix(rest, "{"))
			if name == "" || !strings.HasSuffix(rest, "{") {
				return nil, malformed("bad message header %q", line)
			}
			if _, dup := s.types[name]; dup {
				return nil, malformed("duplicate message %q", name)
			}
			current = &MessageType{
				Name:   name,
				schema: s,
				byNum:  make(map[int32]*Field),
				byName: make(map[string]*Field),
			}

		case line == "}":
			if current == nil {
				return nil, malformed("unmatched closing brace")
			}
			s.types[current.Name] = current
			current = nil

		default:
			if current == nil {
				return nil, malformed("field outside message block: %q", line)
			}
			f, err := parseField(line)
			if err != nil {
				return nil, malformed("%v", err)
			}
			if _, dup := current.byNum[f.Num]; dup {
				return nil, malformed("duplicate field number %d in %s", f.Num, current.Name)
			}
			current.Fields = append(current.Fields, f)
			fp := &current.Fields[len(current.Fields)-1]
			current.byNum[f.Num] = fp
			current.byName[f.Name] = fp
		}
	}
	if current != nil {
		return nil, errors.New(errors.CodeSchemaMalformed).WithDetail("unterminated message %q", current.Name)
	}

	// Resolve message-typed fields now that every block is known.
	for _, mt := range s.types {
		for i := range mt.Fields {
			f := &mt.Fields[i]
			if f.Kind != KindMessage {
				continue
			}
			if _, ok := s.types[f.Message]; !ok {
				return nil, errors.New(errors.CodeSchemaMalformed).
					WithDetail("%s.%s references unknown type %q", mt.Name, f.Name, f.Message)
			}
		}
	}

	return s, nil
}

// parseField parses "<kind> <name> = <num>;" with an optional leading
// "repeated".
func parseField(line string) (Field, error) {
	line = strings.TrimSuffix(line, ";")
	parts := strings.Fields(line)

	var f Field
	if len(parts) > 0 && parts[0] == "repeated" {
		f.Repeated = true
		parts = parts[1:]
	}
	if len(parts) != 4 || parts[2] != "=" {
		return f, errors.Newf(errors.CategorySchema, "bad field %q", line)
	}

	if kind, ok := scalarKinds[parts[0]]; ok {
		f.Kind = kind
	} else {
		f.Kind = KindMessage
		f.Message = parts[0]
	}
	f.Name = parts[1]

	num, err := strconv.ParseInt(parts[3], 10, 32)
	if err != nil || num <= 0 {
		return f, errors.Newf(errors.CategorySchema, "bad field number %q", parts[3])
	}
	f.Num = int32(num)

	return f, nil
}
