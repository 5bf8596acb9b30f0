package schema

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Decode decodes wire bytes into a field-name keyed record. Scalar values
// surface as uint64/int64/bool/string/[]byte, nested messages as
// map[string]any, repeated fields as []any. Field numbers not present in
// the schema are skipped, never rejected: the platform adds fields without
// notice and old clients must keep working.
func (mt *MessageType) Decode(data []byte) (map[string]any, error) {
	out := make(map[string]any)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%s: bad tag: %w", mt.Name, protowire.ParseError(n))
		}
		data = data[n:]

		f, known := mt.byNum[int32(num)]
		if !known {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%s: field %d: %w", mt.Name, num, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		var (
			value any
			err   error
		)
		switch typ {
		case protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%s.%s: %w", mt.Name, f.Name, protowire.ParseError(n))
			}
			value = coerceVarint(f.Kind, v)

		case protowire.BytesType:
			var b []byte
			b, n = protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%s.%s: %w", mt.Name, f.Name, protowire.ParseError(n))
			}
			value, err = mt.decodeBytesField(f, b, out)
			if err != nil {
				return nil, err
			}

		default:
			// Wire type the schema does not use for this field; skip it.
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("%s: field %d: %w", mt.Name, num, protowire.ParseError(n))
			}
		}
		data = data[n:]

		if value == nil {
			continue
		}
		if f.Repeated {
			list, _ := out[f.Name].([]any)
			if flat, ok := value.([]any); ok && f.Kind != KindMessage {
				out[f.Name] = append(list, flat...)
			} else {
				out[f.Name] = append(list, value)
			}
		} else {
			out[f.Name] = value
		}
	}

	return out, nil
}

// decodeBytesField interprets a length-delimited value for f: nested message,
// string/bytes, or a packed list of varint scalars.
func (mt *MessageType) decodeBytesField(f *Field, b []byte, out map[string]any) (any, error) {
	switch f.Kind {
	case KindMessage:
		nested, err := mt.schema.types[f.Message].Decode(b)
		if err != nil {
			return nil, err
		}
		return nested, nil

	case KindString:
		return string(b), nil

	case KindBytes:
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp, nil

	default:
		if !f.Repeated {
			// Scalar field carried as bytes; tolerate by dropping it.
			return nil, nil
		}
		// Packed repeated varints.
		var list []any
		for len(b) > 0 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%s.%s: packed: %w", mt.Name, f.Name, protowire.ParseError(n))
			}
			b = b[n:]
			list = append(list, coerceVarint(f.Kind, v))
		}
		return list, nil
	}
}

func coerceVarint(kind Kind, v uint64) any {
	switch kind {
	case KindBool:
		return v != 0
	case KindInt32, KindInt64:
		return int64(v)
	default:
		return v
	}
}

// Encode encodes a field-name keyed record into wire bytes. Keys that do not
// name a schema field are ignored. Used for outbound ack frames and for test
// fixtures; it is the inverse of Decode for records that round-trip.
func (mt *MessageType) Encode(record map[string]any) ([]byte, error) {
	var buf []byte
	for i := range mt.Fields {
		f := &mt.Fields[i]
		v, ok := record[f.Name]
		if !ok || v == nil {
			continue
		}

		values := []any{v}
		if f.Repeated {
			if list, isList := v.([]any); isList {
				values = list
			}
		}

		for _, item := range values {
			var err error
			buf, err = appendField(buf, mt.schema, f, item)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", mt.Name, f.Name, err)
			}
		}
	}
	return buf, nil
}

func appendField(buf []byte, s *Schema, f *Field, v any) ([]byte, error) {
	num := protowire.Number(f.Num)

	switch f.Kind {
	case KindMessage:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("want map, got %T", v)
		}
		nested, err := s.types[f.Message].Encode(m)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		return protowire.AppendBytes(buf, nested), nil

	case KindString:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		return protowire.AppendString(buf, str), nil

	case KindBytes:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("want bytes, got %T", v)
		}
		buf = protowire.AppendTag(buf, num, protowire.BytesType)
		return protowire.AppendBytes(buf, b), nil

	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want bool, got %T", v)
		}
		var u uint64
		if b {
			u = 1
		}
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		return protowire.AppendVarint(buf, u), nil

	default:
		u, err := asUint64(v)
		if err != nil {
			return nil, err
		}
		buf = protowire.AppendTag(buf, num, protowire.VarintType)
		return protowire.AppendVarint(buf, u), nil
	}
}

func asUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		return uint64(n), nil
	case int:
		return uint64(n), nil
	case int32:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
}
