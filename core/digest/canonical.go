package digest

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Canonical returns the canonical byte representation of payload. The
// representation is JSON with the following fixed rules, so that the same
// logical payload always produces the same bytes on every platform and
// runtime:
//
//   - object keys are sorted bytewise ascending, at every nesting level
//   - no insignificant whitespace is emitted
//   - strings are escaped the way Go's encoding/json escapes them, with
//     HTML escaping disabled
//   - numbers are rendered exactly as encoding/json renders them (shortest
//     round-trip form for floats, plain decimal for integers); the literal
//     is preserved verbatim through normalization
//
// A digest mismatch between two parties almost always means their
// canonicalizations disagree, so these rules are the contract, not an
// implementation detail.
func Canonical(payload interface{}) ([]byte, error) {
	// Normalize through encoding/json first so struct tags, embedded
	// structs and custom marshalers all flatten to the same generic tree.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, errors.WithMessage(err, "digest: payload not representable as JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, errors.WithMessage(err, "digest: normalize payload")
	}

	var out bytes.Buffer
	if err := writeCanonical(&out, tree); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeCanonical(out *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		out.WriteString("null")
	case bool:
		if t {
			out.WriteString("true")
		} else {
			out.WriteString("false")
		}
	case json.Number:
		out.WriteString(string(t))
	case string:
		return writeCanonicalString(out, t)
	case []interface{}:
		out.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				out.WriteByte(',')
			}
			if err := writeCanonical(out, elem); err != nil {
				return err
			}
		}
		out.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				out.WriteByte(',')
			}
			if err := writeCanonicalString(out, k); err != nil {
				return err
			}
			out.WriteByte(':')
			if err := writeCanonical(out, t[k]); err != nil {
				return err
			}
		}
		out.WriteByte('}')
	default:
		return errors.Errorf("digest: unexpected value of type %T after normalization", v)
	}
	return nil
}

func writeCanonicalString(out *bytes.Buffer, s string) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return errors.WithMessage(err, "digest: encode string")
	}
	// json.Encoder appends a newline after every value; strip it.
	out.Truncate(out.Len() - 1)
	return nil
}
