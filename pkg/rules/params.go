package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/goliatone/go-formfill/pkg/formdata"
)

// Params is a string map that remembers the order keys were declared in.
type Params struct {
	keys   []string
	values map[string]string
}

// NewParams builds params from alternating key, value pairs.
func NewParams(pairs ...string) Params {
	var p Params
	for i := 0; i+1 < len(pairs); i += 2 {
		p.Set(pairs[i], pairs[i+1])
	}
	return p
}

// Set stores value under key, keeping the key's original position.
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key.
func (p Params) Get(key string) (string, bool) {
	value, ok := p.values[key]
	return value, ok
}

// Keys returns the keys in declaration order.
func (p Params) Keys() []string { return append([]string(nil), p.keys...) }

// Values returns the values in declaration order.
func (p Params) Values() []string {
	out := make([]string, 0, len(p.keys))
	for _, key := range p.keys {
		out = append(out, p.values[key])
	}
	return out
}

// Len reports the number of entries.
func (p Params) Len() int { return len(p.keys) }

// Contains reports whether any value equals value.
func (p Params) Contains(value string) bool {
	for _, v := range p.values {
		if v == value {
			return true
		}
	}
	return false
}

// Map maps every value through fn, keeping the order.
func (p Params) Map(fn func(string) string) Params {
	var out Params
	for _, key := range p.keys {
		out.Set(key, fn(p.values[key]))
	}
	return out
}

// UnmarshalJSON decodes an object in document order. Non-string values are
// stored in their form data rendering.
func (p *Params) UnmarshalJSON(data []byte) error {
	members, err := decodeMembers(data)
	if err != nil {
		return err
	}
	*p = Params{}
	for _, m := range members {
		var value any
		if err := json.Unmarshal(m.value, &value); err != nil {
			return fmt.Errorf("rules: param %q: %w", m.key, err)
		}
		if value == nil {
			p.Set(m.key, "")
			continue
		}
		p.Set(m.key, formdata.Stringify(value))
	}
	return nil
}

// MarshalJSON encodes the entries in declaration order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type member struct {
	key   string
	value json.RawMessage
}

// decodeMembers reads the members of a JSON object in document order. A
// null document has no members.
func decodeMembers(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("rules: decode object: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if tok != json.Delim('{') {
		return nil, fmt.Errorf("rules: expected an object, got %v", tok)
	}
	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("rules: decode object: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("rules: unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("rules: decode %q: %w", key, err)
		}
		out = append(out, member{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("rules: decode object: %w", err)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
