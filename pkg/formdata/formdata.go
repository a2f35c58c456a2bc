package formdata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormData maps fully indexed data paths ("Group1[0].Group2[1].prop") to
// their string values.
type FormData map[string]string

// Clone returns an independent copy.
func (fd FormData) Clone() FormData {
	out := make(FormData, len(fd))
	for k, v := range fd {
		out[k] = v
	}
	return out
}

// Keys returns the keys in lexical order.
func (fd FormData) Keys() []string {
	keys := make([]string, 0, len(fd))
	for k := range fd {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the value at key.
func (fd FormData) Lookup(key string) (string, bool) {
	value, ok := fd[key]
	return value, ok
}

// MaxIndex scans every key for a row index directly following prefix and
// returns the highest, or -1 when no key matches. Keys are anchored at
// "prefix[" so "Group1" never matches "Group10[0]".
func (fd FormData) MaxIndex(prefix string) int {
	highest := -1
	for key := range fd {
		if n, ok := IndexAfter(key, prefix); ok && n > highest {
			highest = n
		}
	}
	return highest
}

// Filter returns the entries whose key starts with prefix.
func (fd FormData) Filter(prefix string) FormData {
	out := make(FormData)
	for k, v := range fd {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// RemoveGroupData returns a copy of fd without the row groupBinding[index].
// With shift set, rows above index move down by one. groupBinding must be the
// qualified binding (parent indices included) of the group holding the row.
func RemoveGroupData(fd FormData, groupBinding string, index int, shift bool) FormData {
	out := make(FormData, len(fd))
	for key, value := range fd {
		row, ok := IndexAfter(key, groupBinding)
		switch {
		case !ok || row < index:
			out[key] = value
		case row == index:
			// dropped
		case shift:
			from := Indexed(groupBinding, row)
			out[Indexed(groupBinding, row-1)+strings.TrimPrefix(key, from)] = value
		default:
			out[key] = value
		}
	}
	return out
}

// ToModel expands fd into a nested model. Indexed segments become arrays
// sized to the highest index seen; holes stay nil. coerce converts each leaf
// and may be nil, in which case values stay strings.
func ToModel(fd FormData, coerce func(path, value string) any) map[string]any {
	root := make(map[string]any)
	for _, key := range fd.Keys() {
		segments := ParsePath(key)
		if len(segments) == 0 {
			continue
		}
		var leaf any = fd[key]
		if coerce != nil {
			leaf = coerce(key, fd[key])
		}
		assign(root, segments, leaf)
	}
	return root
}

func assign(container any, segments []Segment, value any) any {
	node, _ := container.(map[string]any)
	if node == nil {
		node = make(map[string]any)
	}
	seg := segments[0]
	last := len(segments) == 1

	if seg.Index < 0 {
		if last {
			node[seg.Name] = value
		} else {
			node[seg.Name] = assign(node[seg.Name], segments[1:], value)
		}
		return node
	}

	list, _ := node[seg.Name].([]any)
	if len(list) <= seg.Index {
		list = append(list, make([]any, seg.Index+1-len(list))...)
	}
	if last {
		list[seg.Index] = value
	} else {
		list[seg.Index] = assign(list[seg.Index], segments[1:], value)
	}
	node[seg.Name] = list
	return node
}

// FromModel flattens a nested model into form data. Nil leaves are skipped.
func FromModel(model map[string]any) FormData {
	out := make(FormData)
	flatten(out, "", model)
	return out
}

func flatten(out FormData, prefix string, value any) {
	switch typed := value.(type) {
	case nil:
	case map[string]any:
		for k, v := range typed {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flatten(out, key, v)
		}
	case []any:
		for i, v := range typed {
			flatten(out, Indexed(prefix, i), v)
		}
	default:
		out[prefix] = Stringify(typed)
	}
}

// Stringify renders a scalar the way form data stores it.
func Stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
