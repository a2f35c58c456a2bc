// Package formdata holds the flat path → value representation of form data
// and the helpers that read row indices out of bracketed paths.
package formdata

import (
	"strconv"
	"strings"
)

// Segment is one dotted step of a data path, optionally indexed.
type Segment struct {
	Name  string
	Index int // -1 when the segment carries no index
}

// ParsePath splits "a.b[0].c[12]" into segments. Malformed brackets are kept
// as part of the segment name.
func ParsePath(path string) []Segment {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	out := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg := Segment{Name: part, Index: -1}
		if open := strings.IndexByte(part, '['); open > 0 && strings.HasSuffix(part, "]") {
			if n, err := strconv.Atoi(part[open+1 : len(part)-1]); err == nil && n >= 0 {
				seg = Segment{Name: part[:open], Index: n}
			}
		}
		out = append(out, seg)
	}
	return out
}

// JoinPath renders segments back into a bracketed path.
func JoinPath(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Name)
		if seg.Index >= 0 {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// KeyWithoutIndex strips every "[n]" from key.
func KeyWithoutIndex(key string) string {
	if !strings.Contains(key, "[") {
		return key
	}
	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		if key[i] == '[' {
			if end := strings.IndexByte(key[i:], ']'); end > 0 && isDigits(key[i+1:i+end]) {
				i += end
				continue
			}
		}
		b.WriteByte(key[i])
	}
	return b.String()
}

// Indexes returns every bracketed index in key, outermost first. Multi-digit
// indices are read in full.
func Indexes(key string) []int {
	var out []int
	for i := 0; i < len(key); i++ {
		if key[i] != '[' {
			continue
		}
		end := strings.IndexByte(key[i:], ']')
		if end <= 0 {
			break
		}
		if n, err := strconv.Atoi(key[i+1 : i+end]); err == nil {
			out = append(out, n)
		}
		i += end
	}
	return out
}

// IndexString renders the indices of key joined by "-", e.g. "0-1".
func IndexString(key string) string {
	indexes := Indexes(key)
	parts := make([]string, len(indexes))
	for i, n := range indexes {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}

// Indexed appends "[index]" to binding.
func Indexed(binding string, index int) string {
	return binding + "[" + strconv.Itoa(index) + "]"
}

// ReplaceGroupBinding replaces the first occurrence of groupBinding in binding
// with groupBinding[index].
func ReplaceGroupBinding(binding, groupBinding string, index int) string {
	if groupBinding == "" {
		return binding
	}
	return strings.Replace(binding, groupBinding, Indexed(groupBinding, index), 1)
}

// IndexAfter parses the row index that immediately follows prefix in key.
// It reports false when key does not continue with "[n]".
func IndexAfter(key, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok || !strings.HasPrefix(rest, "[") {
		return 0, false
	}
	end := strings.IndexByte(rest, ']')
	if end <= 1 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[1:end])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
