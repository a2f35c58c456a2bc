package layout

import (
	"strconv"
	"strings"
)

// IndexedID identifies a node instance inside (possibly nested) repeating
// rows. Rows lists the row index at each nesting level, outermost first.
type IndexedID struct {
	Base string
	Rows []int
}

// NewIndexedID builds an id for base at the supplied row path.
func NewIndexedID(base string, rows ...int) IndexedID {
	return IndexedID{Base: base, Rows: append([]int(nil), rows...)}
}

// String renders the canonical "<base>-<r0>-<r1>" map key.
func (id IndexedID) String() string {
	if len(id.Rows) == 0 {
		return id.Base
	}
	var b strings.Builder
	b.WriteString(id.Base)
	for _, row := range id.Rows {
		b.WriteByte('-')
		b.WriteString(strconv.Itoa(row))
	}
	return b.String()
}

// WithRow returns a copy of id one nesting level deeper.
func (id IndexedID) WithRow(row int) IndexedID {
	rows := make([]int, len(id.Rows), len(id.Rows)+1)
	copy(rows, id.Rows)
	return IndexedID{Base: id.Base, Rows: append(rows, row)}
}

// Parent drops the innermost row index.
func (id IndexedID) Parent() IndexedID {
	if len(id.Rows) == 0 {
		return id
	}
	return IndexedID{Base: id.Base, Rows: append([]int(nil), id.Rows[:len(id.Rows)-1]...)}
}

// LastRow returns the innermost row index.
func (id IndexedID) LastRow() (int, bool) {
	if len(id.Rows) == 0 {
		return 0, false
	}
	return id.Rows[len(id.Rows)-1], true
}

// Depth reports the number of row indices.
func (id IndexedID) Depth() int { return len(id.Rows) }

// ParseIndexedID splits key into base and row indices. The base must be
// supplied because ids may themselves contain dashes and digits.
func ParseIndexedID(key, base string) (IndexedID, bool) {
	if key == base {
		return IndexedID{Base: base}, true
	}
	rest, ok := strings.CutPrefix(key, base+"-")
	if !ok {
		return IndexedID{}, false
	}
	id := IndexedID{Base: base}
	for _, part := range strings.Split(rest, "-") {
		row, err := strconv.Atoi(part)
		if err != nil || row < 0 {
			return IndexedID{}, false
		}
		id.Rows = append(id.Rows, row)
	}
	return id, true
}

// RowSuffix renders rows as "-r0-r1" (empty for no rows).
func RowSuffix(rows ...int) string {
	return IndexedID{Rows: rows}.String()
}
