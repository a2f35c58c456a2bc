package layout

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Page is the ordered component list of a single layout page.
type Page []Node

// UnmarshalJSON decodes each entry into its concrete node type.
func (p *Page) UnmarshalJSON(data []byte) error {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("layout: decode page: %w", err)
	}
	page := make(Page, 0, len(entries))
	for i, entry := range entries {
		node, err := DecodeNode(entry)
		if err != nil {
			return fmt.Errorf("layout: entry %d: %w", i, err)
		}
		page = append(page, node)
	}
	*p = page
	return nil
}

// Find returns the node with the given id.
func (p Page) Find(id string) Node {
	for _, node := range p {
		if node.Common().ID == id {
			return node
		}
	}
	return nil
}

// Group returns the group with the given id.
func (p Page) Group(id string) *Group {
	group, _ := AsGroup(p.Find(id))
	return group
}

// Groups returns every group on the page in declaration order.
func (p Page) Groups() []*Group {
	var out []*Group
	for _, node := range p {
		if group, ok := node.(*Group); ok {
			out = append(out, group)
		}
	}
	return out
}

// Components returns every non-group node on the page in declaration order.
func (p Page) Components() []*Component {
	var out []*Component
	for _, node := range p {
		if component, ok := node.(*Component); ok {
			out = append(out, component)
		}
	}
	return out
}

// ChildGroupIDs returns the ids of groups referenced as a child of another group.
func (p Page) ChildGroupIDs() map[string]bool {
	out := make(map[string]bool)
	for _, group := range p.Groups() {
		for _, child := range group.ChildIDs() {
			if _, ok := p.Find(child).(*Group); ok {
				out[child] = true
			}
		}
	}
	return out
}

// ParentGroup returns the group that lists id among its children.
func (p Page) ParentGroup(id string) *Group {
	for _, group := range p.Groups() {
		if group.HasChild(id) {
			return group
		}
	}
	return nil
}

// GroupChildren returns the nodes referenced by the group, in page order.
func (p Page) GroupChildren(groupID string) []Node {
	group := p.Group(groupID)
	if group == nil {
		return nil
	}
	var out []Node
	for _, node := range p {
		if group.HasChild(node.Common().ID) {
			out = append(out, node)
		}
	}
	return out
}

// Clone deep-copies every node on the page.
func (p Page) Clone() Page {
	out := make(Page, len(p))
	for i, node := range p {
		out[i] = Clone(node)
	}
	return out
}

// Layouts maps page names to their component lists.
type Layouts map[string]Page

// ParseLayouts decodes the combined `{ "<page>": [ ... ] }` document.
func ParseLayouts(data []byte) (Layouts, error) {
	var out Layouts
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("layout: decode layouts: %w", err)
	}
	return out, nil
}

// PageNames returns the page names sorted lexically.
func (l Layouts) PageNames() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Find locates a node by id across all pages.
func (l Layouts) Find(id string) (string, Node) {
	for _, name := range l.PageNames() {
		if node := l[name].Find(id); node != nil {
			return name, node
		}
	}
	return "", nil
}

// PageOf returns the name of the page holding id.
func (l Layouts) PageOf(id string) string {
	name, _ := l.Find(id)
	return name
}
