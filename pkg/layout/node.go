package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TypeGroup is the node type that marks a container. Matching is case-insensitive.
const TypeGroup = "group"

// ErrMissingID is returned when a layout entry carries no id.
var ErrMissingID = errors.New("layout: node is missing an id")

// Node is a single layout entry. The set of implementations is closed: every
// node is either a *Component or a *Group.
type Node interface {
	// Common exposes the attributes shared by every node.
	Common() *Base
	isNode()
}

// Base holds the attributes common to components and groups. Attributes the
// engine does not interpret are retained so that encoding a decoded node
// reproduces its source object.
type Base struct {
	ID                   string
	Type                 string
	DataModelBindings    map[string]string
	TextResourceBindings map[string]string
	Required             bool
	ReadOnly             bool
	Hidden               bool
	// BaseComponentID names the static definition a row clone was built from.
	BaseComponentID string

	raw object
}

// Common implements Node.
func (b *Base) Common() *Base { return b }

// StaticID returns BaseComponentID, or ID for nodes that are not row clones.
func (b *Base) StaticID() string {
	if b.BaseComponentID != "" {
		return b.BaseComponentID
	}
	return b.ID
}

// Binding returns the data-model binding stored under key.
func (b *Base) Binding(key string) string {
	if b == nil {
		return ""
	}
	return b.DataModelBindings[key]
}

// Attr decodes an attribute the engine does not model into dst. It reports
// false when the attribute is absent or has an incompatible shape.
func (b *Base) Attr(key string, dst any) bool {
	if b == nil {
		return false
	}
	value, ok := b.raw[key]
	if !ok {
		return false
	}
	return json.Unmarshal(value, dst) == nil
}

// SetAttr stores an uninterpreted attribute.
func (b *Base) SetAttr(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("layout: encode attribute %q: %w", key, err)
	}
	if b.raw == nil {
		b.raw = object{}
	}
	b.raw[key] = encoded
	return nil
}

func (b *Base) decode(raw object) error {
	b.raw = raw
	if err := raw.get("id", &b.ID); err != nil {
		return err
	}
	if strings.TrimSpace(b.ID) == "" {
		return ErrMissingID
	}
	if err := raw.get("type", &b.Type); err != nil {
		return err
	}
	if err := raw.get("dataModelBindings", &b.DataModelBindings); err != nil {
		return err
	}
	if err := raw.get("textResourceBindings", &b.TextResourceBindings); err != nil {
		return err
	}
	if err := raw.get("required", &b.Required); err != nil {
		return err
	}
	if err := raw.get("readOnly", &b.ReadOnly); err != nil {
		return err
	}
	if err := raw.get("baseComponentId", &b.BaseComponentID); err != nil {
		return err
	}
	return raw.get("hidden", &b.Hidden)
}

func (b *Base) encode() (object, error) {
	out := b.raw.clone()
	if err := out.put("id", b.ID, true); err != nil {
		return nil, err
	}
	if err := out.put("type", b.Type, true); err != nil {
		return nil, err
	}
	if err := out.put("dataModelBindings", b.DataModelBindings, len(b.DataModelBindings) > 0); err != nil {
		return nil, err
	}
	if err := out.put("textResourceBindings", b.TextResourceBindings, len(b.TextResourceBindings) > 0); err != nil {
		return nil, err
	}
	if err := out.put("required", b.Required, b.Required); err != nil {
		return nil, err
	}
	if err := out.put("readOnly", b.ReadOnly, b.ReadOnly); err != nil {
		return nil, err
	}
	if err := out.put("hidden", b.Hidden, b.Hidden); err != nil {
		return nil, err
	}
	if err := out.put("baseComponentId", b.BaseComponentID, b.BaseComponentID != ""); err != nil {
		return nil, err
	}
	return out, nil
}

func (b Base) clone() Base {
	out := b
	out.DataModelBindings = cloneStrings(b.DataModelBindings)
	out.TextResourceBindings = cloneStrings(b.TextResourceBindings)
	out.raw = b.raw.clone()
	return out
}

// Component is a leaf input or display element.
type Component struct {
	Base
}

func (*Component) isNode() {}

// MinNumberOfAttachments returns the FileUpload lower attachment bound (0 when unset).
func (c *Component) MinNumberOfAttachments() int {
	var n int
	c.Attr("minNumberOfAttachments", &n)
	return n
}

// MaxNumberOfAttachments returns the FileUpload upper attachment bound (0 when unset).
func (c *Component) MaxNumberOfAttachments() int {
	var n int
	c.Attr("maxNumberOfAttachments", &n)
	return n
}

// DateBounds returns the Datepicker minDate and maxDate attributes.
func (c *Component) DateBounds() (minDate, maxDate string) {
	c.Attr("minDate", &minDate)
	c.Attr("maxDate", &maxDate)
	return minDate, maxDate
}

// Format returns the display format attribute.
func (c *Component) Format() string {
	var format string
	c.Attr("format", &format)
	return format
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Component) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	return c.Base.decode(raw)
}

// MarshalJSON implements json.Marshaler.
func (c *Component) MarshalJSON() ([]byte, error) {
	out, err := c.Base.encode()
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// Group is a container whose children are referenced by id. A group with
// MaxCount greater than one repeats.
type Group struct {
	Base
	Children []string
	MaxCount int
	Edit     *EditConfig
	Triggers []string
}

func (*Group) isNode() {}

// Repeating reports whether the group can hold more than one row.
func (g *Group) Repeating() bool {
	return g != nil && g.MaxCount > 1
}

// GroupBinding returns the data-model binding of the group's rows.
func (g *Group) GroupBinding() string {
	return g.Binding("group")
}

// MultiPage reports whether children carry a "<page>:" prefix.
func (g *Group) MultiPage() bool {
	return g != nil && g.Edit != nil && g.Edit.MultiPage
}

// ChildIDs returns the referenced child ids with any multi-page prefix removed.
func (g *Group) ChildIDs() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		out = append(out, g.childID(child))
	}
	return out
}

// HasChild reports whether id is one of the group's children.
func (g *Group) HasChild(id string) bool {
	for _, child := range g.ChildIDs() {
		if child == id {
			return true
		}
	}
	return false
}

// ChildPage returns the multi-page index of a child reference, or -1.
func (g *Group) ChildPage(id string) int {
	if !g.MultiPage() {
		return -1
	}
	for _, child := range g.Children {
		prefix, rest, ok := strings.Cut(child, ":")
		if !ok || rest != id {
			continue
		}
		var page int
		if _, err := fmt.Sscanf(prefix, "%d", &page); err == nil {
			return page
		}
	}
	return -1
}

func (g *Group) childID(child string) string {
	if !g.MultiPage() {
		return child
	}
	if _, rest, ok := strings.Cut(child, ":"); ok {
		return rest
	}
	return child
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Group) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	if err := g.Base.decode(raw); err != nil {
		return err
	}
	if err := raw.get("children", &g.Children); err != nil {
		return err
	}
	if err := raw.get("maxCount", &g.MaxCount); err != nil {
		return err
	}
	if err := raw.get("triggers", &g.Triggers); err != nil {
		return err
	}
	if _, ok := raw["edit"]; ok {
		g.Edit = &EditConfig{}
		if err := raw.get("edit", g.Edit); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (g *Group) MarshalJSON() ([]byte, error) {
	out, err := g.Base.encode()
	if err != nil {
		return nil, err
	}
	if err := out.put("children", g.Children, g.Children != nil); err != nil {
		return nil, err
	}
	if err := out.put("maxCount", g.MaxCount, g.MaxCount != 0); err != nil {
		return nil, err
	}
	if err := out.put("triggers", g.Triggers, len(g.Triggers) > 0); err != nil {
		return nil, err
	}
	if g.Edit != nil {
		if err := out.put("edit", g.Edit, true); err != nil {
			return nil, err
		}
	} else {
		delete(out, "edit")
	}
	return json.Marshal(out)
}

// EditConfig controls how a repeating group edits its rows.
type EditConfig struct {
	Mode          string
	Filter        []FilterRule
	MultiPage     bool
	OpenByDefault bool
	AddButton     *bool
	DeleteButton  *bool
	SaveButton    *bool

	raw object
}

// FilterRule hides rows whose Key binding does not equal Value.
type FilterRule struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *EditConfig) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	e.raw = raw
	for key, dst := range map[string]any{
		"mode":          &e.Mode,
		"filter":        &e.Filter,
		"multiPage":     &e.MultiPage,
		"openByDefault": &e.OpenByDefault,
		"addButton":     &e.AddButton,
		"deleteButton":  &e.DeleteButton,
		"saveButton":    &e.SaveButton,
	} {
		if err := raw.get(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e *EditConfig) MarshalJSON() ([]byte, error) {
	out := e.raw.clone()
	puts := []struct {
		key   string
		value any
		set   bool
	}{
		{"mode", e.Mode, e.Mode != ""},
		{"filter", e.Filter, len(e.Filter) > 0},
		{"multiPage", e.MultiPage, e.MultiPage},
		{"openByDefault", e.OpenByDefault, e.OpenByDefault},
		{"addButton", e.AddButton, e.AddButton != nil},
		{"deleteButton", e.DeleteButton, e.DeleteButton != nil},
		{"saveButton", e.SaveButton, e.SaveButton != nil},
	}
	for _, p := range puts {
		if err := out.put(p.key, p.value, p.set); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// IsGroupType reports whether a node type string denotes a group.
func IsGroupType(kind string) bool {
	return strings.EqualFold(kind, TypeGroup)
}

// DecodeNode decodes one layout entry into its concrete variant.
func DecodeNode(data []byte) (Node, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("layout: decode node: %w", err)
	}
	if IsGroupType(probe.Type) {
		group := &Group{}
		if err := group.UnmarshalJSON(data); err != nil {
			return nil, err
		}
		return group, nil
	}
	component := &Component{}
	if err := component.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return component, nil
}

// Clone returns a deep copy of node. Mutating the copy never affects the source.
func Clone(node Node) Node {
	switch n := node.(type) {
	case *Component:
		out := *n
		out.Base = n.Base.clone()
		return &out
	case *Group:
		out := *n
		out.Base = n.Base.clone()
		out.Children = append([]string(nil), n.Children...)
		out.Triggers = append([]string(nil), n.Triggers...)
		if n.Edit != nil {
			edit := *n.Edit
			edit.Filter = append([]FilterRule(nil), n.Edit.Filter...)
			edit.raw = n.Edit.raw.clone()
			out.Edit = &edit
		}
		return &out
	default:
		return nil
	}
}

// AsGroup returns node as a group when it is one.
func AsGroup(node Node) (*Group, bool) {
	group, ok := node.(*Group)
	return group, ok
}

// object is a decoded JSON object whose values are left encoded.
type object map[string]json.RawMessage

func decodeObject(data []byte) (object, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("layout: node must be a JSON object")
	}
	var raw object
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("layout: decode node: %w", err)
	}
	return raw, nil
}

func (o object) get(key string, dst any) error {
	value, ok := o[key]
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return fmt.Errorf("layout: attribute %q: %w", key, err)
	}
	return nil
}

// put encodes value under key when set is true or the source object already
// carried the key, so explicit zero values survive a round trip.
func (o object) put(key string, value any, set bool) error {
	if _, present := o[key]; !set && !present {
		return nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("layout: encode attribute %q: %w", key, err)
	}
	o[key] = encoded
	return nil
}

func (o object) clone() object {
	out := make(object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
