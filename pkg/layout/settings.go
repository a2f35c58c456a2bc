package layout

// Settings carries the layout-set wide configuration.
type Settings struct {
	Pages PageSettings `json:"pages" yaml:"pages"`
}

// PageSettings declares page navigation order and per-page overrides.
type PageSettings struct {
	Order          []string              `json:"order" yaml:"order"`
	ExcludeFromPdf []string              `json:"excludeFromPdf,omitempty" yaml:"excludeFromPdf,omitempty"`
	Triggers       []string              `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Navigation     map[string]Navigation `json:"navigation,omitempty" yaml:"navigation,omitempty"`
}

// Navigation overrides the next/previous target of a page.
type Navigation struct {
	Next     string `json:"next,omitempty" yaml:"next,omitempty"`
	Previous string `json:"previous,omitempty" yaml:"previous,omitempty"`
}

// OrderedPages returns the declared order, or every page name sorted when
// no order is configured.
func (s Settings) OrderedPages(layouts Layouts) []string {
	if len(s.Pages.Order) > 0 {
		return append([]string(nil), s.Pages.Order...)
	}
	return layouts.PageNames()
}

// Next returns the page following page, honouring overrides. It returns ""
// on the last page or for an unknown page.
func (s Settings) Next(page string) string {
	if nav, ok := s.Pages.Navigation[page]; ok && nav.Next != "" {
		return nav.Next
	}
	for i, name := range s.Pages.Order {
		if name == page && i+1 < len(s.Pages.Order) {
			return s.Pages.Order[i+1]
		}
	}
	return ""
}

// Previous returns the page preceding page, honouring overrides.
func (s Settings) Previous(page string) string {
	if nav, ok := s.Pages.Navigation[page]; ok && nav.Previous != "" {
		return nav.Previous
	}
	for i, name := range s.Pages.Order {
		if name == page && i > 0 {
			return s.Pages.Order[i-1]
		}
	}
	return ""
}

// InOrder reports whether page takes part in navigation.
func (s Settings) InOrder(page string) bool {
	for _, name := range s.Pages.Order {
		if name == page {
			return true
		}
	}
	return false
}
