package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrDuplicatePage is returned when two files define the same page.
var ErrDuplicatePage = errors.New("layout: duplicate page")

// Set is a loaded layout set: its pages plus settings.
type Set struct {
	Layouts  Layouts
	Settings Settings
}

// LoadFS walks fsys and parses JSON/YAML layout files. A file named
// Settings.* holds the settings; a file of shape {"data":{"layout":[...]}}
// is a single page named after the file; any other object maps page names to
// component lists. A nil fsys yields an empty set.
func LoadFS(fsys fs.FS) (*Set, error) {
	set := &Set{Layouts: make(Layouts)}
	if fsys == nil {
		return set, nil
	}

	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isLayoutFile(name) {
			return nil
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("layout: read %s: %w", name, err)
		}
		doc, err := parseDocument(data, name)
		if err != nil {
			return err
		}

		stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
		if strings.EqualFold(stem, "settings") {
			if err := json.Unmarshal(doc, &set.Settings); err != nil {
				return fmt.Errorf("layout: settings %s: %w", name, err)
			}
			return nil
		}

		pages, err := decodePages(doc, stem)
		if err != nil {
			return fmt.Errorf("layout: file %s: %w", name, err)
		}
		for pageName, page := range pages {
			if _, exists := set.Layouts[pageName]; exists {
				return fmt.Errorf("%w %q (file %s)", ErrDuplicatePage, pageName, name)
			}
			set.Layouts[pageName] = page
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func isLayoutFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// parseDocument returns the file content as JSON, converting YAML input.
func parseDocument(data []byte, source string) (json.RawMessage, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("layout: file %s is empty", source)
	}
	if json.Valid(data) {
		return data, nil
	}

	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("layout: parse %s: invalid JSON or YAML", source)
	}
	converted, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("layout: parse %s: %w", source, err)
	}
	return converted, nil
}

func decodePages(doc json.RawMessage, stem string) (Layouts, error) {
	var wrapped struct {
		Data *struct {
			Layout *Page `json:"layout"`
		} `json:"data"`
	}
	if err := json.Unmarshal(doc, &wrapped); err == nil && wrapped.Data != nil && wrapped.Data.Layout != nil {
		return Layouts{stem: *wrapped.Data.Layout}, nil
	}
	return ParseLayouts(doc)
}
