package datamodel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

const defaultMaxRefDepth = 64

var (
	// ErrRefCycle is returned for recursive schemas, which cannot be inlined.
	ErrRefCycle = errors.New("datamodel: $ref cycle")
	// ErrExternalRef is returned for refs outside the schema document.
	ErrExternalRef = errors.New("datamodel: only same-document $ref is supported")
)

type refState struct {
	stack   []string
	inStack map[string]struct{}
}

func (s *refState) push(ref string) {
	s.stack = append(s.stack, ref)
	if s.inStack == nil {
		s.inStack = make(map[string]struct{})
	}
	s.inStack[ref] = struct{}{}
}

func (s *refState) pop() {
	if len(s.stack) == 0 {
		return
	}
	last := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.inStack, last)
}

func (s *refState) contains(ref string) bool {
	_, ok := s.inStack[ref]
	return ok
}

// inliner replaces every same-document $ref with a copy of its target.
type inliner struct {
	root     map[string]any
	maxDepth int
}

func (in *inliner) inline(node any, state *refState) (any, error) {
	switch typed := node.(type) {
	case map[string]any:
		if ref, ok := typed["$ref"].(string); ok && strings.TrimSpace(ref) != "" {
			return in.inlineRef(strings.TrimSpace(ref), typed, state)
		}
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			switch key {
			case "$defs", "definitions":
				// targets are copied in at their use sites
				continue
			case "enum", "const", "default", "examples", "required":
				out[key] = value
				continue
			case "properties", "patternProperties":
				members, ok := value.(map[string]any)
				if !ok {
					out[key] = value
					continue
				}
				resolvedMembers := make(map[string]any, len(members))
				for name, member := range members {
					resolved, err := in.inline(member, state)
					if err != nil {
						return nil, err
					}
					resolvedMembers[name] = resolved
				}
				out[key] = resolvedMembers
				continue
			}
			resolved, err := in.inline(value, state)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i, entry := range typed {
			resolved, err := in.inline(entry, state)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return node, nil
	}
}

func (in *inliner) inlineRef(ref string, refObj map[string]any, state *refState) (any, error) {
	if !strings.HasPrefix(ref, "#") {
		return nil, fmt.Errorf("%w (%s)", ErrExternalRef, ref)
	}
	if len(state.stack) >= in.maxDepth {
		return nil, fmt.Errorf("datamodel: ref depth exceeds %d", in.maxDepth)
	}
	if state.contains(ref) {
		return nil, fmt.Errorf("%w at %s", ErrRefCycle, ref)
	}
	target, err := resolvePointer(in.root, ref)
	if err != nil {
		return nil, err
	}
	merged := mergeRefTarget(target, refObj)

	state.push(ref)
	defer state.pop()
	return in.inline(merged, state)
}

func resolvePointer(root map[string]any, ref string) (any, error) {
	fragment := strings.TrimPrefix(ref, "#")
	if fragment == "" {
		return cloneAny(root), nil
	}
	pointer, err := jsonpointer.New(fragment)
	if err != nil {
		return nil, fmt.Errorf("datamodel: invalid ref %q: %w", ref, err)
	}
	target, _, err := pointer.Get(root)
	if err != nil {
		return nil, fmt.Errorf("datamodel: resolve ref %q: %w", ref, err)
	}
	return cloneAny(target), nil
}

// mergeRefTarget overlays the siblings of a $ref onto a copy of its target.
func mergeRefTarget(target any, refObj map[string]any) any {
	targetMap, ok := target.(map[string]any)
	if !ok {
		return target
	}
	for key, value := range refObj {
		if key == "$ref" {
			continue
		}
		targetMap[key] = value
	}
	return targetMap
}

func cloneAny(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, val := range typed {
			out[key] = cloneAny(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = cloneAny(val)
		}
		return out
	default:
		return value
	}
}
