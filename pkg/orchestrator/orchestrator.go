package orchestrator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-formfill/pkg/formdata"
	"github.com/goliatone/go-formfill/pkg/lang"
	"github.com/goliatone/go-formfill/pkg/layout"
	"github.com/goliatone/go-formfill/pkg/repeating"
	"github.com/goliatone/go-formfill/pkg/rules"
	"github.com/goliatone/go-formfill/pkg/textresource"
	"github.com/goliatone/go-formfill/pkg/validation"
)

const (
	defaultMaxRuleIterations = 16
	defaultLanguage          = "en"
)

// Option customises a Session.
type Option func(*Session)

// WithSettings supplies the layout-set settings (page order).
func WithSettings(settings layout.Settings) Option {
	return func(s *Session) {
		s.settings = settings
	}
}

// WithFormData seeds the session with existing form data.
func WithFormData(fd formdata.FormData) Option {
	return func(s *Session) {
		s.initial = fd.Clone()
	}
}

// WithValidator supplies the compiled data model validator. Without one only
// required fields and component rules are checked.
func WithValidator(v validation.SchemaValidator) Option {
	return func(s *Session) {
		s.validator = v
	}
}

// WithLanguage picks the built-in language table best matching an
// Accept-Language style preference ("nb-NO, en;q=0.8").
func WithLanguage(preference string) Option {
	return func(s *Session) {
		s.language = preference
	}
}

// WithTranslator overrides the language table entirely.
func WithTranslator(t lang.Translator) Option {
	return func(s *Session) {
		s.translator = t
	}
}

// WithTextResources supplies the app's text resources.
func WithTextResources(rs textresource.Resources) Option {
	return func(s *Session) {
		s.resources = rs
	}
}

// WithRuleConfig supplies rule connections, conditional rendering rules and
// expression-backed functions.
func WithRuleConfig(cfg rules.Config) Option {
	return func(s *Session) {
		s.ruleConfig = cfg
	}
}

// WithRuleRegistry supplies the calculation rule functions.
func WithRuleRegistry(registry *rules.Registry) Option {
	return func(s *Session) {
		s.ruleFuncs = registry
	}
}

// WithConditionRegistry supplies the conditional rendering predicates.
func WithConditionRegistry(registry *rules.Registry) Option {
	return func(s *Session) {
		s.conditionFuncs = registry
	}
}

// WithAttachments supplies the uploaded attachments per component id.
func WithAttachments(attachments validation.Attachments) Option {
	return func(s *Session) {
		s.attachments = attachments
	}
}

// WithMaxRuleIterations caps how many writes one SetField may settle,
// the user's own write included.
func WithMaxRuleIterations(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxIterations = n
		}
	}
}

// WithAPIMode sets the save mode CanSubmit checks against
// (validation.APIModeComplete by default).
func WithAPIMode(mode string) Option {
	return func(s *Session) {
		if mode != "" {
			s.apiMode = mode
		}
	}
}

// Session holds the live state of one form being filled. It is safe for
// concurrent use; mutations are serialised.
type Session struct {
	layouts        layout.Layouts
	settings       layout.Settings
	validator      validation.SchemaValidator
	translator     lang.Translator
	language       string
	resources      textresource.Resources
	ruleConfig     rules.Config
	ruleFuncs      *rules.Registry
	conditionFuncs *rules.Registry
	attachments    validation.Attachments
	maxIterations  int
	apiMode        string
	initial        formdata.FormData

	mu    sync.Mutex
	state *state
}

// State is a point-in-time copy of a session.
type State struct {
	FormData         formdata.FormData      `json:"formData"`
	RepeatingGroups  repeating.Map          `json:"repeatingGroups"`
	HiddenFields     []string               `json:"hiddenFields"`
	Validations      validation.Validations `json:"validations"`
	InvalidDataTypes bool                   `json:"invalidDataTypes"`
	TextResources    textresource.Resources `json:"textResources,omitempty"`
}

// New builds a session over layouts and runs the initial pipeline: group
// counts, text variables, conditional rendering and a full validation.
func New(layouts layout.Layouts, options ...Option) (*Session, error) {
	if len(layouts) == 0 {
		return nil, errors.New("orchestrator: layouts are required")
	}
	s := &Session{
		layouts:       layouts,
		language:      defaultLanguage,
		maxIterations: defaultMaxRuleIterations,
		apiMode:       validation.APIModeComplete,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.translator == nil {
		s.translator = lang.DefaultCatalog().Match(s.language)
	}
	if len(s.ruleConfig.Functions) > 0 {
		if s.ruleFuncs == nil {
			s.ruleFuncs = rules.NewRegistry()
		}
		if s.conditionFuncs == nil {
			s.conditionFuncs = rules.NewRegistry()
		}
		if err := s.ruleConfig.Register(s.ruleFuncs, s.conditionFuncs); err != nil {
			return nil, fmt.Errorf("orchestrator: rule functions: %w", err)
		}
	}

	st := &state{
		formData:    s.initial,
		validations: make(validation.Validations),
		imported:    make(validation.Validations),
		invalid:     make(map[string]bool),
	}
	if st.formData == nil {
		st.formData = make(formdata.FormData)
	}
	st.groups = repeating.ComputeAll(layouts, st.formData)
	s.refreshTexts(st)
	s.refreshHidden(st)
	s.validateAll(st)
	s.state = st
	return s, nil
}

// Layouts returns the session's layouts.
func (s *Session) Layouts() layout.Layouts { return s.layouts }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state.clone()
	return State{
		FormData:         st.formData,
		RepeatingGroups:  st.groups,
		HiddenFields:     st.hidden,
		Validations:      st.validations,
		InvalidDataTypes: len(st.invalid) > 0,
		TextResources:    st.texts,
	}
}
