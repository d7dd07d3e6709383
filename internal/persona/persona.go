// Package persona loads tutor personas and their teaching policies.
package persona

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RemediationStyle selects the kind of alternate explanation given after
// repeated failed checks.
type RemediationStyle string

const (
	StyleAnalogy RemediationStyle = "analogy"
	StyleExample RemediationStyle = "example"
	StyleBoth    RemediationStyle = "both"
)

// AfterFailure is the choice applied when the learner answers the
// post-failure prompt with empty input or a bare yes.
type AfterFailure string

const (
	AfterFailureAdvance AfterFailure = "advance"
	AfterFailureStay    AfterFailure = "stay"
)

// Policy governs what happens when comprehension checks fail. A Policy is a
// value: callers receive copies and cannot change a loaded persona.
type Policy struct {
	MaxAttemptsPerPoint   int              `yaml:"max_attempts_per_point" json:"max_attempts_per_point" validate:"min=1"`
	RemediationStyle      RemediationStyle `yaml:"remediation_style" json:"remediation_style" validate:"oneof=analogy example both"`
	AllowAdvanceOnFailure bool             `yaml:"allow_advance_on_failure" json:"allow_advance_on_failure"`
	DefaultAfterFailure   AfterFailure     `yaml:"default_after_failure" json:"default_after_failure" validate:"oneof=advance stay"`
	MaxFollowupsPerPoint  int              `yaml:"max_followups_per_point" json:"max_followups_per_point" validate:"min=0"`
}

// DefaultPolicy is applied to personas that do not declare one.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttemptsPerPoint:   2,
		RemediationStyle:      StyleBoth,
		AllowAdvanceOnFailure: true,
		DefaultAfterFailure:   AfterFailureStay,
		MaxFollowupsPerPoint:  1,
	}
}

// DefaultsToAdvance reports whether empty input after a failure advances.
func (p Policy) DefaultsToAdvance() bool {
	return p.DefaultAfterFailure == AfterFailureAdvance
}

// Persona is a configured teaching personality.
type Persona struct {
	ID         string `yaml:"id" json:"id" validate:"required"`
	Name       string `yaml:"name" json:"name" validate:"required"`
	ShortTitle string `yaml:"short_title" json:"short_title"`
	Background string `yaml:"background" json:"background"`
	StyleRules string `yaml:"style_rules" json:"style_rules"`
	Default    bool   `yaml:"default" json:"default"`
	Policy     Policy `yaml:"teaching_policy" json:"teaching_policy"`
}

// Registry holds the personas available to the tutor. It is read-only after
// construction.
type Registry struct {
	byID  map[string]Persona
	order []string
}

// ErrNotFound is returned by Get for unknown persona ids.
var ErrNotFound = errors.New("persona not found")

// fileDoc is the personas_v1.yaml layout.
type fileDoc struct {
	Personas map[string]filePersona `yaml:"personas"`
}

type filePersona struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	ShortTitle string  `yaml:"short_title"`
	Background string  `yaml:"background"`
	StyleRules string  `yaml:"style_rules"`
	Default    bool    `yaml:"default"`
	Policy     *Policy `yaml:"teaching_policy"`
}

var validate = validator.New()

// Load reads personas from a YAML file. A missing file yields the built-in
// personas; a malformed or invalid file is an error.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Builtin(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read personas: %w", err)
	}
	return Parse(data)
}

// Parse decodes a personas document.
func Parse(data []byte) (*Registry, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}
	if len(doc.Personas) == 0 {
		return nil, fmt.Errorf("decode personas: no personas defined")
	}

	list := make([]Persona, 0, len(doc.Personas))
	for key, fp := range doc.Personas {
		p := Persona{
			ID:         fp.ID,
			Name:       fp.Name,
			ShortTitle: fp.ShortTitle,
			Background: fp.Background,
			StyleRules: fp.StyleRules,
			Default:    fp.Default,
			Policy:     DefaultPolicy(),
		}
		if p.ID == "" {
			p.ID = key
		}
		if p.Name == "" {
			p.Name = key
		}
		if fp.Policy != nil {
			p.Policy = mergePolicy(*fp.Policy)
		}
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("persona %q: %w", key, err)
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return NewRegistry(list...), nil
}

// mergePolicy fills the zero-valued enum fields of a partially specified
// policy with defaults. Numeric fields are taken as written.
func mergePolicy(p Policy) Policy {
	def := DefaultPolicy()
	if p.RemediationStyle == "" {
		p.RemediationStyle = def.RemediationStyle
	}
	if p.DefaultAfterFailure == "" {
		p.DefaultAfterFailure = def.DefaultAfterFailure
	}
	if p.MaxAttemptsPerPoint == 0 {
		p.MaxAttemptsPerPoint = def.MaxAttemptsPerPoint
	}
	return p
}

// NewRegistry builds a registry preserving the given order.
func NewRegistry(personas ...Persona) *Registry {
	r := &Registry{byID: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		if _, dup := r.byID[p.ID]; !dup {
			r.order = append(r.order, p.ID)
		}
		r.byID[p.ID] = p
	}
	return r
}

// Get returns a copy of the persona with the given id.
func (r *Registry) Get(id string) (Persona, error) {
	p, ok := r.byID[id]
	if !ok {
		return Persona{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

// Resolve returns the persona for id, or the default persona when id is empty.
func (r *Registry) Resolve(id string) (Persona, error) {
	if id == "" {
		return r.Default(), nil
	}
	return r.Get(id)
}

// Default returns the persona marked default, else the first one.
func (r *Registry) Default() Persona {
	for _, id := range r.order {
		if r.byID[id].Default {
			return r.byID[id]
		}
	}
	if len(r.order) > 0 {
		return r.byID[r.order[0]]
	}
	return builtinPersonas[0]
}

// List returns all personas in registry order.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}
