package typerule

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

var ErrNotFound = errors.New("type rule not found")

// Scope says which workflow branch a rule infers attributes for: items
// entering the technical-connection flow or items handled inside a region.
type Scope string

const (
	ScopeTech   Scope = "TECH"
	ScopeRegion Scope = "REGION"
)

func (s Scope) IsValid() bool {
	return s == ScopeTech || s == ScopeRegion
}

// Rule maps a device type description pattern to electrical defaults.
// Patterns are matched case-insensitively against the start of the
// normalized description, longest pattern first. Inactive rules are kept in
// the store but never match.
type Rule struct {
	id         uint
	pattern    string
	phase      string
	voltage    string
	formFactor string
	power      float64
	scope      Scope
	active     bool
}

func New(pattern, phase, voltage, formFactor string, power float64, scope Scope) Rule {
	return Rule{
		pattern:    strings.ToUpper(strings.TrimSpace(pattern)),
		phase:      phase,
		voltage:    voltage,
		formFactor: formFactor,
		power:      power,
		scope:      scope,
		active:     true,
	}
}

func Hydrate(id uint, pattern, phase, voltage, formFactor string, power float64, scope Scope, active bool) Rule {
	return Rule{
		id:         id,
		pattern:    strings.ToUpper(strings.TrimSpace(pattern)),
		phase:      phase,
		voltage:    voltage,
		formFactor: formFactor,
		power:      power,
		scope:      scope,
		active:     active,
	}
}

func (r Rule) ID() uint           { return r.id }
func (r Rule) Pattern() string    { return r.pattern }
func (r Rule) Phase() string      { return r.phase }
func (r Rule) Voltage() string    { return r.voltage }
func (r Rule) FormFactor() string { return r.formFactor }
func (r Rule) Power() float64     { return r.power }
func (r Rule) Scope() Scope       { return r.scope }
func (r Rule) Active() bool       { return r.active }

func (r Rule) WithActive(active bool) Rule {
	r.active = active
	return r
}

// Matches reports whether the rule's pattern occurs at the start of the
// normalized description or anywhere within it.
func (r Rule) Matches(description string) bool {
	if r.pattern == "" {
		return false
	}
	normalized := strings.ToUpper(strings.TrimSpace(description))
	return strings.HasPrefix(normalized, r.pattern) || strings.Contains(normalized, r.pattern)
}

type Repository interface {
	GetAll(ctx context.Context) ([]Rule, error)
	Create(ctx context.Context, rule Rule) (Rule, error)
}
