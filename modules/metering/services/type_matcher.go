package services

import (
	"context"
	"sort"
	"strings"

	"github.com/enerflow/metering/modules/metering/domain/entities/typerule"
)

// TypeMatcher infers electrical attributes from free-text device
// descriptors. Only active rules of the requested scope are tried, longest
// pattern first; the first rule whose pattern prefixes the normalized
// descriptor or occurs inside it wins.
type TypeMatcher struct {
	rules typerule.Repository
}

func NewTypeMatcher(rules typerule.Repository) *TypeMatcher {
	return &TypeMatcher{rules: rules}
}

func (m *TypeMatcher) Match(ctx context.Context, descriptor string, scope typerule.Scope) (typerule.Rule, bool, error) {
	if strings.TrimSpace(descriptor) == "" {
		return typerule.Rule{}, false, nil
	}
	rules, err := m.rules.GetAll(ctx)
	if err != nil {
		return typerule.Rule{}, false, err
	}
	// The repository orders longest-first already; re-sort so the matcher
	// does not depend on store ordering.
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].Pattern()) > len(rules[j].Pattern())
	})
	for _, rule := range rules {
		if !rule.Active() || rule.Scope() != scope {
			continue
		}
		if rule.Matches(descriptor) {
			return rule, true, nil
		}
	}
	return typerule.Rule{}, false, nil
}
