package seed

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/entities/typerule"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence"
	"github.com/enerflow/metering/pkg/configuration"
)

type ruleSpec struct {
	pattern    string
	phase      string
	voltage    string
	formFactor string
	power      float64
	scope      typerule.Scope
}

// defaultTypeRules cover the meter families the fleet actually carries.
// Longer patterns take precedence over family-wide fallbacks at match time.
var defaultTypeRules = []ruleSpec{
	{"NARTIS-I100-W113", "P1", "230", "SPLIT", 5, typerule.ScopeTech},
	{"NARTIS-I300", "P3", "400", "SPLIT", 60, typerule.ScopeTech},
	{"NARTIS", "P3", "400", "SPLIT", 60, typerule.ScopeTech},
	{"FOBOS-1", "P1", "230", "MONO", 5, typerule.ScopeTech},
	{"FOBOS-3", "P3", "400", "MONO", 60, typerule.ScopeTech},
	{"MIR-C04", "P1", "230", "MONO", 5, typerule.ScopeRegion},
	{"MIR-C05", "P3", "400", "MONO", 60, typerule.ScopeRegion},
}

// SeedTypeRules installs the descriptor matching table, skipping patterns
// already present.
func SeedTypeRules(ctx context.Context) error {
	rules := persistence.NewTypeRuleRepository()
	logger := configuration.Use().Logger()

	existing, err := rules.GetAll(ctx)
	if err != nil {
		return err
	}
	byPattern := make(map[string]bool, len(existing))
	for _, rule := range existing {
		byPattern[rule.Pattern()] = true
	}

	for _, spec := range defaultTypeRules {
		rule := typerule.New(spec.pattern, spec.phase, spec.voltage, spec.formFactor, spec.power, spec.scope)
		if byPattern[rule.Pattern()] {
			logger.Infof("type rule %s already exists", rule.Pattern())
			continue
		}
		logger.Infof("creating type rule %s", rule.Pattern())
		if _, err := rules.Create(ctx, rule); err != nil {
			return errors.Wrapf(err, "type rule %s", spec.pattern)
		}
	}
	return nil
}
