package seed

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence"
	"github.com/enerflow/metering/pkg/configuration"
)

type actorSpec struct {
	fullName string
	role     actor.Role
	unitCode string
}

var bootstrapActors = []actorSpec{
	{"Registry Administrator", actor.RoleCentralAdmin, "CENTRAL"},
	{"Laboratory Operator", actor.RoleLabOperator, "LAB"},
	{"Connection Administrator", actor.RoleTechCentralAdmin, "TECH"},
}

// SeedActors creates one bootstrap operator per central unit. Matching by
// full name keeps the seeder idempotent without a natural key on actors.
func SeedActors(ctx context.Context) error {
	actors := persistence.NewActorRepository()
	units := persistence.NewUnitRepository()
	logger := configuration.Use().Logger()

	existing, err := actors.GetAll(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]bool, len(existing))
	for _, a := range existing {
		byName[a.FullName()] = true
	}

	for _, spec := range bootstrapActors {
		if byName[spec.fullName] {
			logger.Infof("actor %q already exists", spec.fullName)
			continue
		}
		home, err := units.GetByCode(ctx, spec.unitCode)
		if err != nil {
			return errors.Wrapf(err, "home unit %s", spec.unitCode)
		}
		homeID := home.ID()
		logger.Infof("creating actor %q", spec.fullName)
		if _, err := actors.Create(ctx, actor.New(spec.role, &homeID, spec.fullName)); err != nil {
			return errors.Wrapf(err, "actor %q", spec.fullName)
		}
	}
	return nil
}
