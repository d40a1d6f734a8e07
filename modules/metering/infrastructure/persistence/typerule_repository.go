package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/entities/typerule"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence/models"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/repo"
)

const (
	typeRuleFindQuery = `
        SELECT
            r.id,
            r.pattern,
            r.phase,
            r.voltage,
            r.form_factor,
            r.power,
            r.applies_to,
            r.active
        FROM type_rules r`
)

type PgTypeRuleRepository struct{}

func NewTypeRuleRepository() typerule.Repository {
	return &PgTypeRuleRepository{}
}

func (g *PgTypeRuleRepository) GetAll(ctx context.Context) ([]typerule.Rule, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, typeRuleFindQuery+" ORDER BY LENGTH(r.pattern) DESC, r.id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query type rules")
	}
	defer rows.Close()

	entities := make([]typerule.Rule, 0)
	for rows.Next() {
		var r models.TypeRule
		if err := rows.Scan(
			&r.ID,
			&r.Pattern,
			&r.Phase,
			&r.Voltage,
			&r.FormFactor,
			&r.Power,
			&r.AppliesTo,
			&r.Active,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan type rule row")
		}
		entities = append(entities, ToDomainTypeRule(&r))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entities, nil
}

func (g *PgTypeRuleRepository) Create(ctx context.Context, rule typerule.Rule) (typerule.Rule, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return typerule.Rule{}, errors.Wrap(err, "failed to get transaction")
	}

	fields := []string{"pattern", "phase", "voltage", "form_factor", "power", "applies_to", "active"}
	values := []interface{}{
		rule.Pattern(),
		rule.Phase(),
		rule.Voltage(),
		rule.FormFactor(),
		rule.Power(),
		string(rule.Scope()),
		rule.Active(),
	}

	var id uint
	q := repo.Insert("type_rules", fields, "id")
	if err := tx.QueryRow(ctx, q, values...).Scan(&id); err != nil {
		return typerule.Rule{}, errors.Wrap(err, "failed to insert type rule")
	}
	return typerule.Hydrate(
		id,
		rule.Pattern(),
		rule.Phase(),
		rule.Voltage(),
		rule.FormFactor(),
		rule.Power(),
		rule.Scope(),
		rule.Active(),
	), nil
}
