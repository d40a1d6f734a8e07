package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence/models"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/repo"
)

const (
	unitFindQuery = `
        SELECT
            u.id,
            u.name,
            u.code,
            u.short_code,
            u.unit_type,
            u.parent_id,
            u.active
        FROM units u`
)

type PgUnitRepository struct{}

func NewUnitRepository() unit.Repository {
	return &PgUnitRepository{}
}

func (g *PgUnitRepository) GetByID(ctx context.Context, id uint) (unit.Unit, error) {
	units, err := g.queryUnits(ctx, unitFindQuery+" WHERE u.id = $1", id)
	if err != nil {
		return unit.Unit{}, errors.Wrap(err, fmt.Sprintf("failed to query unit with id: %d", id))
	}
	if len(units) == 0 {
		return unit.Unit{}, fmt.Errorf("id: %d: %w", id, unit.ErrNotFound)
	}
	return units[0], nil
}

func (g *PgUnitRepository) GetByCode(ctx context.Context, code string) (unit.Unit, error) {
	units, err := g.queryUnits(ctx, unitFindQuery+" WHERE u.code = $1", code)
	if err != nil {
		return unit.Unit{}, errors.Wrap(err, fmt.Sprintf("failed to query unit with code: %s", code))
	}
	if len(units) == 0 {
		return unit.Unit{}, fmt.Errorf("code: %s: %w", code, unit.ErrNotFound)
	}
	return units[0], nil
}

func (g *PgUnitRepository) GetAllActive(ctx context.Context) ([]unit.Unit, error) {
	units, err := g.queryUnits(ctx, unitFindQuery+" WHERE u.active ORDER BY u.id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get active units")
	}
	return units, nil
}

func (g *PgUnitRepository) GetByTypes(ctx context.Context, types ...unit.Type) ([]unit.Unit, error) {
	typeNames := make([]string, 0, len(types))
	for _, t := range types {
		typeNames = append(typeNames, string(t))
	}
	units, err := g.queryUnits(ctx, unitFindQuery+" WHERE u.active AND u.unit_type = ANY($1) ORDER BY u.id", typeNames)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get units by type")
	}
	return units, nil
}

func (g *PgUnitRepository) Create(ctx context.Context, entity unit.Unit) (unit.Unit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return unit.Unit{}, errors.Wrap(err, "failed to get transaction")
	}

	dbUnit := toDBUnit(entity)
	fields := []string{
		"name",
		"code",
		"short_code",
		"unit_type",
		"parent_id",
		"active",
	}
	values := []interface{}{
		dbUnit.Name,
		dbUnit.Code,
		dbUnit.ShortCode,
		dbUnit.UnitType,
		dbUnit.ParentID,
		dbUnit.Active,
	}

	q := repo.Insert("units", fields, "id")
	if err := tx.QueryRow(ctx, q, values...).Scan(&dbUnit.ID); err != nil {
		return unit.Unit{}, errors.Wrap(err, "failed to insert unit")
	}
	return g.GetByID(ctx, dbUnit.ID)
}

func (g *PgUnitRepository) queryUnits(ctx context.Context, query string, args ...interface{}) ([]unit.Unit, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	entities := make([]unit.Unit, 0)
	for rows.Next() {
		var u models.Unit
		if err := rows.Scan(
			&u.ID,
			&u.Name,
			&u.Code,
			&u.ShortCode,
			&u.UnitType,
			&u.ParentID,
			&u.Active,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan unit row")
		}
		entity, err := ToDomainUnit(&u)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert unit to domain entity")
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entities, nil
}
