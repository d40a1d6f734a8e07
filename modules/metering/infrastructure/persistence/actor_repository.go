package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence/models"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/repo"
)

const (
	actorFindQuery = `
        SELECT
            a.id,
            a.role,
            a.home_unit_id,
            a.full_name,
            a.active
        FROM actors a`
)

type PgActorRepository struct{}

func NewActorRepository() actor.Repository {
	return &PgActorRepository{}
}

func (g *PgActorRepository) GetByID(ctx context.Context, id uint) (actor.Actor, error) {
	actors, err := g.queryActors(ctx, actorFindQuery+" WHERE a.id = $1", id)
	if err != nil {
		return actor.Actor{}, errors.Wrap(err, fmt.Sprintf("failed to query actor with id: %d", id))
	}
	if len(actors) == 0 {
		return actor.Actor{}, fmt.Errorf("id: %d: %w", id, actor.ErrNotFound)
	}
	return actors[0], nil
}

func (g *PgActorRepository) GetAll(ctx context.Context) ([]actor.Actor, error) {
	actors, err := g.queryActors(ctx, actorFindQuery+" ORDER BY a.id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get all actors")
	}
	return actors, nil
}

func (g *PgActorRepository) Create(ctx context.Context, entity actor.Actor) (actor.Actor, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return actor.Actor{}, errors.Wrap(err, "failed to get transaction")
	}

	dbActor := toDBActor(entity)
	fields := []string{
		"role",
		"home_unit_id",
		"full_name",
		"active",
	}
	values := []interface{}{
		dbActor.Role,
		dbActor.HomeUnitID,
		dbActor.FullName,
		dbActor.Active,
	}

	q := repo.Insert("actors", fields, "id")
	if err := tx.QueryRow(ctx, q, values...).Scan(&dbActor.ID); err != nil {
		return actor.Actor{}, errors.Wrap(err, "failed to insert actor")
	}
	return g.GetByID(ctx, dbActor.ID)
}

func (g *PgActorRepository) queryActors(ctx context.Context, query string, args ...interface{}) ([]actor.Actor, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	entities := make([]actor.Actor, 0)
	for rows.Next() {
		var a models.Actor
		if err := rows.Scan(
			&a.ID,
			&a.Role,
			&a.HomeUnitID,
			&a.FullName,
			&a.Active,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan actor row")
		}
		entity, err := ToDomainActor(&a)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert actor to domain entity")
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entities, nil
}
