package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/entities/movement"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence/models"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/repo"
)

const (
	movementFindQuery = `
        SELECT
            m.id,
            m.item_id,
            m.from_unit_id,
            m.to_unit_id,
            m.moved_by,
            m.moved_at,
            m.comment
        FROM movements m`

	movementInsertQuery = `INSERT INTO movements (item_id, from_unit_id, to_unit_id, moved_by, comment) VALUES`
	movementDeleteQuery = `DELETE FROM movements WHERE item_id = ANY($1)`
	movementCountQuery  = `SELECT COUNT(m.id) FROM movements m WHERE m.item_id = ANY($1)`
)

type PgMovementRepository struct{}

func NewMovementRepository() movement.Repository {
	return &PgMovementRepository{}
}

func (g *PgMovementRepository) CreateMany(ctx context.Context, movements []movement.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	values := make([][]interface{}, 0, len(movements))
	for _, m := range movements {
		values = append(values, []interface{}{
			m.ItemID(),
			dbUint(m.FromUnitID()),
			m.ToUnitID(),
			m.MovedBy(),
			m.Comment(),
		})
	}
	q, args := repo.BatchInsertQueryN(movementInsertQuery, values)
	if _, err := tx.Exec(ctx, q, args...); err != nil {
		return errors.Wrap(err, "failed to insert movements")
	}
	return nil
}

func (g *PgMovementRepository) GetByItemID(ctx context.Context, itemID uint) ([]movement.Movement, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, movementFindQuery+" WHERE m.item_id = $1 ORDER BY m.moved_at, m.id", itemID)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to query movements for item ID: %d", itemID))
	}
	defer rows.Close()

	entities := make([]movement.Movement, 0)
	for rows.Next() {
		var m models.Movement
		if err := rows.Scan(
			&m.ID,
			&m.ItemID,
			&m.FromUnitID,
			&m.ToUnitID,
			&m.MovedBy,
			&m.MovedAt,
			&m.Comment,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan movement row")
		}
		entities = append(entities, ToDomainMovement(&m))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entities, nil
}

func (g *PgMovementRepository) DeleteByItemIDs(ctx context.Context, itemIDs []uint) error {
	if len(itemIDs) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, movementDeleteQuery, toInt64s(itemIDs)); err != nil {
		return errors.Wrap(err, "failed to delete movements")
	}
	return nil
}

func (g *PgMovementRepository) CountByItemIDs(ctx context.Context, itemIDs []uint) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	var count int64
	if err := tx.QueryRow(ctx, movementCountQuery, toInt64s(itemIDs)).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count movements")
	}
	return count, nil
}
