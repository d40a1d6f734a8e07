package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/enerflow/metering/modules/metering/domain/entities/register"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence/models"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/repo"
)

const (
	registerFindQuery = `
        SELECT
            r.id,
            r.ref,
            r.filename,
            r.imported_by,
            r.row_count,
            r.created_at
        FROM import_registers r`

	registerDeleteQuery = `DELETE FROM import_registers WHERE id = $1`
)

type PgRegisterRepository struct{}

func NewRegisterRepository() register.Repository {
	return &PgRegisterRepository{}
}

func (g *PgRegisterRepository) GetByID(ctx context.Context, id uint) (register.Register, error) {
	registers, err := g.queryRegisters(ctx, registerFindQuery+" WHERE r.id = $1", id)
	if err != nil {
		return register.Register{}, errors.Wrap(err, fmt.Sprintf("failed to query register with id: %d", id))
	}
	if len(registers) == 0 {
		return register.Register{}, fmt.Errorf("id: %d: %w", id, register.ErrNotFound)
	}
	return registers[0], nil
}

func (g *PgRegisterRepository) GetByRef(ctx context.Context, ref uuid.UUID) (register.Register, error) {
	registers, err := g.queryRegisters(ctx, registerFindQuery+" WHERE r.ref = $1", ref.String())
	if err != nil {
		return register.Register{}, errors.Wrap(err, fmt.Sprintf("failed to query register with ref: %s", ref))
	}
	if len(registers) == 0 {
		return register.Register{}, fmt.Errorf("ref: %s: %w", ref, register.ErrNotFound)
	}
	return registers[0], nil
}

func (g *PgRegisterRepository) GetAll(ctx context.Context) ([]register.Register, error) {
	registers, err := g.queryRegisters(ctx, registerFindQuery+" ORDER BY r.created_at DESC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get all registers")
	}
	return registers, nil
}

func (g *PgRegisterRepository) Create(ctx context.Context, entity register.Register) (register.Register, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return register.Register{}, errors.Wrap(err, "failed to get transaction")
	}

	fields := []string{"ref", "filename", "imported_by", "row_count"}
	values := []interface{}{entity.Ref().String(), entity.Filename(), entity.ImportedBy(), entity.RowCount()}

	var id uint
	q := repo.Insert("import_registers", fields, "id")
	if err := tx.QueryRow(ctx, q, values...).Scan(&id); err != nil {
		return register.Register{}, errors.Wrap(err, "failed to insert register")
	}
	return g.GetByID(ctx, id)
}

func (g *PgRegisterRepository) Delete(ctx context.Context, id uint) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, registerDeleteQuery, id); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to delete register with ID: %d", id))
	}
	return nil
}

func (g *PgRegisterRepository) queryRegisters(ctx context.Context, query string, args ...interface{}) ([]register.Register, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	entities := make([]register.Register, 0)
	for rows.Next() {
		var r models.ImportRegister
		if err := rows.Scan(
			&r.ID,
			&r.Ref,
			&r.Filename,
			&r.ImportedBy,
			&r.RowCount,
			&r.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan register row")
		}
		entity, err := ToDomainRegister(&r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert register to domain entity")
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entities, nil
}
