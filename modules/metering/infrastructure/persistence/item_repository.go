package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence/models"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/repo"
)

const (
	itemFindQuery = `
        SELECT
            i.id,
            i.register_id,
            i.serial_number,
            i.type_desc,
            i.target_unit_id,
            i.current_unit_id,
            i.work_status,
            i.approval_status,
            i.approved_by,
            i.approved_at,
            i.phase,
            i.voltage,
            i.form_factor,
            i.power,
            i.contract_number,
            i.contract_date,
            i.planned_date,
            i.consumer_name,
            i.consumer_address,
            i.account_number,
            i.spec_code,
            i.request_code,
            i.created_at,
            i.updated_at
        FROM items i`

	itemCountQuery         = `SELECT COUNT(i.id) FROM items i`
	itemCountByStatusQuery = `SELECT i.work_status, COUNT(i.id) FROM items i`
	itemExistsQuery        = `SELECT 1 FROM items i`

	itemUpdateQuery = `
        UPDATE items SET
            target_unit_id = $1,
            current_unit_id = $2,
            work_status = $3,
            approval_status = $4,
            approved_by = $5,
            approved_at = $6,
            phase = $7,
            voltage = $8,
            form_factor = $9,
            power = $10,
            contract_number = $11,
            contract_date = $12,
            planned_date = $13,
            consumer_name = $14,
            consumer_address = $15,
            account_number = $16,
            spec_code = $17,
            request_code = $18,
            updated_at = NOW()
        WHERE id = $19`

	itemDeleteQuery     = `DELETE FROM items WHERE id = ANY($1)`
	itemSetSpecQuery    = `UPDATE items SET spec_code = $1, updated_at = NOW() WHERE id = ANY($2)`
	itemSetRequestQuery = `UPDATE items SET request_code = $1, updated_at = NOW() WHERE id = ANY($2)`

	// Document codes are claimed in a dedicated table; its primary key is
	// what turns a concurrent duplicate into a unique violation, since one
	// code legitimately stamps many item rows.
	codeClaimQuery    = `INSERT INTO document_codes (kind, code) VALUES ($1, $2)`
	codeExistsQuery   = `SELECT EXISTS (SELECT 1 FROM document_codes WHERE kind = $1 AND code = $2)`
	requestCodesQuery = `SELECT code FROM document_codes WHERE kind = $1`
	specCodeKind      = "SPEC"
	requestCodeKind   = "REQUEST"
)

type PgItemRepository struct{}

func NewItemRepository() item.Repository {
	return &PgItemRepository{}
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}

func (g *PgItemRepository) buildItemFilters(params *item.FindParams) ([]string, []interface{}) {
	where := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)

	if params.UnitScoped {
		where = append(where, fmt.Sprintf("i.current_unit_id = ANY($%d)", len(args)+1))
		args = append(args, toInt64s(params.UnitIDs))
	}
	if params.CurrentUnitID != nil {
		where = append(where, fmt.Sprintf("i.current_unit_id = $%d", len(args)+1))
		args = append(args, int64(*params.CurrentUnitID))
	}
	if len(params.RegisterIDs) > 0 {
		where = append(where, fmt.Sprintf("i.register_id = ANY($%d)", len(args)+1))
		args = append(args, toInt64s(params.RegisterIDs))
	}
	if len(params.Statuses) > 0 {
		statuses := make([]string, 0, len(params.Statuses))
		for _, s := range params.Statuses {
			statuses = append(statuses, string(s))
		}
		where = append(where, fmt.Sprintf("i.work_status = ANY($%d)", len(args)+1))
		args = append(args, statuses)
	}
	if params.Search != "" {
		where = append(where, fmt.Sprintf("i.serial_number ILIKE $%d", len(args)+1))
		args = append(args, "%"+params.Search+"%")
	}
	if params.WithContractOnly {
		where = append(where, "i.contract_number IS NOT NULL")
	}
	if params.WithoutSpecCode {
		where = append(where, "i.spec_code IS NULL")
	}
	switch params.PowerCategory {
	case 1:
		where = append(where, "i.power IS NOT NULL AND i.power < 15")
	case 2:
		where = append(where, "i.power >= 15 AND i.power < 150")
	case 3:
		where = append(where, "i.power >= 150")
	}

	return where, args
}

func (g *PgItemRepository) GetByID(ctx context.Context, id uint) (item.Item, error) {
	items, err := g.queryItems(ctx, itemFindQuery+" WHERE i.id = $1", id)
	if err != nil {
		return item.Item{}, errors.Wrap(err, fmt.Sprintf("failed to query item with id: %d", id))
	}
	if len(items) == 0 {
		return item.Item{}, fmt.Errorf("id: %d: %w", id, item.ErrNotFound)
	}
	return items[0], nil
}

func (g *PgItemRepository) GetByIDs(ctx context.Context, ids []uint) ([]item.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	items, err := g.queryItems(ctx, itemFindQuery+" WHERE i.id = ANY($1) ORDER BY i.id", toInt64s(ids))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query items by ids")
	}
	return items, nil
}

func (g *PgItemRepository) GetPaginated(ctx context.Context, params *item.FindParams) ([]item.Item, error) {
	where, args := g.buildItemFilters(params)

	query := repo.Join(
		itemFindQuery,
		repo.JoinWhere(where...),
		"ORDER BY i.id DESC",
		repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	items, err := g.queryItems(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get paginated items")
	}
	return items, nil
}

func (g *PgItemRepository) Count(ctx context.Context, params *item.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}

	where, args := g.buildItemFilters(params)
	query := repo.Join(itemCountQuery, repo.JoinWhere(where...))

	var count int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count items")
	}
	return count, nil
}

func (g *PgItemRepository) CountByStatus(ctx context.Context, params *item.FindParams) (map[item.WorkStatus]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	where, args := g.buildItemFilters(params)
	query := repo.Join(itemCountByStatusQuery, repo.JoinWhere(where...), "GROUP BY i.work_status")

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count items by status")
	}
	defer rows.Close()

	counts := make(map[item.WorkStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan status count row")
		}
		counts[item.WorkStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return counts, nil
}

func (g *PgItemRepository) Create(ctx context.Context, entity item.Item) (item.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return item.Item{}, errors.Wrap(err, "failed to get transaction")
	}

	dbItem := toDBItem(entity)
	fields := []string{
		"register_id",
		"serial_number",
		"type_desc",
		"target_unit_id",
		"current_unit_id",
		"work_status",
		"approval_status",
		"approved_by",
		"approved_at",
		"phase",
		"voltage",
		"form_factor",
		"power",
		"contract_number",
		"contract_date",
		"planned_date",
		"consumer_name",
		"consumer_address",
		"account_number",
		"spec_code",
		"request_code",
	}
	values := []interface{}{
		dbItem.RegisterID,
		dbItem.SerialNumber,
		dbItem.TypeDesc,
		dbItem.TargetUnitID,
		dbItem.CurrentUnitID,
		dbItem.WorkStatus,
		dbItem.ApprovalStatus,
		dbItem.ApprovedBy,
		dbItem.ApprovedAt,
		dbItem.Phase,
		dbItem.Voltage,
		dbItem.FormFactor,
		dbItem.Power,
		dbItem.ContractNumber,
		dbItem.ContractDate,
		dbItem.PlannedDate,
		dbItem.ConsumerName,
		dbItem.ConsumerAddress,
		dbItem.AccountNumber,
		dbItem.SpecCode,
		dbItem.RequestCode,
	}

	q := repo.Insert("items", fields, "id")
	if err := tx.QueryRow(ctx, q, values...).Scan(&dbItem.ID); err != nil {
		return item.Item{}, errors.Wrap(err, "failed to insert item")
	}
	return g.GetByID(ctx, dbItem.ID)
}

func (g *PgItemRepository) Update(ctx context.Context, entity item.Item) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}

	dbItem := toDBItem(entity)
	values := []interface{}{
		dbItem.TargetUnitID,
		dbItem.CurrentUnitID,
		dbItem.WorkStatus,
		dbItem.ApprovalStatus,
		dbItem.ApprovedBy,
		dbItem.ApprovedAt,
		dbItem.Phase,
		dbItem.Voltage,
		dbItem.FormFactor,
		dbItem.Power,
		dbItem.ContractNumber,
		dbItem.ContractDate,
		dbItem.PlannedDate,
		dbItem.ConsumerName,
		dbItem.ConsumerAddress,
		dbItem.AccountNumber,
		dbItem.SpecCode,
		dbItem.RequestCode,
		dbItem.ID,
	}

	if _, err := tx.Exec(ctx, itemUpdateQuery, values...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to update item with ID: %d", dbItem.ID))
	}
	return nil
}

func (g *PgItemRepository) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, itemDeleteQuery, toInt64s(ids))
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete items")
	}
	return tag.RowsAffected(), nil
}

func (g *PgItemRepository) ContractExists(ctx context.Context, contractNumber string, excludeID uint) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get transaction")
	}

	base := repo.Join(itemExistsQuery, "WHERE i.contract_number = $1 AND i.id <> $2")
	query := repo.Exists(base)

	exists := false
	if err := tx.QueryRow(ctx, query, contractNumber, excludeID).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "checking contract existence failed")
	}
	return exists, nil
}

func (g *PgItemRepository) SpecCodeExists(ctx context.Context, code string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get transaction")
	}

	exists := false
	if err := tx.QueryRow(ctx, codeExistsQuery, specCodeKind, code).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "checking spec code existence failed")
	}
	return exists, nil
}

func (g *PgItemRepository) ListRequestCodes(ctx context.Context) ([]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, requestCodesQuery, requestCodeKind)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list request codes")
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, errors.Wrap(err, "failed to scan request code")
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return codes, nil
}

func (g *PgItemRepository) SetSpecCode(ctx context.Context, ids []uint, code string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, codeClaimQuery, specCodeKind, code); err != nil {
		return errors.Wrap(err, "failed to claim spec code")
	}
	if _, err := tx.Exec(ctx, itemSetSpecQuery, code, toInt64s(ids)); err != nil {
		return errors.Wrap(err, "failed to stamp spec code")
	}
	return nil
}

func (g *PgItemRepository) SetRequestCode(ctx context.Context, ids []uint, code string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, codeClaimQuery, requestCodeKind, code); err != nil {
		return errors.Wrap(err, "failed to claim request code")
	}
	if _, err := tx.Exec(ctx, itemSetRequestQuery, code, toInt64s(ids)); err != nil {
		return errors.Wrap(err, "failed to stamp request code")
	}
	return nil
}

func (g *PgItemRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]item.Item, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	entities := make([]item.Item, 0)
	for rows.Next() {
		var i models.Item
		if err := rows.Scan(
			&i.ID,
			&i.RegisterID,
			&i.SerialNumber,
			&i.TypeDesc,
			&i.TargetUnitID,
			&i.CurrentUnitID,
			&i.WorkStatus,
			&i.ApprovalStatus,
			&i.ApprovedBy,
			&i.ApprovedAt,
			&i.Phase,
			&i.Voltage,
			&i.FormFactor,
			&i.Power,
			&i.ContractNumber,
			&i.ContractDate,
			&i.PlannedDate,
			&i.ConsumerName,
			&i.ConsumerAddress,
			&i.AccountNumber,
			&i.SpecCode,
			&i.RequestCode,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan item row")
		}
		entity, err := ToDomainItem(&i)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert item to domain entity")
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entities, nil
}
