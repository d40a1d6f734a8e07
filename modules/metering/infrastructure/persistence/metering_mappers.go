package persistence

import (
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/modules/metering/domain/entities/movement"
	"github.com/enerflow/metering/modules/metering/domain/entities/register"
	"github.com/enerflow/metering/modules/metering/domain/entities/typerule"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence/models"
)

func nullUint(v sql.NullInt64) *uint {
	if !v.Valid {
		return nil
	}
	u := uint(v.Int64)
	return &u
}

func dbUint(v *uint) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func dbString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func dbTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func dbFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func ToDomainUnit(dbUnit *models.Unit) (unit.Unit, error) {
	unitType, err := unit.NewType(dbUnit.UnitType)
	if err != nil {
		return unit.Unit{}, errors.Wrapf(err, "unit id %d", dbUnit.ID)
	}
	return unit.Hydrate(
		dbUnit.ID,
		dbUnit.Name,
		dbUnit.Code,
		dbUnit.ShortCode,
		unitType,
		nullUint(dbUnit.ParentID),
		dbUnit.Active,
	), nil
}

func toDBUnit(entity unit.Unit) *models.Unit {
	return &models.Unit{
		ID:        entity.ID(),
		Name:      entity.Name(),
		Code:      entity.Code(),
		ShortCode: entity.ShortCode(),
		UnitType:  string(entity.Type()),
		ParentID:  dbUint(entity.ParentID()),
		Active:    entity.Active(),
	}
}

func ToDomainActor(dbActor *models.Actor) (actor.Actor, error) {
	role, err := actor.NewRole(dbActor.Role)
	if err != nil {
		return actor.Actor{}, errors.Wrapf(err, "actor id %d", dbActor.ID)
	}
	return actor.Hydrate(
		dbActor.ID,
		role,
		nullUint(dbActor.HomeUnitID),
		dbActor.FullName,
		dbActor.Active,
	), nil
}

func toDBActor(entity actor.Actor) *models.Actor {
	return &models.Actor{
		ID:         entity.ID(),
		Role:       string(entity.Role()),
		HomeUnitID: dbUint(entity.HomeUnitID()),
		FullName:   entity.FullName(),
		Active:     entity.Active(),
	}
}

func ToDomainItem(dbItem *models.Item) (item.Item, error) {
	workStatus, err := item.NewWorkStatus(dbItem.WorkStatus)
	if err != nil {
		return item.Item{}, errors.Wrapf(err, "item id %d", dbItem.ID)
	}
	approval := item.ApprovalStatus(dbItem.ApprovalStatus)
	if !approval.IsValid() {
		return item.Item{}, errors.Errorf("item id %d: invalid approval status %q", dbItem.ID, dbItem.ApprovalStatus)
	}
	return item.Hydrate(item.Snapshot{
		ID:              dbItem.ID,
		RegisterID:      nullUint(dbItem.RegisterID),
		SerialNumber:    dbItem.SerialNumber,
		TypeDesc:        dbItem.TypeDesc,
		TargetUnitID:    nullUint(dbItem.TargetUnitID),
		CurrentUnitID:   nullUint(dbItem.CurrentUnitID),
		WorkStatus:      workStatus,
		ApprovalStatus:  approval,
		ApprovedBy:      nullUint(dbItem.ApprovedBy),
		ApprovedAt:      nullTime(dbItem.ApprovedAt),
		Phase:           nullString(dbItem.Phase),
		Voltage:         nullString(dbItem.Voltage),
		FormFactor:      nullString(dbItem.FormFactor),
		Power:           nullFloat(dbItem.Power),
		ContractNumber:  nullString(dbItem.ContractNumber),
		ContractDate:    nullTime(dbItem.ContractDate),
		PlannedDate:     nullTime(dbItem.PlannedDate),
		ConsumerName:    nullString(dbItem.ConsumerName),
		ConsumerAddress: nullString(dbItem.ConsumerAddress),
		AccountNumber:   nullString(dbItem.AccountNumber),
		SpecCode:        nullString(dbItem.SpecCode),
		RequestCode:     nullString(dbItem.RequestCode),
		CreatedAt:       dbItem.CreatedAt,
		UpdatedAt:       dbItem.UpdatedAt,
	}), nil
}

func toDBItem(entity item.Item) *models.Item {
	s := entity.Snapshot()
	return &models.Item{
		ID:              s.ID,
		RegisterID:      dbUint(s.RegisterID),
		SerialNumber:    s.SerialNumber,
		TypeDesc:        s.TypeDesc,
		TargetUnitID:    dbUint(s.TargetUnitID),
		CurrentUnitID:   dbUint(s.CurrentUnitID),
		WorkStatus:      string(s.WorkStatus),
		ApprovalStatus:  string(s.ApprovalStatus),
		ApprovedBy:      dbUint(s.ApprovedBy),
		ApprovedAt:      dbTime(s.ApprovedAt),
		Phase:           dbString(s.Phase),
		Voltage:         dbString(s.Voltage),
		FormFactor:      dbString(s.FormFactor),
		Power:           dbFloat(s.Power),
		ContractNumber:  dbString(s.ContractNumber),
		ContractDate:    dbTime(s.ContractDate),
		PlannedDate:     dbTime(s.PlannedDate),
		ConsumerName:    dbString(s.ConsumerName),
		ConsumerAddress: dbString(s.ConsumerAddress),
		AccountNumber:   dbString(s.AccountNumber),
		SpecCode:        dbString(s.SpecCode),
		RequestCode:     dbString(s.RequestCode),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func ToDomainMovement(dbMovement *models.Movement) movement.Movement {
	comment := ""
	if dbMovement.Comment.Valid {
		comment = dbMovement.Comment.String
	}
	return movement.Hydrate(
		dbMovement.ID,
		dbMovement.ItemID,
		nullUint(dbMovement.FromUnitID),
		dbMovement.ToUnitID,
		dbMovement.MovedBy,
		dbMovement.MovedAt,
		comment,
	)
}

func ToDomainTypeRule(dbRule *models.TypeRule) typerule.Rule {
	return typerule.Hydrate(
		dbRule.ID,
		dbRule.Pattern,
		dbRule.Phase,
		dbRule.Voltage,
		dbRule.FormFactor,
		dbRule.Power,
		typerule.Scope(dbRule.AppliesTo),
		dbRule.Active,
	)
}

func ToDomainRegister(dbRegister *models.ImportRegister) (register.Register, error) {
	ref, err := uuid.Parse(dbRegister.Ref)
	if err != nil {
		return register.Register{}, errors.Wrapf(err, "register id %d", dbRegister.ID)
	}
	return register.Hydrate(
		dbRegister.ID,
		ref,
		dbRegister.Filename,
		dbRegister.ImportedBy,
		dbRegister.RowCount,
		dbRegister.CreatedAt,
	), nil
}
