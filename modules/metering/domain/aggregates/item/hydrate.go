package item

import "time"

// Snapshot carries every persisted field of an item. Used by the persistence
// layer to rebuild aggregates from rows.
type Snapshot struct {
	ID         uint
	RegisterID *uint

	SerialNumber string
	TypeDesc     string

	TargetUnitID  *uint
	CurrentUnitID *uint

	WorkStatus     WorkStatus
	ApprovalStatus ApprovalStatus
	ApprovedBy     *uint
	ApprovedAt     *time.Time

	Phase      *string
	Voltage    *string
	FormFactor *string
	Power      *float64

	ContractNumber *string
	ContractDate   *time.Time
	PlannedDate    *time.Time

	ConsumerName    *string
	ConsumerAddress *string
	AccountNumber   *string

	SpecCode    *string
	RequestCode *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func Hydrate(s Snapshot) Item {
	return Item{
		id:              s.ID,
		registerID:      s.RegisterID,
		serialNumber:    s.SerialNumber,
		typeDesc:        s.TypeDesc,
		targetUnitID:    s.TargetUnitID,
		currentUnitID:   s.CurrentUnitID,
		workStatus:      s.WorkStatus,
		approvalStatus:  s.ApprovalStatus,
		approvedBy:      s.ApprovedBy,
		approvedAt:      s.ApprovedAt,
		phase:           s.Phase,
		voltage:         s.Voltage,
		formFactor:      s.FormFactor,
		power:           s.Power,
		contractNumber:  s.ContractNumber,
		contractDate:    s.ContractDate,
		plannedDate:     s.PlannedDate,
		consumerName:    s.ConsumerName,
		consumerAddress: s.ConsumerAddress,
		accountNumber:   s.AccountNumber,
		specCode:        s.SpecCode,
		requestCode:     s.RequestCode,
		createdAt:       s.CreatedAt,
		updatedAt:       s.UpdatedAt,
	}
}

// Snapshot returns the full persisted state of the item.
func (i Item) Snapshot() Snapshot {
	return Snapshot{
		ID:              i.id,
		RegisterID:      i.registerID,
		SerialNumber:    i.serialNumber,
		TypeDesc:        i.typeDesc,
		TargetUnitID:    i.targetUnitID,
		CurrentUnitID:   i.currentUnitID,
		WorkStatus:      i.workStatus,
		ApprovalStatus:  i.approvalStatus,
		ApprovedBy:      i.approvedBy,
		ApprovedAt:      i.approvedAt,
		Phase:           i.phase,
		Voltage:         i.voltage,
		FormFactor:      i.formFactor,
		Power:           i.power,
		ContractNumber:  i.contractNumber,
		ContractDate:    i.contractDate,
		PlannedDate:     i.plannedDate,
		ConsumerName:    i.consumerName,
		ConsumerAddress: i.consumerAddress,
		AccountNumber:   i.accountNumber,
		SpecCode:        i.specCode,
		RequestCode:     i.requestCode,
		CreatedAt:       i.createdAt,
		UpdatedAt:       i.updatedAt,
	}
}
