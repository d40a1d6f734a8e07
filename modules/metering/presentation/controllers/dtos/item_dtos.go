package dtos

import (
	"time"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/entities/movement"
	"github.com/enerflow/metering/modules/metering/domain/entities/register"
)

// UpdateItemRequest is the PATCH body of an item card. Absent fields are
// left untouched; present fields overwrite.
type UpdateItemRequest struct {
	WorkStatus      *string  `json:"workStatus" validate:"omitempty,oneof=WAREHOUSE TECH_CONNECT REPLACEMENT ACCOUNT_UPDATE INSTALLED"`
	Phase           *string  `json:"phase" validate:"omitempty,max=16"`
	Voltage         *string  `json:"voltage" validate:"omitempty,max=16"`
	FormFactor      *string  `json:"formFactor" validate:"omitempty,max=64"`
	Power           *float64 `json:"power" validate:"omitempty,gt=0"`
	ContractNumber  *string  `json:"contractNumber" validate:"omitempty,max=32"`
	ContractDate    *string  `json:"contractDate" validate:"omitempty,datetime=2006-01-02"`
	PlannedDate     *string  `json:"plannedDate" validate:"omitempty,datetime=2006-01-02"`
	ConsumerName    *string  `json:"consumerName" validate:"omitempty,max=255"`
	ConsumerAddress *string  `json:"consumerAddress" validate:"omitempty,max=512"`
	AccountNumber   *string  `json:"accountNumber" validate:"omitempty,max=64"`
}

func (r *UpdateItemRequest) ToPatch() (item.UpdateAttributes, error) {
	patch := item.UpdateAttributes{
		Phase:           r.Phase,
		Voltage:         r.Voltage,
		FormFactor:      r.FormFactor,
		Power:           r.Power,
		ContractNumber:  r.ContractNumber,
		ConsumerName:    r.ConsumerName,
		ConsumerAddress: r.ConsumerAddress,
		AccountNumber:   r.AccountNumber,
	}
	if r.WorkStatus != nil {
		status, err := item.NewWorkStatus(*r.WorkStatus)
		if err != nil {
			return item.UpdateAttributes{}, err
		}
		patch.WorkStatus = &status
	}
	if r.ContractDate != nil {
		t, err := time.Parse("2006-01-02", *r.ContractDate)
		if err != nil {
			return item.UpdateAttributes{}, err
		}
		patch.ContractDate = &t
	}
	if r.PlannedDate != nil {
		t, err := time.Parse("2006-01-02", *r.PlannedDate)
		if err != nil {
			return item.UpdateAttributes{}, err
		}
		patch.PlannedDate = &t
	}
	return patch, nil
}

// TransferRequest moves a batch of items to one destination unit.
type TransferRequest struct {
	ItemIDs  []uint `json:"itemIds" validate:"required,min=1,dive,gt=0"`
	ToUnitID uint   `json:"toUnitId" validate:"required,gt=0"`
	Comment  string `json:"comment" validate:"max=512"`
}

// ApprovalRequest names the items of one approval action.
type ApprovalRequest struct {
	ItemIDs []uint `json:"itemIds" validate:"required,min=1,dive,gt=0"`
}

// DeleteItemsRequest is the bulk delete payload; the admin code is checked
// server side.
type DeleteItemsRequest struct {
	ItemIDs   []uint `json:"itemIds" validate:"required,min=1,dive,gt=0"`
	AdminCode string `json:"adminCode" validate:"required"`
}

// ItemResponse is the JSON projection of one item card.
type ItemResponse struct {
	ID              uint       `json:"id"`
	RegisterID      *uint      `json:"registerId,omitempty"`
	SerialNumber    string     `json:"serialNumber"`
	TypeDesc        string     `json:"typeDesc,omitempty"`
	CurrentUnitID   *uint      `json:"currentUnitId,omitempty"`
	TargetUnitID    *uint      `json:"targetUnitId,omitempty"`
	WorkStatus      string     `json:"workStatus"`
	ApprovalStatus  string     `json:"approvalStatus"`
	ApprovedBy      *uint      `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	Phase           *string    `json:"phase,omitempty"`
	Voltage         *string    `json:"voltage,omitempty"`
	FormFactor      *string    `json:"formFactor,omitempty"`
	Power           *float64   `json:"power,omitempty"`
	ContractNumber  *string    `json:"contractNumber,omitempty"`
	ContractDate    *time.Time `json:"contractDate,omitempty"`
	PlannedDate     *time.Time `json:"plannedDate,omitempty"`
	ConsumerName    *string    `json:"consumerName,omitempty"`
	ConsumerAddress *string    `json:"consumerAddress,omitempty"`
	AccountNumber   *string    `json:"accountNumber,omitempty"`
	SpecCode        *string    `json:"specCode,omitempty"`
	RequestCode     *string    `json:"requestCode,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func NewItemResponse(entity item.Item) ItemResponse {
	return ItemResponse{
		ID:              entity.ID(),
		RegisterID:      entity.RegisterID(),
		SerialNumber:    entity.SerialNumber(),
		TypeDesc:        entity.TypeDesc(),
		CurrentUnitID:   entity.CurrentUnitID(),
		TargetUnitID:    entity.TargetUnitID(),
		WorkStatus:      string(entity.WorkStatus()),
		ApprovalStatus:  string(entity.ApprovalStatus()),
		ApprovedBy:      entity.ApprovedBy(),
		ApprovedAt:      entity.ApprovedAt(),
		Phase:           entity.Phase(),
		Voltage:         entity.Voltage(),
		FormFactor:      entity.FormFactor(),
		Power:           entity.Power(),
		ContractNumber:  entity.ContractNumber(),
		ContractDate:    entity.ContractDate(),
		PlannedDate:     entity.PlannedDate(),
		ConsumerName:    entity.ConsumerName(),
		ConsumerAddress: entity.ConsumerAddress(),
		AccountNumber:   entity.AccountNumber(),
		SpecCode:        entity.SpecCode(),
		RequestCode:     entity.RequestCode(),
		CreatedAt:       entity.CreatedAt(),
		UpdatedAt:       entity.UpdatedAt(),
	}
}

func NewItemResponses(entities []item.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(entities))
	for _, entity := range entities {
		out = append(out, NewItemResponse(entity))
	}
	return out
}

// ItemListResponse is one page of a search result.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int64          `json:"total"`
}

// MovementResponse is one custody transition in an item's history.
type MovementResponse struct {
	ID         uint      `json:"id"`
	ItemID     uint      `json:"itemId"`
	FromUnitID *uint     `json:"fromUnitId,omitempty"`
	ToUnitID   uint      `json:"toUnitId"`
	MovedBy    uint      `json:"movedBy"`
	MovedAt    time.Time `json:"movedAt"`
	Comment    string    `json:"comment,omitempty"`
}

func NewMovementResponses(entities []movement.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(entities))
	for _, m := range entities {
		out = append(out, MovementResponse{
			ID:         m.ID(),
			ItemID:     m.ItemID(),
			FromUnitID: m.FromUnitID(),
			ToUnitID:   m.ToUnitID(),
			MovedBy:    m.MovedBy(),
			MovedAt:    m.MovedAt(),
			Comment:    m.Comment(),
		})
	}
	return out
}

// RegisterResponse is the JSON projection of one import register.
type RegisterResponse struct {
	ID         uint      `json:"id"`
	Ref        string    `json:"ref"`
	Filename   string    `json:"filename"`
	ImportedBy uint      `json:"importedBy"`
	RowCount   int       `json:"rowCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewRegisterResponse(reg register.Register) RegisterResponse {
	return RegisterResponse{
		ID:         reg.ID(),
		Ref:        reg.Ref().String(),
		Filename:   reg.Filename(),
		ImportedBy: reg.ImportedBy(),
		RowCount:   reg.RowCount(),
		CreatedAt:  reg.CreatedAt(),
	}
}

func NewRegisterResponses(regs []register.Register) []RegisterResponse {
	out := make([]RegisterResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, NewRegisterResponse(reg))
	}
	return out
}
