package dtos

import (
	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
)

// UnitResponse is the JSON projection of one organizational unit.
type UnitResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	ShortCode string `json:"shortCode,omitempty"`
	Type      string `json:"type"`
	ParentID  *uint  `json:"parentId,omitempty"`
}

func NewUnitResponse(u unit.Unit) UnitResponse {
	return UnitResponse{
		ID:        u.ID(),
		Name:      u.Name(),
		Code:      u.Code(),
		ShortCode: u.ShortCode(),
		Type:      string(u.Type()),
		ParentID:  u.ParentID(),
	}
}

func NewUnitResponses(units []unit.Unit) []UnitResponse {
	out := make([]UnitResponse, 0, len(units))
	for _, u := range units {
		out = append(out, NewUnitResponse(u))
	}
	return out
}

// AssignSpecCodesRequest stamps a batch with one specification code.
type AssignSpecCodesRequest struct {
	ItemIDs       []uint `json:"itemIds" validate:"required,min=1,dive,gt=0"`
	UnitID        uint   `json:"unitId" validate:"required,gt=0"`
	PowerCategory int    `json:"powerCategory" validate:"required,min=1,max=3"`
}

// AssignRequestCodeRequest stamps a batch with the next request code.
type AssignRequestCodeRequest struct {
	ItemIDs []uint `json:"itemIds" validate:"required,min=1,dive,gt=0"`
}

// CodeResponse returns a freshly assigned document code.
type CodeResponse struct {
	Code string `json:"code"`
}
