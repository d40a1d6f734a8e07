package item

import (
	"context"
	"time"
)

type FindParams struct {
	// Search matches serial numbers, case-insensitively, by containment.
	Search string
	// UnitIDs restricts to items whose current unit is in the set. Always
	// populated from the caller's visible-unit set before hitting the store.
	UnitIDs []uint
	// UnitScoped distinguishes an intentionally empty UnitIDs (match nothing)
	// from an absent filter.
	UnitScoped bool
	// RegisterIDs restricts to items created by the given registers.
	RegisterIDs []uint
	Statuses    []WorkStatus
	// CurrentUnitID narrows inside the visible set.
	CurrentUnitID *uint
	// WithContractOnly keeps only items carrying a contract identifier.
	WithContractOnly bool
	// WithoutSpecCode keeps only items not yet stamped with a
	// technical-specification code.
	WithoutSpecCode bool
	PowerCategory   int

	Limit  int
	Offset int
}

type Repository interface {
	GetByID(ctx context.Context, id uint) (Item, error)
	GetByIDs(ctx context.Context, ids []uint) ([]Item, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]Item, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	CountByStatus(ctx context.Context, params *FindParams) (map[WorkStatus]int64, error)

	Create(ctx context.Context, i Item) (Item, error)
	Update(ctx context.Context, i Item) error
	DeleteMany(ctx context.Context, ids []uint) (int64, error)

	// ContractExists reports whether another item already carries the
	// contract number.
	ContractExists(ctx context.Context, contractNumber string, excludeID uint) (bool, error)
	// SpecCodeExists reports whether the technical-specification code is
	// taken.
	SpecCodeExists(ctx context.Context, code string) (bool, error)
	// ListRequestCodes returns every non-empty request code.
	ListRequestCodes(ctx context.Context) ([]string, error)

	// SetSpecCode stamps a batch in one statement.
	SetSpecCode(ctx context.Context, ids []uint, code string) error
	// SetRequestCode stamps a batch in one statement.
	SetRequestCode(ctx context.Context, ids []uint, code string) error
}

// UpdateAttributes enumerates the card fields a regional operator may edit.
// Nil means "leave unchanged"; there is deliberately no way to smuggle in
// arbitrary field names.
type UpdateAttributes struct {
	WorkStatus      *WorkStatus
	Phase           *string
	Voltage         *string
	FormFactor      *string
	Power           *float64
	ContractNumber  *string
	ContractDate    *time.Time
	PlannedDate     *time.Time
	ConsumerName    *string
	ConsumerAddress *string
	AccountNumber   *string
}
