package services

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/modules/metering/domain/entities/register"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/serrors"
)

// SearchQuery narrows an item listing inside the caller's visible scope.
type SearchQuery struct {
	Search   string
	Statuses []item.WorkStatus
	UnitID   *uint
	Limit    int
	Offset   int
}

// Dashboard summarizes what the caller can see.
type Dashboard struct {
	Total           int64                     `json:"total"`
	ByStatus        map[item.WorkStatus]int64 `json:"byStatus"`
	RecentRegisters []register.Register       `json:"registers"`
}

// ItemQueryService is the read side: every query is intersected with the
// caller's visible unit set before touching the store. Laboratory operators
// are scoped to their own uploads instead, since their home unit never holds
// items.
type ItemQueryService struct {
	items     item.Repository
	registers register.Repository
	policy    *AccessPolicy
}

func NewItemQueryService(items item.Repository, registers register.Repository, policy *AccessPolicy) *ItemQueryService {
	return &ItemQueryService{items: items, registers: registers, policy: policy}
}

func (s *ItemQueryService) scope(ctx context.Context, a actor.Actor) (*item.FindParams, error) {
	if a.Role() == actor.RoleLabOperator {
		regs, err := s.registers.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		own := make([]uint, 0, len(regs))
		for _, reg := range regs {
			if reg.ImportedBy() == a.ID() {
				own = append(own, reg.ID())
			}
		}
		if len(own) == 0 {
			// No uploads yet: match nothing rather than everything.
			return &item.FindParams{UnitScoped: true}, nil
		}
		return &item.FindParams{RegisterIDs: own}, nil
	}

	if a.Role() == actor.RoleCentralAdmin {
		// Central accounting sees the whole fleet unfiltered, including items
		// whose import destination never resolved to a unit.
		return &item.FindParams{}, nil
	}

	visible, err := s.policy.VisibleUnitIDs(ctx, a)
	if err != nil {
		return nil, err
	}
	return &item.FindParams{UnitIDs: visible, UnitScoped: true}, nil
}

func (s *ItemQueryService) Search(ctx context.Context, q SearchQuery) ([]item.Item, int64, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return nil, 0, err
	}
	params, err := s.scope(ctx, a)
	if err != nil {
		return nil, 0, err
	}

	params.Search = q.Search
	params.Statuses = q.Statuses
	params.Limit = q.Limit
	params.Offset = q.Offset
	if q.UnitID != nil {
		params.CurrentUnitID = q.UnitID
	}

	found, err := s.items.GetPaginated(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.items.Count(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return found, total, nil
}

func (s *ItemQueryService) GetByID(ctx context.Context, id uint) (item.Item, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return item.Item{}, err
	}

	entity, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return item.Item{}, serrors.NotFound(fmt.Sprintf("item %d", id))
		}
		return item.Item{}, err
	}

	if a.Role() == actor.RoleLabOperator {
		if entity.RegisterID() == nil {
			return item.Item{}, serrors.AuthorizationDenied("item was not created by a register import")
		}
		reg, err := s.registers.GetByID(ctx, *entity.RegisterID())
		if err != nil {
			return item.Item{}, err
		}
		if reg.ImportedBy() != a.ID() {
			return item.Item{}, serrors.AuthorizationDenied("item belongs to another laboratory upload")
		}
		return entity, nil
	}

	if a.Role() == actor.RoleCentralAdmin {
		return entity, nil
	}

	visible, err := s.policy.VisibleUnitIDs(ctx, a)
	if err != nil {
		return item.Item{}, err
	}
	if entity.CurrentUnitID() != nil {
		for _, unitID := range visible {
			if unitID == *entity.CurrentUnitID() {
				return entity, nil
			}
		}
	}
	return item.Item{}, serrors.AuthorizationDenied("item is held outside the caller's visible units")
}

func (s *ItemQueryService) Dashboard(ctx context.Context) (*Dashboard, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return nil, err
	}
	params, err := s.scope(ctx, a)
	if err != nil {
		return nil, err
	}

	byStatus, err := s.items.CountByStatus(ctx, params)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, count := range byStatus {
		total += count
	}

	regs, err := s.registers.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if a.Role() == actor.RoleLabOperator {
		own := regs[:0:0]
		for _, reg := range regs {
			if reg.ImportedBy() == a.ID() {
				own = append(own, reg)
			}
		}
		regs = own
	}
	if len(regs) > 10 {
		regs = regs[:10]
	}

	return &Dashboard{Total: total, ByStatus: byStatus, RecentRegisters: regs}, nil
}

// Registers lists import registers visible to the caller.
func (s *ItemQueryService) Registers(ctx context.Context) ([]register.Register, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return nil, err
	}
	regs, err := s.registers.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if a.Role() != actor.RoleLabOperator {
		return regs, nil
	}
	own := make([]register.Register, 0, len(regs))
	for _, reg := range regs {
		if reg.ImportedBy() == a.ID() {
			own = append(own, reg)
		}
	}
	return own, nil
}
