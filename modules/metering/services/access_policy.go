package services

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/pkg/serrors"
)

// transferKey identifies one legal (role, source type, destination type)
// combination. Anything not in the table is denied.
type transferKey struct {
	role actor.Role
	from unit.Type
	to   unit.Type
}

var transferTable = map[transferKey]struct{}{
	{actor.RoleCentralAdmin, unit.TypeRegion, unit.TypeRegion}: {},

	// The zero source type stands for an item with no custodian, left behind
	// by an import whose destination unit never resolved. Central accounting
	// re-homes such items into a region.
	{actor.RoleCentralAdmin, "", unit.TypeRegion}: {},

	{actor.RoleTechCentralAdmin, unit.TypeTechCentral, unit.TypeTechCentral}: {},
	{actor.RoleTechCentralAdmin, unit.TypeTechCentral, unit.TypeRegionTech}:  {},
	{actor.RoleTechCentralAdmin, unit.TypeRegionTech, unit.TypeTechCentral}:  {},
	{actor.RoleTechCentralAdmin, unit.TypeRegionTech, unit.TypeRegionTech}:   {},
}

// AccessPolicy decides unit visibility and custody-transfer legality. All
// read paths in the module intersect against VisibleUnits; all transfers go
// through CanTransfer.
type AccessPolicy struct {
	units unit.Repository
}

func NewAccessPolicy(units unit.Repository) *AccessPolicy {
	return &AccessPolicy{units: units}
}

func (p *AccessPolicy) VisibleUnits(ctx context.Context, a actor.Actor) ([]unit.Unit, error) {
	switch a.Role() {
	case actor.RoleCentralAdmin:
		return p.units.GetAllActive(ctx)
	case actor.RoleTechCentralAdmin:
		return p.units.GetByTypes(ctx, unit.TypeTechCentral, unit.TypeRegionTech)
	case actor.RoleLabOperator, actor.RoleRegionOperator, actor.RoleTechRegionOperator:
		if a.HomeUnitID() == nil {
			return nil, nil
		}
		home, err := p.units.GetByID(ctx, *a.HomeUnitID())
		if err != nil {
			if errors.Is(err, unit.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []unit.Unit{home}, nil
	}
	return nil, serrors.AuthorizationDenied(fmt.Sprintf("unknown role %q", a.Role()))
}

func (p *AccessPolicy) VisibleUnitIDs(ctx context.Context, a actor.Actor) ([]uint, error) {
	units, err := p.VisibleUnits(ctx, a)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID())
	}
	return ids, nil
}

// CanTransfer is pure over the actor's role and the two unit types. It never
// consults the store; callers resolve the units first. A zero from unit means
// the item currently has no custodian.
func (p *AccessPolicy) CanTransfer(a actor.Actor, from, to unit.Unit) error {
	switch a.Role() {
	case actor.RoleCentralAdmin, actor.RoleTechCentralAdmin:
	default:
		return serrors.AuthorizationDenied(fmt.Sprintf("role %s may not transfer custody", a.Role()))
	}
	if _, ok := transferTable[transferKey{a.Role(), from.Type(), to.Type()}]; !ok {
		return serrors.AuthorizationDenied(
			fmt.Sprintf("role %s may not move items from %s to %s", a.Role(), from.Type(), to.Type()),
		)
	}
	return nil
}

// CanEditItem gates attribute updates: only regional operators, and only for
// items presently held by their own unit. Admin roles are read-only on item
// cards.
func (p *AccessPolicy) CanEditItem(ctx context.Context, a actor.Actor, currentUnitID *uint) error {
	switch a.Role() {
	case actor.RoleRegionOperator, actor.RoleTechRegionOperator:
	default:
		return serrors.AuthorizationDenied(fmt.Sprintf("role %s may not edit item cards", a.Role()))
	}
	if currentUnitID == nil {
		return serrors.AuthorizationDenied("item is not held by any unit")
	}
	visible, err := p.VisibleUnitIDs(ctx, a)
	if err != nil {
		return err
	}
	for _, id := range visible {
		if id == *currentUnitID {
			return nil
		}
	}
	return serrors.AuthorizationDenied("item is held outside the operator's unit")
}
