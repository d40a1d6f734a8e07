package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/modules/metering/domain/entities/movement"
	"github.com/enerflow/metering/modules/metering/domain/entities/typerule"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/eventbus"
	"github.com/enerflow/metering/pkg/serrors"
)

// ItemService owns every item mutation: attribute updates, custody
// transfers, the approval sub-state machine and administrative deletion.
// Reads go through ItemQueryService.
type ItemService struct {
	repo      item.Repository
	units     unit.Repository
	movements movement.Repository
	policy    *AccessPolicy
	matcher   *TypeMatcher
	publisher eventbus.EventBus
	adminCode string
}

func NewItemService(
	repo item.Repository,
	units unit.Repository,
	movements movement.Repository,
	policy *AccessPolicy,
	matcher *TypeMatcher,
	publisher eventbus.EventBus,
	adminCode string,
) *ItemService {
	return &ItemService{
		repo:      repo,
		units:     units,
		movements: movements,
		policy:    policy,
		matcher:   matcher,
		publisher: publisher,
		adminCode: adminCode,
	}
}

// UpdateAttributes applies a typed patch to one item card. The whole patch
// commits or nothing does: an invalid transition, a malformed contract
// identifier or a duplicate contract aborts before any field is written.
func (s *ItemService) UpdateAttributes(ctx context.Context, id uint, patch item.UpdateAttributes) (item.Item, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return item.Item{}, err
	}

	entity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return item.Item{}, serrors.NotFound(fmt.Sprintf("item %d", id))
		}
		return item.Item{}, err
	}

	if err := s.policy.CanEditItem(ctx, a, entity.CurrentUnitID()); err != nil {
		return item.Item{}, err
	}

	leavingWarehouse := false
	ruleScope := typerule.ScopeRegion
	if patch.WorkStatus != nil {
		next := *patch.WorkStatus
		if !next.IsValid() {
			return item.Item{}, serrors.Validation(fmt.Sprintf("unknown work status %q", next))
		}
		if !entity.WorkStatus().CanTransitionTo(next) {
			return item.Item{}, serrors.Validation(
				fmt.Sprintf("work status %s cannot change to %s", entity.WorkStatus(), next),
			)
		}
		leavingWarehouse = entity.WorkStatus() == item.StatusWarehouse && next != item.StatusWarehouse
		if next == item.StatusTechConnect {
			ruleScope = typerule.ScopeTech
		}
		entity = entity.WithWorkStatus(next)
	}

	if patch.ContractNumber != nil && *patch.ContractNumber != "" {
		if !item.ValidContractNumber(*patch.ContractNumber) {
			return item.Item{}, serrors.Validation(
				fmt.Sprintf("contract %q does not match the required template", *patch.ContractNumber),
			)
		}
		taken, err := s.repo.ContractExists(ctx, *patch.ContractNumber, entity.ID())
		if err != nil {
			return item.Item{}, err
		}
		if taken {
			return item.Item{}, serrors.Validation(
				fmt.Sprintf("contract %s is already assigned to another item", *patch.ContractNumber),
			)
		}
	}

	entity = applyPatch(entity, patch)

	if leavingWarehouse && (entity.Phase() == nil || entity.Voltage() == nil || entity.FormFactor() == nil) {
		rule, ok, err := s.matcher.Match(ctx, entity.TypeDesc(), ruleScope)
		if err != nil {
			return item.Item{}, err
		}
		if ok {
			if entity.Phase() == nil {
				phase := rule.Phase()
				entity = entity.WithPhase(&phase)
			}
			if entity.Voltage() == nil {
				voltage := rule.Voltage()
				entity = entity.WithVoltage(&voltage)
			}
			if entity.FormFactor() == nil && rule.FormFactor() != "" {
				formFactor := rule.FormFactor()
				entity = entity.WithFormFactor(&formFactor)
			}
		}
	}

	if err := s.repo.Update(ctx, entity); err != nil {
		return item.Item{}, err
	}
	return s.repo.GetByID(ctx, id)
}

func applyPatch(entity item.Item, patch item.UpdateAttributes) item.Item {
	if patch.Phase != nil {
		entity = entity.WithPhase(patch.Phase)
	}
	if patch.Voltage != nil {
		entity = entity.WithVoltage(patch.Voltage)
	}
	if patch.FormFactor != nil {
		entity = entity.WithFormFactor(patch.FormFactor)
	}
	if patch.Power != nil {
		entity = entity.WithPower(patch.Power)
	}
	if patch.ContractNumber != nil {
		entity = entity.WithContract(patch.ContractNumber, entity.ContractDate())
	}
	if patch.ContractDate != nil {
		entity = entity.WithContract(entity.ContractNumber(), patch.ContractDate)
	}
	if patch.PlannedDate != nil {
		entity = entity.WithPlannedDate(patch.PlannedDate)
	}
	if patch.ConsumerName != nil {
		entity = entity.WithConsumer(patch.ConsumerName, entity.ConsumerAddress())
	}
	if patch.ConsumerAddress != nil {
		entity = entity.WithConsumer(entity.ConsumerName(), patch.ConsumerAddress)
	}
	if patch.AccountNumber != nil {
		entity = entity.WithAccountNumber(patch.AccountNumber)
	}
	return entity
}

// statusForDestination restamps an item's work status when custody moves
// into the technical-connection branch. Moves into regions keep the current
// status, so warehouse stock stays warehouse stock.
func statusForDestination(dest unit.Unit, current item.WorkStatus) item.WorkStatus {
	if !dest.Type().IsTech() {
		return current
	}
	if current != item.StatusTechConnect && current.CanTransitionTo(item.StatusTechConnect) {
		return item.StatusTechConnect
	}
	return current
}

// Transfer moves a batch of items to one destination unit. The batch is
// all-or-nothing: the first per-item denial aborts with zero custody changes
// and zero Movement records.
func (s *ItemService) Transfer(ctx context.Context, itemIDs []uint, toUnitID uint, comment string) ([]item.Item, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return nil, err
	}
	if len(itemIDs) == 0 {
		return nil, serrors.Validation("no items requested for transfer")
	}

	dest, err := s.units.GetByID(ctx, toUnitID)
	if err != nil {
		if errors.Is(err, unit.ErrNotFound) {
			return nil, serrors.NotFound(fmt.Sprintf("unit %d", toUnitID))
		}
		return nil, err
	}

	entities, err := s.repo.GetByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	if len(entities) != len(itemIDs) {
		return nil, serrors.NotFound("one or more items in the transfer batch")
	}

	sources := make([]unit.Unit, 0, len(entities))
	for _, entity := range entities {
		var src unit.Unit
		if entity.CurrentUnitID() != nil {
			held, err := s.units.GetByID(ctx, *entity.CurrentUnitID())
			if err != nil {
				return nil, errors.Wrapf(err, "source unit of item %d", entity.ID())
			}
			src = held
		}
		if err := s.policy.CanTransfer(a, src, dest); err != nil {
			return nil, errors.Wrapf(err, "item %d", entity.ID())
		}
		sources = append(sources, src)
	}

	destID := dest.ID()
	moved := make([]item.Item, 0, len(entities))
	movements := make([]movement.Movement, 0, len(entities))
	fromUnits := make([]uint, 0, len(entities))
	for i, entity := range entities {
		var fromID *uint
		if src := sources[i]; !src.IsZero() {
			id := src.ID()
			fromID = &id
			fromUnits = append(fromUnits, id)
		}
		updated := entity.
			WithCurrentUnitID(&destID).
			WithTargetUnitID(&destID).
			WithWorkStatus(statusForDestination(dest, entity.WorkStatus()))
		if err := s.repo.Update(ctx, updated); err != nil {
			return nil, errors.Wrapf(err, "item %d", entity.ID())
		}
		movements = append(movements, movement.New(entity.ID(), fromID, destID, a.ID(), comment))
		moved = append(moved, updated)
	}
	if err := s.movements.CreateMany(ctx, movements); err != nil {
		return nil, err
	}

	s.publisher.Publish(&item.TransferredEvent{
		ItemIDs:   itemIDs,
		FromUnits: fromUnits,
		ToUnitID:  destID,
		ActorID:   a.ID(),
		Timestamp: time.Now(),
	})
	return moved, nil
}

// RequestApproval moves items from None to Pending. Only technical-branch
// roles may request, and only while the item sits at a technical unit.
func (s *ItemService) RequestApproval(ctx context.Context, itemIDs []uint) error {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return err
	}
	switch a.Role() {
	case actor.RoleTechCentralAdmin, actor.RoleTechRegionOperator:
	default:
		return serrors.AuthorizationDenied(fmt.Sprintf("role %s may not request approval", a.Role()))
	}

	entities, err := s.repo.GetByIDs(ctx, itemIDs)
	if err != nil {
		return err
	}
	if len(entities) != len(itemIDs) {
		return serrors.NotFound("one or more items in the approval batch")
	}

	for _, entity := range entities {
		if err := s.requireTechCustody(ctx, entity); err != nil {
			return err
		}
		if entity.ApprovalStatus() != item.ApprovalNone {
			return serrors.Validation(
				fmt.Sprintf("item %d approval is already %s", entity.ID(), entity.ApprovalStatus()),
			)
		}
	}
	for _, entity := range entities {
		updated := entity.WithApproval(item.ApprovalPending, nil, nil)
		if err := s.repo.Update(ctx, updated); err != nil {
			return errors.Wrapf(err, "item %d", entity.ID())
		}
	}
	return nil
}

// Approve moves items from Pending to Approved, recording the approver and
// timestamp. Allowed for the central admin, or for the region operator whose
// region pairs with the tech subunit holding the item.
func (s *ItemService) Approve(ctx context.Context, itemIDs []uint) error {
	return s.decide(ctx, itemIDs, item.ApprovalApproved)
}

// Reject moves items from Pending to the terminal Rejected state.
func (s *ItemService) Reject(ctx context.Context, itemIDs []uint) error {
	return s.decide(ctx, itemIDs, item.ApprovalRejected)
}

func (s *ItemService) decide(ctx context.Context, itemIDs []uint, verdict item.ApprovalStatus) error {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return err
	}

	entities, err := s.repo.GetByIDs(ctx, itemIDs)
	if err != nil {
		return err
	}
	if len(entities) != len(itemIDs) {
		return serrors.NotFound("one or more items in the approval batch")
	}

	for _, entity := range entities {
		if entity.ApprovalStatus() != item.ApprovalPending {
			return serrors.Validation(
				fmt.Sprintf("item %d approval is %s, not pending", entity.ID(), entity.ApprovalStatus()),
			)
		}
		if err := s.canDecide(ctx, a, entity); err != nil {
			return err
		}
	}

	approverID := a.ID()
	now := time.Now()
	for _, entity := range entities {
		updated := entity.WithApproval(verdict, &approverID, &now)
		if err := s.repo.Update(ctx, updated); err != nil {
			return errors.Wrapf(err, "item %d", entity.ID())
		}
	}
	return nil
}

func (s *ItemService) canDecide(ctx context.Context, a actor.Actor, entity item.Item) error {
	if a.Role() == actor.RoleCentralAdmin {
		return nil
	}
	if a.Role() != actor.RoleRegionOperator {
		return serrors.AuthorizationDenied(fmt.Sprintf("role %s may not decide approvals", a.Role()))
	}
	if entity.CurrentUnitID() == nil || a.HomeUnitID() == nil {
		return serrors.AuthorizationDenied("approval requires both item custody and operator region")
	}
	held, err := s.units.GetByID(ctx, *entity.CurrentUnitID())
	if err != nil {
		return errors.Wrapf(err, "custody unit of item %d", entity.ID())
	}
	home, err := s.units.GetByID(ctx, *a.HomeUnitID())
	if err != nil {
		return errors.Wrap(err, "operator home unit")
	}
	if unit.RegionCodeForTech(held.Code()) != home.Code() {
		return serrors.AuthorizationDenied(
			fmt.Sprintf("item %d belongs to another region's workflow", entity.ID()),
		)
	}
	return nil
}

func (s *ItemService) requireTechCustody(ctx context.Context, entity item.Item) error {
	if entity.CurrentUnitID() == nil {
		return serrors.Validation(fmt.Sprintf("item %d is not held by any unit", entity.ID()))
	}
	held, err := s.units.GetByID(ctx, *entity.CurrentUnitID())
	if err != nil {
		return errors.Wrapf(err, "custody unit of item %d", entity.ID())
	}
	if !held.Type().IsTech() {
		return serrors.Validation(
			fmt.Sprintf("item %d is not in the technical-connection branch", entity.ID()),
		)
	}
	return nil
}

// Delete removes items and their movement history. Central admin only, and
// only with the configured confirmation code.
func (s *ItemService) Delete(ctx context.Context, itemIDs []uint, adminCode string) (int64, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return 0, err
	}
	if a.Role() != actor.RoleCentralAdmin {
		return 0, serrors.AuthorizationDenied(fmt.Sprintf("role %s may not delete items", a.Role()))
	}
	if adminCode != s.adminCode {
		return 0, serrors.AuthorizationDenied("wrong confirmation code")
	}
	if len(itemIDs) == 0 {
		return 0, serrors.Validation("no items requested for deletion")
	}

	if err := s.movements.DeleteByItemIDs(ctx, itemIDs); err != nil {
		return 0, err
	}
	deleted, err := s.repo.DeleteMany(ctx, itemIDs)
	if err != nil {
		return 0, err
	}

	s.publisher.Publish(&item.DeletedEvent{
		ItemIDs:   itemIDs,
		ActorID:   a.ID(),
		Timestamp: time.Now(),
	})
	return deleted, nil
}

// Movements returns the custody history of one item, oldest first.
func (s *ItemService) Movements(ctx context.Context, itemID uint) ([]movement.Movement, error) {
	if _, err := s.repo.GetByID(ctx, itemID); err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return nil, serrors.NotFound(fmt.Sprintf("item %d", itemID))
		}
		return nil, err
	}
	return s.movements.GetByItemID(ctx, itemID)
}
