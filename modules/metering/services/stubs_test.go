package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/modules/metering/domain/entities/movement"
	"github.com/enerflow/metering/modules/metering/domain/entities/register"
	"github.com/enerflow/metering/modules/metering/domain/entities/typerule"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/eventbus"
)

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func statusPtr(v item.WorkStatus) *item.WorkStatus { return &v }

func ctxWithActor(a actor.Actor) context.Context {
	return composables.WithActor(context.Background(), a)
}

func testActor(id uint, role actor.Role, homeUnitID *uint) actor.Actor {
	return actor.Hydrate(id, role, homeUnitID, fmt.Sprintf("actor-%d", id), true)
}

// unitRepoStub serves a fixed org hierarchy from memory.
type unitRepoStub struct {
	units map[uint]unit.Unit
}

func newUnitRepoStub(units ...unit.Unit) *unitRepoStub {
	s := &unitRepoStub{units: make(map[uint]unit.Unit, len(units))}
	for _, u := range units {
		s.units[u.ID()] = u
	}
	return s
}

func (s *unitRepoStub) GetByID(_ context.Context, id uint) (unit.Unit, error) {
	u, ok := s.units[id]
	if !ok {
		return unit.Unit{}, unit.ErrNotFound
	}
	return u, nil
}

func (s *unitRepoStub) GetByCode(_ context.Context, code string) (unit.Unit, error) {
	for _, u := range s.units {
		if u.Code() == code {
			return u, nil
		}
	}
	return unit.Unit{}, unit.ErrNotFound
}

func (s *unitRepoStub) GetAllActive(_ context.Context) ([]unit.Unit, error) {
	out := make([]unit.Unit, 0, len(s.units))
	for _, u := range s.units {
		if u.Active() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (s *unitRepoStub) GetByTypes(_ context.Context, types ...unit.Type) ([]unit.Unit, error) {
	wanted := make(map[unit.Type]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	out := make([]unit.Unit, 0)
	for _, u := range s.units {
		if u.Active() && wanted[u.Type()] {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (s *unitRepoStub) Create(_ context.Context, u unit.Unit) (unit.Unit, error) {
	id := uint(len(s.units) + 1)
	created := unit.Hydrate(id, u.Name(), u.Code(), u.ShortCode(), u.Type(), u.ParentID(), u.Active())
	s.units[id] = created
	return created, nil
}

// Fixture unit ids used across the service tests.
const (
	centralUnitID     = 1
	labUnitID         = 2
	techCentralUnitID = 3
	adlerUnitID       = 4
	sochiUnitID       = 5
	adlerTechUnitID   = 6
	sochiTechUnitID   = 7
)

func newOrgFixture() *unitRepoStub {
	central := uintPtr(centralUnitID)
	techCentral := uintPtr(techCentralUnitID)
	return newUnitRepoStub(
		unit.Hydrate(centralUnitID, "Central Accounting", "CENTRAL", "", unit.TypeCentralAuthority, nil, true),
		unit.Hydrate(labUnitID, "Laboratory", "LAB", "", unit.TypeLaboratory, central, true),
		unit.Hydrate(techCentralUnitID, "Tech Connection Authority", "TECH", "", unit.TypeTechCentral, nil, true),
		unit.Hydrate(adlerUnitID, "Adler", "REG_ADLER", "A", unit.TypeRegion, central, true),
		unit.Hydrate(sochiUnitID, "Sochi", "REG_SOCHI", "S", unit.TypeRegion, central, true),
		unit.Hydrate(adlerTechUnitID, "Adler Tech", "TCH_ADLER", "A", unit.TypeRegionTech, techCentral, true),
		unit.Hydrate(sochiTechUnitID, "Sochi Tech", "TCH_SOCHI", "S", unit.TypeRegionTech, techCentral, true),
	)
}

// itemRepoStub is an in-memory item.Repository with just enough filter
// support for the services under test.
type itemRepoStub struct {
	mu    sync.Mutex
	seq   uint
	items map[uint]item.Item

	// requestCodeConflicts makes the next N SetRequestCode calls fail with
	// a unique violation, simulating a concurrent writer.
	requestCodeConflicts int
}

func newItemRepoStub() *itemRepoStub {
	return &itemRepoStub{items: make(map[uint]item.Item)}
}

func (s *itemRepoStub) add(entity item.Item) item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	snap := entity.Snapshot()
	snap.ID = s.seq
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	snap.UpdatedAt = time.Now()
	created := item.Hydrate(snap)
	s.items[snap.ID] = created
	return created
}

func (s *itemRepoStub) GetByID(_ context.Context, id uint) (item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entity, ok := s.items[id]
	if !ok {
		return item.Item{}, item.ErrNotFound
	}
	return entity, nil
}

func (s *itemRepoStub) GetByIDs(_ context.Context, ids []uint) ([]item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]item.Item, 0, len(ids))
	for _, id := range ids {
		if entity, ok := s.items[id]; ok {
			out = append(out, entity)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (s *itemRepoStub) matches(entity item.Item, params *item.FindParams) bool {
	if params == nil {
		return true
	}
	if params.UnitScoped {
		found := false
		if entity.CurrentUnitID() != nil {
			for _, id := range params.UnitIDs {
				if id == *entity.CurrentUnitID() {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	if params.CurrentUnitID != nil {
		if entity.CurrentUnitID() == nil || *entity.CurrentUnitID() != *params.CurrentUnitID {
			return false
		}
	}
	if len(params.RegisterIDs) > 0 {
		found := false
		if entity.RegisterID() != nil {
			for _, id := range params.RegisterIDs {
				if id == *entity.RegisterID() {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	if len(params.Statuses) > 0 {
		found := false
		for _, status := range params.Statuses {
			if entity.WorkStatus() == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if params.Search != "" &&
		!strings.Contains(strings.ToLower(entity.SerialNumber()), strings.ToLower(params.Search)) {
		return false
	}
	if params.WithContractOnly && entity.ContractNumber() == nil {
		return false
	}
	if params.WithoutSpecCode && entity.SpecCode() != nil {
		return false
	}
	if params.PowerCategory != 0 {
		if entity.Power() == nil || item.CategoryForPower(*entity.Power()) != params.PowerCategory {
			return false
		}
	}
	return true
}

func (s *itemRepoStub) filtered(params *item.FindParams) []item.Item {
	out := make([]item.Item, 0)
	for _, entity := range s.items {
		if s.matches(entity, params) {
			out = append(out, entity)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (s *itemRepoStub) GetPaginated(_ context.Context, params *item.FindParams) ([]item.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filtered(params)
	if params != nil && params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params != nil && params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *itemRepoStub) Count(_ context.Context, params *item.FindParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.filtered(params))), nil
}

func (s *itemRepoStub) CountByStatus(_ context.Context, params *item.FindParams) (map[item.WorkStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[item.WorkStatus]int64)
	for _, entity := range s.filtered(params) {
		counts[entity.WorkStatus()]++
	}
	return counts, nil
}

func (s *itemRepoStub) Create(_ context.Context, entity item.Item) (item.Item, error) {
	return s.add(entity), nil
}

func (s *itemRepoStub) Update(_ context.Context, entity item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[entity.ID()]; !ok {
		return item.ErrNotFound
	}
	snap := entity.Snapshot()
	snap.UpdatedAt = time.Now()
	s.items[entity.ID()] = item.Hydrate(snap)
	return nil
}

func (s *itemRepoStub) DeleteMany(_ context.Context, ids []uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			delete(s.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *itemRepoStub) ContractExists(_ context.Context, contractNumber string, excludeID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entity := range s.items {
		if entity.ID() == excludeID {
			continue
		}
		if entity.ContractNumber() != nil && *entity.ContractNumber() == contractNumber {
			return true, nil
		}
	}
	return false, nil
}

func (s *itemRepoStub) SpecCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entity := range s.items {
		if entity.SpecCode() != nil && *entity.SpecCode() == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *itemRepoStub) ListRequestCodes(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var codes []string
	for _, entity := range s.items {
		if entity.RequestCode() != nil && !seen[*entity.RequestCode()] {
			seen[*entity.RequestCode()] = true
			codes = append(codes, *entity.RequestCode())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (s *itemRepoStub) SetSpecCode(_ context.Context, ids []uint, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		entity, ok := s.items[id]
		if !ok {
			continue
		}
		s.items[id] = entity.WithSpecCode(&code)
	}
	return nil
}

func (s *itemRepoStub) SetRequestCode(_ context.Context, ids []uint, code string) error {
	s.mu.Lock()
	if s.requestCodeConflicts > 0 {
		s.requestCodeConflicts--
		// Pretend another writer claimed the code and stored it.
		blockerID := s.seq + 1000 + uint(s.requestCodeConflicts)
		blocker := item.Hydrate(item.Snapshot{
			ID:             blockerID,
			SerialNumber:   fmt.Sprintf("blocker-%d", blockerID),
			WorkStatus:     item.StatusWarehouse,
			ApprovalStatus: item.ApprovalNone,
			RequestCode:    &code,
		})
		s.items[blockerID] = blocker
		s.mu.Unlock()
		return &pgconn.PgError{Code: "23505", ConstraintName: "document_codes_pkey"}
	}
	defer s.mu.Unlock()
	for _, id := range ids {
		entity, ok := s.items[id]
		if !ok {
			continue
		}
		s.items[id] = entity.WithRequestCode(&code)
	}
	return nil
}

// movementRepoStub records custody history in memory.
type movementRepoStub struct {
	mu        sync.Mutex
	seq       uint
	movements []movement.Movement
}

func newMovementRepoStub() *movementRepoStub {
	return &movementRepoStub{}
}

func (s *movementRepoStub) CreateMany(_ context.Context, movements []movement.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range movements {
		s.seq++
		s.movements = append(s.movements, movement.Hydrate(
			s.seq, m.ItemID(), m.FromUnitID(), m.ToUnitID(), m.MovedBy(), time.Now(), m.Comment(),
		))
	}
	return nil
}

func (s *movementRepoStub) GetByItemID(_ context.Context, itemID uint) ([]movement.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]movement.Movement, 0)
	for _, m := range s.movements {
		if m.ItemID() == itemID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *movementRepoStub) DeleteByItemIDs(_ context.Context, itemIDs []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uint]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	kept := s.movements[:0]
	for _, m := range s.movements {
		if !wanted[m.ItemID()] {
			kept = append(kept, m)
		}
	}
	s.movements = kept
	return nil
}

func (s *movementRepoStub) CountByItemIDs(_ context.Context, itemIDs []uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uint]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	var count int64
	for _, m := range s.movements {
		if wanted[m.ItemID()] {
			count++
		}
	}
	return count, nil
}

// typeRuleRepoStub serves a fixed rule set.
type typeRuleRepoStub struct {
	rules []typerule.Rule
}

func newTypeRuleRepoStub(rules ...typerule.Rule) *typeRuleRepoStub {
	return &typeRuleRepoStub{rules: rules}
}

func (s *typeRuleRepoStub) GetAll(_ context.Context) ([]typerule.Rule, error) {
	return append([]typerule.Rule(nil), s.rules...), nil
}

func (s *typeRuleRepoStub) Create(_ context.Context, rule typerule.Rule) (typerule.Rule, error) {
	created := typerule.Hydrate(
		uint(len(s.rules)+1),
		rule.Pattern(),
		rule.Phase(),
		rule.Voltage(),
		rule.FormFactor(),
		rule.Power(),
		rule.Scope(),
		rule.Active(),
	)
	s.rules = append(s.rules, created)
	return created, nil
}

// registerRepoStub stores import registers in memory.
type registerRepoStub struct {
	mu        sync.Mutex
	seq       uint
	registers map[uint]register.Register
}

func newRegisterRepoStub() *registerRepoStub {
	return &registerRepoStub{registers: make(map[uint]register.Register)}
}

func (s *registerRepoStub) GetByID(_ context.Context, id uint) (register.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registers[id]
	if !ok {
		return register.Register{}, register.ErrNotFound
	}
	return reg, nil
}

func (s *registerRepoStub) GetByRef(_ context.Context, ref uuid.UUID) (register.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.registers {
		if reg.Ref() == ref {
			return reg, nil
		}
	}
	return register.Register{}, register.ErrNotFound
}

func (s *registerRepoStub) GetAll(_ context.Context) ([]register.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]register.Register, 0, len(s.registers))
	for _, reg := range s.registers {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() > out[j].ID() })
	return out, nil
}

func (s *registerRepoStub) Create(_ context.Context, reg register.Register) (register.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	created := register.Hydrate(s.seq, reg.Ref(), reg.Filename(), reg.ImportedBy(), reg.RowCount(), time.Now())
	s.registers[s.seq] = created
	return created, nil
}

func (s *registerRepoStub) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registers, id)
	return nil
}

func quietBus() eventbus.EventBus {
	return eventbus.NewEventPublisher(nil)
}
