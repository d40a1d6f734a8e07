package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/modules/metering/domain/entities/register"
	"github.com/enerflow/metering/pkg/serrors"
)

type queryFixture struct {
	service   *ItemQueryService
	items     *itemRepoStub
	registers *registerRepoStub
}

func newQueryFixture() *queryFixture {
	items := newItemRepoStub()
	registers := newRegisterRepoStub()
	policy := NewAccessPolicy(newOrgFixture())
	return &queryFixture{
		service:   NewItemQueryService(items, registers, policy),
		items:     items,
		registers: registers,
	}
}

func (f *queryFixture) seedFleet() (adlerItem, sochiItem, techItem item.Item) {
	adlerItem = f.items.add(item.New(nil, "800001", "", uintPtr(adlerUnitID)))
	sochiItem = f.items.add(item.New(nil, "800002", "", uintPtr(sochiUnitID)))
	techItem = f.items.add(
		item.New(nil, "800003", "", uintPtr(adlerTechUnitID)).
			WithInitialStatus(item.StatusTechConnect),
	)
	return adlerItem, sochiItem, techItem
}

func TestItemQueryService_Search_Scoping(t *testing.T) {
	t.Parallel()

	f := newQueryFixture()
	f.seedFleet()

	found, total, err := f.service.Search(
		ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil)), SearchQuery{},
	)
	require.NoError(t, err)
	require.Len(t, found, 3)
	require.Equal(t, int64(3), total)

	found, total, err = f.service.Search(
		ctxWithActor(testActor(2, actor.RoleRegionOperator, uintPtr(adlerUnitID))), SearchQuery{},
	)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, int64(1), total)
	require.Equal(t, "800001", found[0].SerialNumber())

	found, _, err = f.service.Search(
		ctxWithActor(testActor(3, actor.RoleTechCentralAdmin, uintPtr(techCentralUnitID))), SearchQuery{},
	)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "800003", found[0].SerialNumber())
}

func TestItemQueryService_Search_Filters(t *testing.T) {
	t.Parallel()

	f := newQueryFixture()
	f.seedFleet()
	ctx := ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil))

	found, total, err := f.service.Search(ctx, SearchQuery{Search: "80000"})
	require.NoError(t, err)
	require.Len(t, found, 3)
	require.Equal(t, int64(3), total)

	found, _, err = f.service.Search(ctx, SearchQuery{Statuses: []item.WorkStatus{item.StatusTechConnect}})
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, _, err = f.service.Search(ctx, SearchQuery{UnitID: uintPtr(sochiUnitID)})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "800002", found[0].SerialNumber())
}

func TestItemQueryService_LabScope(t *testing.T) {
	t.Parallel()

	f := newQueryFixture()
	f.seedFleet()

	ownReg, err := f.registers.Create(labCtx(), register.New("own.xlsx", 42, 1))
	require.NoError(t, err)
	otherReg, err := f.registers.Create(labCtx(), register.New("other.xlsx", 99, 1))
	require.NoError(t, err)

	ownID := ownReg.ID()
	otherID := otherReg.ID()
	mine := f.items.add(item.New(&ownID, "800010", "", nil))
	theirs := f.items.add(item.New(&otherID, "800011", "", nil))

	found, total, err := f.service.Search(labCtx(), SearchQuery{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, int64(1), total)
	require.Equal(t, mine.ID(), found[0].ID())

	_, err = f.service.GetByID(labCtx(), mine.ID())
	require.NoError(t, err)
	_, err = f.service.GetByID(labCtx(), theirs.ID())
	require.Equal(t, serrors.CodeAuthorizationDenied, serrors.CodeOf(err))

	regs, err := f.service.Registers(labCtx())
	require.NoError(t, err)
	require.Len(t, regs, 1)
	require.Equal(t, "own.xlsx", regs[0].Filename())

	// An operator with no uploads sees an empty fleet, not everything.
	emptyCtx := ctxWithActor(testActor(77, actor.RoleLabOperator, uintPtr(labUnitID)))
	found, total, err = f.service.Search(emptyCtx, SearchQuery{})
	require.NoError(t, err)
	require.Empty(t, found)
	require.Zero(t, total)
}

func TestItemQueryService_GetByID(t *testing.T) {
	t.Parallel()

	f := newQueryFixture()
	adlerItem, sochiItem, _ := f.seedFleet()

	adlerCtx := ctxWithActor(testActor(1, actor.RoleRegionOperator, uintPtr(adlerUnitID)))
	got, err := f.service.GetByID(adlerCtx, adlerItem.ID())
	require.NoError(t, err)
	require.Equal(t, adlerItem.ID(), got.ID())

	_, err = f.service.GetByID(adlerCtx, sochiItem.ID())
	require.Equal(t, serrors.CodeAuthorizationDenied, serrors.CodeOf(err))

	_, err = f.service.GetByID(adlerCtx, 9999)
	require.Equal(t, serrors.CodeNotFound, serrors.CodeOf(err))

	// An unassigned item stays reachable for central accounting so it can be
	// re-homed, while scoped roles never see it.
	loose := f.items.add(item.New(nil, "800020", "", nil))
	got, err = f.service.GetByID(ctxWithActor(testActor(2, actor.RoleCentralAdmin, nil)), loose.ID())
	require.NoError(t, err)
	require.Equal(t, loose.ID(), got.ID())
	_, err = f.service.GetByID(adlerCtx, loose.ID())
	require.Equal(t, serrors.CodeAuthorizationDenied, serrors.CodeOf(err))
}

func TestItemQueryService_Search_UnassignedVisibleToCentralAdmin(t *testing.T) {
	t.Parallel()

	f := newQueryFixture()
	f.seedFleet()
	f.items.add(item.New(nil, "800021", "", nil))

	found, total, err := f.service.Search(
		ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil)), SearchQuery{},
	)
	require.NoError(t, err)
	require.Len(t, found, 4)
	require.Equal(t, int64(4), total)

	// Unit-scoped roles still match held items only.
	found, total, err = f.service.Search(
		ctxWithActor(testActor(2, actor.RoleRegionOperator, uintPtr(adlerUnitID))), SearchQuery{},
	)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, int64(1), total)
	require.Equal(t, "800001", found[0].SerialNumber())

	found, _, err = f.service.Search(
		ctxWithActor(testActor(3, actor.RoleTechCentralAdmin, uintPtr(techCentralUnitID))), SearchQuery{},
	)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "800003", found[0].SerialNumber())
}

func TestItemQueryService_Dashboard(t *testing.T) {
	t.Parallel()

	f := newQueryFixture()
	f.seedFleet()
	_, err := f.registers.Create(labCtx(), register.New("recent.xlsx", 42, 3))
	require.NoError(t, err)

	board, err := f.service.Dashboard(ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil)))
	require.NoError(t, err)
	require.Equal(t, int64(3), board.Total)
	require.Equal(t, int64(2), board.ByStatus[item.StatusWarehouse])
	require.Equal(t, int64(1), board.ByStatus[item.StatusTechConnect])
	require.Len(t, board.RecentRegisters, 1)

	board, err = f.service.Dashboard(ctxWithActor(testActor(2, actor.RoleRegionOperator, uintPtr(sochiUnitID))))
	require.NoError(t, err)
	require.Equal(t, int64(1), board.Total)
	require.Equal(t, int64(1), board.ByStatus[item.StatusWarehouse])
}
