package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/pkg/serrors"
)

func fixedMay2025() time.Time {
	return time.Date(2025, time.May, 14, 9, 30, 0, 0, time.UTC)
}

func newNumberingFixture() (*NumberingService, *itemRepoStub) {
	items := newItemRepoStub()
	svc := NewNumberingService(items, newOrgFixture())
	svc.now = fixedMay2025
	return svc, items
}

func TestSpecCodeFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, "2S/05-25", SpecCodeFor(2, "S", fixedMay2025()))
	require.Equal(t, "3A/12-24", SpecCodeFor(3, "A", time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNumberingService_AssignSpecCodes(t *testing.T) {
	t.Parallel()

	svc, items := newNumberingFixture()
	ctx := ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil))

	first := items.add(item.New(nil, "500001", "", uintPtr(adlerUnitID)))
	second := items.add(item.New(nil, "500002", "", uintPtr(adlerUnitID)))

	code, err := svc.AssignSpecCodes(ctx, []uint{first.ID(), second.ID()}, adlerUnitID, 1)
	require.NoError(t, err)
	require.Equal(t, "1A/05-25", code)

	stored, err := items.GetByID(ctx, first.ID())
	require.NoError(t, err)
	require.Equal(t, "1A/05-25", *stored.SpecCode())
}

func TestNumberingService_AssignSpecCodes_SecondBatchSameMonthConflicts(t *testing.T) {
	t.Parallel()

	svc, items := newNumberingFixture()
	ctx := ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil))

	first := items.add(item.New(nil, "500003", "", uintPtr(sochiUnitID)))
	_, err := svc.AssignSpecCodes(ctx, []uint{first.ID()}, sochiUnitID, 2)
	require.NoError(t, err)

	second := items.add(item.New(nil, "500004", "", uintPtr(sochiUnitID)))
	_, err = svc.AssignSpecCodes(ctx, []uint{second.ID()}, sochiUnitID, 2)
	require.Equal(t, serrors.CodeConflict, serrors.CodeOf(err))

	stored, getErr := items.GetByID(ctx, second.ID())
	require.NoError(t, getErr)
	require.Nil(t, stored.SpecCode())

	// Another category, same month and region, is a different code.
	_, err = svc.AssignSpecCodes(ctx, []uint{second.ID()}, sochiUnitID, 3)
	require.NoError(t, err)
}

func TestNumberingService_AssignSpecCodes_Guards(t *testing.T) {
	t.Parallel()

	svc, items := newNumberingFixture()
	seeded := items.add(item.New(nil, "500005", "", uintPtr(adlerUnitID)))

	_, err := svc.AssignSpecCodes(
		ctxWithActor(testActor(1, actor.RoleRegionOperator, uintPtr(adlerUnitID))),
		[]uint{seeded.ID()}, adlerUnitID, 1,
	)
	require.Equal(t, serrors.CodeAuthorizationDenied, serrors.CodeOf(err))

	adminCtx := ctxWithActor(testActor(2, actor.RoleTechCentralAdmin, uintPtr(techCentralUnitID)))

	_, err = svc.AssignSpecCodes(adminCtx, []uint{seeded.ID()}, adlerUnitID, 4)
	require.Equal(t, serrors.CodeValidation, serrors.CodeOf(err))

	// The central authority carries no region letter to stamp with.
	_, err = svc.AssignSpecCodes(adminCtx, []uint{seeded.ID()}, centralUnitID, 1)
	require.Equal(t, serrors.CodeValidation, serrors.CodeOf(err))

	_, err = svc.AssignSpecCodes(adminCtx, []uint{seeded.ID(), 9999}, adlerUnitID, 1)
	require.Equal(t, serrors.CodeNotFound, serrors.CodeOf(err))
}

func TestNumberingService_NextRequestCode(t *testing.T) {
	t.Parallel()

	svc, items := newNumberingFixture()
	ctx := ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil))

	code, err := svc.NextRequestCode(ctx)
	require.NoError(t, err)
	require.Equal(t, "1-25", code)

	items.add(item.New(nil, "500006", "", uintPtr(adlerUnitID)).WithRequestCode(strPtr("4-25")))
	items.add(item.New(nil, "500007", "", uintPtr(adlerUnitID)).WithRequestCode(strPtr("7-24")))
	items.add(item.New(nil, "500008", "", uintPtr(adlerUnitID)).WithRequestCode(strPtr("garbled")))

	code, err = svc.NextRequestCode(ctx)
	require.NoError(t, err)
	require.Equal(t, "5-25", code)
}

func TestNumberingService_AssignRequestCode_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	svc, items := newNumberingFixture()
	ctx := ctxWithActor(testActor(1, actor.RoleTechCentralAdmin, uintPtr(techCentralUnitID)))

	seeded := items.add(item.New(nil, "500009", "", uintPtr(adlerTechUnitID)))
	items.requestCodeConflicts = 2

	code, err := svc.AssignRequestCode(ctx, []uint{seeded.ID()})
	require.NoError(t, err)
	// Two candidates were claimed by the simulated concurrent writer.
	require.Equal(t, "3-25", code)

	stored, err := items.GetByID(ctx, seeded.ID())
	require.NoError(t, err)
	require.Equal(t, "3-25", *stored.RequestCode())
}

func TestNumberingService_AssignRequestCode_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	svc, items := newNumberingFixture()
	ctx := ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil))

	seeded := items.add(item.New(nil, "500010", "", uintPtr(adlerTechUnitID)))
	items.requestCodeConflicts = 3

	_, err := svc.AssignRequestCode(ctx, []uint{seeded.ID()})
	require.Equal(t, serrors.CodeConflict, serrors.CodeOf(err))
}

func TestNumberingService_EligibleForSpecCode(t *testing.T) {
	t.Parallel()

	svc, items := newNumberingFixture()
	ctx := ctxWithActor(testActor(1, actor.RoleCentralAdmin, nil))

	eligible := items.add(
		item.New(nil, "500011", "", uintPtr(adlerUnitID)).
			WithInitialStatus(item.StatusTechConnect).
			WithContract(strPtr("11111-11-11111111-1"), nil).
			WithPower(floatPtr(10)),
	)
	// No contract yet.
	items.add(item.New(nil, "500012", "", uintPtr(adlerUnitID)).WithInitialStatus(item.StatusTechConnect))
	// Wrong power category.
	items.add(
		item.New(nil, "500013", "", uintPtr(adlerUnitID)).
			WithInitialStatus(item.StatusTechConnect).
			WithContract(strPtr("22222-22-22222222-2"), nil).
			WithPower(floatPtr(90)),
	)
	// Already stamped.
	items.add(
		item.New(nil, "500014", "", uintPtr(adlerUnitID)).
			WithInitialStatus(item.StatusTechConnect).
			WithContract(strPtr("33333-33-33333333-3"), nil).
			WithPower(floatPtr(12)).
			WithSpecCode(strPtr("1A/04-25")),
	)

	listed, err := svc.EligibleForSpecCode(ctx, adlerUnitID, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, eligible.ID(), listed[0].ID())
}
