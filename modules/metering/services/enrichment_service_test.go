package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/pkg/serrors"
)

func contractSheet(t *testing.T) *sheetFixture {
	t.Helper()
	return &sheetFixture{
		name: "Contracts",
		rows: [][]interface{}{
			{"Quarterly report"},
			{""},
			{"Contract number", "Consumer name", "Address", "Power, kW", "Signing date", "Planned completion date"},
			{"№ 12345-67-89012345-6", "Ivanov I.I.", "Lenina st. 1", "7,5", "14.03.2025", "2025-06-30"},
			{"99999-99-99999999-9", "Nobody", "Nowhere", "", "", ""},
			{"too short", "Dropped", "", "", "", ""},
		},
	}
}

func TestEnrichmentService_EnrichByContract(t *testing.T) {
	t.Parallel()

	items := newItemRepoStub()
	svc := NewEnrichmentService(items, 10)

	target := items.add(
		item.New(nil, "600001", "", uintPtr(adlerTechUnitID)).
			WithInitialStatus(item.StatusTechConnect).
			WithContract(strPtr("12345-67-89012345-6"), nil).
			WithConsumer(strPtr("stale name"), nil),
	)
	// Same contract but still in the warehouse, out of enrichment scope.
	parked := items.add(
		item.New(nil, "600002", "", uintPtr(adlerUnitID)).
			WithContract(strPtr("12345-67-89012345-6"), nil),
	)

	buf := buildWorkbook(t, []sheetFixture{*contractSheet(t)})
	res, err := svc.EnrichByContract(labCtx(), buf)
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	// The garbled contract row still counts toward the total.
	require.Equal(t, 3, res.TotalRows)

	stored, err := items.GetByID(labCtx(), target.ID())
	require.NoError(t, err)
	require.Equal(t, "Ivanov I.I.", *stored.ConsumerName())
	require.Equal(t, "Lenina st. 1", *stored.ConsumerAddress())
	require.InDelta(t, 7.5, *stored.Power(), 0.001)
	require.Equal(t, time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC), *stored.ContractDate())
	require.Equal(t, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), *stored.PlannedDate())

	untouched, err := items.GetByID(labCtx(), parked.ID())
	require.NoError(t, err)
	require.Nil(t, untouched.ConsumerName())
}

func TestEnrichmentService_RoleGuard(t *testing.T) {
	t.Parallel()

	items := newItemRepoStub()
	svc := NewEnrichmentService(items, 10)

	target := items.add(
		item.New(nil, "600010", "", uintPtr(adlerTechUnitID)).
			WithInitialStatus(item.StatusTechConnect).
			WithContract(strPtr("12345-67-89012345-6"), nil),
	)
	replaced := items.add(
		item.New(nil, "600011", "", uintPtr(sochiUnitID)).
			WithInitialStatus(item.StatusReplacement),
	)

	// A region operator of an unrelated region must not rewrite fleet-wide
	// consumer data, not even on items outside their visible units.
	ctx := ctxWithActor(testActor(7, actor.RoleRegionOperator, uintPtr(sochiUnitID)))

	_, err := svc.EnrichByContract(ctx, buildWorkbook(t, []sheetFixture{*contractSheet(t)}))
	require.Equal(t, serrors.CodeAuthorizationDenied, serrors.CodeOf(err))

	serialSheet := []sheetFixture{{
		name: "Accounts",
		rows: [][]interface{}{
			{"Meter number", "Account number"},
			{"600011", "ACC-0099"},
		},
	}}
	_, err = svc.EnrichBySerial(ctx, buildWorkbook(t, serialSheet))
	require.Equal(t, serrors.CodeAuthorizationDenied, serrors.CodeOf(err))

	_, err = svc.LookupByContract(ctx, buildWorkbook(t, []sheetFixture{*contractSheet(t)}), "89012345")
	require.Equal(t, serrors.CodeAuthorizationDenied, serrors.CodeOf(err))

	_, err = svc.LookupBySerial(ctx, buildWorkbook(t, serialSheet), "600011")
	require.Equal(t, serrors.CodeAuthorizationDenied, serrors.CodeOf(err))

	stored, err := items.GetByID(labCtx(), target.ID())
	require.NoError(t, err)
	require.Nil(t, stored.ConsumerName())
	stored, err = items.GetByID(labCtx(), replaced.ID())
	require.NoError(t, err)
	require.Nil(t, stored.AccountNumber())
}

func TestEnrichmentService_EnrichByContract_NoKeyColumn(t *testing.T) {
	t.Parallel()

	svc := NewEnrichmentService(newItemRepoStub(), 10)
	buf := buildWorkbook(t, []sheetFixture{{
		name: "Contracts",
		rows: [][]interface{}{
			{"Consumer name", "Address"},
			{"Ivanov I.I.", "Lenina st. 1"},
		},
	}})

	_, err := svc.EnrichByContract(labCtx(), buf)
	require.Equal(t, serrors.CodeValidation, serrors.CodeOf(err))
}

func TestEnrichmentService_EnrichByContract_HeaderBeyondScanWindow(t *testing.T) {
	t.Parallel()

	svc := NewEnrichmentService(newItemRepoStub(), 2)
	sheet := contractSheet(t)

	buf := buildWorkbook(t, []sheetFixture{*sheet})
	_, err := svc.EnrichByContract(labCtx(), buf)
	require.Equal(t, serrors.CodeValidation, serrors.CodeOf(err))
}

func TestEnrichmentService_EnrichBySerial(t *testing.T) {
	t.Parallel()

	items := newItemRepoStub()
	svc := NewEnrichmentService(items, 10)

	replaced := items.add(
		item.New(nil, "700001", "", uintPtr(adlerUnitID)).
			WithInitialStatus(item.StatusReplacement),
	)
	// Same serial in another row of the fleet but not in a replacement flow.
	stocked := items.add(item.New(nil, "700002", "", uintPtr(adlerUnitID)))

	buf := buildWorkbook(t, []sheetFixture{{
		name: "Accounts",
		rows: [][]interface{}{
			{"Meter number", "Account number"},
			{"700001", "ACC-0001"},
			{"700002", "ACC-0002"},
			{"700003", ""},
		},
	}})

	res, err := svc.EnrichBySerial(labCtx(), buf)
	require.NoError(t, err)
	require.Equal(t, 1, res.Matched)
	require.Equal(t, 2, res.TotalRows)

	stored, err := items.GetByID(labCtx(), replaced.ID())
	require.NoError(t, err)
	require.Equal(t, "ACC-0001", *stored.AccountNumber())

	untouched, err := items.GetByID(labCtx(), stocked.ID())
	require.NoError(t, err)
	require.Nil(t, untouched.AccountNumber())
}

func TestEnrichmentService_LookupByContract(t *testing.T) {
	t.Parallel()

	svc := NewEnrichmentService(newItemRepoStub(), 10)

	rec, err := svc.LookupByContract(labCtx(), buildWorkbook(t, []sheetFixture{*contractSheet(t)}), "12345-67-89012345-6")
	require.NoError(t, err)
	require.Equal(t, "Ivanov I.I.", rec.ConsumerName)

	// A partial key resolves through containment.
	rec, err = svc.LookupByContract(labCtx(), buildWorkbook(t, []sheetFixture{*contractSheet(t)}), "89012345")
	require.NoError(t, err)
	require.Equal(t, "12345-67-89012345-6", rec.ContractNumber)

	_, err = svc.LookupByContract(labCtx(), buildWorkbook(t, []sheetFixture{*contractSheet(t)}), "00000-00-00000000-0")
	require.Equal(t, serrors.CodeNotFound, serrors.CodeOf(err))

	_, err = svc.LookupByContract(labCtx(), buildWorkbook(t, []sheetFixture{*contractSheet(t)}), "   ")
	require.Equal(t, serrors.CodeValidation, serrors.CodeOf(err))
}

func TestEnrichmentService_LookupBySerial(t *testing.T) {
	t.Parallel()

	svc := NewEnrichmentService(newItemRepoStub(), 10)
	buf := buildWorkbook(t, []sheetFixture{{
		name: "Accounts",
		rows: [][]interface{}{
			{"Meter", "Account"},
			{"700010", "ACC-0010"},
		},
	}})

	rec, err := svc.LookupBySerial(labCtx(), buf, "700010")
	require.NoError(t, err)
	require.Equal(t, "ACC-0010", rec.AccountNumber)
}
