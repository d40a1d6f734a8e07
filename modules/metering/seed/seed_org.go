package seed

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
	"github.com/enerflow/metering/modules/metering/infrastructure/persistence"
	"github.com/enerflow/metering/pkg/configuration"
)

type unitSpec struct {
	name      string
	code      string
	shortCode string
	unitType  unit.Type
}


// regions pairs every territorial branch with a one-letter code used in
// specification documents. Each region gets a matching technical subunit.
var regions = []unitSpec{
	{"Adler", "REG_ADLER", "A", unit.TypeRegion},
	{"Dagomys", "REG_DAGOMYS", "D", unit.TypeRegion},
	{"Krasnaya Polyana", "REG_KRASNAYA_POLYANA", "K", unit.TypeRegion},
	{"Lazarevskoye", "REG_LAZAREVSKOYE", "L", unit.TypeRegion},
	{"Sochi", "REG_SOCHI", "S", unit.TypeRegion},
	{"Tuapse", "REG_TUAPSE", "T", unit.TypeRegion},
	{"Khosta", "REG_KHOSTA", "H", unit.TypeRegion},
}

// SeedOrg creates the fixed organizational tree: the three central units,
// seven regions and their paired technical subunits. Existing units are left
// untouched, so reseeding is safe.
func SeedOrg(ctx context.Context) error {
	units := persistence.NewUnitRepository()

	central, err := getOrCreateUnit(ctx, units,
		unitSpec{"Central Accounting Authority", "CENTRAL", "", unit.TypeCentralAuthority}, nil)
	if err != nil {
		return err
	}
	centralID := central.ID()

	if _, err := getOrCreateUnit(ctx, units,
		unitSpec{"Metrology Laboratory", "LAB", "", unit.TypeLaboratory}, &centralID); err != nil {
		return err
	}

	techCentral, err := getOrCreateUnit(ctx, units,
		unitSpec{"Technical Connection Authority", "TECH", "", unit.TypeTechCentral}, nil)
	if err != nil {
		return err
	}
	techCentralID := techCentral.ID()

	for _, spec := range regions {
		if _, err := getOrCreateUnit(ctx, units, spec, &centralID); err != nil {
			return err
		}
		techSpec := unitSpec{
			name:      spec.name + " Technical Connection",
			code:      unit.TechCodeForRegion(spec.code),
			shortCode: spec.shortCode,
			unitType:  unit.TypeRegionTech,
		}
		if _, err := getOrCreateUnit(ctx, units, techSpec, &techCentralID); err != nil {
			return err
		}
	}
	return nil
}

func getOrCreateUnit(ctx context.Context, units unit.Repository, spec unitSpec, parentID *uint) (unit.Unit, error) {
	logger := configuration.Use().Logger()
	existing, err := units.GetByCode(ctx, spec.code)
	if err == nil {
		logger.Infof("unit %s already exists", spec.code)
		return existing, nil
	}
	if !errors.Is(err, unit.ErrNotFound) {
		return unit.Unit{}, err
	}

	logger.Infof("creating unit %s", spec.code)
	created, err := units.Create(ctx, unit.New(spec.name, spec.code, spec.shortCode, spec.unitType, parentID))
	if err != nil {
		return unit.Unit{}, errors.Wrapf(err, "unit %s", spec.code)
	}
	return created, nil
}
