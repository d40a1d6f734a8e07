package unit

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("unit not found")

type Type string

const (
	// TypeCentralAuthority is the central accounting authority.
	TypeCentralAuthority Type = "CENTRAL_AUTHORITY"
	// TypeLaboratory verifies devices and uploads registers.
	TypeLaboratory Type = "LABORATORY"
	// TypeTechCentral is the central technical-connection authority.
	TypeTechCentral Type = "TECH_CENTRAL"
	// TypeRegion is one of the regional distribution units.
	TypeRegion Type = "REGION"
	// TypeRegionTech is the technical-connection subunit paired with a region.
	TypeRegionTech Type = "REGION_TECH"
)

func NewType(v string) (Type, error) {
	t := Type(v)
	if !t.IsValid() {
		return "", errors.New("invalid unit type")
	}
	return t, nil
}

func (t Type) IsValid() bool {
	switch t {
	case TypeCentralAuthority, TypeLaboratory, TypeTechCentral, TypeRegion, TypeRegionTech:
		return true
	}
	return false
}

// IsTech reports whether the unit belongs to the technical-connection branch.
func (t Type) IsTech() bool {
	return t == TypeTechCentral || t == TypeRegionTech
}

const (
	regionCodePrefix = "REG_"
	techCodePrefix   = "TCH_"
)

// TechCodeForRegion maps a region code to its paired tech-subunit code.
// Every region has exactly one subunit, addressable by this transform.
func TechCodeForRegion(regionCode string) string {
	if !strings.HasPrefix(regionCode, regionCodePrefix) {
		return ""
	}
	return techCodePrefix + strings.TrimPrefix(regionCode, regionCodePrefix)
}

// RegionCodeForTech is the inverse of TechCodeForRegion.
func RegionCodeForTech(techCode string) string {
	if !strings.HasPrefix(techCode, techCodePrefix) {
		return ""
	}
	return regionCodePrefix + strings.TrimPrefix(techCode, techCodePrefix)
}

type Unit struct {
	id        uint
	name      string
	code      string
	shortCode string
	unitType  Type
	parentID  *uint
	active    bool
}

func New(name, code, shortCode string, unitType Type, parentID *uint) Unit {
	return Unit{
		name:      strings.TrimSpace(name),
		code:      strings.TrimSpace(code),
		shortCode: strings.TrimSpace(shortCode),
		unitType:  unitType,
		parentID:  parentID,
		active:    true,
	}
}

func Hydrate(id uint, name, code, shortCode string, unitType Type, parentID *uint, active bool) Unit {
	return Unit{
		id:        id,
		name:      name,
		code:      code,
		shortCode: shortCode,
		unitType:  unitType,
		parentID:  parentID,
		active:    active,
	}
}

func (u Unit) ID() uint          { return u.id }
func (u Unit) Name() string      { return u.name }
func (u Unit) Code() string      { return u.code }
func (u Unit) ShortCode() string { return u.shortCode }
func (u Unit) Type() Type        { return u.unitType }
func (u Unit) ParentID() *uint   { return u.parentID }
func (u Unit) Active() bool      { return u.active }
func (u Unit) IsZero() bool      { return u.id == 0 && u.code == "" }

type Repository interface {
	GetByID(ctx context.Context, id uint) (Unit, error)
	GetByCode(ctx context.Context, code string) (Unit, error)
	GetAllActive(ctx context.Context) ([]Unit, error)
	GetByTypes(ctx context.Context, types ...Type) ([]Unit, error)
	Create(ctx context.Context, u Unit) (Unit, error)
}
