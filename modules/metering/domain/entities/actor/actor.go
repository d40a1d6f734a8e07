package actor

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("actor not found")

type Role string

const (
	// RoleCentralAdmin sees every unit and moves items between regions.
	RoleCentralAdmin Role = "CENTRAL_ADMIN"
	// RoleLabOperator uploads registers; sees only its own laboratory.
	RoleLabOperator Role = "LAB_OPERATOR"
	// RoleTechCentralAdmin sees the tech-connection branch and moves items
	// inside it.
	RoleTechCentralAdmin Role = "TECH_CENTRAL_ADMIN"
	// RoleRegionOperator edits item cards for its own region.
	RoleRegionOperator Role = "REGION_OPERATOR"
	// RoleTechRegionOperator edits item cards for its own tech subunit.
	RoleTechRegionOperator Role = "TECH_REGION_OPERATOR"
)

func NewRole(v string) (Role, error) {
	role := Role(v)
	if !role.IsValid() {
		return "", errors.New("invalid role")
	}
	return role, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleCentralAdmin, RoleLabOperator, RoleTechCentralAdmin, RoleRegionOperator, RoleTechRegionOperator:
		return true
	}
	return false
}

type Actor struct {
	id         uint
	role       Role
	homeUnitID *uint
	fullName   string
	active     bool
}

func New(role Role, homeUnitID *uint, fullName string) Actor {
	return Actor{
		role:       role,
		homeUnitID: homeUnitID,
		fullName:   fullName,
		active:     true,
	}
}

func Hydrate(id uint, role Role, homeUnitID *uint, fullName string, active bool) Actor {
	return Actor{
		id:         id,
		role:       role,
		homeUnitID: homeUnitID,
		fullName:   fullName,
		active:     active,
	}
}

func (a Actor) ID() uint          { return a.id }
func (a Actor) Role() Role        { return a.role }
func (a Actor) HomeUnitID() *uint { return a.homeUnitID }
func (a Actor) FullName() string  { return a.fullName }
func (a Actor) Active() bool      { return a.active }
func (a Actor) IsZero() bool      { return a.id == 0 && a.role == "" }

type Repository interface {
	GetByID(ctx context.Context, id uint) (Actor, error)
	GetAll(ctx context.Context) ([]Actor, error)
	Create(ctx context.Context, a Actor) (Actor, error)
}
