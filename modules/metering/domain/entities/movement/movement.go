package movement

import (
	"context"
	"time"
)

// Movement is an append-only custody record. Rows are never updated after
// creation; deletion happens only as part of an administrative item delete.
type Movement struct {
	id         uint
	itemID     uint
	fromUnitID *uint
	toUnitID   uint
	movedBy    uint
	movedAt    time.Time
	comment    string
}

func New(itemID uint, fromUnitID *uint, toUnitID, movedBy uint, comment string) Movement {
	return Movement{
		itemID:     itemID,
		fromUnitID: fromUnitID,
		toUnitID:   toUnitID,
		movedBy:    movedBy,
		comment:    comment,
	}
}

func Hydrate(id, itemID uint, fromUnitID *uint, toUnitID, movedBy uint, movedAt time.Time, comment string) Movement {
	return Movement{
		id:         id,
		itemID:     itemID,
		fromUnitID: fromUnitID,
		toUnitID:   toUnitID,
		movedBy:    movedBy,
		movedAt:    movedAt,
		comment:    comment,
	}
}

func (m Movement) ID() uint           { return m.id }
func (m Movement) ItemID() uint       { return m.itemID }
func (m Movement) FromUnitID() *uint  { return m.fromUnitID }
func (m Movement) ToUnitID() uint     { return m.toUnitID }
func (m Movement) MovedBy() uint      { return m.movedBy }
func (m Movement) MovedAt() time.Time { return m.movedAt }
func (m Movement) Comment() string    { return m.comment }

type Repository interface {
	CreateMany(ctx context.Context, movements []Movement) error
	GetByItemID(ctx context.Context, itemID uint) ([]Movement, error)
	DeleteByItemIDs(ctx context.Context, itemIDs []uint) error
	CountByItemIDs(ctx context.Context, itemIDs []uint) (int64, error)
}
