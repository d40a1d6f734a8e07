package item

import "time"

// ImportedEvent is published after a register upload commits.
type ImportedEvent struct {
	RegisterID uint
	Filename   string
	Created    int
	Skipped    int
	Timestamp  time.Time
}

// TransferredEvent is published after a custody batch commits.
type TransferredEvent struct {
	ItemIDs   []uint
	FromUnits []uint
	ToUnitID  uint
	ActorID   uint
	Timestamp time.Time
}

// DeletedEvent is published after an administrative deletion commits.
type DeletedEvent struct {
	ItemIDs   []uint
	ActorID   uint
	Timestamp time.Time
}
