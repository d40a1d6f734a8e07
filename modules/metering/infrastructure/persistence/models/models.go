package models

import (
	"database/sql"
	"time"
)

type Unit struct {
	ID        uint
	Name      string
	Code      string
	ShortCode string
	UnitType  string
	ParentID  sql.NullInt64
	Active    bool
}

type Actor struct {
	ID         uint
	Role       string
	HomeUnitID sql.NullInt64
	FullName   string
	Active     bool
}

type Item struct {
	ID         uint
	RegisterID sql.NullInt64

	SerialNumber string
	TypeDesc     string

	TargetUnitID  sql.NullInt64
	CurrentUnitID sql.NullInt64

	WorkStatus     string
	ApprovalStatus string
	ApprovedBy     sql.NullInt64
	ApprovedAt     sql.NullTime

	Phase      sql.NullString
	Voltage    sql.NullString
	FormFactor sql.NullString
	Power      sql.NullFloat64

	ContractNumber sql.NullString
	ContractDate   sql.NullTime
	PlannedDate    sql.NullTime

	ConsumerName    sql.NullString
	ConsumerAddress sql.NullString
	AccountNumber   sql.NullString

	SpecCode    sql.NullString
	RequestCode sql.NullString

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Movement struct {
	ID         uint
	ItemID     uint
	FromUnitID sql.NullInt64
	ToUnitID   uint
	MovedBy    uint
	MovedAt    time.Time
	Comment    sql.NullString
}

type TypeRule struct {
	ID         uint
	Pattern    string
	Phase      string
	Voltage    string
	FormFactor string
	Power      float64
	AppliesTo  string
	Active     bool
}

type ImportRegister struct {
	ID         uint
	Ref        string
	Filename   string
	ImportedBy uint
	RowCount   int
	CreatedAt  time.Time
}
