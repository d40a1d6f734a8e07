package item

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var ErrNotFound = errors.New("item not found")

type WorkStatus string

const (
	// StatusWarehouse is the sole entry state; items never return to it.
	StatusWarehouse WorkStatus = "WAREHOUSE"
	// StatusTechConnect marks items in the new-connection workflow.
	StatusTechConnect WorkStatus = "TECH_CONNECT"
	// StatusReplacement marks items replacing existing meters.
	StatusReplacement WorkStatus = "REPLACEMENT"
	// StatusAccountUpdate marks items awaiting a consumer-account change.
	StatusAccountUpdate WorkStatus = "ACCOUNT_UPDATE"
	// StatusInstalled is terminal.
	StatusInstalled WorkStatus = "INSTALLED"
)

func NewWorkStatus(v string) (WorkStatus, error) {
	s := WorkStatus(v)
	if !s.IsValid() {
		return "", errors.New("invalid work status")
	}
	return s, nil
}

func (s WorkStatus) IsValid() bool {
	switch s {
	case StatusWarehouse, StatusTechConnect, StatusReplacement, StatusAccountUpdate, StatusInstalled:
		return true
	}
	return false
}

// CanTransitionTo enforces the work-status machine: Warehouse fans out to the
// three working states, the working states converge on Installed, and nothing
// re-enters Warehouse.
func (s WorkStatus) CanTransitionTo(next WorkStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusWarehouse:
		return next == StatusTechConnect || next == StatusReplacement || next == StatusAccountUpdate
	case StatusTechConnect, StatusReplacement, StatusAccountUpdate:
		if next == StatusWarehouse {
			return false
		}
		return next.IsValid()
	case StatusInstalled:
		return false
	}
	return false
}

type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "NONE"
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalNone, ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// contractPattern is the fixed contract-identifier template: five, two, eight
// and one digit groups separated by hyphens.
var contractPattern = regexp.MustCompile(`^\d{5}-\d{2}-\d{8}-\d$`)

func ValidContractNumber(v string) bool {
	return contractPattern.MatchString(v)
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeContract strips non-digit characters from a raw spreadsheet value
// and reformats the first sixteen digits into the contract template. Returns
// an empty string when the value does not carry enough digits.
func NormalizeContract(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) < 16 {
		return ""
	}
	digits = digits[:16]
	return digits[:5] + "-" + digits[5:7] + "-" + digits[7:15] + "-" + digits[15:]
}

// Power-category thresholds for technical-specification codes, in kW.
const (
	powerCategoryMid  = 15
	powerCategoryHigh = 150
)

// CategoryForPower buckets a connection power value into document categories
// 1..3.
func CategoryForPower(power float64) int {
	switch {
	case power < powerCategoryMid:
		return 1
	case power < powerCategoryHigh:
		return 2
	default:
		return 3
	}
}

type Item struct {
	id         uint
	registerID *uint

	serialNumber string
	typeDesc     string

	targetUnitID  *uint
	currentUnitID *uint

	workStatus     WorkStatus
	approvalStatus ApprovalStatus
	approvedBy     *uint
	approvedAt     *time.Time

	phase      *string
	voltage    *string
	formFactor *string
	power      *float64

	contractNumber *string
	contractDate   *time.Time
	plannedDate    *time.Time

	consumerName    *string
	consumerAddress *string
	accountNumber   *string

	specCode    *string
	requestCode *string

	createdAt time.Time
	updatedAt time.Time
}

// New builds a freshly imported item in the entry state.
func New(registerID *uint, serialNumber, typeDesc string, targetUnitID *uint) Item {
	return Item{
		registerID:     registerID,
		serialNumber:   strings.TrimSpace(serialNumber),
		typeDesc:       strings.TrimSpace(typeDesc),
		targetUnitID:   targetUnitID,
		currentUnitID:  targetUnitID,
		workStatus:     StatusWarehouse,
		approvalStatus: ApprovalNone,
	}
}

func (i Item) ID() uint                       { return i.id }
func (i Item) RegisterID() *uint              { return i.registerID }
func (i Item) SerialNumber() string           { return i.serialNumber }
func (i Item) TypeDesc() string               { return i.typeDesc }
func (i Item) TargetUnitID() *uint            { return i.targetUnitID }
func (i Item) CurrentUnitID() *uint           { return i.currentUnitID }
func (i Item) WorkStatus() WorkStatus         { return i.workStatus }
func (i Item) ApprovalStatus() ApprovalStatus { return i.approvalStatus }
func (i Item) ApprovedBy() *uint              { return i.approvedBy }
func (i Item) ApprovedAt() *time.Time         { return i.approvedAt }
func (i Item) Phase() *string                 { return i.phase }
func (i Item) Voltage() *string               { return i.voltage }
func (i Item) FormFactor() *string            { return i.formFactor }
func (i Item) Power() *float64                { return i.power }
func (i Item) ContractNumber() *string        { return i.contractNumber }
func (i Item) ContractDate() *time.Time       { return i.contractDate }
func (i Item) PlannedDate() *time.Time        { return i.plannedDate }
func (i Item) ConsumerName() *string          { return i.consumerName }
func (i Item) ConsumerAddress() *string       { return i.consumerAddress }
func (i Item) AccountNumber() *string         { return i.accountNumber }
func (i Item) SpecCode() *string              { return i.specCode }
func (i Item) RequestCode() *string           { return i.requestCode }
func (i Item) CreatedAt() time.Time           { return i.createdAt }
func (i Item) UpdatedAt() time.Time           { return i.updatedAt }
func (i Item) IsZero() bool                   { return i.id == 0 && i.serialNumber == "" }

func (i Item) WithWorkStatus(s WorkStatus) Item {
	i.workStatus = s
	return i
}

func (i Item) WithInitialStatus(s WorkStatus) Item {
	i.workStatus = s
	return i
}

func (i Item) WithApproval(status ApprovalStatus, approvedBy *uint, approvedAt *time.Time) Item {
	i.approvalStatus = status
	i.approvedBy = approvedBy
	i.approvedAt = approvedAt
	return i
}

func (i Item) WithCurrentUnitID(unitID *uint) Item {
	i.currentUnitID = unitID
	return i
}

func (i Item) WithTargetUnitID(unitID *uint) Item {
	i.targetUnitID = unitID
	return i
}

func (i Item) WithPhase(v *string) Item {
	i.phase = v
	return i
}

func (i Item) WithVoltage(v *string) Item {
	i.voltage = v
	return i
}

func (i Item) WithFormFactor(v *string) Item {
	i.formFactor = v
	return i
}

func (i Item) WithPower(v *float64) Item {
	i.power = v
	return i
}

func (i Item) WithContract(number *string, date *time.Time) Item {
	i.contractNumber = number
	i.contractDate = date
	return i
}

func (i Item) WithPlannedDate(v *time.Time) Item {
	i.plannedDate = v
	return i
}

func (i Item) WithConsumer(name, address *string) Item {
	i.consumerName = name
	i.consumerAddress = address
	return i
}

func (i Item) WithAccountNumber(v *string) Item {
	i.accountNumber = v
	return i
}

func (i Item) WithSpecCode(v *string) Item {
	i.specCode = v
	return i
}

func (i Item) WithRequestCode(v *string) Item {
	i.requestCode = v
	return i
}
