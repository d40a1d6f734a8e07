package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/excel"
	"github.com/enerflow/metering/pkg/serrors"
)

// EnrichResult is the tally of one enrichment pass: how many stored items
// found a matching row against how many usable rows the file contained.
type EnrichResult struct {
	Matched   int `json:"matched"`
	TotalRows int `json:"totalRows"`
}

// ContractRecord is one parsed row of a contract-keyed reference sheet.
type ContractRecord struct {
	ContractNumber string     `json:"contractNumber"`
	ConsumerName   string     `json:"consumerName"`
	Address        string     `json:"address"`
	Power          *float64   `json:"power"`
	ContractDate   *time.Time `json:"contractDate"`
	PlannedDate    *time.Time `json:"plannedDate"`
}

// SerialRecord is one parsed row of a serial-keyed reference sheet.
type SerialRecord struct {
	SerialNumber  string `json:"serialNumber"`
	AccountNumber string `json:"accountNumber"`
}

// EnrichmentService backfills item fields from loosely structured reference
// sheets. It never creates items and never changes work status; rows that
// match nothing are counted, not raised.
type EnrichmentService struct {
	items          item.Repository
	headerScanRows int
}

func NewEnrichmentService(items item.Repository, headerScanRows int) *EnrichmentService {
	if headerScanRows <= 0 {
		headerScanRows = 10
	}
	return &EnrichmentService{items: items, headerScanRows: headerScanRows}
}

// Reference sheets rewrite consumer data across the whole fleet, so they are
// restricted to the same roles that may import registers.
func (s *EnrichmentService) authorize(ctx context.Context) error {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return err
	}
	switch a.Role() {
	case actor.RoleLabOperator, actor.RoleCentralAdmin:
		return nil
	default:
		return serrors.AuthorizationDenied(fmt.Sprintf("role %s may not work with reference sheets", a.Role()))
	}
}

var (
	contractTokens = []string{"contract"}
	meterTokens    = []string{"meter"}
	consumerTokens = []string{"consumer", "name"}
	addressTokens  = []string{"address"}
	powerTokens    = []string{"power"}
	plannedTokens  = []string{"planned", "completion"}
	accountTokens  = []string{"account"}
	dateTokens     = []string{"date"}
)

var dateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"01-02-06",
	"1/2/06 15:04",
	"02.01.2006 15:04",
}

func parseCellDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func parseCellFloat(raw string) *float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

// findHeaderRow scans the first rows of an unstructured sheet for the one
// containing the key column and returns its index plus the header cells.
func (s *EnrichmentService) findHeaderRow(rows [][]string, tokens ...string) (int, []string) {
	limit := s.headerScanRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		if resolveColumn(rows[i], tokens...) >= 0 {
			return i, rows[i]
		}
	}
	return -1, nil
}

func firstSheetRows(file io.Reader) ([][]string, error) {
	wb, err := excel.OpenReader(file)
	if err != nil {
		return nil, serrors.Validation("file is not a readable workbook")
	}
	defer func() { _ = wb.Close() }()

	sheet, err := wb.FirstSheet()
	if err != nil {
		return nil, serrors.Validation("workbook has no sheets")
	}
	return wb.Rows(sheet)
}

// parseContractSheet builds the lookup keyed by normalized contract number.
// Rows whose contract cell lacks enough digits are dropped.
func (s *EnrichmentService) parseContractSheet(rows [][]string) (map[string]ContractRecord, int, error) {
	headerIdx, headers := s.findHeaderRow(rows, contractTokens...)
	if headerIdx < 0 {
		return nil, 0, serrors.Validation("no contract-number column found in the leading rows")
	}

	contractCol := resolveColumn(headers, contractTokens...)
	consumerCol := resolveColumn(headers, consumerTokens...)
	addressCol := resolveColumn(headers, addressTokens...)
	powerCol := resolveColumn(headers, powerTokens...)
	plannedCol := resolveColumn(headers, plannedTokens...)
	dateCol := -1
	for i, h := range headers {
		if i == plannedCol {
			continue
		}
		if headerMatches(h, dateTokens...) {
			dateCol = i
		}
	}

	records := make(map[string]ContractRecord)
	total := 0
	for _, row := range rows[headerIdx+1:] {
		raw := excel.Cell(row, contractCol)
		if raw == "" {
			continue
		}
		total++
		normalized := item.NormalizeContract(raw)
		if normalized == "" {
			continue
		}
		rec := ContractRecord{
			ContractNumber: normalized,
			ConsumerName:   excel.Cell(row, consumerCol),
			Address:        excel.Cell(row, addressCol),
		}
		if powerCol >= 0 {
			rec.Power = parseCellFloat(excel.Cell(row, powerCol))
		}
		if dateCol >= 0 {
			rec.ContractDate = parseCellDate(excel.Cell(row, dateCol))
		}
		if plannedCol >= 0 {
			rec.PlannedDate = parseCellDate(excel.Cell(row, plannedCol))
		}
		records[normalized] = rec
	}
	return records, total, nil
}

// EnrichByContract overwrites consumer, address, power and date fields of
// every TechConnect item whose contract number appears in the sheet. Values
// already present are overwritten: the latest import wins.
func (s *EnrichmentService) EnrichByContract(ctx context.Context, file io.Reader) (*EnrichResult, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	rows, err := firstSheetRows(file)
	if err != nil {
		return nil, err
	}
	records, total, err := s.parseContractSheet(rows)
	if err != nil {
		return nil, err
	}

	candidates, err := s.items.GetPaginated(ctx, &item.FindParams{
		Statuses:         []item.WorkStatus{item.StatusTechConnect},
		WithContractOnly: true,
	})
	if err != nil {
		return nil, err
	}

	matched := 0
	for _, entity := range candidates {
		if entity.ContractNumber() == nil {
			continue
		}
		rec, ok := records[*entity.ContractNumber()]
		if !ok {
			continue
		}
		updated := entity
		if rec.ConsumerName != "" {
			name := rec.ConsumerName
			updated = updated.WithConsumer(&name, updated.ConsumerAddress())
		}
		if rec.Address != "" {
			address := rec.Address
			updated = updated.WithConsumer(updated.ConsumerName(), &address)
		}
		if rec.Power != nil {
			updated = updated.WithPower(rec.Power)
		}
		if rec.ContractDate != nil {
			updated = updated.WithContract(updated.ContractNumber(), rec.ContractDate)
		}
		if rec.PlannedDate != nil {
			updated = updated.WithPlannedDate(rec.PlannedDate)
		}
		if err := s.items.Update(ctx, updated); err != nil {
			return nil, err
		}
		matched++
	}
	return &EnrichResult{Matched: matched, TotalRows: total}, nil
}

// parseSerialSheet builds the serial-to-account lookup.
func (s *EnrichmentService) parseSerialSheet(rows [][]string) (map[string]string, int, error) {
	headerIdx, headers := s.findHeaderRow(rows, meterTokens...)
	if headerIdx < 0 {
		return nil, 0, serrors.Validation("no meter-number column found in the leading rows")
	}

	serialCol := resolveColumn(headers, meterTokens...)
	accountCol := resolveColumn(headers, accountTokens...)

	accounts := make(map[string]string)
	total := 0
	for _, row := range rows[headerIdx+1:] {
		serial := excel.Cell(row, serialCol)
		if serial == "" {
			continue
		}
		total++
		account := excel.Cell(row, accountCol)
		if account == "" {
			continue
		}
		accounts[serial] = account
	}
	return accounts, total, nil
}

// EnrichBySerial assigns personal-account numbers to Replacement and
// ConsumerAccountUpdate items on exact serial match.
func (s *EnrichmentService) EnrichBySerial(ctx context.Context, file io.Reader) (*EnrichResult, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	rows, err := firstSheetRows(file)
	if err != nil {
		return nil, err
	}
	accounts, total, err := s.parseSerialSheet(rows)
	if err != nil {
		return nil, err
	}

	candidates, err := s.items.GetPaginated(ctx, &item.FindParams{
		Statuses: []item.WorkStatus{item.StatusReplacement, item.StatusAccountUpdate},
	})
	if err != nil {
		return nil, err
	}

	matched := 0
	for _, entity := range candidates {
		account, ok := accounts[entity.SerialNumber()]
		if !ok {
			continue
		}
		updated := entity.WithAccountNumber(&account)
		if err := s.items.Update(ctx, updated); err != nil {
			return nil, err
		}
		matched++
	}
	return &EnrichResult{Matched: matched, TotalRows: total}, nil
}

// LookupByContract finds at most one reference record for a contract key.
// Matching runs both containment directions so partial keys still resolve.
// Nothing is written.
func (s *EnrichmentService) LookupByContract(ctx context.Context, file io.Reader, key string) (*ContractRecord, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	rows, err := firstSheetRows(file)
	if err != nil {
		return nil, err
	}
	records, _, err := s.parseContractSheet(rows)
	if err != nil {
		return nil, err
	}

	needle := strings.TrimSpace(key)
	if needle == "" {
		return nil, serrors.Validation("empty lookup key")
	}
	if rec, ok := records[needle]; ok {
		return &rec, nil
	}
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, needle) || strings.Contains(needle, k) {
			rec := records[k]
			return &rec, nil
		}
	}
	return nil, serrors.NotFound("contract " + needle)
}

// LookupBySerial finds at most one account number for a serial key.
func (s *EnrichmentService) LookupBySerial(ctx context.Context, file io.Reader, key string) (*SerialRecord, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	rows, err := firstSheetRows(file)
	if err != nil {
		return nil, err
	}
	accounts, _, err := s.parseSerialSheet(rows)
	if err != nil {
		return nil, err
	}

	needle := strings.TrimSpace(key)
	if needle == "" {
		return nil, serrors.Validation("empty lookup key")
	}
	if account, ok := accounts[needle]; ok {
		return &SerialRecord{SerialNumber: needle, AccountNumber: account}, nil
	}
	serials := make([]string, 0, len(accounts))
	for serial := range accounts {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	for _, serial := range serials {
		if strings.Contains(serial, needle) || strings.Contains(needle, serial) {
			return &SerialRecord{SerialNumber: serial, AccountNumber: accounts[serial]}, nil
		}
	}
	return nil, serrors.NotFound("serial " + needle)
}
