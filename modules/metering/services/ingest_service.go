package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/modules/metering/domain/entities/register"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/eventbus"
	"github.com/enerflow/metering/pkg/excel"
	"github.com/enerflow/metering/pkg/serrors"
)

// ImportResult is the pass/skip tally of one register import. Skipped rows
// are not errors; the caller always receives the full count.
type ImportResult struct {
	RegisterID uint   `json:"registerId"`
	Filename   string `json:"filename"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	TotalRows  int    `json:"totalRows"`
}

// IngestService turns uploaded spreadsheets into item records. One upload
// becomes one ImportRegister plus zero or more items; a file without a
// serial-number column creates nothing.
type IngestService struct {
	items     item.Repository
	units     unit.Repository
	registers register.Repository
	publisher eventbus.EventBus
	maxRows   int
}

func NewIngestService(
	items item.Repository,
	units unit.Repository,
	registers register.Repository,
	publisher eventbus.EventBus,
	maxRows int,
) *IngestService {
	return &IngestService{
		items:     items,
		units:     units,
		registers: registers,
		publisher: publisher,
		maxRows:   maxRows,
	}
}

func headerMatches(header string, tokens ...string) bool {
	normalized := strings.ToLower(strings.TrimSpace(header))
	for _, token := range tokens {
		if strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}

// resolveColumn returns the index of the last header cell matching any of
// the tokens, or -1. Last match wins on duplicate headers; the choice is
// arbitrary but fixed.
func resolveColumn(headers []string, tokens ...string) int {
	col := -1
	for i, h := range headers {
		if headerMatches(h, tokens...) {
			col = i
		}
	}
	return col
}

var (
	serialTokens = []string{"serial"}
	typeTokens   = []string{"type"}
	unitTokens   = []string{"unit", "region", "destination"}
)

// unitIndex resolves free-text destination cells to units. Exact
// case-insensitive name/code match first, then containment; containment ties
// break on the longest key and then the lowest unit id, so resolution is
// stable across runs.
type unitIndex struct {
	exact map[string]unit.Unit
	keys  []string
}

func buildUnitIndex(units []unit.Unit) *unitIndex {
	idx := &unitIndex{exact: make(map[string]unit.Unit, len(units)*2)}
	add := func(key string, u unit.Unit) {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		if prev, ok := idx.exact[key]; ok && prev.ID() <= u.ID() {
			return
		}
		idx.exact[key] = u
	}
	for _, u := range units {
		add(u.Name(), u)
		add(u.Code(), u)
	}
	idx.keys = make([]string, 0, len(idx.exact))
	for key := range idx.exact {
		idx.keys = append(idx.keys, key)
	}
	sort.Slice(idx.keys, func(i, j int) bool {
		if len(idx.keys[i]) != len(idx.keys[j]) {
			return len(idx.keys[i]) > len(idx.keys[j])
		}
		return idx.keys[i] < idx.keys[j]
	})
	return idx
}

func (idx *unitIndex) resolve(raw string) (unit.Unit, bool) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return unit.Unit{}, false
	}
	if u, ok := idx.exact[needle]; ok {
		return u, true
	}
	best := unit.Unit{}
	bestKey := ""
	for _, key := range idx.keys {
		if !strings.Contains(needle, key) && !strings.Contains(key, needle) {
			continue
		}
		candidate := idx.exact[key]
		if bestKey == "" || len(key) > len(bestKey) || (len(key) == len(bestKey) && candidate.ID() < best.ID()) {
			best = candidate
			bestKey = key
		}
		if len(key) < len(bestKey) {
			// keys are sorted longest-first; once lengths drop below the
			// best match nothing later can win.
			break
		}
	}
	if bestKey == "" {
		return unit.Unit{}, false
	}
	return best, true
}

// ImportRegister ingests one workbook: selects the first sheet carrying a
// serial-number column, creates an item per data row with a usable serial,
// and records the upload as an ImportRegister. Bad rows are skipped, never
// fatal; only the missing serial column or an oversized file aborts.
func (s *IngestService) ImportRegister(ctx context.Context, file io.Reader, filename string) (*ImportResult, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return nil, err
	}
	switch a.Role() {
	case actor.RoleLabOperator, actor.RoleCentralAdmin:
	default:
		return nil, serrors.AuthorizationDenied(fmt.Sprintf("role %s may not import registers", a.Role()))
	}

	wb, err := excel.OpenReader(file)
	if err != nil {
		return nil, serrors.Validation("file is not a readable workbook")
	}
	defer func() { _ = wb.Close() }()

	_, headers, rows, err := s.selectSheet(wb)
	if err != nil {
		return nil, err
	}

	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, serrors.Validation(
			fmt.Sprintf("file has %d rows, the limit is %d", len(rows), s.maxRows),
		)
	}

	serialCol := resolveColumn(headers, serialTokens...)
	typeCol := resolveColumn(headers, typeTokens...)
	unitCol := resolveColumn(headers, unitTokens...)

	activeUnits, err := s.units.GetAllActive(ctx)
	if err != nil {
		return nil, err
	}
	idx := buildUnitIndex(activeUnits)

	reg, err := s.registers.Create(ctx, register.New(filename, a.ID(), len(rows)))
	if err != nil {
		return nil, err
	}
	regID := reg.ID()

	created, skipped := 0, 0
	for _, row := range rows {
		serial := excel.Cell(row, serialCol)
		if serial == "" {
			skipped++
			continue
		}
		typeDesc := ""
		if typeCol >= 0 {
			typeDesc = excel.Cell(row, typeCol)
		}

		var targetID *uint
		var destType unit.Type
		if unitCol >= 0 {
			if dest, ok := idx.resolve(excel.Cell(row, unitCol)); ok {
				id := dest.ID()
				targetID = &id
				destType = dest.Type()
			}
		}

		entity := item.New(&regID, serial, typeDesc, targetID)
		if destType.IsTech() {
			entity = entity.WithInitialStatus(item.StatusTechConnect)
		}
		if _, err := s.items.Create(ctx, entity); err != nil {
			return nil, errors.Wrapf(err, "row with serial %s", serial)
		}
		created++
	}

	s.publisher.Publish(&item.ImportedEvent{
		RegisterID: regID,
		Filename:   filename,
		Created:    created,
		Skipped:    skipped,
		Timestamp:  time.Now(),
	})

	return &ImportResult{
		RegisterID: regID,
		Filename:   filename,
		Created:    created,
		Skipped:    skipped,
		TotalRows:  len(rows),
	}, nil
}

// selectSheet picks the first sheet whose header row carries a serial-number
// column and returns its header row and data rows.
func (s *IngestService) selectSheet(wb *excel.Workbook) (string, []string, [][]string, error) {
	for _, name := range wb.SheetNames() {
		rows, err := wb.Rows(name)
		if err != nil {
			return "", nil, nil, err
		}
		if len(rows) == 0 {
			continue
		}
		if resolveColumn(rows[0], serialTokens...) >= 0 {
			return name, rows[0], rows[1:], nil
		}
	}
	return "", nil, nil, serrors.Validation("no sheet carries a serial-number column")
}
