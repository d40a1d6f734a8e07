package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/enerflow/metering/modules/metering/domain/aggregates/item"
	"github.com/enerflow/metering/modules/metering/domain/aggregates/unit"
	"github.com/enerflow/metering/modules/metering/domain/entities/actor"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/serrors"
)

const uniqueViolationCode = "23505"

// requestCodeRetries bounds the regenerate-and-retry loop when two callers
// race for the same yearly sequence number. The unique index on the column
// is the actual guarantee; the retry just absorbs the loser's conflict.
const requestCodeRetries = 3

// NumberingService produces the two sequential document identifiers:
// technical-specification codes and technical-connection request codes.
type NumberingService struct {
	repo  item.Repository
	units unit.Repository
	now   func() time.Time
}

func NewNumberingService(repo item.Repository, units unit.Repository) *NumberingService {
	return &NumberingService{repo: repo, units: units, now: time.Now}
}

func (s *NumberingService) guard(ctx context.Context) (actor.Actor, error) {
	a, err := composables.UseActor(ctx)
	if err != nil {
		return actor.Actor{}, err
	}
	switch a.Role() {
	case actor.RoleCentralAdmin, actor.RoleTechCentralAdmin:
		return a, nil
	}
	return actor.Actor{}, serrors.AuthorizationDenied(
		fmt.Sprintf("role %s may not assign document codes", a.Role()),
	)
}

// SpecCodeFor renders a technical-specification code for the given power
// category and region short code at time t.
func SpecCodeFor(powerCategory int, shortCode string, t time.Time) string {
	return fmt.Sprintf("%d%s/%02d-%02d", powerCategory, shortCode, int(t.Month()), t.Year()%100)
}

// AssignSpecCodes stamps every item in the batch with one freshly generated
// technical-specification code. A collision with an existing code aborts the
// whole batch; nothing is stamped.
func (s *NumberingService) AssignSpecCodes(ctx context.Context, itemIDs []uint, unitID uint, powerCategory int) (string, error) {
	if _, err := s.guard(ctx); err != nil {
		return "", err
	}
	if powerCategory < 1 || powerCategory > 3 {
		return "", serrors.Validation(fmt.Sprintf("power category %d is outside 1..3", powerCategory))
	}
	if len(itemIDs) == 0 {
		return "", serrors.Validation("no items requested for stamping")
	}

	u, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, unit.ErrNotFound) {
			return "", serrors.NotFound(fmt.Sprintf("unit %d", unitID))
		}
		return "", err
	}
	if u.ShortCode() == "" {
		return "", serrors.Validation(fmt.Sprintf("unit %s carries no region letter", u.Code()))
	}

	entities, err := s.repo.GetByIDs(ctx, itemIDs)
	if err != nil {
		return "", err
	}
	if len(entities) != len(itemIDs) {
		return "", serrors.NotFound("one or more items in the stamping batch")
	}

	code := SpecCodeFor(powerCategory, u.ShortCode(), s.now())
	taken, err := s.repo.SpecCodeExists(ctx, code)
	if err != nil {
		return "", err
	}
	if taken {
		return "", serrors.Conflict(fmt.Sprintf("specification code %s already exists", code))
	}

	if err := s.repo.SetSpecCode(ctx, itemIDs, code); err != nil {
		if isUniqueViolation(err) {
			return "", serrors.Conflict(fmt.Sprintf("specification code %s already exists", code))
		}
		return "", err
	}
	return code, nil
}

// NextRequestCode computes the next `{n}-{YY}` code: one past the highest
// sequence among existing codes of the current year. Codes of other years
// and unparsable codes are ignored, so an empty or garbled history starts
// the sequence at 1.
func (s *NumberingService) NextRequestCode(ctx context.Context) (string, error) {
	codes, err := s.repo.ListRequestCodes(ctx)
	if err != nil {
		return "", err
	}
	year := s.now().Year() % 100
	suffix := fmt.Sprintf("%02d", year)

	highest := 0
	for _, code := range codes {
		seq, codeYear, ok := parseRequestCode(code)
		if !ok || codeYear != suffix {
			continue
		}
		if seq > highest {
			highest = seq
		}
	}
	return fmt.Sprintf("%d-%s", highest+1, suffix), nil
}

func parseRequestCode(code string) (seq int, year string, ok bool) {
	parts := strings.SplitN(code, "-", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n < 1 {
		return 0, "", false
	}
	return n, parts[1], true
}

// AssignRequestCode stamps a batch with the next request code. Concurrent
// callers may generate the same candidate; the unique index rejects the
// second writer and the loop regenerates from the updated history.
func (s *NumberingService) AssignRequestCode(ctx context.Context, itemIDs []uint) (string, error) {
	if _, err := s.guard(ctx); err != nil {
		return "", err
	}
	if len(itemIDs) == 0 {
		return "", serrors.Validation("no items requested for stamping")
	}

	entities, err := s.repo.GetByIDs(ctx, itemIDs)
	if err != nil {
		return "", err
	}
	if len(entities) != len(itemIDs) {
		return "", serrors.NotFound("one or more items in the stamping batch")
	}

	var lastErr error
	for attempt := 0; attempt < requestCodeRetries; attempt++ {
		code, err := s.NextRequestCode(ctx)
		if err != nil {
			return "", err
		}
		if err := s.repo.SetRequestCode(ctx, itemIDs, code); err != nil {
			if isUniqueViolation(err) {
				lastErr = err
				continue
			}
			return "", err
		}
		return code, nil
	}
	return "", errors.Wrap(
		serrors.Conflict("request code generation kept colliding"),
		lastErr.Error(),
	)
}

// EligibleForSpecCode lists items at the given unit that carry a contract
// but no specification code yet, narrowed to one power category.
func (s *NumberingService) EligibleForSpecCode(ctx context.Context, unitID uint, powerCategory int) ([]item.Item, error) {
	if _, err := s.guard(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetPaginated(ctx, &item.FindParams{
		CurrentUnitID:    &unitID,
		Statuses:         []item.WorkStatus{item.StatusTechConnect},
		WithContractOnly: true,
		WithoutSpecCode:  true,
		PowerCategory:    powerCategory,
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
