package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"telecom-billing/internal/apperr"
	"telecom-billing/internal/metrics"
	"telecom-billing/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPeriodNotFound = apperr.NotFound("billing period")
	ErrInvoicingBusy  = apperr.Conflict("invoicing is already running for this period")
)

// Repository persists periods and invoices.
type Repository interface {
	FindPeriod(ctx context.Context, year int, month time.Month) (Period, bool, error)
	// CreatePeriod inserts p unless a period for the same (year, month)
	// already exists. A lost race is not an error.
	CreatePeriod(ctx context.Context, p Period) error
	GetPeriod(ctx context.Context, id string) (Period, bool, error)
	ListPeriods(ctx context.Context) ([]Period, error)

	// ReplaceInvoices atomically deletes the period's invoices and inserts
	// one pending invoice per contact whose calls in [from, to) sum to more
	// than zero. It returns ErrPeriodNotFound if the period row is gone.
	ReplaceInvoices(ctx context.Context, periodID string, from, to, generatedAt time.Time) ([]Invoice, error)
	ListInvoices(ctx context.Context, periodID string) ([]Invoice, error)
}

// AuditLogger receives invoicing runs. *audit.Service satisfies it.
type AuditLogger interface {
	LogInvoicesGenerated(ctx context.Context, periodID string, invoices int, total string)
}

// Options tunes the Service. Zero values pick defaults.
type Options struct {
	// Locale of period display names (es, en).
	Locale string
	// Location decides which calendar month "now" is in and where days begin.
	Location *time.Location
	// LockTTL bounds one invoicing run's hold on its period lock.
	LockTTL time.Duration
}

// Service owns billing periods and invoices.
//
// Invariants:
//   - At most one period exists per calendar month.
//   - A period's invoice set is only ever replaced whole, inside one transaction.
//   - Invoicing runs for the same period are serialized: the Locker rejects a
//     concurrent run quickly, and the repository's row lock keeps them
//     correct when the Locker is unavailable.
type Service struct {
	repo   Repository
	locker Locker
	audit  AuditLogger

	locale  string
	loc     *time.Location
	lockTTL time.Duration
	clock   func() time.Time
}

func NewService(repo Repository, locker Locker, auditLog AuditLogger, opts Options) *Service {
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		audit:   auditLog,
		locale:  opts.Locale,
		loc:     opts.Location,
		lockTTL: opts.LockTTL,
		clock:   time.Now,
	}
}

// EnsureCurrentPeriod returns the period for the current month, creating it
// on first use. Repeated calls in the same month return the same period.
func (s *Service) EnsureCurrentPeriod(ctx context.Context) (Period, error) {
	now := s.clock()
	year, month, start, end := MonthRange(now, s.loc)

	p, ok, err := s.repo.FindPeriod(ctx, year, month)
	if err != nil {
		return Period{}, apperr.Persistence("find period", err)
	}
	if ok {
		return p, nil
	}

	candidate := Period{
		ID:        uuid.NewString(),
		Year:      year,
		Month:     month,
		Name:      PeriodName(s.locale, year, month),
		StartDate: start,
		EndDate:   end,
		Status:    PeriodStatusOpen,
		CreatedAt: now.UTC(),
	}
	if err := s.repo.CreatePeriod(ctx, candidate); err != nil {
		return Period{}, apperr.Persistence("create period", err)
	}

	// Re-read: a concurrent caller may have won the insert.
	p, ok, err = s.repo.FindPeriod(ctx, year, month)
	if err != nil {
		return Period{}, apperr.Persistence("find period", err)
	}
	if !ok {
		return Period{}, apperr.Persistence("find period", errors.New("period missing after insert"))
	}
	if p.ID == candidate.ID {
		logger.From(ctx).Info("billing period created",
			"period_id", p.ID,
			"name", p.Name,
			"start_date", p.StartDate.Format(time.DateOnly),
			"end_date", p.EndDate.Format(time.DateOnly),
		)
	}
	return p, nil
}

func (s *Service) GetPeriod(ctx context.Context, id string) (Period, error) {
	if strings.TrimSpace(id) == "" {
		return Period{}, apperr.Validation("period id is required")
	}
	p, ok, err := s.repo.GetPeriod(ctx, id)
	if err != nil {
		return Period{}, apperr.Persistence("get period", err)
	}
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

// ListPeriods returns all periods, newest month first. The current month's
// period is created first if it does not exist yet.
func (s *Service) ListPeriods(ctx context.Context) ([]Period, error) {
	if _, err := s.EnsureCurrentPeriod(ctx); err != nil {
		return nil, err
	}
	out, err := s.repo.ListPeriods(ctx)
	if err != nil {
		return nil, apperr.Persistence("list periods", err)
	}
	return out, nil
}

func (s *Service) ListInvoices(ctx context.Context, periodID string) ([]Invoice, error) {
	if _, err := s.GetPeriod(ctx, periodID); err != nil {
		return nil, err
	}
	out, err := s.repo.ListInvoices(ctx, periodID)
	if err != nil {
		return nil, apperr.Persistence("list invoices", err)
	}
	return out, nil
}

// GenerateInvoices rebuilds the period's invoices from its priced calls.
//
// Running it again with no new calls yields the same contacts and totals.
// Zero qualifying contacts is reported through GenerateResult.Empty.
func (s *Service) GenerateInvoices(ctx context.Context, periodID string) (res GenerateResult, err error) {
	started := s.clock()
	outcome := "error"
	defer func() {
		metrics.RecordInvoiceRun(outcome, res.InvoiceCount, s.clock().Sub(started))
	}()

	p, err := s.GetPeriod(ctx, periodID)
	if err != nil {
		return GenerateResult{}, err
	}

	log := logger.From(ctx).With("period_id", p.ID, "period", p.Name)

	release, err := s.locker.Acquire(ctx, invoicingLockKey(p.ID), s.lockTTL)
	switch {
	case errors.Is(err, ErrLockBusy):
		outcome = "busy"
		return GenerateResult{}, ErrInvoicingBusy
	case err != nil:
		// The transaction's row lock still serializes runs.
		log.Warn("invoicing lock unavailable, relying on row lock", "err", err)
	default:
		defer release(context.WithoutCancel(ctx))
	}

	from, to := p.CallWindow(s.loc)
	invoices, err := s.repo.ReplaceInvoices(ctx, p.ID, from, to, s.clock().UTC())
	if err != nil {
		if errors.Is(err, ErrPeriodNotFound) {
			return GenerateResult{}, err
		}
		log.Error("invoice generation failed", "err", err)
		return GenerateResult{}, apperr.Persistence("replace invoices", err)
	}

	res = GenerateResult{PeriodID: p.ID, InvoiceCount: len(invoices), TotalAmount: decimal.Zero}
	for _, inv := range invoices {
		res.TotalAmount = res.TotalAmount.Add(inv.Total)
	}
	res.Empty = res.InvoiceCount == 0

	outcome = "generated"
	if res.Empty {
		outcome = "empty"
	}
	log.Info("invoices generated",
		"invoices", res.InvoiceCount,
		"total", res.TotalAmount.String(),
		"from", from,
		"to", to,
	)
	if s.audit != nil {
		s.audit.LogInvoicesGenerated(ctx, p.ID, res.InvoiceCount, res.TotalAmount.String())
	}
	return res, nil
}
