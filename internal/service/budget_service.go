package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/cache"
	"budgetly-be/internal/calendar"
	"budgetly-be/internal/entities"
	"budgetly-be/internal/logger"
	"budgetly-be/internal/models"
	"budgetly-be/internal/repository"
)

// BudgetService defines the interface for expense entry business logic
type BudgetService interface {
	Create(ctx context.Context, userID string, input models.BudgetInput) (*models.CreateBudgetResponse, error)
	CheckLimit(ctx context.Context, userID string) (*models.LimitResponse, error)
	FindAll(ctx context.Context, userID string, query models.ListBudgetsQuery) (*models.BudgetListResponse, error)
	GetAnalytics(ctx context.Context, userID, timeZone string) (*models.AnalyticsResponse, error)
	// FindOne returns nil, nil when the entry does not exist
	FindOne(ctx context.Context, id string) (*entities.Budget, error)
	Update(ctx context.Context, id string, patch entities.BudgetPatch) (*entities.Budget, error)
	// Remove returns nil, nil when there was nothing to remove
	Remove(ctx context.Context, id string) (*entities.Budget, error)
}

type budgetService struct {
	budgets  repository.BudgetRepository
	users    repository.UserRepository
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
	location *time.Location
	log      *logger.Logger
}

// BudgetOption configures the budget service
type BudgetOption func(*budgetService)

// WithClock replaces time.Now
func WithClock(now func() time.Time) BudgetOption {
	return func(s *budgetService) { s.now = now }
}

// WithLocation sets the zone that defines "this month" and the report windows
func WithLocation(loc *time.Location) BudgetOption {
	return func(s *budgetService) { s.location = loc }
}

// WithReportCache caches analytics reports. A nil cache or a non-positive
// ttl leaves caching off.
func WithReportCache(c cache.Cache, ttl time.Duration) BudgetOption {
	return func(s *budgetService) {
		if c != nil && ttl > 0 {
			s.cache = c
			s.cacheTTL = ttl
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *logger.Logger) BudgetOption {
	return func(s *budgetService) { s.log = l.WithComponent(logger.ComponentBudget) }
}

// NewBudgetService creates a new budget service
func NewBudgetService(budgets repository.BudgetRepository, users repository.UserRepository, opts ...BudgetOption) BudgetService {
	s := &budgetService{
		budgets:  budgets,
		users:    users,
		now:      time.Now,
		location: time.Local,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records an entry, then reports this month's spend if the entry
// falls in the current month
func (s *budgetService) Create(ctx context.Context, userID string, input models.BudgetInput) (*models.CreateBudgetResponse, error) {
	if input.Amount < 0 {
		return nil, apperrors.InvalidInput("amount must not be negative", nil)
	}
	if input.Date.IsZero() {
		return nil, apperrors.InvalidInput("date is required", nil)
	}

	created, err := s.budgets.Create(ctx, &entities.Budget{
		Name:   input.Name,
		Amount: input.Amount,
		Date:   input.Date,
		UserID: userID,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx, userID)

	resp := &models.CreateBudgetResponse{Budget: created}

	start, end := s.currentMonth()
	if created.Date.Before(start) || created.Date.After(end) {
		return resp, nil
	}

	resp.IsCurrentMonth = true
	resp.TotalBudgetThisMonth, resp.BudgetLimit, err = s.monthToDate(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CheckLimit returns this month's spend and the user's limit
func (s *budgetService) CheckLimit(ctx context.Context, userID string) (*models.LimitResponse, error) {
	start, end := s.currentMonth()
	total, limit, err := s.monthToDate(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return &models.LimitResponse{TotalBudgetThisMonth: total, BudgetLimit: limit}, nil
}

// FindAll lists a user's entries newest first, optionally restricted to one
// calendar day in the caller's time zone
func (s *budgetService) FindAll(ctx context.Context, userID string, query models.ListBudgetsQuery) (*models.BudgetListResponse, error) {
	loc, err := calendar.LoadZone(query.TimeZone)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid time zone", err)
	}
	if query.Date != "" {
		if _, err := time.Parse("02-01-2006", query.Date); err != nil {
			return nil, apperrors.InvalidInput("date must be DD-MM-YYYY", err)
		}
	}

	page := max(query.Page, 1)
	var window repository.Page
	if query.Limit > 0 {
		window = repository.Page{
			Skip:  int64(page-1) * int64(query.Limit),
			Limit: int64(query.Limit),
		}
	}

	budgets, total, err := s.budgets.Find(ctx, repository.BudgetFilter{
		UserID:   userID,
		Day:      query.Date,
		Location: loc,
	}, window)
	if err != nil {
		return nil, err
	}
	if budgets == nil {
		budgets = []*entities.Budget{}
	}

	return &models.BudgetListResponse{
		Budgets:      budgets,
		TotalBudgets: total,
		CurrentPage:  page,
	}, nil
}

// GetAnalytics builds the daily series for last month and the monthly
// series for the last 12 (and 6) months. Every bucket in a window is
// present, with 0 where nothing was spent.
func (s *budgetService) GetAnalytics(ctx context.Context, userID, timeZone string) (*models.AnalyticsResponse, error) {
	loc, err := calendar.LoadZone(timeZone)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid time zone", err)
	}

	now := s.now().In(s.location)

	// The field carries the write generation read before any store query.
	// A report computed across a concurrent write is stored under the old
	// generation and never served.
	gen, cacheable := s.reportGeneration(ctx, userID)
	field := fmt.Sprintf("%s|%s|%d", now.Format("2006-01"), loc.String(), gen)
	if cacheable {
		if report, ok := s.cachedReport(ctx, userID, field); ok {
			return report, nil
		}
	}

	lastMonthStart := calendar.MonthsBefore(now, 1)
	lastMonthEnd := calendar.EndOfMonth(lastMonthStart)
	yearStart := calendar.MonthsBefore(now, 12)

	var (
		daily   map[string]float64
		monthly map[string]float64
		user    *entities.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.budgets.GroupSumAmount(gctx,
			repository.BudgetFilter{UserID: userID, From: lastMonthStart, To: lastMonthEnd},
			repository.GroupBy{Bucket: repository.BucketDay, Location: loc})
		return err
	})
	g.Go(func() error {
		var err error
		// Monthly buckets are taken in UTC whatever the caller's zone is;
		// existing clients chart against these labels.
		monthly, err = s.budgets.GroupSumAmount(gctx,
			repository.BudgetFilter{UserID: userID, From: yearStart, To: lastMonthEnd},
			repository.GroupBy{Bucket: repository.BucketMonth, Location: time.UTC})
		return err
	})
	g.Go(func() error {
		var err error
		user, err = s.users.FindByID(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var lastMonth models.Series
	for _, day := range calendar.EachDay(lastMonthStart, lastMonthEnd) {
		label := calendar.DayLabel(day)
		lastMonth.Categories = append(lastMonth.Categories, label)
		lastMonth.Data = append(lastMonth.Data, daily[label])
	}

	var last12 models.Series
	for _, month := range calendar.EachMonth(yearStart, lastMonthEnd) {
		label := calendar.MonthLabel(month)
		last12.Categories = append(last12.Categories, label)
		last12.Data = append(last12.Data, monthly[label])
	}

	report := &models.AnalyticsResponse{
		LastMonth:    lastMonth,
		Last12Months: last12,
		Last6Months: models.Series{
			Categories: last12.Categories[6:],
			Data:       last12.Data[6:],
		},
		BudgetLimit: limitOf(user),
	}
	s.log.Debug("analytics report computed", logger.FieldUserID, userID, logger.FieldTimeZone, loc.String())
	if cacheable {
		s.storeReport(ctx, userID, field, report)
	}
	return report, nil
}

func (s *budgetService) FindOne(ctx context.Context, id string) (*entities.Budget, error) {
	return s.budgets.FindByID(ctx, id)
}

func (s *budgetService) Update(ctx context.Context, id string, patch entities.BudgetPatch) (*entities.Budget, error) {
	if patch.Amount != nil && *patch.Amount < 0 {
		return nil, apperrors.InvalidInput("amount must not be negative", nil)
	}

	updated, err := s.budgets.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	// an empty patch only touches updatedAt, which no report reads
	if !patch.IsEmpty() {
		s.invalidateReports(ctx, updated.UserID)
	}
	s.log.Debug("budget updated", logger.FieldBudgetID, id, logger.FieldUserID, updated.UserID)
	return updated, nil
}

func (s *budgetService) Remove(ctx context.Context, id string) (*entities.Budget, error) {
	removed, err := s.budgets.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if removed != nil {
		s.invalidateReports(ctx, removed.UserID)
		s.log.Debug("budget removed", logger.FieldBudgetID, id, logger.FieldUserID, removed.UserID)
	}
	return removed, nil
}

// currentMonth returns the bounds of the month containing now, in the
// service location
func (s *budgetService) currentMonth() (time.Time, time.Time) {
	now := s.now().In(s.location)
	return calendar.StartOfMonth(now), calendar.EndOfMonth(now)
}

func (s *budgetService) monthToDate(ctx context.Context, userID string, start, end time.Time) (float64, *float64, error) {
	total, err := s.budgets.SumAmount(ctx, repository.BudgetFilter{UserID: userID, From: start, To: end})
	if err != nil {
		return 0, nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	return total, limitOf(user), nil
}

func limitOf(user *entities.User) *float64 {
	if user == nil {
		return nil
	}
	limit := user.BudgetLimit
	return &limit
}

func reportKey(userID string) string {
	return "analytics:" + userID
}

func generationKey(userID string) string {
	return "analytics:" + userID + ":gen"
}

// reportGeneration returns the user's write generation. ok is false when
// the cache is off or the generation cannot be read.
func (s *budgetService) reportGeneration(ctx context.Context, userID string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Counter(ctx, generationKey(userID))
	if err != nil {
		s.log.WithError(err).Warn("analytics cache generation read failed", logger.FieldUserID, userID)
		return 0, false
	}
	return gen, true
}

func (s *budgetService) cachedReport(ctx context.Context, userID, field string) (*models.AnalyticsResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	var report models.AnalyticsResponse
	err := s.cache.HGetJSON(ctx, reportKey(userID), field, &report)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.log.WithError(err).Warn("analytics cache read failed", logger.FieldUserID, userID)
		}
		return nil, false
	}
	return &report, true
}

func (s *budgetService) storeReport(ctx context.Context, userID, field string, report *models.AnalyticsResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.HSetJSON(ctx, reportKey(userID), field, report, s.cacheTTL); err != nil {
		s.log.WithError(err).Warn("analytics cache write failed", logger.FieldUserID, userID)
	}
}

func (s *budgetService) invalidateReports(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, generationKey(userID)); err != nil {
		s.log.WithError(err).Warn("analytics cache generation bump failed", logger.FieldUserID, userID)
	}
	if err := s.cache.Delete(ctx, reportKey(userID)); err != nil {
		s.log.WithError(err).Warn("analytics cache invalidation failed", logger.FieldUserID, userID)
	}
}
