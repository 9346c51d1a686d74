package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/cache"
	"budgetly-be/internal/entities"
	"budgetly-be/internal/logger"
	"budgetly-be/internal/models"
	"budgetly-be/internal/repository"
	"budgetly-be/internal/repository/mocks"
)

// 2025-03-31: the month before has 28 days and "now minus one month" by
// plain day arithmetic would land back in March
var fixedNow = time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC)

type BudgetServiceSuite struct {
	suite.Suite
	ctx     context.Context
	budgets repository.BudgetRepository
	users   repository.UserRepository
	svc     BudgetService
	userID  string
}

func (s *BudgetServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.budgets = repository.NewMemoryBudgetRepository()
	s.users = repository.NewMemoryUserRepository()
	s.svc = NewBudgetService(s.budgets, s.users,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC))

	user, err := s.users.Create(s.ctx, &entities.User{Email: "u@example.com", BudgetLimit: 500})
	s.Require().NoError(err)
	s.userID = user.ID
}

func (s *BudgetServiceSuite) seed(amount float64, date time.Time) *entities.Budget {
	b, err := s.budgets.Create(s.ctx, &entities.Budget{Name: "entry", Amount: amount, Date: date, UserID: s.userID})
	s.Require().NoError(err)
	return b
}

func (s *BudgetServiceSuite) TestAnalyticsIsDenseForEmptyUser() {
	report, err := s.svc.GetAnalytics(s.ctx, s.userID, "")
	s.Require().NoError(err)

	s.Len(report.LastMonth.Categories, 28)
	s.Len(report.LastMonth.Data, 28)
	s.Equal("2/1", report.LastMonth.Categories[0])
	s.Equal("2/28", report.LastMonth.Categories[27])

	s.Len(report.Last12Months.Categories, 12)
	s.Len(report.Last12Months.Data, 12)
	s.Equal("3/2024", report.Last12Months.Categories[0])
	s.Equal("2/2025", report.Last12Months.Categories[11])

	s.Equal(report.Last12Months.Categories[6:], report.Last6Months.Categories)
	s.Equal(report.Last12Months.Data[6:], report.Last6Months.Data)
	s.Equal("9/2024", report.Last6Months.Categories[0])

	for _, v := range append(report.LastMonth.Data, report.Last12Months.Data...) {
		s.Zero(v)
	}
	s.Require().NotNil(report.BudgetLimit)
	s.Equal(500.0, *report.BudgetLimit)
}

func (s *BudgetServiceSuite) TestAnalyticsSumsBuckets() {
	s.seed(50, time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC))
	s.seed(25, time.Date(2025, 2, 10, 18, 0, 0, 0, time.UTC))
	s.seed(100, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC))
	s.seed(7, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	s.seed(999, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))  // current month
	s.seed(999, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) // before the 12-month window

	report, err := s.svc.GetAnalytics(s.ctx, s.userID, "UTC")
	s.Require().NoError(err)

	s.Equal(75.0, report.LastMonth.Data[9])
	s.Equal("2/10", report.LastMonth.Categories[9])

	byMonth := make(map[string]float64)
	for i, label := range report.Last12Months.Categories {
		byMonth[label] = report.Last12Months.Data[i]
	}
	s.Equal(7.0, byMonth["3/2024"])
	s.Equal(100.0, byMonth["1/2025"])
	s.Equal(75.0, byMonth["2/2025"])

	var total float64
	for _, v := range report.Last12Months.Data {
		total += v
	}
	s.Equal(182.0, total)
}

func (s *BudgetServiceSuite) TestAnalyticsDailyBucketsFollowRequestZone() {
	// 20:00 UTC on Feb 10 is already Feb 11 in Tokyo
	s.seed(40, time.Date(2025, 2, 10, 20, 0, 0, 0, time.UTC))

	report, err := s.svc.GetAnalytics(s.ctx, s.userID, "Asia/Tokyo")
	s.Require().NoError(err)
	s.Equal(0.0, report.LastMonth.Data[9])
	s.Equal(40.0, report.LastMonth.Data[10])
}

func (s *BudgetServiceSuite) TestAnalyticsMonthlyBucketsStayInUTC() {
	// Feb 1 in Tokyo, but Jan 31 in UTC
	s.seed(60, time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC))

	report, err := s.svc.GetAnalytics(s.ctx, s.userID, "Asia/Tokyo")
	s.Require().NoError(err)

	idx := map[string]int{}
	for i, label := range report.Last12Months.Categories {
		idx[label] = i
	}
	s.Equal(60.0, report.Last12Months.Data[idx["1/2025"]])
	s.Equal(0.0, report.Last12Months.Data[idx["2/2025"]])
}

func (s *BudgetServiceSuite) TestAnalyticsForUnknownUserOmitsLimit() {
	report, err := s.svc.GetAnalytics(s.ctx, "ghost", "")
	s.Require().NoError(err)
	s.Nil(report.BudgetLimit)
	s.Len(report.LastMonth.Data, 28)

	raw, err := json.Marshal(report)
	s.Require().NoError(err)
	s.NotContains(string(raw), "budgetLimit")
}

func (s *BudgetServiceSuite) TestAnalyticsRejectsUnknownZone() {
	_, err := s.svc.GetAnalytics(s.ctx, s.userID, "Mars/Olympus")
	s.True(apperrors.Is(err, apperrors.KindInvalidInput))
}

func (s *BudgetServiceSuite) TestCreateInCurrentMonth() {
	s.seed(30, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))

	resp, err := s.svc.Create(s.ctx, s.userID, models.BudgetInput{Name: "lunch", Amount: 12.5, Date: fixedNow})
	s.Require().NoError(err)
	s.True(resp.IsCurrentMonth)
	s.Equal(42.5, resp.TotalBudgetThisMonth)
	s.Require().NotNil(resp.BudgetLimit)
	s.Equal(500.0, *resp.BudgetLimit)
	s.Require().NotNil(resp.Budget)
	s.NotEmpty(resp.Budget.ID)
	s.Equal(s.userID, resp.Budget.UserID)
}

func (s *BudgetServiceSuite) TestCreateOutsideCurrentMonth() {
	resp, err := s.svc.Create(s.ctx, s.userID, models.BudgetInput{
		Name:   "old",
		Amount: 12.5,
		Date:   time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC),
	})
	s.Require().NoError(err)
	s.False(resp.IsCurrentMonth)
	s.Zero(resp.TotalBudgetThisMonth)
	s.Nil(resp.BudgetLimit)

	// the entry is stored either way
	stored, err := s.svc.FindOne(s.ctx, resp.Budget.ID)
	s.Require().NoError(err)
	s.NotNil(stored)

	raw, err := json.Marshal(resp)
	s.Require().NoError(err)
	s.NotContains(string(raw), "budgetLimit")
}

func (s *BudgetServiceSuite) TestCreateRejectsNegativeAmount() {
	_, err := s.svc.Create(s.ctx, s.userID, models.BudgetInput{Name: "x", Amount: -1, Date: fixedNow})
	s.True(apperrors.Is(err, apperrors.KindInvalidInput))
}

func (s *BudgetServiceSuite) TestCheckLimit() {
	s.seed(100, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	s.seed(250, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
	s.seed(80, time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC))

	resp, err := s.svc.CheckLimit(s.ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(350.0, resp.TotalBudgetThisMonth)
	s.Require().NotNil(resp.BudgetLimit)
	s.Equal(500.0, *resp.BudgetLimit)
}

func (s *BudgetServiceSuite) TestFindAllPaging() {
	for i := 1; i <= 25; i++ {
		s.seed(float64(i), fixedNow)
	}

	all, err := s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{})
	s.Require().NoError(err)
	s.Equal(int64(25), all.TotalBudgets)
	s.Len(all.Budgets, 25)
	s.Equal(25.0, all.Budgets[0].Amount) // newest first

	page, err := s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{Limit: 10, Page: 2})
	s.Require().NoError(err)
	s.Equal(int64(25), page.TotalBudgets)
	s.Equal(2, page.CurrentPage)
	s.Equal(all.Budgets[10:20], page.Budgets)

	last, err := s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{Limit: 10, Page: 3})
	s.Require().NoError(err)
	s.Len(last.Budgets, 5)

	first, err := s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{Limit: 10})
	s.Require().NoError(err)
	s.Equal(1, first.CurrentPage)
	s.Equal(all.Budgets[:10], first.Budgets)
}

func (s *BudgetServiceSuite) TestFindAllDayFilter() {
	s.seed(1, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	s.seed(2, time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)) // Mar 11 in Tokyo
	s.seed(3, time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC))

	utc, err := s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{Date: "10-03-2025"})
	s.Require().NoError(err)
	s.Equal(int64(2), utc.TotalBudgets)
	s.Len(utc.Budgets, 2)

	tokyo, err := s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{Date: "11-03-2025", TimeZone: "Asia/Tokyo"})
	s.Require().NoError(err)
	s.Equal(int64(2), tokyo.TotalBudgets)

	none, err := s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{Date: "01-01-2020"})
	s.Require().NoError(err)
	s.NotNil(none.Budgets)
	s.Empty(none.Budgets)
	s.Zero(none.TotalBudgets)

	_, err = s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{Date: "2025-03-10"})
	s.True(apperrors.Is(err, apperrors.KindInvalidInput))
	_, err = s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{TimeZone: "Nowhere/City"})
	s.True(apperrors.Is(err, apperrors.KindInvalidInput))
}

func (s *BudgetServiceSuite) TestFindAllOnlyReturnsOwnEntries() {
	s.seed(1, fixedNow)
	_, err := s.budgets.Create(s.ctx, &entities.Budget{Name: "x", Amount: 9, Date: fixedNow, UserID: "someone-else"})
	s.Require().NoError(err)

	resp, err := s.svc.FindAll(s.ctx, s.userID, models.ListBudgetsQuery{})
	s.Require().NoError(err)
	s.Equal(int64(1), resp.TotalBudgets)
}

func (s *BudgetServiceSuite) TestFindOneIsIdempotent() {
	b := s.seed(10, fixedNow)

	first, err := s.svc.FindOne(s.ctx, b.ID)
	s.Require().NoError(err)
	second, err := s.svc.FindOne(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(first, second)

	missing, err := s.svc.FindOne(s.ctx, "missing")
	s.NoError(err)
	s.Nil(missing)
}

func (s *BudgetServiceSuite) TestUpdateAndRemoveContracts() {
	b := s.seed(10, fixedNow)

	name := "renamed"
	updated, err := s.svc.Update(s.ctx, b.ID, entities.BudgetPatch{Name: &name})
	s.Require().NoError(err)
	s.Equal("renamed", updated.Name)
	s.Equal(10.0, updated.Amount)
	s.Equal(s.userID, updated.UserID)

	_, err = s.svc.Update(s.ctx, "missing", entities.BudgetPatch{Name: &name})
	s.True(apperrors.Is(err, apperrors.KindNotFound))

	removed, err := s.svc.Remove(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(b.ID, removed.ID)

	// removing something that is not there is not an error
	again, err := s.svc.Remove(s.ctx, b.ID)
	s.NoError(err)
	s.Nil(again)
}

func (s *BudgetServiceSuite) TestReportCacheIsInvalidatedByWrites() {
	c := cache.NewMemoryCache(10, time.Hour)
	svc := NewBudgetService(s.budgets, s.users,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
		WithReportCache(c, time.Hour))

	before, err := svc.GetAnalytics(s.ctx, s.userID, "")
	s.Require().NoError(err)
	s.Zero(before.LastMonth.Data[0])

	// a write that bypasses the service is not seen until the cache is invalidated
	s.seed(5, time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC))
	cached, err := svc.GetAnalytics(s.ctx, s.userID, "")
	s.Require().NoError(err)
	s.Zero(cached.LastMonth.Data[0])

	_, err = svc.Create(s.ctx, s.userID, models.BudgetInput{Name: "y", Amount: 1, Date: time.Date(2025, 2, 1, 13, 0, 0, 0, time.UTC)})
	s.Require().NoError(err)

	after, err := svc.GetAnalytics(s.ctx, s.userID, "")
	s.Require().NoError(err)
	s.Equal(6.0, after.LastMonth.Data[0])
}

func (s *BudgetServiceSuite) TestEmptyUpdateKeepsCachedReport() {
	var logs bytes.Buffer
	svc := NewBudgetService(s.budgets, s.users,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
		WithReportCache(cache.NewMemoryCache(10, time.Hour), time.Hour),
		WithLogger(logger.New(logger.Config{Output: &logs, JSON: true, Level: logger.ParseLevel("debug")})))

	b := s.seed(5, time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC))
	first, err := svc.GetAnalytics(s.ctx, s.userID, "")
	s.Require().NoError(err)
	s.Equal(5.0, first.LastMonth.Data[0])
	s.Contains(logs.String(), `"time_zone":"UTC"`)

	// bypasses the service, so only an invalidation makes it visible
	s.seed(1, time.Date(2025, 2, 1, 13, 0, 0, 0, time.UTC))

	_, err = svc.Update(s.ctx, b.ID, entities.BudgetPatch{})
	s.Require().NoError(err)
	s.Contains(logs.String(), fmt.Sprintf(`"budget_id":%q`, b.ID))

	cached, err := svc.GetAnalytics(s.ctx, s.userID, "")
	s.Require().NoError(err)
	s.Equal(5.0, cached.LastMonth.Data[0])

	amount := 7.0
	_, err = svc.Update(s.ctx, b.ID, entities.BudgetPatch{Amount: &amount})
	s.Require().NoError(err)

	fresh, err := svc.GetAnalytics(s.ctx, s.userID, "")
	s.Require().NoError(err)
	s.Equal(8.0, fresh.LastMonth.Data[0])
}

// pausingBudgets holds the first daily grouping until release is closed,
// after it has already read the store
type pausingBudgets struct {
	repository.BudgetRepository
	once    sync.Once
	paused  chan struct{}
	release chan struct{}
}

func (p *pausingBudgets) GroupSumAmount(ctx context.Context, filter repository.BudgetFilter, groupBy repository.GroupBy) (map[string]float64, error) {
	sums, err := p.BudgetRepository.GroupSumAmount(ctx, filter, groupBy)
	if groupBy.Bucket == repository.BucketDay {
		p.once.Do(func() {
			close(p.paused)
			<-p.release
		})
	}
	return sums, err
}

func (s *BudgetServiceSuite) TestReportComputedAcrossAWriteIsNotServed() {
	budgets := &pausingBudgets{
		BudgetRepository: s.budgets,
		paused:           make(chan struct{}),
		release:          make(chan struct{}),
	}
	svc := NewBudgetService(budgets, s.users,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
		WithReportCache(cache.NewMemoryCache(10, time.Hour), time.Hour))

	done := make(chan error, 1)
	go func() {
		_, err := svc.GetAnalytics(s.ctx, s.userID, "")
		done <- err
	}()

	<-budgets.paused
	_, err := svc.Create(s.ctx, s.userID, models.BudgetInput{Name: "late", Amount: 42, Date: time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)})
	s.Require().NoError(err)
	close(budgets.release)
	s.Require().NoError(<-done)

	report, err := svc.GetAnalytics(s.ctx, s.userID, "")
	s.Require().NoError(err)

	var daily float64
	for _, v := range report.LastMonth.Data {
		daily += v
	}
	s.Equal(42.0, daily)
	s.Equal(42.0, report.Last12Months.Data[11])
}

func TestBudgetServiceSuite(t *testing.T) {
	suite.Run(t, new(BudgetServiceSuite))
}

func TestMonthWindowsAcrossYearBoundary(t *testing.T) {
	ctx := context.Background()
	svc := NewBudgetService(repository.NewMemoryBudgetRepository(), repository.NewMemoryUserRepository(),
		WithClock(func() time.Time { return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC) }),
		WithLocation(time.UTC))

	report, err := svc.GetAnalytics(ctx, "u1", "")
	require.NoError(t, err)

	assert.Len(t, report.LastMonth.Categories, 31)
	assert.Equal(t, "12/1", report.LastMonth.Categories[0])
	assert.Equal(t, "12/31", report.LastMonth.Categories[30])

	want := make([]string, 0, 12)
	for m := 1; m <= 12; m++ {
		want = append(want, fmt.Sprintf("%d/2025", m))
	}
	assert.Equal(t, want, report.Last12Months.Categories)
}

func TestAnalyticsPropagatesStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	budgets := mocks.NewMockBudgetRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)

	failure := apperrors.Storage("group budgets", errors.New("connection reset"))
	budgets.EXPECT().
		GroupSumAmount(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ repository.BudgetFilter, g repository.GroupBy) (map[string]float64, error) {
			if g.Bucket == repository.BucketMonth {
				return nil, failure
			}
			return map[string]float64{}, nil
		}).
		AnyTimes()
	users.EXPECT().FindByID(gomock.Any(), "u1").Return(&entities.User{ID: "u1"}, nil).AnyTimes()

	svc := NewBudgetService(budgets, users, WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))
	report, err := svc.GetAnalytics(context.Background(), "u1", "")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, failure)
	assert.True(t, apperrors.Is(err, apperrors.KindStorage))
}

func TestCreateStopsWhenInsertFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	budgets := mocks.NewMockBudgetRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)

	budgets.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, apperrors.Storage("create budget", errors.New("down")))
	// no SumAmount or FindByID expectations: neither may be called

	svc := NewBudgetService(budgets, users, WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))
	_, err := svc.Create(context.Background(), "u1", models.BudgetInput{Name: "x", Amount: 1, Date: fixedNow})
	assert.True(t, apperrors.Is(err, apperrors.KindStorage))
}

func TestCreateQueriesTheServerMonth(t *testing.T) {
	ctrl := gomock.NewController(t)
	budgets := mocks.NewMockBudgetRepository(ctrl)
	users := mocks.NewMockUserRepository(ctrl)

	entry := &entities.Budget{ID: "b1", UserID: "u1", Amount: 3, Date: fixedNow}
	budgets.EXPECT().Create(gomock.Any(), gomock.Any()).Return(entry, nil)
	budgets.EXPECT().
		SumAmount(gomock.Any(), repository.BudgetFilter{
			UserID: "u1",
			From:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			To:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond),
		}).
		Return(3.0, nil)
	users.EXPECT().FindByID(gomock.Any(), "u1").Return(nil, nil)

	svc := NewBudgetService(budgets, users, WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))
	resp, err := svc.Create(context.Background(), "u1", models.BudgetInput{Name: "x", Amount: 3, Date: fixedNow})
	require.NoError(t, err)
	assert.True(t, resp.IsCurrentMonth)
	assert.Equal(t, 3.0, resp.TotalBudgetThisMonth)
	assert.Nil(t, resp.BudgetLimit)
}
