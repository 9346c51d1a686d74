package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"budgetly-be/internal/apperrors"
	"budgetly-be/internal/entities"
)

type MemoryBudgetRepositorySuite struct {
	suite.Suite
	repo  *memoryBudgetRepository
	clock time.Time
	ctx   context.Context
}

func (s *MemoryBudgetRepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.repo = NewMemoryBudgetRepository().(*memoryBudgetRepository)
	s.repo.now = func() time.Time { return s.clock }
}

func (s *MemoryBudgetRepositorySuite) add(userID, name string, amount float64, date time.Time) *entities.Budget {
	b, err := s.repo.Create(s.ctx, &entities.Budget{Name: name, Amount: amount, Date: date, UserID: userID})
	s.Require().NoError(err)
	return b
}

func (s *MemoryBudgetRepositorySuite) TestCreateAssignsIDAndTimestamps() {
	b := s.add("u1", "coffee", 3.5, s.clock)

	s.NotEmpty(b.ID)
	s.Equal(s.clock, b.CreatedAt)
	s.Equal(s.clock, b.UpdatedAt)

	found, err := s.repo.FindByID(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(b, found)
}

func (s *MemoryBudgetRepositorySuite) TestFindByIDMissing() {
	found, err := s.repo.FindByID(s.ctx, "nope")
	s.NoError(err)
	s.Nil(found)
}

func (s *MemoryBudgetRepositorySuite) TestUpdate() {
	b := s.add("u1", "coffee", 3.5, s.clock)
	s.clock = s.clock.Add(time.Hour)

	amount := 4.0
	updated, err := s.repo.Update(s.ctx, b.ID, entities.BudgetPatch{Amount: &amount})
	s.Require().NoError(err)
	s.Equal("coffee", updated.Name)
	s.Equal(4.0, updated.Amount)
	s.Equal(s.clock, updated.UpdatedAt)
	s.True(updated.UpdatedAt.After(updated.CreatedAt))

	_, err = s.repo.Update(s.ctx, "missing", entities.BudgetPatch{Amount: &amount})
	s.True(apperrors.Is(err, apperrors.KindNotFound))
}

func (s *MemoryBudgetRepositorySuite) TestDelete() {
	b := s.add("u1", "coffee", 3.5, s.clock)

	removed, err := s.repo.Delete(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Equal(b.ID, removed.ID)

	again, err := s.repo.Delete(s.ctx, b.ID)
	s.NoError(err)
	s.Nil(again)
}

func (s *MemoryBudgetRepositorySuite) TestFindOrdersNewestFirstAndPages() {
	first := s.add("u1", "a", 1, s.clock)
	second := s.add("u1", "b", 2, s.clock) // same createdAt, inserted later
	s.clock = s.clock.Add(time.Minute)
	third := s.add("u1", "c", 3, s.clock)
	s.add("u2", "other", 100, s.clock)

	all, total, err := s.repo.Find(s.ctx, BudgetFilter{UserID: "u1"}, Page{})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(all, 3)
	s.Equal([]string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	page, total, err := s.repo.Find(s.ctx, BudgetFilter{UserID: "u1"}, Page{Skip: 2, Limit: 2})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(page, 1)
	s.Equal(first.ID, page[0].ID)

	beyond, total, err := s.repo.Find(s.ctx, BudgetFilter{UserID: "u1"}, Page{Skip: 10, Limit: 2})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.NotNil(beyond)
	s.Empty(beyond)
}

func (s *MemoryBudgetRepositorySuite) TestDayFilterUsesZone() {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	s.Require().NoError(err)

	// 2025-06-14 20:00 UTC is already June 15 in Tokyo
	s.add("u1", "late", 5, time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC))

	utc, _, err := s.repo.Find(s.ctx, BudgetFilter{UserID: "u1", Day: "15-06-2025"}, Page{})
	s.Require().NoError(err)
	s.Empty(utc)

	local, _, err := s.repo.Find(s.ctx, BudgetFilter{UserID: "u1", Day: "15-06-2025", Location: tokyo}, Page{})
	s.Require().NoError(err)
	s.Len(local, 1)
}

func (s *MemoryBudgetRepositorySuite) TestSumAndGroup() {
	s.add("u1", "a", 10, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	s.add("u1", "b", 5, time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC))
	s.add("u1", "c", 7, time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC))
	s.add("u1", "d", 1, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))

	filter := BudgetFilter{
		UserID: "u1",
		From:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2025, 6, 30, 23, 59, 59, 999999999, time.UTC),
	}
	sum, err := s.repo.SumAmount(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal(22.0, sum)

	days, err := s.repo.GroupSumAmount(s.ctx, filter, GroupBy{Bucket: BucketDay})
	s.Require().NoError(err)
	s.Equal(map[string]float64{"6/1": 15, "6/30": 7}, days)

	months, err := s.repo.GroupSumAmount(s.ctx, BudgetFilter{UserID: "u1"}, GroupBy{Bucket: BucketMonth})
	s.Require().NoError(err)
	s.Equal(map[string]float64{"6/2025": 22, "7/2025": 1}, months)
}

func TestMemoryBudgetRepositorySuite(t *testing.T) {
	suite.Run(t, new(MemoryBudgetRepositorySuite))
}

// Run with -race: Find hands out copies, so concurrent updates never touch
// what a listing is sorting or returning.
func TestMemoryBudgetFindDuringUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBudgetRepository()

	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		b, err := repo.Create(ctx, &entities.Budget{Name: "entry", Amount: 1, Date: time.Now(), UserID: "u1"})
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			amount := float64(i)
			_, err := repo.Update(ctx, ids[i%len(ids)], entities.BudgetPatch{Amount: &amount})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			budgets, total, err := repo.Find(ctx, BudgetFilter{UserID: "u1"}, Page{Limit: 10})
			assert.NoError(t, err)
			assert.Equal(t, int64(50), total)
			assert.Len(t, budgets, 10)
		}
	}()
	wg.Wait()

	// returned entries are detached from the store
	budgets, _, err := repo.Find(ctx, BudgetFilter{UserID: "u1"}, Page{})
	require.NoError(t, err)
	budgets[0].Name = "changed"
	again, err := repo.FindByID(ctx, budgets[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "entry", again.Name)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	created, err := repo.Create(ctx, &entities.User{Email: "a@b.co", FirstName: "A", LastName: "B", BudgetLimit: 100})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = repo.Create(ctx, &entities.User{Email: "a@b.co"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	byEmail, err := repo.FindByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, byID.BudgetLimit)

	removed, err := repo.DeleteByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.DeleteByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.False(t, removed)

	missing, err := repo.FindByEmail(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGroupByKey(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	at := time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, "1/1", GroupBy{Bucket: BucketDay}.Key(at))
	assert.Equal(t, "12/31", GroupBy{Bucket: BucketDay, Location: ny}.Key(at))
	assert.Equal(t, "12/2024", GroupBy{Bucket: BucketMonth, Location: ny}.Key(at))
	assert.Equal(t, "1/2025", GroupBy{Bucket: BucketMonth}.Key(at))
}
