package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
)

type fakeRosterCounter struct {
	counts models.StudentCounts
	calls  int
}

func (f *fakeRosterCounter) Counts(context.Context, string) (models.StudentCounts, error) {
	f.calls++
	return f.counts, nil
}

type fakeMessages struct {
	totals    models.MessageTotals
	daily     []models.DailyMessageCount
	top       []models.StudentMessageCount
	lastRange models.MessageRange
	lastLimit int
	err       error
}

func (f *fakeMessages) Totals(_ context.Context, rng models.MessageRange) (models.MessageTotals, error) {
	f.lastRange = rng
	return f.totals, f.err
}

func (f *fakeMessages) DailyCounts(context.Context, models.MessageRange) ([]models.DailyMessageCount, error) {
	return f.daily, nil
}

func (f *fakeMessages) TopStudents(_ context.Context, _ models.MessageRange, limit int) ([]models.StudentMessageCount, error) {
	f.lastLimit = limit
	return f.top, nil
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func newTestDashboard(students *fakeRosterCounter, messages *fakeMessages, cache *CacheService) *DashboardService {
	svc := NewDashboardService(DashboardServiceParams{
		Students: students,
		Messages: messages,
		Cache:    cache,
		Logger:   zap.NewNop(),
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC) }
	return svc
}

func TestDashboardSummaryZeroFillsSeries(t *testing.T) {
	students := &fakeRosterCounter{counts: models.StudentCounts{Total: 12, Active: 9}}
	messages := &fakeMessages{
		totals: models.MessageTotals{Total: 7, Inbound: 4, Outbound: 3, ActiveStudents: 2},
		daily:  []models.DailyMessageCount{{Day: day(2), Count: 5}, {Day: day(4), Count: 2}},
		top:    []models.StudentMessageCount{{StudentID: "s1", FirstName: "John", LastName: "Doe", Count: 5}},
	}
	svc := newTestDashboard(students, messages, nil)

	summary, hit, err := svc.Summary(context.Background(), "u1", "2024-03-01", "2024-03-05")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2024-03-01", summary.From)
	assert.Equal(t, "2024-03-05", summary.To)
	assert.Equal(t, 12, summary.Students.Total)
	assert.Equal(t, 2, summary.Students.Engaged)
	assert.Equal(t, 4, summary.Messages.Inbound)
	require.Len(t, summary.DailyMessages, 5)
	counts := make([]int, 0, 5)
	for _, p := range summary.DailyMessages {
		counts = append(counts, p.Count)
	}
	assert.Equal(t, []int{0, 5, 0, 2, 0}, counts)
	require.Len(t, summary.TopStudents, 1)
	assert.Equal(t, "John Doe", summary.TopStudents[0].Name)
	assert.Equal(t, 5, messages.lastLimit)
	assert.Equal(t, day(6), messages.lastRange.To)
}

func TestDashboardSummaryDefaultsToLastThirtyDays(t *testing.T) {
	svc := newTestDashboard(&fakeRosterCounter{}, &fakeMessages{}, nil)

	summary, _, err := svc.Summary(context.Background(), "u1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-10", summary.From)
	assert.Equal(t, "2024-03-10", summary.To)
	assert.Len(t, summary.DailyMessages, 30)
}

func TestDashboardSummaryRejectsInvertedRange(t *testing.T) {
	svc := newTestDashboard(&fakeRosterCounter{}, &fakeMessages{}, nil)

	_, _, err := svc.Summary(context.Background(), "u1", "2024-03-05", "2024-03-01")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDashboardSummaryUsesCache(t *testing.T) {
	students := &fakeRosterCounter{counts: models.StudentCounts{Total: 1}}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := newTestDashboard(students, &fakeMessages{}, cache)

	_, hit, err := svc.Summary(context.Background(), "u1", "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	assert.False(t, hit)

	summary, hit, err := svc.Summary(context.Background(), "u1", "2024-03-01", "2024-03-02")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, summary.Students.Total)
	assert.Equal(t, 1, students.calls)
}

func TestDashboardSummaryRepositoryError(t *testing.T) {
	svc := newTestDashboard(&fakeRosterCounter{}, &fakeMessages{err: errors.New("db down")}, nil)

	_, _, err := svc.Summary(context.Background(), "u1", "", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestResolveDateRange(t *testing.T) {
	now := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)

	rng, err := ResolveDateRange("", "2024-03-05", 7, now)
	require.NoError(t, err)
	assert.Equal(t, day(5).AddDate(0, 0, -6), rng.From)

	_, err = ResolveDateRange("03/01/2024", "", 30, now)
	assert.Error(t, err)

	_, err = ResolveDateRange("2020-01-01", "2024-01-01", 30, now)
	assert.Error(t, err)

	rng, err = ResolveDateRange("2024-03-10", "2024-03-10", 30, now)
	require.NoError(t, err)
	assert.Len(t, rng.Days(), 1)
}
