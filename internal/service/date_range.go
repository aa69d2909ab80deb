package service

import (
	"time"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/teacher-dashboard-api/pkg/errors"
)

const maxRangeDays = 366

// DateRange is an inclusive range of calendar days in UTC.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ResolveDateRange parses optional YYYY-MM-DD bounds. Missing bounds default to the
// defaultDays ending today, or ending at the given upper bound.
func ResolveDateRange(fromRaw, toRaw string, defaultDays int, now time.Time) (DateRange, error) {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	to := truncateDay(now)
	if toRaw != "" {
		parsed, err := time.Parse(models.DateLayout, toRaw)
		if err != nil {
			return DateRange{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "to must be YYYY-MM-DD")
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -(defaultDays - 1))
	if fromRaw != "" {
		parsed, err := time.Parse(models.DateLayout, fromRaw)
		if err != nil {
			return DateRange{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if from.After(to) {
		return DateRange{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if len(DateRange{From: from, To: to}.Days()) > maxRangeDays {
		return DateRange{}, appErrors.Clone(appErrors.ErrValidation, "range must not exceed 366 days")
	}
	return DateRange{From: from, To: to}, nil
}

// Days lists every day in the range in ascending order.
func (r DateRange) Days() []time.Time {
	days := []time.Time{}
	for day := r.From; !day.After(r.To); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
		if len(days) > maxRangeDays {
			break
		}
	}
	return days
}

// Key renders the range for cache keys and responses.
func (r DateRange) Key() string {
	return r.From.Format(models.DateLayout) + ":" + r.To.Format(models.DateLayout)
}

func (r DateRange) messageRange(userID string) models.MessageRange {
	return models.MessageRange{UserID: userID, From: r.From, To: r.To.AddDate(0, 0, 1)}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
