package local

import (
	"context"
	"time"

	"tiergate/internal/pipeline/models"
)

// QuietHours marks the local night as a vulnerability window: people are not
// asked to consent between Start and End o'clock in their own timezone.
type QuietHours struct {
	Start int // hour, 0-23
	End   int // hour, 0-23
}

// DefaultQuietHours is 22:00 to 07:00.
var DefaultQuietHours = QuietHours{Start: 22, End: 7}

func (q QuietHours) IsVulnerable(_ context.Context, profile models.UserProfile, now time.Time) (bool, error) {
	return q.quiet(now.In(location(profile)).Hour()), nil
}

// NextOptimalWindow returns the end of the current quiet period, or now when
// outside it.
func (q QuietHours) NextOptimalWindow(_ context.Context, profile models.UserProfile, now time.Time) (time.Time, error) {
	local := now.In(location(profile))
	if !q.quiet(local.Hour()) {
		return now, nil
	}
	next := time.Date(local.Year(), local.Month(), local.Day(), q.End, 0, 0, 0, local.Location())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC(), nil
}

func (q QuietHours) quiet(hour int) bool {
	if q.Start == q.End {
		return false
	}
	if q.Start < q.End {
		return hour >= q.Start && hour < q.End
	}
	return hour >= q.Start || hour < q.End
}

func location(profile models.UserProfile) *time.Location {
	if profile.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
