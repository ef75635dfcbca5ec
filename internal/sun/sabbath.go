package sun

import (
	"context"
	"errors"
	"time"

	"github.com/sluu99/sabbathtext-sub001/internal/geo"
)

// ErrNoUpcomingSabbath is returned when the bounded forward scan finds
// no Friday sunset satisfying the lead-time constraint. With a scan
// window wider than a week this indicates a logic error upstream.
var ErrNoUpcomingSabbath = errors.New("no upcoming sabbath within scan window")

// upcomingScanDays bounds the day-by-day scan. A week always contains
// a Friday; one extra day covers a Friday whose sunset just passed.
const upcomingScanDays = 8

// TimeInfo is the derived sunset record for one ZIP code and date.
type TimeInfo struct {
	ZipCode     string
	Date        time.Time
	SunsetUTC   time.Time
	SunsetLocal time.Time
}

// Cache stores computed sunsets keyed by ZIP code and local date.
// Implementations must treat lookups as best-effort; a miss or a
// backend error simply falls through to the pure calculation.
type Cache interface {
	Get(ctx context.Context, zip string, date time.Time) (time.Time, bool)
	Put(ctx context.Context, zip string, date time.Time, sunset time.Time)
}

// Calc answers sunset and Sabbath questions for locations, consulting
// an optional cache in front of the pure astronomical calculation.
type Calc struct {
	cache Cache // nil disables caching
}

// NewCalc returns a calculator backed by the given cache; pass nil to
// compute everything directly.
func NewCalc(cache Cache) *Calc {
	return &Calc{cache: cache}
}

// Sunset returns the UTC sunset instant for the given local calendar
// date at loc.
func (c *Calc) Sunset(ctx context.Context, loc *geo.Location, year int, month time.Month, day int) time.Time {
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, loc.ZipCode, date); ok {
			return cached
		}
	}
	sunset := SunsetUTC(year, month, day, loc.Latitude, loc.Longitude)
	if c.cache != nil {
		c.cache.Put(ctx, loc.ZipCode, date, sunset)
	}
	return sunset
}

// Info bundles the sunset for one local date into a TimeInfo.
func (c *Calc) Info(ctx context.Context, loc *geo.Location, year int, month time.Month, day int) TimeInfo {
	sunset := c.Sunset(ctx, loc, year, month, day)
	return TimeInfo{
		ZipCode:     loc.ZipCode,
		Date:        time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		SunsetUTC:   sunset,
		SunsetLocal: sunset.In(loc.TZ()),
	}
}

// IsSabbath reports whether nowUTC falls inside the Sabbath window at
// loc: from local Friday sunset (inclusive) through local Saturday
// sunset (exclusive past the boundary instant).
func (c *Calc) IsSabbath(ctx context.Context, loc *geo.Location, nowUTC time.Time) bool {
	local := nowUTC.In(loc.TZ())
	y, m, d := local.Date()
	switch local.Weekday() {
	case time.Friday:
		sunset := c.Sunset(ctx, loc, y, m, d)
		return !nowUTC.Before(sunset)
	case time.Saturday:
		sunset := c.Sunset(ctx, loc, y, m, d)
		return !nowUTC.After(sunset)
	default:
		return false
	}
}

// UpcomingSabbath finds the next Friday-sunset instant at loc that is
// at least minLead after nowUTC, scanning forward one local day at a
// time.
func (c *Calc) UpcomingSabbath(ctx context.Context, loc *geo.Location, nowUTC time.Time, minLead time.Duration) (time.Time, error) {
	local := nowUTC.In(loc.TZ())
	for i := 0; i < upcomingScanDays; i++ {
		day := local.AddDate(0, 0, i)
		if day.Weekday() != time.Friday {
			continue
		}
		y, m, d := day.Date()
		sunset := c.Sunset(ctx, loc, y, m, d)
		if sunset.Sub(nowUTC) >= minLead {
			return sunset, nil
		}
	}
	return time.Time{}, ErrNoUpcomingSabbath
}
