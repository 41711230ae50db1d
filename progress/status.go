package progress

import (
	"time"

	"okrproject/models"
)

// Thresholds are percentage points below the time-expected progress at which
// an entity turns behind and at risk.
type Thresholds struct {
	Behind float64
	AtRisk float64
}

var DefaultThresholds = Thresholds{Behind: 25, AtRisk: 50}

type Period struct {
	Start time.Time
	End   time.Time
}

// CalendarPeriod returns the UTC window of a quarter (1-4) or, for quarter 0,
// the whole year.
func CalendarPeriod(quarter, year int) Period {
	if quarter < 1 || quarter > 4 {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: start, End: start.AddDate(1, 0, 0)}
	}
	start := time.Date(year, time.Month(3*(quarter-1)+1), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 3, 0)}
}

// PeriodOf prefers explicit bounds and falls back to the calendar window of
// (quarter, year). A missing year is taken from asOf.
func PeriodOf(start, end *time.Time, quarter, year int, asOf time.Time) Period {
	if start != nil && end != nil && end.After(*start) {
		return Period{Start: *start, End: *end}
	}
	if year == 0 {
		year = asOf.UTC().Year()
	}
	return CalendarPeriod(quarter, year)
}

// ExpectedProgress is the elapsed fraction of the period at asOf, as a percentage.
func (p Period) ExpectedProgress(asOf time.Time) float64 {
	span := p.End.Sub(p.Start)
	if span <= 0 {
		if asOf.Before(p.End) {
			return 0
		}
		return 100
	}
	return clamp(float64(asOf.Sub(p.Start))/float64(span), 0, 1) * 100
}

type StatusInput struct {
	Progress float64
	Period   Period
	AsOf     time.Time
	// Current is the entity's stored status; postponed and cancelled stick.
	Current models.Status
	// Pinned is a manually set status that wins over any derivation.
	Pinned         models.Status
	NoContributors bool
	Thresholds     Thresholds
}

// ResolveStatus derives a lifecycle status. Postponed and cancelled are never
// produced here; they only survive from Current or Pinned.
func ResolveStatus(in StatusInput) models.Status {
	if in.Pinned.Valid() {
		return in.Pinned
	}
	if in.Current.IsTerminal() {
		return in.Current
	}

	progress := clamp(finite(in.Progress), 0, 100)
	if in.NoContributors && progress == 0 {
		return models.StatusNotStarted
	}
	if progress >= 100 {
		return models.StatusCompleted
	}
	if progress == 0 && !in.AsOf.After(in.Period.Start) {
		return models.StatusNotStarted
	}

	behind := in.Thresholds.Behind
	if behind < 0 {
		behind = 0
	}
	atRisk := in.Thresholds.AtRisk
	if atRisk < behind {
		atRisk = behind
	}

	gap := in.Period.ExpectedProgress(in.AsOf) - progress
	switch {
	case gap <= behind:
		return models.StatusOnTrack
	case gap <= atRisk:
		return models.StatusBehind
	default:
		return models.StatusAtRisk
	}
}
