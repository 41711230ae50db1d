package progress

import (
	"testing"
	"time"

	"okrproject/models"

	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendarPeriod(t *testing.T) {
	q3 := CalendarPeriod(3, 2026)
	assert.Equal(t, day(2026, time.July, 1), q3.Start)
	assert.Equal(t, day(2026, time.October, 1), q3.End)

	annual := CalendarPeriod(0, 2026)
	assert.Equal(t, day(2026, time.January, 1), annual.Start)
	assert.Equal(t, day(2027, time.January, 1), annual.End)
}

func TestPeriodOf(t *testing.T) {
	start, end := day(2026, time.March, 1), day(2026, time.April, 1)
	assert.Equal(t, Period{Start: start, End: end}, PeriodOf(&start, &end, 2, 2026, start))

	// inverted bounds fall back to the calendar
	assert.Equal(t, CalendarPeriod(2, 2026), PeriodOf(&end, &start, 2, 2026, start))
	assert.Equal(t, CalendarPeriod(1, 2025), PeriodOf(nil, nil, 1, 0, day(2025, time.June, 3)))
}

func TestExpectedProgress(t *testing.T) {
	p := Period{Start: day(2026, time.January, 1), End: day(2026, time.January, 11)}
	assert.Equal(t, 0.0, p.ExpectedProgress(day(2025, time.December, 1)))
	assert.InDelta(t, 50.0, p.ExpectedProgress(day(2026, time.January, 6)), 1e-9)
	assert.Equal(t, 100.0, p.ExpectedProgress(day(2026, time.February, 1)))
}

func TestResolveStatus(t *testing.T) {
	period := Period{Start: day(2026, time.January, 1), End: day(2026, time.January, 101)}
	mid := day(2026, time.January, 61) // 60% of the window elapsed

	tests := []struct {
		name string
		in   StatusInput
		want models.Status
	}{
		{"completed regardless of time", StatusInput{Progress: 100, AsOf: period.Start}, models.StatusCompleted},
		{"not started before the window", StatusInput{Progress: 0, AsOf: period.Start}, models.StatusNotStarted},
		{"no contributors", StatusInput{Progress: 0, AsOf: mid, NoContributors: true}, models.StatusNotStarted},
		{"on track within behind threshold", StatusInput{Progress: 40, AsOf: mid}, models.StatusOnTrack},
		{"behind", StatusInput{Progress: 30, AsOf: mid}, models.StatusBehind},
		{"at risk", StatusInput{Progress: 5, AsOf: mid}, models.StatusAtRisk},
		{"pinned wins", StatusInput{Progress: 100, AsOf: mid, Pinned: models.StatusAtRisk}, models.StatusAtRisk},
		{"postponed sticks", StatusInput{Progress: 100, AsOf: mid, Current: models.StatusPostponed}, models.StatusPostponed},
		{"cancelled sticks", StatusInput{Progress: 5, AsOf: mid, Current: models.StatusCancelled}, models.StatusCancelled},
		{"derived current is re-derived", StatusInput{Progress: 5, AsOf: mid, Current: models.StatusOnTrack}, models.StatusAtRisk},
		{"just below complete", StatusInput{Progress: 99.99, AsOf: period.End}, models.StatusOnTrack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Period = period
			if tt.in.Thresholds == (Thresholds{}) {
				tt.in.Thresholds = DefaultThresholds
			}
			assert.Equal(t, tt.want, ResolveStatus(tt.in))
		})
	}
}

func TestResolveStatusTenantThresholds(t *testing.T) {
	in := StatusInput{
		Progress:   30,
		Period:     Period{Start: day(2026, time.January, 1), End: day(2026, time.January, 101)},
		AsOf:       day(2026, time.January, 61),
		Thresholds: Thresholds{Behind: 10, AtRisk: 20},
	}
	assert.Equal(t, models.StatusAtRisk, ResolveStatus(in))

	in.Thresholds = Thresholds{Behind: 40, AtRisk: 60}
	assert.Equal(t, models.StatusOnTrack, ResolveStatus(in))
}

func TestResolveStatusNeverCompletesEarly(t *testing.T) {
	period := CalendarPeriod(1, 2026)
	for p := 0.0; p < 100; p += 0.5 {
		got := ResolveStatus(StatusInput{Progress: p, Period: period, AsOf: period.End, Thresholds: DefaultThresholds})
		assert.NotEqual(t, models.StatusCompleted, got, "progress %v", p)
	}
}
