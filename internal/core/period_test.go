package core

import (
	"testing"
	"time"
)

func TestCurrentPeriod(t *testing.T) {
	tests := []struct {
		name      string
		period    Period
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "monthly mid month",
			period:    Monthly,
			now:       time.Date(2024, 2, 15, 13, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:      "monthly december rolls year",
			period:    Monthly,
			now:       time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 12, 31, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:      "yearly",
			period:    Yearly,
			now:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 12, 31, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:      "non-UTC clock is converted",
			period:    Monthly,
			now:       time.Date(2025, 3, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600)),
			wantStart: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 2, 28, 23, 59, 59, 999999999, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := CurrentPeriod(tt.period, tt.now)
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("CurrentPeriod() = [%v, %v], want [%v, %v]", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestClassifyBudget(t *testing.T) {
	b := Budget{Amount: dec("100"), WarningThreshold: dec("75"), AlertThreshold: dec("90")}
	tests := []struct {
		spent     string
		status    BudgetStatus
		remaining string
	}{
		{"0", StatusOnTrack, "100"},
		{"-74.99", StatusOnTrack, "25.01"},
		{"-75", StatusWarning, "25"},
		{"-89.99", StatusWarning, "10.01"},
		{"-90", StatusWarning, "10"},
		{"-100", StatusAtLimit, "0"},
		{"-100.01", StatusOverBudget, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.spent, func(t *testing.T) {
			_, status, remaining := ClassifyBudget(b, dec(tt.spent))
			if status != tt.status {
				t.Errorf("status = %s, want %s", status, tt.status)
			}
			if !remaining.Equal(dec(tt.remaining)) {
				t.Errorf("remaining = %s, want %s", remaining, tt.remaining)
			}
		})
	}
}

func TestLastDayOfMonth(t *testing.T) {
	cases := map[time.Time]int{
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC):   29,
		time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC):    28,
		time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC):   30,
		time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC): 31,
	}
	for in, want := range cases {
		if got := LastDayOfMonth(in); got != want {
			t.Errorf("LastDayOfMonth(%s) = %d, want %d", in.Format(time.DateOnly), got, want)
		}
	}
}
