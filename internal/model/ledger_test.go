package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLedger_FinancialMonth(t *testing.T) {
	tests := []struct {
		at        time.Time
		wantStart time.Time
		wantEnd   time.Time
		name      string
		startDay  int
	}{
		{
			name:      "calendar month",
			startDay:  1,
			at:        time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "on the start day",
			startDay:  25,
			at:        time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "before the start day belongs to previous month",
			startDay:  25,
			at:        time.Date(2024, 3, 24, 23, 59, 0, 0, time.UTC),
			wantStart: time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "crosses year boundary",
			startDay:  10,
			at:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2023, 12, 10, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "out of range start day falls back to the first",
			startDay:  0,
			at:        time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Ledger{MonthStartDay: tt.startDay}
			start, end := l.FinancialMonth(tt.at)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestCurrencyDigits(t *testing.T) {
	assert.Equal(t, 2, CurrencyDigits("USD"))
	assert.Equal(t, 2, CurrencyDigits("EUR"))
	assert.Equal(t, 0, CurrencyDigits("KRW"))
	assert.Equal(t, 0, CurrencyDigits("JPY"))
	assert.Equal(t, 3, CurrencyDigits("KWD"))
}
