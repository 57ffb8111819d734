package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTariffCost(t *testing.T) {
	tariff := Tariff{FirstHourRate: 10000, ExtraHourRate: 5000}
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		duration time.Duration
		expected int
	}{
		{"zero duration still bills one hour", 0, 10000},
		{"one minute", time.Minute, 10000},
		{"exactly one hour", time.Hour, 10000},
		{"one hour one minute rounds to two hours", 61 * time.Minute, 15000},
		{"two hours ten minutes rounds to three hours", 2*time.Hour + 10*time.Minute, 20000},
		{"negative elapsed bills one hour", -5 * time.Minute, 10000},
		{"exactly two hours", 2 * time.Hour, 15000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tariff.Cost(base, base.Add(tc.duration)))
		})
	}
}

func TestTariffBillableHours(t *testing.T) {
	tariff := Tariff{FirstHourRate: 10000, ExtraHourRate: 5000}
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, tariff.BillableHours(base, base))
	assert.Equal(t, 1, tariff.BillableHours(base, base.Add(59*time.Minute)))
	assert.Equal(t, 2, tariff.BillableHours(base, base.Add(60*time.Minute+time.Second)))
	assert.Equal(t, 3, tariff.BillableHours(base, base.Add(2*time.Hour+10*time.Minute)))
}
