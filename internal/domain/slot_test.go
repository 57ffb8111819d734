package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSlotStatus(t *testing.T) {
	testCases := []struct {
		name     string
		slot     Slot
		expected SlotStatus
	}{
		{"all flags clear", Slot{}, SlotStatusAvailable},
		{"booked only", Slot{Booked: true}, SlotStatusBooked},
		{"booked and confirmed", Slot{Booked: true, Confirmed: true}, SlotStatusConfirmed},
		{"vehicle parked on confirmed booking", Slot{Booked: true, Confirmed: true, Occupied: true}, SlotStatusOccupied},
		{"vehicle without booking", Slot{Occupied: true, Alarmed: true}, SlotStatusAlert},
		{"confirmed without booked", Slot{Confirmed: true}, SlotStatusUnknown},
		{"occupied without alarm or booking", Slot{Occupied: true}, SlotStatusUnknown},
		{"alarmed while booked", Slot{Booked: true, Confirmed: true, Occupied: true, Alarmed: true}, SlotStatusUnknown},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeriveSlotStatus(&tc.slot))
		})
	}
}

// Hàm phải total: 16 tổ hợp cờ đều map về đúng một status.
func TestDeriveSlotStatusTotal(t *testing.T) {
	known := map[SlotStatus]bool{
		SlotStatusAvailable: true,
		SlotStatusBooked:    true,
		SlotStatusConfirmed: true,
		SlotStatusOccupied:  true,
		SlotStatusAlert:     true,
		SlotStatusUnknown:   true,
	}
	for i := 0; i < 16; i++ {
		s := Slot{
			Booked:    i&1 != 0,
			Confirmed: i&2 != 0,
			Occupied:  i&4 != 0,
			Alarmed:   i&8 != 0,
		}
		assert.True(t, known[DeriveSlotStatus(&s)], "tổ hợp %04b không map về status hợp lệ", i)
	}
}

func TestSlotAvailablePolicy(t *testing.T) {
	// Chỉ cờ booked quyết định — slot occupied/alarmed nhưng chưa booked vẫn đặt được.
	assert.True(t, (&Slot{Occupied: true, Alarmed: true}).Available())
	assert.False(t, (&Slot{Booked: true}).Available())
	assert.True(t, (&Slot{}).Available())
}
