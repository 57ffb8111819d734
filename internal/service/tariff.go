package service

import "time"

// Tariff là biểu phí theo giờ: giờ đầu một giá, mỗi giờ tiếp theo một giá.
// Thuần túy, không I/O.
type Tariff struct {
	FirstHourRate int
	ExtraHourRate int
}

// BillableHours làm tròn lên theo giờ: bất kỳ phần giờ lẻ nào, kể cả giờ đầu,
// tính tròn một giờ. Khoảng thời gian 0 hoặc âm vẫn tính một giờ.
func (t Tariff) BillableHours(start, end time.Time) int {
	elapsedMs := end.Sub(start).Milliseconds()
	hours := int((elapsedMs + 3_599_999) / 3_600_000)
	if hours < 1 {
		hours = 1
	}
	return hours
}

func (t Tariff) Cost(start, end time.Time) int {
	hours := t.BillableHours(start, end)
	return t.FirstHourRate + (hours-1)*t.ExtraHourRate
}
