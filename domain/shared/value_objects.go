package shared

import (
	"fmt"
	"time"
)

// WeekID 值对象 - ISO-8601 周标识，格式 YYYY-Www（如 2024-W01）
// 同一天总是映射到同一个 WeekID；跨年时使用 ISO 年而非日历年。
type WeekID struct {
	year int
	week int
}

// WeekIDFromDate 纯函数：只取 d 在其自身时区下的日历日期
func WeekIDFromDate(d time.Time) WeekID {
	year, week := d.ISOWeek()
	return WeekID{year: year, week: week}
}

// ParseWeekID 解析 YYYY-Www 字符串
func ParseWeekID(s string) (WeekID, error) {
	var year, week int
	if _, err := fmt.Sscanf(s, "%4d-W%2d", &year, &week); err != nil {
		return WeekID{}, NewValidationError("week", "week_id", fmt.Sprintf("invalid week id %q", s))
	}
	w := WeekID{year: year, week: week}
	if week < 1 || week > 53 || w.String() != s {
		return WeekID{}, NewValidationError("week", "week_id", fmt.Sprintf("invalid week id %q", s))
	}
	// 只有部分 ISO 年存在第 53 周
	if week == 53 && WeekIDFromDate(time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC)).week != 53 {
		return WeekID{}, NewValidationError("week", "week_id", fmt.Sprintf("year %d has no week 53", year))
	}
	return w, nil
}

func (w WeekID) Year() int { return w.year }
func (w WeekID) Week() int { return w.week }

func (w WeekID) IsZero() bool {
	return w.year == 0 && w.week == 0
}

func (w WeekID) String() string {
	return fmt.Sprintf("%04d-W%02d", w.year, w.week)
}

func (w WeekID) Equals(other WeekID) bool {
	return w == other
}

// Start 该周周一 00:00 UTC
func (w WeekID) Start() time.Time {
	// 1 月 4 日必定落在 ISO 第一周
	jan4 := time.Date(w.year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (w.week-1)*7)
}

func (w WeekID) Next() WeekID {
	return WeekIDFromDate(w.Start().AddDate(0, 0, 7))
}

func (w WeekID) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *WeekID) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekID(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
