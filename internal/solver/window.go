package solver

import (
	"fmt"
	"time"
)

// Window solver 结果的日期范围，结束日期包含在内
type Window struct {
	Start *time.Time
	End   *time.Time
}

// ParseDate 解析 YYYY-MM-DD，空字符串返回 nil
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return &t, nil
}

// NewWindow 由命令行日期构造 Window
func NewWindow(start, end string) (Window, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Window{}, err
	}
	if s != nil && e != nil && e.Before(*s) {
		return Window{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return Window{Start: s, End: e}, nil
}

// Unbounded 是否没有任何日期限制
func (w Window) Unbounded() bool {
	return w.Start == nil && w.End == nil
}

// Bounds 返回半开区间 [from, to)，nil 表示不限
func (w Window) Bounds() (from, to *time.Time) {
	if w.Start != nil {
		s := *w.Start
		from = &s
	}
	if w.End != nil {
		e := w.End.AddDate(0, 0, 1)
		to = &e
	}
	return from, to
}

// Contains 判断时间是否落在窗口内
func (w Window) Contains(t time.Time) bool {
	from, to := w.Bounds()
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

// Includes 判断文档是否落在窗口内，没有时间的文档只属于不限日期的窗口
func (w Window) Includes(doc *Document) bool {
	t, ok := doc.Time()
	if !ok {
		return w.Unbounded()
	}
	return w.Contains(t)
}

func (w Window) String() string {
	start, end := "-", "-"
	if w.Start != nil {
		start = w.Start.Format(time.DateOnly)
	}
	if w.End != nil {
		end = w.End.Format(time.DateOnly)
	}
	return start + ".." + end
}
