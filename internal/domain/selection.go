package domain

// Selection is a committed [Start, End] time range in seconds.
type Selection struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Len returns the selection span in seconds.
func (s Selection) Len() float64 {
	return s.End - s.Start
}

// Contains reports whether t falls inside the range (inclusive).
func (s Selection) Contains(t float64) bool {
	return t >= s.Start && t <= s.End
}

// Overlaps reports whether [start, end) intersects the selection.
func (s Selection) Overlaps(start, end float64) bool {
	return start < s.End && end > s.Start
}
