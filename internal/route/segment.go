package route

import "fmt"

// Segment is the half-open interval [Start, End) of ordinals a passenger
// occupies a seat for. A passenger alighting at a station frees the seat for
// one boarding there, so touching segments never conflict.
type Segment struct {
	Start int
	End   int
}

func (s Segment) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Overlaps reports whether the two segments share any part of the route.
func (s Segment) Overlaps(o Segment) bool {
	return o.Start < s.End && o.End > s.Start
}

// FirstConflict returns the index of the first existing segment that
// overlaps req, or -1 when req fits alongside all of them.
func FirstConflict(req Segment, existing []Segment) int {
	for i, seg := range existing {
		if seg.Overlaps(req) {
			return i
		}
	}
	return -1
}
