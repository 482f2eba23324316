package appointment

import "time"

// Overlaps reports whether the half-open candidate window [start, end)
// intersects any of the existing windows. Two windows [s1,e1) and [s2,e2)
// intersect iff s1 < e2 && e1 > s2, so back-to-back appointments
// (09:00-10:00 followed by 10:00-11:00) never collide.
//
// The caller pre-filters existing to one participant, one business day,
// active non-cancelled rows, and excludes the appointment being updated.
func Overlaps(start, end time.Time, existing []Window) bool {
	for _, w := range existing {
		if start.Before(w.End) && end.After(w.Start) {
			return true
		}
	}
	return false
}
