package interval

// Entry pairs a stored booking's ID with its interval.
type Entry struct {
	ID    string
	Range Interval
}

// Detector decides which existing bookings conflict with a candidate.
// Implementations must be pure; callers may swap in an indexed structure
// (e.g. an interval tree) without changing the contract.
type Detector interface {
	Conflicts(candidate Interval, existing []Entry, excludeID string) []string
}

// ScanDetector checks every existing entry in turn. Linear in the number of
// a spot's bookings, which is plenty at this scale.
type ScanDetector struct{}

func NewScanDetector() ScanDetector {
	return ScanDetector{}
}

// Conflicts returns the IDs of entries that clash with the candidate under
// the inclusive-boundary policy: a booking ending on day D conflicts with
// one starting on day D. The three clauses are kept separate on purpose;
// collapsing them into a single half-open overlap test changes behavior at
// the boundaries.
func (ScanDetector) Conflicts(candidate Interval, existing []Entry, excludeID string) []string {
	var conflicting []string
	for _, entry := range existing {
		if excludeID != "" && entry.ID == excludeID {
			continue
		}
		if clashes(candidate, entry.Range) {
			conflicting = append(conflicting, entry.ID)
		}
	}
	return conflicting
}

func clashes(c, e Interval) bool {
	// Candidate start falls within [e.Start, e.End], both ends inclusive.
	if !c.Start.Before(e.Start) && !c.Start.After(e.End) {
		return true
	}
	// Candidate end falls within [e.Start, e.End], both ends inclusive.
	if !c.End.Before(e.Start) && !c.End.After(e.End) {
		return true
	}
	// Candidate fully envelops the existing range.
	if !c.Start.After(e.Start) && !c.End.Before(e.End) {
		return true
	}
	return false
}
