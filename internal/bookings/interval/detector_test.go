package interval

import (
	"testing"
)

func entry(id, start, end string) Entry {
	return Entry{ID: id, Range: Interval{Start: date(start), End: date(end)}}
}

func TestConflicts(t *testing.T) {
	existing := []Entry{
		entry("b1", "2030-05-10", "2030-05-15"),
	}

	tests := []struct {
		name      string
		candidate Interval
		exclude   string
		want      []string
	}{
		{
			name:      "fully inside existing",
			candidate: Interval{Start: date("2030-05-11"), End: date("2030-05-14")},
			want:      []string{"b1"},
		},
		{
			name:      "identical range",
			candidate: Interval{Start: date("2030-05-10"), End: date("2030-05-15")},
			want:      []string{"b1"},
		},
		{
			name:      "overlaps the left edge",
			candidate: Interval{Start: date("2030-05-08"), End: date("2030-05-11")},
			want:      []string{"b1"},
		},
		{
			name:      "overlaps the right edge",
			candidate: Interval{Start: date("2030-05-14"), End: date("2030-05-20")},
			want:      []string{"b1"},
		},
		{
			name:      "envelops existing",
			candidate: Interval{Start: date("2030-05-08"), End: date("2030-05-20")},
			want:      []string{"b1"},
		},
		{
			name:      "candidate starts on existing end day",
			candidate: Interval{Start: date("2030-05-15"), End: date("2030-05-20")},
			want:      []string{"b1"},
		},
		{
			name:      "candidate ends on existing start day",
			candidate: Interval{Start: date("2030-05-05"), End: date("2030-05-10")},
			want:      []string{"b1"},
		},
		{
			name:      "one day gap after existing",
			candidate: Interval{Start: date("2030-05-16"), End: date("2030-05-20")},
			want:      nil,
		},
		{
			name:      "one day gap before existing",
			candidate: Interval{Start: date("2030-05-05"), End: date("2030-05-09")},
			want:      nil,
		},
		{
			name:      "same range excluded by id",
			candidate: Interval{Start: date("2030-05-10"), End: date("2030-05-15")},
			exclude:   "b1",
			want:      nil,
		},
	}

	detector := NewScanDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detector.Conflicts(tt.candidate, existing, tt.exclude)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestConflictsMultipleEntries(t *testing.T) {
	existing := []Entry{
		entry("b1", "2030-05-01", "2030-05-05"),
		entry("b2", "2030-05-10", "2030-05-15"),
		entry("b3", "2030-05-20", "2030-05-25"),
	}

	candidate := Interval{Start: date("2030-05-04"), End: date("2030-05-21")}

	got := NewScanDetector().Conflicts(candidate, existing, "")
	if len(got) != 3 {
		t.Fatalf("expected all three entries to conflict, got %v", got)
	}
}

func TestConflictsEmptyExisting(t *testing.T) {
	candidate := Interval{Start: date("2030-05-01"), End: date("2030-05-05")}
	if got := NewScanDetector().Conflicts(candidate, nil, ""); got != nil {
		t.Fatalf("expected no conflicts, got %v", got)
	}
}
