package domain

import "testing"

func TestNormalizedDropsImplausibleAge(t *testing.T) {
	cases := map[string]struct {
		age  *int
		want *int
	}{
		"negative":  {age: IntPtr(-3), want: nil},
		"too old":   {age: IntPtr(121), want: nil},
		"newborn":   {age: IntPtr(0), want: IntPtr(0)},
		"upper cap": {age: IntPtr(120), want: IntPtr(120)},
		"child":     {age: IntPtr(6), want: IntPtr(6)},
		"unknown":   {age: nil, want: nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := ReportFacts{Age: tc.age}.Normalized()
			switch {
			case tc.want == nil && got.Age != nil:
				t.Fatalf("expected age dropped, got %d", *got.Age)
			case tc.want != nil && got.Age == nil:
				t.Fatalf("expected age %d, got nil", *tc.want)
			case tc.want != nil && *got.Age != *tc.want:
				t.Fatalf("expected age %d, got %d", *tc.want, *got.Age)
			}
		})
	}
}

func TestNormalizedDetachesAge(t *testing.T) {
	age := 7
	facts := ReportFacts{Age: &age}.Normalized()
	age = 99
	if *facts.Age != 7 {
		t.Fatalf("expected detached age 7, got %d", *facts.Age)
	}
	if facts.SchoolType != SchoolUnspecified {
		t.Fatalf("expected unspecified school, got %q", facts.SchoolType)
	}
}
