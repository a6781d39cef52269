package schedule

import "testing"

func TestClockRoundTrip(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			c := Clock{Hour: h, Min: m}
			parsed, err := ParseClockStrict(c.String())
			if err != nil {
				t.Fatalf("ParseClockStrict(%q): %v", c.String(), err)
			}
			if parsed != c {
				t.Fatalf("round trip %q: got %+v, want %+v", c.String(), parsed, c)
			}
		}
	}
}

func TestClockMinutesRoundTrip(t *testing.T) {
	for total := 0; total < DayMinutes; total++ {
		c := ClockFromMinutes(total)
		if c.Minutes() != total {
			t.Fatalf("ClockFromMinutes(%d).Minutes() = %d", total, c.Minutes())
		}
	}
}

func TestParseClockPermissive(t *testing.T) {
	tests := []struct {
		in   string
		want Clock
	}{
		{"07:30", Clock{7, 30}},
		{"00:00", Clock{0, 0}},
		{"23:59", Clock{23, 59}},
		{"24:00", Clock{0, 0}},
		{"12:60", Clock{0, 0}},
		{"7:30", Clock{0, 0}},
		{"", Clock{0, 0}},
		{"garbage", Clock{0, 0}},
		{"ab:cd", Clock{0, 0}},
	}
	for _, tt := range tests {
		if got := ParseClock(tt.in); got != tt.want {
			t.Errorf("ParseClock(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestSnap(t *testing.T) {
	tests := []struct {
		total, step, want int
	}{
		{0, 30, 0},
		{14, 30, 0},
		{15, 30, 30},
		{16, 30, 30},
		{44, 30, 30},
		{45, 30, 60},
		{7, 15, 0},
		{8, 15, 15},
		{1439, 30, 1440},
	}
	for _, tt := range tests {
		got := Snap(tt.total, tt.step)
		if got != tt.want {
			t.Errorf("Snap(%d, %d) = %d, want %d", tt.total, tt.step, got, tt.want)
		}
		if got%tt.step != 0 {
			t.Errorf("Snap(%d, %d) = %d, not a multiple of step", tt.total, tt.step, got)
		}
	}
}

func TestSnapClampStaysInDay(t *testing.T) {
	for _, step := range []int{15, 30} {
		for total := -10; total < DayMinutes+10; total++ {
			got := SnapClamp(total, step)
			if got < 0 || got > DayMinutes-step {
				t.Fatalf("SnapClamp(%d, %d) = %d, outside [0, %d]", total, step, got, DayMinutes-step)
			}
			if got%step != 0 {
				t.Fatalf("SnapClamp(%d, %d) = %d, not a multiple of step", total, step, got)
			}
		}
	}
}
