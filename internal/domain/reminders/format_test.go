package reminders

import "testing"

func TestFormatDays(t *testing.T) {
	cases := []struct {
		name string
		days []int
		want string
	}{
		{"every day", []int{0, 1, 2, 3, 4, 5, 6}, "Every day"},
		{"weekdays", []int{1, 2, 3, 4, 5}, "Weekdays"},
		{"weekends", []int{0, 6}, "Weekends"},
		{"single day", []int{3}, "Wed"},
		{"subset in order", []int{1, 3, 5}, "Mon, Wed, Fri"},
		{"unsorted input", []int{5, 1, 3}, "Mon, Wed, Fri"},
		{"duplicates collapse", []int{1, 1, 3}, "Mon, Wed"},
		{"sunday first", []int{6, 0}, "Weekends"},
		{"sunday plus weekday", []int{0, 2}, "Sun, Tue"},
		{"empty", nil, ""},
		{"out of range ignored", []int{7, -1, 2}, "Tue"},
		// Cinco días que no son lun..vie no es "Weekdays".
		{"five days with sunday", []int{0, 1, 2, 3, 4}, "Sun, Mon, Tue, Wed, Thu"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatDays(tc.days); got != tc.want {
				t.Fatalf("FormatDays(%v) = %q, want %q", tc.days, got, tc.want)
			}
		})
	}
}

func TestFormatTime12(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         string
	}{
		{0, 0, "12:00 AM"},
		{0, 5, "12:05 AM"},
		{1, 30, "1:30 AM"},
		{11, 59, "11:59 AM"},
		{12, 0, "12:00 PM"},
		{12, 30, "12:30 PM"},
		{13, 0, "1:00 PM"},
		{18, 45, "6:45 PM"},
		{23, 59, "11:59 PM"},
	}
	for _, tc := range cases {
		if got := FormatTime12(tc.hour, tc.minute); got != tc.want {
			t.Fatalf("FormatTime12(%d, %d) = %q, want %q", tc.hour, tc.minute, got, tc.want)
		}
	}
}
