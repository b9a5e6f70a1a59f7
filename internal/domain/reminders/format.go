package reminders

import (
	"fmt"
	"sort"
	"strings"
)

var dayAbbrev = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// FormatDays resume un set de días (0..6, domingo=0) para UI:
// los 7 días => "Every day"; exactamente lun..vie => "Weekdays";
// exactamente {dom, sáb} => "Weekends"; si no, abreviaciones en orden
// canónico empezando en domingo, sin importar el orden de entrada.
func FormatDays(days []int) string {
	set := map[int]bool{}
	for _, d := range days {
		if d < 0 || d > 6 {
			continue
		}
		set[d] = true
	}

	switch {
	case len(set) == 7:
		return "Every day"
	case len(set) == 5 && !set[0] && !set[6]:
		return "Weekdays"
	case len(set) == 2 && set[0] && set[6]:
		return "Weekends"
	}

	uniq := make([]int, 0, len(set))
	for d := range set {
		uniq = append(uniq, d)
	}
	sort.Ints(uniq)

	parts := make([]string, 0, len(uniq))
	for _, d := range uniq {
		parts = append(parts, dayAbbrev[d])
	}
	return strings.Join(parts, ", ")
}

// FormatTime12 formatea (hour, minute) en reloj de 12 horas.
func FormatTime12(hour, minute int) string {
	suffix := "AM"
	h := hour
	switch {
	case h == 0:
		h = 12
	case h == 12:
		suffix = "PM"
	case h > 12:
		h -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}
