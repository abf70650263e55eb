package customerflow

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Business-hours evaluation is deliberately permissive: if the stored hours
// string cannot be parsed, the flow stays open rather than locking customers
// out over a formatting problem.

var dayIndex = map[string]int{
	"dom": 0, "domingo": 0,
	"lun": 1, "lunes": 1,
	"mar": 2, "martes": 2,
	"mie": 3, "miercoles": 3,
	"jue": 4, "jueves": 4,
	"vie": 5, "viernes": 5,
	"sab": 6, "sabado": 6,
}

var (
	reTimeRange = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(?:-|a|hasta)\s*(\d{1,2})(?::(\d{2}))?`)
	reDayRange  = regexp.MustCompile(`([a-z]+)\s+a\s+([a-z]+)`)
)

type hoursSegment struct {
	days      [7]bool
	startMins int
	endMins   int
}

// withinHours reports whether now falls inside the declared hours. Unparsable
// input returns true.
func withinHours(hours string, now time.Time) bool {
	segments := parseHours(hours)
	if len(segments) == 0 {
		return true
	}

	day := int(now.Weekday())
	mins := now.Hour()*60 + now.Minute()
	for _, seg := range segments {
		if !seg.days[day] {
			continue
		}
		if seg.endMins <= seg.startMins {
			// Wraps past midnight.
			if mins >= seg.startMins || mins < seg.endMins {
				return true
			}
			continue
		}
		if mins >= seg.startMins && mins < seg.endMins {
			return true
		}
	}
	return false
}

func parseHours(hours string) []hoursSegment {
	text := normalizeHoursText(hours)
	if text == "" {
		return nil
	}

	var segments []hoursSegment
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '/'
	}) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		tm := reTimeRange.FindStringSubmatch(part)
		if tm == nil {
			continue
		}
		seg := hoursSegment{
			startMins: toMinutes(tm[1], tm[2]),
			endMins:   toMinutes(tm[3], tm[4]),
		}
		if seg.startMins < 0 || seg.endMins < 0 {
			continue
		}
		seg.days = parseDays(strings.TrimSpace(part[:strings.Index(part, tm[0])]))
		segments = append(segments, seg)
	}
	return segments
}

func parseDays(text string) [7]bool {
	var days [7]bool
	if text == "" || strings.Contains(text, "todos") {
		for i := range days {
			days[i] = true
		}
		return days
	}

	if m := reDayRange.FindStringSubmatch(text); m != nil {
		from, okFrom := dayIndex[m[1]]
		to, okTo := dayIndex[m[2]]
		if okFrom && okTo {
			for d := from; ; d = (d + 1) % 7 {
				days[d] = true
				if d == to {
					break
				}
			}
			return days
		}
	}

	matched := false
	for token, d := range dayIndex {
		for _, word := range strings.Fields(text) {
			if strings.Trim(word, ".,y") == token {
				days[d] = true
				matched = true
			}
		}
	}
	if !matched {
		for i := range days {
			days[i] = true
		}
	}
	return days
}

func toMinutes(h, m string) int {
	hour, err := strconv.Atoi(h)
	if err != nil || hour > 24 {
		return -1
	}
	mins := 0
	if m != "" {
		mins, err = strconv.Atoi(m)
		if err != nil || mins > 59 {
			return -1
		}
	}
	if hour == 24 {
		hour = 0
	}
	return hour*60 + mins
}

func normalizeHoursText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u").Replace(s)
}
