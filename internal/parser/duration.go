package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDuration is used when a duration is missing or cannot be read.
const DefaultDuration = 180 * time.Second

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// ParseDuration reads "m:ss", "h:mm:ss", or ISO-8601 ("PT4M13S") durations.
//
// Anything else yields [DefaultDuration].
func ParseDuration(text string) time.Duration {
	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultDuration
	}
	if strings.HasPrefix(text, "P") {
		return parseISO(text)
	}

	parts := strings.Split(text, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return DefaultDuration
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return DefaultDuration
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}

func parseISO(text string) time.Duration {
	m := isoDuration.FindStringSubmatch(text)
	if m == nil || text == "P" || text == "PT" {
		return DefaultDuration
	}

	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return DefaultDuration
		}
		d += time.Duration(n) * unit
	}
	return d
}

// DurationMS converts a duration text to whole milliseconds.
func DurationMS(text string) int {
	return int(ParseDuration(text).Milliseconds())
}
