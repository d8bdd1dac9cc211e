package feature

import (
	"math"
	"strconv"
	"strings"
)

const (
	neutralScore = 0.5

	// preferredDistanceSpread is the mileage gap at which the distance
	// preference score bottoms out.
	preferredDistanceSpread = 20.0
	preferredDistanceFloor  = 0.1
)

var dayScores = map[string]float64{
	"monday":    0.8,
	"tuesday":   0.9,
	"wednesday": 0.9,
	"thursday":  0.9,
	"friday":    1.0,
	"saturday":  0.6,
	"sunday":    0.5,
}

// TimeScore scores an "HH:MM" time: 1.0 in the commute windows
// 06:00-09:00 and 16:00-19:00 (inclusive), 0.7 for the rest of 09:00-22:00,
// 0.3 overnight, 0.5 when the time is missing or unparseable.
func TimeScore(hhmm string) float64 {
	minutes, ok := parseClock(hhmm)
	if !ok {
		return neutralScore
	}
	switch {
	case minutes >= 360 && minutes <= 540, minutes >= 960 && minutes <= 1140:
		return 1.0
	case minutes > 540 && minutes < 960, minutes > 1140 && minutes < 1320:
		return 0.7
	default:
		return 0.3
	}
}

// DayScore looks up a day name case-insensitively; unknown or missing
// days score 0.5.
func DayScore(day string) float64 {
	if s, ok := dayScores[strings.ToLower(strings.TrimSpace(day))]; ok {
		return s
	}
	return neutralScore
}

// PreferredDistanceScore rewards rides close to the historical average
// distance. With no history it is neutral.
func PreferredDistanceScore(rideMiles float64, hist History) float64 {
	if hist.Count == 0 {
		return neutralScore
	}
	return math.Max(preferredDistanceFloor, 1.0-math.Abs(rideMiles-hist.AvgDistance)/preferredDistanceSpread)
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	hours, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || hours < 0 || hours > 23 {
		return 0, false
	}
	mins, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil || mins < 0 || mins > 59 {
		return 0, false
	}
	return hours*60 + mins, true
}
