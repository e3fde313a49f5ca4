package symbols

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"nfowide/models"
)

var (
	expiryPattern = regexp.MustCompile(`^(\d{2})([A-Z]{3})(\d{2})$`)
	monthPattern  = regexp.MustCompile(`[A-Z]{3}`)

	monthsByAbbrev = func() map[string]time.Month {
		m := make(map[string]time.Month, 12)
		for mo := time.January; mo <= time.December; mo++ {
			m[strings.ToUpper(mo.String()[:3])] = mo
		}
		return m
	}()
)

// Classify ranks an expiry token such as 25NOV25 into a roll bucket
// relative to reference. The month after the reference month is FUT_I,
// the next FUT_II and the one after FUT_III. When the token carries a
// year the distance is year-aware, otherwise it wraps around December.
//
// Tokens without a recognisable month, a zero reference, expiries in the
// reference month and already expired contracts all fall back to FUT_I;
// anything further than three months out is clamped to FUT_III.
func Classify(expiry string, reference time.Time) models.Bucket {
	if reference.IsZero() {
		return models.BucketNear
	}
	month, year, ok := expiryMonth(expiry)
	if !ok {
		return models.BucketNear
	}

	var distance int
	if year > 0 {
		distance = (year-reference.Year())*12 + int(month) - int(reference.Month())
	} else {
		distance = (int(month) - int(reference.Month()) + 12) % 12
	}
	return bucketForDistance(distance)
}

func bucketForDistance(distance int) models.Bucket {
	switch {
	case distance <= 1:
		return models.BucketNear
	case distance == 2:
		return models.BucketMid
	default:
		return models.BucketFar
	}
}

// expiryMonth extracts the month and, for full ddMMMyy tokens, the
// four-digit year. year is 0 when only a month could be found.
func expiryMonth(expiry string) (time.Month, int, bool) {
	token := strings.ToUpper(strings.TrimSpace(expiry))
	if m := expiryPattern.FindStringSubmatch(token); m != nil {
		month, ok := monthsByAbbrev[m[2]]
		if !ok {
			return 0, 0, false
		}
		yy, err := strconv.Atoi(m[3])
		if err != nil {
			return month, 0, true
		}
		return month, 2000 + yy, true
	}

	for _, candidate := range monthPattern.FindAllString(token, -1) {
		if month, ok := monthsByAbbrev[candidate]; ok {
			return month, 0, true
		}
	}
	return 0, 0, false
}
