package processor

import (
	"sort"
	"strings"
	"time"

	"nfowide/models"
)

const timestampLayout = models.DateLayout + " " + models.TimeLayout

// Axis is the sorted, duplicate-free set of timestamps of one symbol.
type Axis struct {
	Times []time.Time
	// Dropped counts rows whose date and time did not parse.
	Dropped int

	pos map[time.Time]int
}

// ParseTimestamp combines a dd/mm/yyyy date and an HH:MM:SS time into a
// UTC wall-clock timestamp.
func ParseTimestamp(date, clock string) (time.Time, bool) {
	ts, err := time.ParseInLocation(timestampLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// BuildAxis collects the timestamps of every row in groups. Rows with an
// unparseable date or time are skipped.
func BuildAxis(rows []models.RawRow, groups []ContractRows) Axis {
	seen := make(map[time.Time]struct{})
	var ax Axis
	for _, g := range groups {
		for _, r := range g.Rows {
			ts, ok := ParseTimestamp(rows[r].Date, rows[r].Time)
			if !ok {
				ax.Dropped++
				continue
			}
			if _, dup := seen[ts]; dup {
				continue
			}
			seen[ts] = struct{}{}
			ax.Times = append(ax.Times, ts)
		}
	}
	sort.Slice(ax.Times, func(i, j int) bool { return ax.Times[i].Before(ax.Times[j]) })

	ax.pos = make(map[time.Time]int, len(ax.Times))
	for i, ts := range ax.Times {
		ax.pos[ts] = i
	}
	return ax
}

// Position returns the row of ts on the axis.
func (a Axis) Position(ts time.Time) (int, bool) {
	i, ok := a.pos[ts]
	return i, ok
}

// Len is the number of timestamps.
func (a Axis) Len() int { return len(a.Times) }
