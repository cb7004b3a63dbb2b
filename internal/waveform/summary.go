package waveform

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/lift-controller/internal/logic"
)

// Summary describes how long the lift stayed on each floor.
type Summary struct {
	Changes int `json:"changes"`
	Resets  int `json:"resets"`
	// Dwell statistics are in seconds over every stay, including the first
	// and the last.
	DwellMean   float64 `json:"dwell_mean"`
	DwellStdDev float64 `json:"dwell_stddev"`
	DwellMedian float64 `json:"dwell_median"`
	DwellMax    float64 `json:"dwell_max"`
	// Occupancy is the share of the trace spent on each floor.
	Occupancy map[logic.FloorCode]float64 `json:"occupancy"`
}

// Summarize computes dwell statistics for t.
func Summarize(t Trace) Summary {
	steps := t.Steps()
	s := Summary{
		Changes:   (len(steps) - 2) / 2,
		Resets:    len(t.Resets()),
		Occupancy: make(map[logic.FloorCode]float64),
	}

	// steps alternate: a stay begins at even indices and ends at the next
	var dwells []float64
	total := steps[len(steps)-1].Seconds
	for i := 0; i+1 < len(steps); i += 2 {
		d := steps[i+1].Seconds - steps[i].Seconds
		dwells = append(dwells, d)
		if total > 0 {
			s.Occupancy[steps[i].Floor] += d / total
		}
	}
	if len(dwells) == 0 {
		return s
	}
	s.DwellMean, s.DwellStdDev = stat.MeanStdDev(dwells, nil)
	if len(dwells) == 1 {
		s.DwellStdDev = 0
	}
	sort.Float64s(dwells)
	s.DwellMedian = stat.Quantile(0.5, stat.Empirical, dwells, nil)
	s.DwellMax = dwells[len(dwells)-1]
	return s
}

func (s Summary) String() string {
	floors := make([]logic.FloorCode, 0, len(s.Occupancy))
	for f := range s.Occupancy {
		floors = append(floors, f)
	}
	sort.Slice(floors, func(i, j int) bool { return floors[i] < floors[j] })
	var occ []string
	for _, f := range floors {
		occ = append(occ, fmt.Sprintf("%d:%.0f%%", f, 100*s.Occupancy[f]))
	}
	return fmt.Sprintf("changes=%d resets=%d dwell mean=%.3fs sd=%.3fs median=%.3fs max=%.3fs occupancy=[%s]",
		s.Changes, s.Resets, s.DwellMean, s.DwellStdDev, s.DwellMedian, s.DwellMax, strings.Join(occ, " "))
}
