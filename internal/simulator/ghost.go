package simulator

import (
	"sort"
	"time"

	"github.com/pdf1802/F1-Simulator/pkg/history"
)

// Point is a 2D scene coordinate produced for the render sink.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GhostPoint is a ghost car's derived state at a race time cursor.
type GhostPoint struct {
	Lap      int
	Progress float64
	Elapsed  time.Duration
	Position Point
	Finished bool
}

// GhostTrack replays one driver's recorded race. It is immutable after
// construction and safe for concurrent reads; replay never writes to the
// underlying lap records.
type GhostTrack struct {
	driverID   string
	laps       []history.LapRecord
	cumulative []time.Duration // elapsed race time at the end of each lap
}

// NewGhostTrack validates the recorded laps and precomputes the cumulative
// elapsed time table. Malformed data fails with InconsistentReplayError so
// the timeline can exclude the driver instead of aborting the session.
func NewGhostTrack(driverID string, laps []history.LapRecord) (*GhostTrack, error) {
	if len(laps) == 0 {
		return nil, &InconsistentReplayError{DriverID: driverID, Reason: "no recorded laps"}
	}

	cumulative := make([]time.Duration, len(laps))

	var elapsed time.Duration

	for i, lap := range laps {
		if lap.LapNumber != i+1 {
			return nil, &InconsistentReplayError{DriverID: driverID, Reason: "lap numbers are not sequential"}
		}

		if lap.LapTime <= 0 {
			return nil, &InconsistentReplayError{DriverID: driverID, Reason: "non-positive lap time"}
		}

		var lastOffset time.Duration = -1

		for _, sample := range lap.Samples {
			if sample.Offset < 0 || sample.Offset <= lastOffset {
				return nil, &InconsistentReplayError{DriverID: driverID, Reason: "non-monotonic position samples"}
			}

			lastOffset = sample.Offset
		}

		elapsed += lap.LapTime
		cumulative[i] = elapsed
	}

	return &GhostTrack{
		driverID:   driverID,
		laps:       laps,
		cumulative: cumulative,
	}, nil
}

func (g *GhostTrack) DriverID() string {
	return g.driverID
}

// TotalTime is the ghost's full recorded race duration, pit stops included.
func (g *GhostTrack) TotalTime() time.Duration {
	return g.cumulative[len(g.cumulative)-1]
}

// ElapsedAtLap returns the cumulative recorded time at the end of the given
// lap, or false if the driver never completed it.
func (g *GhostTrack) ElapsedAtLap(lap int) (time.Duration, bool) {
	if lap < 1 || lap > len(g.cumulative) {
		return 0, false
	}

	return g.cumulative[lap-1], true
}

// AtTime derives the ghost's lap, cumulative elapsed time and interpolated 2D
// position at the given race time. It is a pure function of the recorded data
// and the cursor.
func (g *GhostTrack) AtTime(cursor time.Duration) GhostPoint {
	if cursor < 0 {
		cursor = 0
	}

	if cursor >= g.TotalTime() {
		last := len(g.laps) - 1

		return GhostPoint{
			Lap:      g.laps[last].LapNumber,
			Progress: 1.0,
			Elapsed:  g.TotalTime(),
			Position: g.positionInLap(last, g.laps[last].LapTime),
			Finished: true,
		}
	}

	// first lap whose end lies beyond the cursor
	idx := sort.Search(len(g.cumulative), func(i int) bool {
		return g.cumulative[i] > cursor
	})

	lapStart := g.cumulative[idx] - g.laps[idx].LapTime
	intoLap := cursor - lapStart

	return GhostPoint{
		Lap:      g.laps[idx].LapNumber,
		Progress: float64(intoLap) / float64(g.laps[idx].LapTime),
		Elapsed:  cursor,
		Position: g.positionInLap(idx, intoLap),
	}
}

// PositionAtLapProgress maps a lap number and fractional progress to a track
// coordinate. The timeline uses this to place the user car on its own
// recorded racing line even when the simulated lap times diverge from
// history.
func (g *GhostTrack) PositionAtLapProgress(lap int, progress float64) Point {
	if lap < 1 {
		lap = 1
	}

	if lap > len(g.laps) {
		lap = len(g.laps)
	}

	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}

	idx := lap - 1

	return g.positionInLap(idx, time.Duration(progress*float64(g.laps[idx].LapTime)))
}

// positionInLap linearly interpolates the recorded samples of a lap by time
// offset, clamping to the boundary samples rather than extrapolating.
func (g *GhostTrack) positionInLap(idx int, intoLap time.Duration) Point {
	samples := g.laps[idx].Samples

	if len(samples) == 0 {
		return Point{}
	}

	if intoLap <= samples[0].Offset {
		return Point{X: samples[0].X, Y: samples[0].Y}
	}

	last := samples[len(samples)-1]

	if intoLap >= last.Offset {
		return Point{X: last.X, Y: last.Y}
	}

	next := sort.Search(len(samples), func(i int) bool {
		return samples[i].Offset >= intoLap
	})

	a, b := samples[next-1], samples[next]
	frac := float64(intoLap-a.Offset) / float64(b.Offset-a.Offset)

	return Point{
		X: a.X + (b.X-a.X)*frac,
		Y: a.Y + (b.Y-a.Y)*frac,
	}
}
