package simulator

import (
	"time"

	"github.com/pdf1802/F1-Simulator/pkg/history"
)

// DriverState is one driver's line in a RaceState snapshot.
type DriverState struct {
	DriverID string      `json:"driver_id"`
	Name     string      `json:"name"`
	Team     string      `json:"team"`
	Colour   history.RGB `json:"colour"`
	Role     string      `json:"role"`

	Lap      int           `json:"lap"`
	Progress float64       `json:"progress"`
	Elapsed  time.Duration `json:"elapsed"`
	Rank     int           `json:"rank"`
	Position Point         `json:"position"`
	Finished bool          `json:"finished"`

	// user driver only
	Tyre           *TyreState     `json:"tyre,omitempty"`
	Mode           string         `json:"mode,omitempty"`
	DeltaVsReal    *time.Duration `json:"delta_vs_real,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
}

// RaceState is the snapshot pushed to the render sink every tick. Standings
// are in classification order. It is recomputed on every derivation and never
// persisted.
type RaceState struct {
	Cursor    time.Duration `json:"cursor"`
	Total     time.Duration `json:"total"`
	Condition string        `json:"condition"`
	Standings []DriverState `json:"standings"`
	PitQueue  []PitRequest  `json:"pit_queue,omitempty"`
}

// Copy returns a deep copy so snapshots handed across the render boundary
// never alias engine-owned state.
func (rs RaceState) Copy() RaceState {
	out := rs

	out.Standings = make([]DriverState, len(rs.Standings))

	for i, ds := range rs.Standings {
		if ds.Tyre != nil {
			tyre := *ds.Tyre
			ds.Tyre = &tyre
		}

		if ds.DeltaVsReal != nil {
			delta := *ds.DeltaVsReal
			ds.DeltaVsReal = &delta
		}

		out.Standings[i] = ds
	}

	out.PitQueue = make([]PitRequest, len(rs.PitQueue))
	copy(out.PitQueue, rs.PitQueue)

	return out
}
