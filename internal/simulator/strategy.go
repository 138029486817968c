package simulator

import (
	"sort"
	"time"
)

// PitStopPenalty is the fixed time a pit stop adds to the lap it happens on.
const PitStopPenalty = 25 * time.Second

// PitRequest is a one-shot command to pit at the end of a target lap and fit
// a new set of the given compound. An empty compound refits the compound in
// use at the stop.
type PitRequest struct {
	TargetLap int           `json:"target_lap"`
	Compound  TyreCompound  `json:"compound"`
	QueuedAt  time.Duration `json:"queued_at"`
}

type modeChange struct {
	at   time.Duration
	mode DrivingMode
}

// UserRun is the user car's state derived at a race time cursor. It is
// recomputed from race time zero on every derivation; nothing here is carried
// over between ticks.
type UserRun struct {
	Lap           int
	Progress      float64
	Elapsed       time.Duration
	CompletedLaps int
	Finished      bool

	Tyre TyreState
	Mode DrivingMode

	// LapElapsed[i] is the simulated cumulative time at the end of lap i+1,
	// filled up to CompletedLaps. LapStart[i] is the start time of lap i+1
	// over the whole race, used by lap-addressed seeks.
	LapElapsed []time.Duration
	LapStart   []time.Duration
}

// StrategyController owns the user driver's live strategy: the driving mode
// timeline and the queued pit stops. Decisions are kept as a log stamped with
// the race time at which they were made, never applied destructively, so the
// race can always be re-derived from time zero. Rewinding past a pit stop
// therefore cannot fire it twice: the derived state at any cursor includes
// each request at most once.
type StrategyController struct {
	logger Logger

	startCompound TyreCompound
	totalLaps     int

	modeChanges []modeChange
	pitRequests []PitRequest
}

func NewStrategyController(startCompound TyreCompound, totalLaps int, logger Logger) *StrategyController {
	return &StrategyController{
		logger:        logger,
		startCompound: startCompound,
		totalLaps:     totalLaps,
		modeChanges:   []modeChange{{at: 0, mode: ModeNormal}},
	}
}

// SetMode changes the driving mode from the given race time onwards. A change
// made after rewinding rewrites the mode timeline from that point.
func (s *StrategyController) SetMode(at time.Duration, mode DrivingMode) {
	s.logger.Infof("Driving mode set to %s from race time %s", mode, at)

	keep := s.modeChanges[:1] // the initial NORMAL entry always stays

	for _, change := range s.modeChanges[1:] {
		if change.at < at {
			keep = append(keep, change)
		}
	}

	s.modeChanges = append(keep, modeChange{at: at, mode: mode})
}

// QueuePit schedules a pit stop at the end of the target lap. currentLap is
// the user's lap at the cursor; targets behind it or beyond the race are
// rejected with InvalidTargetError and the queue is unchanged. A second
// request for a lap which already has one replaces it.
func (s *StrategyController) QueuePit(currentLap int, targetLap int, compound TyreCompound, at time.Duration) error {
	if targetLap < currentLap {
		return &InvalidTargetError{Lap: targetLap, Reason: "lap is already behind the race cursor"}
	}

	if targetLap > s.totalLaps {
		return &InvalidTargetError{Lap: targetLap, Reason: "lap is beyond the end of the race"}
	}

	for i, request := range s.pitRequests {
		if request.TargetLap == targetLap {
			s.logger.Infof("Replacing queued pit stop on lap %d with compound %s", targetLap, compound)
			s.pitRequests[i].Compound = compound
			s.pitRequests[i].QueuedAt = at

			return nil
		}
	}

	s.logger.Infof("Pit stop queued for lap %d, compound %s", targetLap, compound)

	s.pitRequests = append(s.pitRequests, PitRequest{TargetLap: targetLap, Compound: compound, QueuedAt: at})

	sort.Slice(s.pitRequests, func(i, j int) bool {
		return s.pitRequests[i].TargetLap < s.pitRequests[j].TargetLap
	})

	return nil
}

// CancelPit removes the queued request for the target lap, if any.
func (s *StrategyController) CancelPit(targetLap int) bool {
	for i, request := range s.pitRequests {
		if request.TargetLap == targetLap {
			s.pitRequests = append(s.pitRequests[:i], s.pitRequests[i+1:]...)
			s.logger.Infof("Cancelled pit stop queued for lap %d", targetLap)

			return true
		}
	}

	return false
}

// PitRequests returns a copy of the queue for snapshots.
func (s *StrategyController) PitRequests() []PitRequest {
	out := make([]PitRequest, len(s.pitRequests))
	copy(out, s.pitRequests)

	return out
}

func (s *StrategyController) modeAt(t time.Duration) DrivingMode {
	mode := s.modeChanges[0].mode

	for _, change := range s.modeChanges {
		if change.at <= t {
			mode = change.mode
		} else {
			break
		}
	}

	return mode
}

func (s *StrategyController) pitAtLap(lap int) (PitRequest, bool) {
	for _, request := range s.pitRequests {
		if request.TargetLap == lap {
			return request, true
		}
	}

	return PitRequest{}, false
}

// Simulate derives the user car's race from time zero to the cursor: lap by
// lap it asks the tyre physics model for the lap time consequence of the
// strategy in force at that lap's start, applies queued pit stops, and stops
// once the cursor falls inside a lap. Pure given the decision log and the
// weather event log, which is what makes seeking exact.
func (s *StrategyController) Simulate(cursor time.Duration, weather *WeatherManager, baseLapTime time.Duration) UserRun {
	run := UserRun{
		Lap:        1,
		Tyre:       TyreState{Compound: s.startCompound},
		Mode:       s.modeAt(0),
		LapElapsed: make([]time.Duration, 0, s.totalLaps),
		LapStart:   make([]time.Duration, 0, s.totalLaps),
	}

	var elapsed time.Duration

	for lap := 1; lap <= s.totalLaps; lap++ {
		mode := s.modeAt(elapsed)
		penalty := weather.PenaltyAt(elapsed)

		delta, worn := EvaluateLap(run.Tyre, mode, penalty)
		lapTime := baseLapTime + delta

		next := worn

		if request, ok := s.pitAtLap(lap); ok {
			lapTime += PitStopPenalty

			compound := request.Compound

			if compound == "" {
				// no compound requested: refit the set already in use
				compound = run.Tyre.Compound
			}

			next = TyreState{Compound: compound}
		}

		run.LapStart = append(run.LapStart, elapsed)

		if elapsed+lapTime > cursor {
			run.Lap = lap
			run.Mode = mode
			run.Progress = float64(cursor-elapsed) / float64(lapTime)
			run.Elapsed = cursor

			return run
		}

		elapsed += lapTime
		run.LapElapsed = append(run.LapElapsed, elapsed)
		run.CompletedLaps = lap
		run.Tyre = next
	}

	run.Lap = s.totalLaps
	run.Progress = 1.0
	run.Elapsed = elapsed
	run.Mode = s.modeAt(elapsed)
	run.Finished = true

	return run
}
