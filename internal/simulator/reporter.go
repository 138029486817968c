package simulator

import "time"

// DeltaVsReal compares the user's simulated race against their real one: the
// signed difference in cumulative time at the latest lap both have completed.
// Negative means the simulated strategy is ahead of history. Returns false
// until at least one lap is comparable.
func DeltaVsReal(run UserRun, real *GhostTrack) (time.Duration, bool) {
	lap := run.CompletedLaps

	if realLaps := len(real.cumulative); lap > realLaps {
		lap = realLaps
	}

	if lap == 0 {
		return 0, false
	}

	realElapsed, _ := real.ElapsedAtLap(lap)

	return run.LapElapsed[lap-1] - realElapsed, true
}
