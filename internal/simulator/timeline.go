package simulator

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/pdf1802/F1-Simulator/pkg/history"
)

type TimelineStatus uint8

const (
	StatusPaused TimelineStatus = iota
	StatusRunning
	StatusSeeking
)

func (s TimelineStatus) String() string {
	switch s {
	case StatusPaused:
		return "PAUSED"
	case StatusRunning:
		return "RUNNING"
	case StatusSeeking:
		return "SEEKING"
	default:
		return "Unknown Status"
	}
}

type ghostEntry struct {
	driver *history.Driver
	track  *GhostTrack
}

// Timeline is the central race state machine. It owns the race time cursor,
// replays every ghost from recorded data, derives the user car through the
// strategy controller and tyre physics, and maintains the classification.
//
// Every operation re-derives RaceState purely from the immutable session data
// plus the strategy and weather logs; nothing is carried incrementally
// between ticks. That is what makes rewinding and seeking exact: simulating
// to a cursor twice, by any path, produces identical state.
//
// The Timeline is single-threaded by design; callers serialise access.
type Timeline struct {
	session *history.Session
	logger  Logger

	user      *history.Driver
	userTrack *GhostTrack // the user's real race: used for coordinates and the comparison report, never for physics
	ghosts    []ghostEntry
	excluded  []string

	strategy *StrategyController
	weather  *WeatherManager

	status TimelineStatus
	cursor time.Duration

	// historicalTotal is fixed at load; total additionally covers the user's
	// simulated race when the altered strategy runs longer than history did.
	historicalTotal time.Duration
	total           time.Duration

	lastRun UserRun
	current RaceState
}

func NewTimeline(session *history.Session, logger Logger) (*Timeline, error) {
	user, err := session.UserDriver()

	if err != nil {
		return nil, err
	}

	userTrack, err := NewGhostTrack(user.ID, user.Laps)

	if err != nil {
		// without the user's own history there is no baseline to compare
		// against, so this one is fatal
		return nil, errors.Wrapf(history.ErrDataUnavailable, "user driver %s: %s", user.ID, err)
	}

	tl := &Timeline{
		session:         session,
		logger:          logger,
		user:            user,
		userTrack:       userTrack,
		status:          StatusPaused,
		historicalTotal: userTrack.TotalTime(),
	}

	for _, driver := range session.Drivers {
		if driver.Role != history.RoleGhost {
			continue
		}

		track, err := NewGhostTrack(driver.ID, driver.Laps)

		if err != nil {
			tl.logger.WithError(err).Warnf("Excluding driver %s from classification", driver.ID)
			tl.excluded = append(tl.excluded, driver.ID)
			continue
		}

		tl.ghosts = append(tl.ghosts, ghostEntry{driver: driver, track: track})

		if track.TotalTime() > tl.historicalTotal {
			tl.historicalTotal = track.TotalTime()
		}
	}

	tl.total = tl.historicalTotal

	startCompound := ParseTyreCompound(user.Laps[0].Compound)

	tl.strategy = NewStrategyController(startCompound, session.TotalLaps, logger)
	tl.weather = NewWeatherManager(logger)
	tl.weather.OnChange(tl.derive)

	tl.derive()

	return tl, nil
}

// Advance moves the cursor forward by dt. It has no effect unless the
// timeline is running.
func (tl *Timeline) Advance(dt time.Duration) {
	if tl.status != StatusRunning || dt <= 0 {
		return
	}

	tl.cursor = tl.clamp(tl.cursor + dt)
	tl.derive()
}

// Rewind moves the cursor backward by dt from any state.
func (tl *Timeline) Rewind(dt time.Duration) {
	tl.seekTo(tl.cursor - dt)
}

// SeekTime moves the cursor to an absolute race time. Out-of-range targets
// clamp to [0, total duration]; seeking never fails.
func (tl *Timeline) SeekTime(target time.Duration) {
	tl.seekTo(target)
}

// Seek positions the cursor at the start of the user's given lap, clamping
// lap numbers outside the race.
func (tl *Timeline) Seek(targetLap int) {
	if targetLap < 1 {
		targetLap = 1
	}

	if targetLap > tl.session.TotalLaps {
		targetLap = tl.session.TotalLaps
	}

	full := tl.strategy.Simulate(maxSimulationCursor, tl.weather, tl.session.BaseLapTime)

	if targetLap <= len(full.LapStart) {
		tl.seekTo(full.LapStart[targetLap-1])
	} else {
		tl.seekTo(tl.total)
	}
}

func (tl *Timeline) seekTo(target time.Duration) {
	previous := tl.status
	tl.status = StatusSeeking

	tl.cursor = tl.clamp(target)
	tl.derive()

	tl.status = previous
}

func (tl *Timeline) Pause() {
	tl.status = StatusPaused
}

func (tl *Timeline) Resume() {
	tl.status = StatusRunning
}

// SetMode changes the user's driving mode from the current cursor onwards.
func (tl *Timeline) SetMode(mode DrivingMode) {
	tl.strategy.SetMode(tl.cursor, mode)
	tl.derive()
}

// QueuePit schedules a user pit stop at the end of the target lap.
func (tl *Timeline) QueuePit(targetLap int, compound TyreCompound) error {
	if err := tl.strategy.QueuePit(tl.lastRun.Lap, targetLap, compound, tl.cursor); err != nil {
		return err
	}

	tl.derive()

	return nil
}

// CancelPit removes a queued pit stop.
func (tl *Timeline) CancelPit(targetLap int) bool {
	if !tl.strategy.CancelPit(targetLap) {
		return false
	}

	tl.derive()

	return true
}

// ActivateRain makes the sandbox track one stage wetter from the current cursor.
func (tl *Timeline) ActivateRain() {
	tl.weather.ActivateRain(tl.cursor)
}

// ActivateDrying makes the sandbox track one stage drier from the current cursor.
func (tl *Timeline) ActivateDrying() {
	tl.weather.ActivateDrying(tl.cursor)
}

func (tl *Timeline) Status() TimelineStatus {
	return tl.status
}

func (tl *Timeline) Cursor() time.Duration {
	return tl.cursor
}

// TotalDuration is the replay length: the slowest recorded car's total time,
// extended if the user's simulated race runs longer. The cursor always stays
// within [0, TotalDuration].
func (tl *Timeline) TotalDuration() time.Duration {
	return tl.total
}

func (tl *Timeline) Session() *history.Session {
	return tl.session
}

// ExcludedDrivers lists drivers dropped from classification because their
// recorded data failed validation.
func (tl *Timeline) ExcludedDrivers() []string {
	out := make([]string, len(tl.excluded))
	copy(out, tl.excluded)

	return out
}

// State returns a copy of the current race state; the render sink never
// receives engine-owned memory.
func (tl *Timeline) State() RaceState {
	return tl.current.Copy()
}

// CurrentTyreState is a read-only snapshot of the user car's tyre.
func (tl *Timeline) CurrentTyreState() TyreState {
	return tl.lastRun.Tyre
}

func (tl *Timeline) clamp(t time.Duration) time.Duration {
	if t < 0 {
		return 0
	}

	if t > tl.total {
		return tl.total
	}

	return t
}

// maxSimulationCursor is an effectively infinite cursor used to simulate the
// user's whole race when deriving its total duration and lap start table.
const maxSimulationCursor = time.Duration(1<<62 - 1)

// derive recomputes RaceState at the current cursor from first principles.
func (tl *Timeline) derive() {
	// the altered strategy may run longer than any recorded car did; the
	// cursor range has to cover it so the race can always be played out
	full := tl.strategy.Simulate(maxSimulationCursor, tl.weather, tl.session.BaseLapTime)

	tl.total = tl.historicalTotal

	if full.Elapsed > tl.total {
		tl.total = full.Elapsed
	}

	if tl.cursor > tl.total {
		tl.cursor = tl.total
	}

	run := tl.strategy.Simulate(tl.cursor, tl.weather, tl.session.BaseLapTime)
	tl.lastRun = run

	condition := tl.weather.ConditionAt(tl.cursor)

	standings := make([]DriverState, 0, len(tl.ghosts)+1)

	for _, entry := range tl.ghosts {
		gp := entry.track.AtTime(tl.cursor)

		standings = append(standings, DriverState{
			DriverID: entry.driver.ID,
			Name:     entry.driver.Name,
			Team:     entry.driver.Team,
			Colour:   entry.driver.Colour,
			Role:     history.RoleGhost.String(),
			Lap:      gp.Lap,
			Progress: gp.Progress,
			Elapsed:  gp.Elapsed,
			Position: gp.Position,
			Finished: gp.Finished,
		})
	}

	tyre := run.Tyre

	userState := DriverState{
		DriverID:       tl.user.ID,
		Name:           tl.user.Name,
		Team:           tl.user.Team,
		Colour:         tl.user.Colour,
		Role:           history.RoleUser.String(),
		Lap:            run.Lap,
		Progress:       run.Progress,
		Elapsed:        run.Elapsed,
		Position:       tl.userTrack.PositionAtLapProgress(run.Lap, run.Progress),
		Finished:       run.Finished,
		Tyre:           &tyre,
		Mode:           run.Mode.String(),
		Recommendation: Recommend(run.Tyre, condition),
	}

	if delta, ok := DeltaVsReal(run, tl.userTrack); ok {
		userState.DeltaVsReal = &delta
	}

	standings = append(standings, userState)

	sort.SliceStable(standings, func(i, j int) bool {
		carI, carJ := standings[i], standings[j]

		progressI := float64(carI.Lap-1) + carI.Progress
		progressJ := float64(carJ.Lap-1) + carJ.Progress

		if progressI != progressJ {
			return progressI > progressJ
		}

		if carI.Elapsed != carJ.Elapsed {
			return carI.Elapsed < carJ.Elapsed
		}

		return carI.DriverID < carJ.DriverID
	})

	for i := range standings {
		standings[i].Rank = i + 1
	}

	tl.current = RaceState{
		Cursor:    tl.cursor,
		Total:     tl.total,
		Condition: condition.String(),
		Standings: standings,
		PitQueue:  tl.strategy.PitRequests(),
	}
}
