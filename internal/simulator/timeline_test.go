package simulator

import (
	"errors"
	"io/ioutil"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdf1802/F1-Simulator/pkg/history"
)

func testLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	return logger
}

func testDriver(id, name, team string, role history.Role, lapTimes ...time.Duration) *history.Driver {
	return &history.Driver{
		ID:   id,
		Name: name,
		Team: team,
		Role: role,
		Laps: recordedLaps(lapTimes...),
	}
}

// testSession is a 5 lap race. The user matches the base lap time exactly in
// real life, one ghost is quicker and one is slower, so the finishing order
// and the race duration are easy to reason about.
func testSession() *history.Session {
	return &history.Session{
		RaceID:      "monza-2024",
		Name:        "Italian Grand Prix",
		TrackName:   "Monza",
		TotalLaps:   5,
		BaseLapTime: 90 * time.Second,
		Drivers: []*history.Driver{
			testDriver("HAM", "Lewis Hamilton", "Mercedes", history.RoleUser,
				90*time.Second, 90*time.Second, 90*time.Second, 90*time.Second, 90*time.Second),
			testDriver("VER", "Max Verstappen", "Red Bull", history.RoleGhost,
				88*time.Second, 88*time.Second, 88*time.Second, 88*time.Second, 88*time.Second),
			testDriver("LEC", "Charles Leclerc", "Ferrari", history.RoleGhost,
				92*time.Second, 92*time.Second, 92*time.Second, 92*time.Second, 92*time.Second),
		},
	}
}

func newTestTimeline(t *testing.T) *Timeline {
	t.Helper()

	tl, err := NewTimeline(testSession(), testLogger())

	if err != nil {
		t.Fatal(err)
	}

	return tl
}

func findDriver(t *testing.T, state RaceState, driverID string) DriverState {
	t.Helper()

	for _, ds := range state.Standings {
		if ds.DriverID == driverID {
			return ds
		}
	}

	t.Fatalf("driver %s is not in the standings", driverID)

	return DriverState{}
}

func ghostLines(state RaceState) []DriverState {
	var out []DriverState

	for _, ds := range state.Standings {
		if ds.Role != history.RoleGhost.String() {
			continue
		}

		// rank depends on the user car, the ghost's own trajectory does not
		ds.Rank = 0
		out = append(out, ds)
	}

	return out
}

func TestNewTimeline(t *testing.T) {
	tl := newTestTimeline(t)

	if tl.Status() != StatusPaused {
		t.Errorf("expected a new timeline to start paused, got %s", tl.Status())
	}

	// the slowest recorded car defines the historical race duration
	if total := tl.TotalDuration(); total != 460*time.Second {
		t.Errorf("total duration = %s, expected 460s", total)
	}

	state := tl.State()

	if state.Cursor != 0 || state.Condition != "DRY" {
		t.Errorf("unexpected initial state: cursor %s, condition %s", state.Cursor, state.Condition)
	}

	if len(state.Standings) != 3 {
		t.Fatalf("expected 3 cars in the standings, got %d", len(state.Standings))
	}

	user := findDriver(t, state, "HAM")

	if user.Role != "USER" || user.Tyre == nil || user.Tyre.Compound != CompoundSoft {
		t.Errorf("unexpected user line: %+v", user)
	}
}

func TestTimelineAdvanceRequiresRunning(t *testing.T) {
	tl := newTestTimeline(t)

	tl.Advance(10 * time.Second)

	if tl.Cursor() != 0 {
		t.Errorf("expected a paused timeline to ignore ticks, cursor moved to %s", tl.Cursor())
	}

	tl.Resume()
	tl.Advance(10 * time.Second)

	if tl.Cursor() != 10*time.Second {
		t.Errorf("cursor = %s, expected 10s", tl.Cursor())
	}

	tl.Pause()
	tl.Advance(10 * time.Second)

	if tl.Cursor() != 10*time.Second {
		t.Errorf("expected pausing to stop the cursor, got %s", tl.Cursor())
	}

	tl.Resume()
	tl.Advance(time.Hour)

	if tl.Cursor() != tl.TotalDuration() {
		t.Errorf("expected the cursor to clamp at the race end, got %s", tl.Cursor())
	}
}

func TestTimelineStateIsPathIndependent(t *testing.T) {
	apply := func(tl *Timeline) {
		tl.SeekTime(100 * time.Second)
		tl.SetMode(ModePush)
		tl.SeekTime(200 * time.Second)

		if err := tl.QueuePit(4, CompoundMedium); err != nil {
			t.Fatal(err)
		}

		tl.ActivateRain()
	}

	walked := newTestTimeline(t)
	apply(walked)

	// scrub around before settling; none of this touches the decision logs
	walked.Rewind(50 * time.Second)
	walked.SeekTime(350 * time.Second)
	walked.Seek(2)
	walked.Resume()
	walked.Advance(17 * time.Second)
	walked.Pause()
	walked.SeekTime(300 * time.Second)

	direct := newTestTimeline(t)
	apply(direct)
	direct.SeekTime(300 * time.Second)

	if !reflect.DeepEqual(walked.State(), direct.State()) {
		t.Errorf("state diverged between the scrubbed and direct paths:\n%+v\n%+v", walked.State(), direct.State())
	}
}

func TestTimelineRewindMatchesDirectSeek(t *testing.T) {
	tl := newTestTimeline(t)

	tl.SeekTime(250 * time.Second)
	expected := tl.State()

	tl.SeekTime(400 * time.Second)
	tl.Rewind(150 * time.Second)

	if !reflect.DeepEqual(tl.State(), expected) {
		t.Errorf("rewinding produced a different state than seeking directly:\n%+v\n%+v", tl.State(), expected)
	}
}

func TestTimelineGhostsIgnoreSandboxDecisions(t *testing.T) {
	tl := newTestTimeline(t)

	tl.SeekTime(150 * time.Second)
	before := ghostLines(tl.State())

	tl.SetMode(ModePush)

	if err := tl.QueuePit(3, CompoundHard); err != nil {
		t.Fatal(err)
	}

	tl.ActivateRain()
	tl.ActivateRain()

	after := ghostLines(tl.State())

	if !reflect.DeepEqual(before, after) {
		t.Errorf("ghost trajectories changed after sandbox decisions:\n%+v\n%+v", before, after)
	}
}

func TestTimelineClassification(t *testing.T) {
	tl := newTestTimeline(t)

	t.Run("mid race by track position", func(t *testing.T) {
		// at 100s: VER is 12s into lap 2, the user 10s, LEC 8s
		tl.SeekTime(100 * time.Second)

		state := tl.State()

		for rank, expected := range []string{"VER", "HAM", "LEC"} {
			if state.Standings[rank].DriverID != expected {
				t.Errorf("P%d is %s, expected %s", rank+1, state.Standings[rank].DriverID, expected)
			}

			if state.Standings[rank].Rank != rank+1 {
				t.Errorf("rank field = %d, expected %d", state.Standings[rank].Rank, rank+1)
			}
		}
	})

	t.Run("finished cars by race time", func(t *testing.T) {
		tl.SeekTime(tl.TotalDuration())

		state := tl.State()

		for _, ds := range state.Standings {
			if !ds.Finished {
				t.Errorf("expected %s to be classified as finished", ds.DriverID)
			}
		}

		for rank, expected := range []string{"VER", "HAM", "LEC"} {
			if state.Standings[rank].DriverID != expected {
				t.Errorf("P%d is %s, expected %s", rank+1, state.Standings[rank].DriverID, expected)
			}
		}
	})
}

func TestTimelinePitStopAndRewind(t *testing.T) {
	tl := newTestTimeline(t)

	if err := tl.QueuePit(2, CompoundHard); err != nil {
		t.Fatal(err)
	}

	tl.Seek(3)

	user := findDriver(t, tl.State(), "HAM")

	if user.Tyre.Compound != CompoundHard || user.Tyre.Age != 0 || user.Tyre.Degradation != 0 {
		t.Errorf("expected a fresh hard set entering lap 3, got %+v", user.Tyre)
	}

	// lap 2 carries the stationary time
	durationNear(t, tl.Cursor(), 205*time.Second+70*time.Millisecond, time.Millisecond)

	// rewinding to before the stop shows the original worn set again
	tl.Seek(2)

	user = findDriver(t, tl.State(), "HAM")

	if user.Tyre.Compound != CompoundSoft || user.Tyre.Degradation == 0 {
		t.Errorf("expected the worn starting set entering lap 2, got %+v", user.Tyre)
	}

	// replaying forward fits the same set once, never twice
	tl.Seek(4)

	user = findDriver(t, tl.State(), "HAM")

	if user.Tyre.Compound != CompoundHard || user.Tyre.Age != 1.0 {
		t.Errorf("expected one lap on the hard set entering lap 4, got %+v", user.Tyre)
	}

	if queue := tl.State().PitQueue; len(queue) != 1 || queue[0].TargetLap != 2 {
		t.Errorf("expected the executed request to stay on the log, got %+v", queue)
	}
}

func TestTimelineRainSlowsOnlyTheUser(t *testing.T) {
	tl := newTestTimeline(t)

	tl.SeekTime(400 * time.Second)

	dryUser := findDriver(t, tl.State(), "HAM")
	dryGhosts := ghostLines(tl.State())

	if dryUser.DeltaVsReal == nil {
		t.Fatal("expected a comparable delta at 400s")
	}

	tl.SeekTime(100 * time.Second)
	tl.ActivateRain()
	tl.SeekTime(400 * time.Second)

	wetUser := findDriver(t, tl.State(), "HAM")
	wetGhosts := ghostLines(tl.State())

	if *wetUser.DeltaVsReal <= *dryUser.DeltaVsReal {
		t.Errorf("expected rain to cost the user time vs history: %s dry, %s damp", *dryUser.DeltaVsReal, *wetUser.DeltaVsReal)
	}

	if !reflect.DeepEqual(dryGhosts, wetGhosts) {
		t.Errorf("ghost trajectories changed with the weather:\n%+v\n%+v", dryGhosts, wetGhosts)
	}
}

func TestTimelineTotalCoversSlowerStrategies(t *testing.T) {
	tl := newTestTimeline(t)

	if err := tl.QueuePit(2, CompoundHard); err != nil {
		t.Fatal(err)
	}

	// the 25s stop pushes the user past the slowest recorded car
	if total := tl.TotalDuration(); total <= 460*time.Second {
		t.Errorf("expected the race duration to grow with the strategy, got %s", total)
	}

	tl.SeekTime(tl.TotalDuration())

	user := findDriver(t, tl.State(), "HAM")

	if !user.Finished {
		t.Errorf("expected the user to reach the flag at the end of the replay, got %+v", user)
	}

	// cancelling the stop shrinks the race back to its recorded length
	if !tl.CancelPit(2) {
		t.Fatal("expected the queued stop to be cancellable")
	}

	if total := tl.TotalDuration(); total != 460*time.Second {
		t.Errorf("total duration = %s, expected 460s after cancelling", total)
	}
}

func TestTimelineQueuePitValidation(t *testing.T) {
	tl := newTestTimeline(t)

	tl.SeekTime(200 * time.Second) // lap 3

	var targetErr *InvalidTargetError

	if err := tl.QueuePit(2, CompoundSoft); !errors.As(err, &targetErr) {
		t.Errorf("expected a lap behind the cursor to be rejected, got %v", err)
	}

	if err := tl.QueuePit(6, CompoundSoft); !errors.As(err, &targetErr) {
		t.Errorf("expected a lap beyond the race to be rejected, got %v", err)
	}

	if queue := tl.State().PitQueue; len(queue) != 0 {
		t.Errorf("expected rejected requests to leave the queue unchanged, got %+v", queue)
	}

	if err := tl.QueuePit(3, CompoundSoft); err != nil {
		t.Errorf("expected the current lap to be a valid target, got %v", err)
	}
}

func TestTimelineSeekClampsLapTargets(t *testing.T) {
	tl := newTestTimeline(t)

	tl.Seek(0)

	if tl.Cursor() != 0 {
		t.Errorf("expected lap targets below 1 to clamp to the start, got %s", tl.Cursor())
	}

	tl.Seek(99)

	user := findDriver(t, tl.State(), "HAM")

	if user.Lap != 5 || user.Progress != 0 {
		t.Errorf("expected lap targets beyond the race to clamp to the final lap, got lap %d progress %f", user.Lap, user.Progress)
	}
}

func TestTimelinePushModeGainsTime(t *testing.T) {
	tl := newTestTimeline(t)

	tl.SetMode(ModePush)
	tl.SeekTime(95 * time.Second)

	user := findDriver(t, tl.State(), "HAM")

	if user.Mode != "PUSH" {
		t.Errorf("expected the snapshot to show PUSH, got %s", user.Mode)
	}

	if user.DeltaVsReal == nil {
		t.Fatal("expected a comparable delta after lap 1")
	}

	// one pushed lap on a fresh soft gains exactly the mode offset
	if *user.DeltaVsReal != -400*time.Millisecond {
		t.Errorf("delta vs real = %s, expected -400ms", *user.DeltaVsReal)
	}
}

func TestTimelinePitWallRecommendation(t *testing.T) {
	tl := newTestTimeline(t)

	tl.ActivateRain()
	tl.ActivateRain()

	user := findDriver(t, tl.State(), "HAM")

	if user.Recommendation != RecommendBoxForWets {
		t.Errorf("expected %q on a wet track with slicks, got %q", RecommendBoxForWets, user.Recommendation)
	}
}

func TestTimelineExcludesMalformedGhosts(t *testing.T) {
	session := testSession()

	session.Drivers = append(session.Drivers, &history.Driver{
		ID:   "BAD",
		Name: "Corrupted Record",
		Team: "Haas",
		Role: history.RoleGhost,
		Laps: []history.LapRecord{
			{LapNumber: 1, LapTime: time.Minute},
			{LapNumber: 5, LapTime: time.Minute},
		},
	})

	tl, err := NewTimeline(session, testLogger())

	if err != nil {
		t.Fatal(err)
	}

	excluded := tl.ExcludedDrivers()

	if len(excluded) != 1 || excluded[0] != "BAD" {
		t.Fatalf("excluded drivers = %v, expected [BAD]", excluded)
	}

	for _, ds := range tl.State().Standings {
		if ds.DriverID == "BAD" {
			t.Error("expected the malformed driver to be left out of the standings")
		}
	}
}

func TestNewTimelineRequiresUserHistory(t *testing.T) {
	session := testSession()
	session.Drivers[0].Laps = nil

	_, err := NewTimeline(session, testLogger())

	if !errors.Is(err, history.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable for a user without laps, got %v", err)
	}
}
