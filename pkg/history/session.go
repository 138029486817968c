package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Role tags a driver as either a pure historical replay or the car whose
// strategy may be altered. Exactly one driver per session has RoleUser.
type Role uint8

const (
	RoleGhost Role = iota
	RoleUser
)

func (r Role) String() string {
	switch r {
	case RoleGhost:
		return "GHOST"
	case RoleUser:
		return "USER"
	default:
		return "Unknown Role"
	}
}

type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// PositionSample is a single recorded telemetry point within a lap. Offset is
// measured from the start of the lap.
type PositionSample struct {
	Offset time.Duration `json:"offset"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
}

// LapRecord is one lap of a driver's real race. Records are loaded once per
// session and never mutated afterwards; replay only reads them.
type LapRecord struct {
	LapNumber int              `json:"lap_number"`
	LapTime   time.Duration    `json:"lap_time"`
	Pit       bool             `json:"pit"`
	Compound  string           `json:"compound"`
	Samples   []PositionSample `json:"samples,omitempty"`
}

type Driver struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Team   string `json:"team"`
	Colour RGB    `json:"colour"`
	Role   Role   `json:"-"`

	Laps []LapRecord `json:"laps"`
}

func (d *Driver) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.ID, d.Name, d.Team)
}

// TotalTime is the driver's cumulative historical race time over all recorded laps.
func (d *Driver) TotalTime() time.Duration {
	var total time.Duration

	for _, lap := range d.Laps {
		total += lap.LapTime
	}

	return total
}

// Session is a fully loaded historical race. It is immutable once returned by
// the Loader and is shared by reference for the lifetime of a simulation.
type Session struct {
	UUID             uuid.UUID     `json:"uuid"`
	RaceID           string        `json:"race_id"`
	Name             string        `json:"name"`
	TrackName        string        `json:"track_name"`
	TrackLength      float64       `json:"track_length"`
	TotalLaps        int           `json:"total_laps"`
	SampleResolution time.Duration `json:"sample_resolution"`

	// BaseLapTime is the reference lap time the physics model builds its
	// per-lap deltas on top of.
	BaseLapTime time.Duration `json:"base_lap_time"`

	Drivers []*Driver `json:"drivers"`
}

func (s *Session) String() string {
	return fmt.Sprintf("%s - %s, %d laps, %d drivers", s.RaceID, s.Name, s.TotalLaps, len(s.Drivers))
}

// UserDriver returns the session's sole RoleUser driver.
func (s *Session) UserDriver() (*Driver, error) {
	var user *Driver

	for _, driver := range s.Drivers {
		if driver.Role != RoleUser {
			continue
		}

		if user != nil {
			return nil, errors.Errorf("history: session %s has more than one user driver", s.RaceID)
		}

		user = driver
	}

	if user == nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "session %s has no user driver", s.RaceID)
	}

	return user, nil
}

// Validate checks that the session is complete enough to simulate. Per-driver
// replay consistency is the simulator's concern; this only rejects sessions
// which could never produce a grid.
func (s *Session) Validate() error {
	if s.TotalLaps <= 0 {
		return errors.Wrapf(ErrDataUnavailable, "session %s has no laps", s.RaceID)
	}

	if s.BaseLapTime <= 0 {
		return errors.Wrapf(ErrDataUnavailable, "session %s has no base lap time", s.RaceID)
	}

	if len(s.Drivers) < 2 {
		return errors.Wrapf(ErrDataUnavailable, "session %s has %d drivers, need at least 2", s.RaceID, len(s.Drivers))
	}

	for _, driver := range s.Drivers {
		if len(driver.Laps) == 0 {
			return errors.Wrapf(ErrDataUnavailable, "driver %s has no recorded laps", driver.ID)
		}
	}

	if _, err := s.UserDriver(); err != nil {
		return err
	}

	return nil
}
