package history

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrDataUnavailable is returned when a race cannot be resolved or its
// historical data is too incomplete to simulate. No partial session is ever
// returned alongside it.
var ErrDataUnavailable = errors.New("history: session data unavailable")

// DefaultTeamColours maps team names to render colours for archives which
// don't carry their own.
var DefaultTeamColours = map[string]RGB{
	"red bull":     {30, 65, 255},
	"mercedes":     {0, 210, 190},
	"ferrari":      {220, 0, 0},
	"mclaren":      {255, 135, 0},
	"aston martin": {0, 110, 70},
	"alpine":       {0, 144, 255},
	"rb":           {102, 146, 255},
	"alphatauri":   {102, 146, 255},
	"sauber":       {155, 0, 0},
	"williams":     {100, 196, 237},
	"haas":         {182, 186, 189},
}

var unknownTeamColour = RGB{200, 200, 200}

// Loader resolves race archives from a directory of JSON session files,
// caching parsed sessions in a BoltStore so subsequent loads of the same race
// are a single read.
type Loader struct {
	dir   string
	store *BoltStore
}

func NewLoader(dir string, cachePath string) (*Loader, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "session directory %s is not readable", dir)
	}

	store, err := NewBoltStore(cachePath)

	if err != nil {
		return nil, err
	}

	return &Loader{dir: dir, store: store}, nil
}

// LoadSession resolves raceID to a validated, immutable Session and marks
// userDriverID as the session's sole RoleUser driver.
func (l *Loader) LoadSession(raceID string, userDriverID string) (*Session, error) {
	session, err := l.store.FindSessionByRaceID(raceID)

	if err == ErrSessionNotFound {
		session, err = l.loadFromArchive(raceID)

		if err != nil {
			return nil, err
		}

		if err := l.store.UpsertSession(session); err != nil {
			logrus.WithError(err).Warnf("Could not cache session: %s", raceID)
		}
	} else if err != nil {
		return nil, errors.Wrapf(err, "could not read session cache for %s", raceID)
	}

	if err := l.assignRoles(session, userDriverID); err != nil {
		return nil, err
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	logrus.Infof("Session loaded: %s", session.String())

	return session, nil
}

func (l *Loader) loadFromArchive(raceID string) (*Session, error) {
	path := filepath.Join(l.dir, raceID+".json")

	data, err := ioutil.ReadFile(path)

	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrDataUnavailable, "no archive for race %s at %s", raceID, path)
	} else if err != nil {
		return nil, errors.Wrapf(err, "could not read archive for race %s", raceID)
	}

	var session *Session

	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "archive for race %s is malformed: %s", raceID, err)
	}

	if session.UUID == uuid.Nil {
		session.UUID = uuid.New()
	}

	if session.RaceID == "" {
		session.RaceID = raceID
	}

	for _, driver := range session.Drivers {
		if driver.Colour == (RGB{}) {
			driver.Colour = teamColour(driver.Team)
		}
	}

	return session, nil
}

func (l *Loader) assignRoles(session *Session, userDriverID string) error {
	found := false

	for _, driver := range session.Drivers {
		if driver.ID == userDriverID {
			driver.Role = RoleUser
			found = true
		} else {
			driver.Role = RoleGhost
		}
	}

	if !found {
		return errors.Wrapf(ErrDataUnavailable, "driver %s is not part of race %s", userDriverID, session.RaceID)
	}

	return nil
}

func (l *Loader) Close() error {
	return l.store.Close()
}

func teamColour(team string) RGB {
	if colour, ok := DefaultTeamColours[strings.ToLower(team)]; ok {
		return colour
	}

	return unknownTeamColour
}
