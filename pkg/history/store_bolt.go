package history

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var (
	sessionsBucketName = []byte("sessions")

	ErrSessionNotFound = errors.New("history: session not found in store")
)

// BoltStore caches fully parsed session archives on disk so repeated loads of
// the same race skip the JSON parse and validation work.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: 5 * time.Second})

	if err != nil {
		return nil, errors.Wrapf(err, "could not open session cache at %s", path)
	}

	return &BoltStore{db: db}, nil
}

func (bs *BoltStore) sessionsBucket(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	if !tx.Writable() {
		bkt := tx.Bucket(sessionsBucketName)

		if bkt == nil {
			return nil, bbolt.ErrBucketNotFound
		}

		return bkt, nil
	}

	return tx.CreateBucketIfNotExists(sessionsBucketName)
}

func (bs *BoltStore) encode(data interface{}) ([]byte, error) {
	return json.Marshal(data)
}

func (bs *BoltStore) decode(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

func (bs *BoltStore) UpsertSession(session *Session) error {
	return bs.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := bs.sessionsBucket(tx)

		if err != nil {
			return err
		}

		encoded, err := bs.encode(session)

		if err != nil {
			return err
		}

		return bkt.Put([]byte(session.RaceID), encoded)
	})
}

func (bs *BoltStore) FindSessionByRaceID(raceID string) (*Session, error) {
	var session *Session

	err := bs.db.View(func(tx *bbolt.Tx) error {
		bkt, err := bs.sessionsBucket(tx)

		if err == bbolt.ErrBucketNotFound {
			return ErrSessionNotFound
		} else if err != nil {
			return err
		}

		data := bkt.Get([]byte(raceID))

		if data == nil {
			return ErrSessionNotFound
		}

		return bs.decode(data, &session)
	})

	if err != nil {
		return nil, err
	}

	return session, nil
}

func (bs *BoltStore) Close() error {
	return bs.db.Close()
}
