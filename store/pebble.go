package store

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// PebbleJournal is a Journal on a pebble database.
type PebbleJournal struct {
	db *pebble.DB
}

var _ Journal = (*PebbleJournal)(nil)

func NewPebbleJournal(dir, name string) (*PebbleJournal, error) {
	db, err := pebble.Open(filepath.Join(dir, name), &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening pebble journal %s", name)
	}
	return &PebbleJournal{db: db}, nil
}

func (j *PebbleJournal) MarkReported(key string) error {
	if err := j.db.Set(reportedKey(key), []byte{1}, pebble.Sync); err != nil {
		return errors.Wrapf(err, "marking %s reported", key)
	}
	return nil
}

func (j *PebbleJournal) IsReported(key string) (bool, error) {
	_, closer, err := j.db.Get(reportedKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "looking up %s", key)
	}
	defer closer.Close()
	return true, nil
}

func (j *PebbleJournal) SetMark(name string, value uint64) error {
	if err := j.db.Set(markKey(name), encodeMark(value), pebble.Sync); err != nil {
		return errors.Wrapf(err, "setting mark %s", name)
	}
	return nil
}

func (j *PebbleJournal) GetMark(name string) (uint64, error) {
	value, closer, err := j.db.Get(markKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "getting mark %s", name)
	}
	defer closer.Close()
	return decodeMark(value)
}

func (j *PebbleJournal) Close() error {
	return j.db.Close()
}
