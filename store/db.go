package store

import (
	"github.com/cockroachdb/errors"
	dbm "github.com/cometbft/cometbft-db"
)

// DBJournal is a Journal on a cometbft-db database.
type DBJournal struct {
	db dbm.DB
}

var _ Journal = (*DBJournal)(nil)

func NewDBJournal(backend Backend, dir, name string) (*DBJournal, error) {
	var (
		db  dbm.DB
		err error
	)
	switch backend {
	case BackendMemDB:
		db = dbm.NewMemDB()
	case BackendGoLevelDB:
		db, err = dbm.NewDB(name, dbm.GoLevelDBBackend, dir)
	default:
		return nil, errors.Newf("backend %s is not a cometbft-db backend", backend)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s journal %s", backend, name)
	}
	return &DBJournal{db: db}, nil
}

// NewMemJournal returns an in-memory journal.
func NewMemJournal() *DBJournal {
	return &DBJournal{db: dbm.NewMemDB()}
}

func (j *DBJournal) MarkReported(key string) error {
	if err := j.db.SetSync(reportedKey(key), []byte{1}); err != nil {
		return errors.Wrapf(err, "marking %s reported", key)
	}
	return nil
}

func (j *DBJournal) IsReported(key string) (bool, error) {
	ok, err := j.db.Has(reportedKey(key))
	if err != nil {
		return false, errors.Wrapf(err, "looking up %s", key)
	}
	return ok, nil
}

func (j *DBJournal) SetMark(name string, value uint64) error {
	if err := j.db.SetSync(markKey(name), encodeMark(value)); err != nil {
		return errors.Wrapf(err, "setting mark %s", name)
	}
	return nil
}

func (j *DBJournal) GetMark(name string) (uint64, error) {
	bz, err := j.db.Get(markKey(name))
	if err != nil {
		return 0, errors.Wrapf(err, "getting mark %s", name)
	}
	if bz == nil {
		return 0, nil
	}
	return decodeMark(bz)
}

func (j *DBJournal) Close() error {
	return j.db.Close()
}
