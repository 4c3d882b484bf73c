package store

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

type Backend string

const (
	BackendGoLevelDB Backend = "goleveldb"
	BackendMemDB     Backend = "memdb"
	BackendPebble    Backend = "pebble"
)

var ErrNotFound = errors.New("store resource not found")

const (
	reportedKeyPrefix = 0x00
	markKeyPrefix     = 0x01
)

// Journal records what a pipeline already relayed. The chains stay the source
// of truth: the journal only saves a relayer from repeating work after a restart.
type Journal interface {
	MarkReported(key string) error
	IsReported(key string) (bool, error)
	SetMark(name string, value uint64) error
	// GetMark returns 0 for a mark never set.
	GetMark(name string) (uint64, error)
	Close() error
}

// Config selects the backend of the journals. Dir is ignored by memdb.
type Config struct {
	Backend Backend `json:"backend" yaml:"backend"`
	Dir     string  `json:"dir,omitempty" yaml:"dir,omitempty"`
}

func (cfg Config) Validate() error {
	switch cfg.Backend {
	case BackendMemDB:
		return nil
	case BackendGoLevelDB, BackendPebble:
		if cfg.Dir == "" {
			return errors.Newf("store backend %s requires a directory", cfg.Backend)
		}
		return nil
	default:
		return errors.Newf("unknown store backend '%v'", cfg.Backend)
	}
}

// Open opens the journal of the named pipeline.
func Open(cfg Config, name string) (Journal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendPebble:
		return NewPebbleJournal(cfg.Dir, name)
	default:
		return NewDBJournal(cfg.Backend, cfg.Dir, name)
	}
}

func reportedKey(key string) []byte {
	return append([]byte{reportedKeyPrefix}, key...)
}

func markKey(name string) []byte {
	return append([]byte{markKeyPrefix}, name...)
}

func encodeMark(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeMark(bz []byte) (uint64, error) {
	if len(bz) != 8 {
		return 0, errors.Newf("invalid mark of %d bytes", len(bz))
	}
	return binary.BigEndian.Uint64(bz), nil
}
