package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Key prefixes
const (
	prefixBook  = "book/"
	prefixProbe = "tb/"
)

// Recommendation is a book move for one position.
type Recommendation struct {
	Move   string  `json:"move"`
	Weight float64 `json:"weight"`
}

// Store wraps BadgerDB for persistent book and tablebase data.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database in dir. Badger's own messages are
// logged through log at warning level and above.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = badgerLogger{log.With().Str("component", "badger").Logger()}
	return open(opts)
}

// OpenDefault opens the database in DatabaseDir.
func OpenDefault(log zerolog.Logger) (*Store, error) {
	dir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dir, log)
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get decodes the value under key into v and reports whether it existed.
func (s *Store) get(key string, v any) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	return found, err
}

// AddRecommendation adds a book move for fen. A move already stored for
// fen has its weight replaced.
func (s *Store) AddRecommendation(fen string, r Recommendation) error {
	key := []byte(prefixBook + fen)
	return s.db.Update(func(txn *badger.Txn) error {
		var recs []Recommendation
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &recs)
			}); err != nil {
				return err
			}
		}

		replaced := false
		for i := range recs {
			if recs[i].Move == r.Move {
				recs[i].Weight = r.Weight
				replaced = true
			}
		}
		if !replaced {
			recs = append(recs, r)
		}

		data, err := json.Marshal(recs)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// Recommendations returns the book moves stored for fen.
func (s *Store) Recommendations(fen string) ([]Recommendation, error) {
	var recs []Recommendation
	if _, err := s.get(prefixBook+fen, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// BookPositions returns the FENs that have book moves.
func (s *Store) BookPositions() ([]string, error) {
	var fens []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixBook)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			fens = append(fens, strings.TrimPrefix(string(it.Item().Key()), prefixBook))
		}
		return nil
	})
	return fens, err
}

// PutProbe stores a tablebase answer for fen.
func (s *Store) PutProbe(fen string, v any) error {
	return s.put(prefixProbe+fen, v)
}

// Probe decodes the tablebase answer stored for fen into v and reports
// whether there was one.
func (s *Store) Probe(fen string, v any) (bool, error) {
	return s.get(prefixProbe+fen, v)
}

// badgerLogger adapts zerolog to badger.Logger. Info and debug chatter is
// dropped.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(string, ...any)  {}
func (l badgerLogger) Debugf(string, ...any) {}
