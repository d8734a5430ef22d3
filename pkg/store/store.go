// Package store persists operator intent in a badger database so a
// restarted daemon can bring programs back to the state the operator
// left them in.
package store

import (
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/config"
)

const (
	intentPrefix  = "intent/"
	programPrefix = "program/"
)

// Intent records whether the operator last wanted a program running.
type Intent struct {
	Running   bool  `cbor:"running"`
	UpdatedAt int64 `cbor:"updated_at"`
}

// Store wraps the badger database holding the snapshot.
type Store struct {
	db *badger.DB
}

// Open creates or opens the snapshot database under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetIntent records the desired run state for a program.
func (s *Store) SetIntent(program string, running bool) error {
	val, err := codec.Marshal(&Intent{
		Running:   running,
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(intentPrefix+program), val)
	})
}

// Forget drops the stored intent for a program, typically after the
// program disappeared from the configuration.
func (s *Store) Forget(program string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(intentPrefix + program))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Intents returns every stored intent keyed by program name.
func (s *Store) Intents() (map[string]Intent, error) {
	out := make(map[string]Intent)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(intentPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), intentPrefix)

			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var intent Intent
			if err := codec.Unmarshal(val, &intent); err != nil {
				return fmt.Errorf("decode intent %q: %w", name, err)
			}
			out[name] = intent
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SavePrograms replaces the persisted program set with the given one.
func (s *Store) SavePrograms(programs map[string]*config.Program) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		prefix := []byte(programPrefix)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for name, prog := range programs {
			val, err := codec.Marshal(prog)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(programPrefix+name), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// Programs returns the persisted program set.
func (s *Store) Programs() (map[string]*config.Program, error) {
	out := make(map[string]*config.Program)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(programPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), programPrefix)

			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			prog := new(config.Program)
			if err := codec.Unmarshal(val, prog); err != nil {
				return fmt.Errorf("decode program %q: %w", name, err)
			}
			out[name] = prog
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
