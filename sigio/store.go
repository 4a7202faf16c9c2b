// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sigio

import (
	"context"
	"database/sql"
	"time"

	"github.com/db47h/tagsim"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// A Store records simulation runs and their signals in an SQLite database.
//
// The database is opened in WAL mode so that several processes can record
// runs concurrently.
//
type Store struct {
	db *sql.DB
}

// Run describes a recorded simulation run.
//
type Run struct {
	ID      string
	Model   string
	Created time.Time
}

// OpenStore opens or creates the database at path.
//
func OpenStore(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate store")
	}
	return s, nil
}

// Close closes the database.
//
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		signal TEXT NOT NULL,
		seq    INTEGER NOT NULL,
		tag    REAL NOT NULL,
		value  REAL NOT NULL,
		PRIMARY KEY (run_id, signal, seq)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// NewRun records a new run of the named model and returns its id.
//
func (s *Store) NewRun(model string) (string, error) {
	id := uuid.NewString()
	err := retryOp(defaultRetryConfig, func() error {
		_, err := s.db.Exec(`INSERT INTO runs (id, model, created_at) VALUES (?, ?, ?)`,
			id, model, time.Now().UTC().Format(time.RFC3339Nano))
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "new run")
	}
	return id, nil
}

// Runs returns all recorded runs, oldest first.
//
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, model, created_at FROM runs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
		)
		if err = rows.Scan(&r.ID, &r.Model, &created); err != nil {
			return nil, err
		}
		if r.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, errors.Wrapf(err, "run %s", r.ID)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Signals returns the names of the signals recorded for a run.
//
func (s *Store) Signals(run string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT signal FROM samples WHERE run_id = ? ORDER BY signal`, run)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err = rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Save records evs as the named signal of a run, replacing any previous
// recording, in a single transaction.
//
func (s *Store) Save(run, signal string, evs []tagsim.Event) error {
	err := retryOp(defaultRetryConfig, func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // no-op after commit

		if _, err = tx.Exec(`DELETE FROM samples WHERE run_id = ? AND signal = ?`, run, signal); err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO samples (run_id, signal, seq, tag, value) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, ev := range evs {
			if _, err = stmt.Exec(run, signal, i, ev.Tag(), ev.Value()); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	return errors.Wrapf(err, "save %s/%s", run, signal)
}

// Samples returns the events of a recorded signal in recording order.
//
func (s *Store) Samples(run, signal string) ([]tagsim.Event, error) {
	rows, err := s.db.Query(`SELECT tag, value FROM samples WHERE run_id = ? AND signal = ? ORDER BY seq ASC`, run, signal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var evs []tagsim.Event
	for rows.Next() {
		var t, v float64
		if err = rows.Scan(&t, &v); err != nil {
			return nil, err
		}
		evs = append(evs, tagsim.NewEvent(t, v))
	}
	return evs, rows.Err()
}

// Writer returns a sink recording every event read from in as the named
// signal of a run. Events are written in one transaction once the sentinel is
// read.
//
//	Inputs: in
//
func (s *Store) Writer(name string, in *tagsim.Channel, run, signal string) tagsim.Actor {
	return &batch{name: name, in: in, flush: func(evs []tagsim.Event) error {
		return s.Save(run, signal, evs)
	}}
}

// Replay returns a source replaying a recorded signal. The sentinel carries
// the tag of the last event.
//
//	Outputs: out
//
func (s *Store) Replay(name, run, signal string, out ...*tagsim.Channel) tagsim.Actor {
	return tagsim.NewSource(name, func(_ context.Context, emit func(tagsim.Event) error) (float64, error) {
		evs, err := s.Samples(run, signal)
		if err != nil {
			return 0, errors.Wrap(err, name)
		}
		return replay(evs, emit)
	}, out...)
}
