// Package journal keeps a local history of reading sets and their
// classification in an sqlite database
package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fako1024/hivemon/pkg/anomaly"
	"github.com/fako1024/hivemon/pkg/monitor"

	// Blind import support for sqlite3
	_ "github.com/mattn/go-sqlite3"
)

const (
	createTableTmpl = `CREATE TABLE IF NOT EXISTS readings (
		"ID"                  INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"Cycle"               TEXT NOT NULL,
		"Time"                INTEGER NOT NULL,
		"TemperatureClimate"  REAL,
		"Humidity"            REAL,
		"TemperatureBaro"     REAL,
		"Pressure"            REAL,
		"Mass"                REAL,
		"SignalStrength"      INTEGER,
		"SignalValid"         INTEGER,
		"MeanFrequency"       REAL,
		"Classification"      TEXT NOT NULL,
		"Streak"              INTEGER,
		"Notified"            INTEGER
	);`
	insertTmpl = `INSERT INTO readings(
		Cycle,
		Time,
		TemperatureClimate,
		Humidity,
		TemperatureBaro,
		Pressure,
		Mass,
		SignalStrength,
		SignalValid,
		MeanFrequency,
		Classification,
		Streak,
		Notified
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	latestTmpl = `SELECT
		Cycle, Time, TemperatureClimate, Humidity, TemperatureBaro, Pressure, Mass,
		SignalStrength, SignalValid, MeanFrequency, Classification, Streak, Notified
	FROM readings ORDER BY ID DESC LIMIT ?;`
)

// Entry denotes a single journal row
type Entry struct {
	monitor.ReadingSet
	Classification string
	Streak         int
	Notified       bool
}

// SQLite denotes a journal backed by an sqlite database file
type SQLite struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open opens (or creates) the journal at the given path
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite DB %q: %w", path, err)
	}

	if _, err := db.Exec(createTableTmpl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to create table: %w", err)
	}

	insert, err := db.Prepare(insertTmpl)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to prepare insert: %w", err)
	}

	return &SQLite{
		db:     db,
		insert: insert,
	}, nil
}

// Append stores a reading set along with the decision taken for it
func (s *SQLite) Append(rs monitor.ReadingSet, dec anomaly.Decision) error {
	_, err := s.insert.Exec(
		rs.CycleID,
		rs.Time.UnixMilli(),
		rs.TemperatureClimate,
		rs.Humidity,
		rs.TemperatureBaro,
		rs.Pressure,
		rs.Mass,
		rs.SignalStrength,
		rs.SignalValid,
		rs.MeanFrequency,
		dec.Classification.String(),
		dec.Streak,
		dec.Notify,
	)
	return err
}

// Latest returns the n most recent entries, newest first
func (s *SQLite) Latest(n int) ([]Entry, error) {
	rows, err := s.db.Query(latestTmpl, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ts int64
		)
		if err := rows.Scan(
			&e.CycleID, &ts,
			&e.TemperatureClimate, &e.Humidity, &e.TemperatureBaro, &e.Pressure, &e.Mass,
			&e.SignalStrength, &e.SignalValid, &e.MeanFrequency,
			&e.Classification, &e.Streak, &e.Notified,
		); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(ts)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close closes the underlying database
func (s *SQLite) Close() error {
	if err := s.insert.Close(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}
