package datalog

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/code-lab-org/stars-collaborate/core"
)

// SQLiteLog stores the simulation's time series in a single SQLite file:
// per-node telemetry, the clock calendar, the network edge matrix, channel
// traces, and measurement series. Each run is stamped with a UUID so
// several runs can share one database.
type SQLiteLog struct {
	db    *sql.DB
	runID string
}

const schema = `
CREATE TABLE IF NOT EXISTS node_series (
	run_id TEXT NOT NULL,
	node INTEGER NOT NULL,
	name TEXT NOT NULL,
	tick INTEGER NOT NULL,
	value DOUBLE NOT NULL
);
CREATE INDEX IF NOT EXISTS node_series_idx ON node_series (run_id, node, name, tick);
CREATE TABLE IF NOT EXISTS clock_series (
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	tick INTEGER NOT NULL,
	value INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS network_edges (
	run_id TEXT NOT NULL,
	tx INTEGER NOT NULL,
	rx INTEGER NOT NULL,
	tick INTEGER NOT NULL,
	active INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS channel_trace (
	run_id TEXT NOT NULL,
	tick INTEGER NOT NULL,
	year INTEGER, month INTEGER, day INTEGER,
	hour INTEGER, minute INTEGER, second INTEGER, microsecond INTEGER,
	los_speed DOUBLE, omega DOUBLE, distance DOUBLE, delay DOUBLE, data_rate DOUBLE,
	tx_idx INTEGER, tx_buffer INTEGER, tx_lat DOUBLE, tx_lon DOUBLE, tx_alt DOUBLE,
	tx_gain DOUBLE, tx_power DOUBLE,
	rx_idx INTEGER, rx_buffer INTEGER, rx_lat DOUBLE, rx_lon DOUBLE, rx_alt DOUBLE,
	rx_gain DOUBLE, rx_power DOUBLE
);
CREATE TABLE IF NOT EXISTS measurements (
	run_id TEXT NOT NULL,
	node INTEGER NOT NULL,
	variable TEXT NOT NULL,
	elapsed_s INTEGER NOT NULL,
	year INTEGER, month INTEGER, day INTEGER,
	hour INTEGER, minute INTEGER, second INTEGER, microsecond INTEGER,
	latitude DOUBLE, longitude DOUBLE, altitude DOUBLE,
	measurement DOUBLE, resolution DOUBLE
);
`

// Open creates (or reuses) the database at path and prepares the schema.
func Open(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open data log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare data log schema: %w", err)
	}
	return &SQLiteLog{db: db, runID: uuid.NewString()}, nil
}

// RunID returns the identifier stamped on this run's rows.
func (l *SQLiteLog) RunID() string { return l.runID }

// Close releases the database handle.
func (l *SQLiteLog) Close() error { return l.db.Close() }

// LogNodeParameter implements core.DataLog with one transaction per batch.
func (l *SQLiteLog) LogNodeParameter(nodeIndex uint16, name string, firstTick uint64, values []float64) {
	tx, err := l.db.Begin()
	if err != nil {
		return
	}
	stmt, err := tx.Prepare(
		"INSERT INTO node_series (run_id, node, name, tick, value) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return
	}
	for i, value := range values {
		if _, err := stmt.Exec(l.runID, nodeIndex, name, firstTick+uint64(i), value); err != nil {
			stmt.Close()
			tx.Rollback()
			return
		}
	}
	stmt.Close()
	tx.Commit()
}

// LogClockField implements core.DataLog.
func (l *SQLiteLog) LogClockField(name string, firstTick uint64, values []int64) {
	tx, err := l.db.Begin()
	if err != nil {
		return
	}
	stmt, err := tx.Prepare(
		"INSERT INTO clock_series (run_id, name, tick, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return
	}
	for i, value := range values {
		if _, err := stmt.Exec(l.runID, name, firstTick+uint64(i), value); err != nil {
			stmt.Close()
			tx.Rollback()
			return
		}
	}
	stmt.Close()
	tx.Commit()
}

// LogEdge implements core.DataLog.
func (l *SQLiteLog) LogEdge(txIndex, rxIndex uint16, tick uint64, active bool) {
	flag := 0
	if active {
		flag = 1
	}
	l.db.Exec("INSERT INTO network_edges (run_id, tx, rx, tick, active) VALUES (?, ?, ?, ?, ?)",
		l.runID, txIndex, rxIndex, tick, flag)
}

// LogChannelTrace implements core.DataLog.
func (l *SQLiteLog) LogChannelTrace(samples []core.ChannelSample) {
	tx, err := l.db.Begin()
	if err != nil {
		return
	}
	stmt, err := tx.Prepare(`INSERT INTO channel_trace (
		run_id, tick, year, month, day, hour, minute, second, microsecond,
		los_speed, omega, distance, delay, data_rate,
		tx_idx, tx_buffer, tx_lat, tx_lon, tx_alt, tx_gain, tx_power,
		rx_idx, rx_buffer, rx_lat, rx_lon, rx_alt, rx_gain, rx_power
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return
	}
	for _, s := range samples {
		if _, err := stmt.Exec(
			l.runID, s.Tick, s.Year, s.Month, s.Day, s.Hour, s.Minute, s.Second, s.Microsecond,
			s.LosSpeedMPerS, s.OmegaRadPerS, s.DistanceM, s.DelayS, s.DataRateBitsPerS,
			s.TxIndex, s.TxBufferBytes, s.TxLatitudeRad, s.TxLongitudeRad, s.TxAltitudeM,
			s.TxGainDb, s.TxPowerW,
			s.RxIndex, s.RxBufferBytes, s.RxLatitudeRad, s.RxLongitudeRad, s.RxAltitudeM,
			s.RxGainDb, s.RxPowerW,
		); err != nil {
			stmt.Close()
			tx.Rollback()
			return
		}
	}
	stmt.Close()
	tx.Commit()
}

// LogMeasurementSeries implements core.DataLog.
func (l *SQLiteLog) LogMeasurementSeries(samples []core.MeasurementSample) {
	tx, err := l.db.Begin()
	if err != nil {
		return
	}
	stmt, err := tx.Prepare(`INSERT INTO measurements (
		run_id, node, variable, elapsed_s,
		year, month, day, hour, minute, second, microsecond,
		latitude, longitude, altitude, measurement, resolution
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return
	}
	for _, s := range samples {
		if _, err := stmt.Exec(
			l.runID, s.NodeIndex, s.Variable, s.ElapsedS,
			s.Year, s.Month, s.Day, s.Hour, s.Minute, s.Second, s.Microsecond,
			s.LatitudeRad, s.LongitudeRad, s.AltitudeM, s.Measurement, s.ResolutionM,
		); err != nil {
			stmt.Close()
			tx.Rollback()
			return
		}
	}
	stmt.Close()
	tx.Commit()
}
