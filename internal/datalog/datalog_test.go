package datalog

import (
	"path/filepath"
	"testing"

	"github.com/code-lab-org/stars-collaborate/core"
)

func openTestLog(t *testing.T) *SQLiteLog {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "sim.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestNodeSeriesRoundTrip(t *testing.T) {
	log := openTestLog(t)
	log.LogNodeParameter(3, "energy", 10, []float64{9.5, 9.0, 8.5})

	rows, err := log.db.Query(
		"SELECT tick, value FROM node_series WHERE node = 3 AND name = 'energy' ORDER BY tick")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	var ticks []uint64
	var values []float64
	for rows.Next() {
		var tick uint64
		var value float64
		if err := rows.Scan(&tick, &value); err != nil {
			t.Fatal(err)
		}
		ticks = append(ticks, tick)
		values = append(values, value)
	}
	if len(ticks) != 3 || ticks[0] != 10 || ticks[2] != 12 {
		t.Errorf("ticks = %v", ticks)
	}
	if values[1] != 9.0 {
		t.Errorf("values = %v", values)
	}
}

func TestEdgeLog(t *testing.T) {
	log := openTestLog(t)
	log.LogEdge(0, 1, 42, true)
	log.LogEdge(0, 1, 50, false)

	var count int
	if err := log.db.QueryRow(
		"SELECT COUNT(*) FROM network_edges WHERE tx = 0 AND rx = 1").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("edge rows = %d, want 2", count)
	}
}

func TestChannelTraceAndMeasurements(t *testing.T) {
	log := openTestLog(t)
	log.LogChannelTrace([]core.ChannelSample{
		{Tick: 1, TxIndex: 0, RxIndex: 1, DistanceM: 1000},
		{Tick: 2, TxIndex: 0, RxIndex: 1, DistanceM: 1100},
	})
	log.LogMeasurementSeries([]core.MeasurementSample{
		{NodeIndex: 4, Variable: "PRECTOT", ElapsedS: 9, Measurement: 0.25},
	})

	var traces int
	if err := log.db.QueryRow("SELECT COUNT(*) FROM channel_trace").Scan(&traces); err != nil {
		t.Fatal(err)
	}
	if traces != 2 {
		t.Errorf("trace rows = %d, want 2", traces)
	}
	var measurement float64
	if err := log.db.QueryRow(
		"SELECT measurement FROM measurements WHERE node = 4").Scan(&measurement); err != nil {
		t.Fatal(err)
	}
	if measurement != 0.25 {
		t.Errorf("measurement = %v", measurement)
	}
}

func TestRunIDsDiffer(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(filepath.Join(dir, "a.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	second, err := Open(filepath.Join(dir, "b.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if first.RunID() == second.RunID() {
		t.Error("two runs share an id")
	}
	if first.RunID() == "" {
		t.Error("empty run id")
	}
}

func TestClockSeries(t *testing.T) {
	log := openTestLog(t)
	log.LogClockField("year", 0, []int64{2021, 2021})
	var count int
	if err := log.db.QueryRow(
		"SELECT COUNT(*) FROM clock_series WHERE name = 'year'").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("clock rows = %d, want 2", count)
	}
}
