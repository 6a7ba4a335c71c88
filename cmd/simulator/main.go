package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/code-lab-org/stars-collaborate/core"
	"github.com/code-lab-org/stars-collaborate/internal/datalog"
	"github.com/code-lab-org/stars-collaborate/internal/logging"
	"github.com/code-lab-org/stars-collaborate/internal/observability"
	"github.com/code-lab-org/stars-collaborate/timectrl"
)

// Default element set used when no TLE file is supplied.
var defaultTLE = core.TwoLineElementSet{
	Name:  "CUBESAT",
	Line1: "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990",
	Line2: "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760",
}

func main() {
	ticks := flag.Uint64("ticks", 3600, "number of simulation ticks")
	tickSeconds := flag.Uint64("tick-seconds", 1, "seconds per tick")
	tlePath := flag.String("tle", "", "path to a three-line-per-record TLE file (built-in cubesat orbit when empty)")
	dataLogPath := flag.String("data-log", "output/simulation.db", "SQLite data log path")
	metricsAddr := flag.String("metrics-addr", "", "address to expose Prometheus metrics on (disabled when empty)")
	startDate := flag.String("start", "2021-03-01", "simulation start date (YYYY-MM-DD)")
	seed := flag.Uint64("seed", 42, "seed for the measurement stagger sequence")
	clearVisibility := flag.Bool("clear-visibility", false, "bypass ellipsoid occlusion in the contact search")
	flag.Parse()

	eventLog := logging.NewFromEnv()
	ctx := context.Background()

	if *tickSeconds == 0 {
		fatal("tick-seconds must be positive")
	}
	start, err := time.Parse("2006-01-02", *startDate)
	if err != nil {
		fatal(fmt.Sprintf("invalid start date %q: %v", *startDate, err))
	}

	tracer, shutdownTracing, err := observability.InitTracing(ctx,
		observability.TracingConfigFromEnv(), eventLog)
	if err != nil {
		fatal(err.Error())
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, eventLog)

	metrics, err := observability.NewSimCollector(nil)
	if err != nil {
		fatal(err.Error())
	}
	if *metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(*metricsAddr, metrics.Handler()); err != nil {
				eventLog.Warn(ctx, "metrics endpoint failed",
					logging.String("error", err.Error()))
			}
		}()
	}

	if err := os.MkdirAll(filepath.Dir(*dataLogPath), 0o755); err != nil {
		fatal(fmt.Sprintf("create output directory: %v", err))
	}
	dataLog, err := datalog.Open(*dataLogPath)
	if err != nil {
		fatal(err.Error())
	}
	defer dataLog.Close()

	// Clock, Sun, scheduler, observing system.
	clock := timectrl.NewSimulationClockAt(start)
	sun := core.NewSun(clock)
	scheduler := core.NewSchedulerAlpha(clock, eventLog)
	scheduler.SetMetrics(metrics)
	scheduler.SetTracer(tracer)
	if *clearVisibility {
		scheduler.SetVisibilityMode(core.VisibilityClear)
	}
	system := core.NewObservingSystemAlpha(sun, clock, scheduler, eventLog, dataLog)
	system.SetMetrics(metrics)

	// Satellite hardware shared by every node.
	battery := core.NewBattery(0.9333, 6, 12.9, 85)
	panel := core.NewSolarPanel(29, 0.06, 0, 0, 0, sun)
	power := core.NewSubsystemPower(battery, []core.SolarPanel{panel, panel}, 6.2425)
	commAntenna := core.NewAntennaDipole(30, 0, 0, 0)
	modem := core.NewModemUhfDeploy()
	comm := core.NewSubsystemComm(commAntenna, modem)
	sensingAntenna := core.NewAntennaHelical(30, 0, 0, 0)
	cloudData := core.NewSyntheticEarthData("TAUTOT", 1.5, 1.5, 0.05, *seed)
	cloudRadar := core.NewSensorCloudRadar(cloudData, 300)
	cloud := core.NewSubsystemSensing(sensingAntenna, cloudRadar)
	rainData := core.NewSyntheticEarthData("PRECTOT", 0.00002, 0.00002, 0.000001, *seed+1)
	rainRadar := core.NewSensorRainRadar(rainData, 50)
	rain := core.NewSubsystemSensing(sensingAntenna, rainRadar)

	visibility := core.VisibilityOccluded
	if *clearVisibility {
		visibility = core.VisibilityClear
	}
	source := core.NewDataProcessorSourceWithVisibility(visibility)
	sink := core.NewDataProcessorSink()

	// Launch: one informer train and one sink grid.
	orbits := loadOrbits(*tlePath)
	informerOrbits, err := orbits[0].Duplicate(1, 5, 1, 1, 0, 0)
	if err != nil {
		fatal(err.Error())
	}
	system.Launch(informerOrbits, 0, false, comm, cloud, power, source)
	sinkOrbits, err := orbits[len(orbits)-1].Duplicate(11, 11, 1, 1, 0, 0)
	if err != nil {
		fatal(err.Error())
	}
	system.Launch(sinkOrbits, 1, false, comm, rain, power, sink)

	spanS := *ticks * *tickSeconds
	system.SeedMany(spanS, 0, staggerSequence(*seed))

	eventLog.Info(ctx, "starting simulation",
		logging.Uint64("ticks", *ticks),
		logging.Uint64("tick_seconds", *tickSeconds),
		logging.Int("nodes", len(system.Nodes())),
		logging.String("run_id", dataLog.RunID()))

	for tick := uint64(0); tick < *ticks; tick++ {
		system.LinesOfSight()
		if err := system.Update(ctx); err != nil {
			fatal(err.Error())
		}
		clock.Tick(*tickSeconds)
	}
	system.Complete()
	eventLog.Info(ctx, "simulation complete",
		logging.Uint64("elapsed_s", clock.ElapsedS()),
		logging.Uint64("samples_planned", system.NumSamples()))
}

// loadOrbits reads the TLE file, or falls back to the built-in orbit.
func loadOrbits(path string) []*core.PlatformOrbit {
	if path == "" {
		orbit, err := core.NewPlatformOrbit(defaultTLE)
		if err != nil {
			fatal(err.Error())
		}
		return []*core.PlatformOrbit{orbit}
	}
	orbits, err := core.LoadPlatformOrbits(path)
	if err != nil {
		fatal(err.Error())
	}
	if len(orbits) == 0 {
		fatal(fmt.Sprintf("TLE file %q holds no records", path))
	}
	return orbits
}

// staggerSequence is a small deterministic linear congruential sequence
// used to stagger initial measurement times; injected so tests and reruns
// reproduce exactly.
func staggerSequence(seed uint64) func() uint64 {
	state := seed
	return func() uint64 {
		state = state*6364136223846793005 + 1442695040888963407
		return state >> 33
	}
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error:", msg)
	os.Exit(1)
}
