// Command-line entry point for the disruption recovery simulator.
//
// Scenarios live in a SQLite store. "seed" installs the built-in demo
// scenario, "run" executes a single simulation, and "sweep" runs the
// same scenario across a range of delay tolerances to chart how
// cancellations trade against delay.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"airline_recovery/internal/export"
	"airline_recovery/internal/model"
	"airline_recovery/internal/scenario"
	"airline_recovery/internal/sim"
	"airline_recovery/internal/storage"
	"airline_recovery/internal/stream"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "recoverysim - commands:")
	fmt.Fprintln(w, "  run    - execute one simulation run")
	fmt.Fprintln(w, "  sweep  - run a scenario across a range of delay tolerances")
	fmt.Fprintln(w, "  seed   - install the built-in demo scenario")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  recoverysim run -db scenarios.db -scenario few [-max-delay 120] [-out prefix] [-json out.json] [-events] [-nats nats://...]")
	fmt.Fprintln(w, "  recoverysim sweep -db scenarios.db -scenario few -delays 60,120,240,360 [-parallel 4] [-clickhouse host:9000]")
	fmt.Fprintln(w, "  recoverysim seed -db scenarios.db [-scenario few]")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "run":
		runOne(os.Args[2:])
	case "sweep":
		runSweep(os.Args[2:])
	case "seed":
		runSeed(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openAndLoad(dbPath, sid string) (*model.Scenario, error) {
	store, err := scenario.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(context.Background(), sid)
}

func runOne(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dbPath := fs.String("db", "scenarios.db", "Scenario store path")
	sid := fs.String("scenario", "", "Scenario id (required)")
	maxDelay := fs.Int("max-delay", -1, "Override max delay in minutes (-1: use stored value)")
	outPrefix := fs.String("out", "", "Write CSV result files with this prefix")
	jsonPath := fs.String("json", "", "Write full JSON result to this file (- for stdout)")
	showEvents := fs.Bool("events", false, "Print events to stderr as they happen")
	natsURL := fs.String("nats", "", "Publish events to this NATS server")
	_ = fs.Parse(args)

	if *sid == "" {
		fatalf("run: -scenario is required")
	}

	sc, err := openAndLoad(*dbPath, *sid)
	if err != nil {
		fatalf("Failed to load scenario: %v", err)
	}

	var opts []sim.Option
	if *maxDelay >= 0 {
		opts = append(opts, sim.WithMaxDelay(time.Duration(*maxDelay)*time.Minute))
	}
	if *showEvents {
		opts = append(opts, sim.WithObserver(model.ObserverFunc(func(ev model.Event) {
			fmt.Fprintf(os.Stderr, "%s %-22s", ev.Time.Format("15:04"), ev.Type)
			if ev.Flight != 0 {
				fmt.Fprintf(os.Stderr, " flight=%d", ev.Flight)
			}
			if ev.Tail != "" {
				fmt.Fprintf(os.Stderr, " tail=%s", ev.Tail)
			}
			if ev.Delay > 0 {
				fmt.Fprintf(os.Stderr, " delay=%dm", int(ev.Delay.Minutes()))
			}
			if ev.Reason != "" {
				fmt.Fprintf(os.Stderr, " reason=%s", ev.Reason)
			}
			fmt.Fprintln(os.Stderr)
		})))
	}

	var pub *stream.Publisher
	if *natsURL != "" {
		cfg := stream.DefaultConfig()
		cfg.URL = *natsURL
		pub, err = stream.Connect(cfg, fmt.Sprintf("%s-%d", *sid, time.Now().Unix()))
		if err != nil {
			fatalf("Failed to connect to NATS: %v", err)
		}
		opts = append(opts, sim.WithObserver(pub))
	}

	eng, err := sim.New(sc, opts...)
	if err != nil {
		fatalf("Failed to build engine: %v", err)
	}
	res, err := eng.Run()
	if err != nil {
		fatalf("Simulation failed: %v", err)
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "NATS publish: %v\n", err)
		}
	}

	m := res.Metrics
	fmt.Fprintf(os.Stderr,
		"stats: flights=%d on_time=%d delayed=%d cancelled=%d subs(aircraft=%d crew=%d) total_delay=%dm pax_displaced=%d/%d\n",
		m.FlightsTotal, m.OnTime, m.Delayed, m.Cancelled,
		m.AircraftSubstitutions, m.CrewSubstitutions,
		m.TotalDelayMin, m.PassengersDisplaced, m.PassengersTotal)

	if *outPrefix != "" {
		if err := export.WriteFiles(res, *outPrefix); err != nil {
			fatalf("Failed to write CSV files: %v", err)
		}
	}
	switch *jsonPath {
	case "":
	case "-":
		if err := export.WriteJSON(res, os.Stdout); err != nil {
			fatalf("Failed to write JSON: %v", err)
		}
	default:
		f, err := os.Create(*jsonPath)
		if err != nil {
			fatalf("Failed to create %s: %v", *jsonPath, err)
		}
		defer f.Close()
		if err := export.WriteJSON(res, f); err != nil {
			fatalf("Failed to write JSON: %v", err)
		}
	}
}

func runSweep(args []string) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	dbPath := fs.String("db", "scenarios.db", "Scenario store path")
	sid := fs.String("scenario", "", "Scenario id (required)")
	delays := fs.String("delays", "60,120,180,240,300,360", "Comma-separated max delays in minutes")
	parallel := fs.Int("parallel", 4, "Concurrent runs")
	chAddr := fs.String("clickhouse", "", "Save sweep results to this ClickHouse host:port")
	_ = fs.Parse(args)

	if *sid == "" {
		fatalf("sweep: -scenario is required")
	}

	var tolerances []int
	for _, part := range strings.Split(*delays, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			fatalf("sweep: bad delay value %q", part)
		}
		tolerances = append(tolerances, v)
	}
	if len(tolerances) == 0 {
		fatalf("sweep: no delay values given")
	}

	sc, err := openAndLoad(*dbPath, *sid)
	if err != nil {
		fatalf("Failed to load scenario: %v", err)
	}

	results := make([]*sim.Result, len(tolerances))
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(*parallel)
	for i, tol := range tolerances {
		i, tol := i, tol
		g.Go(func() error {
			eng, err := sim.New(sc, sim.WithMaxDelay(time.Duration(tol)*time.Minute))
			if err != nil {
				return err
			}
			res, err := eng.Run()
			if err != nil {
				return fmt.Errorf("max_delay=%d: %w", tol, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fatalf("Sweep failed: %v", err)
	}

	fmt.Println("max_delay_min,on_time,delayed,cancelled,avg_delay_min,pax_displaced")
	for _, res := range results {
		m := res.Metrics
		fmt.Printf("%d,%d,%d,%d,%.1f,%d\n",
			res.MaxDelayMin, m.OnTime, m.Delayed, m.Cancelled, m.AvgDelayMin, m.PassengersDisplaced)
	}

	if *chAddr != "" {
		host, port := splitHostPort(*chAddr, 9000)
		cfg := storage.DefaultConfig().ClickHouse
		cfg.Host, cfg.Port = host, port
		ctx := context.Background()
		ch, err := storage.OpenClickHouse(ctx, cfg)
		if err != nil {
			fatalf("Failed to open ClickHouse: %v", err)
		}
		defer ch.Close()
		sweepID := fmt.Sprintf("%s-%d", *sid, time.Now().Unix())
		if err := ch.SaveSweep(ctx, sweepID, results); err != nil {
			fatalf("Failed to save sweep: %v", err)
		}
		fmt.Fprintf(os.Stderr, "sweep saved: id=%s rows=%d\n", sweepID, len(results))
	}
}

func splitHostPort(s string, defaultPort int) (string, int) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, defaultPort
	}
	port, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return s, defaultPort
	}
	return s[:i], port
}

func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	dbPath := fs.String("db", "scenarios.db", "Scenario store path")
	sid := fs.String("scenario", "few", "Scenario id to install")
	_ = fs.Parse(args)

	store, err := scenario.Open(*dbPath)
	if err != nil {
		fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	sc := scenario.Few(*sid)
	if err := store.Insert(context.Background(), sc); err != nil {
		fatalf("Failed to seed scenario: %v", err)
	}
	fmt.Fprintf(os.Stderr, "seeded scenario %q: airports=%d aircraft=%d crew=%d flights=%d\n",
		*sid, len(sc.Airports), len(sc.Fleet), len(sc.Crew), len(sc.Flights))
}
