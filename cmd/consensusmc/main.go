package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"

	"consensusmc"
	"consensusmc/event"
	"consensusmc/metrics"
	"consensusmc/model"
	"consensusmc/rpc"
	"consensusmc/simulator"

	"github.com/prometheus/client_golang/prometheus"
)

const usageStr = `
The consensusmc command checks a leader-based single-decree consensus protocol.

Usage:

	consensusmc <command> [arguments]

The commands are:

	check		Exhaustively explore every reachable snapshot
	simulate	Check a number of random runs
	serve		Serve the driver over gRPC

Run consensusmc <command> -h for the arguments of a command.
`

func usage() {
	fmt.Fprint(os.Stderr, usageStr)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "check":
		os.Exit(checkCommand(os.Args[2:]))
	case "simulate":
		os.Exit(simulateCommand(os.Args[2:]))
	case "serve":
		os.Exit(serveCommand(os.Args[2:]))
	default:
		usage()
	}
}

// Flags shared by the check and simulate commands
type systemFlags struct {
	nodes       string
	values      string
	maxFailures int
	maxLosses   int
	failing     string
	metricsAddr string
	export      string
}

func (sf *systemFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.nodes, "nodes", "0,1,2", "Comma separated node ids")
	fs.StringVar(&sf.values, "values", "v1,v2", "Comma separated values that can be proposed")
	fs.IntVar(&sf.maxFailures, "f", 0, "Maximum number of crashed nodes")
	fs.IntVar(&sf.maxLosses, "losses", 0, fmt.Sprintf("Maximum number of lost messages (%v = unlimited)", model.UnlimitedLosses))
	fs.StringVar(&sf.failing, "failing", "", "Comma separated ids of the nodes that may crash (empty = every node)")
	fs.StringVar(&sf.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address while running")
	fs.StringVar(&sf.export, "export", "", "Write the discovered state space to this file in Newick format")
}

func parseInts(s string) ([]int, error) {
	out := []int{}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid node id %q: %w", field, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseValues(s string) []model.Value {
	out := []model.Value{}
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field != "" {
			out = append(out, model.Value(field))
		}
	}
	return out
}

// Build the system and the run options described by the flags.
// The returned function releases the resources held by the options.
func (sf *systemFlags) options() (consensusmc.SystemOption, []consensusmc.RunOptions, func(), error) {
	nodes, err := parseInts(sf.nodes)
	if err != nil {
		return consensusmc.SystemOption{}, nil, nil, err
	}
	failing, err := parseInts(sf.failing)
	if err != nil {
		return consensusmc.SystemOption{}, nil, nil, err
	}
	sys, err := simulator.Initialize(nodes, parseValues(sf.values), sf.maxFailures, simulator.WithMaxLosses(sf.maxLosses))
	if err != nil {
		return consensusmc.SystemOption{}, nil, nil, err
	}

	cleanup := []func(){}
	release := func() {
		for _, f := range cleanup {
			f()
		}
	}
	opts := []consensusmc.RunOptions{consensusmc.WithFailStopManager(failing...)}

	if sf.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, consensusmc.WithMetrics(metrics.NewMetrics("consensusmc", reg)))
		srv := &http.Server{Addr: sf.metricsAddr, Handler: metrics.Handler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("consensusmc: metrics server stopped: %v", err)
			}
		}()
		cleanup = append(cleanup, func() { srv.Close() })
	}
	if sf.export != "" {
		f, err := os.Create(sf.export)
		if err != nil {
			release()
			return consensusmc.SystemOption{}, nil, nil, err
		}
		opts = append(opts, consensusmc.Export(f))
		cleanup = append(cleanup, func() { f.Close() })
	}
	return consensusmc.WithSystem(sys), opts, release, nil
}

func checkCommand(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	sf := &systemFlags{}
	sf.register(fs)
	strategy := fs.String("strategy", "bfs", "Search strategy: bfs or dfs")
	maxStates := fs.Int("max-states", 0, "Stop after discovering this many states (0 = unbounded)")
	maxDepth := fs.Int("max-depth", 0, "Do not expand states deeper than this (0 = unbounded)")
	fs.Parse(args)

	expOpts := []consensusmc.ExplorerOption{consensusmc.MaxStates(*maxStates), consensusmc.MaxDepth(*maxDepth)}
	switch *strategy {
	case "bfs":
		expOpts = append(expOpts, consensusmc.BreadthFirst())
	case "dfs":
		expOpts = append(expOpts, consensusmc.DepthFirst())
	default:
		log.Printf("consensusmc: unknown strategy %q", *strategy)
		return 2
	}

	system, opts, release, err := sf.options()
	if err != nil {
		log.Printf("consensusmc: %v", err)
		return 2
	}
	defer release()

	resp := consensusmc.PrepareExploration(expOpts...).Run(system, opts...)
	return report(resp.Response())
}

func simulateCommand(args []string) int {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	sf := &systemFlags{}
	sf.register(fs)
	runs := fs.Int("runs", 10000, "Number of runs")
	depth := fs.Int("depth", 100, "Maximum number of actions per run")
	seed := fs.Int64("seed", 0, "Seed of the random scheduler")
	concurrency := fs.Int("concurrency", runtime.GOMAXPROCS(0), "Number of concurrent runs")
	replay := fs.String("replay", "", "Replay a run. Event ids separated by ';'")
	fs.Parse(args)

	simOpts := []consensusmc.SimulatorOption{
		consensusmc.MaxRuns(*runs),
		consensusmc.MaxDepth(*depth),
		consensusmc.NumConcurrent(*concurrency),
		consensusmc.RandomWalkScheduler(*seed),
	}
	if *replay != "" {
		run := []event.EventId{}
		for _, id := range strings.Split(*replay, ";") {
			run = append(run, event.EventId(strings.TrimSpace(id)))
		}
		simOpts = append(simOpts, consensusmc.ReplayScheduler(run), consensusmc.NumConcurrent(1))
	}

	system, opts, release, err := sf.options()
	if err != nil {
		log.Printf("consensusmc: %v", err)
		return 2
	}
	defer release()

	resp := consensusmc.PrepareSimulation(simOpts...).Run(system, opts...)
	if ok, _ := resp.Response(); !ok {
		fmt.Printf("Replay with: -replay %q\n", joinIds(resp.Export()))
	}
	return report(resp.Response())
}

func serveCommand(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":50051", "Address of the gRPC server")
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address")
	fs.Parse(args)

	var m *metrics.Metrics
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m = metrics.NewMetrics("consensusmc", reg)
		go func() {
			log.Printf("consensusmc: metrics server stopped: %v", http.ListenAndServe(*metricsAddr, metrics.Handler(reg)))
		}()
	}

	log.Printf("consensusmc: serving the driver on %v", *addr)
	if err := rpc.NewServer(m).Start(*addr); err != nil {
		log.Printf("consensusmc: %v", err)
		return 1
	}
	return 0
}

func joinIds(ids []event.EventId) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return strings.Join(out, ";")
}

func report(ok bool, desc string) int {
	fmt.Println(desc)
	if !ok {
		return 1
	}
	return 0
}
