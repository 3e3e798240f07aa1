// Command infomap clusters a link-list network with the hierarchical map
// equation and writes the module tree and related reports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-infomap/pkg/infomap"
	"github.com/dd0wney/cluso-infomap/pkg/infomap/export"
	"github.com/dd0wney/cluso-infomap/pkg/logging"
	"github.com/dd0wney/cluso-infomap/pkg/metrics"
	"github.com/dd0wney/cluso-infomap/pkg/validation"
)

// cliOptions are the settings that do not belong to infomap.Config.
type cliOptions struct {
	configPath  string
	input       string
	outDir      string
	outName     string
	formats     string
	compress    bool
	metricsPath string
	timeout     time.Duration
	quiet       bool

	// seed is range-checked before it narrows to infomap.Config.Seed
	seed uint64
}

func (o cliOptions) validate() error {
	return validation.NewConfigValidator("cli").
		Required("input", o.input).
		Required("out", o.outDir).
		Custom("formats", func() error {
			_, err := parseFormats(o.formats)
			return err
		}).
		When(o.timeout < 0, func(cv *validation.ConfigValidator) {
			cv.Custom("timeout", func() error { return errors.New("must not be negative") })
		}).
		When(o.seed > math.MaxUint32, func(cv *validation.ConfigValidator) {
			cv.Custom("seed", func() error {
				return fmt.Errorf("%d does not fit in 32 bits", o.seed)
			})
		}).
		Validate()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("infomap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: infomap [flags] <network>")
		fs.PrintDefaults()
	}

	var opts cliOptions
	fs.StringVar(&opts.configPath, "config", "", "YAML run configuration; flags given explicitly override it")
	fs.StringVar(&opts.input, "input", "", "link-list network file (or first positional argument)")
	fs.StringVar(&opts.outDir, "out", ".", "output directory")
	fs.StringVar(&opts.outName, "name", "", "base name of the reports (default: input file name)")
	fs.StringVar(&opts.formats, "formats", "tree", "comma-separated reports: tree, clu, rank, flow")
	fs.BoolVar(&opts.compress, "compress", false, "write snappy-compressed reports")
	fs.StringVar(&opts.metricsPath, "metrics", "", "write Prometheus metrics to this textfile")
	fs.DurationVar(&opts.timeout, "timeout", 0, "abort the run after this long (0 for no limit)")
	fs.BoolVar(&opts.quiet, "quiet", false, "do not print the summary")
	fs.Uint64Var(&opts.seed, "seed", uint64(infomap.DefaultConfig().Seed), "master random seed, 0 to 4294967295")

	defaults := infomap.DefaultConfig()
	var (
		trials     = fs.Int("trials", defaults.NumTrials, "number of independent trials")
		dynamics   = fs.String("dynamics", defaults.Dynamics.String(), "flow model: undirected, directed, undirdir, outdirdir, rawdir")
		connection = fs.String("connection", defaults.ConnectionType.String(), "link aggregation: edges, links, transactions")
		level      = fs.Int("level", defaults.OptimizationLevel, "optimization level, 0 (thorough) to 3 (fast)")
		fast       = fs.Int("fast", defaults.FastHierarchicalSolution, "fast hierarchical solution, 0 to 3")
		twoLevel   = fs.Bool("two-level", defaults.TwoLevel, "optimize a two-level partition only")
		selfLinks  = fs.Bool("self-links", defaults.IncludeSelfLinks, "include self links")
		teleport   = fs.Float64("teleport", defaults.TeleportationProbability, "teleportation probability of directed flow")
		recorded   = fs.Bool("recorded", defaults.RecordedTeleportation, "code teleportation steps")
		workers    = fs.Int("workers", defaults.Workers, "parallel trials (0 for GOMAXPROCS)")
		verbosity  = fs.Int("v", defaults.Verbosity, "log verbosity, 0 (warnings) to 2 (debug)")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.input == "" && fs.NArg() > 0 {
		opts.input = fs.Arg(0)
	}
	if err := opts.validate(); err != nil {
		fs.Usage()
		return err
	}

	cfg := defaults
	if opts.configPath != "" {
		loaded, err := infomap.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trials":
			cfg.NumTrials = *trials
		case "seed":
			cfg.Seed = uint32(opts.seed)
		case "dynamics":
			d, err := infomap.ParseDynamics(*dynamics)
			flagErr = errors.Join(flagErr, err)
			cfg.Dynamics = d
		case "connection":
			c, err := infomap.ParseConnectionType(*connection)
			flagErr = errors.Join(flagErr, err)
			cfg.ConnectionType = c
		case "level":
			cfg.OptimizationLevel = *level
		case "fast":
			cfg.FastHierarchicalSolution = *fast
		case "two-level":
			cfg.TwoLevel = *twoLevel
		case "self-links":
			cfg.IncludeSelfLinks = *selfLinks
		case "teleport":
			cfg.TeleportationProbability = *teleport
		case "recorded":
			cfg.RecordedTeleportation = *recorded
		case "workers":
			cfg.Workers = *workers
		case "v":
			cfg.Verbosity = *verbosity
		}
	})
	if flagErr != nil {
		return flagErr
	}

	logger := logging.NewJSONLogger(stderr, logging.LevelForVerbosity(cfg.Verbosity))
	log := logger.With(logging.Component("cli"))

	registry := metrics.NewRegistry()
	engine, err := infomap.NewEngine(cfg, infomap.WithLogger(logger), infomap.WithRecorder(registry))
	if err != nil {
		return err
	}

	net, err := loadNetwork(opts.input, cfg.Dynamics.IsDirected())
	if err != nil {
		return err
	}
	log.Info("network loaded",
		logging.Path(opts.input),
		logging.Vertices(net.NumVertices()),
		logging.Int("transactions", net.NumTransactions()))

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	res, runErr := engine.Run(ctx, net)
	if opts.metricsPath != "" {
		if err := registry.WriteToTextfile(opts.metricsPath); err != nil {
			log.Error("failed to write metrics", logging.Path(opts.metricsPath), logging.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	formats, _ := parseFormats(opts.formats)
	base := opts.outName
	if base == "" {
		base = reportBase(opts.input)
	}
	written, err := export.WriteFiles(opts.outDir, base, res, formats, opts.compress)
	if err != nil {
		return err
	}
	for _, path := range written {
		log.Debug("report written", logging.Path(path))
	}

	if !opts.quiet {
		fmt.Fprint(stdout, renderSummary(opts.input, res, written))
	}
	return nil
}

// loadNetwork reads a link list, decompressing it when the name ends in
// .snappy.
func loadNetwork(path string, directed bool) (*infomap.Network, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open network: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if export.IsCompressed(path) {
		r = export.NewCompressedReader(file)
	}
	net, err := readLinkList(r, directed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

func parseFormats(s string) ([]export.Format, error) {
	var formats []export.Format
	seen := make(map[export.Format]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := export.ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, errors.New("no report format given")
	}
	return formats, nil
}

// reportBase strips the directory and the extensions from a network path.
func reportBase(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, export.CompressedExt)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		return "network"
	}
	return base
}
