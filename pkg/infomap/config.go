package infomap

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-infomap/pkg/validation"
)

// ConnectionType selects how transactions between two vertices become link weights.
type ConnectionType string

const (
	// ConnectionEdges counts every distinct ordered vertex pair once.
	ConnectionEdges ConnectionType = "edges"
	// ConnectionLinks counts every distinct unordered vertex pair once.
	ConnectionLinks ConnectionType = "links"
	// ConnectionTransactions sums the weight of every transaction.
	ConnectionTransactions ConnectionType = "transactions"
)

func (c ConnectionType) String() string { return string(c) }

// ParseConnectionType parses a connection type name, ignoring case.
func ParseConnectionType(s string) (ConnectionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "edges", "edge":
		return ConnectionEdges, nil
	case "links", "link":
		return ConnectionLinks, nil
	case "transactions", "transaction", "aggregated-transaction-weight":
		return ConnectionTransactions, nil
	}
	return "", fmt.Errorf("%w: unknown connection type %q", ErrInvalidConfig, s)
}

// UnmarshalYAML accepts any spelling understood by ParseConnectionType.
func (c *ConnectionType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseConnectionType(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Dynamics selects the random walk model used to compute flow and how flow
// across module boundaries is coded.
type Dynamics string

const (
	Undirected Dynamics = "undirected"
	Directed   Dynamics = "directed"
	// UndirDir computes flow as if undirected but codes links directed.
	UndirDir Dynamics = "undirdir"
	// OutDirDir takes node flow from incoming weight and codes links in both directions.
	OutDirDir Dynamics = "outdirdir"
	// RawDir uses the normalized link weights directly as flow.
	RawDir Dynamics = "rawdir"
)

func (d Dynamics) String() string { return string(d) }

// ParseDynamics parses a dynamics name. Long descriptive names are accepted.
func ParseDynamics(s string) (Dynamics, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "undirected":
		return Undirected, nil
	case "directed":
		return Directed, nil
	case "undirdir", "undirected-flow-directed-codelength":
		return UndirDir, nil
	case "outdirdir", "incoming-flow-all-codelength":
		return OutDirDir, nil
	case "rawdir", "directed-weight-as-flow":
		return RawDir, nil
	}
	return "", fmt.Errorf("%w: unknown dynamics %q", ErrInvalidConfig, s)
}

// UnmarshalYAML accepts any spelling understood by ParseDynamics.
func (d *Dynamics) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseDynamics(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsDirected reports whether links keep their direction when aggregated.
func (d Dynamics) IsDirected() bool {
	return d != Undirected
}

// Config holds the parameters of a clustering run. A Config is a value; the
// engine keeps its own copy and never mutates it.
type Config struct {
	ConnectionType ConnectionType `yaml:"connection_type" validate:"oneof=edges links transactions"`
	Dynamics       Dynamics       `yaml:"dynamics" validate:"oneof=undirected directed undirdir outdirdir rawdir"`

	// OptimizationLevel trades quality for speed: 0 is the most thorough, 3 the fastest.
	OptimizationLevel int `yaml:"optimization_level" validate:"min=0,max=3"`

	// FastHierarchicalSolution skips parts of the hierarchical refinement:
	// 0 full refinement, 1 fast levels then refine top modules, 2 keep fast
	// levels and refine below them, 3 fast levels only.
	FastHierarchicalSolution int  `yaml:"fast_hierarchical_solution" validate:"min=0,max=3"`
	TwoLevel                 bool `yaml:"two_level"`

	NumTrials int    `yaml:"num_trials" validate:"min=1"`
	Seed      uint32 `yaml:"seed"`
	Verbosity int    `yaml:"verbosity" validate:"min=0"`

	IncludeSelfLinks         bool    `yaml:"include_self_links"`
	TeleportationProbability float64 `yaml:"teleportation_probability" validate:"gte=0,lt=1"`
	RecordedTeleportation    bool    `yaml:"recorded_teleportation"`

	MinimumCodelengthImprovement            float64 `yaml:"minimum_codelength_improvement" validate:"gte=0"`
	MinimumRelativeTuneIterationImprovement float64 `yaml:"minimum_relative_tune_iteration_improvement" validate:"gte=0"`

	FlowTolerance     float64 `yaml:"flow_tolerance" validate:"gt=0"`
	FlowMaxIterations int     `yaml:"flow_max_iterations" validate:"min=1"`

	// Workers bounds how many trials run at once. 0 uses GOMAXPROCS.
	Workers int `yaml:"workers" validate:"min=0"`
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		ConnectionType:                          ConnectionTransactions,
		Dynamics:                                Undirected,
		OptimizationLevel:                       1,
		NumTrials:                               1,
		Seed:                                    123,
		TeleportationProbability:                0.15,
		MinimumCodelengthImprovement:            1e-10,
		MinimumRelativeTuneIterationImprovement: 1e-5,
		FlowTolerance:                           1e-15,
		FlowMaxIterations:                       10000,
	}
}

// Validate checks every field of the configuration.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cv := validation.NewConfigValidator("Config").
		When(c.RecordedTeleportation, func(cv *validation.ConfigValidator) {
			cv.OneOf("dynamics", string(c.Dynamics), string(Directed))
		}).
		When(c.TwoLevel, func(cv *validation.ConfigValidator) {
			cv.RangeInt("fast_hierarchical_solution", c.FastHierarchicalSolution, 0, 0)
		})
	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Option modifies a Config under construction.
type Option func(*Config)

// NewConfig applies opts to DefaultConfig and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func WithConnectionType(t ConnectionType) Option {
	return func(c *Config) { c.ConnectionType = t }
}

func WithDynamics(d Dynamics) Option {
	return func(c *Config) { c.Dynamics = d }
}

func WithOptimizationLevel(level int) Option {
	return func(c *Config) { c.OptimizationLevel = level }
}

func WithFastHierarchicalSolution(level int) Option {
	return func(c *Config) { c.FastHierarchicalSolution = level }
}

func WithTwoLevel(twoLevel bool) Option {
	return func(c *Config) { c.TwoLevel = twoLevel }
}

func WithTrials(n int) Option {
	return func(c *Config) { c.NumTrials = n }
}

func WithSeed(seed uint32) Option {
	return func(c *Config) { c.Seed = seed }
}

func WithVerbosity(v int) Option {
	return func(c *Config) { c.Verbosity = v }
}

func WithSelfLinks(include bool) Option {
	return func(c *Config) { c.IncludeSelfLinks = include }
}

// WithTeleportation sets the teleportation probability of directed flow and
// whether teleportation steps are coded.
func WithTeleportation(probability float64, recorded bool) Option {
	return func(c *Config) {
		c.TeleportationProbability = probability
		c.RecordedTeleportation = recorded
	}
}

func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates it.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates it.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// tuning holds the optimizer parameters derived from the optimization level.
type tuning struct {
	coreLoopLimit            int // 0 means unlimited
	randomizeCoreLoopLimit   bool
	levelAggregationLimit    int // 0 means unlimited
	tuneIterationLimit       int // 0 means unlimited
	fastCoarseTunePartition  bool
	alternateCoarseTuneLevel bool
	coarseTuneLevel          int
}

func (c Config) tuning() tuning {
	t := tuning{
		coreLoopLimit:          10,
		randomizeCoreLoopLimit: true,
		coarseTuneLevel:        1,
	}
	switch c.OptimizationLevel {
	case 0:
		t.coreLoopLimit = 0
		t.randomizeCoreLoopLimit = false
		t.alternateCoarseTuneLevel = true
		t.coarseTuneLevel = 3
	case 1:
		t.fastCoarseTunePartition = true
	case 2:
		t.tuneIterationLimit = 1
		t.fastCoarseTunePartition = true
	case 3:
		t.levelAggregationLimit = 1
		t.tuneIterationLimit = 1
		t.fastCoarseTunePartition = true
	}
	return t
}
