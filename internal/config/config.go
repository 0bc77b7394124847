// Package config loads the pfis.yaml file that describes which session to
// replay and which prediction algorithms to evaluate on it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Benny93/pfis-go/internal/graph"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = "pfis.yaml"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Algorithm kinds.
const (
	KindPFIS         = "pfis"
	KindShortestPath = "shortest_path"
	KindFrequency    = "frequency"
	KindRecency      = "recency"
)

// Seeding strategies of a pfis algorithm.
const (
	SeedMethod    = "method"
	SeedHierarchy = "hierarchy"
)

// Propagation strategies of a pfis algorithm.
const (
	PropagateUniform   = "uniform"
	PropagatePhased    = "phased"
	PropagateTouchOnce = "touch_once"
)

// Config is the root of pfis.yaml.
type Config struct {
	Session    SessionConfig     `mapstructure:"session" yaml:"session"`
	Lexicon    LexiconConfig     `mapstructure:"lexicon" yaml:"lexicon"`
	Graph      GraphConfig       `mapstructure:"graph" yaml:"graph"`
	Algorithms []AlgorithmConfig `mapstructure:"algorithms" yaml:"algorithms"`
	Output     OutputConfig      `mapstructure:"output" yaml:"output"`
	Store      StoreConfig       `mapstructure:"store" yaml:"store"`
}

// SessionConfig locates the recorded session.
type SessionConfig struct {
	// DB is the PFIG sqlite database holding the logger_log table.
	DB string `mapstructure:"db" yaml:"db"`

	// ProjectSrc is the root of the project sources the session was
	// recorded against.
	ProjectSrc string `mapstructure:"project_src" yaml:"project_src,omitempty"`

	Language string `mapstructure:"language" yaml:"language"`
}

// LexiconConfig controls how text becomes word nodes.
type LexiconConfig struct {
	StopWordsFile string   `mapstructure:"stop_words_file" yaml:"stop_words_file,omitempty"`
	StopWords     []string `mapstructure:"stop_words" yaml:"stop_words,omitempty"`
	GoalWords     []string `mapstructure:"goal_words" yaml:"goal_words,omitempty"`
}

// GraphConfig controls graph construction.
type GraphConfig struct {
	VariantTopology bool `mapstructure:"variant_topology" yaml:"variant_topology"`

	// Exclude holds gitignore-style patterns of paths that are never
	// navigable patches.
	Exclude []string `mapstructure:"exclude" yaml:"exclude,omitempty"`

	ExcludeChangelog bool `mapstructure:"exclude_changelog" yaml:"exclude_changelog"`
	ExcludeOutput    bool `mapstructure:"exclude_output" yaml:"exclude_output"`
}

// AlgorithmConfig describes one evaluated algorithm.
type AlgorithmConfig struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Kind     string `mapstructure:"kind" yaml:"kind"`
	FileName string `mapstructure:"file_name" yaml:"file_name,omitempty"`

	Seeding     string `mapstructure:"seeding" yaml:"seeding,omitempty"`
	EndsOnly    bool   `mapstructure:"ends_only" yaml:"ends_only,omitempty"`
	Propagation string `mapstructure:"propagation" yaml:"propagation,omitempty"`

	DecayFactor     float64 `mapstructure:"decay_factor" yaml:"decay_factor,omitempty"`
	DecaySimilarity float64 `mapstructure:"decay_similarity" yaml:"decay_similarity,omitempty"`
	DecayVariant    float64 `mapstructure:"decay_variant" yaml:"decay_variant,omitempty"`
	DecayHistory    float64 `mapstructure:"decay_history" yaml:"decay_history,omitempty"`
	Rounds          int     `mapstructure:"rounds" yaml:"rounds,omitempty"`

	History        bool `mapstructure:"history" yaml:"history,omitempty"`
	GoalWords      bool `mapstructure:"goal_words" yaml:"goal_words,omitempty"`
	ChangelogBoost bool `mapstructure:"changelog_boost" yaml:"changelog_boost,omitempty"`

	// Relations restricts a shortest_path algorithm; empty means all.
	Relations []string `mapstructure:"relations" yaml:"relations,omitempty"`

	// VariantTopology overrides graph.variant_topology for this algorithm.
	VariantTopology *bool `mapstructure:"variant_topology" yaml:"variant_topology,omitempty"`
}

// OutputConfig controls the prediction reports.
type OutputConfig struct {
	Dir  string `mapstructure:"dir" yaml:"dir"`
	TopN int    `mapstructure:"top_n" yaml:"top_n"`
}

// StoreConfig locates the run store.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultConfig returns the configuration written by pfis init.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			DB:       "session.db",
			Language: "java",
		},
		Graph: GraphConfig{
			Exclude: []string{"**/test/**"},
		},
		Algorithms: DefaultAlgorithms(),
		Output: OutputConfig{
			Dir:  "predictions",
			TopN: 10,
		},
		Store: StoreConfig{
			Path: filepath.Join(".pfis", "badger"),
		},
	}
}

// DefaultAlgorithms returns the algorithms evaluated when none are
// configured.
func DefaultAlgorithms() []AlgorithmConfig {
	algs := []AlgorithmConfig{
		{Name: "PFIS", Kind: KindPFIS},
		{Name: "PFIS with history", Kind: KindPFIS, History: true, FileName: "pfis_history.txt"},
		{Name: "PFIS phased", Kind: KindPFIS, Propagation: PropagatePhased, FileName: "pfis_phased.txt"},
		{Name: "PFIS hierarchy", Kind: KindPFIS, Seeding: SeedHierarchy, FileName: "pfis_hierarchy.txt"},
		{Name: "PFIS touch once", Kind: KindPFIS, Propagation: PropagateTouchOnce, FileName: "pfis_touch_once.txt"},
		{Name: "Closest path", Kind: KindShortestPath, FileName: "closest_path.txt"},
		{Name: "Call path", Kind: KindShortestPath, Relations: []string{string(graph.EdgeCalls)}, FileName: "call_path.txt"},
		{Name: "Frequency", Kind: KindFrequency},
		{Name: "Recency", Kind: KindRecency},
	}
	for i := range algs {
		algs[i].applyDefaults()
	}
	return algs
}

// applyDefaults fills the zero fields of a.
func (a *AlgorithmConfig) applyDefaults() {
	if a.FileName == "" {
		a.FileName = fileNameFor(a.Name)
	}
	if a.Kind != KindPFIS {
		return
	}
	if a.Seeding == "" {
		a.Seeding = SeedMethod
	}
	if a.Propagation == "" {
		a.Propagation = PropagateUniform
	}
	if a.DecayFactor == 0 {
		a.DecayFactor = 0.85
	}
	if a.DecaySimilarity == 0 {
		a.DecaySimilarity = a.DecayFactor
	}
	if a.DecayVariant == 0 {
		a.DecayVariant = a.DecayFactor
	}
	if a.DecayHistory == 0 {
		a.DecayHistory = 0.9
	}
	if a.Rounds == 0 {
		a.Rounds = 2
	}
}

func fileNameFor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}), "_")
	if name == "" {
		name = "predictions"
	}
	return name + ".txt"
}

// UsesVariantTopology reports whether the algorithm's graph carries
// variant_of edges.
func (a AlgorithmConfig) UsesVariantTopology(g GraphConfig) bool {
	if a.VariantTopology != nil {
		return *a.VariantTopology
	}
	return g.VariantTopology
}

// EdgeTypes converts Relations to graph relations.
func (a AlgorithmConfig) EdgeTypes() []graph.EdgeType {
	rels := make([]graph.EdgeType, 0, len(a.Relations))
	for _, r := range a.Relations {
		rels = append(rels, graph.EdgeType(strings.ToLower(strings.TrimSpace(r))))
	}
	return rels
}

// Load reads the config file at path. A missing file yields the defaults.
// Values can be overridden with PFIS_ environment variables, for example
// PFIS_SESSION_DB.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PFIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if len(cfg.Algorithms) == 0 {
		cfg.Algorithms = DefaultAlgorithms()
	}
	for i := range cfg.Algorithms {
		cfg.Algorithms[i].applyDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("session.db", d.Session.DB)
	v.SetDefault("session.project_src", d.Session.ProjectSrc)
	v.SetDefault("session.language", d.Session.Language)
	v.SetDefault("lexicon.stop_words_file", "")
	v.SetDefault("graph.variant_topology", d.Graph.VariantTopology)
	v.SetDefault("graph.exclude", d.Graph.Exclude)
	v.SetDefault("graph.exclude_changelog", d.Graph.ExcludeChangelog)
	v.SetDefault("graph.exclude_output", d.Graph.ExcludeOutput)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.top_n", d.Output.TopN)
	v.SetDefault("store.path", d.Store.Path)
}

// Write saves cfg as YAML, creating parent directories.
func Write(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks the configuration. Every error wraps ErrInvalid.
func (c *Config) Validate() error {
	if c.Session.DB == "" {
		return invalid("session.db", "must not be empty")
	}
	if !strings.EqualFold(c.Session.Language, "java") {
		return invalid("session.language", fmt.Sprintf("unsupported language %q", c.Session.Language))
	}
	if c.Output.TopN < 0 {
		return invalid("output.top_n", "must not be negative")
	}
	if len(c.Algorithms) == 0 {
		return invalid("algorithms", "at least one algorithm is required")
	}

	names := make(map[string]bool)
	files := make(map[string]bool)
	for i, a := range c.Algorithms {
		field := fmt.Sprintf("algorithms[%d]", i)
		if a.Name == "" {
			return invalid(field+".name", "must not be empty")
		}
		if names[a.Name] {
			return invalid(field+".name", fmt.Sprintf("duplicate algorithm %q", a.Name))
		}
		names[a.Name] = true
		if files[a.FileName] {
			return invalid(field+".file_name", fmt.Sprintf("duplicate file %q", a.FileName))
		}
		files[a.FileName] = true

		if err := a.validate(field); err != nil {
			return err
		}
	}
	return nil
}

func (a AlgorithmConfig) validate(field string) error {
	switch a.Kind {
	case KindFrequency, KindRecency:
		return nil
	case KindShortestPath:
		known := make(map[graph.EdgeType]bool)
		for _, t := range graph.AllEdgeTypes() {
			known[t] = true
		}
		for _, rel := range a.EdgeTypes() {
			if !known[rel] {
				return invalid(field+".relations", fmt.Sprintf("unknown relation %q", rel))
			}
		}
		return nil
	case KindPFIS:
	default:
		return invalid(field+".kind", fmt.Sprintf("unknown kind %q", a.Kind))
	}

	switch a.Seeding {
	case SeedMethod, SeedHierarchy:
	default:
		return invalid(field+".seeding", fmt.Sprintf("unknown seeding %q", a.Seeding))
	}
	switch a.Propagation {
	case PropagateUniform, PropagatePhased, PropagateTouchOnce:
	default:
		return invalid(field+".propagation", fmt.Sprintf("unknown propagation %q", a.Propagation))
	}

	decays := []struct {
		name  string
		value float64
	}{
		{"decay_factor", a.DecayFactor},
		{"decay_similarity", a.DecaySimilarity},
		{"decay_variant", a.DecayVariant},
		{"decay_history", a.DecayHistory},
	}
	for _, d := range decays {
		if d.value <= 0 || d.value > 1 {
			return invalid(field+"."+d.name, "must be in (0, 1]")
		}
	}
	if a.Rounds < 1 {
		return invalid(field+".rounds", "must be at least 1")
	}
	return nil
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalid, field, msg)
}
