package session

import (
	"fmt"
	"strings"

	"github.com/Benny93/pfis-go/internal/compiler"
	"github.com/Benny93/pfis-go/internal/config"
	"github.com/Benny93/pfis-go/internal/lang"
	"github.com/Benny93/pfis-go/internal/lexicon"
	"github.com/Benny93/pfis-go/internal/predict"
)

// Algorithm is a configured predictor together with the graph it runs on
// and the report file it writes.
type Algorithm struct {
	predict.Algorithm

	FileName string
	Graph    compiler.Options
}

// BuildAlgorithms turns the algorithm section of cfg into predictors.
func BuildAlgorithms(cfg *config.Config, helper lang.Helper, tokenizer *lexicon.Tokenizer) ([]Algorithm, error) {
	goalWords := GoalWordNodes(tokenizer, cfg.Lexicon.GoalWords)
	topN := cfg.Output.TopN

	algs := make([]Algorithm, 0, len(cfg.Algorithms))
	for _, a := range cfg.Algorithms {
		var p predict.Algorithm
		switch a.Kind {
		case config.KindPFIS:
			spreader, err := buildSpreader(a, helper, goalWords, topN)
			if err != nil {
				return nil, err
			}
			p = spreader
		case config.KindShortestPath:
			p = predict.NewShortestPath(a.Name, a.EdgeTypes(), topN)
		case config.KindFrequency:
			p = predict.NewFrequency(a.Name, topN)
		case config.KindRecency:
			p = predict.NewRecency(a.Name, topN)
		default:
			return nil, fmt.Errorf("algorithm %s: %w: unknown kind %q", a.Name, config.ErrInvalid, a.Kind)
		}

		algs = append(algs, Algorithm{
			Algorithm: p,
			FileName:  a.FileName,
			Graph:     compiler.Options{VariantTopology: a.UsesVariantTopology(cfg.Graph)},
		})
	}
	return algs, nil
}

func buildSpreader(a config.AlgorithmConfig, helper lang.Helper, goalWords []string, topN int) (*predict.Spreader, error) {
	sc := predict.SpreadConfig{
		DecayFactor:        a.DecayFactor,
		DecaySimilarity:    a.DecaySimilarity,
		DecayVariant:       a.DecayVariant,
		DecayHistory:       a.DecayHistory,
		Rounds:             a.Rounds,
		UseHistory:         a.History,
		UseGoalWords:       a.GoalWords,
		ChangelogGoalBoost: a.ChangelogBoost,
		TopN:               topN,
	}
	if a.GoalWords || a.ChangelogBoost {
		sc.GoalWords = goalWords
	}

	var seeder predict.Seeder
	switch a.Seeding {
	case config.SeedMethod:
		seeder = predict.MethodSeeder{}
	case config.SeedHierarchy:
		seeder = predict.HierarchySeeder{Helper: helper, EndsOnly: a.EndsOnly}
	default:
		return nil, fmt.Errorf("algorithm %s: %w: unknown seeding %q", a.Name, config.ErrInvalid, a.Seeding)
	}

	var propagator predict.Propagator
	switch a.Propagation {
	case config.PropagateUniform:
		propagator = predict.Uniform{}
	case config.PropagatePhased:
		propagator = predict.Phased{}
	case config.PropagateTouchOnce:
		propagator = predict.TouchOnce{}
	default:
		return nil, fmt.Errorf("algorithm %s: %w: unknown propagation %q", a.Name, config.ErrInvalid, a.Propagation)
	}

	return predict.NewSpreader(a.Name, helper, sc, seeder, propagator), nil
}

// GoalWordNodes returns the word nodes a list of goal words can match: each
// word lowercased as written and in its stemmed camel-split form.
func GoalWordNodes(tokenizer *lexicon.Tokenizer, words []string) []string {
	seen := make(map[string]bool)
	var nodes []string
	add := func(w string) {
		if w != "" && !seen[w] {
			seen[w] = true
			nodes = append(nodes, w)
		}
	}
	for _, w := range words {
		add(strings.ToLower(strings.TrimSpace(w)))
		for _, stem := range tokenizer.SplitCamelStem(w) {
			add(stem)
		}
	}
	return nodes
}

// NewTokenizer builds the tokenizer from the inline stop words and the
// optional stop-word file.
func NewTokenizer(cfg config.LexiconConfig) (*lexicon.Tokenizer, error) {
	stopWords := append([]string(nil), cfg.StopWords...)
	if cfg.StopWordsFile != "" {
		fromFile, err := lexicon.LoadStopWords(cfg.StopWordsFile)
		if err != nil {
			return nil, err
		}
		stopWords = append(stopWords, fromFile...)
	}
	return lexicon.NewTokenizer(stopWords), nil
}

// NewHelper returns the language helper for cfg.
func NewHelper(cfg *config.Config) (lang.Helper, error) {
	switch strings.ToLower(cfg.Session.Language) {
	case "java":
		return lang.NewJavaHelper(cfg.Graph.Exclude), nil
	default:
		return nil, fmt.Errorf("%w: unsupported language %q", config.ErrInvalid, cfg.Session.Language)
	}
}
