package storage

import (
	"regexp"
	"sort"
	"strings"
)

var (
	regexSeparators = regexp.MustCompile(`[^A-Za-z0-9$]+`)
	regexCamel      = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// tokenize splits a location or query into lowercase search tokens.
// Handles camelCase, slash and dot paths and Java descriptors.
func tokenize(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	add := func(tok string) {
		tok = strings.ToLower(tok)
		if len(tok) < 2 || seen[tok] {
			return
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}

	for _, part := range regexSeparators.Split(text, -1) {
		if part == "" {
			continue
		}
		add(part)
		// "UserService" -> "User", "Service"
		for _, sub := range strings.Fields(regexCamel.ReplaceAllString(part, "$1 $2")) {
			add(sub)
		}
	}
	return tokens
}

// matchResults scores every prediction of results against query. A
// prediction scores one point per query token found among the tokens of its
// source and target.
func matchResults(runID string, results []Result, query []string) []PredictionHit {
	var hits []PredictionHit
	for _, r := range results {
		for _, p := range r.Predictions {
			locTokens := make(map[string]bool)
			for _, tok := range tokenize(p.From + " " + p.To) {
				locTokens[tok] = true
			}
			score := 0.0
			for _, q := range query {
				if locTokens[q] {
					score++
				}
			}
			if score > 0 {
				hits = append(hits, PredictionHit{
					RunID:      runID,
					Algorithm:  r.Algorithm,
					Score:      score,
					Prediction: p,
				})
			}
		}
	}
	return hits
}

// rankHits sorts hits by score, then run, algorithm and navigation, and
// applies limit.
func rankHits(hits []PredictionHit, limit int) []PredictionHit {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.RunID != b.RunID {
			return a.RunID < b.RunID
		}
		if a.Algorithm != b.Algorithm {
			return a.Algorithm < b.Algorithm
		}
		return a.Prediction.NavIndex < b.Prediction.NavIndex
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
