package config

import (
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	mirrorerrors "github.com/zmirror/zmirror/internal/errors"
	"github.com/zmirror/zmirror/internal/logging"
)

// Load reads filename as YAML, merges it over Default(), validates it, and
// warns about unrecognized top-level keys with a best-match suggestion
// (spec.md §6). If filename does not exist, Default() is returned unchanged.
func Load(filename string, logger *logging.Logger) (*Config, *ValidationResult, error) {
	cfg := Default()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		if logger != nil {
			logger.ConfigLoaded("<defaults>")
		}
		result := Validate(cfg)
		return cfg, result, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, mirrorerrors.NewConfig("failed to read config file", err)
	}

	warnUnknownKeys(data, logger)

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, mirrorerrors.NewConfig("failed to parse config file", err)
	}

	cfg.buildDerivedSets()

	if logger != nil {
		logger.ConfigLoaded(filename)
	}

	result := Validate(cfg)
	return cfg, result, nil
}

// knownTopLevelKeys returns the set of yaml tag names for Config's direct
// fields, used both for unknown-key suggestions and for future schema docs.
func knownTopLevelKeys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.SplitN(tag, ",", 2)[0]
		keys = append(keys, name)
	}
	return keys
}

// warnUnknownKeys decodes data as a generic map and flags any top-level key
// that isn't a known Config field, logging the closest known key by
// character-overlap score (spec.md §6: "score = fraction of input chars
// present in a candidate; threshold 0.6").
func warnUnknownKeys(data []byte, logger *logging.Logger) {
	if logger == nil {
		return
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return
	}

	known := knownTopLevelKeys()
	for key := range raw {
		if containsString(known, key) {
			continue
		}
		suggestion, score := bestMatch(key, known)
		if score >= 0.6 {
			logger.UnknownConfigKey(key, suggestion, score)
		} else {
			logger.UnknownConfigKey(key, "", score)
		}
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// bestMatch scores every candidate as the fraction of input's characters
// that also appear in the candidate, and returns the highest-scoring one.
func bestMatch(input string, candidates []string) (string, float64) {
	var best string
	var bestScore float64
	for _, c := range candidates {
		score := charOverlapScore(input, c)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best, bestScore
}

// charOverlapScore is the fraction of input's runes that are present
// (counting multiplicity, order-independent) in candidate.
func charOverlapScore(input, candidate string) float64 {
	if len(input) == 0 {
		return 0
	}
	available := make(map[rune]int)
	for _, r := range candidate {
		available[r]++
	}
	matched := 0
	for _, r := range input {
		if available[r] > 0 {
			available[r]--
			matched++
		}
	}
	return float64(matched) / float64(len([]rune(input)))
}
