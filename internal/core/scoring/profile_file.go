package scoring

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type profileFile struct {
	CategoryWeights   map[string]float64 `yaml:"category_weights"`
	HighIntentSignals []string           `yaml:"high_intent_signals"`
	MidIntentSignals  []string           `yaml:"mid_intent_signals"`
}

// LoadProfile reads a YAML override of the built-in tables. Category weights
// are merged over the defaults; a lexicon present in the file replaces the
// default one. An empty path yields DefaultProfile.
func LoadProfile(path string) (Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultProfile(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read scoring profile: %w", err)
	}
	return ParseProfile(raw)
}

func ParseProfile(raw []byte) (Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Profile{}, fmt.Errorf("decode scoring profile: %w", err)
	}

	weights := maps.Clone(defaultCategoryWeights)
	for category, w := range file.CategoryWeights {
		if w < 0 || w > 1 {
			return Profile{}, fmt.Errorf("scoring profile: weight for %q out of [0,1]: %v", category, w)
		}
		weights[strings.TrimSpace(category)] = w
	}

	high := defaultHighIntentSignals
	if file.HighIntentSignals != nil {
		high = file.HighIntentSignals
	}
	mid := defaultMidIntentSignals
	if file.MidIntentSignals != nil {
		mid = file.MidIntentSignals
	}
	if len(normalizeSignals(high)) == 0 {
		return Profile{}, errors.New("scoring profile: high intent lexicon is empty")
	}
	return NewProfile(weights, high, mid), nil
}
