package seed

import (
	_ "embed"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yml
var builtinPresets []byte

// Preset describes the shape of a generated social graph.
type Preset struct {
	Profiles           int      `yaml:"profiles"`
	PostsPerProfile    int      `yaml:"posts_per_profile"`
	LikeProbability    float64  `yaml:"like_probability"`
	MaxCommentsPerPost int      `yaml:"max_comments_per_post"`
	Universities       []string `yaml:"universities"`
	Languages          []string `yaml:"languages"`
	// Seed makes a run reproducible; zero picks a time-based seed.
	Seed int64 `yaml:"seed"`
}

var defaultUniversities = []string{
	"University of Lagos", "TU Berlin", "University of Toronto", "Sorbonne Université",
}

var defaultLanguages = []string{
	"English", "French", "German", "Spanish", "Portuguese",
}

func (p *Preset) validate() error {
	if p.Profiles < 2 {
		return fmt.Errorf("profiles must be at least 2, got %d", p.Profiles)
	}
	if p.PostsPerProfile < 0 || p.MaxCommentsPerPost < 0 {
		return fmt.Errorf("posts_per_profile and max_comments_per_post must not be negative")
	}
	if p.LikeProbability < 0 || p.LikeProbability > 1 {
		return fmt.Errorf("like_probability must be between 0 and 1, got %v", p.LikeProbability)
	}
	if len(p.Universities) == 0 {
		p.Universities = defaultUniversities
	}
	if len(p.Languages) == 0 {
		p.Languages = defaultLanguages
	}
	return nil
}

// LoadPresets decodes a YAML document mapping preset names to presets.
func LoadPresets(r io.Reader) (map[string]Preset, error) {
	presets := make(map[string]Preset)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&presets); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	for name, p := range presets {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		presets[name] = p
	}
	return presets, nil
}

// BuiltinPresets returns the presets shipped with the binary.
func BuiltinPresets() map[string]Preset {
	var presets map[string]Preset
	if err := yaml.Unmarshal(builtinPresets, &presets); err != nil {
		panic(fmt.Sprintf("seed: invalid embedded presets: %v", err))
	}
	for name, p := range presets {
		if err := p.validate(); err != nil {
			panic(fmt.Sprintf("seed: invalid embedded preset %q: %v", name, err))
		}
		presets[name] = p
	}
	return presets
}

// PresetNames lists preset names in stable order.
func PresetNames(presets map[string]Preset) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
