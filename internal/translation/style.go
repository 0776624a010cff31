package translation

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"reelsub/internal/services"
)

// Style selects the register of the translation.
type Style string

const (
	StyleCinematic Style = "cinematic"
	StyleLiteral   Style = "literal"
)

// Styles lists the supported styles in display order.
func Styles() []Style {
	return []Style{StyleCinematic, StyleLiteral}
}

// ParseStyle accepts a style name in any case. An empty value selects
// Cinematic.
func ParseStyle(value string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "cinematic", "natural":
		return StyleCinematic, nil
	case "literal", "precise":
		return StyleLiteral, nil
	default:
		return "", fmt.Errorf("unknown style %q (want cinematic or literal)", value)
	}
}

func (s Style) String() string {
	return string(s)
}

// Preset is the prompt and sampling configuration for one style.
type Preset struct {
	Style        Style   `yaml:"-"`
	Label        string  `yaml:"label"`
	Temperature  float64 `yaml:"temperature"`
	Instructions string  `yaml:"instructions"`
}

const formattingRules = `- Keep every subtitle index number and timing line exactly as given.
- Translate only the dialogue lines.
- Keep the same number of blocks in the same order, separated by one blank line.`

const cinematicInstructions = `- Role: You are a professional movie subtitle translator and storyteller.
- Style: Translate into natural, cinematic, conversational language, the way a movie recap narrator tells a story.
- Vocabulary: Prefer vivid, idiomatic words over plain dictionary equivalents.
- Flow: Avoid stiff or formal word-for-word phrasing.
` + formattingRules

const literalInstructions = `- Translate literally and accurately.
- Keep the register formal and precise, staying faithful to the original wording.
` + formattingRules

// temperatureBands bounds the sampling temperature each style may use.
var temperatureBands = map[Style][2]float64{
	StyleCinematic: {0.8, 0.9},
	StyleLiteral:   {0.1, 0.3},
}

// TemperatureBand returns the inclusive temperature range allowed for style.
func TemperatureBand(style Style) (low, high float64) {
	band, ok := temperatureBands[style]
	if !ok {
		return 0, 1
	}
	return band[0], band[1]
}

// Presets maps each style to its preset.
type Presets map[Style]Preset

// DefaultPresets returns the built-in presets.
func DefaultPresets() Presets {
	return Presets{
		StyleCinematic: {
			Style:        StyleCinematic,
			Label:        "Cinematic",
			Temperature:  0.9,
			Instructions: cinematicInstructions,
		},
		StyleLiteral: {
			Style:        StyleLiteral,
			Label:        "Literal",
			Temperature:  0.2,
			Instructions: literalInstructions,
		},
	}
}

// Get returns the preset for style.
func (p Presets) Get(style Style) (Preset, bool) {
	preset, ok := p[style]
	return preset, ok
}

// Sorted returns presets in Styles() order, then any others by name.
func (p Presets) Sorted() []Preset {
	out := make([]Preset, 0, len(p))
	seen := make(map[Style]struct{}, len(p))
	for _, style := range Styles() {
		if preset, ok := p[style]; ok {
			out = append(out, preset)
			seen[style] = struct{}{}
		}
	}
	var rest []Preset
	for style, preset := range p {
		if _, ok := seen[style]; !ok {
			rest = append(rest, preset)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].Style < rest[j].Style })
	return append(out, rest...)
}

// LoadPresets reads YAML overrides from path and merges them over the
// defaults. Fields left empty in the file keep their default values. An empty
// path returns the defaults.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	path = strings.TrimSpace(path)
	if path == "" {
		return presets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "load presets", "read styles file", err)
	}
	return MergePresets(presets, data)
}

// MergePresets applies YAML overrides to base.
func MergePresets(base Presets, data []byte) (Presets, error) {
	var overrides map[string]struct {
		Label        string   `yaml:"label"`
		Temperature  *float64 `yaml:"temperature"`
		Instructions string   `yaml:"instructions"`
	}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "translation", "load presets", "parse styles file", err)
	}
	merged := make(Presets, len(base))
	for style, preset := range base {
		merged[style] = preset
	}
	for name, override := range overrides {
		style, err := ParseStyle(name)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "translation", "load presets", err.Error(), nil)
		}
		preset := merged[style]
		preset.Style = style
		if label := strings.TrimSpace(override.Label); label != "" {
			preset.Label = label
		}
		if override.Temperature != nil {
			low, high := TemperatureBand(style)
			if *override.Temperature < low || *override.Temperature > high {
				return nil, services.Wrap(services.ErrConfiguration, "translation", "load presets",
					fmt.Sprintf("%s temperature %.2f outside [%.1f,%.1f]", style, *override.Temperature, low, high), nil)
			}
			preset.Temperature = *override.Temperature
		}
		if instructions := strings.TrimSpace(override.Instructions); instructions != "" {
			preset.Instructions = instructions
		}
		merged[style] = preset
	}
	return merged, nil
}
