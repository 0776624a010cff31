package language

import (
	"fmt"
	"strings"
)

// Pair is a translation direction.
type Pair struct {
	Source string
	Target string
}

// DefaultPairs are the directions offered when configuration lists none.
var DefaultPairs = []Pair{
	{Source: "en", Target: "my"},
	{Source: "ko", Target: "my"},
	{Source: "zh", Target: "my"},
	{Source: "ko", Target: "en"},
	{Source: "zh", Target: "en"},
}

// NewPair resolves both sides to ISO 639-1 codes.
func NewPair(source, target string) (Pair, error) {
	src := ToISO2(source)
	if src == "" {
		return Pair{}, fmt.Errorf("unknown source language %q", source)
	}
	dst := ToISO2(target)
	if dst == "" {
		return Pair{}, fmt.Errorf("unknown target language %q", target)
	}
	if src == dst {
		return Pair{}, fmt.Errorf("source and target language are both %q", src)
	}
	return Pair{Source: src, Target: dst}, nil
}

// ParsePair accepts "en:my", "en-my", "en>my", or "English to Myanmar".
func ParsePair(value string) (Pair, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Pair{}, fmt.Errorf("language pair is empty")
	}
	if parts := strings.SplitN(strings.ToLower(trimmed), " to ", 2); len(parts) == 2 {
		return NewPair(parts[0], parts[1])
	}
	for _, sep := range []string{":", ">", "-", "/"} {
		if parts := strings.SplitN(trimmed, sep, 2); len(parts) == 2 {
			return NewPair(parts[0], parts[1])
		}
	}
	return Pair{}, fmt.Errorf("language pair %q must look like src:dst", value)
}

// ParsePairs parses a list, dropping duplicates while keeping order.
func ParsePairs(values []string) ([]Pair, error) {
	pairs := make([]Pair, 0, len(values))
	seen := make(map[Pair]struct{}, len(values))
	for _, value := range values {
		pair, err := ParsePair(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// String renders the pair as "src:dst".
func (p Pair) String() string {
	return p.Source + ":" + p.Target
}

// SourceName returns the display name of the source language.
func (p Pair) SourceName() string {
	return DisplayName(p.Source)
}

// TargetName returns the display name of the target language.
func (p Pair) TargetName() string {
	return DisplayName(p.Target)
}

// Label renders the pair as "English to Myanmar".
func (p Pair) Label() string {
	return p.SourceName() + " to " + p.TargetName()
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool {
	return p.Source == "" && p.Target == ""
}

// Allowed reports whether pair is one of allowed. An empty allow list permits
// every pair.
func Allowed(pair Pair, allowed []Pair) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == pair {
			return true
		}
	}
	return false
}
