package relevance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Group is one weighted partition of the keyword dictionary. Core Swift terms
// carry the highest multiplier, peripheral tooling the lowest.
type Group struct {
	Name     string   `yaml:"name"`
	Weight   float64  `yaml:"weight"`
	Keywords []string `yaml:"keywords"`
}

// Dictionary is the immutable keyword-weighting table handed to the scorer at
// startup. It is never mutated after load.
type Dictionary struct {
	Groups       []Group `yaml:"groups"`
	ExtractBonus float64 `yaml:"extract_bonus"`
}

// DefaultDictionary returns the built-in Swift/iOS weighting table.
func DefaultDictionary() Dictionary {
	return Dictionary{
		ExtractBonus: 1.0,
		Groups: []Group{
			{
				Name:   "core",
				Weight: 3.0,
				Keywords: []string{
					"swift", "swiftui", "ios", "objective-c", "uikit", "xcode",
				},
			},
			{
				Name:   "platform",
				Weight: 2.0,
				Keywords: []string{
					"iphone", "ipad", "macos", "watchos", "tvos", "visionos",
					"apple", "app store",
				},
			},
			{
				Name:   "framework",
				Weight: 1.5,
				Keywords: []string{
					"core data", "combine", "metal", "arkit", "coreml",
					"avfoundation", "cocoa",
				},
			},
			{
				Name:   "peripheral",
				Weight: 1.0,
				Keywords: []string{
					"mobile app", "smartphone", "llvm", "compiler", "wearable",
					"app development",
				},
			},
		},
	}
}

// LoadDictionary reads a YAML dictionary override. A missing extract_bonus
// falls back to the built-in value.
func LoadDictionary(path string) (Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dictionary{}, fmt.Errorf("read keyword dictionary: %w", err)
	}
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Dictionary{}, fmt.Errorf("parse keyword dictionary yaml: %w", err)
	}
	if d.ExtractBonus == 0 {
		d.ExtractBonus = DefaultDictionary().ExtractBonus
	}
	return d, nil
}

func (d Dictionary) contains(keyword string) bool {
	for _, g := range d.Groups {
		for _, k := range g.Keywords {
			if k == keyword {
				return true
			}
		}
	}
	return false
}
