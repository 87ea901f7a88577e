package relevance

import "strings"

// GeneralCategory is the fallback label when no category scores positive.
const GeneralCategory = "General"

const extractOverlapBonus = 2

type categoryDef struct {
	label    string
	keywords []string
}

// Declaration order is the tie-break: the earlier category wins an equal vote.
var categoryDefs = []categoryDef{
	{"Language & Compiler", []string{"swift", "objective-c", "compiler", "llvm", "type system", "concurrency", "language"}},
	{"UI Frameworks", []string{"swiftui", "uikit", "user interface", "animation", "layout", "rendering"}},
	{"Apple Platforms", []string{"ios", "iphone", "ipad", "macos", "watchos", "tvos", "visionos", "apple"}},
	{"Developer Tools", []string{"xcode", "testing", "debugging", "ide", "build system", "app store", "static analysis"}},
	{"Machine Learning", []string{"machine learning", "coreml", "neural", "deep learning", "model", "inference"}},
}

// Categories lists the fixed label set in enumeration order, General last.
func Categories() []string {
	labels := make([]string, 0, len(categoryDefs)+1)
	for _, def := range categoryDefs {
		labels = append(labels, def.label)
	}
	return append(labels, GeneralCategory)
}

// PredictCategory votes each fixed category by occurrence count over
// title+abstract, with a bonus per overlap with the extracted keywords.
// A zero top score yields General.
func PredictCategory(title, abstract string, extracted []string) string {
	text := strings.ToLower(title + " " + abstract)

	extractedSet := make(map[string]bool, len(extracted))
	for _, k := range extracted {
		extractedSet[k] = true
	}

	best := GeneralCategory
	bestScore := 0
	for _, def := range categoryDefs {
		score := 0
		for _, keyword := range def.keywords {
			score += strings.Count(text, keyword)
			if extractedSet[keyword] {
				score += extractOverlapBonus
			}
		}
		if score > bestScore {
			bestScore = score
			best = def.label
		}
	}
	return best
}
