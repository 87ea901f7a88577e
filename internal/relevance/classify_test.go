package relevance

import "testing"

func TestPredictCategoryGeneralFallback(t *testing.T) {
	got := PredictCategory("Graph Coloring", "Chromatic numbers of random graphs.", nil)
	if got != GeneralCategory {
		t.Fatalf("expected %s, got %s", GeneralCategory, got)
	}
}

func TestPredictCategoryDetectsDominantVocabulary(t *testing.T) {
	cases := []struct {
		title    string
		abstract string
		want     string
	}{
		{"SwiftUI Layout", "Declarative user interface rendering with animation.", "UI Frameworks"},
		{"On-Device Inference", "A neural model compressed for deep learning inference.", "Machine Learning"},
		{"Debugging in Xcode", "Static analysis and testing inside the ide.", "Developer Tools"},
	}
	for _, tc := range cases {
		if got := PredictCategory(tc.title, tc.abstract, nil); got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.title, tc.want, got)
		}
	}
}

func TestPredictCategoryTieFavorsEarlierCategory(t *testing.T) {
	// "compiler" votes Language & Compiler, "rendering" votes UI Frameworks,
	// one apiece. The earlier declaration wins the tie.
	got := PredictCategory("compiler rendering", "", nil)
	if got != "Language & Compiler" {
		t.Fatalf("expected Language & Compiler on tie, got %s", got)
	}
}

func TestPredictCategoryExtractedOverlapBreaksTie(t *testing.T) {
	// Same tie as above, but "rendering" among the extracted keywords tips
	// the vote to UI Frameworks.
	got := PredictCategory("compiler rendering", "", []string{"rendering"})
	if got != "UI Frameworks" {
		t.Fatalf("expected UI Frameworks with extracted overlap, got %s", got)
	}
}

func TestCategoriesEndsWithGeneral(t *testing.T) {
	labels := Categories()
	if len(labels) != len(categoryDefs)+1 {
		t.Fatalf("expected %d labels, got %d", len(categoryDefs)+1, len(labels))
	}
	if labels[len(labels)-1] != GeneralCategory {
		t.Fatalf("expected General last, got %s", labels[len(labels)-1])
	}
}
