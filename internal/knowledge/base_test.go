package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestBuiltinFallback(t *testing.T) {
	base := New(Config{}, zap.NewNop())

	t.Run("WhitelistedDrug", func(t *testing.T) {
		if !base.IsWhitelisted("Lisinopril") {
			t.Error("Lisinopril should be whitelisted")
		}
		if !base.IsWhitelisted("heart failure") {
			t.Error("heart failure phrase should be whitelisted")
		}
		if base.IsWhitelisted("Robert") {
			t.Error("Robert should not be whitelisted")
		}
	})

	t.Run("CommonWords", func(t *testing.T) {
		if !base.IsCommonWord("the") {
			t.Error("'the' should be a common word")
		}
		if !base.IsCommonWord("Stable") {
			t.Error("'Stable' should be a common word (case-insensitive)")
		}
		if base.IsCommonWord("Williams") {
			t.Error("'Williams' should not be a common word")
		}
	})

	t.Run("SetsDisjoint", func(t *testing.T) {
		// "daily" appears in both builtin tables; whitelist wins.
		if !base.IsWhitelisted("daily") {
			t.Fatal("'daily' should be whitelisted")
		}
		if base.IsCommonWord("daily") {
			t.Error("'daily' must not also be a common word")
		}
	})
}

func TestMissingFilesFallBack(t *testing.T) {
	base := New(Config{
		WhitelistFile:   "/nonexistent/whitelist.txt",
		CommonWordsFile: "/nonexistent/common.txt",
	}, zap.NewNop())

	if !base.IsWhitelisted("metformin") {
		t.Error("builtin whitelist should be active after file load failure")
	}
	if !base.IsCommonWord("the") {
		t.Error("builtin common words should be active after file load failure")
	}
}

func TestTermFileLoading(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "whitelist.txt")
	content := "# clinical terms\nempagliflozin\nLeft Ventricular Hypertrophy\n\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write term file: %v", err)
	}

	base := New(Config{WhitelistFile: path}, zap.NewNop())

	if !base.IsWhitelisted("empagliflozin") {
		t.Error("term from file should be whitelisted")
	}
	if !base.IsWhitelisted("left ventricular hypertrophy") {
		t.Error("phrases should be lowercased on load")
	}
	if base.IsWhitelisted("# clinical terms") {
		t.Error("comment lines should be skipped")
	}
	if base.IsWhitelisted("lisinopril") {
		t.Error("builtin set should be replaced when a file loads successfully")
	}
}

func TestLooksLikeDrugBySuffix(t *testing.T) {
	base := New(Config{}, zap.NewNop())

	positive := []string{"rosuvastatin", "Telmisartan", "benazepril", "dicloxacillin", "nifedipine", "esomeprazole"}
	for _, term := range positive {
		if !base.LooksLikeDrugBySuffix(term) {
			t.Errorf("%q should look like a drug by suffix", term)
		}
	}

	negative := []string{"Williams", "Robert", "pain", "olol"}
	for _, term := range negative {
		if base.LooksLikeDrugBySuffix(term) {
			t.Errorf("%q should not look like a drug by suffix", term)
		}
	}
}

func TestLooksLikeClinicalCondition(t *testing.T) {
	base := New(Config{}, zap.NewNop())

	positive := []string{
		"Type 2 Diabetes",
		"Stage IV",
		"Chronic Kidney",
		"Severe Stenosis",
		"pancreatitis",
		"nephropathy flare",
		"anemia workup",
	}
	for _, phrase := range positive {
		if !base.LooksLikeClinicalCondition(phrase) {
			t.Errorf("%q should look like a clinical condition", phrase)
		}
	}

	negative := []string{"Robert Williams", "", "Saint Mary Hospital"}
	for _, phrase := range negative {
		if base.LooksLikeClinicalCondition(phrase) {
			t.Errorf("%q should not look like a clinical condition", phrase)
		}
	}
}

func TestContextKeywordOverride(t *testing.T) {
	base := New(Config{ContextKeywords: []string{"Oncology", "chemo"}}, zap.NewNop())

	if !base.IsContextKeyword("oncology") {
		t.Error("configured keyword should be active (lowercased)")
	}
	if base.IsContextKeyword("ecg") {
		t.Error("builtin keywords should be replaced by configured list")
	}
}
