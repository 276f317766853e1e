package selector

import (
	"path"
	"strings"
)

var (
	entryPointNames = map[string]bool{
		"main.py": true, "index.js": true, "app.py": true,
		"server.js": true, "main.go": true, "main.java": true,
	}
	configNames = map[string]bool{
		"settings.py": true, "config.js": true,
		"webpack.config.js": true, "babel.config.js": true,
	}

	coreKeywords   = []string{"app", "application", "core", "engine", "service"}
	apiKeywords    = []string{"api", "route", "endpoint", "controller"}
	modelKeywords  = []string{"model", "schema", "entity"}
	utilKeywords   = []string{"util", "helper"}
	testKeywords   = []string{"test", "spec"}
	structuralHint = []string{"class ", "function ", "def ", "async ", "await", "interface", "abstract", "extends", "implements"}
)

// Score bonuses. The magnitudes are fixed policy.
const (
	FocusBonus      = 1000
	EntryPointBonus = 500
	CoreBonus       = 300
	APIBonus        = 250
	ModelBonus      = 200
	ConfigBonus     = 200
	UtilBonus       = 150
	TestBonus       = 100
	ExtensionBonus  = 100
	RootBonus       = 100
	StructureBonus  = 75
)

// Score ranks a file for analysis. It is a pure function of its inputs.
func Score(p, content string, focus, extensions map[string]bool) int {
	p = strings.ReplaceAll(p, "\\", "/")
	name := strings.ToLower(path.Base(p))
	ext := strings.ToLower(path.Ext(name))

	score := 0
	if focus[p] {
		score += FocusBonus
	}
	if entryPointNames[name] {
		score += EntryPointBonus
	}
	if containsAny(name, coreKeywords) {
		score += CoreBonus
	}
	if configNames[name] {
		score += ConfigBonus
	}
	if containsAny(name, utilKeywords) {
		score += UtilBonus
	}
	if containsAny(name, apiKeywords) {
		score += APIBonus
	}
	if containsAny(name, modelKeywords) {
		score += ModelBonus
	}
	if containsAny(name, testKeywords) {
		score += TestBonus
	}
	if extensions[ext] {
		score += ExtensionBonus
	}

	lines := strings.Count(content, "\n") + 1
	switch {
	case lines >= 20 && lines <= 200:
		score += 50
	case lines > 200 && lines <= 500:
		score += 25
	case lines > 500:
		score -= 25
	}

	if containsAny(strings.ToLower(content), structuralHint) {
		score += StructureBonus
	}

	if !strings.Contains(strings.Trim(p, "/"), "/") {
		score += RootBonus
	}

	return score
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
