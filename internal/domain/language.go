package domain

import "sort"

const UnknownLanguage = "Unknown"

var languages = map[string]string{
	".py":    "Python",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".jsx":   "React JSX",
	".tsx":   "React TypeScript",
	".java":  "Java",
	".cpp":   "C++",
	".c":     "C",
	".cs":    "C#",
	".go":    "Go",
	".rs":    "Rust",
	".php":   "PHP",
	".rb":    "Ruby",
	".swift": "Swift",
	".kt":    "Kotlin",
	".scala": "Scala",
	".sql":   "SQL",
	".sh":    "Shell Script",
	".bash":  "Bash Script",
	".ps1":   "PowerShell",
}

// LanguageFor maps a path's extension to a language name.
func LanguageFor(p string) (string, bool) {
	lang, ok := languages[Ext(p)]
	return lang, ok
}

// SupportedExtensions returns the extensions with a known language, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(languages))
	for ext := range languages {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
