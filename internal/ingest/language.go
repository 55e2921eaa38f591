package ingest

import "strings"

// UnknownLanguage is the label for files whose extension is not recognized.
const UnknownLanguage = "Unknown"

// languageByExtension is the closed extension -> language table. Lookups are
// case-insensitive on the extension; anything outside the table is Unknown.
var languageByExtension = map[string]string{
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".mjs":   "JavaScript",
	".cjs":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".py":    "Python",
	".go":    "Go",
	".java":  "Java",
	".rb":    "Ruby",
	".php":   "PHP",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cc":    "C++",
	".hpp":   "C++",
	".cs":    "C#",
	".rs":    "Rust",
	".kt":    "Kotlin",
	".kts":   "Kotlin",
	".swift": "Swift",
	".scala": "Scala",
	".sh":    "Shell",
	".bash":  "Shell",
	".sql":   "SQL",
	".html":  "HTML",
	".htm":   "HTML",
	".css":   "CSS",
	".scss":  "SCSS",
	".json":  "JSON",
	".yaml":  "YAML",
	".yml":   "YAML",
	".toml":  "TOML",
	".xml":   "XML",
	".md":    "Markdown",
}

// LanguageFor maps a file extension (with leading dot, any case) to a
// human-readable language label. Unrecognized or empty extensions map to
// UnknownLanguage.
func LanguageFor(ext string) string {
	if lang, ok := languageByExtension[strings.ToLower(ext)]; ok {
		return lang
	}
	return UnknownLanguage
}
