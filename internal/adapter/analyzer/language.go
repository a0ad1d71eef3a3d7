package analyzer

import (
	"path/filepath"
	"strings"
)

var languages = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "tsx",
	".java":  "java",
	".kt":    "kotlin",
	".scala": "scala",
	".swift": "swift",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".html":  "html",
	".css":   "css",
	".sql":   "sql",
	".sh":    "bash",
	".bash":  "bash",
	".md":    "markdown",
	".txt":   "text",
	".rst":   "text",
	".adoc":  "text",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
}

var textExtensions = map[string]struct{}{
	".md": {}, ".txt": {}, ".rst": {}, ".adoc": {},
}

var codeExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".js": {}, ".jsx": {}, ".mjs": {}, ".ts": {}, ".tsx": {},
	".java": {}, ".kt": {}, ".scala": {}, ".swift": {}, ".c": {}, ".h": {},
	".cpp": {}, ".cc": {}, ".hpp": {}, ".cs": {}, ".rs": {}, ".rb": {},
	".php": {}, ".html": {}, ".css": {}, ".sql": {}, ".sh": {}, ".bash": {},
}

// Extension returns the lowercased extension of path including the dot.
func Extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// DetectLanguage returns the language for a path, or "unknown".
func DetectLanguage(path string) string {
	if lang, ok := languages[Extension(path)]; ok {
		return lang
	}
	return "unknown"
}

// IsText reports whether path is a prose file.
func IsText(path string) bool {
	_, ok := textExtensions[Extension(path)]
	return ok
}

// IsCode reports whether path is a source file.
func IsCode(path string) bool {
	_, ok := codeExtensions[Extension(path)]
	return ok
}
