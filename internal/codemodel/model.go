package codemodel

import "time"

// SymbolKind classifies an extracted Symbol.
type SymbolKind string

const (
	SymbolKindPackage  SymbolKind = "package"
	SymbolKindFunction SymbolKind = "function"
	SymbolKindMethod   SymbolKind = "method"
	SymbolKindType     SymbolKind = "type"
)

// Symbol is a single named entity extracted from a source file.
type Symbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Receiver  string     `json:"receiver,omitempty"`
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Exported  bool       `json:"exported"`
}

// ExtractionResult is what Extract produces for one source file, and what
// the cache package stores keyed by content hash.
type ExtractionResult struct {
	FilePath    string    `json:"file_path"`
	Language    string    `json:"language"`
	Hash        string    `json:"hash"`
	Symbols     []Symbol  `json:"symbols"`
	ExtractedAt time.Time `json:"extracted_at"`
	// ParseErrors holds non-fatal syntax errors encountered while parsing;
	// a non-empty slice does not mean Extract failed, only that the tree
	// may be partial.
	ParseErrors []string `json:"parse_errors,omitempty"`
}

// SourceFile is the work item fed into Extract: a path plus its current
// content, as produced by a one-shot tree walk (batch mode) or a debounced
// watcher.Event (server mode).
type SourceFile struct {
	Path    string
	Content []byte
}
