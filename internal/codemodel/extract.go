package codemodel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kanalyze-tools/kanalyze/internal/cache"
	"github.com/kanalyze-tools/kanalyze/internal/metrics"
)

// Extractor builds an ExtractionResult for a SourceFile, consulting a
// cache.Cache by content hash before parsing.
type Extractor struct {
	cache cache.Cache
}

// NewExtractor constructs an Extractor backed by c. A nil c disables
// caching entirely (every file is parsed).
func NewExtractor(c cache.Cache) *Extractor {
	return &Extractor{cache: c}
}

// Extract is the pipeline transform: it never returns an error for a file
// that simply fails to parse cleanly — tree-sitter is error-tolerant, and a
// syntax error surfaces as a ParseErrors entry on the result, not as a
// panic or an error return. It does panic if content cannot be processed
// at all (e.g. the language grammar itself misbehaves), which the pipeline
// worker recovers from and counts as a dropped item.
func (e *Extractor) Extract(f SourceFile) ExtractionResult {
	hash := contentHash(f.Content)

	if e.cache != nil {
		if raw, ok := e.cache.Get(hash); ok {
			metrics.CacheHitsTotal.Inc()
			var cached ExtractionResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached
			}
			slog.Warn("codemodel: discarding unreadable cache entry", "hash", hash)
		} else {
			metrics.CacheMissesTotal.Inc()
		}
	}

	result := e.parse(f, hash)

	if e.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			if err := e.cache.Put(hash, raw); err != nil {
				slog.Warn("codemodel: failed to populate cache", "hash", hash, "error", err)
			}
		}
	}

	return result
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (e *Extractor) parse(f SourceFile, hash string) ExtractionResult {
	lang, name := languageFor(f.Path)

	result := ExtractionResult{
		FilePath:    f.Path,
		Language:    name,
		Hash:        hash,
		ExtractedAt: time.Now(),
	}

	if lang == nil {
		result.ParseErrors = append(result.ParseErrors, fmt.Sprintf("no grammar registered for %q", filepath.Ext(f.Path)))
		return result
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, f.Content)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, err.Error())
		return result
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		result.ParseErrors = append(result.ParseErrors, "tree-sitter returned no root node")
		return result
	}
	if root.HasError() {
		result.ParseErrors = append(result.ParseErrors, "source contains syntax errors")
	}

	result.Symbols = walkGoSymbols(root, f.Content)
	return result
}

// languageFor selects a tree-sitter grammar by file extension. Only Go is
// wired to a real grammar; other extensions degrade to a recorded parse
// error rather than a panic, since go-tree-sitter's Go binding is the only
// grammar import this module carries.
func languageFor(path string) (*sitter.Language, string) {
	switch filepath.Ext(path) {
	case ".go":
		return golang.GetLanguage(), "go"
	default:
		return nil, "unknown"
	}
}

func walkGoSymbols(root *sitter.Node, content []byte) []Symbol {
	var symbols []Symbol

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "package_clause":
			if sym := packageSymbol(child, content); sym != nil {
				symbols = append(symbols, *sym)
			}
		case "function_declaration":
			symbols = append(symbols, functionSymbol(child, content))
		case "method_declaration":
			symbols = append(symbols, methodSymbol(child, content))
		case "type_declaration":
			symbols = append(symbols, typeSymbols(child, content)...)
		}
	}

	return symbols
}

func packageSymbol(node *sitter.Node, content []byte) *Symbol {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "package_identifier" {
			return &Symbol{
				Name:      text(child, content),
				Kind:      SymbolKindPackage,
				StartLine: line(node),
				EndLine:   line(node),
				Exported:  true,
			}
		}
	}
	return nil
}

func functionSymbol(node *sitter.Node, content []byte) Symbol {
	name := fieldText(node, "name", content)
	return Symbol{
		Name:      name,
		Kind:      SymbolKindFunction,
		StartLine: line(node),
		EndLine:   int(node.EndPoint().Row) + 1,
		Exported:  isExported(name),
	}
}

func methodSymbol(node *sitter.Node, content []byte) Symbol {
	name := fieldText(node, "name", content)
	receiver := ""
	if recvNode := node.ChildByFieldName("receiver"); recvNode != nil {
		receiver = extractReceiverType(recvNode, content)
	}
	return Symbol{
		Name:      name,
		Kind:      SymbolKindMethod,
		Receiver:  receiver,
		StartLine: line(node),
		EndLine:   int(node.EndPoint().Row) + 1,
		Exported:  isExported(name),
	}
}

func typeSymbols(node *sitter.Node, content []byte) []Symbol {
	var out []Symbol
	for i := 0; i < int(node.ChildCount()); i++ {
		spec := node.Child(i)
		if spec.Type() != "type_spec" {
			continue
		}
		name := fieldText(spec, "name", content)
		if name == "" {
			continue
		}
		out = append(out, Symbol{
			Name:      name,
			Kind:      SymbolKindType,
			StartLine: line(spec),
			EndLine:   int(spec.EndPoint().Row) + 1,
			Exported:  isExported(name),
		})
	}
	return out
}

func extractReceiverType(paramList *sitter.Node, content []byte) string {
	for i := 0; i < int(paramList.ChildCount()); i++ {
		child := paramList.Child(i)
		if child.Type() == "parameter_declaration" {
			typeNode := child.ChildByFieldName("type")
			if typeNode != nil {
				return text(typeNode, content)
			}
		}
	}
	return ""
}

func fieldText(node *sitter.Node, field string, content []byte) string {
	n := node.ChildByFieldName(field)
	if n == nil {
		return ""
	}
	return text(n, content)
}

func text(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

func line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

func isExported(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}
