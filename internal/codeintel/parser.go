// Package codeintel implements spec §4.F: per-language symbol/call-edge
// extraction (go/ast for Go, tree-sitter for the rest), the bounded-worker
// index_path pipeline, call graph traversal, and semantic_code_search with
// lexical fallback.
package codeintel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Symbol is a parsed declaration, ready for storage as store.CodeSymbol
// once assigned an id and indexed_at.
type Symbol struct {
	Kind      string // function, struct, class, enum, trait, interface, method
	Name      string
	Signature string
	StartLine int
	EndLine   int
}

// Call is a reference from one symbol's body to a callee name. Resolution
// to a callee symbol id happens in the indexer once all of a file's
// symbols are known.
type Call struct {
	CallerName string
	CalleeName string
	Line       int
}

// ParseResult is everything extracted from one file.
type ParseResult struct {
	Symbols []Symbol
	Calls   []Call
}

// LanguageForExt maps a file extension to the language name used
// throughout codeintel and in store.CodeSymbol.Language. Returns "" for
// unsupported extensions.
func LanguageForExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".ts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".js", ".jsx":
		return "javascript"
	default:
		return ""
	}
}

// Parse parses content as the given language and extracts symbols and call
// references. Go is parsed with go/ast for full precision; every other
// supported language goes through tree-sitter. Returns an error for an
// unsupported language.
func Parse(ctx context.Context, lang string, content []byte) (ParseResult, error) {
	if lang == "go" {
		return parseGo(content)
	}

	sl := sitterLanguage(lang)
	if sl == nil {
		return ParseResult{}, fmt.Errorf("codeintel: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(sl)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return ParseResult{}, fmt.Errorf("codeintel: parse: %w", err)
	}
	defer tree.Close()

	ex := &extractor{lang: lang, src: content}
	ex.walk(tree.RootNode(), "")
	return ParseResult{Symbols: ex.symbols, Calls: ex.calls}, nil
}

func sitterLanguage(lang string) *sitter.Language {
	switch lang {
	case "python":
		return python.GetLanguage()
	case "rust":
		return rust.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "tsx":
		return tsx.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// extractor walks a tree-sitter tree once, collecting declarations by
// node-type name per language family, generalizing the per-language
// walkers teacher code uses into one table-driven pass.
type extractor struct {
	lang    string
	src     []byte
	symbols []Symbol
	calls   []Call
}

func (e *extractor) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(e.src)
}

func (e *extractor) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

func (e *extractor) endLine(n *sitter.Node) int {
	return int(n.EndPoint().Row) + 1
}

// walk recursively visits n, recording declarations and call expressions.
// enclosingName is the name of the symbol whose body currently contains n,
// used to attribute call edges to their caller.
func (e *extractor) walk(n *sitter.Node, enclosingName string) {
	if n == nil {
		return
	}

	nodeType := n.Type()
	nextEnclosing := enclosingName

	switch e.lang {
	case "python":
		switch nodeType {
		case "function_definition":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				qualified := name
				if enclosingName != "" {
					qualified = enclosingName + "." + name
				}
				e.symbols = append(e.symbols, Symbol{
					Kind: pyKind(enclosingName), Name: qualified,
					Signature: "def " + name + e.text(n.ChildByFieldName("parameters")),
					StartLine: e.line(n), EndLine: e.endLine(n),
				})
				nextEnclosing = qualified
			}
		case "class_definition":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				e.symbols = append(e.symbols, Symbol{
					Kind: "class", Name: name, Signature: "class " + name,
					StartLine: e.line(n), EndLine: e.endLine(n),
				})
				nextEnclosing = name
			}
		case "call":
			if callee := e.calleeName(n.ChildByFieldName("function")); callee != "" {
				e.calls = append(e.calls, Call{CallerName: enclosingName, CalleeName: callee, Line: e.line(n)})
			}
		}

	case "rust":
		switch nodeType {
		case "function_item":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				qualified := name
				if enclosingName != "" {
					qualified = enclosingName + "::" + name
				}
				e.symbols = append(e.symbols, Symbol{
					Kind: "function", Name: qualified,
					Signature: "fn " + name + e.text(n.ChildByFieldName("parameters")),
					StartLine: e.line(n), EndLine: e.endLine(n),
				})
				nextEnclosing = qualified
			}
		case "struct_item":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				e.symbols = append(e.symbols, Symbol{Kind: "struct", Name: name, Signature: "struct " + name, StartLine: e.line(n), EndLine: e.endLine(n)})
			}
		case "trait_item":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				e.symbols = append(e.symbols, Symbol{Kind: "trait", Name: name, Signature: "trait " + name, StartLine: e.line(n), EndLine: e.endLine(n)})
				nextEnclosing = name
			}
		case "impl_item":
			if typeNode := n.ChildByFieldName("type"); typeNode != nil {
				nextEnclosing = e.text(typeNode)
			}
		case "call_expression":
			if callee := e.calleeName(n.ChildByFieldName("function")); callee != "" {
				e.calls = append(e.calls, Call{CallerName: enclosingName, CalleeName: callee, Line: e.line(n)})
			}
		}

	case "typescript", "tsx", "javascript":
		switch nodeType {
		case "function_declaration":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				e.symbols = append(e.symbols, Symbol{
					Kind: "function", Name: name,
					Signature: "function " + name + e.text(n.ChildByFieldName("parameters")),
					StartLine: e.line(n), EndLine: e.endLine(n),
				})
				nextEnclosing = name
			}
		case "method_definition":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				qualified := name
				if enclosingName != "" {
					qualified = enclosingName + "." + name
				}
				e.symbols = append(e.symbols, Symbol{
					Kind: "method", Name: qualified,
					Signature: "method " + name + e.text(n.ChildByFieldName("parameters")),
					StartLine: e.line(n), EndLine: e.endLine(n),
				})
				nextEnclosing = qualified
			}
		case "class_declaration":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				e.symbols = append(e.symbols, Symbol{Kind: "class", Name: name, Signature: "class " + name, StartLine: e.line(n), EndLine: e.endLine(n)})
				nextEnclosing = name
			}
		case "interface_declaration":
			if name := e.text(n.ChildByFieldName("name")); name != "" {
				e.symbols = append(e.symbols, Symbol{Kind: "interface", Name: name, Signature: "interface " + name, StartLine: e.line(n), EndLine: e.endLine(n)})
			}
		case "call_expression":
			if callee := e.calleeName(n.ChildByFieldName("function")); callee != "" {
				e.calls = append(e.calls, Call{CallerName: enclosingName, CalleeName: callee, Line: e.line(n)})
			}
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		e.walk(n.NamedChild(i), nextEnclosing)
	}
}

// calleeName resolves a call expression's function node to a bare name,
// stripping receiver/module qualification down to the trailing identifier
// so it can be matched against indexed symbol names. A missing callee
// (dynamic dispatch, computed member access) yields "" and produces no
// edge, per spec §4.F.
func (e *extractor) calleeName(fn *sitter.Node) string {
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier", "field_identifier", "property_identifier", "shorthand_property_identifier":
		return e.text(fn)
	case "selector_expression", "member_expression", "field_expression", "attribute":
		if field := fn.ChildByFieldName("field"); field != nil {
			return e.text(field)
		}
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return e.text(prop)
		}
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			return e.text(attr)
		}
		return ""
	default:
		return ""
	}
}

func pyKind(enclosingName string) string {
	if enclosingName != "" {
		return "method"
	}
	return "function"
}
