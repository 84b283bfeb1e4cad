package codeintel

import (
	"go/ast"
	"go/parser"
	"go/token"
)

// parseGo extracts symbols and call edges from Go source using the
// standard library's parser, matching the declaration-walk structure of
// codenerd's GoCodeParser but additionally tracking call expressions to
// build call edges.
func parseGo(content []byte) (ParseResult, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", content, parser.ParseComments)
	if err != nil {
		return ParseResult{}, err
	}

	pos := func(p token.Pos) int { return fset.Position(p).Line }

	var result ParseResult
	funcBodyRanges := map[string]*ast.FuncDecl{}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) > 0 {
				name = receiverTypeName(d.Recv.List[0].Type) + "." + d.Name.Name
				result.Symbols = append(result.Symbols, Symbol{
					Kind: "method", Name: name, Signature: goFuncSignature(d),
					StartLine: pos(d.Pos()), EndLine: pos(d.End()),
				})
			} else {
				result.Symbols = append(result.Symbols, Symbol{
					Kind: "function", Name: name, Signature: goFuncSignature(d),
					StartLine: pos(d.Pos()), EndLine: pos(d.End()),
				})
			}
			funcBodyRanges[name] = d

		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				kind := "type"
				switch ts.Type.(type) {
				case *ast.StructType:
					kind = "struct"
				case *ast.InterfaceType:
					kind = "interface"
				}
				result.Symbols = append(result.Symbols, Symbol{
					Kind: kind, Name: ts.Name.Name, Signature: "type " + ts.Name.Name,
					StartLine: pos(ts.Pos()), EndLine: pos(ts.End()),
				})
			}
		}
	}

	for callerName, decl := range funcBodyRanges {
		if decl.Body == nil {
			continue
		}
		ast.Inspect(decl.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			if callee := goCalleeName(call.Fun); callee != "" {
				result.Calls = append(result.Calls, Call{
					CallerName: callerName, CalleeName: callee, Line: pos(call.Pos()),
				})
			}
			return true
		})
	}

	return result, nil
}

func goFuncSignature(d *ast.FuncDecl) string {
	sig := "func "
	if d.Recv != nil && len(d.Recv.List) > 0 {
		sig += "(" + receiverTypeName(d.Recv.List[0].Type) + ") "
	}
	sig += d.Name.Name + "(...)"
	return sig
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

// goCalleeName resolves a call expression's function to a bare name,
// matching the same "strip qualification to the trailing identifier"
// policy used for the tree-sitter languages in extractor.calleeName.
func goCalleeName(fn ast.Expr) string {
	switch f := fn.(type) {
	case *ast.Ident:
		return f.Name
	case *ast.SelectorExpr:
		return f.Sel.Name
	default:
		return ""
	}
}
