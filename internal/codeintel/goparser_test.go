package codeintel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleGoSource = `package sample

type Greeter struct {
	Name string
}

func (g *Greeter) Greet() string {
	return format(g.Name)
}

func format(name string) string {
	return "hello " + name
}

type Shape interface {
	Area() float64
}
`

func TestParseGoExtractsFunctionsMethodsAndTypes(t *testing.T) {
	result, err := parseGo([]byte(sampleGoSource))
	require.NoError(t, err)

	byName := map[string]Symbol{}
	for _, s := range result.Symbols {
		byName[s.Name] = s
	}

	require.Equal(t, "struct", byName["Greeter"].Kind)
	require.Equal(t, "interface", byName["Shape"].Kind)
	require.Equal(t, "function", byName["format"].Kind)
	require.Equal(t, "method", byName["Greeter.Greet"].Kind)
	require.Equal(t, "func (Greeter) Greet(...)", byName["Greeter.Greet"].Signature)
}

func TestParseGoExtractsCallEdgeFromMethodToFunction(t *testing.T) {
	result, err := parseGo([]byte(sampleGoSource))
	require.NoError(t, err)

	var found bool
	for _, c := range result.Calls {
		if c.CallerName == "Greeter.Greet" && c.CalleeName == "format" {
			found = true
		}
	}
	require.True(t, found, "Greeter.Greet must record a call edge to format")
}

func TestParseGoRejectsInvalidSyntax(t *testing.T) {
	_, err := parseGo([]byte("this is not go source {{{"))
	require.Error(t, err)
}

func TestParseGoEmptyFileYieldsNoSymbols(t *testing.T) {
	result, err := parseGo([]byte("package sample\n"))
	require.NoError(t, err)
	require.Empty(t, result.Symbols)
	require.Empty(t, result.Calls)
}

func TestLanguageForExtMapsKnownExtensions(t *testing.T) {
	require.Equal(t, "go", LanguageForExt("main.go"))
	require.Equal(t, "python", LanguageForExt("script.py"))
	require.Equal(t, "rust", LanguageForExt("lib.rs"))
	require.Equal(t, "typescript", LanguageForExt("mod.ts"))
	require.Equal(t, "tsx", LanguageForExt("App.tsx"))
	require.Equal(t, "", LanguageForExt("README.md"))
}
