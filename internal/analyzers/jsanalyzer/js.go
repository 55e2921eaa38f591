package jsanalyzer

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/mpetrov/bugscope/internal/project"
)

// paramWarnThreshold is the parameter count above which a function is flagged
// as a potential issue.
const paramWarnThreshold = 5

// JSAnalyzer extracts top-level structure from JavaScript, TypeScript, JSX
// and TSX sources using tree-sitter.
type JSAnalyzer struct{}

// New creates a new JSAnalyzer.
func New() *JSAnalyzer {
	return &JSAnalyzer{}
}

func (a *JSAnalyzer) Name() string {
	return "javascript"
}

// Extensions returns the JS-family extensions this analyzer handles.
func (a *JSAnalyzer) Extensions() []string {
	return []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}
}

// Analyze parses src and collects top-level function declarations, class
// declarations and import specifiers. It never fails: content the grammar
// cannot make sense of simply yields an empty summary.
func (a *JSAnalyzer) Analyze(src []byte, ext string) project.StructuralSummary {
	lang := typescript.LanguageTypescript()
	if ext == ".jsx" || ext == ".tsx" {
		lang = typescript.LanguageTSX()
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(sitter.NewLanguage(lang))

	tree := parser.Parse(src, nil)
	if tree == nil {
		return project.StructuralSummary{}
	}
	defer tree.Close()

	var summary project.StructuralSummary
	root := tree.RootNode()
	for i := range root.ChildCount() {
		a.collect(root.Child(i), src, &summary)
	}

	summary.ComplexityScore = len(summary.Functions) + 2*len(summary.Classes)
	for _, fn := range summary.Functions {
		if fn.Params > paramWarnThreshold {
			summary.PotentialIssues = append(summary.PotentialIssues,
				fmt.Sprintf("function %s takes %d parameters", fn.Name, fn.Params))
		}
	}
	return summary
}

func (a *JSAnalyzer) collect(node *sitter.Node, src []byte, summary *project.StructuralSummary) {
	switch node.Kind() {
	case "export_statement":
		// Named exports wrap a declaration; default exports may carry a bare
		// function, generator or arrow expression instead.
		for _, kind := range []string{
			"function_declaration",
			"generator_function_declaration",
			"class_declaration",
			"lexical_declaration",
			"variable_declaration",
			"function_expression",
			"generator_function",
			"arrow_function",
		} {
			if decl := findChildByKind(node, kind); decl != nil {
				a.collect(decl, src, summary)
				return
			}
		}

	case "function_declaration", "generator_function_declaration",
		"function_expression", "generator_function":
		name := "anonymous"
		if id := findChildByKind(node, "identifier"); id != nil {
			name = nodeText(id, src)
		}
		summary.Functions = append(summary.Functions, project.FunctionDecl{
			Name:   name,
			Line:   int(node.StartPosition().Row) + 1,
			Params: countParams(node),
		})

	case "arrow_function":
		// Reached only via a default export; the identifier child of a bare
		// arrow is its parameter, not a name.
		summary.Functions = append(summary.Functions, project.FunctionDecl{
			Name:   "anonymous",
			Line:   int(node.StartPosition().Row) + 1,
			Params: countParams(node),
		})

	case "class_declaration":
		id := findChildByKind(node, "type_identifier")
		if id == nil {
			id = findChildByKind(node, "identifier")
		}
		if id != nil {
			summary.Classes = append(summary.Classes, project.ClassDecl{
				Name: nodeText(id, src),
				Line: int(node.StartPosition().Row) + 1,
			})
		}

	case "lexical_declaration", "variable_declaration":
		// const handler = (req, res) => {...} counts as a function
		for j := range node.ChildCount() {
			decl := node.Child(j)
			if decl.Kind() != "variable_declarator" {
				continue
			}
			fn := findChildByKind(decl, "arrow_function")
			if fn == nil {
				fn = findChildByKind(decl, "function_expression")
			}
			if fn == nil {
				continue
			}
			name := "anonymous"
			if id := findChildByKind(decl, "identifier"); id != nil {
				name = nodeText(id, src)
			}
			summary.Functions = append(summary.Functions, project.FunctionDecl{
				Name:   name,
				Line:   int(node.StartPosition().Row) + 1,
				Params: countParams(fn),
			})
		}

	case "import_statement":
		if s := findChildByKind(node, "string"); s != nil {
			summary.Imports = append(summary.Imports, strings.Trim(nodeText(s, src), `"'`))
		}
	}
}

// countParams counts the declared parameters of a function-like node.
func countParams(node *sitter.Node) int {
	params := findChildByKind(node, "formal_parameters")
	if params == nil {
		// Arrow functions with a single bare parameter have no parens.
		if findChildByKind(node, "identifier") != nil {
			return 1
		}
		return 0
	}
	return int(params.NamedChildCount())
}

func findChildByKind(node *sitter.Node, kind string) *sitter.Node {
	for i := range node.ChildCount() {
		child := node.Child(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}
