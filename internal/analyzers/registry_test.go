package analyzers

import (
	"testing"

	"github.com/mpetrov/bugscope/internal/analyzers/jsanalyzer"
	"github.com/mpetrov/bugscope/internal/project"
)

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry(jsanalyzer.New())

	tests := []struct {
		name     string
		ext      string
		src      string
		wantFunc bool
	}{
		{"js file", ".js", "function f(a) {}", true},
		{"uppercase ext", ".JS", "function f(a) {}", true},
		{"tsx file", ".tsx", "export function App() { return <div/> }", true},
		{"python not covered", ".py", "def f(a):\n    pass", false},
		{"no extension", "", "function f(a) {}", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := r.Analyze([]byte(tt.src), tt.ext)
			if got := len(s.Functions) > 0; got != tt.wantFunc {
				t.Errorf("functions found = %v, want %v (summary %+v)", got, tt.wantFunc, s)
			}
		})
	}
}

func TestRegistry_UnknownExtensionIsZeroSummary(t *testing.T) {
	r := NewRegistry(jsanalyzer.New())

	s := r.Analyze([]byte("def f():\n    pass"), ".py")
	want := project.StructuralSummary{}
	if s.ComplexityScore != want.ComplexityScore || len(s.Functions) != 0 || len(s.Classes) != 0 || len(s.Imports) != 0 || len(s.PotentialIssues) != 0 {
		t.Errorf("Analyze(.py) = %+v, want zero summary", s)
	}
}

func TestRegistry_GetNilForUncovered(t *testing.T) {
	r := NewRegistry(jsanalyzer.New())
	if r.Get(".go") != nil {
		t.Error("Get(.go) should be nil; Go sources are classified but never parsed")
	}
	if r.Get(".ts") == nil {
		t.Error("Get(.ts) should return the javascript analyzer")
	}
}
