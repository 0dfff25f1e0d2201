package depgraph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/podkit/pkg/deps"
	"github.com/matzehuels/podkit/pkg/errors"
)

func TestToDOT(t *testing.T) {
	edges := []deps.Edge{{From: "Adapter", To: "Google-Mobile-Ads-SDK"}, {From: "Adapter", To: "GoogleUtilities"}}
	dot := ToDOT(edges, []string{"Adapter", "Standalone"}, Options{Manual: []string{"Standalone"}, Failed: []string{"Broken"}})

	for _, want := range []string{
		"digraph G",
		`"Adapter" -> "Google-Mobile-Ads-SDK";`,
		`"Adapter" -> "GoogleUtilities";`,
		`"GoogleUtilities" [label="GoogleUtilities"]`,
		`"Broken" [label="Broken", fillcolor="#f8d7da"`,
		`"Standalone" [label="Standalone", style="rounded,filled,dashed"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if strings.Count(dot, `"Adapter" [`) != 1 {
		t.Errorf("node declared more than once:\n%s", dot)
	}
}

func TestRootNodes(t *testing.T) {
	st := deps.NewState()
	for _, n := range []string{"Firebase", "Firebase/Core", "A"} {
		st.Seen[n] = true
	}
	got := RootNodes(st)
	if len(got) != 2 || got[0] != "A" || got[1] != "Firebase" {
		t.Errorf("RootNodes = %v", got)
	}
}

func TestFromRun(t *testing.T) {
	st := deps.NewState()
	st.Seen["A"] = true
	report := &deps.Report{Failures: []deps.Failure{{Name: "B", Err: errors.New(errors.ErrCodeFetch, "x")}}}

	dot := FromRun(st, report)
	if !strings.Contains(dot, `"A" [`) || !strings.Contains(dot, `"B" [label="B", fillcolor`) {
		t.Errorf("FromRun:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00" width="100" height="50"`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("svg without viewBox changed: %s", got)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	dot := ToDOT(nil, []string{"A"}, Options{})

	path := filepath.Join(dir, "graph.dot")
	if err := WriteFile(path, dot); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != dot {
		t.Errorf("dot file content mismatch")
	}

	if err := WriteFile(filepath.Join(dir, "graph.png"), dot); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for .png, got %v", err)
	}
}
