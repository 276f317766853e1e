package selector

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"repolens/internal/domain"
)

func unit(p, content string) domain.CodeUnit {
	return domain.NewCodeUnit(p, content)
}

func paths(sel []Selection) []string {
	out := make([]string, len(sel))
	for i, s := range sel {
		out[i] = s.Unit.Path
	}
	return out
}

func TestSelect_Example(t *testing.T) {
	units := []domain.CodeUnit{
		unit("main.py", "class A:\n"+lines(150, "    pass")+"\ndef main(): pass"),
		unit("README.md", "# docs"),
	}

	sel := New([]string{".py"}, 8000, 15, nil).Select(units, nil)

	if got := paths(sel); !reflect.DeepEqual(got, []string{"main.py"}) {
		t.Fatalf("expected [main.py], got %v", got)
	}
	if sel[0].Score < 325 {
		t.Errorf("expected score >= 325, got %d", sel[0].Score)
	}
}

func TestSelect_Filters(t *testing.T) {
	units := []domain.CodeUnit{
		unit("a.py", "x"),
		unit("b.go", "x"),
		unit("big.py", strings.Repeat("x", 101)),
		unit("exact.PY", strings.Repeat("x", 100)),
	}

	sel := New([]string{"py"}, 100, 15, nil).Select(units, nil)

	got := paths(sel)
	if len(got) != 2 || got[0] != "a.py" || got[1] != "exact.PY" {
		t.Errorf("expected [a.py exact.PY], got %v", got)
	}
}

func TestSelect_StableTies(t *testing.T) {
	var units []domain.CodeUnit
	for i := 0; i < 6; i++ {
		units = append(units, unit(fmt.Sprintf("pkg/f%d.py", i), "x"))
	}

	sel := New([]string{".py"}, 0, 4, nil).Select(units, nil)

	want := []string{"pkg/f0.py", "pkg/f1.py", "pkg/f2.py", "pkg/f3.py"}
	if got := paths(sel); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSelect_FewerThanMax(t *testing.T) {
	units := []domain.CodeUnit{unit("pkg/z.py", "x"), unit("pkg/y.py", "x")}

	sel := New([]string{".py"}, 0, 15, nil).Select(units, nil)

	if got := paths(sel); !reflect.DeepEqual(got, []string{"pkg/z.py", "pkg/y.py"}) {
		t.Errorf("expected original order, got %v", got)
	}
}

func TestSelect_DefaultMaxFiles(t *testing.T) {
	var units []domain.CodeUnit
	for i := 0; i < 40; i++ {
		units = append(units, unit(fmt.Sprintf("f%d.go", i), "x"))
	}
	if got := len(New([]string{".go"}, 0, 0, nil).Select(units, nil)); got != DefaultMaxFiles {
		t.Errorf("expected %d, got %d", DefaultMaxFiles, got)
	}
}

// randomCorpus builds units with a mix of names that trigger every bonus.
func randomCorpus(r *rand.Rand, n int) []domain.CodeUnit {
	names := []string{"main.py", "app.py", "service.go", "routes.js", "model.py", "util.ts", "x_test.go", "plain.rs", "notes.md", "schema.sql"}
	dirs := []string{"", "src/", "src/core/", "lib/"}
	units := make([]domain.CodeUnit, 0, n)
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		p := fmt.Sprintf("%s%d_%s", dirs[r.Intn(len(dirs))], i, names[r.Intn(len(names))])
		if r.Intn(4) == 0 {
			p = dirs[r.Intn(len(dirs))] + names[r.Intn(len(names))]
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		body := lines(1+r.Intn(700), "class X extends Y")
		if r.Intn(2) == 0 {
			body = lines(1+r.Intn(300), "x")
		}
		units = append(units, unit(p, body))
	}
	return units
}

func TestSelect_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	exts := domain.SupportedExtensions()

	for iter := 0; iter < 200; iter++ {
		units := randomCorpus(r, 1+r.Intn(60))
		maxFiles := 1 + r.Intn(20)
		s := New(exts, 20000, maxFiles, nil)

		var focus []string
		for _, u := range units {
			if s.Eligible(u) && len(focus) < maxFiles && r.Intn(5) == 0 {
				focus = append(focus, u.Path)
			}
		}

		sel := s.Select(units, focus)
		if len(sel) > maxFiles {
			t.Fatalf("iteration %d: selected %d > max %d", iter, len(sel), maxFiles)
		}

		chosen := map[string]bool{}
		for _, p := range paths(sel) {
			chosen[p] = true
		}
		for _, f := range focus {
			if !chosen[f] {
				t.Fatalf("iteration %d: focused %s missing from %v", iter, f, paths(sel))
			}
		}

		again := s.Select(units, focus)
		if !reflect.DeepEqual(paths(sel), paths(again)) {
			t.Fatalf("iteration %d: selection not deterministic", iter)
		}
	}
}

func TestUnits(t *testing.T) {
	sel := []Selection{{Unit: unit("a.go", "x"), Score: 3}}
	if got := Units(sel); len(got) != 1 || got[0].Path != "a.go" {
		t.Errorf("unexpected units %v", got)
	}
}

func TestSelect_DuplicatePathsKeepFirst(t *testing.T) {
	units := []domain.CodeUnit{
		unit("a.go", "package a"),
		unit("b.go", "package b"),
		unit("a.go", "package a\n\nfunc main() {}"),
	}

	sel := New([]string{".go"}, 8000, 15, nil).Select(units, nil)

	if len(sel) != 2 {
		t.Fatalf("expected 2 selections, got %v", paths(sel))
	}
	for _, s := range sel {
		if s.Unit.Path == "a.go" && s.Unit.Content != "package a" {
			t.Errorf("expected first a.go to win, got %q", s.Unit.Content)
		}
	}
}
