package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fragmentsDir = "../../web/templates/fragments"

func TestRenderFragments(t *testing.T) {
	r, err := New(fragmentsDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"infobox", "empty-state", "line-row", "layer-status"} {
		if !r.Has(name) {
			t.Errorf("fragment %q not defined", name)
		}
	}

	out, err := r.Render("line-row", map[string]any{
		"Number": 2, "Type": "Tram", "Color": "#2266cc", "Interval": 8, "Points": 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Line 2: Tram") || !strings.Contains(out, "every 8 min, 3 stops") {
		t.Errorf("line-row = %s", out)
	}
}

func TestRenderEscapes(t *testing.T) {
	r, err := New(fragmentsDir)
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Render("empty-state", map[string]string{"Title": "<script>", "Message": "x"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("title not escaped: %s", out)
	}
}

func TestContentPageParses(t *testing.T) {
	r, err := New("../../web/templates", fragmentsDir)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Has("content.html") {
		t.Error("content.html not loaded")
	}
}

func TestFuncs(t *testing.T) {
	dir := t.TempDir()
	src := `{{define "t"}}{{inc .N}} {{minutes .M}} {{with dict "a" 1}}{{.a}}{{end}}{{end}}`
	if err := os.WriteFile(filepath.Join(dir, "t.html"), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Render("t", map[string]any{"N": 1, "M": 7.5})
	if err != nil {
		t.Fatal(err)
	}
	if out != "2 7.5 min 1" {
		t.Errorf("got %q", out)
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.html")
	os.WriteFile(path, []byte(`{{define "a"}}one{{end}}`), 0644)
	r, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(path, []byte(`{{define "a"}}two{{end}}`), 0644)
	if err := r.Reload(); err != nil {
		t.Fatal(err)
	}
	if out, _ := r.Render("a", nil); out != "two" {
		t.Errorf("after reload = %q", out)
	}
}

func TestNewWithoutTemplates(t *testing.T) {
	if _, err := New(t.TempDir()); err == nil {
		t.Error("empty dir accepted")
	}
}
