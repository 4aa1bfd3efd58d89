package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeCorpus lays out HTML files under a temp dir and returns the dir.
func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func page(title, body string) string {
	return "<html><head><title>" + title + "</title><script>var x=1;</script></head>" +
		"<body><p>" + body + "</p></body></html>"
}

func Test_LoadDir_ExtractsTitleAndText(t *testing.T) {
	t.Parallel()

	dir := writeCorpus(t, map[string]string{
		"boston.html": page("Boston", "Boston is a city in Massachusetts. It was founded in 1630."),
	})

	docs, err := New(Config{}).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	d := docs[0]
	if d.Title != "Boston" {
		t.Errorf("title = %q", d.Title)
	}
	if d.ID != "boston" {
		t.Errorf("id = %q", d.ID)
	}
	if !strings.Contains(d.Content, "founded in 1630") {
		t.Errorf("content missing body text: %q", d.Content)
	}
	if strings.Contains(d.Content, "var x=1") {
		t.Errorf("script body leaked into content: %q", d.Content)
	}
}

func Test_LoadDir_DeterministicOrderAndMaxDocs(t *testing.T) {
	t.Parallel()

	dir := writeCorpus(t, map[string]string{
		"c.html": page("C", "Content of c."),
		"a.html": page("A", "Content of a."),
		"b.html": page("B", "Content of b."),
	})

	docs, err := New(Config{MaxDocs: 2}).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2 (MaxDocs)", len(docs))
	}
	if docs[0].ID != "a" || docs[1].ID != "b" {
		t.Errorf("order = [%s %s], want [a b]", docs[0].ID, docs[1].ID)
	}
}

func Test_LoadDir_SkipsNonHTMLAndEmpty(t *testing.T) {
	t.Parallel()

	dir := writeCorpus(t, map[string]string{
		"notes.txt":  "plain text, not part of the corpus",
		"empty.html": "<html><body><script>only()</script></body></html>",
		"real.html":  page("Real", "Some real content here."),
	})

	docs, err := New(Config{}).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "real" {
		t.Errorf("docs = %v, want only real", docs)
	}
}

func Test_LoadDir_DropsLeadingBlocks(t *testing.T) {
	t.Parallel()

	dir := writeCorpus(t, map[string]string{
		"doc.html": "<html><body><p>Nav one</p><p>Nav two</p><p>Actual content starts here.</p></body></html>",
	})

	docs, err := New(Config{SkipBlocks: 2}).LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(docs))
	}
	if strings.Contains(docs[0].Content, "Nav one") || strings.Contains(docs[0].Content, "Nav two") {
		t.Errorf("navigation blocks not dropped: %q", docs[0].Content)
	}
	if !strings.Contains(docs[0].Content, "Actual content") {
		t.Errorf("real content dropped: %q", docs[0].Content)
	}
}

func Test_DocID_StableAndSafe(t *testing.T) {
	t.Parallel()

	if got := DocID("New York City.html"); got != "new_york_city" {
		t.Errorf("DocID = %q, want new_york_city", got)
	}
	if DocID("a/b.html") == DocID("a_b.html") {
		// Identical slugs from distinct paths are acceptable for flat corpora,
		// but the same input must always map to the same output.
		t.Log("slug collision between path separators and underscores")
	}

	long := strings.Repeat("verylongsegment/", 8) + "page.html"
	id := DocID(long)
	if len(id) > 48 {
		t.Errorf("long ID not truncated: %d chars", len(id))
	}
	if id != DocID(long) {
		t.Error("DocID not deterministic for long paths")
	}
}

func Test_TitleFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want string
	}{
		{"boston.html", "Boston"},
		{"new_york_city.html", "New York City"},
		{"history-of-the-uk.html", "History of the UK"},
		{"cities/washington_dc.html", "Washington DC"},
		{"the_hague.html", "The Hague"},
	}
	for _, tc := range tests {
		if got := TitleFromPath(tc.rel); got != tc.want {
			t.Errorf("TitleFromPath(%q) = %q, want %q", tc.rel, got, tc.want)
		}
	}
}
