package ingest

import (
	"strings"
	"testing"
)

func TestExtractHTML(t *testing.T) {
	doc := `<!DOCTYPE html>
<html>
<head><title>Agenda</title><style>p { color: red; }</style></head>
<body>
  <script>var x = "nope";</script>
  <h1>Agenda cultural</h1>
  <p>Concierto el <b>sábado</b> a las 20:00.</p>
  <div>Mercado medieval en la
     plaza.</div>
</body>
</html>`

	got, err := ExtractHTML(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}

	want := "Agenda cultural\n\nConcierto el sábado a las 20:00.\n\nMercado medieval en la plaza."
	if got != want {
		t.Errorf("text = %q, want %q", got, want)
	}
}

func TestExtractHTMLSkipsScriptAndStyle(t *testing.T) {
	got, err := ExtractHTML(strings.NewReader(`<p>visible</p><script>hidden()</script><style>.x{}</style>`))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "hidden") || strings.Contains(got, ".x{}") {
		t.Errorf("text contains non-visible content: %q", got)
	}
	if !strings.Contains(got, "visible") {
		t.Errorf("text = %q, want visible content", got)
	}
}

func TestExtractHTMLEmpty(t *testing.T) {
	got, err := ExtractHTML(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("text = %q, want empty", got)
	}
}

func TestExtractHTMLListItems(t *testing.T) {
	got, err := ExtractHTML(strings.NewReader(`<ul><li>uno</li><li>dos</li></ul>`))
	if err != nil {
		t.Fatal(err)
	}
	if got != "uno\n\ndos" {
		t.Errorf("text = %q, want each item as its own paragraph", got)
	}
}
