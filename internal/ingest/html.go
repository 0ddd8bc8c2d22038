package ingest

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// blockTags close the current paragraph when encountered, so the extracted
// text keeps the paragraph boundaries the chunker splits on.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "br": true, "table": true, "ul": true, "ol": true,
}

// skipTags contain no user-visible text.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true,
	"iframe": true, "svg": true,
}

// ExtractHTML extracts the readable text of an HTML document, one paragraph
// per block element, ready for SplitChunks.
func ExtractHTML(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)

	var paragraphs []string
	var current strings.Builder
	skipDepth := 0

	flush := func() {
		if text := collapseSpace(current.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		current.Reset()
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			flush()
			return strings.Join(paragraphs, "\n\n"), nil

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				skipDepth++
				continue
			}
			if blockTags[tag] {
				flush()
			}

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] {
				flush()
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipTags[tag] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if blockTags[tag] {
				flush()
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			current.Write(z.Text())
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
