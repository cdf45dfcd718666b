package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/langchaingo/documentloaders"

	"github.com/mbarlow/docchat/pkg/processor"
)

// extractPages turns fetched bytes into page texts. PDFs keep their page
// structure; HTML and plain text become a single page.
func extractPages(ctx context.Context, body []byte, contentType, fileName string) ([]processor.Page, error) {
	switch {
	case isPDF(body, contentType, fileName):
		return extractPDF(ctx, body)
	case strings.Contains(contentType, "text/html"):
		return extractHTML(body)
	default:
		text := string(body)
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("no text content in %s", fileName)
		}
		return []processor.Page{{Number: 1, Text: text}}, nil
	}
}

func isPDF(body []byte, contentType, fileName string) bool {
	if strings.Contains(contentType, "application/pdf") {
		return true
	}
	if strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF-"))
}

// extractPDF loads the PDF one document per page and carries the page
// number through to chunk metadata.
func extractPDF(ctx context.Context, body []byte) ([]processor.Page, error) {
	loader := documentloaders.NewPDF(bytes.NewReader(body), int64(len(body)))
	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load PDF: %w", err)
	}

	pages := make([]processor.Page, 0, len(docs))
	for i, doc := range docs {
		number := i + 1
		if p, ok := doc.Metadata["page"].(int); ok && p > 0 {
			number = p
		}
		pages = append(pages, processor.Page{Number: number, Text: doc.PageContent})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("PDF has no extractable text")
	}
	return pages, nil
}

// extractHTML pulls the main textual content out of an HTML document,
// preferring a main/article region over the whole body.
func extractHTML(body []byte) ([]processor.Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer").Remove()

	var content string
	for _, selector := range []string{"main", "article", ".content", "#content"} {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("no text content in HTML document")
	}

	return []processor.Page{{Number: 1, Text: content}}, nil
}
