// Package render assembles the final briefing document from the sectioned
// stage outputs.
package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"morningbrief/internal/domain/briefing"
)

const skeleton = `<html><head><meta charset="utf-8"><style>li { font-weight: normal; }</style></head><body></body></html>`

// Options personalises the document.
type Options struct {
	RecipientName string
}

// Compose renders b as a full HTML document. Groups appear in stage order
// under their titles; present fragments are appended verbatim and absent
// ones are skipped.
func Compose(b briefing.Briefing, opts Options) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(skeleton))
	if err != nil {
		return "", fmt.Errorf("parse document skeleton: %w", err)
	}
	body := doc.Find("body")

	name := strings.TrimSpace(opts.RecipientName)
	body.AppendHtml(tag("h1", title(name)))
	body.AppendHtml(tag("p", greeting(name)))
	body.AppendHtml("<br>")

	for _, group := range b.Groups {
		body.AppendHtml(tag("h2", group.Title))
		body.AppendHtml("<br>")
		for _, section := range group.Response.Sections {
			if !section.Present || strings.TrimSpace(section.Content) == "" {
				continue
			}
			body.AppendHtml(section.Content)
		}
	}

	body.AppendHtml("<br>")
	body.AppendHtml(tag("p", closing(name)))
	body.AppendHtml("<br>")
	body.AppendHtml(tag("p", "Best regards,"))
	body.AppendHtml("<br>")
	body.AppendHtml(tag("p", "Your AI Assistant"))

	out, err := goquery.OuterHtml(doc.Find("html"))
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return "<!DOCTYPE html>\n" + out, nil
}

// PlainText flattens a rendered document for the text/plain alternative.
func PlainText(document string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	doc.Find("head, style, script").Remove()

	var lines []string
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		if goquery.NodeName(s) == "li" {
			text = "- " + text
		}
		lines = append(lines, text)
	})
	return strings.Join(lines, "\n"), nil
}

func tag(name, text string) string {
	return "<" + name + ">" + html.EscapeString(text) + "</" + name + ">"
}

func title(name string) string {
	if name == "" {
		return "Morning Briefing"
	}
	return "Morning Briefing for " + name
}

func greeting(name string) string {
	if name == "" {
		return "Good morning! Here's an overview of your day:"
	}
	return "Good morning, " + name + "! Here's an overview of your day:"
}

func closing(name string) string {
	if name == "" {
		return "Wishing you a productive and balanced day!"
	}
	return "Wishing you a productive and balanced day, " + name + "!"
}
