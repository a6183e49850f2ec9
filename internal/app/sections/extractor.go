// Package sections pulls named fragments out of generated HTML.
package sections

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"morningbrief/internal/domain/briefing"
	"morningbrief/internal/shared/logging"
)

var fencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\\n(.*?)\\n?\\s*```\\s*$")

// Extractor looks up section anchors by element id.
type Extractor struct {
	logger logging.Logger
}

// NewExtractor builds an extractor.
func NewExtractor(logger logging.Logger) *Extractor {
	return &Extractor{logger: logging.OrNop(logger)}
}

// Extract returns one entry per id, in the order given. Each id is looked up
// independently; a missing anchor is absent. A document that cannot be
// parsed yields every id absent and is logged as a warning. It never fails.
func (e *Extractor) Extract(response string, ids []string) briefing.SectionedResponse {
	return e.extract(strings.NewReader(StripFences(response)), ids)
}

func (e *Extractor) extract(r io.Reader, ids []string) briefing.SectionedResponse {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		e.logger.Warn("Sections: response could not be parsed, treating %v as absent: %v", ids, err)
		return briefing.AllAbsent(ids)
	}

	out := briefing.SectionedResponse{Sections: make([]briefing.Section, 0, len(ids))}
	for _, id := range ids {
		section := briefing.Section{ID: id}
		sel := findByID(doc.Selection, id)
		if sel.Length() == 0 {
			e.logger.Debug("Sections: anchor %q not found", id)
			out.Sections = append(out.Sections, section)
			continue
		}
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			e.logger.Warn("Sections: anchor %q could not be rendered: %v", id, err)
			out.Sections = append(out.Sections, section)
			continue
		}
		section.Content = html
		section.Present = true
		out.Sections = append(out.Sections, section)
	}
	return out
}

// findByID matches the id attribute exactly, so ids never need CSS escaping.
func findByID(root *goquery.Selection, id string) *goquery.Selection {
	return root.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		value, _ := s.Attr("id")
		return value == id
	}).First()
}

// StripFences removes a surrounding markdown code fence, which models often
// add around HTML answers.
func StripFences(response string) string {
	if match := fencePattern.FindStringSubmatch(response); match != nil {
		return match[1]
	}
	return response
}
