package lawtree

import (
	"strconv"

	"policydesk-backend/models"
)

const exportContentLimit = 500

// ExportArticle is one article entry of the browsing export
type ExportArticle struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ExportParagraph is one paragraph entry of the browsing export
type ExportParagraph struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Export is the three-level browsing view of the tree written by export-laws
type Export struct {
	Guidelines []models.Guideline                       `json:"guidelines"`
	Articles   map[string][]ExportArticle               `json:"articles"`
	Paragraphs map[string]map[string][]ExportParagraph `json:"paragraphs"`
}

// Export builds the browsing view. Catalogued guidelines come first in
// catalogue order, followed by any other regulation in tree order.
// Paragraph content is cut at 500 characters.
func (t *Tree) Export() *Export {
	out := &Export{
		Guidelines: t.Guidelines(),
		Articles:   make(map[string][]ExportArticle),
		Paragraphs: make(map[string]map[string][]ExportParagraph),
	}

	for _, r := range t.regulations {
		articles := make([]ExportArticle, 0, len(r.Articles))
		paragraphs := make(map[string][]ExportParagraph, len(r.Articles))
		for _, a := range r.Articles {
			desc := a.Title
			if desc == "" {
				desc = "조항"
			}
			articles = append(articles, ExportArticle{ID: a.Key, Name: a.Key, Description: desc})

			entries := make([]ExportParagraph, 0, len(a.Paragraphs))
			for i, p := range a.Paragraphs {
				title, content := splitOrdinal(p)
				if title == "" {
					title = a.Title
					if title == "" {
						title = "본문"
					}
				}
				entries = append(entries, ExportParagraph{
					ID:      a.Key + "-" + strconv.Itoa(i+1),
					Title:   title,
					Content: truncateRunes(content, exportContentLimit),
				})
			}
			paragraphs[a.Key] = entries
		}
		out.Articles[r.Name] = articles
		out.Paragraphs[r.Name] = paragraphs
	}
	return out
}

// Guidelines lists the regulations present in the tree: catalogued ones in
// catalogue order with their descriptions, then the rest in tree order.
func (t *Tree) Guidelines() []models.Guideline {
	out := make([]models.Guideline, 0, len(t.regulations))
	listed := make(map[string]bool)
	for _, g := range models.Guidelines {
		if _, ok := t.index[g.ID]; ok {
			out = append(out, g)
			listed[g.ID] = true
		}
	}
	for _, r := range t.regulations {
		if !listed[r.Name] {
			out = append(out, models.Guideline{ID: r.Name, Name: r.Name})
		}
	}
	return out
}
