package handlers

import (
	"net/http"
	"strings"

	"policydesk-backend/lawtree"
	"policydesk-backend/models"

	"github.com/gin-gonic/gin"
)

// TreeSource provides the current Law Master Tree
type TreeSource interface {
	Tree() (*lawtree.Tree, error)
}

// FAQLookup is the keyed FAQ lookup
type FAQLookup interface {
	DirectAnswer(faqID string) (models.DirectAnswer, bool)
}

// LawHandler serves the regulation hierarchy and FAQ lookups
type LawHandler struct {
	trees TreeSource
	faqs  FAQLookup
}

// NewLawHandler creates a new law handler
func NewLawHandler(trees TreeSource, faqs FAQLookup) *LawHandler {
	return &LawHandler{
		trees: trees,
		faqs:  faqs,
	}
}

// ArticleSummary is one row of a regulation's article list
type ArticleSummary struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	Paragraphs int    `json:"paragraph_count"`
}

func (h *LawHandler) tree(c *gin.Context) (*lawtree.Tree, bool) {
	tree, err := h.trees.Tree()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "CORPUS_UNAVAILABLE", "법령 데이터가 아직 준비되지 않았습니다.")
		return nil, false
	}
	return tree, true
}

// ListRegulations handles GET /api/laws
func (h *LawHandler) ListRegulations(c *gin.Context) {
	tree, ok := h.tree(c)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, tree.Guidelines())
}

// GetRegulation handles GET /api/laws/:regulation
func (h *LawHandler) GetRegulation(c *gin.Context) {
	tree, ok := h.tree(c)
	if !ok {
		return
	}

	name := c.Param("regulation")
	reg, found := tree.Regulation(name)
	if !found {
		respondError(c, http.StatusNotFound, "REGULATION_NOT_FOUND", "Regulation not found: "+name)
		return
	}

	articles := make([]ArticleSummary, 0, len(reg.Articles))
	for _, a := range reg.Articles {
		articles = append(articles, ArticleSummary{Key: a.Key, Title: a.Title, Paragraphs: len(a.Paragraphs)})
	}
	respondOK(c, http.StatusOK, gin.H{
		"regulation": reg.Name,
		"articles":   articles,
	})
}

// GetArticle handles GET /api/laws/:regulation/:article. The article may be
// given as "5", "5.0" or "제5조".
func (h *LawHandler) GetArticle(c *gin.Context) {
	tree, ok := h.tree(c)
	if !ok {
		return
	}

	name := c.Param("regulation")
	reg, found := tree.Regulation(name)
	if !found {
		respondError(c, http.StatusNotFound, "REGULATION_NOT_FOUND", "Regulation not found: "+name)
		return
	}

	key := lawtree.ArticleKey(strings.TrimSpace(c.Param("article")))
	article, found := reg.Article(key)
	if !found {
		respondError(c, http.StatusNotFound, "ARTICLE_NOT_FOUND", "Article not found: "+key)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"regulation": reg.Name,
		"key":        article.Key,
		"title":      article.Title,
		"paragraphs": article.Paragraphs,
	})
}

// GetFAQ handles GET /api/faqs/:id
func (h *LawHandler) GetFAQ(c *gin.Context) {
	id := c.Param("id")
	answer, found := h.faqs.DirectAnswer(id)
	if !found {
		respondError(c, http.StatusNotFound, "FAQ_NOT_FOUND", "FAQ not found: "+id)
		return
	}
	respondOK(c, http.StatusOK, answer)
}
