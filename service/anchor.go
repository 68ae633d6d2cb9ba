package service

import (
	"context"
	"regexp"
	"strings"

	"policydesk-backend/models"
	"policydesk-backend/repository"

	"go.uber.org/zap"
)

var (
	anchorArticle   = regexp.MustCompile(`제\s*(\d+)\s*조`)
	anchorParagraph = regexp.MustCompile(`제\s*(\d+)\s*항`)
)

// regulationAlias maps a substring seen in citations to the fragment of the
// regulation group name it refers to.
type regulationAlias struct {
	mention  string
	fragment string
}

// regulationAliases is ordered; every matching alias contributes its fragment.
var regulationAliases = []regulationAlias{
	{"협약", "협약체결"},
	{"사업비", "사업비"},
	{"정산", "정산"},
	{"수행상황", "수행상황"},
	{"결과평가", "결과평가"},
	{"성과", "성과관리"},
	{"점검", "점검계획"},
	{"방발기금", "방발기금"},
	{"방송통신발전기금", "방발기금"},
	{"정진기금", "정진기금"},
	{"정보통신진흥기금", "정진기금"},
	{"ICT예산", "ICT예산정책협의체"},
	{"예산정책협의체", "ICT예산정책협의체"},
}

// ParsedAnchor is the structured reading of one citation string
type ParsedAnchor struct {
	Raw             string
	ArticleNumber   string
	ParagraphNumber string // informational only, never used as a filter
	Fragments       []string
}

// ParseAnchor extracts the article and paragraph numbers and the regulation
// fragments mentioned in a single citation.
func ParseAnchor(anchor string) ParsedAnchor {
	p := ParsedAnchor{Raw: strings.TrimSpace(anchor)}
	if m := anchorArticle.FindStringSubmatch(p.Raw); m != nil {
		p.ArticleNumber = m[1]
	}
	if m := anchorParagraph.FindStringSubmatch(p.Raw); m != nil {
		p.ParagraphNumber = m[1]
	}

	seen := make(map[string]bool)
	for _, a := range regulationAliases {
		if strings.Contains(p.Raw, a.mention) && !seen[a.fragment] {
			seen[a.fragment] = true
			p.Fragments = append(p.Fragments, a.fragment)
		}
	}
	return p
}

// AnchorResolver turns policy citations into law excerpts
type AnchorResolver struct {
	corpus repository.CorpusStore
	search *LocalSearch
	logger *zap.Logger
}

// NewAnchorResolver creates a resolver that falls back to search
func NewAnchorResolver(corpus repository.CorpusStore, search *LocalSearch, logger *zap.Logger) *AnchorResolver {
	return &AnchorResolver{
		corpus: corpus,
		search: search,
		logger: logger.With(zap.String("component", "anchor_resolver")),
	}
}

// Resolve resolves every semicolon-delimited citation in anchor
// independently and concatenates the results, one record per article,
// capped at limit. It never fails: unresolvable input yields an empty list.
func (r *AnchorResolver) Resolve(ctx context.Context, anchor string, limit int) []models.RetrievalRecord {
	var (
		out  []models.RetrievalRecord
		seen = make(map[string]struct{})
	)
	for _, part := range models.SplitAnchors(anchor) {
		if len(out) >= limit {
			break
		}
		for _, rec := range r.ResolveOne(ctx, part, limit) {
			key := articleIdentity(rec)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, rec)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// ResolveOne resolves a single citation. Rows of the same article are merged
// into one record whose content lists them in corpus order.
func (r *AnchorResolver) ResolveOne(ctx context.Context, anchor string, limit int) []models.RetrievalRecord {
	if limit <= 0 {
		return nil
	}
	p := ParseAnchor(anchor)

	if p.ArticleNumber != "" {
		rows, err := r.corpus.LawsByArticle(ctx, p.Fragments, p.ArticleNumber, limit*4)
		if err != nil {
			r.logger.Warn("article lookup failed", zap.String("anchor", p.Raw), zap.Error(err))
		}
		if len(rows) > 0 {
			return mergeArticleRows(rows, limit)
		}
	}

	if len(p.Fragments) == 0 {
		r.logger.Debug("anchor unresolved", zap.String("anchor", p.Raw))
		return nil
	}
	return r.search.Search(ctx, p.Fragments, limit)
}

func mergeArticleRows(rows []models.LawRow, limit int) []models.RetrievalRecord {
	var (
		out   []models.RetrievalRecord
		index = make(map[string]int)
	)
	for _, row := range rows {
		rec := recordFromRow(row)
		key := articleIdentity(rec)
		if i, ok := index[key]; ok {
			if rec.Content != "" && !strings.Contains(out[i].Content, rec.Content) {
				out[i].Content += "\n" + rec.Content
			}
			if out[i].ArticleTitle == "" && rec.ArticleTitle != "" {
				out[i].ArticleTitle = rec.ArticleTitle
				out[i].SourceDocumentName = rec.SourceDocumentName
			}
			continue
		}
		if len(out) == limit {
			continue
		}
		index[key] = len(out)
		out = append(out, rec)
	}
	return out
}
