package lawtree

import (
	"encoding/hex"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"policydesk-backend/models"

	"golang.org/x/crypto/blake2b"
)

var (
	leadingDigits   = regexp.MustCompile(`\d+`)
	plainOrdinal    = regexp.MustCompile(`^제?\s*(\d+)(?:\.0+)?\s*[조항]?$`)
	branchedArticle = regexp.MustCompile(`^제?\s*(\d+)\s*조?\s*의\s*(\d+)$`)
)

var circledDigits = map[rune]int{
	'①': 1, '②': 2, '③': 3, '④': 4, '⑤': 5, '⑥': 6, '⑦': 7, '⑧': 8, '⑨': 9, '⑩': 10,
	'⑪': 11, '⑫': 12, '⑬': 13, '⑭': 14, '⑮': 15,
}

// ArticleKey normalizes a raw article number cell into the key used in the tree:
// "5", "5.0" and "제5조" all become "제5조", "5의2" becomes "제5조의2".
// Anything else is kept verbatim as a named key.
func ArticleKey(number string) string {
	number = strings.TrimSpace(number)
	if m := plainOrdinal.FindStringSubmatch(number); m != nil {
		return "제" + m[1] + "조"
	}
	if m := branchedArticle.FindStringSubmatch(number); m != nil {
		return "제" + m[1] + "조의" + m[2]
	}
	return number
}

// NormalizeOrdinal turns "1", "1.0", "제1항" or "①" into "1".
// Unrecognized values are returned trimmed.
func NormalizeOrdinal(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}
	if m := plainOrdinal.FindStringSubmatch(number); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return strconv.Itoa(n)
		}
	}
	if r := []rune(number); len(r) == 1 {
		if n, ok := circledDigits[r[0]]; ok {
			return strconv.Itoa(n)
		}
	}
	return number
}

// leadingNumber extracts the first integer of a key. ok is false for keys
// without digits.
func leadingNumber(key string) (int, bool) {
	m := leadingDigits.FindString(key)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func contentHash(s string) string {
	sum := blake2b.Sum256([]byte(normalizeText(s)))
	return hex.EncodeToString(sum[:16])
}

// cursor is the scan state carried across the rows of one regulation group.
type cursor struct {
	article   string
	paragraph string // ordinal of the open paragraph, "" for an unnumbered one
	open      bool   // a paragraph is open for continuation rows
}

type action int

const (
	actNone action = iota
	actParagraph
	actAppend
)

// step is what a single row does to the tree
type step struct {
	article string
	ordinal string
	act     action
}

// advance is the pure transition function of the row scan. Rows without an
// article number inherit the running article; rows without a paragraph
// number that carry clause or item content continue the open paragraph.
func advance(c cursor, row models.LawRow) (cursor, step) {
	if num := strings.TrimSpace(row.ArticleNumber); num != "" {
		if key := ArticleKey(num); key != c.article {
			c = cursor{article: key}
		}
	} else if c.article == "" {
		if title := strings.TrimSpace(row.ArticleTitle); title != "" {
			c = cursor{article: title}
		} else {
			c = cursor{article: UnclassifiedKey}
		}
	}

	s := step{article: c.article}
	ordinal := NormalizeOrdinal(row.ParagraphNumber)

	switch {
	case ordinal != "" && baseText(row) == "":
		// A numbered row without any text is malformed and leaves the cursor as is.
	case ordinal != "" && c.open && ordinal == c.paragraph && row.HasFinerContent():
		s.act, s.ordinal = actAppend, ordinal
	case ordinal != "":
		c.paragraph, c.open = ordinal, true
		s.act, s.ordinal = actParagraph, ordinal
	case row.HasFinerContent() && c.open:
		s.act, s.ordinal = actAppend, c.paragraph
	case baseText(row) != "":
		c.paragraph, c.open = "", true
		s.act = actParagraph
	}
	return c, s
}

func finerText(row models.LawRow) string {
	var parts []string
	if t := normalizeText(row.ClauseText); t != "" {
		if n := NormalizeOrdinal(row.ClauseNumber); n != "" {
			t = n + ". " + t
		}
		parts = append(parts, t)
	}
	if t := normalizeText(row.ItemText); t != "" {
		if n := strings.TrimSpace(row.ItemNumber); n != "" {
			t = n + ". " + t
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

func baseText(row models.LawRow) string {
	if p := normalizeText(row.ParagraphText); p != "" {
		return p
	}
	if f := finerText(row); f != "" {
		return f
	}
	return normalizeText(row.FullText)
}

// paragraphText is the text of a row that opens a paragraph.
func paragraphText(row models.LawRow) string {
	p := normalizeText(row.ParagraphText)
	f := finerText(row)
	if p != "" && f != "" {
		return p + "\n" + f
	}
	return baseText(row)
}

type paragraph struct {
	ordinal string
	text    string
}

type articleBuilder struct {
	key        string
	title      string
	paragraphs []*paragraph
	open       *paragraph
	byHash     map[string]*paragraph
	seen       map[string]struct{}
}

func newArticleBuilder(key string) *articleBuilder {
	return &articleBuilder{
		key:    key,
		byHash: make(map[string]*paragraph),
		seen:   make(map[string]struct{}),
	}
}

// reopen points the builder back at an existing paragraph so the rows that
// follow a repeated paragraph row continue it. The paragraph with the same
// content wins, then the last one with the same ordinal.
func (a *articleBuilder) reopen(ordinal, text string) {
	if p, ok := a.byHash[contentHash(ordinal+"|"+text)]; ok {
		a.open = p
		return
	}
	for i := len(a.paragraphs) - 1; i >= 0; i-- {
		if a.paragraphs[i].ordinal == ordinal {
			a.open = a.paragraphs[i]
			return
		}
	}
	a.open = nil
}

func (a *articleBuilder) apply(s step, row models.LawRow) {
	switch s.act {
	case actParagraph:
		text := paragraphText(row)
		// The same numbered content seen earlier in this article is not added
		// again, even when it arrives under another row identifier.
		h := contentHash(s.ordinal + "|" + text)
		if p, dup := a.byHash[h]; dup {
			a.open = p
			return
		}
		if f := finerText(row); f != "" {
			a.seen[contentHash(s.ordinal+"|"+f)] = struct{}{}
		}
		p := &paragraph{ordinal: s.ordinal, text: text}
		a.byHash[h] = p
		a.paragraphs = append(a.paragraphs, p)
		a.open = p
	case actAppend:
		text := finerText(row)
		if text == "" || a.open == nil {
			return
		}
		h := contentHash(a.open.ordinal + "|" + text)
		if _, dup := a.seen[h]; dup {
			return
		}
		a.seen[h] = struct{}{}
		a.open.text += "\n" + text
	}
}

func (a *articleBuilder) build() *Article {
	sort.SliceStable(a.paragraphs, func(i, j int) bool {
		ni, oki := leadingNumber(a.paragraphs[i].ordinal)
		nj, okj := leadingNumber(a.paragraphs[j].ordinal)
		if oki != okj {
			return oki
		}
		return oki && ni < nj
	})
	out := &Article{Key: a.key, Title: a.title, Paragraphs: make([]string, 0, len(a.paragraphs))}
	for _, p := range a.paragraphs {
		text := p.text
		if p.ordinal != "" {
			text = "제" + p.ordinal + "항: " + text
		}
		out.Paragraphs = append(out.Paragraphs, text)
	}
	return out
}

type regulationBuilder struct {
	name     string
	cur      cursor
	order    []*articleBuilder
	articles map[string]*articleBuilder
	ids      map[string]struct{}
}

func (r *regulationBuilder) feed(row models.LawRow) {
	var s step
	r.cur, s = advance(r.cur, row)

	if id := strings.TrimSpace(row.RowID); id != "" {
		if _, dup := r.ids[id]; dup {
			if a, ok := r.articles[s.article]; ok && s.act == actParagraph {
				a.reopen(s.ordinal, paragraphText(row))
			}
			return
		}
		r.ids[id] = struct{}{}
	}

	a, ok := r.articles[s.article]
	if !ok {
		a = newArticleBuilder(s.article)
		r.articles[s.article] = a
		r.order = append(r.order, a)
	}
	if a.title == "" {
		a.title = strings.TrimSpace(row.ArticleTitle)
	}
	a.apply(s, row)
}

func (r *regulationBuilder) build() *Regulation {
	sort.SliceStable(r.order, func(i, j int) bool {
		ni, oki := leadingNumber(r.order[i].key)
		nj, okj := leadingNumber(r.order[j].key)
		if oki != okj {
			return oki
		}
		return oki && ni < nj
	})
	reg := &Regulation{
		Name:     r.name,
		Articles: make([]*Article, 0, len(r.order)),
		index:    make(map[string]*Article, len(r.order)),
	}
	for _, ab := range r.order {
		// An article bucket that only ever received empty rows is dropped.
		if ab.key == UnclassifiedKey && len(ab.paragraphs) == 0 && ab.title == "" {
			continue
		}
		a := ab.build()
		reg.Articles = append(reg.Articles, a)
		reg.index[a.Key] = a
	}
	return reg
}

// Build turns flat corpus rows into a Master Tree. It never fails: rows
// without a regulation name are counted as skipped. Rows are grouped by
// regulation preserving input order inside each group, and regulations are
// emitted sorted by name so the result does not depend on group order.
func Build(rows []models.LawRow) *Tree {
	groups := make(map[string]*regulationBuilder)
	skipped := 0
	for _, row := range rows {
		name := strings.TrimSpace(row.RegulationName)
		if name == "" {
			skipped++
			continue
		}
		g, ok := groups[name]
		if !ok {
			g = &regulationBuilder{
				name:     name,
				articles: make(map[string]*articleBuilder),
				ids:      make(map[string]struct{}),
			}
			groups[name] = g
		}
		g.feed(row)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	t := &Tree{
		regulations: make([]*Regulation, 0, len(names)),
		index:       make(map[string]*Regulation, len(names)),
		skipped:     skipped,
	}
	for _, name := range names {
		reg := groups[name].build()
		t.regulations = append(t.regulations, reg)
		t.index[name] = reg
	}
	return t
}
