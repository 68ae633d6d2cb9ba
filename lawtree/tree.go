// Package lawtree builds the deduplicated regulation → article → paragraph
// hierarchy from flat corpus rows. A Tree is immutable once built and safe
// for concurrent readers.
package lawtree

import (
	"bytes"
	"encoding/json"
)

// UnclassifiedKey is the article bucket for rows that carry neither an
// article number nor an article title before any article has been seen.
const UnclassifiedKey = "미분류"

// Article is one article of a regulation
type Article struct {
	Key        string   `json:"-"`
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
}

// Regulation is one top-level regulation group with its ordered articles
type Regulation struct {
	Name     string
	Articles []*Article
	index    map[string]*Article
}

// Article returns the article stored under key.
func (r *Regulation) Article(key string) (*Article, bool) {
	a, ok := r.index[key]
	return a, ok
}

// ArticleKeys returns article keys in tree order.
func (r *Regulation) ArticleKeys() []string {
	keys := make([]string, len(r.Articles))
	for i, a := range r.Articles {
		keys[i] = a.Key
	}
	return keys
}

// MarshalJSON encodes the regulation as an ordered article_key → article object.
func (r *Regulation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range r.Articles {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, a.Key, a); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Tree is the Law Master Tree.
type Tree struct {
	regulations []*Regulation
	index       map[string]*Regulation
	skipped     int
}

// Regulations returns regulation names in tree order.
func (t *Tree) Regulations() []string {
	names := make([]string, len(t.regulations))
	for i, r := range t.regulations {
		names[i] = r.Name
	}
	return names
}

// Regulation returns the regulation called name.
func (t *Tree) Regulation(name string) (*Regulation, bool) {
	r, ok := t.index[name]
	return r, ok
}

// Paragraphs returns the paragraphs of one article, or nil when absent.
func (t *Tree) Paragraphs(regulation, articleKey string) []string {
	r, ok := t.index[regulation]
	if !ok {
		return nil
	}
	a, ok := r.Article(articleKey)
	if !ok {
		return nil
	}
	return a.Paragraphs
}

// Skipped returns the number of malformed rows dropped while building.
func (t *Tree) Skipped() int {
	return t.skipped
}

// Len returns the number of regulations.
func (t *Tree) Len() int {
	return len(t.regulations)
}

// MarshalJSON encodes the tree with regulations and articles in tree order,
// so equal trees always encode to identical bytes.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range t.regulations {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, r.Name, r); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
