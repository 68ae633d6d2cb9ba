package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxKeywords caps the tokens extracted from one question
const MaxKeywords = 5

const minKeywordRunes = 2

// stopWords are question fillers that never help a corpus search.
var stopWords = map[string]struct{}{
	"어떻게": {}, "무엇": {}, "무엇인가요": {}, "무엇입니까": {}, "어떤": {}, "언제": {}, "어디": {},
	"있나요": {}, "있습니까": {}, "인가요": {}, "합니까": {}, "하나요": {}, "되나요": {}, "됩니까": {},
	"해야": {}, "하는": {}, "하면": {}, "대해": {}, "대한": {}, "관련": {}, "관련된": {}, "경우": {},
	"그리고": {}, "또는": {}, "그런데": {}, "그러면": {}, "알려주세요": {}, "알려주십시오": {},
	"궁금합니다": {}, "문의": {}, "문의합니다": {}, "질문": {}, "있는지": {}, "것": {}, "수": {}, "등": {},
}

// tokenize replaces punctuation and symbols with spaces and splits on whitespace.
func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Fields(cleaned)
}

// ExtractKeywords returns at most MaxKeywords search tokens in
// first-occurrence order. Tokens shorter than two characters and stop words
// are dropped.
func ExtractKeywords(question string) []string {
	seen := make(map[string]struct{})
	keywords := make([]string, 0, MaxKeywords)
	for _, tok := range tokenize(question) {
		if utf8.RuneCountInString(tok) < minKeywordRunes {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}
