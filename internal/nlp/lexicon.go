package nlp

import (
	"sort"
	"strings"
	"unicode"

	"github.com/finwire/newsintel/internal/config"
)

// LexiconExtractor is a deterministic, table-driven entity extractor.
// Alias and keyword tables come from configuration, so new companies,
// regulators, and sectors can be added without code changes.
type LexiconExtractor struct {
	companyAliases   map[string]string
	companyTickers   map[string]string
	tickers          map[string]string
	regulatorAliases map[string]string
	sectorKeywords   map[string][]string
}

// NewLexiconExtractor builds an extractor from the entity tables in cfg.
func NewLexiconExtractor(cfg config.Entities) *LexiconExtractor {
	tickers := make(map[string]string, len(cfg.Tickers))
	for _, t := range cfg.Tickers {
		tickers[t] = t
	}
	return &LexiconExtractor{
		companyAliases:   cfg.CompanyAliases,
		companyTickers:   cfg.CompanyTickers,
		tickers:          tickers,
		regulatorAliases: cfg.RegulatorAliases,
		sectorKeywords:   cfg.SectorKeywords,
	}
}

// Extract recognizes entities in text. Results are sorted and deduplicated
// so identical input always yields identical output.
func (x *LexiconExtractor) Extract(text string) Entities {
	tokens := tokenize(text)
	lower := lowerAll(tokens)

	companies := make(map[string]bool)
	for alias, canon := range x.companyAliases {
		if containsPhrase(lower, tokenize(strings.ToLower(alias))) {
			companies[canon] = true
		}
	}

	regulators := make(map[string]bool)
	for alias, canon := range x.regulatorAliases {
		if containsPhrase(lower, tokenize(strings.ToLower(alias))) {
			regulators[canon] = true
		}
	}

	sectors := make(map[string]bool)
	for sector, keywords := range x.sectorKeywords {
		for _, kw := range keywords {
			// Keywords given in all caps (e.g. "IT") must match the exact
			// uppercase token, otherwise the pronoun "it" would trigger them.
			if kw != strings.ToLower(kw) && kw == strings.ToUpper(kw) {
				if containsToken(tokens, kw) {
					sectors[sector] = true
					break
				}
				continue
			}
			if containsToken(lower, strings.ToLower(kw)) {
				sectors[sector] = true
				break
			}
		}
	}

	found := make(map[string]bool)
	for _, tok := range tokens {
		if sym, ok := x.tickers[strings.ToUpper(tok)]; ok {
			found[sym] = true
		}
	}

	return Entities{
		Companies:  sortedKeys(companies),
		Sectors:    sortedKeys(sectors),
		Regulators: sortedKeys(regulators),
		Tickers:    sortedKeys(found),
	}
}

// CompanyTickers maps canonical company names to tickers, omitting
// companies with no known symbol.
func (x *LexiconExtractor) CompanyTickers(companies []string) map[string]string {
	mapping := make(map[string]string)
	for _, c := range companies {
		if ticker, ok := x.companyTickers[c]; ok {
			mapping[c] = ticker
		}
	}
	return mapping
}

// tokenize splits text into word tokens, dropping punctuation.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func lowerAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = strings.ToLower(t)
	}
	return out
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

// containsPhrase reports whether the phrase tokens appear consecutively
// in the token stream.
func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j := range phrase {
			if tokens[i+j] != phrase[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
