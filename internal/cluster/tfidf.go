package cluster

import (
	"math"
	"strings"
)

// fitTFIDF vectorizes documents with smoothed IDF and L2 normalization.
// English stop words are dropped so that function words do not dominate
// short headline corpora.
func fitTFIDF(docs []string) []map[string]float64 {
	n := len(docs)
	tokenized := make([][]string, n)
	df := make(map[string]int)

	for i, doc := range docs {
		seen := make(map[string]bool)
		for _, tok := range strings.Fields(strings.ToLower(doc)) {
			tok = strings.Trim(tok, ".,!?:;\"'()-[]")
			if tok == "" || stopWords[tok] {
				continue
			}
			tokenized[i] = append(tokenized[i], tok)
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log(float64(1+n)/float64(1+count)) + 1
	}

	vectors := make([]map[string]float64, n)
	for i, toks := range tokenized {
		vec := make(map[string]float64)
		for _, tok := range toks {
			vec[tok] += idf[tok]
		}
		normalize(vec)
		vectors[i] = vec
	}
	return vectors
}

func normalize(vec map[string]float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for k, v := range vec {
		vec[k] = v / norm
	}
}

// dotSparse is the cosine similarity of two L2-normalized sparse vectors.
func dotSparse(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, v := range a {
		dot += v * b[k]
	}
	return dot
}

// stopWords is the English stop-word list used for TF-IDF vectorization.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "shall": true,
	"to": true, "of": true, "in": true, "for": true, "on": true, "with": true, "at": true,
	"by": true, "from": true, "as": true, "into": true, "through": true, "during": true,
	"before": true, "after": true, "above": true, "below": true, "and": true, "but": true,
	"or": true, "nor": true, "not": true, "so": true, "yet": true, "both": true,
	"either": true, "neither": true, "each": true, "every": true, "all": true, "any": true,
	"few": true, "more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "only": true, "own": true, "same": true, "than": true, "too": true,
	"very": true, "just": true, "how": true, "what": true, "which": true, "who": true,
	"whom": true, "this": true, "that": true, "these": true, "those": true, "it": true,
	"its": true, "about": true, "up": true, "out": true, "also": true,
}
