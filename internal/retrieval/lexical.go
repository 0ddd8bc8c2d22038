package retrieval

import "strings"

// LexicalScore rates how well content matches a query without embeddings.
// It takes the best of three signals: whole-token containment, phrase
// containment and partial token overlap. Scores are in [0, 1].
func LexicalScore(query, content string) float64 {
	queryLower := strings.ToLower(query)
	contentLower := strings.ToLower(content)

	tokens := significantTokens(queryLower)

	token := tokenScore(tokens, contentLower)
	phrase := phraseScore(queryLower, contentLower)
	partial := partialScore(tokens, contentLower)

	best := token
	if phrase > best {
		best = phrase
	}
	if partial > best {
		best = partial
	}
	return best
}

// significantTokens drops tokens of one or two characters. Spanish articles
// and prepositions would otherwise match almost any text.
func significantTokens(queryLower string) []string {
	var tokens []string
	for _, w := range strings.Fields(queryLower) {
		if len([]rune(w)) > 2 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func tokenScore(tokens []string, contentLower string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	matched := 0
	for _, w := range tokens {
		if strings.Contains(contentLower, w) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func phraseScore(queryLower, contentLower string) float64 {
	phrases := strings.FieldsFunc(queryLower, func(r rune) bool {
		switch r {
		case ',', '.', ';', '!', '?':
			return true
		}
		return false
	})
	if len(phrases) == 0 {
		return 0
	}
	matched := 0
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if len([]rune(p)) > 5 && strings.Contains(contentLower, p) {
			matched++
		}
	}
	return float64(matched) / float64(len(phrases))
}

// partialScore counts query tokens that overlap any content word in either
// direction, so "concierto" still matches "conciertos" and vice versa.
func partialScore(tokens []string, contentLower string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	contentWords := strings.Fields(contentLower)
	matched := 0
	for _, w := range tokens {
		for _, cw := range contentWords {
			if strings.Contains(cw, w) || strings.Contains(w, cw) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(tokens))
}
