package retrieval

import "testing"

func TestLexicalScoreAllTokensPresent(t *testing.T) {
	got := LexicalScore(
		"conciertos este fin de semana",
		"Lista de conciertos para este fin de semana en la plaza",
	)
	if got != 1.0 {
		t.Errorf("score = %v, want 1.0", got)
	}
}

func TestLexicalScoreNoOverlap(t *testing.T) {
	got := LexicalScore("empadronamiento certificado", "horario de autobuses urbanos")
	if got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}

// Partial overlap matches in both directions, so a plural query token still
// counts against a singular content word.
func TestLexicalScorePartialOverlap(t *testing.T) {
	got := LexicalScore("conciertos", "concierto en la plaza")
	if got != 1.0 {
		t.Errorf("score = %v, want 1.0 from partial overlap", got)
	}
}

func TestLexicalScorePhraseBeatsTokens(t *testing.T) {
	got := LexicalScore("fiesta mayor, otra cosa rara", "programa de la fiesta mayor")
	if got != 0.5 {
		t.Errorf("score = %v, want 0.5 from phrase match", got)
	}
}

func TestLexicalScoreCaseInsensitive(t *testing.T) {
	a := LexicalScore("CONCIERTOS en la PLAZA", "Conciertos en la plaza mayor")
	b := LexicalScore("conciertos en la plaza", "conciertos en la plaza mayor")
	if a != b {
		t.Errorf("case changed the score: %v vs %v", a, b)
	}
}

func TestLexicalScoreRange(t *testing.T) {
	pairs := [][2]string{
		{"", ""},
		{"a b", "short tokens only"},
		{"eventos culturales hoy", "agenda de eventos culturales para hoy y mañana"},
		{"trámites del padrón", "información sobre el padrón municipal y sus trámites"},
	}
	for _, p := range pairs {
		got := LexicalScore(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("LexicalScore(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}
