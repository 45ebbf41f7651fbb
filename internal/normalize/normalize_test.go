package normalize

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "accented", input: "Autoavaliação", want: "autoavaliacao"},
		{name: "already canonical", input: "autoavaliacao", want: "autoavaliacao"},
		{name: "surrounding whitespace", input: "  Arquétipos \t", want: "arquetipos"},
		{name: "underscore kept", input: "Microambiente_Equipe", want: "microambiente_equipe"},
		{name: "cedilla and tilde", input: "AÇÃO", want: "acao"},
		{name: "non-latin dropped", input: "equipe✓", want: "equipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	a := Normalize("Autoavaliação")
	b := Normalize("autoavaliacao")
	if a != b || a != "autoavaliacao" {
		t.Errorf("Normalize mismatch: %q vs %q", a, b)
	}
}

func TestContains(t *testing.T) {
	if !Contains("Arquétipo de Equipe", "arquetipo") {
		t.Error("Contains() should match across accents")
	}
	if Contains("microambiente_equipe", "arquetipo") {
		t.Error("Contains() matched an unrelated value")
	}
}
