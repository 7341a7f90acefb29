package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/juristec/legisrag/internal/core/domain"
)

func TestExtract_ArtigoFirstMatchWins(t *testing.T) {
	e := New()
	meta := e.Extract("Art. 121 do Código Penal, combinado com o art. 14", Context{Documento: "cp"})
	assert.Equal(t, "121", meta.Artigo)
}

func TestExtract_ArtigoVariants(t *testing.T) {
	e := New()
	tests := []struct {
		text string
		want string
	}{
		{"Artigo 5 da Constituição", "5"},
		{"art 5º", "5"},
		{"ART. 157", "157"},
		{"nenhuma referência aqui", ""},
	}
	for _, tt := range tests {
		meta := e.Extract(tt.text, Context{Documento: "doc"})
		assert.Equal(t, tt.want, meta.Artigo, "text %q", tt.text)
	}
}

func TestExtract_Paragrafo(t *testing.T) {
	e := New()
	meta := e.Extract("Conforme o § 2 do artigo 5", Context{Documento: "cf"})
	assert.Equal(t, "2", meta.Paragrafo)

	meta = e.Extract("O parágrafo 3 estabelece", Context{Documento: "cf"})
	assert.Equal(t, "3", meta.Paragrafo)
}

func TestExtract_IncisoValidation(t *testing.T) {
	e := New()

	// Valid Roman numeral at line start.
	meta := e.Extract("considerações gerais\nIV - a casa é asilo inviolável", Context{Documento: "cf"})
	assert.Equal(t, "IV", meta.Inciso)

	// Malformed Roman tokens are rejected, the next valid one wins.
	meta = e.Extract("IIII - inválido\nVX - inválido\nXII - válido", Context{Documento: "cf"})
	assert.Equal(t, "XII", meta.Inciso)

	// Incidental capital letters mid-line never match.
	meta = e.Extract("o item V foi mencionado no corpo do texto", Context{Documento: "cf"})
	assert.Empty(t, meta.Inciso)
}

func TestExtract_CourtMarkers(t *testing.T) {
	e := New()

	meta := e.Extract("Conforme decidiu o STF no HC 126292", Context{Documento: "juris"})
	assert.True(t, meta.MarcaSTF)
	assert.False(t, meta.MarcaSTJ)

	meta = e.Extract("súmula do Superior Tribunal de Justiça", Context{Documento: "juris"})
	assert.True(t, meta.MarcaSTJ)

	// Lowercase acronym inside a word must not match.
	meta = e.Extract("o instituto respondeu", Context{Documento: "juris"})
	assert.False(t, meta.MarcaSTF)
	assert.False(t, meta.MarcaSTJ)
}

func TestExtract_KeywordFlags(t *testing.T) {
	e := New()
	meta := e.Extract(
		"O crime hediondo tem pena de reclusão; a ação penal é pública. Atenção: aplica-se ao militar.",
		Context{Documento: "lei"},
	)
	assert.True(t, meta.MarcaCrime)
	assert.True(t, meta.MarcaHediondo)
	assert.True(t, meta.MarcaPena)
	assert.True(t, meta.MarcaAcaoPenal)
	assert.True(t, meta.MarcaMilitar)
	assert.True(t, meta.MarcaAtencao)
	assert.False(t, meta.MarcaConcurso)
}

func TestExtract_BancaAndAno(t *testing.T) {
	e := New()

	meta := e.Extract("Questão da banca CEBRASPE aplicada em 2018 e repetida em 2023", Context{Documento: "q"})
	assert.Equal(t, "CEBRASPE", meta.Banca)
	// Last year mentioned wins.
	assert.Equal(t, "2023", meta.Ano)

	meta = e.Extract("prova fgv", Context{Documento: "q"})
	assert.Equal(t, "FGV", meta.Banca)
	assert.Empty(t, meta.Ano)
}

func TestExtract_ContextPassthrough(t *testing.T) {
	e := New()
	ctx := Context{
		Documento: "constituicao-federal",
		Titulo:    "Título II",
		Capitulo:  "Capítulo I",
		Secao:     "Seção única",
		Tipo:      "content",
	}
	meta := e.Extract("texto qualquer", ctx)
	assert.Equal(t, domain.ChunkMetadata{
		Documento: "constituicao-federal",
		Titulo:    "Título II",
		Capitulo:  "Capítulo I",
		Secao:     "Seção única",
		Tipo:      "content",
	}, meta)
}

func TestExtract_RepairsEncodingFirst(t *testing.T) {
	e := New()
	meta := e.Extract("aÃ§Ã£o penal condicionada", Context{Documento: "cp"})
	assert.True(t, meta.MarcaAcaoPenal)
}

func TestRomanToInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"I", 1}, {"IV", 4}, {"V", 5}, {"IX", 9}, {"XII", 12},
		{"XL", 40}, {"MCMXCIV", 1994},
		{"", 0}, {"IIII", 0}, {"VV", 0}, {"IL", 0}, {"ABC", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RomanToInt(tt.in), "input %q", tt.in)
	}
}
