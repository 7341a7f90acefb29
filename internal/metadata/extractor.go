// Package metadata extracts Brazilian legal-structure signals (artigo,
// parágrafo, inciso, court markers, exam board and year) from chunk text
// using compiled regular expressions.
package metadata

import (
	"regexp"
	"strings"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/textnorm"
)

// Context carries caller-supplied hierarchical fields, passed through
// unmodified into the extracted metadata.
type Context struct {
	Documento string
	Titulo    string
	Capitulo  string
	Secao     string
	Tipo      string
}

var (
	artigoRe    = regexp.MustCompile(`(?i)\bart(?:igo)?\.?\s*(\d+)`)
	paragrafoRe = regexp.MustCompile(`(?i)(?:§|par[áa]grafo)\s*(\d+)`)
	// Inciso candidates: Roman-numeral tokens at line starts followed by a
	// separator. Candidates are validated by Roman conversion to avoid
	// false positives from incidental capital letters.
	incisoRe = regexp.MustCompile(`(?m)^\s*([IVXLCDM]+)\s*[-–—.)]`)

	// Court markers: acronyms are matched case-sensitively, full names
	// case-insensitively.
	stfRe = regexp.MustCompile(`\bSTF\b|(?i)supremo\s+tribunal\s+federal`)
	stjRe = regexp.MustCompile(`\bSTJ\b|(?i)superior\s+tribunal\s+de\s+justi[çc]a`)

	concursoRe  = regexp.MustCompile(`(?i)\b(?:concurso|edital|certame|banca)\b`)
	crimeRe     = regexp.MustCompile(`(?i)\b(?:crime|delito|criminos[oa])\b`)
	penaRe      = regexp.MustCompile(`(?i)\b(?:pena|reclus[ãa]o|deten[çc][ãa]o)\b`)
	hediondoRe  = regexp.MustCompile(`(?i)\bhediond[oa]s?\b`)
	acaoPenalRe = regexp.MustCompile(`(?i)\ba[çc][ãa]o\s+penal\b`)
	militarRe   = regexp.MustCompile(`(?i)\bmilitar(?:es)?\b`)
	atencaoRe   = regexp.MustCompile(`(?i)\b(?:aten[çc][ãa]o|importante|cuidado|observa[çc][ãa]o)\b`)

	bancaRe = regexp.MustCompile(`(?i)\b(CEBRASPE|CESPE|FCC|FGV|VUNESP|CESGRANRIO|IBFC|AOCP|QUADRIX|IADES|FUNDATEC)\b`)
	anoRe   = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

// Extractor is a pure function over compiled patterns; the zero value is
// ready to use and safe for concurrent use.
type Extractor struct{}

// New returns a metadata extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract derives ChunkMetadata from chunk text. Article and paragraph use
// the first match in the text; the exam year uses the last year-like token.
// Both are deliberate heuristics kept for compatibility; they can misfire
// on chunks citing multiple articles or years.
func (e *Extractor) Extract(text string, ctx Context) domain.ChunkMetadata {
	text = textnorm.RepairEncoding(text)

	meta := domain.ChunkMetadata{
		Documento: ctx.Documento,
		Titulo:    ctx.Titulo,
		Capitulo:  ctx.Capitulo,
		Secao:     ctx.Secao,
		Tipo:      ctx.Tipo,
	}

	if m := artigoRe.FindStringSubmatch(text); m != nil {
		meta.Artigo = m[1]
	}
	if m := paragrafoRe.FindStringSubmatch(text); m != nil {
		meta.Paragrafo = m[1]
	}
	meta.Inciso = firstValidInciso(text)

	meta.MarcaSTF = stfRe.MatchString(text)
	meta.MarcaSTJ = stjRe.MatchString(text)
	meta.MarcaConcurso = concursoRe.MatchString(text)
	meta.MarcaCrime = crimeRe.MatchString(text)
	meta.MarcaPena = penaRe.MatchString(text)
	meta.MarcaHediondo = hediondoRe.MatchString(text)
	meta.MarcaAcaoPenal = acaoPenalRe.MatchString(text)
	meta.MarcaMilitar = militarRe.MatchString(text)
	meta.MarcaAtencao = atencaoRe.MatchString(text)

	if m := bancaRe.FindStringSubmatch(text); m != nil {
		meta.Banca = strings.ToUpper(m[1])
	}
	if all := anoRe.FindAllStringSubmatch(text, -1); len(all) > 0 {
		meta.Ano = all[len(all)-1][1]
	}

	return meta
}

// firstValidInciso returns the first line-start Roman numeral that
// converts to a positive integer.
func firstValidInciso(text string) string {
	for _, m := range incisoRe.FindAllStringSubmatch(text, -1) {
		if RomanToInt(m[1]) > 0 {
			return m[1]
		}
	}
	return ""
}

var romanValues = map[byte]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000,
}

// RomanToInt converts a Roman numeral to its integer value, returning 0
// for malformed input (invalid characters, more than three repetitions,
// or illegal subtractive pairs).
func RomanToInt(s string) int {
	if s == "" {
		return 0
	}
	total := 0
	repeats := 1
	for i := 0; i < len(s); i++ {
		v, ok := romanValues[s[i]]
		if !ok {
			return 0
		}
		if i > 0 {
			prev := romanValues[s[i-1]]
			switch {
			case s[i] == s[i-1]:
				// V, L and D never repeat; others repeat at most thrice.
				if v == 5 || v == 50 || v == 500 {
					return 0
				}
				repeats++
				if repeats > 3 {
					return 0
				}
			case prev < v:
				// Subtractive pair: only I before V/X, X before L/C,
				// C before D/M.
				if prev*5 != v && prev*10 != v {
					return 0
				}
				total -= 2 * prev
				repeats = 1
			default:
				repeats = 1
			}
		}
		total += v
	}
	return total
}
