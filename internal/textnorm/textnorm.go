// Package textnorm provides Portuguese-aware text cleanup shared by
// parsing, metadata extraction and lexical scoring. Indexed chunk text and
// incoming queries go through the same normalization so lexical matching
// is case- and diacritic-insensitive.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// encodingRepairs maps UTF-8-read-as-Latin-1 mojibake sequences back to
// the intended characters. Pairs are applied in a single pass, longest
// match first, so repairing twice yields the same result as once.
var encodingRepairs = strings.NewReplacer(
	"Ã¡", "á", "Ã¢", "â", "Ã£", "ã", "Ã ", "à",
	"Ã©", "é", "Ãª", "ê",
	"Ã­", "í",
	"Ã³", "ó", "Ã´", "ô", "Ãµ", "õ",
	"Ãº", "ú", "Ã¼", "ü",
	"Ã§", "ç",
	"Ã‰", "É", "Ãš", "Ú", "Ã‡", "Ç", "Ã“", "Ó", "Ã‚", "Â", "Ãƒ", "Ã", "ÃŠ", "Ê",
	"Â°", "°", "Âº", "º", "Âª", "ª", "Â§", "§",
)

// RepairEncoding fixes known mis-encoded UTF-8-as-Latin-1 sequences via a
// fixed substitution table. It is idempotent and never fails; empty input
// returns empty output.
func RepairEncoding(text string) string {
	if text == "" {
		return ""
	}
	return encodingRepairs.Replace(text)
}

// stripMarks removes combining marks after NFD decomposition, folding
// diacritics ("ação" -> "acao").
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeQuery applies the full normalization used for lexical matching:
// encoding repair, Unicode NFKC, control-character removal, ordinal marker
// folding (º/° -> "o", ª -> "a"), diacritic stripping, case folding and
// whitespace collapsing. Never fails; empty input returns empty output.
func NormalizeQuery(text string) string {
	if text == "" {
		return ""
	}
	text = RepairEncoding(text)
	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsControl(r):
			b.WriteByte(' ')
		case r == 'º' || r == '°':
			b.WriteByte('o')
		case r == 'ª':
			b.WriteByte('a')
		default:
			b.WriteRune(r)
		}
	}
	text = b.String()

	if folded, _, err := transform.String(stripMarks, text); err == nil {
		text = folded
	}
	text = strings.ToLower(text)
	return strings.Join(strings.Fields(text), " ")
}

// stopwords are common Portuguese function words, listed post-normalization
// (lowercase, diacritics stripped).
var stopwords = map[string]struct{}{
	"a": {}, "o": {}, "as": {}, "os": {}, "um": {}, "uma": {}, "uns": {}, "umas": {},
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {}, "em": {}, "no": {}, "na": {},
	"nos": {}, "nas": {}, "ao": {}, "aos": {}, "pelo": {}, "pela": {}, "pelos": {}, "pelas": {},
	"e": {}, "ou": {}, "que": {}, "se": {}, "com": {}, "sem": {}, "por": {}, "para": {},
	"nao": {}, "mais": {}, "mas": {}, "como": {}, "quando": {}, "entre": {}, "sobre": {},
	"seu": {}, "sua": {}, "seus": {}, "suas": {}, "este": {}, "esta": {}, "esse": {},
	"essa": {}, "isso": {}, "isto": {}, "ele": {}, "ela": {}, "eles": {}, "elas": {},
	"foi": {}, "ser": {}, "sao": {}, "era": {}, "tem": {}, "ter": {}, "ha": {}, "ja": {},
	"tambem": {}, "ate": {}, "mesmo": {}, "pode": {}, "sido": {}, "depois": {},
}

// Tokenize normalizes text and returns its word tokens with Portuguese
// stopwords removed. The same tokenizer feeds lexical scoring on both
// indexed chunks and queries.
func Tokenize(text string) []string {
	normalized := NormalizeQuery(text)
	if normalized == "" {
		return nil
	}
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// EstimateTokens is the coarse Portuguese token heuristic used across the
// pipeline: character count divided by four.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}
