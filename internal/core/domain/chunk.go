package domain

// Chunk is the atomic unit of retrieval: a bounded span of document text
// stored with metadata and an embedding.
type Chunk struct {
	// ID is unique, derived as "{sanitized document name}-{sequence:04d}".
	ID string

	// DocumentID is the owning document. Stamped by the storage backend
	// when the document row is created.
	DocumentID int64

	// Text is the chunk content, a concatenation of one or more paragraphs.
	Text string

	// Metadata holds the extracted legal-structure signals.
	Metadata ChunkMetadata

	// TokenCount is the coarse token estimate for Text.
	TokenCount int

	// Position is the midpoint of the chunk's paragraph range over the
	// total paragraph count, in [0,1], rounded to 4 decimals.
	Position float64

	// Embedding is the vector representation, attached during ingestion.
	Embedding []float32
}

// ChunkMetadata is a flat record of legal-structure signals extracted from
// chunk text. Documento is always non-empty; boolean flags default false.
type ChunkMetadata struct {
	Documento string `json:"documento"`
	Titulo    string `json:"titulo,omitempty"`
	Capitulo  string `json:"capitulo,omitempty"`
	Secao     string `json:"secao,omitempty"`
	Artigo    string `json:"artigo,omitempty"`
	Paragrafo string `json:"paragrafo,omitempty"`
	Inciso    string `json:"inciso,omitempty"`
	Tipo      string `json:"tipo,omitempty"`

	MarcaAtencao   bool `json:"marca_atencao,omitempty"`
	MarcaSTF       bool `json:"marca_stf,omitempty"`
	MarcaSTJ       bool `json:"marca_stj,omitempty"`
	MarcaConcurso  bool `json:"marca_concurso,omitempty"`
	MarcaCrime     bool `json:"marca_crime,omitempty"`
	MarcaPena      bool `json:"marca_pena,omitempty"`
	MarcaHediondo  bool `json:"marca_hediondo,omitempty"`
	MarcaAcaoPenal bool `json:"marca_acao_penal,omitempty"`
	MarcaMilitar   bool `json:"marca_militar,omitempty"`

	Banca string `json:"banca,omitempty"`
	Ano   string `json:"ano,omitempty"`
}

// Field returns the metadata value for a wire field name ("artigo",
// "marca_stf", ...) and whether the name is known. Storage backends use
// this to evaluate metadata filters with identical semantics.
func (m ChunkMetadata) Field(name string) (any, bool) {
	switch name {
	case "documento":
		return m.Documento, true
	case "titulo":
		return m.Titulo, true
	case "capitulo":
		return m.Capitulo, true
	case "secao":
		return m.Secao, true
	case "artigo":
		return m.Artigo, true
	case "paragrafo":
		return m.Paragrafo, true
	case "inciso":
		return m.Inciso, true
	case "tipo":
		return m.Tipo, true
	case "marca_atencao":
		return m.MarcaAtencao, true
	case "marca_stf":
		return m.MarcaSTF, true
	case "marca_stj":
		return m.MarcaSTJ, true
	case "marca_concurso":
		return m.MarcaConcurso, true
	case "marca_crime":
		return m.MarcaCrime, true
	case "marca_pena":
		return m.MarcaPena, true
	case "marca_hediondo":
		return m.MarcaHediondo, true
	case "marca_acao_penal":
		return m.MarcaAcaoPenal, true
	case "marca_militar":
		return m.MarcaMilitar, true
	case "banca":
		return m.Banca, true
	case "ano":
		return m.Ano, true
	default:
		return nil, false
	}
}
