package domain

type Language string

const (
	LanguageEnglish Language = "english"
	LanguagePidgin  Language = "pidgin"
	LanguageYoruba  Language = "yoruba"
	LanguageHausa   Language = "hausa"
	LanguageIgbo    Language = "igbo"
	LanguageUnknown Language = "unknown"
)

// Query is a user question after normalization. NormalizedText is always
// the English form used for retrieval; when translation is unavailable it
// falls back to RawText and Degraded is set.
type Query struct {
	RawText          string   `json:"raw_text"`
	DetectedLanguage Language `json:"detected_language"`
	NormalizedText   string   `json:"normalized_text"`
	Degraded         bool     `json:"degraded"`
}

// Persona is a configured answer voice, distinct from the legal content.
// AnswerStarter forces the reply into the persona's dialect;
// NoGroundingReply is the localized refusal used when retrieval finds
// no sufficiently relevant law.
type Persona struct {
	Name              string   `yaml:"name" json:"name"`
	Language          Language `yaml:"language" json:"language"`
	SystemInstruction string   `yaml:"system_instruction" json:"system_instruction"`
	AnswerStarter     string   `yaml:"answer_starter" json:"answer_starter"`
	NoGroundingReply  string   `yaml:"no_grounding_reply" json:"no_grounding_reply"`
}
