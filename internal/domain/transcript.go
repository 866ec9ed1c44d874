package domain

// Word is a single transcript word with its time span in seconds.
// Words are immutable once loaded.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcription is an ordered word list plus the service's metadata.
// It is replaced wholesale on every transcribe call.
type Transcription struct {
	Filename         string  `json:"filename,omitempty"`
	Transcript       string  `json:"transcript"`
	Words            []Word  `json:"words"`
	DetectedLanguage string  `json:"detected_language,omitempty"`
	ProcessingTime   float64 `json:"processing_time"`
}

// WordMatch is a search hit: the word and its position in the transcript.
type WordMatch struct {
	Index int  `json:"index"`
	Word  Word `json:"word"`
}
