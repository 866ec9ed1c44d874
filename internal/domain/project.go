package domain

import "time"

// Project is the collaborator's project resource as the editor consumes it.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Extension   string    `json:"extension"`
	AudioURL    string    `json:"audio_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Resource returns the AudioResource for the project's current audio.
// The format falls back to the URL extension when Extension is empty.
func (p Project) Resource() AudioResource {
	format := ParseFormat(p.Extension)
	if format == "" {
		format = FormatFromURL(p.AudioURL)
	}
	return AudioResource{URL: p.AudioURL, Format: format}
}
