package audioapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/wavecut/wavecut-editor/internal/domain"
)

type modificationResponse struct {
	ProjectID json.RawMessage `json:"projectId"`
	AudioURL  string          `json:"audioUrl"`
}

type userResponse struct {
	ID            json.RawMessage   `json:"id"`
	Email         string            `json:"email"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	AudioProjects []projectResponse `json:"audioProjects"`
}

type projectResponse struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Extension   string          `json:"extension"`
	AudioURL    string          `json:"audioUrl"`
	CreatedAt   wireTime        `json:"createdAt"`
	UpdatedAt   wireTime        `json:"updatedAt"`
}

func (p projectResponse) toDomain() domain.Project {
	return domain.Project{
		ID:          rawID(p.ID),
		Name:        p.Name,
		Description: p.Description,
		Extension:   p.Extension,
		AudioURL:    p.AudioURL,
		CreatedAt:   time.Time(p.CreatedAt),
		UpdatedAt:   time.Time(p.UpdatedAt),
	}
}

// rawID renders a numeric or string id as a string.
func rawID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return string(raw)
}

// wireTime accepts RFC 3339 and zone-less local timestamps, as serialized by
// Java LocalDateTime.
type wireTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = wireTime(time.UnixMilli(ms).UTC())
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = wireTime(parsed)
			return nil
		}
	}
	// Unknown layouts are not worth failing a project list over.
	return nil
}
