package handler

import (
	"time"

	"veripass/internal/manifest"
)

// PublishResponse is the HTTP response for POST /manifests.
type PublishResponse struct {
	Version   string    `json:"version"`
	Active    bool      `json:"active"`
	Topics    int       `json:"topics"`
	Questions int       `json:"questions"`
	CreatedAt time.Time `json:"created_at"`
}

// FromManifest summarises a published manifest.
func FromManifest(m *manifest.Manifest) *PublishResponse {
	return &PublishResponse{
		Version:   m.Version,
		Active:    true,
		Topics:    len(m.Topics),
		Questions: m.QuestionCount(),
		CreatedAt: m.CreatedAt,
	}
}
