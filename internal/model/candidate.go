// Package model defines the core domain types shared across the application.
package model

import (
	"strings"
	"time"
)

// Attachment is a single attachment pulled off a candidate message.
type Attachment struct {
	Filename  string
	MediaType string
	Data      []byte
}

// RawCandidate is one unit of unverified receipt evidence, typically a
// single email message. It is immutable once created; downstream records
// refer back to it by ID only.
type RawCandidate struct {
	ReceivedAt  time.Time
	ID          string
	Subject     string
	Sender      string
	Body        string
	LinkURIs    []string
	Attachments []Attachment
}

// attachmentPriority ranks attachments by declared media type. Images and
// PDFs are the formats the OCR collaborator handles best.
func attachmentPriority(mediaType string) int {
	mt := strings.ToLower(mediaType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return 0
	case mt == "application/pdf":
		return 1
	default:
		return 2
	}
}

// BestAttachment returns the highest-priority attachment, or nil if the
// candidate has none.
func (c *RawCandidate) BestAttachment() *Attachment {
	if len(c.Attachments) == 0 {
		return nil
	}

	best := 0
	for i := 1; i < len(c.Attachments); i++ {
		if attachmentPriority(c.Attachments[i].MediaType) < attachmentPriority(c.Attachments[best].MediaType) {
			best = i
		}
	}

	return &c.Attachments[best]
}
