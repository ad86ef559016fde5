package thread

import (
	"strings"

	"github.com/smartbrew/outreach/internal/message"
)

// Status is the response state derived for one outbound message.
type Status string

const (
	StatusResponded    Status = "Responded"
	StatusNotResponded Status = "Not Responded"

	// StatusFailureDelay is the fixed literal for delivery-failure notices.
	// Those are system-generated, so the classifier is bypassed entirely.
	StatusFailureDelay Status = "Failure/Delay"
)

var replyPrefixes = []string{"re:", "fw:", "fwd:"}

// Classify decides whether a message has been responded to. Thread
// membership is authoritative when available; the subject and reference
// fallbacks trade precision for recall, since the graph is built from a
// bounded sample and headers can be truncated.
func Classify(rec *message.Record, g *Graph) Status {
	if rec.MessageID != "" {
		if threadID, ok := g.ThreadOf(rec.MessageID); ok && g.Size(threadID) > 1 {
			return StatusResponded
		}
	}

	subject := strings.ToLower(rec.Subject)
	for _, prefix := range replyPrefixes {
		if strings.Contains(subject, prefix) {
			return StatusResponded
		}
	}

	if len(rec.References) > 0 || rec.InReplyTo != "" {
		return StatusResponded
	}

	return StatusNotResponded
}
