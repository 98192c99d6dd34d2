// Package notify announces artifact lifecycle events on chat platforms.
package notify

import (
	"context"
	"time"
)

// Adapter is the interface platform-specific implementations must satisfy.
// Notification delivery is outbound-only; inbound chat is not part of the
// workflow.
type Adapter interface {
	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// EventType identifies the kind of event detected by the watcher.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventNewArtifact EventType = "new_artifact"
	EventDigest      EventType = "digest"
)

// Event is one detected artifact lifecycle change before formatting.
type Event struct {
	Type      EventType
	Timestamp time.Time

	// State change and new artifact events.
	ArtifactID   uint
	ArtifactName string
	TypeName     string
	ProjectName  string
	OldState     string
	NewState     string

	// Digest events.
	Digest *Digest
}

// OutboundMessage is a message ready for platform delivery.
type OutboundMessage struct {
	ChannelID string           // target channel; empty uses the adapter default
	Text      string           // fallback text (platform-native formatting)
	Events    []FormattedEvent // structured event attachments
}

// FormattedEvent is an artifact event formatted for display in chat.
type FormattedEvent struct {
	Title  string
	Body   string
	Color  string  // sidebar color hint (e.g. "#36a64f")
	Fields []Field // key-value metadata pairs
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}
