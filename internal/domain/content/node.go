package content

import (
	"context"
)

// Kind is the content kind of a node.
type Kind string

const (
	KindExercise Kind = "exercise"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
	KindHTML5    Kind = "html5"
	KindTopic    Kind = "topic"
)

// Node is a content tree node; only the fields the notifier needs.
type Node struct {
	ID        string
	ContentID string
	ChannelID string
	Kind      Kind
}

// Repository defines read access to content nodes.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Node, error)
}
