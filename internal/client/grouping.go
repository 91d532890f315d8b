package client

import "chat-relay/internal/models"

// Margin is the horizontal placement of a bubble.
type Margin int

const (
	// MarginAuto pushes the viewer's own messages to the right.
	MarginAuto Margin = iota
	// MarginAvatar sits next to a shown avatar.
	MarginAvatar
	// MarginIndent lines up with bubbles that have an avatar.
	MarginIndent
)

func (m Margin) String() string {
	switch m {
	case MarginAvatar:
		return "avatar"
	case MarginIndent:
		return "indent"
	default:
		return "auto"
	}
}

// Directive says how to draw the message at the same index.
type Directive struct {
	ShowAvatar bool
	Tight      bool
	Mine       bool
	Margin     Margin
}

// Group derives render directives from sender adjacency. Messages are oldest first.
func Group(messages []models.Message, viewerID string) []Directive {
	out := make([]Directive, len(messages))
	last := len(messages) - 1
	for i, m := range messages {
		mine := m.Sender.ID == viewerID
		endOfRun := i == last || messages[i+1].Sender.ID != m.Sender.ID

		d := Directive{
			Mine:  mine,
			Tight: i > 0 && messages[i-1].Sender.ID == m.Sender.ID,
		}
		switch {
		case mine:
			d.Margin = MarginAuto
		case endOfRun:
			d.ShowAvatar = true
			d.Margin = MarginAvatar
		default:
			d.Margin = MarginIndent
		}
		out[i] = d
	}
	return out
}

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindFile  Kind = "file"
)

// Bubble is a message ready for display.
type Bubble struct {
	Directive
	Message models.Message
	Kind    Kind
}

func Render(messages []models.Message, viewerID string) []Bubble {
	directives := Group(messages, viewerID)
	bubbles := make([]Bubble, len(messages))
	for i, m := range messages {
		kind := KindText
		if m.Attachment != nil {
			kind = KindFile
			if m.Attachment.IsImage() {
				kind = KindImage
			}
		}
		bubbles[i] = Bubble{Directive: directives[i], Message: m, Kind: kind}
	}
	return bubbles
}
