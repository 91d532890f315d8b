package client

import (
	"testing"

	"chat-relay/internal/models"

	"github.com/stretchr/testify/assert"
)

func msgFrom(senders ...string) []models.Message {
	out := make([]models.Message, len(senders))
	for i, s := range senders {
		out[i] = models.Message{ID: string(rune('a' + i)), Sender: models.User{ID: s}}
	}
	return out
}

func avatars(ds []Directive) []bool {
	out := make([]bool, len(ds))
	for i, d := range ds {
		out[i] = d.ShowAvatar
	}
	return out
}

func TestGroup_ThirdPartyViewer(t *testing.T) {
	ds := Group(msgFrom("U1", "U1", "U2"), "viewer")

	assert.Equal(t, []bool{false, true, true}, avatars(ds))
	assert.Equal(t, []Margin{MarginIndent, MarginAvatar, MarginAvatar}, []Margin{ds[0].Margin, ds[1].Margin, ds[2].Margin})
	assert.False(t, ds[0].Tight)
	assert.True(t, ds[1].Tight)
	assert.False(t, ds[2].Tight)
}

func TestGroup(t *testing.T) {
	tests := []struct {
		name    string
		senders []string
		viewer  string
		avatar  []bool
		tight   []bool
		margins []Margin
	}{
		{
			name:    "empty",
			senders: nil,
			viewer:  "me",
			avatar:  []bool{},
			tight:   []bool{},
			margins: []Margin{},
		},
		{
			name:    "own messages never get an avatar",
			senders: []string{"me", "me"},
			viewer:  "me",
			avatar:  []bool{false, false},
			tight:   []bool{false, true},
			margins: []Margin{MarginAuto, MarginAuto},
		},
		{
			name:    "alternating",
			senders: []string{"A", "me", "A", "A", "me"},
			viewer:  "me",
			avatar:  []bool{true, false, false, true, false},
			tight:   []bool{false, false, false, true, false},
			margins: []Margin{MarginAvatar, MarginAuto, MarginIndent, MarginAvatar, MarginAuto},
		},
		{
			name:    "single other message",
			senders: []string{"A"},
			viewer:  "me",
			avatar:  []bool{true},
			tight:   []bool{false},
			margins: []Margin{MarginAvatar},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := Group(msgFrom(tt.senders...), tt.viewer)
			tight := make([]bool, len(ds))
			margins := make([]Margin, len(ds))
			for i, d := range ds {
				tight[i] = d.Tight
				margins[i] = d.Margin
				assert.Equal(t, tt.senders[i] == tt.viewer, d.Mine)
			}
			assert.Equal(t, tt.avatar, avatars(ds))
			assert.Equal(t, tt.tight, tight)
			assert.Equal(t, tt.margins, margins)
		})
	}
}

func TestRender_ClassifiesAttachments(t *testing.T) {
	msgs := []models.Message{
		{ID: "1", Sender: models.User{ID: "A"}, Content: "hi"},
		{ID: "2", Sender: models.User{ID: "A"}, Attachment: &models.Attachment{URL: "/uploads/1-a.png", Name: "a.png", MimeType: "image/png", Size: 1024}},
		{ID: "3", Sender: models.User{ID: "A"}, Attachment: &models.Attachment{URL: "/uploads/2-b", Name: "PHOTO.JPEG", MimeType: "application/octet-stream", Size: 9}},
		{ID: "4", Sender: models.User{ID: "A"}, Attachment: &models.Attachment{URL: "/uploads/3-c.pdf", Name: "c.pdf", MimeType: "application/pdf", Size: 9}},
	}

	bubbles := Render(msgs, "me")

	kinds := []Kind{bubbles[0].Kind, bubbles[1].Kind, bubbles[2].Kind, bubbles[3].Kind}
	assert.Equal(t, []Kind{KindText, KindImage, KindImage, KindFile}, kinds)
	assert.True(t, bubbles[3].ShowAvatar)
	assert.Equal(t, "avatar", bubbles[3].Margin.String())
}
