package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Attachment is a pre-uploaded file referenced by a message.
// All four fields are set together; a message without a file has a nil *Attachment.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// IsImage reports whether the attachment should be rendered inline as an image.
func (a *Attachment) IsImage() bool {
	if a == nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(a.MimeType), "image/") {
		return true
	}
	return imageExtensions[strings.ToLower(filepath.Ext(a.Name))]
}

type Message struct {
	ID         string      `json:"id"`
	Sender     User        `json:"sender"`
	ChatID     string      `json:"chatId"`
	Chat       *Chat       `json:"chat,omitempty"`
	Content    string      `json:"content,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Populated reports whether the chat and its member list were resolved.
func (m *Message) Populated() bool {
	return m.Chat != nil && len(m.Chat.Users) > 0
}

// NewMessage is the validated input handed to a Store.
type NewMessage struct {
	ChatID     string
	SenderID   string
	Content    string
	Attachment *Attachment
}

// SendRequest is the body of POST /api/message.
type SendRequest struct {
	ChatID   string `json:"chatId"`
	Content  string `json:"content"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize *int64 `json:"fileSize"`
}

// UploadResult is returned by the blob store after saving a file.
type UploadResult struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}
