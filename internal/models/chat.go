package models

import "time"

// User is owned by the authentication collaborator; read-only here.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Pic   string `json:"pic,omitempty"`
	Email string `json:"email,omitempty"`
}

// Chat is created and mutated by chat management. This service only reads
// the member list and writes LatestMessageID.
type Chat struct {
	ID              string    `json:"id"`
	ChatName        string    `json:"chatName,omitempty"`
	IsGroupChat     bool      `json:"isGroupChat"`
	Users           []User    `json:"users"`
	LatestMessageID string    `json:"latestMessageId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// HasMember checks whether userID is part of the chat
func (c *Chat) HasMember(userID string) bool {
	for _, u := range c.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}
