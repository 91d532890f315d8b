package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"chat-relay/internal/models"
	"chat-relay/internal/services"
)

// Seed is the SEED_FILE format: users first, then chats referencing them.
type Seed struct {
	Users []models.User `json:"users"`
	Chats []models.Chat `json:"chats"`
}

// LoadSeed reads a seed file and writes it through dir.
func LoadSeed(ctx context.Context, path string, dir services.Directory) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}

	for _, u := range seed.Users {
		if err := dir.PutUser(ctx, u); err != nil {
			return Seed{}, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}
	for _, c := range seed.Chats {
		if err := dir.PutChat(ctx, c); err != nil {
			return Seed{}, fmt.Errorf("seed chat %s: %w", c.ID, err)
		}
	}
	return seed, nil
}
