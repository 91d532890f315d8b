package services

import (
	"context"
	"testing"

	"chat-relay/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ada, bob, eve models.User
	chat          models.Chat
}

func newFixture() fixture {
	f := fixture{
		ada: models.User{ID: uuid.NewString(), Name: "Ada"},
		bob: models.User{ID: uuid.NewString(), Name: "Bob"},
		eve: models.User{ID: uuid.NewString(), Name: "Eve"},
	}
	f.chat = models.Chat{ID: uuid.NewString(), ChatName: "pair", Users: []models.User{f.ada, f.bob}}
	return f
}

func (f fixture) seed(t *testing.T, d Directory) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []models.User{f.ada, f.bob, f.eve} {
		require.NoError(t, d.PutUser(ctx, u))
	}
	require.NoError(t, d.PutChat(ctx, f.chat))
}

func int64p(v int64) *int64 { return &v }
