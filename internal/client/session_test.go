package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chat-relay/internal/debounce"
	"chat-relay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	history map[string][]models.Message
	listErr error
	sendErr error
	sent    []models.SendRequest
}

func (f *fakeAPI) Send(_ context.Context, req models.SendRequest) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, req)
	return &models.Message{
		ID:      "sent-" + req.Content,
		ChatID:  req.ChatID,
		Content: req.Content,
		Sender:  models.User{ID: "me"},
	}, nil
}

func (f *fakeAPI) List(_ context.Context, chatID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Message(nil), f.history[chatID]...), nil
}

type emitted struct {
	mu     sync.Mutex
	events []models.Event
}

func (e *emitted) send(ev models.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *emitted) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.events {
		out = append(out, ev.Event)
	}
	return out
}

func newTestSession(api *fakeAPI) (*Session, *emitted, *debounce.Manual) {
	var out emitted
	clock := debounce.NewManual()
	s := newSession("me", api, out.send)
	s.Typist = NewTypist(TypingWindow, clock.AfterFunc, s.Emit)
	return s, &out, clock
}

func TestSession_DeliverRoutesByViewedChat(t *testing.T) {
	api := &fakeAPI{history: map[string][]models.Message{"A": {{ID: "old", ChatID: "A"}}}}
	s, _, _ := newTestSession(api)
	require.NoError(t, s.OpenChat(context.Background(), "A"))

	assert.True(t, s.Deliver(incoming("m1", "A", "for open chat")))
	assert.False(t, s.Deliver(incoming("m2", "B", "for another chat")))

	assert.Equal(t, 2, s.Transcript.Len())
	assert.Equal(t, 1, s.Notifications.Len())
	assert.Equal(t, 1, s.Notifications.CountFor("B"))

	// re-delivery does not duplicate either side
	s.Deliver(incoming("m1", "A", "for open chat"))
	s.Deliver(incoming("m2", "B", "for another chat"))
	assert.Equal(t, 2, s.Transcript.Len())
	assert.Equal(t, 1, s.Notifications.Len())
}

func TestSession_DeliverFallsBackWhenTranscriptMovedOn(t *testing.T) {
	s, _, _ := newTestSession(&fakeAPI{})
	require.NoError(t, s.OpenChat(context.Background(), "A"))

	// the transcript already holds the next chat while A is still marked viewed
	s.Transcript.Reset("B", nil)

	assert.False(t, s.Deliver(incoming("m1", "A", "in flight")))
	assert.Equal(t, 1, s.Notifications.CountFor("A"))
	assert.Equal(t, 0, s.Transcript.Len())
}

func TestSession_DeliverDuringChatSwitches(t *testing.T) {
	s, _, _ := newTestSession(&fakeAPI{})
	ctx := context.Background()
	require.NoError(t, s.OpenChat(ctx, "A"))

	const n = 200
	var (
		wg     sync.WaitGroup
		merged int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			chat := "B"
			if i%2 == 1 {
				chat = "C"
			}
			assert.NoError(t, s.OpenChat(ctx, chat))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if s.Deliver(incoming(fmt.Sprintf("m%d", i), "A", "hi")) {
				merged++
			}
		}
	}()
	wg.Wait()

	// every message was either shown while A was open or is waiting as unseen
	assert.Equal(t, n, merged+s.Notifications.CountFor("A"))

	require.NoError(t, s.OpenChat(ctx, "A"))
	assert.Equal(t, n-merged, s.Transcript.Len())
	assert.Equal(t, 0, s.Notifications.CountFor("A"))
}

func TestSession_OpenChatClearsUnseenAndJoins(t *testing.T) {
	api := &fakeAPI{history: map[string][]models.Message{
		"A": {{ID: "a1", ChatID: "A"}},
		"B": {{ID: "b0", ChatID: "B"}},
	}}
	s, out, _ := newTestSession(api)
	require.NoError(t, s.OpenChat(context.Background(), "A"))
	s.Deliver(incoming("b1", "B", "unseen"))

	require.NoError(t, s.OpenChat(context.Background(), "B"))

	assert.Equal(t, "B", s.Viewing())
	assert.Equal(t, 0, s.Notifications.CountFor("B"))
	ids := []string{}
	for _, m := range s.Transcript.Messages() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"b0", "b1"}, ids)
	assert.Equal(t, []string{models.EventJoinChat, models.EventLeaveChat, models.EventJoinChat}, out.names())
}

func TestSession_OpenChatFailureKeepsState(t *testing.T) {
	api := &fakeAPI{history: map[string][]models.Message{"A": {{ID: "a1", ChatID: "A"}}}}
	s, out, _ := newTestSession(api)
	require.NoError(t, s.OpenChat(context.Background(), "A"))

	api.listErr = errors.New("boom")
	err := s.OpenChat(context.Background(), "B")

	require.Error(t, err)
	assert.Equal(t, "A", s.Viewing())
	assert.Equal(t, 1, s.Transcript.Len())
	assert.Equal(t, []string{models.EventJoinChat}, out.names())
}

func TestSession_TypingIndicators(t *testing.T) {
	s, _, _ := newTestSession(&fakeAPI{})

	s.dispatch(models.Event{Event: models.EventTyping, ChatID: "A", UserID: "u2"})
	s.dispatch(models.Event{Event: models.EventTyping, ChatID: "A", UserID: "u3"})
	assert.Equal(t, []string{"u2", "u3"}, s.TypingIn("A"))

	s.dispatch(models.Event{Event: models.EventStopTyping, ChatID: "A", UserID: "u2"})
	assert.Equal(t, []string{"u3"}, s.TypingIn("A"))
}

func TestTypist_OnePairPerPause(t *testing.T) {
	s, out, clock := newTestSession(&fakeAPI{})

	for i := 0; i < 5; i++ {
		s.Typist.Keystroke("A")
		clock.Advance(500 * time.Millisecond)
	}
	assert.Equal(t, []string{models.EventTyping}, out.names())

	clock.Advance(TypingWindow)
	assert.Equal(t, []string{models.EventTyping, models.EventStopTyping}, out.names())

	s.Typist.Keystroke("A")
	assert.True(t, s.Typist.Stop("A"))
	assert.False(t, s.Typist.Stop("A"))
	clock.Advance(time.Minute)
	assert.Len(t, out.names(), 4)
}

func TestComposer_SendSuccess(t *testing.T) {
	api := &fakeAPI{history: map[string][]models.Message{}}
	s, out, clock := newTestSession(api)
	require.NoError(t, s.OpenChat(context.Background(), "A"))
	c := NewComposer(s)

	c.Type("hello")
	msg, err := c.Send(context.Background())
	require.NoError(t, err)

	draft, att := c.Draft()
	assert.Empty(t, draft)
	assert.Nil(t, att)
	assert.Equal(t, "sent-hello", msg.ID)
	assert.Equal(t, 1, s.Transcript.Len())
	assert.Equal(t, []string{
		models.EventJoinChat, models.EventTyping, models.EventStopTyping, models.EventNewMessage,
	}, out.names())

	clock.Advance(time.Minute)
	assert.Len(t, out.names(), 4, "no late stop typing after send")
}

func TestComposer_SendFailureKeepsDraft(t *testing.T) {
	api := &fakeAPI{history: map[string][]models.Message{}, sendErr: &APIError{Status: 503, Message: "temporarily unavailable"}}
	s, out, _ := newTestSession(api)
	require.NoError(t, s.OpenChat(context.Background(), "A"))
	c := NewComposer(s)

	c.Type("keep me")
	c.Attach(models.UploadResult{FileURL: "/uploads/1-a.png", FileName: "a.png", FileType: "image/png", FileSize: 3})
	_, err := c.Send(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Retryable())
	draft, att := c.Draft()
	assert.Equal(t, "keep me", draft)
	assert.NotNil(t, att)
	assert.Equal(t, 0, s.Transcript.Len())
	assert.NotContains(t, out.names(), models.EventNewMessage)
}

func TestComposer_RequiresOpenChat(t *testing.T) {
	s, _, _ := newTestSession(&fakeAPI{})
	_, err := NewComposer(s).Send(context.Background())
	assert.ErrorIs(t, err, ErrNoChatOpen)
}
