package services

import (
	"context"
	"errors"
	"time"

	"chat-relay/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// invalid_text_representation, e.g. a malformed uuid
const pgInvalidText = "22P02"

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const chatColumns = `id, chat_name, is_group_chat, latest_message_id, created_at`

const messageSelect = `
	SELECT m.id, m.chat_id, m.content, m.file_url, m.file_name, m.file_type, m.file_size, m.created_at,
	       u.id, u.name, u.pic, u.email
	FROM messages m
	JOIN users u ON u.id = m.sender_id`

func (s *PgStore) ChatByID(ctx context.Context, id string) (*models.Chat, error) {
	if !validID(id) {
		return nil, notFound("chat", id)
	}
	chat, err := scanChat(s.pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id))
	if err != nil {
		return nil, classify("load chat", "chat", id, err)
	}
	if chat.Users, err = members(ctx, s.pool, id); err != nil {
		return nil, transient("load members", err)
	}
	return chat, nil
}

// Append locks the chat row so concurrent sends to one chat serialise, checks
// membership, inserts the message and moves the chat's latest pointer.
func (s *PgStore) Append(ctx context.Context, nm models.NewMessage) (*models.Message, error) {
	if err := checkNewMessage(nm); err != nil {
		return nil, err
	}
	if !validID(nm.ChatID) || !validID(nm.SenderID) {
		return nil, notFound("chat", nm.ChatID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, transient("begin", err)
	}
	defer tx.Rollback(ctx)

	chat, err := scanChat(tx.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1 FOR UPDATE`, nm.ChatID))
	if err != nil {
		return nil, classify("lock chat", "chat", nm.ChatID, err)
	}
	if chat.Users, err = members(ctx, tx, nm.ChatID); err != nil {
		return nil, transient("load members", err)
	}
	if !chat.HasMember(nm.SenderID) {
		return nil, notFound("chat", nm.ChatID)
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		ChatID:     nm.ChatID,
		Content:    nm.Content,
		Attachment: copyAttachment(nm.Attachment),
	}
	var url, name, mime *string
	var size *int64
	if a := msg.Attachment; a != nil {
		url, name, mime, size = &a.URL, &a.Name, &a.MimeType, &a.Size
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, content, file_url, file_name, file_type, file_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		msg.ID, nm.ChatID, nm.SenderID, nm.Content, url, name, mime, size,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, transient("insert message", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE chats SET latest_message_id = $1 WHERE id = $2`, msg.ID, nm.ChatID); err != nil {
		return nil, transient("update latest message", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, transient("commit", err)
	}

	for _, u := range chat.Users {
		if u.ID == nm.SenderID {
			msg.Sender = u
			break
		}
	}
	chat.LatestMessageID = msg.ID
	msg.Chat = chat
	return msg, nil
}

func (s *PgStore) ListByChat(ctx context.Context, chatID string) ([]models.Message, error) {
	if !validID(chatID) {
		return []models.Message{}, nil
	}
	rows, err := s.pool.Query(ctx, messageSelect+` WHERE m.chat_id = $1 ORDER BY m.seq`, chatID)
	if err != nil {
		return nil, transient("list messages", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, transient("scan message", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("list messages", err)
	}
	return messages, nil
}

func (s *PgStore) MessageByID(ctx context.Context, id string) (*models.Message, error) {
	if !validID(id) {
		return nil, notFound("message", id)
	}
	msg, err := scanMessage(s.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, classify("load message", "message", id, err)
	}
	return msg, nil
}

func (s *PgStore) PutUser(ctx context.Context, u models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, pic, email) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, pic = EXCLUDED.pic, email = EXCLUDED.email`,
		u.ID, u.Name, u.Pic, u.Email)
	if err != nil {
		return transient("put user", err)
	}
	return nil
}

// PutChat upserts the chat and replaces its membership. Members must already exist as users.
func (s *PgStore) PutChat(ctx context.Context, c models.Chat) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return transient("begin", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO chats (id, chat_name, is_group_chat) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET chat_name = EXCLUDED.chat_name, is_group_chat = EXCLUDED.is_group_chat`,
		c.ID, c.ChatName, c.IsGroupChat)
	if err != nil {
		return transient("put chat", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat_users WHERE chat_id = $1`, c.ID); err != nil {
		return transient("reset members", err)
	}
	for _, u := range c.Users {
		if _, err := tx.Exec(ctx, `INSERT INTO chat_users (chat_id, user_id) VALUES ($1, $2)`, c.ID, u.ID); err != nil {
			return transient("add member", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return transient("commit", err)
	}
	return nil
}

func members(ctx context.Context, q querier, chatID string) ([]models.User, error) {
	rows, err := q.Query(ctx, `
		SELECT u.id, u.name, u.pic, u.email
		FROM chat_users cu
		JOIN users u ON u.id = cu.user_id
		WHERE cu.chat_id = $1
		ORDER BY u.name, u.id`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Pic, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanChat(row pgx.Row) (*models.Chat, error) {
	var (
		chat   models.Chat
		latest *string
	)
	if err := row.Scan(&chat.ID, &chat.ChatName, &chat.IsGroupChat, &latest, &chat.CreatedAt); err != nil {
		return nil, err
	}
	if latest != nil {
		chat.LatestMessageID = *latest
	}
	return &chat, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		msg             models.Message
		url, name, mime *string
		size            *int64
		createdAt       time.Time
	)
	err := row.Scan(&msg.ID, &msg.ChatID, &msg.Content, &url, &name, &mime, &size, &createdAt,
		&msg.Sender.ID, &msg.Sender.Name, &msg.Sender.Pic, &msg.Sender.Email)
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = createdAt
	if url != nil && name != nil && mime != nil && size != nil {
		msg.Attachment = &models.Attachment{URL: *url, Name: *name, MimeType: *mime, Size: *size}
	}
	return &msg, nil
}

func classify(op, resource, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(resource, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInvalidText {
		return notFound(resource, id)
	}
	return transient(op, err)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
