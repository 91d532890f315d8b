package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chat-relay/internal/models"

	"github.com/gofiber/fiber/v2"
)

const defaultTimeout = 10 * time.Second

// API is the subset of the HTTP surface a session needs.
type API interface {
	Send(ctx context.Context, req models.SendRequest) (*models.Message, error)
	List(ctx context.Context, chatID string) ([]models.Message, error)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Retryable reports whether resending the same request could succeed.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusServiceUnavailable
}

// HTTPAPI talks to the REST endpoints with fiber's client.
type HTTPAPI struct {
	baseURL string
	token   string
}

func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

func (a *HTTPAPI) Send(ctx context.Context, req models.SendRequest) (*models.Message, error) {
	agent := fiber.Post(a.baseURL + "/api/message")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+a.token)
	agent.JSON(req)

	var msg models.Message
	if err := a.do(ctx, agent, http.StatusCreated, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (a *HTTPAPI) List(ctx context.Context, chatID string) ([]models.Message, error) {
	agent := fiber.Get(a.baseURL + "/api/message/" + url.PathEscape(chatID))
	agent.Set(fiber.HeaderAuthorization, "Bearer "+a.token)

	var list []models.Message
	if err := a.do(ctx, agent, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Upload sends a local file as the multipart field "file".
func (a *HTTPAPI) Upload(ctx context.Context, path string) (models.UploadResult, error) {
	agent := fiber.Post(a.baseURL + "/api/message/upload")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+a.token)
	agent.SendFile(path, "file")
	agent.MultipartForm(nil)

	var res models.UploadResult
	if err := a.do(ctx, agent, http.StatusCreated, &res); err != nil {
		return models.UploadResult{}, err
	}
	return res, nil
}

func (a *HTTPAPI) do(ctx context.Context, agent *fiber.Agent, want int, out any) error {
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	agent.Timeout(timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request failed: %w", errors.Join(errs...))
	}
	if code != want {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &e)
		if e.Error == "" {
			e.Error = http.StatusText(code)
		}
		return &APIError{Status: code, Message: e.Error}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
