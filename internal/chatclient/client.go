// Package chatclient is the SDK the front-end talks through: a thin HTTP
// client for the session/store endpoints and a websocket bridge for the
// change feed. It implements every interface internal/chatview consumes.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chatzone/chatzone/internal/chatview"
	"github.com/chatzone/chatzone/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIError is a non-2xx response from the server, carrying the status
// code and the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to one chatzone server. It owns the session token: signup
// and login store it, SignOut drops it, every other call sends it.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

func New(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

type authPayload struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// SignUp creates an account and starts its session.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*models.User, error) {
	var payload authPayload
	err := c.do(ctx, http.MethodPost, "/v1/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &payload)
	if err != nil {
		return nil, err
	}

	c.setToken(payload.Token)
	return &payload.User, nil
}

// Login authenticates an existing account and starts its session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var payload authPayload
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &payload)
	if err != nil {
		return nil, err
	}

	c.setToken(payload.Token)
	return &payload.User, nil
}

// SignOut ends the local session. The JWT is stateless; dropping the
// token is the whole operation.
func (c *Client) SignOut() {
	c.setToken("")
}

// CurrentUser implements chatview.Session. No token, an expired token,
// or a rejected one all map to ErrUnauthenticated; the caller's cue to
// route to login.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	if c.Token() == "" {
		return nil, chatview.ErrUnauthenticated
	}

	var user models.User
	if err := c.do(ctx, http.MethodGet, "/v1/users/me", nil, &user); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, chatview.ErrUnauthenticated
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers implements chatview.UserLister.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/v1/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListConversation implements chatview.MessageLoader.
func (c *Client) ListConversation(ctx context.Context, counterpartID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	path := "/v1/messages?with=" + counterpartID.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage implements chatview.MessageSender.
func (c *Client) SendMessage(ctx context.Context, receiverID uuid.UUID, text string) (*models.Message, error) {
	var msg models.Message
	err := c.do(ctx, http.MethodPost, "/v1/messages", map[string]any{
		"receiver_id": receiverID,
		"text":        text,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpsertProfile implements the profile half of chatview.Authenticator.
func (c *Client) UpsertProfile(ctx context.Context, profile models.User) error {
	return c.do(ctx, http.MethodPut, "/v1/users/me", map[string]any{
		"name":       profile.Name,
		"avatar_url": profile.AvatarURL,
		"is_online":  profile.IsOnline,
	}, nil)
}

// Token returns the current session token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &APIError{Status: resp.StatusCode, Message: errBody.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
