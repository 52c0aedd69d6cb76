package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/resource"
)

// APIClient talks to the projectsync HTTP API.
type APIClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Dialer: websocket.DefaultDialer,
	}
}

// APIError is the error envelope returned by the server.
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// doRequest performs an authenticated request and decodes the envelope's
// data into result.
func (c *APIClient) doRequest(ctx context.Context, method, endpoint string, query url.Values, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	fullURL, err := url.JoinPath(c.BaseURL, endpoint)
	if err != nil {
		return fmt.Errorf("failed to join URL path: %w", err)
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return decodeResponse(resp, result)
}

func decodeResponse(resp *http.Response, result interface{}) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 400 {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Message: strings.TrimSpace(string(raw))}
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}
	return nil
}

// Health checks the server's aggregate health endpoint.
func (c *APIClient) Health(ctx context.Context) (map[string]interface{}, error) {
	fullURL := c.BaseURL + "/healthz"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return health, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprint(health["status"])}
	}
	return health, nil
}

// Me returns the caller's profile.
func (c *APIClient) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.doRequest(ctx, http.MethodGet, "/api/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProjects lists the caller's projects.
func (c *APIClient) GetProjects(ctx context.Context) ([]*domain.Project, error) {
	var projects []*domain.Project
	err := c.doRequest(ctx, http.MethodGet, "/api/projects", nil, nil, &projects)
	return projects, err
}

// GetProjectTasks lists a project's tasks.
func (c *APIClient) GetProjectTasks(ctx context.Context, projectID string) ([]*domain.Task, error) {
	var tasks []*domain.Task
	endpoint := "/api/projects/" + url.PathEscape(projectID) + "/tasks"
	err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil, &tasks)
	return tasks, err
}

// GetOverdueTasks lists overdue tasks the caller created or is assigned to.
func (c *APIClient) GetOverdueTasks(ctx context.Context) ([]*domain.Task, error) {
	var tasks []*domain.Task
	err := c.doRequest(ctx, http.MethodGet, "/api/me/tasks/overdue", nil, nil, &tasks)
	return tasks, err
}

func (c *APIClient) GetUnreadNotifications(ctx context.Context) ([]*domain.Notification, error) {
	var notifications []*domain.Notification
	err := c.doRequest(ctx, http.MethodGet, "/api/notifications", url.Values{"unread": {"true"}}, nil, &notifications)
	return notifications, err
}

// MarkAllNotificationsRead returns how many notifications were marked.
func (c *APIClient) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	var result struct {
		Marked int `json:"marked"`
	}
	err := c.doRequest(ctx, http.MethodPut, "/api/notifications/read-all", nil, nil, &result)
	return result.Marked, err
}

func (c *APIClient) GetChatUnreadCount(ctx context.Context, chatID string) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	endpoint := "/api/chats/" + url.PathEscape(chatID) + "/unread-count"
	err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil, &result)
	return result.Count, err
}

// Watch subscribes to a stream topic and calls fn for every frame until ctx
// is done, fn returns an error or the server closes the stream.
func Watch[T any](ctx context.Context, c *APIClient, topic, id string, fn func(resource.Payload[T]) error) error {
	wsURL, err := url.Parse(c.BaseURL + "/api/ws")
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	q := url.Values{"topic": {topic}}
	if id != "" {
		q.Set("id", id)
	}
	wsURL.RawQuery = q.Encode()

	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}
	conn, resp, err := c.Dialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			if apiErr := decodeResponse(resp, nil); apiErr != nil {
				return apiErr
			}
		}
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var frame resource.Payload[T]
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("stream closed: %w", err)
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
}
