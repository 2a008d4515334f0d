package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.clickup.com/api/v2"

// Config holds ClickUp client configuration.
type Config struct {
	APIKey  string
	TeamID  string
	BaseURL string // Optional: overridden in tests
	// HTTPClient is optional. The default client carries no timeout; a hung
	// call blocks the turn, and any deadline is the caller's concern.
	HTTPClient *http.Client
}

// Client issues one-shot authenticated calls against the ClickUp v2 API.
// It holds no local cache and never retries: mutating calls are not assumed
// idempotent, so retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	teamID     string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("clickup: API key is required")
	}
	if cfg.TeamID == "" {
		return nil, fmt.Errorf("clickup: team ID is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		teamID:     cfg.TeamID,
	}, nil
}

// GetSpaces returns all spaces for the configured team.
func (c *Client) GetSpaces(ctx context.Context) ([]Space, error) {
	var resp struct {
		Spaces []Space `json:"spaces"`
	}
	path := fmt.Sprintf("/team/%s/space", url.PathEscape(c.teamID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Spaces, nil
}

// GetLists returns all lists in a space.
func (c *Client) GetLists(ctx context.Context, spaceID string) ([]List, error) {
	var resp struct {
		Lists []List `json:"lists"`
	}
	path := fmt.Sprintf("/space/%s/list", url.PathEscape(spaceID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Lists, nil
}

// GetTasks returns all tasks in a list. Pagination is not implemented;
// ClickUp's last_page marker is decoded and ignored.
func (c *Client) GetTasks(ctx context.Context, listID string) ([]Task, error) {
	var resp struct {
		Tasks    []Task `json:"tasks"`
		LastPage bool   `json:"last_page"`
	}
	path := fmt.Sprintf("/list/%s/task", url.PathEscape(listID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// GetTask returns a single task by id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	path := fmt.Sprintf("/task/%s", url.PathEscape(taskID))
	if err := c.do(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTaskRequest carries the fields for task creation.
// Priority is the ClickUp ordinal: 1=urgent, 2=high, 3=normal, 4=low.
type CreateTaskRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Priority      int      `json:"priority,omitempty"`
	DueDate       int64    `json:"due_date,omitempty"`
	DueDateTime   bool     `json:"due_date_time"`
	StartDate     int64    `json:"start_date,omitempty"`
	StartDateTime bool     `json:"start_date_time"`
	TimeEstimate  int64    `json:"time_estimate,omitempty"`
	Assignees     []int64  `json:"assignees,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Status        string   `json:"status,omitempty"`
}

// CreateTask creates a task in a list and returns the created task.
func (c *Client) CreateTask(ctx context.Context, listID string, req CreateTaskRequest) (*Task, error) {
	var task Task
	path := fmt.Sprintf("/list/%s/task", url.PathEscape(listID))
	if err := c.do(ctx, http.MethodPost, path, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTaskRequest carries a partial update; nil fields are left untouched.
type UpdateTaskRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Status        *string `json:"status,omitempty"`
	Priority      *int    `json:"priority,omitempty"`
	DueDate       *int64  `json:"due_date,omitempty"`
	DueDateTime   *bool   `json:"due_date_time,omitempty"`
	StartDate     *int64  `json:"start_date,omitempty"`
	StartDateTime *bool   `json:"start_date_time,omitempty"`
	TimeEstimate  *int64  `json:"time_estimate,omitempty"`
	Assignees     []int64 `json:"assignees,omitempty"`
	Archived      *bool   `json:"archived,omitempty"`
}

// UpdateTask applies a partial update to a task and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (*Task, error) {
	var task Task
	path := fmt.Sprintf("/task/%s", url.PathEscape(taskID))
	if err := c.do(ctx, http.MethodPut, path, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	path := fmt.Sprintf("/task/%s", url.PathEscape(taskID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// SetCustomField sets a custom field value on a task.
func (c *Client) SetCustomField(ctx context.Context, taskID, fieldID string, value any) error {
	path := fmt.Sprintf("/task/%s/field/%s", url.PathEscape(taskID), url.PathEscape(fieldID))
	body := map[string]any{"value": value}
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// do performs one HTTP request and decodes the response into out (if non-nil).
// Error mapping: network failure → TransportError, non-2xx → RemoteServiceError,
// undecodable 2xx body → MalformedResponseError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("clickup: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("clickup: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	slog.DebugContext(ctx, "clickup call completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteServiceError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &MalformedResponseError{Err: err}
	}
	return nil
}
