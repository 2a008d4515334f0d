package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"taskdeck.app/agent/common/llm"
	"taskdeck.app/agent/common/logger"
	"taskdeck.app/agent/internal/clickup"
	"taskdeck.app/agent/internal/state"
)

// Service is the remote surface the catalog drives. *clickup.Client satisfies
// it; tests substitute function-field mocks.
type Service interface {
	GetSpaces(ctx context.Context) ([]clickup.Space, error)
	GetLists(ctx context.Context, spaceID string) ([]clickup.List, error)
	GetTasks(ctx context.Context, listID string) ([]clickup.Task, error)
	GetTask(ctx context.Context, taskID string) (*clickup.Task, error)
	CreateTask(ctx context.Context, listID string, req clickup.CreateTaskRequest) (*clickup.Task, error)
	UpdateTask(ctx context.Context, taskID string, req clickup.UpdateTaskRequest) (*clickup.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	SetCustomField(ctx context.Context, taskID, fieldID string, value any) error
}

// Removal marks an entity confirmed deleted remotely.
type Removal struct {
	Kind state.ResourceKind
	ID   string
}

// Result is one tool call's outcome: the text handed back to the model, plus
// the state effects the caller forwards to the reconciler. Event and Removal
// are nil for calls with no state side effect.
type Result struct {
	Text    string
	Event   *state.Event
	Removal *Removal
}

// Catalog exposes the ClickUp operations as model-callable tools.
type Catalog struct {
	svc Service
}

func NewCatalog(svc Service) *Catalog {
	return &Catalog{svc: svc}
}

type getListsParams struct {
	SpaceID string `json:"space_id" jsonschema:"description=ID of the space to list"`
}

type getTasksParams struct {
	ListID string `json:"list_id" jsonschema:"description=ID of the list whose tasks to fetch"`
}

type getTaskParams struct {
	TaskID string `json:"task_id" jsonschema:"description=ID of the task to fetch"`
}

type createTaskParams struct {
	ListID        string   `json:"list_id" jsonschema:"description=ID of the list to create the task in"`
	Name          string   `json:"name" jsonschema:"description=Task name"`
	Description   string   `json:"description,omitempty" jsonschema:"description=Task description"`
	Priority      int      `json:"priority,omitempty" jsonschema:"description=Priority: 1=urgent 2=high 3=normal 4=low"`
	DueDate       int64    `json:"due_date,omitempty" jsonschema:"description=Due date as epoch milliseconds"`
	DueDateTime   bool     `json:"due_date_time,omitempty" jsonschema:"description=Whether due_date includes a time of day"`
	StartDate     int64    `json:"start_date,omitempty" jsonschema:"description=Start date as epoch milliseconds"`
	StartDateTime bool     `json:"start_date_time,omitempty" jsonschema:"description=Whether start_date includes a time of day"`
	TimeEstimate  int64    `json:"time_estimate,omitempty" jsonschema:"description=Time estimate in milliseconds"`
	Assignees     []int64  `json:"assignees,omitempty" jsonschema:"description=User IDs to assign"`
	Tags          []string `json:"tags,omitempty" jsonschema:"description=Tag names to apply"`
	Status        string   `json:"status,omitempty" jsonschema:"description=Status to create the task in"`
}

type updateTaskParams struct {
	TaskID        string  `json:"task_id" jsonschema:"description=ID of the task to update"`
	Name          *string `json:"name,omitempty" jsonschema:"description=New task name"`
	Description   *string `json:"description,omitempty" jsonschema:"description=New description"`
	Status        *string `json:"status,omitempty" jsonschema:"description=New status"`
	Priority      *int    `json:"priority,omitempty" jsonschema:"description=Priority: 1=urgent 2=high 3=normal 4=low"`
	DueDate       *int64  `json:"due_date,omitempty" jsonschema:"description=Due date as epoch milliseconds"`
	DueDateTime   *bool   `json:"due_date_time,omitempty" jsonschema:"description=Whether due_date includes a time of day"`
	StartDate     *int64  `json:"start_date,omitempty" jsonschema:"description=Start date as epoch milliseconds"`
	StartDateTime *bool   `json:"start_date_time,omitempty" jsonschema:"description=Whether start_date includes a time of day"`
	TimeEstimate  *int64  `json:"time_estimate,omitempty" jsonschema:"description=Time estimate in milliseconds"`
	Assignees     []int64 `json:"assignees,omitempty" jsonschema:"description=Replacement set of assignee user IDs"`
	Archived      *bool   `json:"archived,omitempty" jsonschema:"description=Archive or unarchive the task"`
}

type deleteTaskParams struct {
	TaskID string `json:"task_id" jsonschema:"description=ID of the task to delete"`
}

type setCustomFieldParams struct {
	TaskID  string `json:"task_id" jsonschema:"description=ID of the task"`
	FieldID string `json:"field_id" jsonschema:"description=ID of the custom field"`
	Value   any    `json:"value" jsonschema:"description=Value to set on the field"`
}

// Definitions returns the tool schemas offered to the model. Names are the
// wire contract with the planner prompt; changing one silently breaks routing.
func (c *Catalog) Definitions() []llm.Tool {
	return []llm.Tool{
		{
			Name:        "get_clickup_spaces",
			Description: "Fetch all spaces in the workspace.",
			Parameters:  llm.GenerateSchemaFrom(struct{}{}),
		},
		{
			Name:        "get_clickup_lists",
			Description: "Fetch all lists in a space.",
			Parameters:  llm.GenerateSchemaFrom(getListsParams{}),
		},
		{
			Name:        "get_clickup_tasks",
			Description: "Fetch all tasks in a list.",
			Parameters:  llm.GenerateSchemaFrom(getTasksParams{}),
		},
		{
			Name:        "get_clickup_task_by_id",
			Description: "Fetch a single task by its ID.",
			Parameters:  llm.GenerateSchemaFrom(getTaskParams{}),
		},
		{
			Name:        "create_clickup_task",
			Description: "Create a task in a list.",
			Parameters:  llm.GenerateSchemaFrom(createTaskParams{}),
		},
		{
			Name:        "update_clickup_task",
			Description: "Update fields of an existing task. Omitted fields are left unchanged.",
			Parameters:  llm.GenerateSchemaFrom(updateTaskParams{}),
		},
		{
			Name:        "delete_clickup_task",
			Description: "Permanently delete a task.",
			Parameters:  llm.GenerateSchemaFrom(deleteTaskParams{}),
		},
		{
			Name:        "set_clickup_custom_field_value",
			Description: "Set a custom field value on a task.",
			Parameters:  llm.GenerateSchemaFrom(setCustomFieldParams{}),
		},
	}
}

// Execute runs one tool call. Arguments are validated locally before any
// remote call; remote errors pass through untranslated so the caller can map
// them by type.
func (c *Catalog) Execute(ctx context.Context, name, arguments string) (*Result, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Tool: logger.Ptr(name), Component: "tools"})

	sc := logger.StartSpan(ctx, "tools."+name)
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	result, err := c.dispatch(ctx, name, arguments)
	if err != nil {
		sc.RecordError(err)
		slog.WarnContext(ctx, "tool call failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	slog.InfoContext(ctx, "tool call completed", "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

func (c *Catalog) dispatch(ctx context.Context, name, arguments string) (*Result, error) {
	switch name {
	case "get_clickup_spaces":
		return c.getSpaces(ctx)
	case "get_clickup_lists":
		return c.getLists(ctx, arguments)
	case "get_clickup_tasks":
		return c.getTasks(ctx, arguments)
	case "get_clickup_task_by_id":
		return c.getTaskByID(ctx, arguments)
	case "create_clickup_task":
		return c.createTask(ctx, arguments)
	case "update_clickup_task":
		return c.updateTask(ctx, arguments)
	case "delete_clickup_task":
		return c.deleteTask(ctx, arguments)
	case "set_clickup_custom_field_value":
		return c.setCustomField(ctx, arguments)
	default:
		return nil, &UnknownToolError{Name: name}
	}
}

func (c *Catalog) getSpaces(ctx context.Context) (*Result, error) {
	spaces, err := c.svc.GetSpaces(ctx)
	if err != nil {
		return nil, err
	}
	text, err := encodeEnvelope("spaces", spaces)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:  text,
		Event: &state.Event{Kind: state.KindSpaces, Payload: text},
	}, nil
}

func (c *Catalog) getLists(ctx context.Context, arguments string) (*Result, error) {
	params, err := parseArguments[getListsParams](arguments)
	if err != nil {
		return nil, err
	}
	if params.SpaceID == "" {
		return nil, &InvalidArgumentError{Field: "space_id", Reason: "must not be empty"}
	}

	lists, err := c.svc.GetLists(ctx, params.SpaceID)
	if err != nil {
		return nil, err
	}
	text, err := encodeEnvelope("lists", lists)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:  text,
		Event: &state.Event{Kind: state.KindLists, ParentID: params.SpaceID, Payload: text},
	}, nil
}

func (c *Catalog) getTasks(ctx context.Context, arguments string) (*Result, error) {
	params, err := parseArguments[getTasksParams](arguments)
	if err != nil {
		return nil, err
	}
	if params.ListID == "" {
		return nil, &InvalidArgumentError{Field: "list_id", Reason: "must not be empty"}
	}

	tasks, err := c.svc.GetTasks(ctx, params.ListID)
	if err != nil {
		return nil, err
	}
	text, err := encodeEnvelope("tasks", tasks)
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:  text,
		Event: &state.Event{Kind: state.KindTasks, ParentID: params.ListID, Payload: text},
	}, nil
}

func (c *Catalog) getTaskByID(ctx context.Context, arguments string) (*Result, error) {
	params, err := parseArguments[getTaskParams](arguments)
	if err != nil {
		return nil, err
	}
	if params.TaskID == "" {
		return nil, &InvalidArgumentError{Field: "task_id", Reason: "must not be empty"}
	}

	task, err := c.svc.GetTask(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}
	return taskResult(task)
}

func (c *Catalog) createTask(ctx context.Context, arguments string) (*Result, error) {
	params, err := parseArguments[createTaskParams](arguments)
	if err != nil {
		return nil, err
	}
	if params.ListID == "" {
		return nil, &InvalidArgumentError{Field: "list_id", Reason: "must not be empty"}
	}
	if params.Name == "" {
		return nil, &InvalidArgumentError{Field: "name", Reason: "must not be empty"}
	}
	if err := validatePriority(params.Priority); err != nil {
		return nil, err
	}
	for field, value := range map[string]int64{
		"due_date":      params.DueDate,
		"start_date":    params.StartDate,
		"time_estimate": params.TimeEstimate,
	} {
		if value < 0 {
			return nil, &InvalidArgumentError{Field: field, Reason: "must not be negative"}
		}
	}

	task, err := c.svc.CreateTask(ctx, params.ListID, clickup.CreateTaskRequest{
		Name:          params.Name,
		Description:   params.Description,
		Priority:      params.Priority,
		DueDate:       params.DueDate,
		DueDateTime:   params.DueDateTime,
		StartDate:     params.StartDate,
		StartDateTime: params.StartDateTime,
		TimeEstimate:  params.TimeEstimate,
		Assignees:     params.Assignees,
		Tags:          params.Tags,
		Status:        params.Status,
	})
	if err != nil {
		return nil, err
	}
	return taskResult(task)
}

func (c *Catalog) updateTask(ctx context.Context, arguments string) (*Result, error) {
	params, err := parseArguments[updateTaskParams](arguments)
	if err != nil {
		return nil, err
	}
	if params.TaskID == "" {
		return nil, &InvalidArgumentError{Field: "task_id", Reason: "must not be empty"}
	}
	if params.Priority != nil {
		if err := validatePriority(*params.Priority); err != nil {
			return nil, err
		}
	}
	for field, value := range map[string]*int64{
		"due_date":      params.DueDate,
		"start_date":    params.StartDate,
		"time_estimate": params.TimeEstimate,
	} {
		if value != nil && *value < 0 {
			return nil, &InvalidArgumentError{Field: field, Reason: "must not be negative"}
		}
	}

	task, err := c.svc.UpdateTask(ctx, params.TaskID, clickup.UpdateTaskRequest{
		Name:          params.Name,
		Description:   params.Description,
		Status:        params.Status,
		Priority:      params.Priority,
		DueDate:       params.DueDate,
		DueDateTime:   params.DueDateTime,
		StartDate:     params.StartDate,
		StartDateTime: params.StartDateTime,
		TimeEstimate:  params.TimeEstimate,
		Assignees:     params.Assignees,
		Archived:      params.Archived,
	})
	if err != nil {
		return nil, err
	}
	return taskResult(task)
}

func (c *Catalog) deleteTask(ctx context.Context, arguments string) (*Result, error) {
	params, err := parseArguments[deleteTaskParams](arguments)
	if err != nil {
		return nil, err
	}
	if params.TaskID == "" {
		return nil, &InvalidArgumentError{Field: "task_id", Reason: "must not be empty"}
	}

	if err := c.svc.DeleteTask(ctx, params.TaskID); err != nil {
		return nil, err
	}
	return &Result{
		Text:    fmt.Sprintf("Task %s deleted.", params.TaskID),
		Removal: &Removal{Kind: state.KindTasks, ID: params.TaskID},
	}, nil
}

func (c *Catalog) setCustomField(ctx context.Context, arguments string) (*Result, error) {
	params, err := parseArguments[setCustomFieldParams](arguments)
	if err != nil {
		return nil, err
	}
	if params.TaskID == "" {
		return nil, &InvalidArgumentError{Field: "task_id", Reason: "must not be empty"}
	}
	if params.FieldID == "" {
		return nil, &InvalidArgumentError{Field: "field_id", Reason: "must not be empty"}
	}

	// The planner sometimes sends structured values as a JSON string.
	if s, ok := params.Value.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			params.Value = decoded
		}
	}

	if err := c.svc.SetCustomField(ctx, params.TaskID, params.FieldID, params.Value); err != nil {
		return nil, err
	}
	return &Result{
		Text: fmt.Sprintf("Custom field %s set on task %s.", params.FieldID, params.TaskID),
	}, nil
}

// taskResult wraps a single task in a tasks envelope with no parent scope,
// so merging it upserts without superseding siblings.
func taskResult(task *clickup.Task) (*Result, error) {
	text, err := encodeEnvelope("tasks", []clickup.Task{*task})
	if err != nil {
		return nil, err
	}
	return &Result{
		Text:  text,
		Event: &state.Event{Kind: state.KindTasks, Payload: text},
	}, nil
}

func encodeEnvelope(key string, items any) (string, error) {
	data, err := json.Marshal(map[string]any{key: items})
	if err != nil {
		return "", fmt.Errorf("tools: encode result: %w", err)
	}
	return string(data), nil
}

func parseArguments[T any](arguments string) (T, error) {
	if arguments == "" {
		arguments = "{}"
	}
	parsed, err := llm.ParseToolArguments[T](arguments)
	if err != nil {
		var zero T
		return zero, &InvalidArgumentError{Field: "arguments", Reason: err.Error()}
	}
	return parsed, nil
}

func validatePriority(p int) error {
	if p < 0 || p > 4 {
		return &InvalidArgumentError{Field: "priority", Reason: "must be between 1 (urgent) and 4 (low)"}
	}
	return nil
}
