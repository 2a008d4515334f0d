package clickup

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Millis is an epoch-millisecond timestamp or millisecond duration.
// ClickUp encodes these as JSON strings; tool payloads may carry numbers.
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("millis: %w", err)
	}
	*m = Millis(v)
	return nil
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(m), 10)), nil
}

// UserRef identifies a ClickUp user on a task or space membership.
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Color    string `json:"color,omitempty"`
	Initials string `json:"initials,omitempty"`
}

// Member wraps a user in a space member list.
type Member struct {
	User UserRef `json:"user"`
}

// Space is the top-level workspace container. Spaces are created and
// destroyed only by ClickUp itself; locally we hold read snapshots.
type Space struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Color    string         `json:"color,omitempty"`
	Archived bool           `json:"archived"`
	Features map[string]any `json:"features,omitempty"`
	Members  []Member       `json:"members,omitempty"`
}

// ListStatus is the optional default status descriptor on a list.
type ListStatus struct {
	Status string `json:"status"`
	Color  string `json:"color,omitempty"`
}

// Priority is a task or list priority descriptor.
// ClickUp encodes orderindex as a string here.
type Priority struct {
	ID         string `json:"id,omitempty"`
	Priority   string `json:"priority"`
	Color      string `json:"color,omitempty"`
	OrderIndex string `json:"orderindex,omitempty"`
}

// List is a named collection of tasks within a space. SpaceID is a
// back-reference only, never an ownership edge; when the raw payload
// carries a nested space object instead, decoding lifts its id.
type List struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	OrderIndex int         `json:"orderindex,omitempty"`
	Status     *ListStatus `json:"status,omitempty"`
	Priority   *Priority   `json:"priority,omitempty"`
	Archived   bool        `json:"archived"`
	TaskCount  int         `json:"task_count,omitempty"`
	SpaceID    string      `json:"space_id,omitempty"`
}

func (l *List) UnmarshalJSON(data []byte) error {
	type alias List
	aux := struct {
		*alias
		Space *struct {
			ID string `json:"id"`
		} `json:"space,omitempty"`
	}{alias: (*alias)(l)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if l.SpaceID == "" && aux.Space != nil {
		l.SpaceID = aux.Space.ID
	}
	return nil
}

// Status is the workflow status on a task.
type Status struct {
	Status     string `json:"status"`
	Color      string `json:"color,omitempty"`
	OrderIndex int    `json:"orderindex,omitempty"`
}

// Tag is a free-form label on a task.
type Tag struct {
	Name    string `json:"name"`
	TagFg   string `json:"tag_fg,omitempty"`
	TagBg   string `json:"tag_bg,omitempty"`
	Creator int64  `json:"creator,omitempty"`
}

// Task is a unit of work within a list. ListID is a back-reference only;
// nested list objects in raw payloads are lifted the same way as List.SpaceID.
type Task struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	TextContent  string    `json:"text_content,omitempty"`
	Status       Status    `json:"status,omitempty"`
	Priority     *Priority `json:"priority,omitempty"`
	DueDate      *Millis   `json:"due_date,omitempty"`
	StartDate    *Millis   `json:"start_date,omitempty"`
	TimeEstimate *Millis   `json:"time_estimate,omitempty"`
	Creator      *UserRef  `json:"creator,omitempty"`
	Assignees    []UserRef `json:"assignees,omitempty"`
	Tags         []Tag     `json:"tags,omitempty"`
	ListID       string    `json:"list_id,omitempty"`
}

func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	aux := struct {
		*alias
		List *struct {
			ID string `json:"id"`
		} `json:"list,omitempty"`
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.ListID == "" && aux.List != nil {
		t.ListID = aux.List.ID
	}
	return nil
}
