package dto

import (
	"encoding/json"
	"fmt"
)

// OptionalString records whether a JSON field was present at all, and if so
// whether it was null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("must be a string or null")
	}
	o.Value = raw
	return nil
}

type CreateListRequest struct {
	Name string `json:"name" binding:"required"`
}

type ListResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CreateTaskRequest struct {
	Text     string  `json:"text" binding:"required"`
	Priority string  `json:"priority"`
	DueDate  *string `json:"due_date"`
}

// UpdateTaskRequest is a partial update. Absent fields are left alone and
// "due_date": null clears the due date.
type UpdateTaskRequest struct {
	Text      *string        `json:"text"`
	Completed *bool          `json:"completed"`
	Priority  *string        `json:"priority"`
	DueDate   OptionalString `json:"due_date" swaggertype:"string"`
}

type ReorderRequest struct {
	ListID  int64   `json:"list_id" binding:"required,gt=0"`
	TaskIDs []int64 `json:"task_ids" binding:"required"`
}

type TaskResponse struct {
	ID        int64   `json:"id"`
	ListID    int64   `json:"list_id"`
	Text      string  `json:"text"`
	Completed bool    `json:"completed"`
	Priority  string  `json:"priority"`
	DueDate   *string `json:"due_date"`
	Position  *int    `json:"position"`
}

type ParseTaskRequest struct {
	Text string `json:"text"`
}

type ParseTaskResponse struct {
	Text     string  `json:"text"`
	Priority string  `json:"priority"`
	DueDate  *string `json:"due_date"`
}
