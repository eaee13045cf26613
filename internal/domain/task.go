package domain

import "encoding/json"

// TaskState is the lifecycle state of an asynchronous task.
type TaskState string

// Task states.
const (
	TaskWaiting   TaskState = "waiting"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// Terminal reports whether the state is final.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// Task describes server-side asynchronous work.
type Task struct {
	TaskID        string    `json:"taskId"`
	State         TaskState `json:"state"`
	StatusMessage string    `json:"statusMessage,omitempty"`
}

// TaskStatusRequest polls a task.
type TaskStatusRequest struct {
	TaskID string `json:"taskId"`
}

// ErrorBody is the error part of a response envelope.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Envelope wraps every JSON response of the API.
type Envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Task  *Task           `json:"task,omitempty"`
	Error *ErrorBody      `json:"error,omitempty"`
}
