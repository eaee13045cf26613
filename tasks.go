package nludb

import (
	"context"
	"fmt"
	"time"

	"github.com/nludb/nludb-go/internal/domain"
	"github.com/nludb/nludb-go/internal/transport/rest"
)

// Task is a server-side operation that eventually produces a T.
// A Task is not safe for concurrent use.
type Task[T any] struct {
	ID            string
	State         TaskState
	StatusMessage string

	api       apiCaller
	interval  time.Duration
	decode    func(*domain.Envelope) (T, error)
	onSuccess func(context.Context)
	result    T
}

// newTask builds a Task from the response that started it. Responses without a
// task object already carry the result.
func newTask[W, T any](
	ctx context.Context,
	api apiCaller,
	interval time.Duration,
	env *domain.Envelope,
	convert func(W) T,
	onSuccess func(context.Context),
) (*Task[T], error) {
	t := &Task[T]{
		api:      api,
		interval: interval,
		decode: func(env *domain.Envelope) (T, error) {
			w, err := rest.Decode[W](env)
			if err != nil {
				var zero T
				return zero, err
			}
			return convert(w), nil
		},
		onSuccess: onSuccess,
	}

	if env.Task == nil {
		t.State = TaskSucceeded
		if err := t.complete(ctx, env); err != nil {
			return nil, err
		}
		return t, nil
	}

	t.ID = env.Task.TaskID
	if err := t.update(ctx, env); err != nil {
		return nil, err
	}
	return t, nil
}

// Done reports whether the task reached a terminal state.
func (t *Task[T]) Done() bool {
	return t.State.Terminal()
}

// Result returns the task output and whether it is available.
func (t *Task[T]) Result() (T, bool) {
	return t.result, t.State == TaskSucceeded
}

// Refresh fetches the current task status. It is a no-op once the task is done.
func (t *Task[T]) Refresh(ctx context.Context) error {
	if t.Done() {
		return nil
	}
	env, err := t.api.Post(ctx, epTaskStatus, domain.TaskStatusRequest{TaskID: t.ID})
	if err != nil {
		return fmt.Errorf("refresh task %s: %w", t.ID, err)
	}
	if env.Task == nil {
		return fmt.Errorf("refresh task %s: %w: missing task", t.ID, domain.ErrMalformedResponse)
	}
	return t.update(ctx, env)
}

// Wait polls the task until it finishes or ctx is done.
// A failed task yields a *TaskError.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	var zero T

	var ticker *time.Ticker
	for {
		switch t.State {
		case TaskSucceeded:
			return t.result, nil
		case TaskFailed:
			return zero, &TaskError{TaskID: t.ID, Message: t.StatusMessage}
		}

		if ticker == nil {
			interval := t.interval
			if interval <= 0 {
				interval = defaultTaskPollInterval
			}
			ticker = time.NewTicker(interval)
			defer ticker.Stop()
		}
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("wait task %s: %w", t.ID, ctx.Err())
		case <-ticker.C:
		}

		if err := t.Refresh(ctx); err != nil {
			return zero, err
		}
	}
}

func (t *Task[T]) update(ctx context.Context, env *domain.Envelope) error {
	if env.Task.TaskID != "" {
		t.ID = env.Task.TaskID
	}
	t.State = env.Task.State
	t.StatusMessage = env.Task.StatusMessage
	if t.State != TaskSucceeded {
		return nil
	}
	return t.complete(ctx, env)
}

func (t *Task[T]) complete(ctx context.Context, env *domain.Envelope) error {
	if len(env.Data) > 0 && string(env.Data) != "null" {
		res, err := t.decode(env)
		if err != nil {
			return fmt.Errorf("task %s result: %w", t.ID, err)
		}
		t.result = res
	}
	if t.onSuccess != nil {
		t.onSuccess(ctx)
	}
	return nil
}
