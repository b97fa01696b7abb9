package checkpoint

import "context"

// Task is a resumable unit of work. fn receives the data of the latest
// checkpoint for (entityID, stage) — nil if none exists — and a save
// callback it may call to persist progress mid-run. On normal completion,
// Run saves a terminal "<stage>_completed" checkpoint.
type Task[T any] struct {
	Store    *Store
	EntityID string
	Stage    string
	Fn       func(ctx context.Context, resumeData map[string]any, save func(map[string]any) error) (T, error)
}

// Run resumes from the latest checkpoint (if any), executes Fn, and on
// success records a "<stage>_completed" terminal checkpoint.
func (t *Task[T]) Run(ctx context.Context) (T, error) {
	var zero T

	latest, err := t.Store.Latest(t.EntityID, t.Stage)
	if err != nil {
		return zero, err
	}

	var resumeData map[string]any
	if latest != nil {
		resumeData = latest.Data
	}

	save := func(data map[string]any) error {
		_, err := t.Store.Save(t.EntityID, t.Stage, data)
		return err
	}

	result, err := t.Fn(ctx, resumeData, save)
	if err != nil {
		return zero, err
	}

	if _, err := t.Store.Save(t.EntityID, t.Stage+"_completed", map[string]any{}); err != nil {
		return zero, err
	}

	return result, nil
}
