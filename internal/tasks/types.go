package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypePasswordResetEmail = "auth:password_reset_email"
	TypeActivityReminders  = "activities:reminders"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PasswordResetEmailPayload carries everything needed to mail a reset link.
type PasswordResetEmailPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	ResetURL string    `json:"reset_url"`
}

func NewPasswordResetEmailTask(payload PasswordResetEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	// The link is only valid for an hour, so stop retrying well before that.
	return asynq.NewTask(TypePasswordResetEmail, data,
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewActivityRemindersTask carries no payload; each run sweeps all due reminders.
func NewActivityRemindersTask() *asynq.Task {
	return asynq.NewTask(TypeActivityReminders, nil, asynq.Queue("low"), asynq.MaxRetry(1))
}
