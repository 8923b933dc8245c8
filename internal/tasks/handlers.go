package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/pkg/util"
	"gorm.io/gorm"
)

type Handler struct {
	db           *gorm.DB
	logger       *slog.Logger
	mailer       Mailer
	reminderCron string
	now          func() time.Time
}

// NewHandler wires task handlers. reminderCron is the schedule the reminder
// sweep runs on; it decides how far ahead each sweep looks.
func NewHandler(db *gorm.DB, logger *slog.Logger, mailer Mailer, reminderCron string) *Handler {
	return &Handler{
		db:           db,
		logger:       logger,
		mailer:       mailer,
		reminderCron: reminderCron,
		now:          time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypePasswordResetEmail, h.HandlePasswordResetEmail)
	mux.HandleFunc(TypeActivityReminders, h.HandleActivityReminders)
}

func (h *Handler) HandlePasswordResetEmail(ctx context.Context, t *asynq.Task) error {
	var payload PasswordResetEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.Email == "" || payload.ResetURL == "" {
		return fmt.Errorf("incomplete payload: %w", asynq.SkipRetry)
	}

	msg := Message{
		To:      payload.Email,
		Subject: "Restablecer contraseña - VinQ CRM",
		Body: fmt.Sprintf(
			"Hola %s,\n\nRecibimos una solicitud para restablecer tu contraseña. "+
				"Usa el siguiente enlace, válido por una hora:\n\n%s\n\n"+
				"Si no solicitaste el cambio, ignora este mensaje.",
			payload.Name, payload.ResetURL,
		),
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending reset email: %w", err)
	}

	h.logger.Info("sent password reset email", "user_id", payload.UserID, "email", payload.Email)
	return nil
}

// HandleActivityReminders mails the assignee of every pending activity whose
// reminder falls before the next sweep, then flags the reminder as sent.
func (h *Handler) HandleActivityReminders(ctx context.Context, t *asynq.Task) error {
	now := h.now()

	lookahead, err := util.CronInterval(h.reminderCron, now)
	if err != nil {
		h.logger.Warn("reminder schedule unusable, sending due reminders only", "cron", h.reminderCron, "error", err)
		lookahead = 0
	}
	horizon := now.Add(lookahead)

	var due []models.Activity
	if err := h.db.WithContext(ctx).
		Preload("Assignee").
		Where("reminder_enabled = ? AND reminder_sent = ? AND reminder_time <= ? AND status = ?",
			true, false, horizon, models.ActivityPending).
		Order("reminder_time ASC").
		Find(&due).Error; err != nil {
		return fmt.Errorf("loading due reminders: %w", err)
	}

	var failures []error
	sent, skipped := 0, 0
	for i := range due {
		activity := &due[i]
		if activity.Assignee == nil || activity.Assignee.Email == "" {
			// Nobody can receive it; mark it so later sweeps do not reload it.
			h.logger.Warn("reminder without assignee, dropping", "activity_id", activity.ID)
			if err := h.markReminderSent(ctx, activity.ID); err != nil {
				failures = append(failures, fmt.Errorf("activity %s: %w", activity.ID, err))
				continue
			}
			skipped++
			continue
		}

		if err := h.mailer.Send(ctx, reminderMessage(activity)); err != nil {
			failures = append(failures, fmt.Errorf("activity %s: %w", activity.ID, err))
			continue
		}

		if err := h.markReminderSent(ctx, activity.ID); err != nil {
			failures = append(failures, fmt.Errorf("activity %s: %w", activity.ID, err))
			continue
		}
		sent++
	}

	h.logger.Info("activity reminder sweep", "due", len(due), "sent", sent, "skipped", skipped, "failed", len(failures))

	return errors.Join(failures...)
}

func (h *Handler) markReminderSent(ctx context.Context, id uuid.UUID) error {
	return h.db.WithContext(ctx).Model(&models.Activity{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true).Error
}

func reminderMessage(a *models.Activity) Message {
	when := "sin fecha"
	if a.DueDate != nil {
		when = a.DueDate.Format("02/01/2006 15:04")
	}
	return Message{
		To:      a.Assignee.Email,
		Subject: "Recordatorio: " + a.Title,
		Body: fmt.Sprintf("Hola %s,\n\nTienes pendiente la actividad \"%s\" (%s, prioridad %s) para %s.",
			a.Assignee.FirstName, a.Title, a.Type, a.Priority, when),
	}
}
