// Package crm holds the business rules that span more than one record:
// lead conversion, account hierarchy, contact linking and merging, and
// activity reference resolution.
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrLeadAlreadyConverted = errors.New("lead already converted")
	ErrConversionOnly       = errors.New("status is set by conversion only")
	ErrPropertyNotFound     = errors.New("property not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrContactNotFound      = errors.New("contact not found")
	ErrSelfParent           = errors.New("account cannot be its own parent")
	ErrAccountCycle         = errors.New("account hierarchy cycle")
	ErrRelatedNotFound      = errors.New("related entity not found")
	ErrUnknownRelatedType   = errors.New("unknown related type")
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger, now: time.Now}
}

// BulkDelete soft-deletes the rows of T with the given ids and reports how
// many were actually removed.
func BulkDelete[T any](ctx context.Context, db *gorm.DB, ids []uuid.UUID) (int64, error) {
	var model T
	result := db.WithContext(ctx).Where("id IN ?", ids).Delete(&model)
	if result.Error != nil {
		return 0, fmt.Errorf("bulk delete: %w", result.Error)
	}
	return result.RowsAffected, nil
}
