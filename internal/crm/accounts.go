package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm"
)

// SetParent moves an account in the hierarchy. A nil parent detaches it.
// Self-parenting and any assignment that would close a loop are rejected.
func (s *Service) SetParent(ctx context.Context, accountID uuid.UUID, parentID *uuid.UUID) (*models.Account, error) {
	var account *models.Account

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = SetParentTx(tx, accountID, parentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account parent set", "account_id", accountID, "parent_id", parentID)
	return account, nil
}

// SetParentTx is SetParent inside a transaction the caller already holds.
func SetParentTx(tx *gorm.DB, accountID uuid.UUID, parentID *uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := tx.First(&account, "id = ?", accountID).Error; err != nil {
		return nil, err
	}

	if parentID != nil {
		if *parentID == accountID {
			return nil, ErrSelfParent
		}
		if err := checkAncestry(tx, accountID, *parentID); err != nil {
			return nil, err
		}
	}

	account.ParentAccountID = parentID
	if err := tx.Model(&account).Update("parent_account_id", parentID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// checkAncestry walks up from parentID and fails if accountID is met.
func checkAncestry(tx *gorm.DB, accountID, parentID uuid.UUID) error {
	visited := map[uuid.UUID]bool{}
	current := parentID

	for {
		if current == accountID {
			return ErrAccountCycle
		}
		if visited[current] {
			// Pre-existing loop above us; refuse to extend it.
			return ErrAccountCycle
		}
		visited[current] = true

		var node models.Account
		if err := tx.Select("id", "parent_account_id").First(&node, "id = ?", current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if current == parentID {
					return ErrAccountNotFound
				}
				return nil
			}
			return fmt.Errorf("walking account hierarchy: %w", err)
		}
		if node.ParentAccountID == nil {
			return nil
		}
		current = *node.ParentAccountID
	}
}

// DeleteAccounts soft-deletes accounts and detaches their contacts and
// child accounts so nothing points at a deleted row.
func (s *Service) DeleteAccounts(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var deleted int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Contact{}).
			Where("account_id IN ?", ids).
			Updates(map[string]any{"account_id": nil, "is_primary": false}).Error; err != nil {
			return fmt.Errorf("detaching contacts: %w", err)
		}
		if err := tx.Model(&models.Account{}).
			Where("parent_account_id IN ?", ids).
			Update("parent_account_id", nil).Error; err != nil {
			return fmt.Errorf("detaching child accounts: %w", err)
		}

		n, err := BulkDelete[models.Account](ctx, tx, ids)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("accounts deleted", "requested", len(ids), "deleted", deleted)
	return deleted, nil
}
