package crm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveContact creates or updates a contact. When the contact is primary for
// its account every other contact of that account loses the flag.
func (s *Service) SaveContact(ctx context.Context, contact *models.Contact) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if contact.AccountID == nil {
			contact.IsPrimary = false
		} else if err := requireAccount(tx, *contact.AccountID); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(contact).Error; err != nil {
			return fmt.Errorf("saving contact: %w", err)
		}
		if contact.IsPrimary {
			return clearOtherPrimaries(tx, *contact.AccountID, contact.ID)
		}
		return nil
	})
}

// LinkAccount attaches a contact to an account, optionally as its primary.
func (s *Service) LinkAccount(ctx context.Context, contactID, accountID uuid.UUID, primary bool) (*models.Contact, error) {
	var contact models.Contact
	if err := s.db.WithContext(ctx).First(&contact, "id = ?", contactID).Error; err != nil {
		return nil, err
	}

	contact.AccountID = &accountID
	contact.IsPrimary = primary
	if err := s.SaveContact(ctx, &contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact linked", "contact_id", contactID, "account_id", accountID, "primary", primary)
	return &contact, nil
}

// MergeInput names the surviving target, the contact folded into it and the
// fields whose source values win.
type MergeInput struct {
	SourceID        uuid.UUID
	TargetID        uuid.UUID
	FieldsToKeep    []string
	MergeActivities bool
}

// MergeContacts copies the chosen fields from source to target, moves the
// source's opportunities when asked and soft-deletes the source.
func (s *Service) MergeContacts(ctx context.Context, in MergeInput) (*models.Contact, error) {
	var target models.Contact

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source models.Contact
		if err := tx.First(&source, "id = ?", in.SourceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContactNotFound
			}
			return err
		}
		if err := tx.First(&target, "id = ?", in.TargetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContactNotFound
			}
			return err
		}

		for _, field := range in.FieldsToKeep {
			copyContactField(&target, &source, field)
		}
		if source.LastContactedDate != nil &&
			(target.LastContactedDate == nil || source.LastContactedDate.After(*target.LastContactedDate)) {
			target.LastContactedDate = source.LastContactedDate
		}
		if target.AccountID == nil {
			target.IsPrimary = false
		}

		if in.MergeActivities {
			if err := tx.Model(&models.Opportunity{}).
				Where("contact_id = ?", source.ID).
				Update("contact_id", target.ID).Error; err != nil {
				return fmt.Errorf("moving opportunities: %w", err)
			}
		}

		if err := tx.Delete(&source).Error; err != nil {
			return fmt.Errorf("deleting source contact: %w", err)
		}
		if err := tx.Omit(clause.Associations).Save(&target).Error; err != nil {
			return fmt.Errorf("saving target contact: %w", err)
		}
		if target.IsPrimary {
			return clearOtherPrimaries(tx, *target.AccountID, target.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contacts merged", "source_id", in.SourceID, "target_id", in.TargetID, "fields", len(in.FieldsToKeep))
	return &target, nil
}

func copyContactField(dst, src *models.Contact, field string) {
	switch field {
	case "firstName":
		dst.FirstName = src.FirstName
	case "lastName":
		dst.LastName = src.LastName
	case "email":
		dst.Email = src.Email
	case "phone":
		dst.Phone = src.Phone
	case "mobile":
		dst.Mobile = src.Mobile
	case "title":
		dst.Title = src.Title
	case "department":
		dst.Department = src.Department
	case "accountId":
		dst.AccountID = src.AccountID
		dst.IsPrimary = src.IsPrimary
	case "description":
		dst.Description = src.Description
	case "linkedInUrl":
		dst.LinkedInURL = src.LinkedInURL
	case "twitterHandle":
		dst.TwitterHandle = src.TwitterHandle
	case "facebookUrl":
		dst.FacebookURL = src.FacebookURL
	case "mailingAddress":
		dst.MailingAddress = src.MailingAddress
	case "otherAddress":
		dst.OtherAddress = src.OtherAddress
	case "dateOfBirth":
		dst.DateOfBirth = src.DateOfBirth
	case "leadSource":
		dst.LeadSource = src.LeadSource
	}
}

func requireAccount(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func clearOtherPrimaries(tx *gorm.DB, accountID, keep uuid.UUID) error {
	if err := tx.Model(&models.Contact{}).
		Where("account_id = ? AND id <> ? AND is_primary = ?", accountID, keep, true).
		Update("is_primary", false).Error; err != nil {
		return fmt.Errorf("clearing primary contact: %w", err)
	}
	return nil
}
