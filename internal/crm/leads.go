package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm"
)

// CheckStatusChange guards the lead lifecycle. CONVERTED is terminal and can
// only be reached through ConvertLead.
func CheckStatusChange(lead *models.Lead, to models.LeadStatus) error {
	if lead.IsConverted {
		return ErrLeadAlreadyConverted
	}
	if to == models.LeadStatusConverted {
		return ErrConversionOnly
	}
	return nil
}

// ConvertOptions selects the records spawned by a conversion. Nothing is
// created unless asked for.
type ConvertOptions struct {
	CreateContact bool
	CreateAccount bool
	CreateDeal    bool
	AccountName   string
	DealAmount    decimal.Decimal
	DealStage     models.OpportunityStage
	DealCloseDate *time.Time
	PropertyID    uuid.UUID
}

type ConversionResult struct {
	Lead        *models.Lead        `json:"lead"`
	Contact     *models.Contact     `json:"contact,omitempty"`
	Account     *models.Account     `json:"account,omitempty"`
	Opportunity *models.Opportunity `json:"opportunity,omitempty"`
}

// ConvertLead marks the lead converted and creates the requested records in
// one transaction. Any failure leaves the lead untouched.
func (s *Service) ConvertLead(ctx context.Context, leadID uuid.UUID, opts ConvertOptions, actorID uuid.UUID) (*ConversionResult, error) {
	result := &ConversionResult{}
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.First(&lead, "id = ?", leadID).Error; err != nil {
			return err
		}
		if lead.IsConverted {
			return ErrLeadAlreadyConverted
		}

		owner := actorID
		if lead.AssignedTo != nil {
			owner = *lead.AssignedTo
		}

		if opts.CreateAccount {
			account := accountFromLead(&lead, opts.AccountName, owner, actorID)
			if err := tx.Create(account).Error; err != nil {
				return fmt.Errorf("creating account: %w", err)
			}
			result.Account = account
			lead.ConvertedAccountID = &account.ID
		}

		if opts.CreateContact {
			contact := contactFromLead(&lead, owner, actorID)
			if result.Account != nil {
				contact.AccountID = &result.Account.ID
				contact.IsPrimary = true
			}
			if err := tx.Create(contact).Error; err != nil {
				return fmt.Errorf("creating contact: %w", err)
			}
			result.Contact = contact
			lead.ConvertedContactID = &contact.ID
		}

		if opts.CreateDeal {
			var property models.Property
			if err := tx.First(&property, "id = ?", opts.PropertyID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrPropertyNotFound
				}
				return err
			}

			deal := &models.Opportunity{
				Name:              lead.FullName + " - " + property.Title,
				LeadID:            lead.ID,
				PropertyID:        &property.ID,
				Value:             opts.DealAmount,
				Currency:          property.Currency,
				ExpectedCloseDate: opts.DealCloseDate,
				AssignedTo:        owner,
			}
			if result.Account != nil {
				deal.AccountID = &result.Account.ID
			}
			if result.Contact != nil {
				deal.ContactID = &result.Contact.ID
			}
			stage := opts.DealStage
			if stage == "" {
				stage = models.StageProspecting
			}
			deal.ApplyStage(stage, now)

			if err := tx.Create(deal).Error; err != nil {
				return fmt.Errorf("creating opportunity: %w", err)
			}
			result.Opportunity = deal
			lead.ConvertedDealID = &deal.ID
		}

		lead.IsConverted = true
		lead.ConvertedDate = &now
		lead.Status = models.LeadStatusConverted

		// The is_converted guard makes a concurrent second conversion lose.
		update := tx.Model(&models.Lead{}).
			Where("id = ? AND is_converted = ?", lead.ID, false).
			Updates(map[string]any{
				"is_converted":         true,
				"converted_date":       now,
				"status":               models.LeadStatusConverted,
				"converted_contact_id": lead.ConvertedContactID,
				"converted_account_id": lead.ConvertedAccountID,
				"converted_deal_id":    lead.ConvertedDealID,
			})
		if update.Error != nil {
			return fmt.Errorf("marking lead converted: %w", update.Error)
		}
		if update.RowsAffected == 0 {
			return ErrLeadAlreadyConverted
		}

		result.Lead = &lead
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lead converted",
		"lead_id", leadID,
		"contact", result.Contact != nil,
		"account", result.Account != nil,
		"deal", result.Opportunity != nil,
	)

	return result, nil
}

func accountFromLead(lead *models.Lead, name string, owner, actor uuid.UUID) *models.Account {
	name = strings.TrimSpace(name)
	if name == "" {
		name = lead.Company
	}
	if name == "" {
		name = lead.FullName
	}

	account := &models.Account{
		Name:           name,
		Phone:          lead.Phone,
		Email:          lead.Email,
		Type:           models.AccountTypeCustomer,
		BillingAddress: lead.Address,
		AssignedTo:     &owner,
		IsActive:       true,
		CreatedBy:      actor,
	}
	for _, industry := range models.AccountIndustries {
		if strings.EqualFold(industry, lead.Industry) {
			account.Industry = industry
		}
	}
	return account
}

func contactFromLead(lead *models.Lead, owner, actor uuid.UUID) *models.Contact {
	return &models.Contact{
		FirstName:         lead.FirstName,
		LastName:          lead.LastName,
		Email:             lead.Email,
		Phone:             lead.Phone,
		Mobile:            lead.Mobile,
		Title:             lead.Title,
		MailingAddress:    lead.Address,
		LeadSource:        lead.Source,
		AssignedTo:        &owner,
		CreatedBy:         actor,
		LastContactedDate: lead.LastContactedDate,
		CustomFields:      lead.CustomFields,
	}
}
