package crm

import (
	"context"
	"errors"

	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm"
)

// ResolveRelated loads the entity an activity points at, dispatching on the
// reference tag.
func (s *Service) ResolveRelated(ctx context.Context, ref models.RelatedRef) (any, error) {
	db := s.db.WithContext(ctx)

	var (
		target any
		err    error
	)
	switch ref.Kind {
	case models.RelatedLead:
		var lead models.Lead
		err = db.First(&lead, "id = ?", ref.EntityID).Error
		target = &lead
	case models.RelatedOpportunity:
		var opp models.Opportunity
		err = db.First(&opp, "id = ?", ref.EntityID).Error
		target = &opp
	case models.RelatedProperty:
		var property models.Property
		err = db.First(&property, "id = ?", ref.EntityID).Error
		target = &property
	case models.RelatedUser:
		var user models.User
		err = db.First(&user, "id = ?", ref.EntityID).Error
		target = &user
	default:
		return nil, ErrUnknownRelatedType
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRelatedNotFound
		}
		return nil, err
	}
	return target, nil
}
