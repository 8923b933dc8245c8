package crm_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/testutil"
	"gorm.io/gorm"
)

func TestLinkAccount_SinglePrimary(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)
	account := testutil.CreateTestAccount(t, ts.DB, ts.User, "Constructora Sur")

	first := testutil.CreateTestContact(t, ts.DB, ts.User, nil)
	second := testutil.CreateTestContact(t, ts.DB, ts.User, nil)

	linked, err := svc.LinkAccount(ctx, first.ID, account.ID, true)
	require.NoError(t, err)
	assert.True(t, linked.IsPrimary)

	_, err = svc.LinkAccount(ctx, second.ID, account.ID, true)
	require.NoError(t, err)

	var primaries []models.Contact
	require.NoError(t, ts.DB.Where("account_id = ? AND is_primary = ?", account.ID, true).Find(&primaries).Error)
	require.Len(t, primaries, 1)
	assert.Equal(t, second.ID, primaries[0].ID)
}

func TestLinkAccount_Errors(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)
	contact := testutil.CreateTestContact(t, ts.DB, ts.User, nil)

	_, err := svc.LinkAccount(ctx, contact.ID, uuid.New(), false)
	assert.ErrorIs(t, err, crm.ErrAccountNotFound)

	_, err = svc.LinkAccount(ctx, uuid.New(), uuid.New(), false)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSaveContact_PrimaryWithoutAccount(t *testing.T) {
	svc, ts := newService(t)

	contact := &models.Contact{
		FirstName: "Ana",
		LastName:  "Soto",
		Email:     "ana@example.com",
		IsPrimary: true,
		CreatedBy: ts.User.ID,
	}
	require.NoError(t, svc.SaveContact(testutil.TestContext(t), contact))
	assert.False(t, contact.IsPrimary)
	assert.Equal(t, "Ana Soto", contact.FullName)
	assert.Equal(t, models.DefaultCountry, contact.MailingAddress.Country)
}

func TestMergeContacts(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	account := testutil.CreateTestAccount(t, ts.DB, ts.User, "Desarrollos Centro")
	source := testutil.CreateTestContact(t, ts.DB, ts.User, &account.ID)
	target := testutil.CreateTestContact(t, ts.DB, ts.User, nil)

	contacted := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, ts.DB.Model(source).Updates(map[string]any{
		"phone":               "+52 33 1111 2222",
		"last_contacted_date": contacted,
	}).Error)

	lead := testutil.CreateTestLead(t, ts.DB, ts.User)
	property := testutil.CreateTestProperty(t, ts.DB, ts.User)
	opp := testutil.CreateTestOpportunity(t, ts.DB, lead, property, ts.User)
	require.NoError(t, ts.DB.Model(opp).Update("contact_id", source.ID).Error)

	merged, err := svc.MergeContacts(ctx, crm.MergeInput{
		SourceID:        source.ID,
		TargetID:        target.ID,
		FieldsToKeep:    []string{"phone", "accountId"},
		MergeActivities: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "+52 33 1111 2222", merged.Phone)
	assert.Equal(t, account.ID, *merged.AccountID)
	require.NotNil(t, merged.LastContactedDate)
	assert.True(t, contacted.Equal(merged.LastContactedDate.UTC()))

	var gone models.Contact
	assert.ErrorIs(t, ts.DB.First(&gone, "id = ?", source.ID).Error, gorm.ErrRecordNotFound)

	var storedOpp models.Opportunity
	require.NoError(t, ts.DB.First(&storedOpp, "id = ?", opp.ID).Error)
	assert.Equal(t, target.ID, *storedOpp.ContactID)
}

func TestMergeContacts_KeepsOpportunitiesWhenAsked(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	source := testutil.CreateTestContact(t, ts.DB, ts.User, nil)
	target := testutil.CreateTestContact(t, ts.DB, ts.User, nil)
	lead := testutil.CreateTestLead(t, ts.DB, ts.User)
	property := testutil.CreateTestProperty(t, ts.DB, ts.User)
	opp := testutil.CreateTestOpportunity(t, ts.DB, lead, property, ts.User)
	require.NoError(t, ts.DB.Model(opp).Update("contact_id", source.ID).Error)

	_, err := svc.MergeContacts(ctx, crm.MergeInput{SourceID: source.ID, TargetID: target.ID})
	require.NoError(t, err)

	var storedOpp models.Opportunity
	require.NoError(t, ts.DB.First(&storedOpp, "id = ?", opp.ID).Error)
	assert.Equal(t, source.ID, *storedOpp.ContactID)
}

func TestMergeContacts_Missing(t *testing.T) {
	svc, ts := newService(t)
	target := testutil.CreateTestContact(t, ts.DB, ts.User, nil)

	_, err := svc.MergeContacts(testutil.TestContext(t), crm.MergeInput{SourceID: uuid.New(), TargetID: target.ID})
	assert.ErrorIs(t, err, crm.ErrContactNotFound)
}
