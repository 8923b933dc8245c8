package crm_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/testutil"
)

func TestAccountNumberSequence(t *testing.T) {
	ts := testutil.NewTestContext(t)

	first := testutil.CreateTestAccount(t, ts.DB, ts.User, "Grupo Alfa")
	second := testutil.CreateTestAccount(t, ts.DB, ts.User, "Grupo Beta")

	assert.Equal(t, "ACC-000001", first.AccountNumber)
	assert.Equal(t, "ACC-000002", second.AccountNumber)

	// Deleted accounts still count, so numbers are never reused.
	require.NoError(t, ts.DB.Delete(second).Error)
	third := testutil.CreateTestAccount(t, ts.DB, ts.User, "Grupo Gamma")
	assert.Equal(t, "ACC-000003", third.AccountNumber)
}

func TestSetParent(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	root := testutil.CreateTestAccount(t, ts.DB, ts.User, "Holding")
	mid := testutil.CreateTestAccount(t, ts.DB, ts.User, "Regional")
	leaf := testutil.CreateTestAccount(t, ts.DB, ts.User, "Sucursal")

	_, err := svc.SetParent(ctx, mid.ID, &root.ID)
	require.NoError(t, err)
	updated, err := svc.SetParent(ctx, leaf.ID, &mid.ID)
	require.NoError(t, err)
	assert.Equal(t, mid.ID, *updated.ParentAccountID)

	t.Run("self parent", func(t *testing.T) {
		_, err := svc.SetParent(ctx, root.ID, &root.ID)
		assert.ErrorIs(t, err, crm.ErrSelfParent)
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := svc.SetParent(ctx, root.ID, &leaf.ID)
		assert.ErrorIs(t, err, crm.ErrAccountCycle)
	})

	t.Run("missing parent", func(t *testing.T) {
		missing := uuid.New()
		_, err := svc.SetParent(ctx, leaf.ID, &missing)
		assert.ErrorIs(t, err, crm.ErrAccountNotFound)
	})

	t.Run("detach", func(t *testing.T) {
		detached, err := svc.SetParent(ctx, leaf.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, detached.ParentAccountID)

		var stored models.Account
		require.NoError(t, ts.DB.First(&stored, "id = ?", leaf.ID).Error)
		assert.Nil(t, stored.ParentAccountID)
	})
}

func TestDeleteAccounts_DetachesDependents(t *testing.T) {
	svc, ts := newService(t)
	ctx := testutil.TestContext(t)

	parent := testutil.CreateTestAccount(t, ts.DB, ts.User, "Matriz")
	child := testutil.CreateTestAccount(t, ts.DB, ts.User, "Filial")
	_, err := svc.SetParent(ctx, child.ID, &parent.ID)
	require.NoError(t, err)
	contact := testutil.CreateTestContact(t, ts.DB, ts.User, &parent.ID)

	n, err := svc.DeleteAccounts(ctx, []uuid.UUID{parent.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var storedChild models.Account
	require.NoError(t, ts.DB.First(&storedChild, "id = ?", child.ID).Error)
	assert.Nil(t, storedChild.ParentAccountID)

	var storedContact models.Contact
	require.NoError(t, ts.DB.First(&storedContact, "id = ?", contact.ID).Error)
	assert.Nil(t, storedContact.AccountID)
}
