package handlers_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/testutil"
)

func TestOpportunityHandler_Create(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	agent, agentToken := tc.UserWithRole(t, models.RoleAgent)
	_, userToken := tc.UserWithRole(t, models.RoleUser)

	valid := map[string]interface{}{
		"name":     "Venta Polanco",
		"client":   lead.ID.String(),
		"property": property.ID.String(),
		"value":    4300000,
		"currency": "mxn",
	}

	tests := []struct {
		name       string
		body       map[string]interface{}
		token      string
		wantStatus int
		wantDetail string
	}{
		{"agent creates", valid, agentToken, http.StatusCreated, ""},
		{"plain user is forbidden", valid, userToken, http.StatusForbidden, ""},
		{"missing client", map[string]interface{}{"name": "X", "property": property.ID.String(), "value": 1}, tc.Token, http.StatusBadRequest, "client"},
		{"bad stage", map[string]interface{}{"name": "X", "client": lead.ID.String(), "property": property.ID.String(), "value": 1, "stage": "won"}, tc.Token, http.StatusBadRequest, "stage"},
		{"unknown lead", map[string]interface{}{"name": "X", "client": uuid.New().String(), "property": property.ID.String(), "value": 1}, tc.Token, http.StatusNotFound, ""},
		{"unknown property", map[string]interface{}{"name": "X", "client": lead.ID.String(), "property": uuid.New().String(), "value": 1}, tc.Token, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/api/v1/opportunities", tt.body, tt.token)
			require.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())

			var opp models.Opportunity
			env := testutil.DecodeEnvelope(t, rr, &opp)
			if tt.wantDetail != "" {
				assert.Contains(t, env.Details, tt.wantDetail)
			}
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, models.StageProspecting, opp.Stage)
				assert.Equal(t, 10, opp.Probability)
				assert.Equal(t, "MXN", opp.Currency)
				assert.Equal(t, agent.ID, opp.AssignedTo)
				require.NotNil(t, opp.Lead)
				assert.Equal(t, lead.ID, opp.Lead.ID)
				require.NotNil(t, opp.Property)
				assert.Nil(t, opp.ActualCloseDate)
			}
		})
	}
}

func TestOpportunityHandler_CreateEveryStage(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	property := testutil.CreateTestProperty(t, tc.DB, tc.User)

	tests := []struct {
		stage           models.OpportunityStage
		wantProbability int
		wantClosed      bool
	}{
		{models.StageProspecting, 10, false},
		{models.StageQualification, 25, false},
		{models.StageProposal, 50, false},
		{models.StageNegotiation, 75, false},
		{models.StageClosedWon, 100, true},
		{models.StageClosedLost, 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/api/v1/opportunities", map[string]interface{}{
				"name":     "Venta " + string(tt.stage),
				"client":   lead.ID.String(),
				"property": property.ID.String(),
				"value":    1000000,
				"stage":    tt.stage,
			}, tc.Token)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

			var created models.Opportunity
			testutil.DecodeEnvelope(t, rr, &created)

			var stored models.Opportunity
			require.NoError(t, tc.DB.First(&stored, "id = ?", created.ID).Error)
			assert.Equal(t, tt.stage, stored.Stage)
			assert.Equal(t, tt.wantProbability, stored.Probability)
			assert.Equal(t, tt.wantClosed, stored.ActualCloseDate != nil)
		})
	}
}

func TestOpportunityHandler_Visibility(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	agent, agentToken := tc.UserWithRole(t, models.RoleAgent)

	mine := testutil.CreateTestOpportunity(t, tc.DB, lead, property, agent)
	theirs := testutil.CreateTestOpportunity(t, tc.DB, lead, property, tc.User)

	rr := do(t, router, http.MethodGet, "/api/v1/opportunities", nil, agentToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var opps []models.Opportunity
	env := testutil.DecodeEnvelope(t, rr, &opps)
	require.Len(t, opps, 1)
	assert.Equal(t, mine.ID, opps[0].ID)
	assert.Equal(t, int64(1), env.Pagination.Total)

	rr = do(t, router, http.MethodGet, "/api/v1/opportunities?assignedTo="+tc.User.ID.String(), nil, agentToken)
	require.Equal(t, http.StatusOK, rr.Code)
	testutil.DecodeEnvelope(t, rr, &opps)
	require.Len(t, opps, 1, "agents cannot widen the scope with a filter")
	assert.Equal(t, mine.ID, opps[0].ID)

	rr = do(t, router, http.MethodGet, "/api/v1/opportunities/"+theirs.ID.String(), nil, agentToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodPatch, "/api/v1/opportunities/"+theirs.ID.String()+"/stage", map[string]string{"stage": "proposal"}, agentToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/v1/opportunities", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	testutil.DecodeEnvelope(t, rr, &opps)
	assert.Len(t, opps, 2)

	rr = do(t, router, http.MethodGet, "/api/v1/opportunities?assignedTo="+agent.ID.String(), nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	testutil.DecodeEnvelope(t, rr, &opps)
	assert.Len(t, opps, 1)
}

func TestOpportunityHandler_UpdateStage(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	opp := testutil.CreateTestOpportunity(t, tc.DB, lead, property, tc.User)
	path := "/api/v1/opportunities/" + opp.ID.String() + "/stage"

	tests := []struct {
		stage           string
		wantProbability int
		wantClosed      bool
	}{
		{"negotiation", 75, false},
		{"closed-won", 100, true},
		{"qualification", 25, false},
		{"closed-lost", 0, true},
		{"proposal", 50, false},
		{"closed-lost", 0, true},
		{"prospecting", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			rr := do(t, router, http.MethodPatch, path, map[string]string{"stage": tt.stage}, tc.Token)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var got models.Opportunity
			testutil.DecodeEnvelope(t, rr, &got)
			assert.Equal(t, models.OpportunityStage(tt.stage), got.Stage)
			assert.Equal(t, tt.wantProbability, got.Probability)
			assert.Equal(t, tt.wantClosed, got.ActualCloseDate != nil)

			var stored models.Opportunity
			require.NoError(t, tc.DB.First(&stored, "id = ?", opp.ID).Error)
			assert.Equal(t, models.OpportunityStage(tt.stage), stored.Stage)
			assert.Equal(t, tt.wantProbability, stored.Probability)
			assert.Equal(t, tt.wantClosed, stored.ActualCloseDate != nil)
		})
	}

	rr := do(t, router, http.MethodPatch, path, map[string]string{"stage": "won"}, tc.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOpportunityHandler_UpdateAndDelete(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	opp := testutil.CreateTestOpportunity(t, tc.DB, lead, property, tc.User)
	path := "/api/v1/opportunities/" + opp.ID.String()

	rr := do(t, router, http.MethodPut, path, map[string]interface{}{"value": 5000000, "stage": "closed-won", "notes": "Firmado"}, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Opportunity
	testutil.DecodeEnvelope(t, rr, &got)
	assert.Equal(t, "5000000", got.Value.String())
	assert.Equal(t, 100, got.Probability)
	assert.NotNil(t, got.ActualCloseDate)
	assert.Equal(t, "Firmado", got.Notes)

	rr = do(t, router, http.MethodPut, path, map[string]interface{}{"value": -1}, tc.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	_, agentToken := tc.UserWithRole(t, models.RoleAgent)
	rr = do(t, router, http.MethodDelete, path, nil, agentToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodDelete, path, nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, router, http.MethodGet, path, nil, tc.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	env := testutil.DecodeEnvelope(t, rr, nil)
	assert.Equal(t, "Oportunidad no encontrada", env.Message)
}

func TestOpportunityHandler_AddActivity(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	opp := testutil.CreateTestOpportunity(t, tc.DB, lead, property, tc.User)
	path := "/api/v1/opportunities/" + opp.ID.String() + "/activities"

	rr := do(t, router, http.MethodPost, path, map[string]string{"type": "meeting", "description": "Visita a la casa"}, tc.Token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var activity models.Activity
	testutil.DecodeEnvelope(t, rr, &activity)
	assert.Equal(t, "Reunión: "+opp.Name, activity.Title)
	assert.Equal(t, models.ActivityCompleted, activity.Status)
	assert.NotNil(t, activity.CompletedDate)
	assert.Equal(t, models.RelatedOpportunity, activity.RelatedTo.Kind)
	assert.Equal(t, opp.ID, activity.RelatedTo.EntityID)
	assert.Equal(t, tc.User.ID, activity.CreatedBy)

	rr = do(t, router, http.MethodPost, path, map[string]string{"type": "fax", "description": "x"}, tc.Token)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := testutil.DecodeEnvelope(t, rr, nil)
	assert.Contains(t, env.Details, "type")

	rr = do(t, router, http.MethodPost, "/api/v1/opportunities/"+uuid.New().String()+"/activities", map[string]string{"type": "call", "description": "x"}, tc.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
