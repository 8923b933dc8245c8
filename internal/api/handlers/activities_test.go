package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/testutil"
)

func TestActivityHandler_Create(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	agent, agentToken := tc.UserWithRole(t, models.RoleAgent)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantDetail string
	}{
		{
			name: "call on a lead",
			body: map[string]interface{}{
				"type":        "call",
				"title":       "Primera llamada",
				"relatedTo":   map[string]string{"type": "lead", "id": lead.ID.String()},
				"callDetails": map[string]string{"phoneNumber": "+52 55 0000 0000", "outcome": "answered"},
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing related entity",
			body:       map[string]interface{}{"type": "task", "title": "Sin relación"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "relatedTo",
		},
		{
			name: "unknown related type",
			body: map[string]interface{}{
				"type":      "task",
				"title":     "X",
				"relatedTo": map[string]string{"type": "planet", "id": uuid.New().String()},
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "relatedTo.type",
		},
		{
			name: "missing related record",
			body: map[string]interface{}{
				"type":      "task",
				"title":     "X",
				"relatedTo": map[string]string{"type": "lead", "id": uuid.New().String()},
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "reminder without time",
			body: map[string]interface{}{
				"type":      "meeting",
				"title":     "Visita",
				"relatedTo": map[string]string{"type": "lead", "id": lead.ID.String()},
				"reminder":  map[string]bool{"enabled": true},
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "reminder.time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, http.MethodPost, "/api/v1/activities", tt.body, agentToken)
			require.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())

			var activity models.Activity
			env := testutil.DecodeEnvelope(t, rr, &activity)
			if tt.wantDetail != "" {
				assert.Contains(t, env.Details, tt.wantDetail)
			}
			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, models.ActivityPending, activity.Status)
				assert.Equal(t, models.PriorityMedium, activity.Priority)
				assert.Equal(t, agent.ID, activity.AssignedTo)
				assert.Equal(t, agent.ID, activity.CreatedBy)
				require.NotNil(t, activity.CallDetails)
				assert.Equal(t, "answered", activity.CallDetails.Outcome)
			}
		})
	}
}

func TestActivityHandler_Visibility(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	related := models.RelatedRef{Kind: models.RelatedLead, EntityID: lead.ID}
	agent, agentToken := tc.UserWithRole(t, models.RoleAgent)
	_, managerToken := tc.UserWithRole(t, models.RoleManager)

	mine := testutil.CreateTestActivity(t, tc.DB, agent, related)
	theirs := testutil.CreateTestActivity(t, tc.DB, tc.User, related)

	list := func(token, query string) []models.Activity {
		rr := do(t, router, http.MethodGet, "/api/v1/activities"+query, nil, token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var activities []models.Activity
		testutil.DecodeEnvelope(t, rr, &activities)
		return activities
	}

	got := list(agentToken, "")
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)
	assert.Len(t, list(managerToken, ""), 0, "managers only list their own")
	assert.Len(t, list(tc.Token, ""), 2)
	assert.Len(t, list(tc.Token, "?assignedTo="+agent.ID.String()), 1)
	assert.Len(t, list(tc.Token, "?relatedType=lead&relatedId="+lead.ID.String()), 2)
	assert.Len(t, list(tc.Token, "?relatedType=lead&relatedId="+uuid.New().String()), 0)

	rr := do(t, router, http.MethodGet, "/api/v1/activities/"+theirs.ID.String(), nil, agentToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/v1/activities/"+theirs.ID.String(), nil, managerToken)
	assert.Equal(t, http.StatusOK, rr.Code, "managers may open any activity")

	rr = do(t, router, http.MethodPatch, "/api/v1/activities/"+theirs.ID.String(), map[string]string{"title": "Cambio"}, agentToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodGet, "/api/v1/activities/"+uuid.New().String(), nil, tc.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestActivityHandler_UpdateAndComplete(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	activity := testutil.CreateTestActivity(t, tc.DB, tc.User, models.RelatedRef{Kind: models.RelatedLead, EntityID: lead.ID})
	path := "/api/v1/activities/" + activity.ID.String()

	rr := do(t, router, http.MethodPatch, path, map[string]interface{}{"priority": "high", "duration": 30}, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Activity
	testutil.DecodeEnvelope(t, rr, &got)
	assert.Equal(t, models.PriorityHigh, got.Priority)
	assert.Equal(t, 30, got.Duration)
	assert.Equal(t, activity.Title, got.Title)

	rr = do(t, router, http.MethodPatch, path, map[string]interface{}{"priority": "urgent"}, tc.Token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPatch, path+"/complete", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	testutil.DecodeEnvelope(t, rr, &got)
	assert.Equal(t, models.ActivityCompleted, got.Status)
	require.NotNil(t, got.CompletedDate)
	first := *got.CompletedDate

	rr = do(t, router, http.MethodPatch, path+"/complete", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	testutil.DecodeEnvelope(t, rr, &got)
	require.NotNil(t, got.CompletedDate)
	assert.True(t, first.Equal(*got.CompletedDate), "completion date is stamped once")
}

func TestActivityHandler_Delete(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	related := models.RelatedRef{Kind: models.RelatedLead, EntityID: lead.ID}
	agent, agentToken := tc.UserWithRole(t, models.RoleAgent)
	_, managerToken := tc.UserWithRole(t, models.RoleManager)

	own := testutil.CreateTestActivity(t, tc.DB, agent, related)
	other := testutil.CreateTestActivity(t, tc.DB, tc.User, related)

	rr := do(t, router, http.MethodDelete, "/api/v1/activities/"+other.ID.String(), nil, managerToken)
	assert.Equal(t, http.StatusForbidden, rr.Code, "only admins or the creator delete")

	rr = do(t, router, http.MethodDelete, "/api/v1/activities/"+other.ID.String(), nil, agentToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodDelete, "/api/v1/activities/"+own.ID.String(), nil, agentToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodDelete, "/api/v1/activities/"+other.ID.String(), nil, tc.Token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestActivityHandler_TodayAndPending(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	lead := testutil.CreateTestLead(t, tc.DB, tc.User)
	related := models.RelatedRef{Kind: models.RelatedLead, EntityID: lead.ID}
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	setDue := func(a *models.Activity, due time.Time, status models.ActivityStatus) {
		require.NoError(t, tc.DB.Model(a).Updates(map[string]interface{}{"due_date": due, "status": status}).Error)
	}

	today := testutil.CreateTestActivity(t, tc.DB, tc.User, related)
	setDue(today, startOfDay.Add(12*time.Hour), models.ActivityPending)
	overdue := testutil.CreateTestActivity(t, tc.DB, tc.User, related)
	setDue(overdue, now.AddDate(0, 0, -3), models.ActivityPending)
	done := testutil.CreateTestActivity(t, tc.DB, tc.User, related)
	setDue(done, now.AddDate(0, 0, -2), models.ActivityCompleted)
	future := testutil.CreateTestActivity(t, tc.DB, tc.User, related)
	setDue(future, now.AddDate(0, 0, 5), models.ActivityPending)

	rr := do(t, router, http.MethodGet, "/api/v1/activities/today", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var activities []models.Activity
	testutil.DecodeEnvelope(t, rr, &activities)
	require.Len(t, activities, 1)
	assert.Equal(t, today.ID, activities[0].ID)

	rr = do(t, router, http.MethodGet, "/api/v1/activities/pending", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	testutil.DecodeEnvelope(t, rr, &activities)
	ids := make([]uuid.UUID, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	assert.Contains(t, ids, overdue.ID)
	assert.NotContains(t, ids, done.ID)
	assert.NotContains(t, ids, future.ID)
	assert.Equal(t, overdue.ID, ids[0], "oldest first")

	agent, agentToken := tc.UserWithRole(t, models.RoleAgent)
	_, managerToken := tc.UserWithRole(t, models.RoleManager)
	agentOverdue := testutil.CreateTestActivity(t, tc.DB, agent, related)
	setDue(agentOverdue, now.AddDate(0, 0, -1), models.ActivityPending)

	agenda := func(path, token string) []uuid.UUID {
		rr := do(t, router, http.MethodGet, "/api/v1/activities/"+path, nil, token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var got []models.Activity
		testutil.DecodeEnvelope(t, rr, &got)
		ids := make([]uuid.UUID, len(got))
		for i, a := range got {
			ids[i] = a.ID
		}
		return ids
	}

	t.Run("managers see the whole team", func(t *testing.T) {
		pending := agenda("pending", managerToken)
		assert.Contains(t, pending, overdue.ID)
		assert.Contains(t, pending, agentOverdue.ID)
		assert.NotContains(t, pending, future.ID)
		assert.Equal(t, []uuid.UUID{today.ID}, agenda("today", managerToken))
	})

	t.Run("agents see their own", func(t *testing.T) {
		assert.Equal(t, []uuid.UUID{agentOverdue.ID}, agenda("pending", agentToken))
		assert.Empty(t, agenda("today", agentToken))
	})
}
