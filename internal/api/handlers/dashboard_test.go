package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinq/vinq-crm/internal/api/handlers"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/testutil"
	"gorm.io/gorm"
)

// seedPipeline gives owner two leads (one converted) and three deals: one
// won this month, one lost and one open.
func seedPipeline(t *testing.T, db *gorm.DB, owner *models.User) {
	t.Helper()

	lead := testutil.CreateTestLead(t, db, owner)
	converted := testutil.CreateTestLead(t, db, owner)
	require.NoError(t, db.Model(converted).Update("is_converted", true).Error)
	property := testutil.CreateTestProperty(t, db, owner)

	won := testutil.CreateTestOpportunity(t, db, lead, property, owner)
	won.ApplyStage(models.StageClosedWon, time.Now())
	require.NoError(t, db.Model(won).Updates(map[string]interface{}{
		"stage":             won.Stage,
		"probability":       won.Probability,
		"actual_close_date": won.ActualCloseDate,
	}).Error)

	lost := testutil.CreateTestOpportunity(t, db, lead, property, owner)
	require.NoError(t, db.Model(lost).Update("stage", models.StageClosedLost).Error)

	testutil.CreateTestOpportunity(t, db, lead, property, owner)
}

func TestDashboardHandler_Stats(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	seedPipeline(t, tc.DB, tc.User)
	testutil.CreateTestActivity(t, tc.DB, tc.User, models.RelatedRef{Kind: models.RelatedUser, EntityID: tc.User.ID})

	rr := do(t, router, http.MethodGet, "/api/v1/dashboard/stats?period=week", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var stats handlers.DashboardStats
	testutil.DecodeEnvelope(t, rr, &stats)
	assert.Equal(t, "week", stats.Period)
	assert.Equal(t, int64(1), stats.Users.Total)
	assert.Equal(t, int64(2), stats.Leads.Total)
	assert.Equal(t, int64(1), stats.Leads.Converted)
	assert.Equal(t, "50.00%", stats.Leads.ConversionRate)
	assert.Equal(t, int64(3), stats.Deals.Total)
	assert.Equal(t, int64(1), stats.Deals.Won)
	assert.Equal(t, int64(1), stats.Deals.Lost)
	assert.Equal(t, int64(1), stats.Deals.InProgress)
	assert.Equal(t, "9000000", stats.Deals.TotalValue.String())
	assert.Equal(t, int64(1), stats.Activities.Calls)
	assert.Equal(t, "4500000", stats.Revenue.Total.String())
	assert.Equal(t, "4500000", stats.Revenue.ThisMonth.String())
	assert.Equal(t, "100", stats.Revenue.Growth.String())

	rr = do(t, router, http.MethodGet, "/api/v1/dashboard/stats?period=century", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	testutil.DecodeEnvelope(t, rr, &stats)
	assert.Equal(t, "month", stats.Period)
}

func TestDashboardHandler_StatsScopedForAgents(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	seedPipeline(t, tc.DB, tc.User)
	agent, agentToken := tc.UserWithRole(t, models.RoleAgent)
	lead := testutil.CreateTestLead(t, tc.DB, agent)
	property := testutil.CreateTestProperty(t, tc.DB, agent)
	testutil.CreateTestOpportunity(t, tc.DB, lead, property, agent)

	rr := do(t, router, http.MethodGet, "/api/v1/dashboard/stats", nil, agentToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var stats handlers.DashboardStats
	testutil.DecodeEnvelope(t, rr, &stats)
	assert.Equal(t, int64(1), stats.Deals.Total, "agents only count their own deals")
	assert.True(t, stats.Revenue.Total.IsZero())
}

func TestDashboardHandler_StatsCached(t *testing.T) {
	store := newMemoryCache()
	router, tc := setupTestRouter(t, withCache(store))
	defer tc.Cleanup()

	testutil.CreateTestLead(t, tc.DB, tc.User)

	get := func() handlers.DashboardStats {
		rr := do(t, router, http.MethodGet, "/api/v1/dashboard/stats", nil, tc.Token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var stats handlers.DashboardStats
		testutil.DecodeEnvelope(t, rr, &stats)
		return stats
	}
	statsKey := func() string {
		version, ok := store.values["dashboard:version"].(string)
		require.True(t, ok, "dashboard version is stored")
		return "dashboard:stats:" + tc.User.ID.String() + ":month:" + version
	}

	first := get()
	assert.Equal(t, int64(1), first.Leads.Total)
	assert.Zero(t, store.hits)
	assert.Contains(t, store.values, statsKey())

	testutil.CreateTestLead(t, tc.DB, tc.User)
	second := get()
	assert.Equal(t, 2, store.hits, "version and stats both served from cache")
	assert.Equal(t, int64(1), second.Leads.Total, "served from cache")

	require.NoError(t, store.Delete(testutil.TestContext(t), statsKey()))
	assert.Equal(t, int64(2), get().Leads.Total)
}

func TestDashboardHandler_InvalidatedByWrites(t *testing.T) {
	store := newMemoryCache()
	router, tc := setupTestRouter(t, withCache(store))
	defer tc.Cleanup()

	stats := func() handlers.DashboardStats {
		rr := do(t, router, http.MethodGet, "/api/v1/dashboard/stats", nil, tc.Token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var got handlers.DashboardStats
		testutil.DecodeEnvelope(t, rr, &got)
		return got
	}

	testutil.CreateTestLead(t, tc.DB, tc.User)
	assert.Equal(t, int64(1), stats().Leads.Total)
	version := store.values["dashboard:version"]

	t.Run("rejected writes keep the cache", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/api/v1/leads", map[string]interface{}{"firstName": "Sin email"}, tc.Token)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, version, store.values["dashboard:version"])
	})

	t.Run("reads keep the cache", func(t *testing.T) {
		rr := do(t, router, http.MethodGet, "/api/v1/leads", nil, tc.Token)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, version, store.values["dashboard:version"])
	})

	t.Run("successful writes refresh the dashboard", func(t *testing.T) {
		rr := do(t, router, http.MethodPost, "/api/v1/leads", map[string]interface{}{
			"firstName": "Sofia",
			"lastName":  "Torres",
			"email":     "sofia.dashboard@example.com",
			"source":    "WEBSITE",
		}, tc.Token)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.NotContains(t, store.values, "dashboard:version")

		assert.Equal(t, int64(2), stats().Leads.Total)
		assert.NotEqual(t, version, store.values["dashboard:version"])
	})
}

func TestDashboardHandler_KPIs(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	agent, agentToken := tc.UserWithRole(t, models.RoleAgent)
	_, managerToken := tc.UserWithRole(t, models.RoleManager)
	seedPipeline(t, tc.DB, agent)
	testutil.CreateTestActivity(t, tc.DB, agent, models.RelatedRef{Kind: models.RelatedUser, EntityID: agent.ID})

	kpis := func(token string) map[string]interface{} {
		rr := do(t, router, http.MethodGet, "/api/v1/dashboard/kpis", nil, token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var out map[string]interface{}
		testutil.DecodeEnvelope(t, rr, &out)
		return out
	}

	admin := kpis(tc.Token)
	assert.EqualValues(t, 3, admin["totalUsers"])
	assert.EqualValues(t, 2, admin["totalLeads"])
	assert.EqualValues(t, 3, admin["totalDeals"])
	assert.EqualValues(t, 4500000, admin["totalRevenue"])

	manager := kpis(managerToken)
	assert.EqualValues(t, 1, manager["teamSize"])
	assert.EqualValues(t, 2, manager["teamLeads"])
	assert.EqualValues(t, 3, manager["teamDeals"])
	assert.Equal(t, "33.33%", manager["teamPerformance"])

	mine := kpis(agentToken)
	assert.EqualValues(t, 2, mine["myLeads"])
	assert.EqualValues(t, 3, mine["myDeals"])
	assert.EqualValues(t, 1, mine["myTasks"])
	assert.Equal(t, "50.00%", mine["conversionRate"])
	assert.NotContains(t, mine, "totalUsers")
}

func TestDashboardHandler_RecentActivity(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	seedPipeline(t, tc.DB, tc.User)

	rr := do(t, router, http.MethodGet, "/api/v1/dashboard/recent-activity?limit=4", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var items []handlers.RecentItem
	testutil.DecodeEnvelope(t, rr, &items)
	require.Len(t, items, 4)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].Timestamp.After(items[i-1].Timestamp), "newest first")
	}

	types := map[string]bool{}
	for _, it := range items {
		types[it.Type] = true
	}
	assert.True(t, types["deal"] || types["lead"])
}

func TestDashboardHandler_Charts(t *testing.T) {
	store := newMemoryCache()
	router, tc := setupTestRouter(t, withCache(store))
	defer tc.Cleanup()

	seedPipeline(t, tc.DB, tc.User)

	rr := do(t, router, http.MethodGet, "/api/v1/dashboard/charts", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var revenue struct {
		Revenue []handlers.RevenuePoint `json:"revenue"`
	}
	testutil.DecodeEnvelope(t, rr, &revenue)
	require.Len(t, revenue.Revenue, 6)
	last := revenue.Revenue[5]
	assert.Equal(t, time.Now().Format("2006-01"), last.Month)
	assert.Equal(t, "4500000", last.Value.String())
	assert.True(t, revenue.Revenue[0].Value.IsZero())

	rr = do(t, router, http.MethodGet, "/api/v1/dashboard/charts?type=deals", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var deals struct {
		Deals []handlers.StagePoint `json:"deals"`
	}
	testutil.DecodeEnvelope(t, rr, &deals)
	require.Len(t, deals.Deals, len(models.OpportunityStages))
	counts := map[models.OpportunityStage]int64{}
	for _, p := range deals.Deals {
		counts[p.Stage] = p.Count
	}
	assert.Equal(t, int64(1), counts[models.StageProspecting])
	assert.Equal(t, int64(1), counts[models.StageClosedWon])
	assert.Equal(t, int64(0), counts[models.StageProposal])

	rr = do(t, router, http.MethodGet, "/api/v1/dashboard/charts?type=leads", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, store.values, "dashboard:charts:"+tc.User.ID.String()+":leads:"+store.values["dashboard:version"].(string))

	rr = do(t, router, http.MethodGet, "/api/v1/dashboard/charts?type=pie", nil, tc.Token)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := testutil.DecodeEnvelope(t, rr, nil)
	assert.Equal(t, "Tipo de gráfica inválido", env.Message)
}

func TestDashboardHandler_Upcoming(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	related := models.RelatedRef{Kind: models.RelatedUser, EntityID: tc.User.ID}
	soon := testutil.CreateTestActivity(t, tc.DB, tc.User, related)
	later := testutil.CreateTestActivity(t, tc.DB, tc.User, related)
	require.NoError(t, tc.DB.Model(later).Update("due_date", time.Now().Add(48*time.Hour)).Error)
	past := testutil.CreateTestActivity(t, tc.DB, tc.User, related)
	require.NoError(t, tc.DB.Model(past).Update("due_date", time.Now().Add(-time.Hour)).Error)

	rr := do(t, router, http.MethodGet, "/api/v1/dashboard/upcoming?limit=5", nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var activities []models.Activity
	testutil.DecodeEnvelope(t, rr, &activities)
	require.Len(t, activities, 2)
	assert.Equal(t, soon.ID, activities[0].ID)
	assert.Equal(t, later.ID, activities[1].ID)
}
