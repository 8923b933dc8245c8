package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/cache"
	"github.com/vinq/vinq-crm/internal/database/models"
	"gorm.io/gorm"
)

const msgDashboard = "Datos no encontrados"

type DashboardHandler struct {
	base
	cache cache.Store
	ttl   time.Duration
}

// NewDashboardHandler caches stats and charts per user for ttl. A nil store
// disables caching.
func NewDashboardHandler(d Deps, store cache.Store, ttl time.Duration) *DashboardHandler {
	if store == nil {
		store = cache.NoopStore{}
	}
	return &DashboardHandler{base: newBase(d), cache: store, ttl: ttl}
}

// dashboardVersionKey holds the generation every dashboard key is tagged with.
// Deleting it orphans all cached entries; they age out under the TTL.
const dashboardVersionKey = "dashboard:version"

func (h *DashboardHandler) version(ctx context.Context) string {
	var v string
	if err := h.cache.Get(ctx, dashboardVersionKey, &v); err == nil {
		return v
	}
	v = strconv.FormatInt(h.now().UnixNano(), 36)
	if err := h.cache.Set(ctx, dashboardVersionKey, v, 0); err != nil {
		h.logger.Warn("dashboard cache write failed", "key", dashboardVersionKey, "error", err)
	}
	return v
}

// InvalidateOnWrite drops the cached dashboard after any successful
// mutating request that passes through it.
func (h *DashboardHandler) InvalidateOnWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if ww.Status() >= http.StatusBadRequest {
			return
		}
		if err := h.cache.Delete(r.Context(), dashboardVersionKey); err != nil {
			h.logger.Warn("dashboard cache invalidation failed", "error", err)
		}
	})
}

// cached returns the value under key, building and storing it on a miss.
// Cache failures are logged and never fail the request.
func cached[T any](h *DashboardHandler, r *http.Request, key string, build func() (T, error)) (T, error) {
	var v T
	err := h.cache.Get(r.Context(), key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		h.logger.Warn("dashboard cache read failed", "key", key, "error", err)
	}

	v, err = build()
	if err != nil {
		return v, err
	}
	if err := h.cache.Set(r.Context(), key, v, h.ttl); err != nil {
		h.logger.Warn("dashboard cache write failed", "key", key, "error", err)
	}
	return v, nil
}

// periodStart is the lower bound for period, counted back from now.
// Unknown periods fall back to a month.
func periodStart(now time.Time, period string) (time.Time, string) {
	switch period {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), period
	case "week":
		return now.AddDate(0, 0, -7), period
	case "year":
		return now.AddDate(-1, 0, 0), period
	default:
		return now.AddDate(0, -1, 0), "month"
	}
}

// ownedBy narrows the opportunity and activity queries for roles that only
// see their own pipeline.
func (h *DashboardHandler) ownedBy(r *http.Request, db *gorm.DB, perm auth.Permission) *gorm.DB {
	if !middleware.Can(r.Context(), perm) {
		return db.Where("assigned_to = ?", middleware.GetUserID(r.Context()))
	}
	return db
}

type UserCounts struct {
	Total  int64 `json:"total"`
	New    int64 `json:"new"`
	Active int64 `json:"active"`
}

type LeadCounts struct {
	Total          int64  `json:"total"`
	New            int64  `json:"new"`
	Converted      int64  `json:"converted"`
	ConversionRate string `json:"conversionRate"`
}

type DealCounts struct {
	Total      int64           `json:"total"`
	Won        int64           `json:"won"`
	Lost       int64           `json:"lost"`
	InProgress int64           `json:"inProgress"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

type ActivityCounts struct {
	Tasks    int64 `json:"tasks"`
	Calls    int64 `json:"calls"`
	Meetings int64 `json:"meetings"`
	Emails   int64 `json:"emails"`
	Notes    int64 `json:"notes"`
}

type Revenue struct {
	Total     decimal.Decimal `json:"total"`
	ThisMonth decimal.Decimal `json:"thisMonth"`
	LastMonth decimal.Decimal `json:"lastMonth"`
	Growth    decimal.Decimal `json:"growth"`
}

type DashboardStats struct {
	Period     string         `json:"period"`
	Users      UserCounts     `json:"users"`
	Leads      LeadCounts     `json:"leads"`
	Deals      DealCounts     `json:"deals"`
	Activities ActivityCounts `json:"activities"`
	Revenue    Revenue        `json:"revenue"`
}

// counter accumulates the first error across a run of count queries.
type counter struct {
	err error
}

func (c *counter) count(q *gorm.DB) int64 {
	var n int64
	if c.err == nil {
		c.err = q.Count(&n).Error
	}
	return n
}

func (c *counter) sum(q *gorm.DB, column string) decimal.Decimal {
	var row struct{ Total decimal.Decimal }
	if c.err == nil {
		c.err = q.Select(fmt.Sprintf("COALESCE(SUM(%s), 0) AS total", column)).Scan(&row).Error
	}
	return row.Total
}

// Stats handles GET /api/v1/dashboard/stats?period=today|week|month|year
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	start, period := periodStart(now, r.URL.Query().Get("period"))
	key := fmt.Sprintf("dashboard:stats:%s:%s:%s", middleware.GetUserID(r.Context()), period, h.version(r.Context()))

	stats, err := cached(h, r, key, func() (DashboardStats, error) {
		return h.buildStats(r, now, start, period)
	})
	if err != nil {
		h.fail(w, r, err, msgDashboard)
		return
	}

	writeData(w, http.StatusOK, stats)
}

func (h *DashboardHandler) buildStats(r *http.Request, now, start time.Time, period string) (DashboardStats, error) {
	db := h.db.WithContext(r.Context())
	users := func() *gorm.DB { return db.Model(&models.User{}) }
	leads := func() *gorm.DB { return db.Model(&models.Lead{}) }
	deals := func() *gorm.DB {
		return h.ownedBy(r, db.Model(&models.Opportunity{}), auth.PermOpportunitiesViewAll)
	}
	activities := func() *gorm.DB {
		return h.ownedBy(r, db.Model(&models.Activity{}), auth.PermActivitiesViewAll).Where("created_at >= ?", start)
	}

	var c counter
	s := DashboardStats{Period: period}

	s.Users.Total = c.count(users())
	s.Users.New = c.count(users().Where("created_at >= ?", start))
	s.Users.Active = c.count(users().Where("status = ?", models.UserStatusActive))

	s.Leads.Total = c.count(leads())
	s.Leads.New = c.count(leads().Where("created_at >= ?", start))
	s.Leads.Converted = c.count(leads().Where("is_converted = ?", true))
	s.Leads.ConversionRate = conversionRate(s.Leads.Converted, s.Leads.Total)

	s.Deals.Total = c.count(deals())
	s.Deals.Won = c.count(deals().Where("stage = ?", models.StageClosedWon))
	s.Deals.Lost = c.count(deals().Where("stage = ?", models.StageClosedLost))
	s.Deals.InProgress = s.Deals.Total - s.Deals.Won - s.Deals.Lost
	s.Deals.TotalValue = c.sum(deals().Where("stage <> ?", models.StageClosedLost), "value")

	s.Activities.Tasks = c.count(activities().Where("type = ?", models.ActivityTask))
	s.Activities.Calls = c.count(activities().Where("type = ?", models.ActivityCall))
	s.Activities.Meetings = c.count(activities().Where("type = ?", models.ActivityMeeting))
	s.Activities.Emails = c.count(activities().Where("type = ?", models.ActivityEmail))
	s.Activities.Notes = c.count(activities().Where("type = ?", models.ActivityNote))

	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)
	won := func() *gorm.DB { return deals().Where("stage = ?", models.StageClosedWon) }
	s.Revenue.Total = c.sum(won(), "value")
	s.Revenue.ThisMonth = c.sum(won().Where("actual_close_date >= ?", thisMonth), "value")
	s.Revenue.LastMonth = c.sum(won().Where("actual_close_date >= ? AND actual_close_date < ?", lastMonth, thisMonth), "value")
	s.Revenue.Growth = growth(s.Revenue.ThisMonth, s.Revenue.LastMonth)

	return s, c.err
}

// growth is the percent change from prev to cur, rounded to two places.
// A move from zero counts as 100%.
func growth(cur, prev decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		if cur.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
}

// KPIs handles GET /api/v1/dashboard/kpis. The figures depend on the
// caller's role.
func (h *DashboardHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db := h.db.WithContext(ctx)
	userID := middleware.GetUserID(ctx)

	var (
		c    counter
		kpis map[string]any
	)
	won := func() *gorm.DB { return db.Model(&models.Opportunity{}).Where("stage = ?", models.StageClosedWon) }

	switch middleware.GetUserRole(ctx) {
	case models.RoleAdmin:
		kpis = map[string]any{
			"totalUsers":   c.count(db.Model(&models.User{})),
			"activeUsers":  c.count(db.Model(&models.User{}).Where("status = ?", models.UserStatusActive)),
			"totalLeads":   c.count(db.Model(&models.Lead{})),
			"totalDeals":   c.count(db.Model(&models.Opportunity{})),
			"totalRevenue": c.sum(won(), "value"),
		}
	case models.RoleManager:
		members := func() *gorm.DB {
			return db.Model(&models.User{}).Where("role IN ? AND status = ?", []models.Role{models.RoleAgent, models.RoleUser}, models.UserStatusActive)
		}
		team := func() *gorm.DB { return members().Select("id") }
		teamDeals := c.count(db.Model(&models.Opportunity{}).Where("assigned_to IN (?)", team()))
		teamWon := c.count(won().Where("assigned_to IN (?)", team()))
		kpis = map[string]any{
			"teamSize":        c.count(members()),
			"teamLeads":       c.count(db.Model(&models.Lead{}).Where("assigned_to IN (?)", team())),
			"teamDeals":       teamDeals,
			"teamRevenue":     c.sum(won().Where("assigned_to IN (?)", team()), "value"),
			"teamPerformance": conversionRate(teamWon, teamDeals),
		}
	default:
		myLeads := c.count(db.Model(&models.Lead{}).Where("assigned_to = ?", userID))
		myConverted := c.count(db.Model(&models.Lead{}).Where("assigned_to = ? AND is_converted = ?", userID, true))
		kpis = map[string]any{
			"myLeads":        myLeads,
			"myDeals":        c.count(db.Model(&models.Opportunity{}).Where("assigned_to = ?", userID)),
			"myTasks":        c.count(db.Model(&models.Activity{}).Where("assigned_to = ? AND status = ?", userID, models.ActivityPending)),
			"myRevenue":      c.sum(won().Where("assigned_to = ?", userID), "value"),
			"conversionRate": conversionRate(myConverted, myLeads),
		}
	}
	if c.err != nil {
		h.fail(w, r, c.err, msgDashboard)
		return
	}

	writeData(w, http.StatusOK, kpis)
}

type RecentItem struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// RecentActivity handles GET /api/v1/dashboard/recent-activity?limit=N. It
// merges the latest leads, deals and activities by time.
func (h *DashboardHandler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10, 50)
	db := h.db.WithContext(r.Context())

	var leads []models.Lead
	if err := db.Order("created_at DESC").Limit(limit).Find(&leads).Error; err != nil {
		h.fail(w, r, err, msgDashboard)
		return
	}
	var deals []models.Opportunity
	if err := h.ownedBy(r, db, auth.PermOpportunitiesViewAll).Order("updated_at DESC").Limit(limit).Find(&deals).Error; err != nil {
		h.fail(w, r, err, msgDashboard)
		return
	}
	var activities []models.Activity
	if err := h.ownedBy(r, db, auth.PermActivitiesViewAll).Order("updated_at DESC").Limit(limit).Find(&activities).Error; err != nil {
		h.fail(w, r, err, msgDashboard)
		return
	}

	items := make([]RecentItem, 0, len(leads)+len(deals)+len(activities))
	for _, l := range leads {
		items = append(items, RecentItem{
			ID: l.ID, Type: "lead", Action: "created",
			Description: "Nuevo lead: " + l.FullName,
			Timestamp:   l.CreatedAt,
		})
	}
	for _, d := range deals {
		items = append(items, RecentItem{
			ID: d.ID, Type: "deal", Action: "updated",
			Description: fmt.Sprintf("Oportunidad %s en etapa %s", d.Name, d.Stage),
			Timestamp:   d.UpdatedAt,
		})
	}
	for _, a := range activities {
		action, ts := "created", a.CreatedAt
		if a.Status == models.ActivityCompleted {
			action, ts = "completed", a.UpdatedAt
		}
		items = append(items, RecentItem{
			ID: a.ID, Type: string(a.Type), Action: action,
			Description: a.Title,
			Timestamp:   ts,
		})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })
	if len(items) > limit {
		items = items[:limit]
	}

	writeData(w, http.StatusOK, items)
}

type RevenuePoint struct {
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

type StagePoint struct {
	Stage models.OpportunityStage `json:"stage"`
	Count int64                   `json:"count"`
	Value decimal.Decimal         `json:"value"`
}

// Charts handles GET /api/v1/dashboard/charts?type=revenue|leads|deals
func (h *DashboardHandler) Charts(w http.ResponseWriter, r *http.Request) {
	chart := r.URL.Query().Get("type")
	if chart == "" {
		chart = "revenue"
	}

	var build func() (map[string]any, error)
	switch chart {
	case "revenue":
		build = func() (map[string]any, error) {
			points, err := h.revenueByMonth(r, 6)
			return map[string]any{"revenue": points}, err
		}
	case "leads":
		build = func() (map[string]any, error) {
			groups, err := groupCount(h.db.WithContext(r.Context()), &models.Lead{}, "status")
			return map[string]any{"leads": groups}, err
		}
	case "deals":
		build = func() (map[string]any, error) {
			points, err := h.dealsByStage(r)
			return map[string]any{"deals": points}, err
		}
	default:
		writeFail(w, http.StatusBadRequest, "Tipo de gráfica inválido")
		return
	}

	key := fmt.Sprintf("dashboard:charts:%s:%s:%s", middleware.GetUserID(r.Context()), chart, h.version(r.Context()))
	data, err := cached(h, r, key, build)
	if err != nil {
		h.fail(w, r, err, msgDashboard)
		return
	}

	writeData(w, http.StatusOK, data)
}

// revenueByMonth buckets closed-won value by close month for the last n
// months, oldest first, with empty months included.
func (h *DashboardHandler) revenueByMonth(r *http.Request, n int) ([]RevenuePoint, error) {
	now := h.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(n - 1), 0)

	var won []models.Opportunity
	err := h.ownedBy(r, h.db.WithContext(r.Context()), auth.PermOpportunitiesViewAll).
		Select("value", "actual_close_date").
		Where("stage = ? AND actual_close_date >= ?", models.StageClosedWon, first).
		Find(&won).Error
	if err != nil {
		return nil, err
	}

	points := make([]RevenuePoint, n)
	index := make(map[string]int, n)
	for i := range points {
		month := first.AddDate(0, i, 0).Format("2006-01")
		points[i] = RevenuePoint{Month: month, Value: decimal.Zero}
		index[month] = i
	}
	for _, o := range won {
		if o.ActualCloseDate == nil {
			continue
		}
		if i, ok := index[o.ActualCloseDate.In(now.Location()).Format("2006-01")]; ok {
			points[i].Value = points[i].Value.Add(o.Value)
		}
	}
	return points, nil
}

func (h *DashboardHandler) dealsByStage(r *http.Request) ([]StagePoint, error) {
	var rows []StagePoint
	err := h.ownedBy(r, h.db.WithContext(r.Context()).Model(&models.Opportunity{}), auth.PermOpportunitiesViewAll).
		Select("stage, COUNT(*) AS count, COALESCE(SUM(value), 0) AS value").
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byStage := make(map[models.OpportunityStage]StagePoint, len(rows))
	for _, row := range rows {
		byStage[row.Stage] = row
	}
	points := make([]StagePoint, 0, len(models.OpportunityStages))
	for _, stage := range models.OpportunityStages {
		p, ok := byStage[stage]
		if !ok {
			p = StagePoint{Stage: stage, Value: decimal.Zero}
		}
		points = append(points, p)
	}
	return points, nil
}

// Upcoming handles GET /api/v1/dashboard/upcoming?limit=N: the caller's
// pending activities due from now on.
func (h *DashboardHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	var activities []models.Activity
	err := h.db.WithContext(r.Context()).
		Where("assigned_to = ? AND status = ? AND due_date >= ?", middleware.GetUserID(r.Context()), models.ActivityPending, h.now()).
		Order("due_date ASC").
		Limit(queryInt(r, "limit", 5, 50)).
		Find(&activities).Error
	if err != nil {
		h.fail(w, r, err, msgDashboard)
		return
	}

	writeData(w, http.StatusOK, activities)
}
