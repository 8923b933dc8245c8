package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/database"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/pkg/util"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plaintext password of every fixture user.
const TestPassword = "Password123"

var (
	hashOnce     sync.Once
	passwordHash string
)

// SetupTestDB creates an in-memory SQLite database for testing. A single
// connection keeps every query on the same in-memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// Logger discards everything.
func Logger() *slog.Logger {
	return util.NewLogger("test")
}

func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

// CreateTestUser creates an active user with the given role and TestPassword.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()

	hashOnce.Do(func() {
		var err error
		passwordHash, err = auth.HashPassword(TestPassword)
		if err != nil {
			panic(err)
		}
	})

	suffix := uuid.New().String()[:8]
	user := &models.User{
		FirstName:    "Test",
		LastName:     string(role),
		Email:        string(role) + "-" + suffix + "@example.com",
		PasswordHash: passwordHash,
		Role:         role,
		Status:       models.UserStatusActive,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// GenerateTestToken generates a valid access token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// Envelope mirrors both the success and the error response shapes.
type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Error      string            `json:"error"`
	Data       json.RawMessage   `json:"data"`
	Details    map[string]string `json:"details"`
	Pagination *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
		Pages int   `json:"pages"`
	} `json:"pagination"`
}

// DecodeEnvelope parses the response envelope and, when data is non-nil,
// unmarshals its data member into it.
func DecodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data interface{}) Envelope {
	t.Helper()

	var env Envelope
	ParseJSONResponse(t, rr, &env)
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("failed to parse data: %v. Body: %s", err, rr.Body.String())
		}
	}
	return env
}

func CreateTestLead(t *testing.T, db *gorm.DB, owner *models.User) *models.Lead {
	t.Helper()

	suffix := uuid.New().String()[:8]
	lead := &models.Lead{
		FirstName:  "Lucía",
		LastName:   "Hernández " + suffix,
		Email:      "lead-" + suffix + "@example.com",
		Phone:      "+52 55 1234 5678",
		Company:    "Inmobiliaria Norte",
		Status:     models.LeadStatusNew,
		Source:     models.LeadSourceWebsite,
		Rating:     models.LeadRatingWarm,
		Score:      40,
		AssignedTo: &owner.ID,
		BudgetMin:  decimal.NewNullDecimal(decimal.NewFromInt(100000)),
		BudgetMax:  decimal.NewNullDecimal(decimal.NewFromInt(250000)),
		CreatedBy:  owner.ID,
	}

	if err := db.Create(lead).Error; err != nil {
		t.Fatalf("failed to create test lead: %v", err)
	}

	return lead
}

func CreateTestAccount(t *testing.T, db *gorm.DB, owner *models.User, name string) *models.Account {
	t.Helper()

	account := &models.Account{
		Name:       name,
		Type:       models.AccountTypeProspect,
		Industry:   "Real Estate",
		AssignedTo: &owner.ID,
		IsActive:   true,
		CreatedBy:  owner.ID,
	}

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}

	return account
}

// CreateTestContact creates a contact, linked to accountID when it is set.
func CreateTestContact(t *testing.T, db *gorm.DB, owner *models.User, accountID *uuid.UUID) *models.Contact {
	t.Helper()

	suffix := uuid.New().String()[:8]
	contact := &models.Contact{
		FirstName:  "Mario",
		LastName:   "Ruiz " + suffix,
		Email:      "contact-" + suffix + "@example.com",
		AccountID:  accountID,
		LeadSource: models.LeadSourceReferral,
		AssignedTo: &owner.ID,
		CreatedBy:  owner.ID,
	}

	if err := db.Create(contact).Error; err != nil {
		t.Fatalf("failed to create test contact: %v", err)
	}

	return contact
}

func CreateTestProperty(t *testing.T, db *gorm.DB, owner *models.User) *models.Property {
	t.Helper()

	property := &models.Property{
		Title:       "Casa en Polanco",
		Description: "Casa de tres recámaras con jardín",
		Type:        models.PropertyTypeHouse,
		Status:      models.PropertyStatusAvailable,
		Price:       decimal.NewFromInt(4500000),
		Currency:    "MXN",
		Address: models.Address{
			Street:  "Av. Presidente Masaryk 100",
			City:    "Ciudad de México",
			State:   "CDMX",
			Country: models.DefaultCountry,
		},
		Features:  models.PropertyFeatures{Bedrooms: 3, Bathrooms: 2, Area: 220, AreaUnit: "sqm"},
		Amenities: []string{"jardín"},
		CreatedBy: owner.ID,
	}

	if err := db.Create(property).Error; err != nil {
		t.Fatalf("failed to create test property: %v", err)
	}

	return property
}

func CreateTestOpportunity(t *testing.T, db *gorm.DB, lead *models.Lead, property *models.Property, assignee *models.User) *models.Opportunity {
	t.Helper()

	opp := &models.Opportunity{
		Name:       "Venta " + property.Title,
		LeadID:     lead.ID,
		PropertyID: &property.ID,
		Value:      property.Price,
		Currency:   property.Currency,
		AssignedTo: assignee.ID,
	}
	opp.ApplyStage(models.StageProspecting, time.Now())

	if err := db.Create(opp).Error; err != nil {
		t.Fatalf("failed to create test opportunity: %v", err)
	}

	return opp
}

func CreateTestActivity(t *testing.T, db *gorm.DB, assignee *models.User, related models.RelatedRef) *models.Activity {
	t.Helper()

	due := time.Now().Add(2 * time.Hour)
	activity := &models.Activity{
		Type:       models.ActivityCall,
		Title:      "Llamada de seguimiento",
		Status:     models.ActivityPending,
		Priority:   models.PriorityMedium,
		DueDate:    &due,
		RelatedTo:  related,
		AssignedTo: assignee.ID,
		CreatedBy:  assignee.ID,
	}

	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("failed to create test activity: %v", err)
	}

	return activity
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB          *gorm.DB
	JWTService  *auth.JWTService
	AuthService *auth.Service
	User        *models.User
	Token       string
}

// NewTestContext creates a complete test setup with DB, an admin user and its token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db, models.RoleAdmin)

	return &TestSetup{
		DB:          db,
		JWTService:  jwtService,
		AuthService: auth.NewService(db, jwtService, auth.ServiceConfig{Logger: Logger()}),
		User:        user,
		Token:       GenerateTestToken(t, jwtService, user),
	}
}

// UserWithRole creates another user in the same database and returns its token.
func (ts *TestSetup) UserWithRole(t *testing.T, role models.Role) (*models.User, string) {
	t.Helper()
	user := CreateTestUser(t, ts.DB, role)
	return user, GenerateTestToken(t, ts.JWTService, user)
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
