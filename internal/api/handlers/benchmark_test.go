package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/database/models"
)

func sampleLeads(n int) []models.Lead {
	leads := make([]models.Lead, n)
	for i := range leads {
		leads[i] = models.Lead{
			Base:      models.Base{ID: uuid.New()},
			FirstName: "Ana",
			LastName:  "García",
			FullName:  "Ana García",
			Email:     "ana@example.com",
			Status:    models.LeadStatusNew,
			BudgetMin: decimal.NewNullDecimal(decimal.NewFromInt(150000)),
			BudgetMax: decimal.NewNullDecimal(decimal.NewFromInt(300000)),
		}
	}
	return leads
}

// BenchmarkWriteJSON benchmarks the envelope writers
func BenchmarkWriteJSON(b *testing.B) {
	b.Run("Message", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			w := httptest.NewRecorder()
			writeMessage(w, http.StatusOK, "Lead eliminado correctamente", nil)
		}
	})

	b.Run("Validation", func(b *testing.B) {
		details := map[string]string{"email": "Email inválido", "budgetMax": "El presupuesto máximo debe ser mayor o igual al mínimo"}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			w := httptest.NewRecorder()
			writeValidation(w, details)
		}
	})

	b.Run("LeadPage", func(b *testing.B) {
		leads := sampleLeads(50)
		page := &dto.Pagination{Page: 1, Limit: 50, Total: 500, Pages: 10}
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			w := httptest.NewRecorder()
			writeList(w, leads, page)
		}
	})
}

// BenchmarkParseListQuery benchmarks the shared list parameter parsing
func BenchmarkParseListQuery(b *testing.B) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/leads?page=3&limit=25&search=garc%C3%ADa&sortBy=score&sortOrder=asc&status=NEW", nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = parseListQuery(r, leadSort)
	}
}

func BenchmarkClassify(b *testing.B) {
	err := errors.Join(errors.New("tx"), crm.ErrAccountCycle)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = classify(err, msgAccountNotFound)
	}
}

func BenchmarkConversionRate(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = conversionRate(37, 112)
	}
}
