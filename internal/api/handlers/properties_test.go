package handlers_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinq/vinq-crm/internal/database/models"
	"github.com/vinq/vinq-crm/internal/testutil"
)

// multipartRequest builds an authenticated upload with a single file part.
func multipartRequest(t *testing.T, path, field, filename, contentType string, content []byte, extra map[string]string, token string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestPropertyHandler_Create(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	_, userToken := tc.UserWithRole(t, models.RoleUser)
	valid := map[string]interface{}{
		"title":       "Departamento en Condesa",
		"description": "Dos recámaras, balcón",
		"type":        "apartment",
		"price":       3100000,
		"currency":    "MXN",
		"address":     map[string]string{"street": "Amsterdam 50", "city": "Ciudad de México", "state": "CDMX"},
		"features":    map[string]interface{}{"bedrooms": 2, "area": 85},
	}

	rr := do(t, router, http.MethodPost, "/api/v1/properties", valid, userToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodPost, "/api/v1/properties", valid, tc.Token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var property models.Property
	testutil.DecodeEnvelope(t, rr, &property)
	assert.Equal(t, models.PropertyStatusAvailable, property.Status)
	assert.Equal(t, "sqm", property.Features.AreaUnit)
	assert.Equal(t, models.DefaultCountry, property.Address.Country)
	assert.Equal(t, []string{}, property.Images)

	rr = do(t, router, http.MethodPost, "/api/v1/properties", map[string]interface{}{"title": "Sin datos"}, tc.Token)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := testutil.DecodeEnvelope(t, rr, nil)
	for _, field := range []string{"description", "type", "price", "address", "features.area"} {
		assert.Contains(t, env.Details, field)
	}
}

func TestPropertyHandler_ListFilters(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	testutil.CreateTestProperty(t, tc.DB, tc.User)
	cheap := testutil.CreateTestProperty(t, tc.DB, tc.User)
	require.NoError(t, tc.DB.Model(cheap).Updates(map[string]interface{}{
		"price":        900000,
		"type":         models.PropertyTypeLand,
		"address_city": "Monterrey",
		"title":        "Terreno en Cumbres",
	}).Error)

	tests := []struct {
		name      string
		query     string
		wantCount int
	}{
		{"all", "", 2},
		{"by type", "?type=land", 1},
		{"max price", "?maxPrice=1000000", 1},
		{"min price", "?minPrice=1000000", 1},
		{"city is case-insensitive", "?city=MONTERREY", 1},
		{"search title", "?search=terreno", 1},
		{"by status", "?status=sold", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, router, http.MethodGet, "/api/v1/properties"+tt.query, nil, tc.Token)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			var properties []models.Property
			testutil.DecodeEnvelope(t, rr, &properties)
			assert.Len(t, properties, tt.wantCount)
		})
	}
}

func TestPropertyHandler_UpdateAndDelete(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	path := "/api/v1/properties/" + property.ID.String()
	_, agentToken := tc.UserWithRole(t, models.RoleAgent)

	rr := do(t, router, http.MethodPatch, path, map[string]interface{}{"status": "reserved", "features": map[string]int{"parking": 2}}, agentToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Property
	testutil.DecodeEnvelope(t, rr, &got)
	assert.Equal(t, models.PropertyStatusReserved, got.Status)
	assert.Equal(t, 2, got.Features.Parking)
	assert.Equal(t, 3, got.Features.Bedrooms, "other features are kept")

	rr = do(t, router, http.MethodPatch, path, map[string]interface{}{"status": "demolished"}, agentToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodDelete, path, nil, agentToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodDelete, path, nil, tc.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, http.MethodGet, path, nil, tc.Token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	env := testutil.DecodeEnvelope(t, rr, nil)
	assert.Equal(t, "Propiedad no encontrada", env.Message)
}

func TestPropertyHandler_UploadImage(t *testing.T) {
	store := newMemoryStore()
	router, tc := setupTestRouter(t, withStore(store))
	defer tc.Cleanup()

	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	path := "/api/v1/properties/" + property.ID.String() + "/images"
	png := []byte("\x89PNG\r\n\x1a\nfake")

	rr := serve(router, multipartRequest(t, path, "image", "fachada.PNG", "image/png", png, nil, tc.Token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got models.Property
	env := testutil.DecodeEnvelope(t, rr, &got)
	assert.Equal(t, "Imagen subida correctamente", env.Message)
	require.Len(t, got.Images, 1)
	prefix := "https://files.test/properties/" + property.ID.String() + "/images/"
	assert.True(t, strings.HasPrefix(got.Images[0], prefix), got.Images[0])
	assert.True(t, strings.HasSuffix(got.Images[0], ".png"))
	assert.Len(t, store.objects, 1)

	var stored models.Property
	require.NoError(t, tc.DB.First(&stored, "id = ?", property.ID).Error)
	assert.Equal(t, got.Images, stored.Images)

	t.Run("rejected content type", func(t *testing.T) {
		rr := serve(router, multipartRequest(t, path, "image", "doc.pdf", "application/pdf", []byte("%PDF"), nil, tc.Token))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := testutil.DecodeEnvelope(t, rr, nil)
		assert.Equal(t, "Tipo de archivo no permitido", env.Message)
	})

	t.Run("wrong field name", func(t *testing.T) {
		rr := serve(router, multipartRequest(t, path, "photo", "a.png", "image/png", png, nil, tc.Token))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		env := testutil.DecodeEnvelope(t, rr, nil)
		assert.Equal(t, "Archivo requerido", env.Message)
	})

	t.Run("too large", func(t *testing.T) {
		big := bytes.Repeat([]byte("a"), 5<<20+1)
		rr := serve(router, multipartRequest(t, path, "image", "big.png", "image/png", big, nil, tc.Token))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown property", func(t *testing.T) {
		missing := "/api/v1/properties/" + uuid.New().String() + "/images"
		rr := serve(router, multipartRequest(t, missing, "image", "a.png", "image/png", png, nil, tc.Token))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	assert.Len(t, store.objects, 1, "rejected uploads never reach the store")
}

func TestPropertyHandler_UploadDocument(t *testing.T) {
	store := newMemoryStore()
	router, tc := setupTestRouter(t, withStore(store))
	defer tc.Cleanup()

	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	path := "/api/v1/properties/" + property.ID.String() + "/documents"

	rr := serve(router, multipartRequest(t, path, "document", "escritura.pdf", "application/pdf", []byte("%PDF-1.7"), map[string]string{"name": "Escritura"}, tc.Token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Property
	testutil.DecodeEnvelope(t, rr, &got)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "Escritura", got.Documents[0].Name)
	assert.Equal(t, "application/pdf", got.Documents[0].Type)

	rr = serve(router, multipartRequest(t, path, "document", "plano.png", "image/png", []byte("png"), nil, tc.Token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	testutil.DecodeEnvelope(t, rr, &got)
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "plano.png", got.Documents[1].Name, "file name is the default")

	rr = serve(router, multipartRequest(t, path, "document", "x.gif", "image/gif", []byte("gif"), nil, tc.Token))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPropertyHandler_UploadWithoutStore(t *testing.T) {
	router, tc := setupTestRouter(t)
	defer tc.Cleanup()

	property := testutil.CreateTestProperty(t, tc.DB, tc.User)
	path := "/api/v1/properties/" + property.ID.String() + "/images"

	rr := serve(router, multipartRequest(t, path, "image", "a.png", "image/png", []byte("png"), nil, tc.Token))
	require.Equal(t, http.StatusNotImplemented, rr.Code)
	env := testutil.DecodeEnvelope(t, rr, nil)
	assert.Equal(t, "Almacenamiento de archivos no configurado", env.Message)
}
