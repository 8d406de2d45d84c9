package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AzielCF/az-crm/core/database"
	"github.com/AzielCF/az-crm/customers/application"
	"github.com/AzielCF/az-crm/customers/domain"
	"github.com/AzielCF/az-crm/customers/repository"
	followupDomain "github.com/AzielCF/az-crm/followup/domain"
	"github.com/AzielCF/az-crm/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	customerID string
}

func (s *stubHistory) ListCustomerFollowUps(_ context.Context, customerID string) ([]*followupDomain.Task, []*followupDomain.Event, error) {
	s.customerID = customerID
	return []*followupDomain.Task{{ID: "task-1", CustomerID: customerID}}, nil, nil
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"results"`
}

func newTestApp(t *testing.T) (*fiber.App, *stubHistory) {
	t.Helper()
	db, err := database.OpenInMemory("customers-rest-" + uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo := repository.NewCustomerGormRepository(db)
	require.NoError(t, repo.InitSchema(context.Background()))

	history := &stubHistory{}
	app := fiber.New()
	app.Use(middleware.Recovery())
	NewCustomerHandler(application.NewCustomerService(repo, nil), history).RegisterRoutes(app)
	return app, history
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func TestCustomerHandler_CreateUpdateFlow(t *testing.T) {
	app, history := newTestApp(t)

	resp, env := doJSON(t, app, http.MethodPost, "/customers", map[string]string{
		"first_name": "Ana", "phone": "3804345688", "status": "NO_ANSWER", "assigned_to": "denis",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)

	var created domain.Customer
	require.NoError(t, json.Unmarshal(env.Results, &created))
	assert.Equal(t, "DENIS", created.AssignedTo)

	resp, env = doJSON(t, app, http.MethodPatch, "/customers/"+created.ID, map[string]string{"status": "PURCHASED"})
	require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
	var updated domain.Customer
	require.NoError(t, json.Unmarshal(env.Results, &updated))
	assert.Equal(t, domain.StatusPurchased, updated.Status)
	assert.Equal(t, "3804345688", updated.Phone)

	resp, env = doJSON(t, app, http.MethodGet, "/customers?status=PURCHASED", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Customer
	require.NoError(t, json.Unmarshal(env.Results, &list))
	assert.Len(t, list, 1)

	resp, env = doJSON(t, app, http.MethodGet, "/customers/"+created.ID+"/follow-ups", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, history.customerID)
	var followUps CustomerFollowUps
	require.NoError(t, json.Unmarshal(env.Results, &followUps))
	assert.Len(t, followUps.Tasks, 1)
	assert.Empty(t, followUps.Events)
}

func TestCustomerHandler_Errors(t *testing.T) {
	app, _ := newTestApp(t)

	resp, env := doJSON(t, app, http.MethodPost, "/customers", map[string]string{"status": "NO_ANSWER"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	resp, env = doJSON(t, app, http.MethodGet, "/customers/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND_ERROR", env.Code)

	resp, env = doJSON(t, app, http.MethodPatch, "/customers/missing", map[string]string{"status": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	resp, _ = doJSON(t, app, http.MethodGet, "/customers?status=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
