package survey

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"schema-sync/core/apperrors"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *Service) {
	t.Helper()
	app := fiber.New()
	svc, _, _ := newTestService(t)
	feature := NewFeature(svc)
	require.NoError(t, feature.Load(app))
	return app, svc
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r).Decode(v))
}

func TestHandleGetSchema(t *testing.T) {
	app, svc := setupTestApp(t)
	_, err := svc.SaveDefinition(context.Background(), feedbackDefinition())
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/schemas/feedback", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	decode(t, resp.Body, &body)
	assert.Equal(t, feedbackTable, body["table"])
	assert.Len(t, body["columns"], 4)

	resp, err = app.Test(httptest.NewRequest("GET", "/schemas/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestHandleListSchemas(t *testing.T) {
	app, svc := setupTestApp(t)
	_, err := svc.SaveDefinition(context.Background(), feedbackDefinition())
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/schemas", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body []map[string]any
	decode(t, resp.Body, &body)
	require.Len(t, body, 1)
	assert.Equal(t, "feedback", body[0]["slug"])
}

func TestHandleSyncSchema(t *testing.T) {
	app, svc := setupTestApp(t)
	require.NoError(t, svc.Repository().SaveDefinition(context.Background(), feedbackDefinition()))

	resp, err := app.Test(httptest.NewRequest("POST", "/schemas/feedback/sync?dry_run=true", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var plan map[string]any
	decode(t, resp.Body, &plan)
	assert.Equal(t, false, plan["table_exists"])

	resp, err = app.Test(httptest.NewRequest("POST", "/schemas/feedback/sync", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var result map[string]any
	decode(t, resp.Body, &result)
	assert.Equal(t, true, result["created"])
}

func TestHandleResponses(t *testing.T) {
	app, svc := setupTestApp(t)
	_, err := svc.SaveDefinition(context.Background(), feedbackDefinition())
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/schemas/feedback/responses", strings.NewReader(`{"rating": 5, "name": "Ann"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	var created map[string]any
	decode(t, resp.Body, &created)
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "Ann", created["name"])

	req = httptest.NewRequest("POST", "/schemas/feedback/responses", strings.NewReader(`{"rating": 9}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 422, resp.StatusCode)

	req = httptest.NewRequest("POST", "/schemas/feedback/responses", strings.NewReader(`not json`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/schemas/feedback/responses?limit=10", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	var list []map[string]any
	decode(t, resp.Body, &list)
	require.Len(t, list, 1)
	assert.Equal(t, float64(5), list[0]["rating"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.ErrNotFound, 404},
		{&apperrors.FieldError{Field: "x", Err: apperrors.ErrUnknownTypeTag}, 422},
		{apperrors.ErrInvalidRecord, 422},
		{apperrors.NewDDLError("add column", "t", "c", errors.New("boom")), 503},
		{apperrors.NewStoreError("query", "t", errors.New("boom")), 503},
		{errors.New("boom"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
