package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Ramsey-B/fern/pkg/context"
	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/middleware"
)

func newEcho(handler echo.HandlerFunc) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.GET("/thing", handler)
	return e
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		meta    map[string]any
	}{
		{
			name:    "contact error",
			err:     ferrors.NewValidationError("name", "name is required"),
			status:  http.StatusBadRequest,
			message: "name is required",
			meta:    map[string]any{"kind": "validation", "field": "name"},
		},
		{
			name:    "store failure hides the driver error",
			err:     ferrors.NewStoreWriteFailure("update", "ada", errors.New("disk I/O error")),
			status:  http.StatusServiceUnavailable,
			message: "failed to update contact",
			meta:    map[string]any{"kind": "store_write_failure", "target_id": "ada", "operation": "update"},
		},
		{
			name:    "http error",
			err:     httperror.NewHTTPError(http.StatusTeapot, "short and stout"),
			status:  http.StatusTeapot,
			message: "short and stout",
			meta:    map[string]any{},
		},
		{
			name:    "echo error",
			err:     echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"),
			status:  http.StatusMethodNotAllowed,
			message: "nope",
			meta:    map[string]any{},
		},
		{
			name:    "unknown error",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			message: "Internal Server Error",
			meta:    map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho(func(c echo.Context) error { return tt.err })

			req := httptest.NewRequest(http.MethodGet, "/thing", nil)
			req.Header.Set(echo.HeaderXRequestID, "req-1")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			var resp middleware.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, "req-1", resp.RequestID)
			assert.Equal(t, tt.meta, resp.Meta)
		})
	}
}

func TestContextMiddleware(t *testing.T) {
	var requestID, userID, route string
	e := newEcho(func(c echo.Context) error {
		ctx := c.Request().Context()
		requestID = appctx.GetRequestID(ctx)
		userID = appctx.GetUserID(ctx)
		route = appctx.GetRoute(ctx)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/thing", nil)
	req.Header.Set(middleware.HeaderUserID, "user-7")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "user-7", userID)
	assert.Equal(t, "/thing", route)
}
