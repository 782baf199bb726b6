package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pix-reconciler/internal/core/ports"
	"pix-reconciler/internal/core/ports/mocks"
	"pix-reconciler/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "whsec_test"

func testWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Secret:             testSecret,
		VerifySignature:    true,
		SignatureHeader:    "X-Webhook-Signature",
		Providers:          []string{"abacatepay"},
		UnrecognizedStatus: http.StatusBadRequest,
		ServiceName:        "PrescrevaMe Premium Webhook",
		ProductPrice:       34700,
	}
}

// testRouterDeps wires every route with mocks; tests override fields as needed.
type testRouterDeps struct {
	RouterDeps
	router  *mocks.MockNotificationRouter
	charges *mocks.MockChargeService
	reports *mocks.MockReportService
	tokens  *mocks.MockTokenService
	sigSvc  *service.HMACSignatureService
}

func newTestRouterDeps(t *testing.T) *testRouterDeps {
	ctrl := gomock.NewController(t)
	d := &testRouterDeps{
		router:  mocks.NewMockNotificationRouter(ctrl),
		charges: mocks.NewMockChargeService(ctrl),
		reports: mocks.NewMockReportService(ctrl),
		tokens:  mocks.NewMockTokenService(ctrl),
		sigSvc:  service.NewHMACSignatureService(),
	}
	d.RouterDeps = RouterDeps{
		Webhook:            testWebhookConfig(),
		NotificationRouter: d.router,
		SigSvc:             d.sigSvc,
		ChargeSvc:          d.charges,
		ReportSvc:          d.reports,
		TokenSvc:           d.tokens,
		Logger:             zerolog.Nop(),
	}
	return d
}

func (d *testRouterDeps) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	SetupRouter(d.RouterDeps).ServeHTTP(w, req)
	return w
}

// envelope decodes the success envelope's data into out.
func envelope(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Data      json.RawMessage `json:"data"`
		RequestID string          `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ErrorCode
}

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(context.Context) error { return f.err }
func (f fakeChecker) Name() string               { return f.name }

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name     string
		checkers []ports.HealthChecker
		code     int
		status   string
	}{
		{"no dependencies", nil, http.StatusOK, "healthy"},
		{"all healthy", []ports.HealthChecker{fakeChecker{name: "eventlog"}, fakeChecker{name: "redis"}}, http.StatusOK, "healthy"},
		{"redis down", []ports.HealthChecker{fakeChecker{name: "eventlog"}, fakeChecker{name: "redis", err: errors.New("connection refused")}}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestRouterDeps(t)
			d.HealthCheckers = tt.checkers

			w := d.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.code, w.Code)

			var body struct {
				Status       string                       `json:"status"`
				Dependencies map[string]map[string]string `json:"dependencies"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Status)
			assert.Len(t, body.Dependencies, len(tt.checkers))
		})
	}
}

func TestSetupRouter_OptionalGroups(t *testing.T) {
	d := newTestRouterDeps(t)
	d.ChargeSvc = nil
	d.ReportSvc = nil

	w := d.serve(httptest.NewRequest(http.MethodGet, "/api/v1/charges/pix_char_1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = d.serve(httptest.NewRequest(http.MethodGet, "/api/v1/reports/summary", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetupRouter_EchoesRequestID(t *testing.T) {
	d := newTestRouterDeps(t)
	req := httptest.NewRequest(http.MethodGet, "/webhook/status", nil)
	req.Header.Set("X-Request-ID", "req-from-proxy")

	w := d.serve(req)
	assert.Equal(t, "req-from-proxy", w.Header().Get("X-Request-ID"))
}
