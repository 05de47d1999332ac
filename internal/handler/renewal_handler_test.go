package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dojoworks/renewals-api/internal/dto"
	"github.com/dojoworks/renewals-api/internal/models"
	"github.com/dojoworks/renewals-api/internal/service"
	"github.com/dojoworks/renewals-api/pkg/config"
	appErrors "github.com/dojoworks/renewals-api/pkg/errors"
)

type gatewayStub struct {
	renewals map[string]*models.Renewal
	created  []*models.Renewal
}

func newGatewayStub(renewals ...models.Renewal) *gatewayStub {
	stub := &gatewayStub{renewals: map[string]*models.Renewal{}}
	for i := range renewals {
		r := renewals[i]
		stub.renewals[r.RenewalID] = &r
	}
	return stub
}

func (g *gatewayStub) List(_ context.Context, filter models.RenewalFilter) ([]models.Renewal, error) {
	out := []models.Renewal{}
	for _, r := range g.renewals {
		if filter.StudentID == "" || r.StudentID == filter.StudentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (g *gatewayStub) GetByID(_ context.Context, id string) (*models.Renewal, error) {
	r, ok := g.renewals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *r
	return &copied, nil
}

func (g *gatewayStub) ListExpiring(_ context.Context, _ int) ([]models.Renewal, error) {
	out := []models.Renewal{}
	for _, r := range g.renewals {
		out = append(out, *r)
	}
	return out, nil
}

func (g *gatewayStub) Create(_ context.Context, renewal *models.Renewal) error {
	if renewal.RenewalID == "" {
		renewal.RenewalID = "generated"
	}
	copied := *renewal
	g.renewals[renewal.RenewalID] = &copied
	g.created = append(g.created, &copied)
	return nil
}

func (g *gatewayStub) Update(_ context.Context, id string, patch models.RenewalPatch) error {
	r, ok := g.renewals[id]
	if !ok {
		return sql.ErrNoRows
	}
	merged := patch.Apply(*r)
	g.renewals[id] = &merged
	return nil
}

func (g *gatewayStub) Delete(_ context.Context, id string) error {
	delete(g.renewals, id)
	return nil
}

type cacheStub struct{}

func (cacheStub) Get(context.Context, string, interface{}) error { return appErrors.ErrCacheMiss }
func (cacheStub) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (cacheStub) DeleteByPattern(context.Context, string) error { return nil }

func newRenewalHandlerForTest(gateway *gatewayStub) *RenewalHandler {
	cfg := config.RenewalsConfig{GracePeriodDays: 7, WarningPeriodDays: 15, DefaultWindowDays: 30, SnapshotTTL: time.Minute}
	svc := service.NewRenewalService(gateway, cacheStub{}, nil, cfg, zap.NewNop())
	return NewRenewalHandler(svc)
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func testRenewal(id string) models.Renewal {
	return models.Renewal{
		RenewalID:        id,
		StudentID:        "s1",
		DurationMonths:   3,
		PaymentDate:      time.Now().AddDate(0, -3, 0),
		ExpirationDate:   time.Now().AddDate(0, 0, 3),
		AmountDue:        150,
		NumberOfPayments: 1,
		NumberOfClasses:  12,
		PaidTo:           "Front Desk",
	}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestRenewalHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRenewalHandlerForTest(newGatewayStub(testRenewal("r1"), testRenewal("r2")))

	c, w := newGinContext(http.MethodGet, "/renewals", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	var renewals []models.Renewal
	require.NoError(t, json.Unmarshal(envelope["data"], &renewals))
	assert.Len(t, renewals, 2)
}

func TestRenewalHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRenewalHandlerForTest(newGatewayStub())

	c, w := newGinContext(http.MethodGet, "/renewals/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRenewalHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gateway := newGatewayStub()
	handler := newRenewalHandlerForTest(gateway)

	payload, _ := json.Marshal(dto.CreateRenewalRequest{
		StudentID:      "s1",
		DurationMonths: 3,
		PaymentDate:    time.Now(),
		ExpirationDate: time.Now().AddDate(0, 3, 0),
		AmountDue:      150,
	})
	c, w := newGinContext(http.MethodPost, "/renewals", payload)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, gateway.created, 1)
	assert.Equal(t, 1, gateway.created[0].NumberOfPayments)
}

func TestRenewalHandlerCreateInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRenewalHandlerForTest(newGatewayStub())

	c, w := newGinContext(http.MethodPost, "/renewals", []byte(`{"student_id":""}`))
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenewalHandlerUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gateway := newGatewayStub(testRenewal("r1"))
	handler := newRenewalHandlerForTest(gateway)

	c, w := newGinContext(http.MethodPatch, "/renewals/r1", []byte(`{"amount_paid":150}`))
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 150.0, gateway.renewals["r1"].AmountPaid)
}

func TestRenewalHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gateway := newGatewayStub(testRenewal("r1"))
	handler := newRenewalHandlerForTest(gateway)

	c, w := newGinContext(http.MethodDelete, "/renewals/r1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	handler.Delete(c)
	// No body is written on 204, so flush the status explicitly; outside
	// an engine nothing else triggers the header write.
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, gateway.renewals, "r1")
}

func TestRenewalHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	paid := testRenewal("paid")
	paid.AmountPaid = paid.AmountDue
	expired := testRenewal("expired")
	expired.ExpirationDate = time.Now().AddDate(0, 0, -10)
	handler := newRenewalHandlerForTest(newGatewayStub(paid, expired, testRenewal("active")))

	c, w := newGinContext(http.MethodGet, "/renewals/summary", nil)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	var categorized models.CategorizedRenewals
	require.NoError(t, json.Unmarshal(envelope["data"], &categorized))
	assert.Len(t, categorized.Paid, 1)
	assert.Len(t, categorized.Expired, 1)
	assert.Len(t, categorized.Active, 1)
}

func TestRenewalHandlerExpiringGrouped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	soon := testRenewal("soon")
	soon.ExpirationDate = time.Now().AddDate(0, 0, 5)
	grace := testRenewal("grace")
	grace.ExpirationDate = time.Now().AddDate(0, 0, -2)
	handler := newRenewalHandlerForTest(newGatewayStub(soon, grace))

	c, w := newGinContext(http.MethodGet, "/renewals/expiring/grouped", nil)
	handler.ExpiringGrouped(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	var grouped models.GroupedExpiringRenewals
	require.NoError(t, json.Unmarshal(envelope["data"], &grouped))
	assert.Len(t, grouped.GracePeriod, 1)
	assert.Len(t, grouped.ExpiringSoon, 1)
}

func TestRenewalHandlerQuitDefaultsNotes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newRenewalHandlerForTest(newGatewayStub(testRenewal("r1")))

	c, w := newGinContext(http.MethodPost, "/renewals/r1/quit", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	handler.Quit(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	var resolution models.RenewalResolution
	require.NoError(t, json.Unmarshal(envelope["data"], &resolution))
	assert.Equal(t, models.ActionQuit, resolution.Action)
	assert.Equal(t, "Student quit", resolution.Notes)
}

func TestRenewalHandlerRenew(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gateway := newGatewayStub(testRenewal("r1"))
	handler := newRenewalHandlerForTest(gateway)

	c, w := newGinContext(http.MethodPost, "/renewals/r1/renew", []byte(`{"duration_months":2}`))
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	handler.Renew(c)

	require.Equal(t, http.StatusCreated, w.Code)
	envelope := decodeEnvelope(t, w)
	var resp dto.ResolveRenewResponse
	require.NoError(t, json.Unmarshal(envelope["data"], &resp))
	assert.Equal(t, models.ActionRenew, resp.Resolution.Action)
	assert.Equal(t, 2, resp.NewRenewal.DurationMonths)
	require.Len(t, gateway.created, 1)
}
