package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "converzia_backend/internal/http"
	"converzia_backend/internal/http/router"
	"converzia_backend/internal/qualification"
	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/machine"
	"converzia_backend/internal/qualification/transport"
	"converzia_backend/platform/apperr"
	"converzia_backend/platform/config"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret       = "test-secret"
	testWebhookToken = "hook-secret"
)

type fakeService struct {
	offers  map[uuid.UUID]domain.LeadOffer
	created []qualification.CreateParams
	signals []machine.Signal
	inbound []qualification.InboundMessage
	calls   []string

	inboundErr error
	funnel     []domain.FunnelStageCount
}

func newFakeService() *fakeService {
	return &fakeService{offers: map[uuid.UUID]domain.LeadOffer{}}
}

func (f *fakeService) seed(tenantID uuid.UUID, status domain.Status) domain.LeadOffer {
	lo := domain.LeadOffer{ID: uuid.New(), TenantID: tenantID, LeadID: uuid.New(), Status: status, Version: 1}
	f.offers[lo.ID] = lo
	return lo
}

func (f *fakeService) Create(_ context.Context, params qualification.CreateParams) (domain.LeadOffer, error) {
	f.created = append(f.created, params)
	lo := domain.LeadOffer{ID: uuid.New(), TenantID: params.TenantID, LeadID: uuid.New(), OfferID: params.OfferID, Status: domain.StatusPendingMapping, Version: 1}
	if params.OfferID != nil {
		lo.Status = domain.StatusToBeContacted
	}
	f.offers[lo.ID] = lo
	return lo, nil
}

func (f *fakeService) Get(_ context.Context, tenantID, id uuid.UUID) (domain.LeadOffer, error) {
	lo, ok := f.offers[id]
	if !ok || lo.TenantID != tenantID {
		return domain.LeadOffer{}, apperr.NotFound("lead offer not found")
	}
	return lo, nil
}

func (f *fakeService) Detail(ctx context.Context, tenantID, id uuid.UUID) (qualification.Detail, error) {
	lo, err := f.Get(ctx, tenantID, id)
	if err != nil {
		return qualification.Detail{}, err
	}
	return qualification.Detail{LeadOffer: lo}, nil
}

func (f *fakeService) MapOffer(_ context.Context, id, offerID uuid.UUID) (domain.LeadOffer, error) {
	f.calls = append(f.calls, "map")
	lo := f.offers[id]
	lo.OfferID = &offerID
	lo.Status = domain.StatusToBeContacted
	f.offers[id] = lo
	return lo, nil
}

func (f *fakeService) StartContact(_ context.Context, id uuid.UUID) (domain.LeadOffer, error) {
	f.calls = append(f.calls, "contact")
	lo := f.offers[id]
	if lo.Status != domain.StatusToBeContacted {
		return domain.LeadOffer{}, apperr.Conflict("lead offer cannot be contacted")
	}
	lo.Status = domain.StatusContacted
	f.offers[id] = lo
	return lo, nil
}

func (f *fakeService) ApplySignal(_ context.Context, id uuid.UUID, sig machine.Signal) (domain.LeadOffer, error) {
	f.signals = append(f.signals, sig)
	lo := f.offers[id]
	lo.Status = sig.Target
	f.offers[id] = lo
	return lo, nil
}

func (f *fakeService) CompleteDelivery(_ context.Context, id uuid.UUID) (domain.LeadOffer, error) {
	f.calls = append(f.calls, "deliver")
	lo := f.offers[id]
	lo.Status = domain.StatusSentToDeveloper
	f.offers[id] = lo
	return lo, nil
}

func (f *fakeService) Funnel(context.Context, uuid.UUID) ([]domain.FunnelStageCount, error) {
	return f.funnel, nil
}

func (f *fakeService) HandleInbound(_ context.Context, msg qualification.InboundMessage) (qualification.InboundResult, error) {
	f.inbound = append(f.inbound, msg)
	if f.inboundErr != nil {
		return qualification.InboundResult{}, f.inboundErr
	}
	for _, lo := range f.offers {
		return qualification.InboundResult{LeadOffer: lo}, nil
	}
	return qualification.InboundResult{}, apperr.NotFound("no active lead offer")
}

type fakeTemplateCache struct {
	invalidated []string
}

func (f *fakeTemplateCache) Invalidate(_ context.Context, tenantID uuid.UUID, offerType string) {
	f.invalidated = append(f.invalidated, tenantID.String()+"/"+offerType)
}

type testServer struct {
	engine    *gin.Engine
	svc       *fakeService
	templates *fakeTemplateCache
	tenant    uuid.UUID
	token     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTAccessSecret: testSecret, WebhookToken: testWebhookToken, WebhookRateLimit: 100}
	svc := newFakeService()
	templates := &fakeTemplateCache{}
	module := NewModule(svc, validator.New(), cfg, logger.Nop())
	module.SetTemplateCache(templates)
	engine := router.New(&apphttp.App{Config: cfg, Logger: logger.Nop(), Modules: []apphttp.Module{module}})

	tenant := uuid.New()
	return &testServer{engine: engine, svc: svc, templates: templates, tenant: tenant, token: signToken(t, tenant)}
}

func signToken(t *testing.T, tenant uuid.UUID, roles ...string) string {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{"operator"}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       uuid.New().String(),
		"tenant_id": tenant.String(),
		"roles":     roles,
		"type":      "access",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) webhook(token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Webhook-Token", token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestCreateLeadOffer(t *testing.T) {
	s := newTestServer(t)
	offerID := uuid.New().String()

	rec := s.do(http.MethodPost, "/api/v1/lead-offers", map[string]any{
		"phone":      "+54 9 11 2233-4455",
		"name":       "Ana",
		"offerId":    offerID,
		"contactNow": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, s.svc.created, 1)

	params := s.svc.created[0]
	assert.Equal(t, s.tenant, params.TenantID)
	assert.Equal(t, "Ana", params.Name)
	assert.True(t, params.ContactNow)
	require.NotNil(t, params.OfferID)
	assert.Equal(t, offerID, params.OfferID.String())
}

func TestCreateLeadOfferValidation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/lead-offers", map[string]any{"phone": "", "offerId": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgValidationFailed)
	assert.Empty(t, s.svc.created)
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec := s.do(http.MethodGet, "/api/v1/funnel", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCommandsAreTenantScoped(t *testing.T) {
	s := newTestServer(t)
	foreign := s.svc.seed(uuid.New(), domain.StatusToBeContacted)

	rec := s.do(http.MethodPost, "/api/v1/lead-offers/"+foreign.ID.String()+"/contact", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/lead-offers/"+foreign.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, s.svc.calls)
}

func TestInvalidLeadOfferID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/v1/lead-offers/abc/deliver", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInvalidID)
}

func TestMapOfferAndStartContact(t *testing.T) {
	s := newTestServer(t)
	lo := s.svc.seed(s.tenant, domain.StatusPendingMapping)
	base := "/api/v1/lead-offers/" + lo.ID.String()

	rec := s.do(http.MethodPost, base+"/contact", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, base+"/offer", map[string]string{"offerId": uuid.New().String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, base+"/contact", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got domain.LeadOffer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.StatusContacted, got.Status)
	assert.Equal(t, []string{"contact", "map", "contact"}, s.svc.calls)
}

func TestApplySignal(t *testing.T) {
	s := newTestServer(t)
	lo := s.svc.seed(s.tenant, domain.StatusQualifying)
	path := "/api/v1/lead-offers/" + lo.ID.String() + "/signal"

	rec := s.do(http.MethodPost, path, map[string]string{"status": "DISQUALIFIED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "category is required for DISQUALIFIED")

	rec = s.do(http.MethodPost, path, map[string]string{"status": "DISQUALIFIED", "category": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, path, map[string]string{"status": "LEAD_READY"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, path, map[string]string{
		"status":   "DISQUALIFIED",
		"category": string(domain.DisqualPriceTooHigh),
		"reason":   "budget below offer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, s.svc.signals, 1)

	sig := s.svc.signals[0]
	assert.Equal(t, domain.StatusDisqualified, sig.Target)
	require.NotNil(t, sig.Category)
	assert.Equal(t, domain.DisqualPriceTooHigh, *sig.Category)
	assert.Equal(t, "budget below offer", sig.Reason)
}

func TestDeliver(t *testing.T) {
	s := newTestServer(t)
	lo := s.svc.seed(s.tenant, domain.StatusLeadReady)

	rec := s.do(http.MethodPost, "/api/v1/lead-offers/"+lo.ID.String()+"/deliver", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusSentToDeveloper, s.svc.offers[lo.ID].Status)
}

func TestFunnel(t *testing.T) {
	s := newTestServer(t)
	s.svc.funnel = []domain.FunnelStageCount{
		{Stage: domain.FunnelInConversation, Total: 3},
		{Stage: domain.FunnelQualified, Total: 2},
	}

	rec := s.do(http.MethodGet, "/api/v1/funnel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got transport.FunnelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 5, got.Total)
	assert.Len(t, got.Stages, 2)
}

const inboundBody = `{"from":"5491122334455@s.whatsapp.net","pushname":"Ana","message":{"id":"3EB0","text":"hola"}}`

func TestWebhookRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.webhook("", inboundBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, s.svc.inbound)
}

func TestWebhookRoutesInbound(t *testing.T) {
	s := newTestServer(t)
	lo := s.svc.seed(s.tenant, domain.StatusContacted)

	rec := s.webhook(testWebhookToken, inboundBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, s.svc.inbound, 1)
	assert.Equal(t, "5491122334455@s.whatsapp.net", s.svc.inbound[0].Phone)
	assert.Equal(t, "3EB0", s.svc.inbound[0].ExternalID)

	var got transport.WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "processed", got.Status)
	assert.Equal(t, lo.ID.String(), got.LeadOfferID)
}

func TestWebhookAcknowledgesUnroutableEvents(t *testing.T) {
	s := newTestServer(t)

	rec := s.webhook(testWebhookToken, `{"from":"5491122334455@s.whatsapp.net","is_from_me":true,"message":{"text":"hola"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
	assert.Empty(t, s.svc.inbound)

	rec = s.webhook(testWebhookToken, inboundBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unrouted")
}

func TestWebhookSurfacesServerErrors(t *testing.T) {
	s := newTestServer(t)
	s.svc.inboundErr = apperr.Unavailable("store unavailable")

	rec := s.webhook(testWebhookToken, inboundBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.webhook(testWebhookToken, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidateTemplateRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	path := "/api/v1/admin/scoring-templates/invalidate"
	body := map[string]string{"offerType": "apartment"}

	rec := s.do(http.MethodPost, path, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, s.templates.invalidated)

	s.token = signToken(t, s.tenant, "admin")
	rec = s.do(http.MethodPost, path, body)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Equal(t, []string{s.tenant.String() + "/apartment"}, s.templates.invalidated)
}
