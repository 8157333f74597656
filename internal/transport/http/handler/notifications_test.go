package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-notify-api/internal/application/delivery"
	"github.com/go-notify-api/internal/config"
	"github.com/go-notify-api/internal/domain"
	jwtinfra "github.com/go-notify-api/internal/infrastructure/jwt"
	"github.com/go-notify-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotificationSvc struct{ mock.Mock }

func (m *mockNotificationSvc) List(ctx context.Context, recipientID string, opts domain.ListOptions) (*domain.ListResult, error) {
	args := m.Called(ctx, recipientID, opts)
	if res, _ := args.Get(0).(*domain.ListResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationSvc) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

func (m *mockNotificationSvc) MarkRead(ctx context.Context, callerID, notificationID string) error {
	return m.Called(ctx, callerID, notificationID).Error(0)
}

func (m *mockNotificationSvc) MarkAllRead(ctx context.Context, callerID string) error {
	return m.Called(ctx, callerID).Error(0)
}

func (m *mockNotificationSvc) Delete(ctx context.Context, callerID, notificationID string) error {
	return m.Called(ctx, callerID, notificationID).Error(0)
}

func (m *mockNotificationSvc) Reconcile(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

type mockDeliverySvc struct{ mock.Mock }

func (m *mockDeliverySvc) Deliver(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, []delivery.Channel, error) {
	args := m.Called(ctx, req)
	n, _ := args.Get(0).(*domain.Notification)
	channels, _ := args.Get(1).([]delivery.Channel)
	return n, channels, args.Error(2)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given userID.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID string, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, "user")
	require.NoError(t, err)
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

// --- List tests ---

func TestList_MissingClaims(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationSvc{}, &mockDeliverySvc{})
	r := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
	rr := httptest.NewRecorder()
	h.List(rr, r) // called directly, no claims in context
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestList_DefaultsAndPassThrough(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("List", mock.Anything, "u1", domain.ListOptions{Page: 1, PageSize: 20}).
		Return(&domain.ListResult{Data: []domain.Notification{}, Page: 1, PageSize: 20}, nil)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications", "u1", nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeEnvelope(t, rr).Success)
	svc.AssertExpectations(t)
}

func TestList_ParsesQueryParameters(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("List", mock.Anything, "u1",
		domain.ListOptions{Page: 3, PageSize: 50, UnreadOnly: true, Grouped: true}).
		Return(&domain.ListResult{Groups: []domain.NotificationGroup{}, Page: 3, PageSize: 50}, nil)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications?page=3&pageSize=50&unreadOnly=true&grouped=true", "u1", nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestList_RejectsBadPagination(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewNotificationHandler(&mockNotificationSvc{}, &mockDeliverySvc{})

	for _, target := range []string{
		"/v1/notifications?page=0",
		"/v1/notifications?page=abc",
		"/v1/notifications?pageSize=0",
		"/v1/notifications?pageSize=101",
	} {
		r := bearerReq(t, p, http.MethodGet, target, "u1", nil)
		rr := httptest.NewRecorder()
		serveAuthed(p, http.HandlerFunc(h.List), rr, r)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.False(t, decodeEnvelope(t, rr).Success, target)
	}
}

// --- UnreadCount tests ---

func TestUnreadCount_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("UnreadCount", mock.Anything, "u1").Return(7, nil)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications/unread-count", "u1", nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.UnreadCount), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	require.True(t, env.Success)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), data["count"])
	svc.AssertExpectations(t)
}

func TestUnreadCount_StoreUnavailable(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("UnreadCount", mock.Anything, "u1").Return(0, domain.ErrUnavailable)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodGet, "/v1/notifications/unread-count", "u1", nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.UnreadCount), rr, r)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// --- MarkRead tests ---

func TestMarkRead_SingleNotification(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("MarkRead", mock.Anything, "u1", "n2").Return(nil)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})
	body, _ := json.Marshal(domain.MarkReadRequest{NotificationID: strptr("n2")})

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/mark-read", "u1", body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "MarkAllRead", mock.Anything, mock.Anything)
}

func TestMarkRead_EmptyBodyMarksAll(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("MarkAllRead", mock.Anything, "u1").Return(nil)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/mark-read", "u1", nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestMarkRead_NullIDMarksAll(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("MarkAllRead", mock.Anything, "u1").Return(nil)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/mark-read", "u1", []byte(`{"notificationId": null}`))
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestMarkRead_EmptyIDRejected(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/mark-read", "u1", []byte(`{"notificationId": ""}`))
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "MarkAllRead", mock.Anything, mock.Anything)
}

func TestMarkRead_ForbiddenMapsTo403(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("MarkRead", mock.Anything, "u1", "n9").Return(domain.ErrForbidden)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})
	body, _ := json.Marshal(domain.MarkReadRequest{NotificationID: strptr("n9")})

	r := bearerReq(t, p, http.MethodPost, "/v1/notifications/mark-read", "u1", body)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.MarkRead), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, decodeEnvelope(t, rr).Success)
}

// --- Delete tests ---

func TestDelete_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("Delete", mock.Anything, "u1", "n1").Return(nil)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodDelete, "/v1/notifications/n1", "u1", nil)
	r = withChiID(r, "n1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Delete), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestDelete_NotFoundMapsTo404(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockNotificationSvc{}
	svc.On("Delete", mock.Anything, "u1", "missing").Return(domain.ErrNotFound)
	h := NewNotificationHandler(svc, &mockDeliverySvc{})

	r := bearerReq(t, p, http.MethodDelete, "/v1/notifications/missing", "u1", nil)
	r = withChiID(r, "missing")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Delete), rr, r)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- Create (producer seam) tests ---

func TestCreate_InvalidBody(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationSvc{}, &mockDeliverySvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Create(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreate_ValidationFailure(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationSvc{}, &mockDeliverySvc{})
	body, _ := json.Marshal(domain.CreateNotificationRequest{Type: "like"}) // missing recipient and content
	r := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreate_HappyPath(t *testing.T) {
	router := &mockDeliverySvc{}
	n := &domain.Notification{NotificationID: "n1", RecipientID: "u1", Type: domain.TypeLike}
	router.On("Deliver", mock.Anything, mock.Anything).
		Return(n, []delivery.Channel{delivery.ChannelInApp, delivery.ChannelEmail}, nil)
	h := NewNotificationHandler(&mockNotificationSvc{}, router)

	body, _ := json.Marshal(domain.CreateNotificationRequest{
		RecipientID: "u1", Type: "like", Content: "someone liked your post",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	env := decodeEnvelope(t, rr)
	require.True(t, env.Success)
	router.AssertExpectations(t)
}

func TestCreate_SuppressedByPreference(t *testing.T) {
	router := &mockDeliverySvc{}
	router.On("Deliver", mock.Anything, mock.Anything).Return(nil, nil, nil)
	h := NewNotificationHandler(&mockNotificationSvc{}, router)

	body, _ := json.Marshal(domain.CreateNotificationRequest{
		RecipientID: "u1", Type: "like", Content: "someone liked your post",
	})
	r := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope(t, rr)
	require.True(t, env.Success)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["suppressed"])
}

func strptr(s string) *string { return &s }
