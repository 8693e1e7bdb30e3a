package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lgcms/internal/aggregate"
	"lgcms/internal/analytics"
	"lgcms/internal/apperr"
	"lgcms/internal/config"
	"lgcms/internal/events"
	"lgcms/internal/metrics"
	"lgcms/internal/models"
	"lgcms/internal/repository/memory"
	"lgcms/internal/response"
	"lgcms/internal/revocation"
	"lgcms/internal/security"
	"lgcms/internal/service"
	"lgcms/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type presigner struct{}

func (presigner) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/" + key + "?X-Amz-Signature=abc", nil
}

func (presigner) URI(key string) string { return "s3://evidence/" + key }

type chartBackend struct{}

func (chartBackend) Chart(_ context.Context, name string) (json.RawMessage, error) {
	return json.RawMessage(`{"labels":["Pending"],"values":[1]}`), nil
}

func (chartBackend) PredictResolution(context.Context, analytics.PredictInput) (analytics.Prediction, error) {
	return analytics.Prediction{Days: 6.5}, nil
}

func (chartBackend) Retrain(context.Context) error { return nil }

type testAPI struct {
	router    *gin.Engine
	users     *memory.UserStore
	authority *session.Authority
	healthErr error
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			SessionSecret:  "handler-test-secret",
			SessionTTL:     time.Hour,
			CookieName:     "token",
			LoginRateLimit: 100,
			LoginBurst:     100,
		},
		Cache:      config.CacheConfig{DashboardTTL: time.Minute, AnalyticsTTL: time.Minute, RecentActivity: 5},
		Store:      config.StoreConfig{OperationTimeout: time.Second, MaxMutateRetries: 3},
		Complaints: config.ComplaintConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Storage:    config.StorageConfig{PresignExpiry: 10 * time.Minute},
	}
	log := zerolog.Nop()
	m := metrics.New(prometheus.NewRegistry())

	users := memory.NewUserStore()
	users.AddDepartment(models.Department{ID: "water", Name: "Water & Sanitation"})
	complaints := memory.NewComplaintStore()
	cache := aggregate.NewMemoryCache()
	authority := session.NewAuthority(cfg.Security.SessionSecret, cfg.Security.SessionTTL, revocation.NewMemoryStore(), m, log)

	api := &testAPI{users: users, authority: authority}
	deps := Dependencies{
		Authority:  authority,
		Auth:       service.NewAuthService(users, authority, cfg, log),
		Complaints: service.NewComplaintService(complaints, users, cache, events.NopPublisher{}, m, cfg, log),
		Dashboard:  service.NewDashboardService(complaints, users, cache, m, cfg, log),
		Evidence:   service.NewEvidenceService(presigner{}, cfg),
		Analytics:  analytics.NewService(chartBackend{}, cache, cfg.Cache.AnalyticsTTL, m, log),
		Metrics:    m,
		Checks: []HealthCheck{{Name: "database", Ping: func(context.Context) error {
			return api.healthErr
		}}},
	}

	r := gin.New()
	NewHandlerSet(log, cfg, deps).Register(r.Group("/api"))
	api.router = r

	for _, u := range []models.User{
		{ID: "u-cit", Username: "wanjiru", Email: "wanjiru@example.org", Role: models.RoleCitizen},
		{ID: "u-staff", Username: "sam", Email: "sam@county.go.ke", Role: models.RoleStaff, DepartmentID: strPtr("water")},
		{ID: "u-admin", Username: "root", Email: "root@county.go.ke", Role: models.RoleAdmin},
	} {
		hash, err := security.HashPasswordWithParams("correct-horse", security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
		require.NoError(t, err)
		u.PasswordHash = hash
		require.NoError(t, users.Create(context.Background(), u))
	}
	return api
}

func strPtr(s string) *string { return &s }

type result struct {
	code   int
	env    response.Envelope
	data   json.RawMessage
	header http.Header
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) result {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var raw struct {
		response.Envelope
		Data json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &raw)
	return result{code: w.Code, env: raw.Envelope, data: raw.Data, header: w.Header()}
}

func (a *testAPI) token(t *testing.T, id string, role models.Role) string {
	t.Helper()
	tok, err := a.authority.Issue(models.Identity{ID: id, Role: role})
	require.NoError(t, err)
	return tok.Raw
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestLogoutInvalidatesToken(t *testing.T) {
	api := newTestAPI(t)

	login := api.do(t, http.MethodPost, "/api/v1/staff/login", "", gin.H{"email": "sam@county.go.ke", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, login.code)
	auth := decode[authResponse](t, login.data)
	assert.Equal(t, models.RoleStaff, auth.User.Role)
	assert.Contains(t, login.header.Get("Set-Cookie"), "token=")

	me := api.do(t, http.MethodGet, "/api/v1/auth/me", auth.Token, nil)
	assert.Equal(t, http.StatusOK, me.code)

	out := api.do(t, http.MethodPost, "/api/v1/auth/logout", auth.Token, nil)
	require.Equal(t, http.StatusOK, out.code)
	assert.True(t, out.env.Success)

	me = api.do(t, http.MethodGet, "/api/v1/auth/me", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, me.code)
	assert.Equal(t, apperr.KindRevokedToken, me.env.Kind)

	// Logging out twice with the same token is rejected at the gate, not an error.
	again := api.do(t, http.MethodPost, "/api/v1/auth/logout", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, again.code)
}

func TestStaffLoginRejectsCitizens(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/api/v1/staff/login", "", gin.H{"username": "wanjiru", "password": "correct-horse"})
	assert.Equal(t, http.StatusForbidden, res.code)

	res = api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"identifier": "wanjiru", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, res.code)
	assert.Equal(t, "invalid credentials", res.env.Message)

	res = api.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, res.code)
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "amina", "email": "not-an-email", "password": "longenough"})
	assert.Equal(t, http.StatusBadRequest, res.code)
	assert.Equal(t, apperr.KindValidation, res.env.Kind)
	assert.Contains(t, res.env.Message, "email")

	res = api.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "amina", "email": "amina@example.org", "password": "longenough"})
	require.Equal(t, http.StatusCreated, res.code)
	assert.Equal(t, models.RoleCitizen, decode[authResponse](t, res.data).User.Role)
}

func TestComplaintFlow(t *testing.T) {
	api := newTestAPI(t)
	citizen := api.token(t, "u-cit", models.RoleCitizen)
	staff := api.token(t, "u-staff", models.RoleStaff)
	admin := api.token(t, "u-admin", models.RoleAdmin)

	missing := api.do(t, http.MethodPost, "/api/v1/complaints", citizen, gin.H{"category": "Water", "location": "Kisumu"})
	assert.Equal(t, http.StatusBadRequest, missing.code)
	assert.Equal(t, apperr.KindValidation, missing.env.Kind)

	created := api.do(t, http.MethodPost, "/api/v1/complaints", citizen, gin.H{
		"category":    "Water",
		"description": "Burst pipe flooding the road",
		"location":    "-0.0917,34.7680",
	})
	require.Equal(t, http.StatusCreated, created.code)
	c := decode[complaintResponse](t, created.data)
	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, models.PriorityMedium, c.Priority)
	require.NotNil(t, c.Location.Latitude)

	anon := api.do(t, http.MethodPost, "/api/v1/complaints", "", gin.H{"category": "Roads", "description": "Pothole", "location": "Main St"})
	require.Equal(t, http.StatusCreated, anon.code)
	assert.True(t, decode[complaintResponse](t, anon.data).Anonymous)

	path := "/api/v1/complaints/" + c.ID

	forbidden := api.do(t, http.MethodPatch, path, citizen, gin.H{"status": "Resolved"})
	assert.Equal(t, http.StatusForbidden, forbidden.code)

	badAssign := api.do(t, http.MethodPatch, path, staff, gin.H{"assignedTo": "u-cit", "status": "Resolved"})
	assert.Equal(t, http.StatusBadRequest, badAssign.code)
	assert.Equal(t, apperr.KindInvalidAssignment, badAssign.env.Kind)

	badStatus := api.do(t, http.MethodPatch, path, staff, gin.H{"status": "Done"})
	assert.Equal(t, http.StatusBadRequest, badStatus.code)

	resolved := api.do(t, http.MethodPatch, path, staff, gin.H{"status": "Resolved", "assignedTo": "u-staff", "responseText": "Valve replaced"})
	require.Equal(t, http.StatusOK, resolved.code)
	rc := decode[complaintResponse](t, resolved.data)
	assert.NotNil(t, rc.ResolvedAt)
	require.Len(t, rc.Responses, 1)
	assert.Equal(t, "sam", rc.Responses[0].Responder)

	view := api.do(t, http.MethodGet, path, citizen, nil)
	assert.Equal(t, http.StatusOK, view.code)

	list := api.do(t, http.MethodGet, "/api/v1/complaints?assigned=true", staff, nil)
	require.Equal(t, http.StatusOK, list.code)
	assert.Equal(t, 1, decode[complaintListResponse](t, list.data).Total)

	mine := api.do(t, http.MethodGet, "/api/v1/complaints", citizen, nil)
	assert.Equal(t, 1, decode[complaintListResponse](t, mine.data).Total)

	stats := api.do(t, http.MethodGet, "/api/v1/dashboard/stats", admin, nil)
	require.Equal(t, http.StatusOK, stats.code)
	agg := decode[models.DashboardAggregate](t, stats.data)
	assert.Equal(t, 2, agg.Total)
	assert.Equal(t, 1, agg.Resolved)

	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodDelete, path, staff, nil).code)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodDelete, path, admin, nil).code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, path, admin, nil).code)
}

func TestMutateAssigneeAndResponseFields(t *testing.T) {
	api := newTestAPI(t)
	staff := api.token(t, "u-staff", models.RoleStaff)

	created := api.do(t, http.MethodPost, "/api/v1/complaints", "", gin.H{"category": "Roads", "description": "Pothole", "location": "1.0,2.0"})
	require.Equal(t, http.StatusCreated, created.code)
	path := "/api/v1/complaints/" + decode[complaintResponse](t, created.data).ID

	assigned := api.do(t, http.MethodPatch, path, staff, gin.H{"assignedTo": "u-staff"})
	require.Equal(t, http.StatusOK, assigned.code)
	require.NotNil(t, decode[complaintResponse](t, assigned.data).AssignedTo)

	// Omitting the field leaves the assignee in place.
	kept := api.do(t, http.MethodPatch, path, staff, gin.H{"priority": "High"})
	require.Equal(t, http.StatusOK, kept.code)
	kc := decode[complaintResponse](t, kept.data)
	require.NotNil(t, kc.AssignedTo)
	assert.Equal(t, "u-staff", *kc.AssignedTo)

	cleared := api.do(t, http.MethodPatch, path, staff, gin.H{"assignedTo": nil})
	require.Equal(t, http.StatusOK, cleared.code)
	assert.Nil(t, decode[complaintResponse](t, cleared.data).AssignedTo)

	reassigned := api.do(t, http.MethodPatch, path, staff, gin.H{"assignedTo": "u-staff"})
	require.Equal(t, http.StatusOK, reassigned.code)
	emptied := api.do(t, http.MethodPatch, path, staff, gin.H{"assignedTo": ""})
	require.Equal(t, http.StatusOK, emptied.code)
	assert.Nil(t, decode[complaintResponse](t, emptied.data).AssignedTo)

	tooLong := api.do(t, http.MethodPatch, path, staff, gin.H{"assignedTo": strings.Repeat("x", 65)})
	assert.Equal(t, http.StatusBadRequest, tooLong.code)

	replied := api.do(t, http.MethodPatch, path, staff, gin.H{"responseText": "Crew dispatched"})
	require.Equal(t, http.StatusOK, replied.code)
	rc := decode[complaintResponse](t, replied.data)
	require.Len(t, rc.Responses, 1)
	assert.Equal(t, "Crew dispatched", rc.Responses[0].Text)
	assert.Equal(t, "sam", rc.Responses[0].Responder)
}

func TestEvidenceUpload(t *testing.T) {
	api := newTestAPI(t)

	res := api.do(t, http.MethodPost, "/api/v1/evidence/uploads", "", gin.H{"contentType": "image/png"})
	require.Equal(t, http.StatusCreated, res.code)
	up := decode[models.EvidenceUpload](t, res.data)
	assert.Contains(t, up.URI, "s3://evidence/complaints/")

	res = api.do(t, http.MethodPost, "/api/v1/evidence/uploads", "", gin.H{"contentType": "text/html"})
	assert.Equal(t, http.StatusBadRequest, res.code)
}

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	staff := api.token(t, "u-staff", models.RoleStaff)
	admin := api.token(t, "u-admin", models.RoleAdmin)

	body := gin.H{"username": "otieno", "email": "otieno@county.go.ke", "password": "password1", "role": "staff", "departmentId": "water"}
	assert.Equal(t, http.StatusForbidden, api.do(t, http.MethodPost, "/api/v1/admin/staff", staff, body).code)
	assert.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/admin/staff", admin, body).code)

	body["username"], body["email"], body["departmentId"] = "kamau", "kamau@county.go.ke", "nowhere"
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/api/v1/admin/staff", admin, body).code)

	chart := api.do(t, http.MethodGet, "/api/v1/admin/analytics/complaint_trends", staff, nil)
	require.Equal(t, http.StatusOK, chart.code)
	assert.JSONEq(t, `{"labels":["Pending"],"values":[1]}`, string(chart.data))

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/admin/analytics/bogus", staff, nil).code)

	pred := api.do(t, http.MethodPost, "/api/v1/admin/analytics/predict", staff, gin.H{"complaint_description_length": 80, "num_evidence_files": 1})
	require.Equal(t, http.StatusOK, pred.code)
	assert.Equal(t, 6.5, decode[analytics.Prediction](t, pred.data).Days)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/healthz", "", nil).code)

	api.healthErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, api.do(t, http.MethodGet, "/api/healthz", "", nil).code)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_in_flight_requests")
}
