package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"stefwrites/landing-api/internal/model"
	"stefwrites/landing-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "test-admin-key"

// newTestAPI builds a router on the dev store with a known config. Every
// test gets a fresh rate-limit window; the shared in-memory database is
// wiped between tests.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	gin.SetMode(gin.TestMode)

	viper.Set("app.env", "development")
	viper.Set("app.log_level", "error")
	viper.Set("host.cors_origin", "*")
	viper.Set("supabase.url", "")
	viper.Set("supabase.service_role", "")
	viper.Set("admin.key", testAdminKey)
	viper.Set("admin.allow_unconfigured", false)
	viper.Set("flags.require_verification", false)
	viper.Set("flags.allow_invites", true)
	viper.Set("flags.auto_activate", false)
	viper.Set("flags.require_consent", false)
	viper.Set("flags.require_captcha", false)
	viper.Set("email.enabled", false)
	viper.Set("tokens.verify_ttl_hours", 72)
	viper.Set("tokens.invite_ttl_days", 14)

	a, err := NewRouter()
	require.NoError(t, err)

	dev, ok := a.Store.(store.DevStore)
	require.True(t, ok)
	require.NoError(t, dev.Clear(context.Background()))

	return a
}

func doJSON(a *API, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	return out
}

func adminHeaders() map[string]string {
	return map[string]string{"X-Admin-Key": testAdminKey}
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodGet, "/api/health", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
}

func TestSignupPendingByDefault(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{
		"email":   "a@b.com",
		"role":    "Engineer",
		"usecase": "AI content system for B2B SEO",
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, model.StatusPending, body["status"])
	assert.NotEmpty(t, body["id"])
	assert.Contains(t, body["keywords"], "seo")
}

func TestSignupDuplicateEmail(t *testing.T) {
	a := newTestAPI(t)

	first := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "dup@b.com"}, nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "dup@b.com"}, nil)
	require.Equal(t, http.StatusConflict, second.Code)
}

func TestSignupAutoActivate(t *testing.T) {
	a := newTestAPI(t)

	viper.Set("flags.auto_activate", true)
	t.Cleanup(func() { viper.Set("flags.auto_activate", false) })

	w := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "auto@b.com"}, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, model.StatusActive, decode(t, w)["status"])
}

func TestSignupWithVerificationMintsToken(t *testing.T) {
	a := newTestAPI(t)

	viper.Set("flags.require_verification", true)
	t.Cleanup(func() { viper.Set("flags.require_verification", false) })

	w := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "pend@b.com"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, model.StatusPending, decode(t, w)["status"])

	// The token never leaves the server but must be stored with expiry
	row, err := a.Store.PatchByEmail(context.Background(), "pend@b.com", map[string]any{"source": "probe"})
	require.NoError(t, err)
	assert.NotEmpty(t, row.VerifyToken)
	assert.NotNil(t, row.VerifyExpiresAt)
}

func TestSignupInvalidEmail(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "not-an-email"}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupHoneypot(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{
		"email": "bot@b.com",
		"hp":    "gotcha",
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "fake", decode(t, w)["id"])

	// Nothing was stored: the same email can still sign up for real
	real := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "bot@b.com"}, nil)
	require.Equal(t, http.StatusCreated, real.Code)
	assert.NotEqual(t, "fake", decode(t, real)["id"])
}

func TestSignupConsentRequired(t *testing.T) {
	a := newTestAPI(t)

	viper.Set("flags.require_consent", true)
	t.Cleanup(func() { viper.Set("flags.require_consent", false) })

	w := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "nc@b.com"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "nc@b.com", "consent": true}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSignupRateLimited(t *testing.T) {
	a := newTestAPI(t)

	headers := map[string]string{"X-Forwarded-For": "203.0.113.9"}

	for i := 0; i < 5; i++ {
		w := doJSON(a, http.MethodPost, "/api/waitlist",
			gin.H{"email": fmt.Sprintf("rl%d@b.com", i)}, headers)
		require.NotEqual(t, http.StatusTooManyRequests, w.Code, "request %d", i+1)
	}

	w := doJSON(a, http.MethodPost, "/api/waitlist", gin.H{"email": "rl6@b.com"}, headers)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// A different caller is unaffected
	other := doJSON(a, http.MethodPost, "/api/waitlist",
		gin.H{"email": "other@b.com"}, map[string]string{"X-Forwarded-For": "198.51.100.7"})
	require.Equal(t, http.StatusCreated, other.Code)
}

func TestVerifyFlow(t *testing.T) {
	a := newTestAPI(t)

	expiry := time.Now().Add(time.Hour)
	_, err := a.Store.Insert(context.Background(), &model.Submission{
		Email:           "v@b.com",
		Status:          model.StatusPending,
		VerifyToken:     "verify-tok",
		VerifyExpiresAt: &expiry,
	})
	require.NoError(t, err)

	w := doJSON(a, http.MethodGet, "/api/waitlist/verify?token=verify-tok", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.StatusVerified, decode(t, w)["status"])

	// Token was consumed, second redemption fails
	again := doJSON(a, http.MethodGet, "/api/waitlist/verify?token=verify-tok", nil, nil)
	require.Equal(t, http.StatusBadRequest, again.Code)
}

func TestVerifyMissingAndUnknownToken(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodGet, "/api/waitlist/verify", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(a, http.MethodGet, "/api/waitlist/verify?token=nope", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyExpiredToken(t *testing.T) {
	a := newTestAPI(t)

	expiry := time.Now().Add(-time.Hour)
	_, err := a.Store.Insert(context.Background(), &model.Submission{
		Email:           "exp@b.com",
		Status:          model.StatusPending,
		VerifyToken:     "stale-tok",
		VerifyExpiresAt: &expiry,
	})
	require.NoError(t, err)

	w := doJSON(a, http.MethodGet, "/api/waitlist/verify?token=stale-tok", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestInviteActivateFlow(t *testing.T) {
	a := newTestAPI(t)

	_, err := a.Store.Insert(context.Background(), &model.Submission{
		Email:  "inv@b.com",
		Status: model.StatusVerified,
	})
	require.NoError(t, err)

	w := doJSON(a, http.MethodPost, "/api/waitlist/invite", gin.H{"email": "inv@b.com"}, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	link, ok := decode(t, w)["invite_link"].(string)
	require.True(t, ok)

	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)

	act := doJSON(a, http.MethodPost, "/api/waitlist/activate", gin.H{"token": token}, nil)
	require.Equal(t, http.StatusOK, act.Code, act.Body.String())
	assert.Equal(t, model.StatusActive, decode(t, act)["status"])

	// Invite tokens are single-use too
	again := doJSON(a, http.MethodPost, "/api/waitlist/activate", gin.H{"token": token}, nil)
	require.Equal(t, http.StatusBadRequest, again.Code)
}

func TestInviteRequiresAdminAndFlag(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodPost, "/api/waitlist/invite", gin.H{"email": "x@b.com"}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	viper.Set("flags.allow_invites", false)
	t.Cleanup(func() { viper.Set("flags.allow_invites", true) })

	w = doJSON(a, http.MethodPost, "/api/waitlist/invite", gin.H{"email": "x@b.com"}, adminHeaders())
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestInviteUnknownEmail(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodPost, "/api/waitlist/invite", gin.H{"email": "ghost@b.com"}, adminHeaders())
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminList(t *testing.T) {
	a := newTestAPI(t)

	for i := 0; i < 3; i++ {
		_, err := a.Store.Insert(context.Background(), &model.Submission{
			Email:  fmt.Sprintf("list%d@b.com", i),
			Status: model.StatusPending,
		})
		require.NoError(t, err)
	}

	unauth := doJSON(a, http.MethodGet, "/api/waitlist", nil, nil)
	require.Equal(t, http.StatusUnauthorized, unauth.Code)

	w := doJSON(a, http.MethodGet, "/api/waitlist?page=1&pageSize=2", nil, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, 2, body["pageSize"])
	assert.Len(t, body["items"], 2)
}

func TestAdminPatchSetStatus(t *testing.T) {
	a := newTestAPI(t)

	row, err := a.Store.Insert(context.Background(), &model.Submission{
		Email:  "st@b.com",
		Status: model.StatusPending,
	})
	require.NoError(t, err)

	bad := doJSON(a, http.MethodPatch, "/api/waitlist", gin.H{
		"id": row.ID, "action": "set_status", "value": "bogus",
	}, adminHeaders())
	require.Equal(t, http.StatusBadRequest, bad.Code)

	w := doJSON(a, http.MethodPatch, "/api/waitlist", gin.H{
		"id": row.ID, "action": "set_status", "value": model.StatusArchived,
	}, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StatusArchived, decode(t, w)["status"])
}

func TestAdminPatchResendVerification(t *testing.T) {
	a := newTestAPI(t)

	row, err := a.Store.Insert(context.Background(), &model.Submission{
		Email:  "rv@b.com",
		Status: model.StatusVerified,
	})
	require.NoError(t, err)

	w := doJSON(a, http.MethodPatch, "/api/waitlist", gin.H{
		"id": row.ID, "action": "resend_verification",
	}, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := a.Store.PatchByID(context.Background(), row.ID, map[string]any{"source": "probe"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, updated.Status)
	assert.NotEmpty(t, updated.VerifyToken)
}

func TestAdminPatchValidation(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodPatch, "/api/waitlist", gin.H{"action": "set_status"}, adminHeaders())
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(a, http.MethodPatch, "/api/waitlist", gin.H{"id": "x", "action": "explode"}, adminHeaders())
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportCSV(t *testing.T) {
	a := newTestAPI(t)

	for i := 0; i < 3; i++ {
		_, err := a.Store.Insert(context.Background(), &model.Submission{
			Email:   fmt.Sprintf("csv%d@b.com", i),
			Usecase: "line one\nline two",
			Status:  model.StatusPending,
		})
		require.NoError(t, err)
	}

	unauth := doJSON(a, http.MethodGet, "/api/waitlist/export.csv", nil, nil)
	require.Equal(t, http.StatusUnauthorized, unauth.Code)

	w := doJSON(a, http.MethodGet, "/api/waitlist/export.csv", nil, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "waitlist.csv")

	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,email,role,usecase,keywords,created_at", lines[0])
}

func TestMockSeedAndClear(t *testing.T) {
	a := newTestAPI(t)

	w := doJSON(a, http.MethodPost, "/api/mock/seed", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 120, decode(t, w)["count"])

	list := doJSON(a, http.MethodGet, "/api/waitlist?pageSize=1", nil, adminHeaders())
	require.Equal(t, http.StatusOK, list.Code)
	assert.EqualValues(t, 120, decode(t, list)["total"])

	clear := doJSON(a, http.MethodPost, "/api/mock/clear", nil, nil)
	require.Equal(t, http.StatusOK, clear.Code)

	list = doJSON(a, http.MethodGet, "/api/waitlist", nil, adminHeaders())
	assert.EqualValues(t, 0, decode(t, list)["total"])
}
