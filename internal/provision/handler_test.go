package provision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"roompanel-firmware/internal/model"
	"roompanel-firmware/internal/store"
)

type recordingController struct {
	applied []model.DeviceConfig
	resets  int
}

func (c *recordingController) ApplyConfig(cfg model.DeviceConfig) { c.applied = append(c.applied, cfg) }
func (c *recordingController) FactoryReset()                      { c.resets++ }

func setupRouter(t *testing.T) (*gin.Engine, store.Store, *recordingController) {
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&model.Setting{}))
	st := store.NewGormStore(gdb)

	ctrl := &recordingController{}
	h := NewHandler(st, ctrl, zap.NewNop(), "1.2.0", 15*time.Minute)
	return NewRouter(h, rate.Limit(1)), st, ctrl
}

func postForm(router *gin.Engine, path string, form url.Values, cookie string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	router.ServeHTTP(w, req)
	return w
}

// login performs a PIN login and returns the session cookie.
func login(t *testing.T, router *gin.Engine, pin string) string {
	w := postForm(router, "/login", url.Values{"pin": {pin}}, "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	cookie := w.Header().Get("Set-Cookie")
	require.Contains(t, cookie, SessionCookie+"=")
	return cookie
}

func TestHomeShowsLoginWithoutSession(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Setup PIN")
	assert.NotContains(t, w.Body.String(), "Server URL")
}

func TestLoginWithDefaultPIN(t *testing.T) {
	router, _, _ := setupRouter(t)
	cookie := login(t, router, model.DefaultSetupPIN)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", cookie)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Server URL")
}

func TestLoginWrongPINRejected(t *testing.T) {
	router, _, _ := setupRouter(t)

	w := postForm(router, "/login", url.Values{"pin": {"9999"}}, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.NotContains(t, w.Header().Get("Set-Cookie"), SessionCookie+"=")
	assert.Contains(t, w.Header().Get("Location"), "err=")
}

func TestLoginUsesStoredPIN(t *testing.T) {
	router, st, _ := setupRouter(t)
	require.NoError(t, st.SaveDeviceConfig(context.Background(), model.DeviceConfig{
		ServerURL:   "https://rooms.example.com",
		DeviceToken: "tok",
		SetupPIN:    "4711",
	}))

	w := postForm(router, "/login", url.Values{"pin": {model.DefaultSetupPIN}}, "")
	assert.Contains(t, w.Header().Get("Location"), "err=", "default PIN stops working once changed")

	login(t, router, "4711")
}

func TestSaveRequiresSession(t *testing.T) {
	router, _, ctrl := setupRouter(t)

	w := postForm(router, "/save", url.Values{"server_url": {"https://x.example.com"}}, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, ctrl.applied)
}

func TestSavePersistsAndAppliesConfig(t *testing.T) {
	router, st, ctrl := setupRouter(t)
	cookie := login(t, router, model.DefaultSetupPIN)

	w := postForm(router, "/save", url.Values{
		"server_url":   {"https://rooms.example.com/"},
		"device_token": {"tok-123"},
		"timezone":     {"Europe/Berlin"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)

	cfg, err := st.LoadDeviceConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://rooms.example.com", cfg.ServerURL, "trailing slash stripped")
	assert.Equal(t, "tok-123", cfg.DeviceToken)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)

	require.Len(t, ctrl.applied, 1)
	assert.Equal(t, cfg, ctrl.applied[0])
}

func TestSaveKeepsTokenWhenFieldEmpty(t *testing.T) {
	router, st, ctrl := setupRouter(t)
	require.NoError(t, st.SaveDeviceConfig(context.Background(), model.DeviceConfig{
		ServerURL:   "https://rooms.example.com",
		DeviceToken: "tok-old",
	}))
	cookie := login(t, router, model.DefaultSetupPIN)

	w := postForm(router, "/save", url.Values{
		"server_url": {"https://rooms.example.com"},
		"timezone":   {"UTC"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, w.Code)

	cfg, err := st.LoadDeviceConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-old", cfg.DeviceToken)
	require.Len(t, ctrl.applied, 1)
}

func TestFactoryResetNeedsSession(t *testing.T) {
	router, _, ctrl := setupRouter(t)

	postForm(router, "/reset", nil, "")
	assert.Equal(t, 0, ctrl.resets)

	cookie := login(t, router, model.DefaultSetupPIN)
	w := postForm(router, "/reset", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ctrl.resets)
}

func TestLogoutRevokesSession(t *testing.T) {
	router, _, _ := setupRouter(t)
	cookie := login(t, router, model.DefaultSetupPIN)

	postForm(router, "/logout", nil, cookie)

	w := postForm(router, "/save", url.Values{"server_url": {"https://x.example.com"}}, cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestSessionTokenViaQueryParam(t *testing.T) {
	router, _, ctrl := setupRouter(t)
	cookie := login(t, router, model.DefaultSetupPIN)

	// Extract the bare token from the Set-Cookie header.
	token := strings.TrimPrefix(strings.SplitN(cookie, ";", 2)[0], SessionCookie+"=")

	w := postForm(router, "/save?session="+token,
		url.Values{"server_url": {"https://rooms.example.com"}, "device_token": {"tok"}}, "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	require.Len(t, ctrl.applied, 1)
}

func TestHealthEndpoint(t *testing.T) {
	router, st, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.2.0","configured":false}`, w.Body.String())

	require.NoError(t, st.SaveDeviceConfig(context.Background(), model.DeviceConfig{
		ServerURL:   "https://rooms.example.com",
		DeviceToken: "tok",
	}))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.JSONEq(t, `{"status":"ok","version":"1.2.0","configured":true}`, w.Body.String())
}

func TestLoginRateLimited(t *testing.T) {
	router, _, _ := setupRouter(t)

	// Burst of 5, then refusals.
	var last int
	for i := 0; i < 8; i++ {
		w := postForm(router, "/login", url.Values{"pin": {"9999"}}, "")
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
