package provision

import (
	"crypto/subtle"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"roompanel-firmware/internal/model"
	"roompanel-firmware/internal/mw"
	"roompanel-firmware/internal/store"
)

// Controller is the slice of the device runtime the setup UI drives. Both
// calls only enqueue work; they return before the device acts on it.
type Controller interface {
	ApplyConfig(cfg model.DeviceConfig)
	FactoryReset()
}

// Timezones is the list offered by the setup form. The server still works
// with any IANA name written directly into the store.
var Timezones = []string{
	"UTC",
	"Europe/London",
	"Europe/Berlin",
	"Europe/Helsinki",
	"America/New_York",
	"America/Chicago",
	"America/Los_Angeles",
	"Asia/Shanghai",
	"Asia/Tokyo",
	"Asia/Singapore",
	"Australia/Sydney",
}

// Handler holds shared dependencies for the setup UI handlers.
type Handler struct {
	store    store.Store
	ctrl     Controller
	sessions *Sessions
	logger   *zap.Logger
	version  string
}

// NewHandler creates a setup UI handler whose sessions expire after
// sessionTTL of inactivity.
func NewHandler(s store.Store, ctrl Controller, logger *zap.Logger, version string, sessionTTL time.Duration) *Handler {
	return &Handler{
		store:    s,
		ctrl:     ctrl,
		sessions: NewSessions(sessionTTL),
		logger:   logger,
		version:  version,
	}
}

// NewRouter creates and configures the setup UI router. loginRate bounds PIN
// attempts per IP.
func NewRouter(h *Handler, loginRate rate.Limit) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetHTMLTemplate(pages)

	// Burst of 5, then one attempt per loginRate interval.
	r.POST("/login", mw.RateLimiter(loginRate, 5), h.PostLogin)

	r.GET("/", h.GetHome)
	r.POST("/logout", h.PostLogout)

	auth := r.Group("/", h.requireSession)
	{
		auth.POST("/save", h.PostSave)
		auth.POST("/reset", h.PostReset)
	}

	r.GET("/healthz", h.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// sessionToken reads the token from the cookie, falling back to the
// "session" query parameter for clients that drop cookies.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}
	return c.Query("session")
}

func (h *Handler) requireSession(c *gin.Context) {
	if !h.sessions.Valid(sessionToken(c)) {
		c.Redirect(http.StatusSeeOther, "/")
		c.Abort()
		return
	}
	c.Next()
}

// GetHome renders the login page, or the setup form for a live session.
func (h *Handler) GetHome(c *gin.Context) {
	if !h.sessions.Valid(sessionToken(c)) {
		c.HTML(http.StatusOK, "login", gin.H{
			"Version": h.version,
			"Error":   c.Query("err"),
		})
		return
	}

	cfg, err := h.store.LoadDeviceConfig(c.Request.Context())
	if err != nil {
		h.logger.Error("loading device config for setup page failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "settings store unavailable")
		return
	}

	c.HTML(http.StatusOK, "setup", gin.H{
		"Version":   h.version,
		"ServerURL": cfg.ServerURL,
		"HasToken":  cfg.DeviceToken != "",
		"Timezone":  cfg.Timezone,
		"Timezones": Timezones,
		"Message":   c.Query("msg"),
	})
}

type loginRequest struct {
	PIN string `form:"pin" binding:"required"`
}

// PostLogin checks the setup PIN and opens a session.
func (h *Handler) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.Redirect(http.StatusSeeOther, "/?err=PIN+required")
		return
	}

	cfg, err := h.store.LoadDeviceConfig(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "settings store unavailable")
		return
	}
	pin := cfg.SetupPIN
	if pin == "" {
		pin = model.DefaultSetupPIN
	}

	if subtle.ConstantTimeCompare([]byte(req.PIN), []byte(pin)) != 1 {
		h.logger.Warn("setup login rejected", zap.String("ip", c.ClientIP()))
		c.Redirect(http.StatusSeeOther, "/?err=Wrong+PIN")
		return
	}

	token := h.sessions.Issue()
	c.SetCookie(SessionCookie, token, int(h.sessions.ttl.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/")
}

// PostLogout ends the current session.
func (h *Handler) PostLogout(c *gin.Context) {
	if token := sessionToken(c); token != "" {
		h.sessions.Revoke(token)
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/")
}

type saveRequest struct {
	ServerURL   string `form:"server_url" binding:"required"`
	DeviceToken string `form:"device_token"`
	Timezone    string `form:"timezone"`
	SetupPIN    string `form:"setup_pin"`
}

// PostSave persists a new configuration and hands it to the device runtime.
// An empty token field keeps the stored one, so re-saving other settings
// does not require retyping it.
func (h *Handler) PostSave(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusBadRequest, "setup", gin.H{
			"Version":   h.version,
			"Timezones": Timezones,
			"Message":   "Server URL is required",
		})
		return
	}

	ctx := c.Request.Context()
	current, err := h.store.LoadDeviceConfig(ctx)
	if err != nil {
		c.String(http.StatusInternalServerError, "settings store unavailable")
		return
	}

	cfg := model.DeviceConfig{
		ServerURL:   req.ServerURL,
		DeviceToken: req.DeviceToken,
		Timezone:    req.Timezone,
		SetupPIN:    req.SetupPIN,
	}
	if cfg.DeviceToken == "" {
		cfg.DeviceToken = current.DeviceToken
	}
	if cfg.SetupPIN == "" {
		cfg.SetupPIN = current.SetupPIN
	}
	cfg.Normalize()

	if err := h.store.SaveDeviceConfig(ctx, cfg); err != nil {
		h.logger.Error("saving device config failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "settings store unavailable")
		return
	}
	h.ctrl.ApplyConfig(cfg)
	h.logger.Info("device config saved via setup UI",
		zap.String("server_url", cfg.ServerURL),
		zap.String("timezone", cfg.Timezone))

	c.Redirect(http.StatusSeeOther, "/?msg=Saved.+The+panel+is+reconnecting.")
}

// PostReset triggers a factory reset. The page renders before the device
// restarts underneath the connection.
func (h *Handler) PostReset(c *gin.Context) {
	h.logger.Warn("factory reset requested via setup UI", zap.String("ip", c.ClientIP()))
	h.ctrl.FactoryReset()
	c.HTML(http.StatusOK, "reset", gin.H{"Version": h.version})
}

// GetHealth reports liveness and the running firmware version.
func (h *Handler) GetHealth(c *gin.Context) {
	cfg, err := h.store.LoadDeviceConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    h.version,
		"configured": cfg.Configured(),
	})
}

var pages = template.Must(template.New("login").Parse(`
{{define "head"}}<!doctype html><html><head><title>Room Panel Setup</title>
<meta name="viewport" content="width=device-width,initial-scale=1">
<style>
body{font-family:sans-serif;max-width:28rem;margin:2rem auto;padding:0 1rem;background:#16213e;color:#eee}
input,select,button{width:100%;padding:.5rem;margin:.25rem 0 .75rem;box-sizing:border-box}
button{background:#3498db;color:#fff;border:0;cursor:pointer}
button.danger{background:#e74c3c}
.msg{padding:.5rem;background:#27ae60;color:#fff}
.err{padding:.5rem;background:#e74c3c;color:#fff}
small{color:#95a5a6}
</style></head><body><h2>Room Panel Setup</h2>{{end}}

{{define "foot"}}<small>firmware {{.Version}}</small></body></html>{{end}}

{{define "login"}}{{template "head" .}}
{{if .Error}}<p class="err">{{.Error}}</p>{{end}}
<form method="post" action="/login">
<label>Setup PIN</label><input type="password" name="pin" autofocus>
<button type="submit">Unlock</button>
</form>
{{template "foot" .}}{{end}}

{{define "setup"}}{{template "head" .}}
{{if .Message}}<p class="msg">{{.Message}}</p>{{end}}
<form method="post" action="/save">
<label>Server URL</label><input name="server_url" value="{{.ServerURL}}" placeholder="https://rooms.example.com">
<label>Device token</label><input name="device_token" placeholder="{{if .HasToken}}(unchanged){{else}}paste token{{end}}">
<label>Timezone</label><select name="timezone">
{{range .Timezones}}<option {{if eq . $.Timezone}}selected{{end}}>{{.}}</option>{{end}}
</select>
<label>New setup PIN</label><input type="password" name="setup_pin" placeholder="(unchanged)">
<button type="submit">Save</button>
</form>
<form method="post" action="/reset" onsubmit="return confirm('Erase all settings and restart?')">
<button class="danger" type="submit">Factory reset</button>
</form>
<form method="post" action="/logout"><button type="submit">Log out</button></form>
{{template "foot" .}}{{end}}

{{define "reset"}}{{template "head" .}}
<p class="msg">Resetting. The panel will restart.</p>
{{template "foot" .}}{{end}}
`))
