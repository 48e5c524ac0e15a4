// Package api contains all endpoints available
package api

import (
	"time"

	"stefwrites/landing-api/config"
	"stefwrites/landing-api/internal/store"
	"stefwrites/landing-api/pkg/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

const (
	rateWindow = time.Minute
	rateMax    = 5
)

var cacheStore = persist.NewMemoryStore(time.Minute)

type API struct {
	Store  store.Store
	Router *gin.Engine
}

func NewRouter() (*API, error) {
	a := &API{}

	makeLogger()

	if viper.GetString("supabase.url") != "" && viper.GetString("supabase.service_role") != "" {
		a.Store = store.NewSupabase(
			viper.GetString("supabase.url"),
			viper.GetString("supabase.service_role"),
		)
	} else {
		dev, err := store.NewDev()
		if err != nil {
			return nil, err
		}
		a.Store = dev
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{viper.GetString("host.cors_origin")},
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewSecureHeadersMiddleware(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	admin := middleware.NewAdminAuthMiddleware()
	rateLimit := middleware.NewRateLimiterMiddleware(middleware.NewWindow(rateWindow, rateMax))
	bodyLimit := middleware.BodySizeLimiter(1 << 20)

	main := router.Group("/api")
	{
		// GET /api/health 			-> Used to check if the server is alive
		main.GET("/health", cacheFor(5), a.Health)
	}

	waitlist := main.Group("/waitlist", bodyLimit)
	{
		// POST /api/waitlist			-> Creates a new submission
		waitlist.POST("", rateLimit, a.WaitlistCreate)

		// GET /api/waitlist			-> Lists submissions for the admin screen
		waitlist.GET("", admin, a.WaitlistList)

		// PATCH /api/waitlist			-> Runs an admin action on a submission
		waitlist.PATCH("", admin, a.WaitlistPatch)

		// GET /api/waitlist/verify		-> Consumes an email verification token
		waitlist.GET("/verify", a.WaitlistVerify)

		// POST /api/waitlist/invite		-> Mints an invite token and mails the link
		waitlist.POST("/invite", admin, a.WaitlistInvite)

		// POST /api/waitlist/activate		-> Consumes an invite token
		waitlist.POST("/activate", a.WaitlistActivate)

		// GET /api/waitlist/export.csv		-> Dumps submissions as CSV
		waitlist.GET("/export.csv", admin, a.WaitlistExport)
		waitlist.GET("/export", admin, a.WaitlistExport)
	}

	// Fixture controls exist only while running on the dev store
	if dev, ok := a.Store.(store.DevStore); ok && !config.Production() {
		mock := main.Group("/mock")
		{
			// POST /api/mock/seed		-> Replaces the dev store content with fixtures
			mock.POST("/seed", a.mockSeed(dev))

			// POST /api/mock/clear		-> Empties the dev store
			mock.POST("/clear", a.mockClear(dev))
		}
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(cacheStore, time.Second*time.Duration(sec))
}
