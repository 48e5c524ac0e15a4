package api

import (
	"fmt"
	"net/http"
	"time"

	"stefwrites/landing-api/internal/model"
	"stefwrites/landing-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	seedRoles    = []string{"Founder / Creator", "Operator", "Engineer", "Consultant", "Designer"}
	seedStatuses = []string{
		model.StatusPending, model.StatusVerified, model.StatusInvited,
		model.StatusActive, model.StatusArchived,
	}
)

// mockSeed replaces the dev store content with 120 deterministic fixture
// rows so the admin screen has something to show.
func (a *API) mockSeed(dev store.DevStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		if err := dev.Clear(c.Request.Context()); err != nil {
			a.mockError(c, requestID, err)
			return
		}

		rows := make([]model.Submission, 0, 120)
		now := time.Now().UTC()

		for i := 0; i < 120; i++ {
			usecase := "AI content system for B2B SEO"
			keywords := model.StringSlice{"ai", "content", "seo", "b2b"}
			if i%2 == 1 {
				usecase = "Client onboarding blueprint for agencies"
				keywords = model.StringSlice{"onboarding", "agency", "client", "workflow"}
			}

			rows = append(rows, model.Submission{
				Email:       fmt.Sprintf("user%d@example%d.com", i, i%5+1),
				Role:        seedRoles[i%len(seedRoles)],
				Usecase:     usecase,
				Keywords:    keywords,
				CreatedAt:   now.Add(-time.Duration(i) * 24 * time.Hour),
				Status:      seedStatuses[i%len(seedStatuses)],
				Source:      "mock",
				UTMSource:   "newsletter",
				UTMMedium:   "email",
				UTMCampaign: "launch",
				Consent:     true,
			})
		}

		if err := dev.Seed(c.Request.Context(), rows); err != nil {
			a.mockError(c, requestID, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(rows)})
	}
}

func (a *API) mockClear(dev store.DevStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		if err := dev.Clear(c.Request.Context()); err != nil {
			a.mockError(c, requestID, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (a *API) mockError(c *gin.Context, requestID string, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error("Mock store operation failed", zap.Error(err), zap.String("requestID", requestID))
}
