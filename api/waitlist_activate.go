package api

import (
	"net/http"
	"time"

	"stefwrites/landing-api/internal/model"
	"stefwrites/landing-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type activateBody struct {
	Token string `json:"token"`
}

// WaitlistActivate consumes an invite token: invited → active, token
// cleared.
func (a *API) WaitlistActivate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data activateBody
	if err := c.ShouldBind(&data); err != nil || data.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Missing token",
			"requestID": requestID,
		})
		return
	}

	row, err := a.consumeToken(c, requestID, store.TokenInvite, data.Token, map[string]any{
		"invite_token": nil,
		"status":       model.StatusActive,
	}, func(s *model.Submission) *time.Time { return s.InviteExpiresAt })
	if row == nil || err != nil {
		return
	}

	zap.L().Info("Waitlist submission activated",
		zap.String("id", row.ID),
		zap.String("email", row.Email))

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"id":     row.ID,
		"email":  row.Email,
		"status": row.Status,
	})
}
