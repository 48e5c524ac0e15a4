package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stefwrites/landing-api/internal/model"
	"stefwrites/landing-api/internal/service"
	"stefwrites/landing-api/internal/store"
	"stefwrites/landing-api/pkg/security"
	"stefwrites/landing-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type inviteBody struct {
	Email string `json:"email"`
}

// WaitlistInvite mints an invite token for an existing submission, moves
// it to invited and mails the activation link.
func (a *API) WaitlistInvite(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	if !viper.GetBool("flags.allow_invites") {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     "Invites are disabled",
			"requestID": requestID,
		})
		return
	}

	var data inviteBody
	if err := c.ShouldBind(&data); err != nil || data.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Missing email",
			"requestID": requestID,
		})
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	token := security.NewToken()
	expiry := security.InviteExpiry(time.Now().UTC())

	row, err := a.Store.PatchByEmail(c.Request.Context(), data.Email, map[string]any{
		"invite_token":      token,
		"invite_expires_at": expiry,
		"status":            model.StatusInvited,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Email not found",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to mint invite", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	link := service.ActivateLink(token)

	zap.L().Info("Waitlist submission invited",
		zap.String("id", row.ID),
		zap.String("email", row.Email))

	text := fmt.Sprintf("You're invited! Activate your access: %s", link)
	go func() {
		if err := service.SendMail(context.Background(), row.Email, "Your invite to try the app", text); err != nil {
			zap.L().Error("Failed to send invite email", zap.Error(err), zap.String("email", row.Email))
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"id":          row.ID,
		"email":       row.Email,
		"invite_link": link,
	})
}
