package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"stefwrites/landing-api/internal/model"
	"stefwrites/landing-api/internal/service"
	"stefwrites/landing-api/internal/store"
	"stefwrites/landing-api/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type patchBody struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Value  string `json:"value"`
}

// WaitlistPatch runs an admin action against a single submission.
// Supported actions: set_status (arbitrary status overwrite) and
// resend_verification (mint a fresh verify token and drop the row back
// to pending).
func (a *API) WaitlistPatch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data patchBody
	if err := c.ShouldBind(&data); err != nil || data.ID == "" || data.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Missing id or action",
			"requestID": requestID,
		})
		return
	}

	switch data.Action {
	case "set_status":
		if !model.ValidStatus(data.Value) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid status value",
				"requestID": requestID,
			})
			return
		}

		row, err := a.Store.PatchByID(c.Request.Context(), data.ID, map[string]any{
			"status": data.Value,
		})
		if err != nil {
			a.patchError(c, requestID, err)
			return
		}

		zap.L().Info("Waitlist status changed",
			zap.String("id", row.ID),
			zap.String("email", row.Email),
			zap.String("status", row.Status))

		c.JSON(http.StatusOK, row.Public())

	case "resend_verification":
		token := security.NewToken()
		expiry := security.VerifyExpiry(time.Now().UTC())

		row, err := a.Store.PatchByID(c.Request.Context(), data.ID, map[string]any{
			"verify_token":      token,
			"verify_expires_at": expiry,
			"status":            model.StatusPending,
		})
		if err != nil {
			a.patchError(c, requestID, err)
			return
		}

		zap.L().Info("Waitlist verification resent",
			zap.String("id", row.ID),
			zap.String("email", row.Email))

		go service.SendVerificationMail(context.Background(), row.Email, token)

		c.JSON(http.StatusOK, gin.H{
			"ok":    true,
			"id":    row.ID,
			"email": row.Email,
		})

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Unknown action",
			"requestID": requestID,
		})
	}
}

func (a *API) patchError(c *gin.Context, requestID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Submission not found",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error("Admin patch failed", zap.Error(err), zap.String("requestID", requestID))
}
