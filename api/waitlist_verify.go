package api

import (
	"errors"
	"net/http"
	"time"

	"stefwrites/landing-api/internal/model"
	"stefwrites/landing-api/internal/store"
	"stefwrites/landing-api/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WaitlistVerify consumes an email verification token: pending →
// verified, token cleared.
func (a *API) WaitlistVerify(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Missing token",
			"requestID": requestID,
		})
		return
	}

	now := time.Now().UTC()

	row, err := a.consumeToken(c, requestID, store.TokenVerify, token, map[string]any{
		"verify_token": nil,
		"status":       model.StatusVerified,
		"verified_at":  now,
	}, func(s *model.Submission) *time.Time { return s.VerifyExpiresAt })
	if row == nil || err != nil {
		return
	}

	zap.L().Info("Waitlist submission verified",
		zap.String("id", row.ID),
		zap.String("email", row.Email))

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"id":     row.ID,
		"email":  row.Email,
		"status": row.Status,
	})
}

// consumeToken is the shared redemption sequence: look the row up by
// token, gate on the stored expiry, then patch with the token column
// itself as the filter. The lookup and the patch are two separate calls
// against the upstream store, so concurrent redemptions can both pass
// the lookup; the filtered patch makes the loser come back empty.
func (a *API) consumeToken(
	c *gin.Context,
	requestID string,
	field store.TokenField,
	token string,
	patch map[string]any,
	expiry func(*model.Submission) *time.Time,
) (*model.Submission, error) {
	candidate, err := a.Store.FindByToken(c.Request.Context(), field, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid or expired token",
				"requestID": requestID,
			})
			return nil, err
		}

		a.tokenError(c, requestID, err)
		return nil, err
	}

	if security.Expired(expiry(candidate), time.Now().UTC()) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Token expired",
			"requestID": requestID,
		})
		return nil, nil
	}

	row, err := a.Store.ConsumeToken(c.Request.Context(), field, token, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid or expired token",
				"requestID": requestID,
			})
			return nil, err
		}

		a.tokenError(c, requestID, err)
		return nil, err
	}

	return row, nil
}

func (a *API) tokenError(c *gin.Context, requestID string, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error("Token redemption failed", zap.Error(err), zap.String("requestID", requestID))
}
