package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
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

// keywordList accepts either a JSON array of strings or a single
// comma-separated string, which is what the form sends depending on the
// front-end version.
type keywordList []string

func (k *keywordList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*k = arr
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	*k = strings.Split(s, ",")
	return nil
}

type createBody struct {
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	Usecase      string      `json:"usecase"`
	WhatBuild    string      `json:"what_build"`
	Keywords     keywordList `json:"keywords"`
	Consent      *bool       `json:"consent"`
	CaptchaToken string      `json:"captcha_token"`
	Honeypot     string      `json:"hp"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMTerm     string `json:"utm_term"`
	UTMContent  string `json:"utm_content"`
}

func (a *API) WaitlistCreate(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data createBody
	if err := c.ShouldBind(&data); err != nil {
		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	// Bots fill the hidden field. Pretend everything worked and store
	// nothing.
	if data.Honeypot != "" {
		c.JSON(http.StatusCreated, gin.H{
			"id":         "fake",
			"email":      data.Email,
			"role":       data.Role,
			"usecase":    data.Usecase,
			"created_at": time.Now().UTC(),
		})
		return
	}

	if err := validators.EmailValidator(data.Email); err != nil {
		zap.L().Debug("Invalid email", zap.Error(err), zap.String("requestID", requestID))

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if viper.GetBool("flags.require_consent") && (data.Consent == nil || !*data.Consent) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Consent required",
			"requestID": requestID,
		})
		return
	}

	if err := service.VerifyCaptcha(c.Request.Context(), data.CaptchaToken, c.ClientIP()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	usecase := data.Usecase
	if usecase == "" {
		usecase = data.WhatBuild
	}

	sub := &model.Submission{
		Email:     data.Email,
		Role:      data.Role,
		Usecase:   usecase,
		Keywords:  service.ExtractKeywords(usecase, data.Keywords),
		Status:    model.StatusPending,
		Consent:   data.Consent == nil || *data.Consent,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	applyAttribution(sub, &data, c.Request.Referer())

	if viper.GetBool("flags.require_verification") {
		sub.VerifyToken = security.NewToken()
		expiry := security.VerifyExpiry(time.Now().UTC())
		sub.VerifyExpiresAt = &expiry
	} else if viper.GetBool("flags.auto_activate") {
		sub.Status = model.StatusActive
	}

	row, err := a.Store.Insert(c.Request.Context(), sub)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			c.JSON(http.StatusConflict, gin.H{
				"error":     "You're already on the waitlist",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create submission", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	zap.L().Info("Waitlist submission created",
		zap.String("id", row.ID),
		zap.String("email", row.Email),
		zap.String("status", row.Status))

	// Mail delivery must never block or fail the signup
	if sub.VerifyToken != "" {
		go service.SendVerificationMail(context.Background(), sub.Email, sub.VerifyToken)
	}

	c.JSON(http.StatusCreated, row.Public())
}

// applyAttribution fills source and utm fields, preferring explicit body
// values and falling back to whatever the referer URL carries.
func applyAttribution(sub *model.Submission, data *createBody, referer string) {
	sub.Source = "landing"
	sub.UTMSource = data.UTMSource
	sub.UTMMedium = data.UTMMedium
	sub.UTMCampaign = data.UTMCampaign
	sub.UTMTerm = data.UTMTerm
	sub.UTMContent = data.UTMContent

	u, err := url.Parse(referer)
	if err != nil {
		return
	}

	q := u.Query()
	if v := q.Get("source"); v != "" {
		sub.Source = v
	}

	fallback := func(dst *string, key string) {
		if *dst == "" {
			*dst = q.Get(key)
		}
	}

	fallback(&sub.UTMSource, "utm_source")
	fallback(&sub.UTMMedium, "utm_medium")
	fallback(&sub.UTMCampaign, "utm_campaign")
	fallback(&sub.UTMTerm, "utm_term")
	fallback(&sub.UTMContent, "utm_content")
}
