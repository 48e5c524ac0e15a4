package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const siteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

var (
	ErrCaptchaRequired = errors.New("captcha required")
	ErrCaptchaFailed   = errors.New("captcha verification failed")

	captchaClient = &http.Client{Timeout: 10 * time.Second}
)

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// VerifyCaptcha checks a Turnstile token against Cloudflare. A no-op
// unless flags.require_captcha is set.
func VerifyCaptcha(ctx context.Context, token, remoteIP string) error {
	if !viper.GetBool("flags.require_captcha") {
		return nil
	}

	secret := viper.GetString("turnstile.secret_key")
	if secret == "" || token == "" {
		return ErrCaptchaRequired
	}

	payload := map[string]string{
		"secret":   secret,
		"response": token,
		"remoteip": remoteIP,
	}

	jsonBody, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, siteverifyURL, bytes.NewReader(jsonBody))
	if err != nil {
		return ErrCaptchaFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := captchaClient.Do(req)
	if err != nil {
		zap.L().Error("Turnstile request failed", zap.Error(err))
		return ErrCaptchaFailed
	}

	respBody, _ := io.ReadAll(resp.Body)
	defer resp.Body.Close()

	var res siteverifyResponse
	if err := json.Unmarshal(respBody, &res); err != nil {
		return ErrCaptchaFailed
	}

	if !res.Success {
		zap.L().Debug("Turnstile rejected token", zap.Strings("error_codes", res.ErrorCodes))
		return ErrCaptchaFailed
	}

	return nil
}
