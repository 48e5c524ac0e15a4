package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const resendURL = "https://api.resend.com/emails"

var mailClient = &http.Client{Timeout: 15 * time.Second}

type mailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// SendMail delivers a plain-text mail through the Resend API. When email
// is disabled or no API key is configured the send is simulated: logged
// and reported as success so the calling flow keeps working in dev.
func SendMail(ctx context.Context, to, subject, text string) error {
	apiKey := viper.GetString("email.resend_api_key")

	if !viper.GetBool("email.enabled") || apiKey == "" {
		zap.L().Info("Simulated email send",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	jsonBody, err := json.Marshal(mailPayload{
		From:    viper.GetString("email.from"),
		To:      to,
		Subject: subject,
		Text:    text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendURL, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := mailClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend error (%d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// FrontendOrigin returns the origin links in outgoing mail should point
// at. The CORS wildcard is useless in a link so it falls back to the
// local dev front-end.
func FrontendOrigin() string {
	origin := viper.GetString("host.cors_origin")
	if origin == "" || origin == "*" {
		return "http://localhost:5173"
	}

	return origin
}

// VerifyLink builds the link a signup clicks to consume their
// verification token.
func VerifyLink(token string) string {
	return fmt.Sprintf("%s/verify?token=%s", FrontendOrigin(), url.QueryEscape(token))
}

// ActivateLink builds the link an invited signup clicks to activate.
func ActivateLink(token string) string {
	return fmt.Sprintf("%s/activate?token=%s", FrontendOrigin(), url.QueryEscape(token))
}

// SendVerificationMail mails a verify link. Failures are logged, not
// fatal: a signup must not be lost because the mail provider hiccuped.
func SendVerificationMail(ctx context.Context, to, token string) {
	text := fmt.Sprintf("Confirm your spot on the waitlist: %s\n\nThis link expires in %d hours.",
		VerifyLink(token), viper.GetInt("tokens.verify_ttl_hours"))

	if err := SendMail(ctx, to, "Confirm your waitlist signup", text); err != nil {
		zap.L().Error("Failed to send verification email", zap.Error(err), zap.String("to", to))
	}
}
