package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stefwrites/landing-api/internal/model"

	"go.uber.org/zap"
)

const table = "waitlist_submissions"

// Columns the admin list and export endpoints are allowed to see. Token
// columns are deliberately absent.
const (
	listColumns   = "id,email,role,usecase,keywords,created_at,status,source,utm_source,utm_medium,utm_campaign,utm_term,utm_content"
	insertColumns = "id,email,role,usecase,keywords,created_at,status"
	exportColumns = "id,email,role,usecase,keywords,created_at"
)

// Supabase proxies every storage call to the hosted PostgREST endpoint.
// It owns no schema; constraints like email uniqueness are enforced
// upstream and surface here as response codes.
type Supabase struct {
	restURL     string
	serviceRole string
	client      *http.Client
}

func NewSupabase(baseURL, serviceRole string) *Supabase {
	return &Supabase{
		restURL:     strings.TrimSuffix(baseURL, "/") + "/rest/v1/" + table,
		serviceRole: serviceRole,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *Supabase) do(ctx context.Context, method, query string, body any, prefer string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.restURL+query, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("apikey", s.serviceRole)
	req.Header.Set("Authorization", "Bearer "+s.serviceRole)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, respBody, nil
}

// doRows is like do but decodes the representation PostgREST returns.
func (s *Supabase) doRows(ctx context.Context, method, query string, body any, prefer string) ([]model.Submission, error) {
	code, respBody, err := s.do(ctx, method, query, body, prefer)
	if err != nil {
		return nil, err
	}

	if code == http.StatusConflict {
		return nil, ErrDuplicateEmail
	}

	if code < 200 || code > 299 {
		zap.L().Error("Upstream data API call failed",
			zap.String("method", method),
			zap.Int("status", code))

		return nil, fmt.Errorf("upstream error (%d): %s", code, string(respBody))
	}

	var rows []model.Submission
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode upstream response, %w", err)
		}
	}

	return rows, nil
}

// insertPayload shapes a submission for the upstream insert. The id and
// creation timestamp are server-generated so they never go on the wire.
func insertPayload(sub *model.Submission) map[string]any {
	p := map[string]any{
		"email":        sub.Email,
		"role":         sub.Role,
		"usecase":      sub.Usecase,
		"keywords":     sub.Keywords,
		"status":       sub.Status,
		"source":       sub.Source,
		"utm_source":   sub.UTMSource,
		"utm_medium":   sub.UTMMedium,
		"utm_campaign": sub.UTMCampaign,
		"utm_term":     sub.UTMTerm,
		"utm_content":  sub.UTMContent,
		"consent":      sub.Consent,
		"ip":           sub.IP,
		"user_agent":   sub.UserAgent,
	}

	if sub.VerifyToken != "" {
		p["verify_token"] = sub.VerifyToken
		p["verify_expires_at"] = sub.VerifyExpiresAt
	}

	return p
}

func (s *Supabase) Insert(ctx context.Context, sub *model.Submission) (*model.Submission, error) {
	query := "?select=" + insertColumns + "&on_conflict=email"

	rows, err := s.doRows(ctx, http.MethodPost, query, insertPayload(sub), "resolution=ignore-duplicates,return=representation")
	if err != nil {
		return nil, err
	}

	// With ignore-duplicates a conflicting insert succeeds upstream but
	// returns no representation
	if len(rows) == 0 {
		return nil, ErrDuplicateEmail
	}

	return &rows[0], nil
}

func (s *Supabase) List(ctx context.Context, opts ListOptions) ([]model.Submission, int64, error) {
	opts.Normalize()
	offset := (opts.Page - 1) * opts.PageSize

	query := fmt.Sprintf("?select=%s&order=%s.%s&limit=%d&offset=%d",
		listColumns, url.QueryEscape(opts.OrderKey), opts.OrderDir, opts.PageSize, offset)
	if opts.Status != "" {
		query += "&status=eq." + url.QueryEscape(opts.Status)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.restURL+query, nil)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("apikey", s.serviceRole)
	req.Header.Set("Authorization", "Bearer "+s.serviceRole)
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, 0, fmt.Errorf("upstream error (%d): %s", resp.StatusCode, string(respBody))
	}

	var rows []model.Submission
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, 0, fmt.Errorf("failed to decode upstream response, %w", err)
	}

	return rows, parseTotal(resp.Header.Get("Content-Range"), int64(len(rows))), nil
}

// parseTotal reads the row count out of a Content-Range header
// ("0-49/123"). Falls back to the page length when the header is absent.
func parseTotal(contentRange string, fallback int64) int64 {
	idx := strings.LastIndex(contentRange, "/")
	if idx < 0 {
		return fallback
	}

	total, err := strconv.ParseInt(contentRange[idx+1:], 10, 64)
	if err != nil {
		return fallback
	}

	return total
}

func (s *Supabase) patch(ctx context.Context, filter string, patch map[string]any) (*model.Submission, error) {
	rows, err := s.doRows(ctx, http.MethodPatch, "?"+filter, patch, "return=representation")
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	return &rows[0], nil
}

func (s *Supabase) PatchByID(ctx context.Context, id string, patch map[string]any) (*model.Submission, error) {
	return s.patch(ctx, "id=eq."+url.QueryEscape(id), patch)
}

func (s *Supabase) PatchByEmail(ctx context.Context, email string, patch map[string]any) (*model.Submission, error) {
	return s.patch(ctx, "email=eq."+url.QueryEscape(email), patch)
}

func (s *Supabase) FindByToken(ctx context.Context, field TokenField, token string) (*model.Submission, error) {
	query := fmt.Sprintf("?select=*&%s=eq.%s&limit=1", field, url.QueryEscape(token))

	rows, err := s.doRows(ctx, http.MethodGet, query, nil, "")
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	return &rows[0], nil
}

func (s *Supabase) ConsumeToken(ctx context.Context, field TokenField, token string, patch map[string]any) (*model.Submission, error) {
	return s.patch(ctx, fmt.Sprintf("%s=eq.%s", field, url.QueryEscape(token)), patch)
}

func (s *Supabase) Export(ctx context.Context, limit int) ([]model.Submission, error) {
	query := fmt.Sprintf("?select=%s&order=created_at.desc&limit=%d", exportColumns, limit)
	return s.doRows(ctx, http.MethodGet, query, nil, "")
}
