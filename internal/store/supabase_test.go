package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePostgREST mimics the handful of PostgREST behaviors the client
// relies on: representation arrays, empty arrays for filtered misses,
// and the Content-Range total.
func fakePostgREST(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/rest/v1/waitlist_submissions"))
		require.NotEmpty(t, r.Header.Get("apikey"))
		require.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))

		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodPost:
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

			if payload["email"] == "dup@example.com" {
				// ignore-duplicates: success, no representation
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte("[]"))
				return
			}

			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode([]map[string]any{{
				"id":     "row1",
				"email":  payload["email"],
				"status": payload["status"],
			}})

		case http.MethodPatch:
			if q.Get("verify_token") == "eq.gone" || q.Get("email") == "eq.missing@example.com" {
				w.Write([]byte("[]"))
				return
			}

			json.NewEncoder(w).Encode([]map[string]any{{
				"id":     "row1",
				"email":  "a@example.com",
				"status": "verified",
			}})

		case http.MethodGet:
			if q.Get("verify_token") == "eq.tok1" {
				json.NewEncoder(w).Encode([]map[string]any{{
					"id":           "row1",
					"email":        "a@example.com",
					"status":       "pending",
					"verify_token": "tok1",
				}})
				return
			}

			if q.Get("verify_token") != "" {
				w.Write([]byte("[]"))
				return
			}

			w.Header().Set("Content-Range", "0-1/42")
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "row1", "email": "a@example.com", "status": "pending"},
				{"id": "row2", "email": "b@example.com", "status": "active"},
			})

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

func TestSupabaseInsert(t *testing.T) {
	srv := fakePostgREST(t)
	defer srv.Close()

	s := NewSupabase(srv.URL, "service-role")

	row, err := s.Insert(context.Background(), sampleSubmission("new@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "row1", row.ID)
	assert.Equal(t, "new@example.com", row.Email)
}

func TestSupabaseInsertDuplicate(t *testing.T) {
	srv := fakePostgREST(t)
	defer srv.Close()

	s := NewSupabase(srv.URL, "service-role")

	_, err := s.Insert(context.Background(), sampleSubmission("dup@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestSupabaseListTotalFromContentRange(t *testing.T) {
	srv := fakePostgREST(t)
	defer srv.Close()

	s := NewSupabase(srv.URL, "service-role")

	rows, total, err := s.List(context.Background(), ListOptions{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.EqualValues(t, 42, total)
}

func TestSupabaseFindByToken(t *testing.T) {
	srv := fakePostgREST(t)
	defer srv.Close()

	s := NewSupabase(srv.URL, "service-role")

	row, err := s.FindByToken(context.Background(), TokenVerify, "tok1")
	require.NoError(t, err)
	assert.Equal(t, "row1", row.ID)

	_, err = s.FindByToken(context.Background(), TokenVerify, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabaseConsumeTokenLostRace(t *testing.T) {
	srv := fakePostgREST(t)
	defer srv.Close()

	s := NewSupabase(srv.URL, "service-role")

	// The filtered patch matched nothing: token already cleared
	_, err := s.ConsumeToken(context.Background(), TokenVerify, "gone", map[string]any{
		"verify_token": nil,
		"status":       "verified",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabasePatchByEmailNotFound(t *testing.T) {
	srv := fakePostgREST(t)
	defer srv.Close()

	s := NewSupabase(srv.URL, "service-role")

	_, err := s.PatchByEmail(context.Background(), "missing@example.com", map[string]any{"status": "invited"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseTotal(t *testing.T) {
	assert.EqualValues(t, 123, parseTotal("0-49/123", 7))
	assert.EqualValues(t, 7, parseTotal("", 7))
	assert.EqualValues(t, 7, parseTotal("0-49/*", 7))
}
