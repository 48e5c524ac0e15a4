// Package store contains the submission stores the API can run against.
// The real deployment talks to the hosted data API, the dev store keeps
// everything in an in-memory database so the app works without credentials.
package store

import (
	"context"
	"errors"

	"stefwrites/landing-api/internal/model"
)

var (
	ErrDuplicateEmail = errors.New("email is already on the waitlist")
	ErrNotFound       = errors.New("record not found")
)

// TokenField names one of the two independent token columns.
type TokenField string

const (
	TokenVerify TokenField = "verify_token"
	TokenInvite TokenField = "invite_token"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type ListOptions struct {
	Status   string
	Page     int
	PageSize int
	OrderKey string
	OrderDir string
}

// Normalize clamps paging values and fills in the default ordering so
// both store implementations agree on what a request means.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}

	if o.PageSize < 1 {
		o.PageSize = defaultPageSize
	}

	if o.PageSize > maxPageSize {
		o.PageSize = maxPageSize
	}

	if o.OrderKey == "" {
		o.OrderKey = "created_at"
	}

	if o.OrderDir != "asc" {
		o.OrderDir = "desc"
	}
}

// Store is the submission storage boundary. Patches are column-name keyed
// maps so partial updates translate directly to the upstream PATCH calls.
type Store interface {
	// Insert creates a new submission. Returns ErrDuplicateEmail when the
	// email already exists.
	Insert(ctx context.Context, s *model.Submission) (*model.Submission, error)

	// List returns a page of submissions plus the total row count.
	List(ctx context.Context, opts ListOptions) ([]model.Submission, int64, error)

	// PatchByID applies patch to the row with the given id and returns
	// the updated row, or ErrNotFound.
	PatchByID(ctx context.Context, id string, patch map[string]any) (*model.Submission, error)

	// PatchByEmail applies patch to the row with the given email and
	// returns the updated row, or ErrNotFound.
	PatchByEmail(ctx context.Context, email string, patch map[string]any) (*model.Submission, error)

	// FindByToken returns the row whose token column equals token, or
	// ErrNotFound.
	FindByToken(ctx context.Context, field TokenField, token string) (*model.Submission, error)

	// ConsumeToken applies patch to the row whose token column still
	// equals token. Filtering on the token itself means a redemption that
	// lost a race matches nothing and comes back as ErrNotFound.
	ConsumeToken(ctx context.Context, field TokenField, token string, patch map[string]any) (*model.Submission, error)

	// Export returns up to limit rows ordered by creation time descending.
	Export(ctx context.Context, limit int) ([]model.Submission, error)
}

// DevStore adds the fixture controls only the in-memory store supports.
type DevStore interface {
	Store

	Seed(ctx context.Context, rows []model.Submission) error
	Clear(ctx context.Context) error
}
