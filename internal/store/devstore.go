package store

import (
	"context"
	"fmt"
	"time"

	"stefwrites/landing-api/internal/model"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// Columns the list endpoints may order by. Anything else silently falls
// back to created_at.
var orderKeys = map[string]bool{
	"created_at": true,
	"email":      true,
	"status":     true,
	"role":       true,
}

// Dev is the storage used when Supabase is unconfigured: an in-memory
// SQLite database behind gorm. Process-local and gone on restart, which
// is the point; it lets the whole API run without any credentials.
type Dev struct {
	db *gorm.DB
}

func NewDev() (*Dev, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dev store, %w", err)
	}

	if err := db.AutoMigrate(model.Submission{}); err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return &Dev{db: db}, nil
}

// normalizePatch maps the nil-means-clear convention of the upstream API
// onto the dev schema, where token columns are plain strings.
func normalizePatch(patch map[string]any) map[string]any {
	out := make(map[string]any, len(patch))
	for k, v := range patch {
		if v == nil && (k == string(TokenVerify) || k == string(TokenInvite)) {
			out[k] = ""
			continue
		}
		out[k] = v
	}

	return out
}

func (d *Dev) Insert(ctx context.Context, sub *model.Submission) (*model.Submission, error) {
	var found bool

	r := d.db.WithContext(ctx).Model(model.Submission{}).
		Select("count(*) > 0").
		Where("email = ?", sub.Email).
		Find(&found)
	if r.Error != nil {
		return nil, r.Error
	}

	if found {
		return nil, ErrDuplicateEmail
	}

	id, err := gonanoid.Generate(idCharset, 12)
	if err != nil {
		return nil, err
	}

	row := *sub
	row.ID = id
	row.CreatedAt = time.Now().UTC()

	if err := d.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}

	return &row, nil
}

func (d *Dev) List(ctx context.Context, opts ListOptions) ([]model.Submission, int64, error) {
	opts.Normalize()
	if !orderKeys[opts.OrderKey] {
		opts.OrderKey = "created_at"
	}

	q := d.db.WithContext(ctx).Model(model.Submission{})
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Submission
	err := q.
		Order(opts.OrderKey + " " + opts.OrderDir).
		Limit(opts.PageSize).
		Offset((opts.Page - 1) * opts.PageSize).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

func (d *Dev) patch(ctx context.Context, column string, value string, patch map[string]any) (*model.Submission, error) {
	var row model.Submission

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := tx.Model(model.Submission{}).
			Where(column+" = ?", value).
			Updates(normalizePatch(patch))
		if r.Error != nil {
			return r.Error
		}

		if r.RowsAffected == 0 {
			return ErrNotFound
		}

		return tx.Where(column+" = ?", value).First(&row).Error
	})
	if err != nil {
		return nil, err
	}

	return &row, nil
}

func (d *Dev) PatchByID(ctx context.Context, id string, patch map[string]any) (*model.Submission, error) {
	return d.patch(ctx, "id", id, patch)
}

func (d *Dev) PatchByEmail(ctx context.Context, email string, patch map[string]any) (*model.Submission, error) {
	return d.patch(ctx, "email", email, patch)
}

func (d *Dev) FindByToken(ctx context.Context, field TokenField, token string) (*model.Submission, error) {
	var row model.Submission

	err := d.db.WithContext(ctx).
		Where(string(field)+" = ? AND "+string(field)+" <> ''", token).
		First(&row).
		Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &row, nil
}

func (d *Dev) ConsumeToken(ctx context.Context, field TokenField, token string, patch map[string]any) (*model.Submission, error) {
	var row model.Submission

	// Same narrowing as the upstream client: the update filters on the
	// token column itself, so a racer that arrives after the clear
	// matches zero rows.
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(string(field)+" = ? AND "+string(field)+" <> ''", token).First(&row).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}

		r := tx.Model(model.Submission{}).
			Where(string(field)+" = ?", token).
			Updates(normalizePatch(patch))
		if r.Error != nil {
			return r.Error
		}

		if r.RowsAffected == 0 {
			return ErrNotFound
		}

		return tx.Where("id = ?", row.ID).First(&row).Error
	})
	if err != nil {
		return nil, err
	}

	return &row, nil
}

func (d *Dev) Export(ctx context.Context, limit int) ([]model.Submission, error) {
	var rows []model.Submission

	err := d.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (d *Dev) Seed(ctx context.Context, rows []model.Submission) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			if rows[i].ID == "" {
				id, err := gonanoid.Generate(idCharset, 12)
				if err != nil {
					return err
				}
				rows[i].ID = id
			}

			if err := tx.Create(&rows[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (d *Dev) Clear(ctx context.Context) error {
	return d.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.Submission{}).
		Error
}
