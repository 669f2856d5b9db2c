package documents

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docstream/docstream-backend/internal/domain"
	"github.com/docstream/docstream-backend/internal/pkg/dbctx"
	"github.com/docstream/docstream-backend/internal/pkg/logger"
)

// ErrNotFound is returned for point lookups of unknown document ids.
var ErrNotFound = errors.New("document not found")

// ErrVersionConflict is returned when an optimistic update observed a stale
// version: another writer committed between read and write.
var ErrVersionConflict = errors.New("document version conflict")

type ListParams struct {
	Page   int
	Limit  int
	Status domain.Status
}

type Repo interface {
	Create(dbc dbctx.Context, doc *domain.Document) (*domain.Document, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error)
	List(dbc dbctx.Context, params ListParams) ([]*domain.Document, int64, error)
	// UpdateFields applies a partial update iff the row still carries
	// expectedVersion, incrementing version in the same statement.
	UpdateFields(dbc dbctx.Context, id uuid.UUID, expectedVersion int, fields map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepo(db *gorm.DB, baseLog *logger.Logger) Repo {
	return &repo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *repo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *repo) Create(dbc dbctx.Context, doc *domain.Document) (*domain.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(doc).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *repo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repo) List(dbc dbctx.Context, params ListParams) ([]*domain.Document, int64, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	limit := params.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	q := r.conn(dbc).WithContext(dbc.Ctx).Model(&domain.Document{})
	if status := domain.Status(strings.TrimSpace(string(params.Status))); status != "" {
		q = q.Where("status = ?", domain.NormalizeStatus(status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []*domain.Document
	if err := q.
		Order("uploaded_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *repo) UpdateFields(dbc dbctx.Context, id uuid.UUID, expectedVersion int, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Row missing or stale version; disambiguate for the caller.
		var count int64
		if err := r.conn(dbc).WithContext(dbc.Ctx).
			Model(&domain.Document{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (r *repo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&domain.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
