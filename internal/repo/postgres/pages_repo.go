package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/secondbrainhq/secondbrain/internal/domain/knowledge"
	"github.com/secondbrainhq/secondbrain/internal/observability"
)

const pageColumns = `id, notebook_id, title, content, attachments, manual_tags, ai_tags, summary, archived, created_at, updated_at`

type PagesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPagesRepo(pool *pgxpool.Pool, prom *observability.Prom) *PagesRepo {
	return &PagesRepo{pool: pool, prom: prom}
}

func (r *PagesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (knowledge.Page, error) {
	var p knowledge.Page
	var summary *string

	err := row.Scan(
		&p.ID,
		&p.NotebookID,
		&p.Title,
		&p.Content,
		&p.Attachments,
		&p.ManualTags,
		&p.AITags,
		&summary,
		&p.Archived,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err != nil {
		return knowledge.Page{}, err
	}

	if summary != nil {
		p.Summary = *summary
	}

	if p.Attachments == nil {
		p.Attachments = []knowledge.Attachment{}
	}
	if p.ManualTags == nil {
		p.ManualTags = []string{}
	}
	if p.AITags == nil {
		p.AITags = []string{}
	}

	return p, nil
}

// Create inserts the page only when its notebook belongs to the user, so a
// page can never be attached to someone else's notebook.
func (r *PagesRepo) Create(ctx context.Context, userID string, p knowledge.Page) (knowledge.Page, error) {
	err := r.observe("pages.create", func() error {
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO pages(id, notebook_id, title, content, attachments, manual_tags, ai_tags, summary, archived, created_at, updated_at)
			 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
			 WHERE EXISTS (SELECT 1 FROM notebooks WHERE id = $2 AND user_id = $12)`,
			p.ID, p.NotebookID, p.Title, p.Content, p.Attachments, p.ManualTags, p.AITags, p.Summary, p.Archived, p.CreatedAt, p.UpdatedAt, userID,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return knowledge.ErrNotFound
		}

		return nil
	})

	if err != nil {
		return knowledge.Page{}, err
	}

	return p, nil
}

func (r *PagesRepo) GetByID(ctx context.Context, id, userID string) (knowledge.Page, error) {
	var p knowledge.Page

	err := r.observe("pages.get_by_id", func() error {
		var err error

		p, err = scanPage(r.pool.QueryRow(ctx,
			`SELECT p.id, p.notebook_id, p.title, p.content, p.attachments, p.manual_tags, p.ai_tags, p.summary, p.archived, p.created_at, p.updated_at
			 FROM pages p
			 JOIN notebooks n ON n.id = p.notebook_id
			 WHERE p.id = $1 AND n.user_id = $2`,
			id, userID,
		))

		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return knowledge.Page{}, knowledge.ErrNotFound
		}

		return knowledge.Page{}, err
	}

	return p, nil
}

func (r *PagesRepo) Update(ctx context.Context, id, userID string, p knowledge.Page) (knowledge.Page, error) {
	var out knowledge.Page

	err := r.observe("pages.update", func() error {
		var err error

		out, err = scanPage(r.pool.QueryRow(ctx,
			`UPDATE pages
			 SET title = $3,
			     content = $4,
			     attachments = $5,
			     manual_tags = $6,
			     ai_tags = $7,
			     summary = $8,
			     archived = $9,
			     updated_at = NOW()
			 WHERE id = $1
			 AND notebook_id IN (SELECT id FROM notebooks WHERE user_id = $2)
			 RETURNING `+pageColumns,
			id, userID, p.Title, p.Content, p.Attachments, p.ManualTags, p.AITags, p.Summary, p.Archived,
		))

		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return knowledge.Page{}, knowledge.ErrNotFound
		}

		return knowledge.Page{}, err
	}

	return out, nil
}

func (r *PagesRepo) Delete(ctx context.Context, id, userID string) error {
	return r.observe("pages.delete", func() error {
		tag, err := r.pool.Exec(ctx,
			`DELETE FROM pages
			 WHERE id = $1
			 AND notebook_id IN (SELECT id FROM notebooks WHERE user_id = $2)`,
			id, userID,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return knowledge.ErrNotFound
		}

		return nil
	})
}

// RecentByUser returns the newest pages across all of the user's notebooks.
// This is the source for chat grounding context.
func (r *PagesRepo) RecentByUser(ctx context.Context, userID string, limit int) ([]knowledge.Page, error) {
	var pages []knowledge.Page

	err := r.observe("pages.recent_by_user", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT p.id, p.notebook_id, p.title, p.content, p.attachments, p.manual_tags, p.ai_tags, p.summary, p.archived, p.created_at, p.updated_at
			 FROM pages p
			 JOIN notebooks n ON n.id = p.notebook_id
			 WHERE n.user_id = $1
			 ORDER BY p.created_at DESC, p.id DESC
			 LIMIT $2`,
			userID, limit,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		pages = make([]knowledge.Page, 0, limit)

		for rows.Next() {
			p, err := scanPage(rows)

			if err != nil {
				return err
			}

			pages = append(pages, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return pages, nil
}
