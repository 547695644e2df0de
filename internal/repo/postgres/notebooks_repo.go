package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/secondbrainhq/secondbrain/internal/domain/knowledge"
	"github.com/secondbrainhq/secondbrain/internal/observability"
)

type NotebooksRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewNotebooksRepo(pool *pgxpool.Pool, prom *observability.Prom) *NotebooksRepo {
	return &NotebooksRepo{pool: pool, prom: prom}
}

func (r *NotebooksRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *NotebooksRepo) Create(ctx context.Context, nb knowledge.Notebook) (knowledge.Notebook, error) {
	err := r.observe("notebooks.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO notebooks(id, user_id, title, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5)`,
			nb.ID, nb.UserID, nb.Title, nb.CreatedAt, nb.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return knowledge.Notebook{}, err
	}

	return nb, nil
}

// ListByUser returns the user's notebooks newest first, each with its pages
// in creation order.
func (r *NotebooksRepo) ListByUser(ctx context.Context, userID string) ([]knowledge.Notebook, error) {
	var notebooks []knowledge.Notebook

	err := r.observe("notebooks.list_by_user", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, title, created_at, updated_at
			 FROM notebooks
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC`,
			userID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		notebooks = make([]knowledge.Notebook, 0)

		for rows.Next() {
			var nb knowledge.Notebook

			err = rows.Scan(&nb.ID, &nb.UserID, &nb.Title, &nb.CreatedAt, &nb.UpdatedAt)

			if err != nil {
				return err
			}

			nb.Pages = []knowledge.Page{}
			notebooks = append(notebooks, nb)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	err = r.attachPages(ctx, notebooks)

	if err != nil {
		return nil, err
	}

	return notebooks, nil
}

// GetByID scopes by owner: a notebook belonging to someone else reads as not
// found rather than forbidden, so ids cannot be probed.
func (r *NotebooksRepo) GetByID(ctx context.Context, id, userID string) (knowledge.Notebook, error) {
	var nb knowledge.Notebook

	err := r.observe("notebooks.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, title, created_at, updated_at
			 FROM notebooks
			 WHERE id = $1 AND user_id = $2`,
			id, userID,
		).Scan(&nb.ID, &nb.UserID, &nb.Title, &nb.CreatedAt, &nb.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return knowledge.Notebook{}, knowledge.ErrNotFound
		}

		return knowledge.Notebook{}, err
	}

	nb.Pages = []knowledge.Page{}
	nbs := []knowledge.Notebook{nb}

	err = r.attachPages(ctx, nbs)

	if err != nil {
		return knowledge.Notebook{}, err
	}

	return nbs[0], nil
}

func (r *NotebooksRepo) UpdateTitle(ctx context.Context, id, userID, title string) (knowledge.Notebook, error) {
	var nb knowledge.Notebook

	err := r.observe("notebooks.update_title", func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE notebooks
			 SET title = $3, updated_at = NOW()
			 WHERE id = $1 AND user_id = $2
			 RETURNING id, user_id, title, created_at, updated_at`,
			id, userID, title,
		).Scan(&nb.ID, &nb.UserID, &nb.Title, &nb.CreatedAt, &nb.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return knowledge.Notebook{}, knowledge.ErrNotFound
		}

		return knowledge.Notebook{}, err
	}

	nb.Pages = []knowledge.Page{}
	return nb, nil
}

// Delete removes the notebook and its pages. Pages go first; there is no ON
// DELETE CASCADE on the foreign key.
func (r *NotebooksRepo) Delete(ctx context.Context, id, userID string) error {
	return r.observe("notebooks.delete", func() error {
		tx, err := r.pool.Begin(ctx)

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		_, err = tx.Exec(ctx,
			`DELETE FROM pages
			 WHERE notebook_id = $1
			 AND EXISTS (SELECT 1 FROM notebooks WHERE id = $1 AND user_id = $2)`,
			id, userID,
		)

		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`DELETE FROM notebooks WHERE id = $1 AND user_id = $2`,
			id, userID,
		)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return knowledge.ErrNotFound
		}

		return tx.Commit(ctx)
	})
}

// SearchByTitle is a plain ILIKE substring match over the user's notebook
// titles, newest first.
func (r *NotebooksRepo) SearchByTitle(ctx context.Context, userID, query string) ([]knowledge.Notebook, error) {
	var notebooks []knowledge.Notebook

	err := r.observe("notebooks.search", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, user_id, title, created_at, updated_at
			 FROM notebooks
			 WHERE user_id = $1 AND title ILIKE '%' || $2 || '%'
			 ORDER BY created_at DESC, id DESC`,
			userID, query,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		notebooks = make([]knowledge.Notebook, 0)

		for rows.Next() {
			var nb knowledge.Notebook

			err = rows.Scan(&nb.ID, &nb.UserID, &nb.Title, &nb.CreatedAt, &nb.UpdatedAt)

			if err != nil {
				return err
			}

			nb.Pages = []knowledge.Page{}
			notebooks = append(notebooks, nb)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	err = r.attachPages(ctx, notebooks)

	if err != nil {
		return nil, err
	}

	return notebooks, nil
}

func (r *NotebooksRepo) attachPages(ctx context.Context, notebooks []knowledge.Notebook) error {
	if len(notebooks) == 0 {
		return nil
	}

	ids := make([]string, 0, len(notebooks))
	index := make(map[string]int, len(notebooks))

	for i, nb := range notebooks {
		ids = append(ids, nb.ID)
		index[nb.ID] = i
	}

	return r.observe("notebooks.attach_pages", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, notebook_id, title, content, attachments, manual_tags, ai_tags, summary, archived, created_at, updated_at
			 FROM pages
			 WHERE notebook_id = ANY($1)
			 ORDER BY created_at ASC, id ASC`,
			ids,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			p, err := scanPage(rows)

			if err != nil {
				return err
			}

			i, ok := index[p.NotebookID]

			if ok {
				notebooks[i].Pages = append(notebooks[i].Pages, p)
			}
		}

		return rows.Err()
	})
}
