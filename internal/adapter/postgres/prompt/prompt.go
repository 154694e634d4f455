package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
	domainprompt "github.com/alanyang/promptkit/internal/domain/prompt"
	portprompt "github.com/alanyang/promptkit/internal/port/prompt"
)

var _ portprompt.Repository = (*Repository)(nil)

const foreignKeyViolation = "23503"

const columns = `id, category_id, name, description, format, document_jsonb, content, fingerprint, score, created_at`

// Repository implements port/prompt.Repository using Postgres. The parsed
// document is stored as JSONB next to the denormalised content and
// fingerprint used by the duplicate scan.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p domainprompt.Prompt) (domainprompt.Prompt, error) {
	doc, err := json.Marshal(p.Document)
	if err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("marshal document: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO prompts (`+columns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+columns,
		p.ID, p.CategoryID, p.Name, p.Description, p.Format, doc, p.Content, p.Fingerprint, p.Score, p.CreatedAt,
	)
	out, err := scanPrompt(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return domainprompt.Prompt{}, domaincategory.ErrNotFound
		}
		return domainprompt.Prompt{}, fmt.Errorf("insert prompt: %w", err)
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainprompt.Prompt, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM prompts WHERE id = $1`, id)
	p, err := scanPrompt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainprompt.Prompt{}, domainprompt.ErrNotFound
		}
		return domainprompt.Prompt{}, fmt.Errorf("querying prompt: %w", err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, filters domainprompt.ListFilters) ([]domainprompt.Prompt, error) {
	query := `SELECT ` + columns + ` FROM prompts WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filters.CategoryID != nil {
		query += fmt.Sprintf(" AND category_id = $%d", argIdx)
		args = append(args, *filters.CategoryID)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		argIdx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w", err)
	}
	defer rows.Close()

	return scanPrompts(rows)
}

func (r *Repository) ListByFingerprint(ctx context.Context, categoryID *uuid.UUID, fp string) ([]domainprompt.Prompt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM prompts
		 WHERE category_id IS NOT DISTINCT FROM $1 AND fingerprint = $2
		 ORDER BY created_at, id`,
		categoryID, fp,
	)
	if err != nil {
		return nil, fmt.Errorf("listing prompts by fingerprint: %w", err)
	}
	defer rows.Close()

	return scanPrompts(rows)
}

func (r *Repository) ListByCategory(ctx context.Context, categoryID *uuid.UUID, limit int) ([]domainprompt.Prompt, error) {
	query := `SELECT ` + columns + ` FROM prompts
		WHERE category_id IS NOT DISTINCT FROM $1
		ORDER BY created_at, id`
	args := []interface{}{categoryID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing category prompts: %w", err)
	}
	defer rows.Close()

	return scanPrompts(rows)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM prompts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainprompt.ErrNotFound
	}
	return nil
}

func scanPrompt(row pgx.Row) (domainprompt.Prompt, error) {
	var (
		p   domainprompt.Prompt
		doc []byte
	)
	if err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Format,
		&doc, &p.Content, &p.Fingerprint, &p.Score, &p.CreatedAt,
	); err != nil {
		return domainprompt.Prompt{}, err
	}
	if err := json.Unmarshal(doc, &p.Document); err != nil {
		return domainprompt.Prompt{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return p, nil
}

func scanPrompts(rows pgx.Rows) ([]domainprompt.Prompt, error) {
	var prompts []domainprompt.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning prompt row: %w", err)
		}
		prompts = append(prompts, p)
	}
	return prompts, rows.Err()
}
