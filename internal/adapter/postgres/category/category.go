package category

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
	portcategory "github.com/alanyang/promptkit/internal/port/category"
)

var _ portcategory.Repository = (*Repository)(nil)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, c domaincategory.Category) (domaincategory.Category, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO categories (id, name, description, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, description, created_at`,
		c.ID, c.Name, c.Description, c.CreatedAt,
	)

	var out domaincategory.Category
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domaincategory.Category{}, domaincategory.ErrNameTaken
		}
		return domaincategory.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domaincategory.Category, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM categories WHERE id = $1`, id,
	)

	var out domaincategory.Category
	if err := row.Scan(&out.ID, &out.Name, &out.Description, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domaincategory.Category{}, domaincategory.ErrNotFound
		}
		return domaincategory.Category{}, fmt.Errorf("get category: %w", err)
	}
	return out, nil
}

func (r *Repository) List(ctx context.Context) ([]domaincategory.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var out []domaincategory.Category
	for rows.Next() {
		var c domaincategory.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
