package stock

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/posrapor/posrapor/internal/shared"
)

// Querier is the routed branch connection the repository works through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists stock entries in a branch database.
type Repository struct{}

// NewRepository constructs a repository.
func NewRepository() *Repository {
	return &Repository{}
}

// InsertEntry records one stock movement.
func (r *Repository) InsertEntry(ctx context.Context, q Querier, entry Entry) error {
	const query = `
		INSERT INTO stok_takip (id, urun_adi, miktar, giris, tarih, kullanici_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.Exec(ctx, query, entry.ID, entry.UrunAdi, entry.Miktar, entry.Giris, entry.Tarih, entry.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrQueryFailed, err)
	}
	return nil
}

// LiveStock aggregates the current net quantity per product.
func (r *Repository) LiveStock(ctx context.Context, q Querier) ([]LiveRow, error) {
	const query = `
		SELECT urun_adi, COALESCE(SUM(CASE WHEN giris THEN miktar ELSE -miktar END), 0)
		FROM stok_takip
		GROUP BY urun_adi
		ORDER BY urun_adi
	`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrQueryFailed, err)
	}
	defer rows.Close()

	out := []LiveRow{}
	for rows.Next() {
		var row LiveRow
		if err := rows.Scan(&row.UrunAdi, &row.Mevcut); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrQueryFailed, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrQueryFailed, err)
	}
	return out, nil
}
