package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medconnect/medconnect/internal/platform/db"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

const reviewCols = `id, author_id, doctor_id, rating, comment, published, created_at, updated_at`

func scanReview(row pgx.Row) (*Review, error) {
	var r Review
	var rating int16
	err := row.Scan(&r.ID, &r.AuthorID, &r.DoctorID, &rating, &r.Comment, &r.Published, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Rating = int(rating)
	return &r, nil
}

func (p *repoPG) Create(ctx context.Context, r *Review) error {
	r.ID = uuid.New()
	err := p.q.QueryRow(ctx, `
		INSERT INTO review (id, author_id, doctor_id, rating, comment, published)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		r.ID, r.AuthorID, r.DoctorID, int16(r.Rating), r.Comment, r.Published,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	return scanReview(p.q.QueryRow(ctx, `SELECT `+reviewCols+` FROM review WHERE id = $1`, id))
}

func (p *repoPG) ListForDoctor(ctx context.Context, doctorID uuid.UUID, publishedOnly bool, limit, offset int) ([]*Review, int, error) {
	clause := ` WHERE doctor_id = $1`
	if publishedOnly {
		clause += ` AND published`
	}
	var total int
	if err := p.q.QueryRow(ctx, `SELECT COUNT(*) FROM review`+clause, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := p.q.Query(ctx, `SELECT `+reviewCols+` FROM review`+clause+
		` ORDER BY created_at DESC LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

func (p *repoPG) SetPublished(ctx context.Context, id uuid.UUID, published bool) (*Review, error) {
	return scanReview(p.q.QueryRow(ctx, `
		UPDATE review SET published = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+reviewCols, id, published))
}

func (p *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.q.Exec(ctx, `DELETE FROM review WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
