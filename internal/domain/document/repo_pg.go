package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medconnect/medconnect/internal/platform/db"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

const docCols = `id, uploader_id, target_id, kind, title, storage_key, content_type, public, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var kind string
	err := row.Scan(&d.ID, &d.UploaderID, &d.TargetID, &kind, &d.Title, &d.StorageKey,
		&d.ContentType, &d.Public, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Kind = Kind(kind)
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO document (id, uploader_id, target_id, kind, title, storage_key, content_type, public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		d.ID, d.UploaderID, d.TargetID, string(d.Kind), d.Title, d.StorageKey, d.ContentType, d.Public,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	return scanDocument(r.q.QueryRow(ctx, `SELECT `+docCols+` FROM document WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Document, int, error) {
	var where []string
	var args []interface{}
	idx := 1
	if f.Involving != nil {
		where = append(where, fmt.Sprintf("(uploader_id = $%d OR target_id = $%d)", idx, idx))
		args = append(args, *f.Involving)
		idx++
	}
	if f.UploaderID != nil {
		where = append(where, fmt.Sprintf("uploader_id = $%d", idx))
		args = append(args, *f.UploaderID)
		idx++
	}
	if f.PublicOnly {
		where = append(where, "public")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM document`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM document%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		docCols, clause, idx, idx+1)
	rows, err := r.q.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM document WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
