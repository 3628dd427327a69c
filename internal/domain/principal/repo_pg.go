package principal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medconnect/medconnect/internal/platform/auth"
	"github.com/medconnect/medconnect/internal/platform/db"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

const principalCols = `id, email, password_hash, first_name, last_name, phone, role,
	federated_id, auth_origin, avatar_url, created_at, updated_at`

func scanPrincipal(row pgx.Row) (*Principal, error) {
	var p Principal
	var role, origin string
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName, &p.Phone, &role,
		&p.FederatedID, &origin, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Role = auth.Role(role)
	p.AuthOrigin = auth.AuthOrigin(origin)
	return &p, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	return scanPrincipal(r.q.QueryRow(ctx, `SELECT `+principalCols+` FROM principal WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Principal, error) {
	return scanPrincipal(r.q.QueryRow(ctx, `SELECT `+principalCols+` FROM principal WHERE email = $1`, NormalizeEmail(email)))
}

func (r *repoPG) GetByFederatedID(ctx context.Context, federatedID string) (*Principal, error) {
	return scanPrincipal(r.q.QueryRow(ctx, `SELECT `+principalCols+` FROM principal WHERE federated_id = $1`, federatedID))
}

func (r *repoPG) Create(ctx context.Context, p *Principal) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Email = NormalizeEmail(p.Email)
	err := r.q.QueryRow(ctx, `
		INSERT INTO principal (id, email, password_hash, first_name, last_name, phone, role,
			federated_id, auth_origin, avatar_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.ID, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.Phone, string(p.Role),
		p.FederatedID, string(p.AuthOrigin), p.AvatarURL,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (r *repoPG) LinkFederatedIdentity(ctx context.Context, id uuid.UUID, federatedID string, avatarURL *string) (*Principal, error) {
	p, err := scanPrincipal(r.q.QueryRow(ctx, `
		UPDATE principal
		SET federated_id = $2, auth_origin = 'federated',
			avatar_url = COALESCE($3, avatar_url), updated_at = NOW()
		WHERE id = $1
		RETURNING `+principalCols, id, federatedID, avatarURL))
	if err != nil && db.IsUniqueViolation(err, "principal_federated_id_key") {
		return nil, ErrDuplicate
	}
	return p, err
}

func (r *repoPG) ListByRole(ctx context.Context, role auth.Role, limit, offset int) ([]*Principal, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM principal WHERE role = $1`, string(role)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+principalCols+` FROM principal WHERE role = $1
		ORDER BY last_name, first_name, id LIMIT $2 OFFSET $3`, string(role), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
