package specialization

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medconnect/medconnect/internal/platform/db"
)

type repoPG struct{ conn db.Conn }

func NewRepoPG(conn db.Conn) Repository { return &repoPG{conn: conn} }

const specCols = `id, name, description, created_at, updated_at`

func scanSpecialization(row pgx.Row) (*Specialization, error) {
	var s Specialization
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) Create(ctx context.Context, s *Specialization) error {
	s.ID = uuid.New()
	err := r.conn.QueryRow(ctx, `
		INSERT INTO specialization (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Description,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if db.IsUniqueViolation(err, "specialization_name_key") {
		return ErrDuplicateName
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Specialization, error) {
	return scanSpecialization(r.conn.QueryRow(ctx, `SELECT `+specCols+` FROM specialization WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context) ([]*Specialization, error) {
	rows, err := r.conn.Query(ctx, `SELECT `+specCols+` FROM specialization ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Specialization
	for rows.Next() {
		s, err := scanSpecialization(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, s *Specialization) error {
	err := r.conn.QueryRow(ctx, `
		UPDATE specialization SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Description,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return ErrNotFound
	case db.IsUniqueViolation(err, "specialization_name_key"):
		return ErrDuplicateName
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM specialization WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetForDoctor(ctx context.Context, doctorID uuid.UUID, ids []uuid.UUID) error {
	return db.InTx(ctx, r.conn, func(q db.Querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM doctor_specialization WHERE doctor_id = $1`, doctorID); err != nil {
			return fmt.Errorf("clear specializations: %w", err)
		}
		for _, id := range ids {
			_, err := q.Exec(ctx, `
				INSERT INTO doctor_specialization (doctor_id, specialization_id)
				VALUES ($1, $2) ON CONFLICT DO NOTHING`, doctorID, id)
			if err != nil {
				if db.IsForeignKeyViolation(err) {
					return ErrUnknownID
				}
				return fmt.Errorf("assign specialization: %w", err)
			}
		}
		return nil
	})
}

func (r *repoPG) ListForDoctors(ctx context.Context, doctorIDs []uuid.UUID) (map[uuid.UUID][]*Specialization, error) {
	out := make(map[uuid.UUID][]*Specialization, len(doctorIDs))
	if len(doctorIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(doctorIDs))
	for i, id := range doctorIDs {
		ids[i] = id.String()
	}
	rows, err := r.conn.Query(ctx, `
		SELECT ds.doctor_id, s.id, s.name, s.description, s.created_at, s.updated_at
		FROM doctor_specialization ds
		JOIN specialization s ON s.id = ds.specialization_id
		WHERE ds.doctor_id = ANY($1::uuid[])
		ORDER BY s.name`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var doctorID uuid.UUID
		var s Specialization
		if err := rows.Scan(&doctorID, &s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out[doctorID] = append(out[doctorID], &s)
	}
	return out, rows.Err()
}
