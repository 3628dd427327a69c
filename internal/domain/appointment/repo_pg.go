package appointment

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

const apptCols = `id, patient_id, doctor_id, scheduled_at, status, reason, consultation_notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &status, &a.Reason,
		&a.ConsultationNotes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, scheduled_at, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.ScheduledAt, string(a.Status), a.Reason,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.q.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	var where []string
	var args []interface{}
	idx := 1
	if f.PatientID != nil {
		where = append(where, fmt.Sprintf("patient_id = $%d", idx))
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DoctorID != nil {
		where = append(where, fmt.Sprintf("doctor_id = $%d", idx))
		args = append(args, *f.DoctorID)
		idx++
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM appointment`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM appointment%s ORDER BY scheduled_at DESC LIMIT $%d OFFSET $%d`,
		apptCols, clause, idx, idx+1)
	rows, err := r.q.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	return scanAppointment(r.q.QueryRow(ctx, `
		UPDATE appointment SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+apptCols, id, string(status)))
}

func (r *repoPG) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	return scanAppointment(r.q.QueryRow(ctx, `
		UPDATE appointment SET consultation_notes = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+apptCols, id, notes))
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) HasCompleted(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE patient_id = $1 AND doctor_id = $2 AND status = 'completed'
		)`, patientID, doctorID).Scan(&ok)
	return ok, err
}
