package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint failure.
const uniqueViolation = "23505"

// PostgresProvider serves every repository from one PostgreSQL database.
type PostgresProvider struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.DataProvider = (*PostgresProvider)(nil)

// NewPostgresProvider wraps an open database handle. cb may be nil.
func NewPostgresProvider(db *sql.DB, cb *gobreaker.CircuitBreaker) *PostgresProvider {
	return &PostgresProvider{db: db, cb: cb}
}

func (p *PostgresProvider) Clinics() ports.ClinicRepository               { return sqlClinics{p.db} }
func (p *PostgresProvider) Patients() ports.PatientRepository             { return sqlPatients{p.db} }
func (p *PostgresProvider) Staff() ports.StaffRepository                  { return sqlStaff{p.db} }
func (p *PostgresProvider) TreatmentItems() ports.TreatmentItemRepository { return sqlItems{p.db} }
func (p *PostgresProvider) TreatmentPlans() ports.TreatmentPlanRepository { return sqlPlans{p.db} }
func (p *PostgresProvider) Chat() ports.ChatRepository                    { return sqlChat{p.db} }

// Ping checks connectivity through the circuit breaker so a failing database
// reports unready without piling up connection attempts.
func (p *PostgresProvider) Ping(ctx context.Context) error {
	if p.cb == nil {
		return p.db.PingContext(ctx)
	}
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.db.PingContext(ctx)
	})
	return err
}

// translate maps driver errors onto domain errors.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, domain.ErrConflict)
	}
	return err
}

func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type sqlClinics struct{ db *sql.DB }

func (r sqlClinics) FindByID(ctx context.Context, id string) (*domain.Clinic, error) {
	var c domain.Clinic
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, location, created_at, updated_at FROM clinics WHERE id = $1", id,
	).Scan(&c.ID, &c.Name, &c.Location, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translate(err, "clinic")
	}
	return &c, nil
}

const patientColumns = `id, patient_number, name, birth_date, clinic_id, current_passcode,
	passcode_expires_at, email, phone, address, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*domain.Patient, error) {
	var p domain.Patient
	err := row.Scan(&p.ID, &p.PatientNumber, &p.Name, &p.BirthDate, &p.ClinicID, &p.CurrentPasscode,
		&p.PasscodeExpiresAt, &p.Email, &p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type sqlPatients struct{ db *sql.DB }

func (r sqlPatients) FindByCredentials(ctx context.Context, patientNumber, passcode string) (*domain.Patient, error) {
	p, err := scanPatient(r.db.QueryRowContext(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE patient_number = $1 AND current_passcode = $2 LIMIT 1",
		patientNumber, passcode))
	if err != nil {
		return nil, translate(err, "patient")
	}
	return p, nil
}

func (r sqlPatients) FindByID(ctx context.Context, id string) (*domain.Patient, error) {
	p, err := scanPatient(r.db.QueryRowContext(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE id = $1", id))
	if err != nil {
		return nil, translate(err, "patient")
	}
	return p, nil
}

func (r sqlPatients) ListByClinic(ctx context.Context, clinicID string) ([]domain.Patient, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE clinic_id = $1 ORDER BY patient_number", clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r sqlPatients) Create(ctx context.Context, p domain.Patient) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO patients ("+patientColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)",
		p.ID, p.PatientNumber, p.Name, p.BirthDate, p.ClinicID, p.CurrentPasscode,
		p.PasscodeExpiresAt, p.Email, p.Phone, p.Address, p.CreatedAt, p.UpdatedAt,
	)
	return translate(err, "patient number "+p.PatientNumber)
}

func (r sqlPatients) UpdatePasscode(ctx context.Context, id, passcode string, expiresAt, updatedAt time.Time) error {
	return requireRow(r.db.ExecContext(ctx,
		"UPDATE patients SET current_passcode = $2, passcode_expires_at = $3, updated_at = $4 WHERE id = $1",
		id, passcode, expiresAt, updatedAt,
	))
}

const staffColumns = "id, name, email, clinic_id, role, approved, password_hash, created_at, updated_at"

func scanStaff(row rowScanner) (*domain.Staff, error) {
	var s domain.Staff
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.ClinicID, &s.Role, &s.Approved, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type sqlStaff struct{ db *sql.DB }

func (r sqlStaff) FindByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	s, err := scanStaff(r.db.QueryRowContext(ctx, "SELECT "+staffColumns+" FROM staff WHERE email = $1", email))
	if err != nil {
		return nil, translate(err, "staff")
	}
	return s, nil
}

func (r sqlStaff) FindByID(ctx context.Context, id string) (*domain.Staff, error) {
	s, err := scanStaff(r.db.QueryRowContext(ctx, "SELECT "+staffColumns+" FROM staff WHERE id = $1", id))
	if err != nil {
		return nil, translate(err, "staff")
	}
	return s, nil
}

func (r sqlStaff) ListByClinic(ctx context.Context, clinicID string, approved bool) ([]domain.Staff, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+staffColumns+" FROM staff WHERE clinic_id = $1 AND approved = $2 ORDER BY created_at, id",
		clinicID, approved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Staff, 0)
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// Create inserts the staff row and its outbox event in one transaction; the
// outbox trigger then notifies the relay.
func (r sqlStaff) Create(ctx context.Context, s domain.Staff, outboxPayload []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO staff ("+staffColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		s.ID, s.Name, s.Email, s.ClinicID, s.Role, s.Approved, s.PasswordHash, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return translate(err, "staff email "+s.Email)
	}

	if outboxPayload != nil {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO outbox_events (id, event_type, payload, created_at) VALUES ($1, $2, $3, $4)",
			uuid.New(), ports.StaffRegisteredEventType, outboxPayload, s.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r sqlStaff) Approve(ctx context.Context, id string, at time.Time) error {
	return requireRow(r.db.ExecContext(ctx,
		"UPDATE staff SET approved = TRUE, updated_at = $2 WHERE id = $1", id, at))
}

func (r sqlStaff) DeletePending(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx,
		"DELETE FROM staff WHERE id = $1 AND approved = FALSE", id))
}

const itemColumns = "id, clinic_id, internal_name, patient_name, category, description, sort_order, active, created_at, updated_at"

type sqlItems struct{ db *sql.DB }

func (r sqlItems) ListByClinic(ctx context.Context, clinicID string) ([]domain.TreatmentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM treatment_items WHERE clinic_id = $1 ORDER BY sort_order, id", clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.TreatmentItem, 0)
	for rows.Next() {
		var it domain.TreatmentItem
		if err := rows.Scan(&it.ID, &it.ClinicID, &it.InternalName, &it.PatientName, &it.Category,
			&it.Description, &it.Order, &it.Active, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r sqlItems) Count(ctx context.Context, clinicID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM treatment_items WHERE clinic_id = $1", clinicID).Scan(&n)
	return n, err
}

// Create inserts all items or none.
func (r sqlItems) Create(ctx context.Context, items ...domain.TreatmentItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO treatment_items ("+itemColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, it.ID, it.ClinicID, it.InternalName, it.PatientName, it.Category,
			it.Description, it.Order, it.Active, it.CreatedAt, it.UpdatedAt); err != nil {
			return translate(err, "treatment item "+it.ID)
		}
	}
	return tx.Commit()
}

func (r sqlItems) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	return requireRow(r.db.ExecContext(ctx,
		"UPDATE treatment_items SET active = $2, updated_at = $3 WHERE id = $1", id, active, at))
}

func (r sqlItems) Delete(ctx context.Context, id string) error {
	return requireRow(r.db.ExecContext(ctx, "DELETE FROM treatment_items WHERE id = $1", id))
}

const planColumns = "id, patient_id, created_by, staff_name, title, notes, status, created_at, updated_at"

type sqlPlans struct{ db *sql.DB }

func (r sqlPlans) FindByPatient(ctx context.Context, patientID string) (*domain.TreatmentPlan, error) {
	return r.find(ctx, "patient_id", patientID)
}

func (r sqlPlans) FindByID(ctx context.Context, id string) (*domain.TreatmentPlan, error) {
	return r.find(ctx, "id", id)
}

func (r sqlPlans) find(ctx context.Context, column, value string) (*domain.TreatmentPlan, error) {
	var pl domain.TreatmentPlan
	err := r.db.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM treatment_plans WHERE "+column+" = $1", value,
	).Scan(&pl.ID, &pl.PatientID, &pl.CreatedBy, &pl.StaffName, &pl.Title, &pl.Notes, &pl.Status, &pl.CreatedAt, &pl.UpdatedAt)
	if err != nil {
		return nil, translate(err, "treatment plan")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, treatment_item_id, tooth_number, estimated_sessions, scheduled_date,
		       notes, completed, completed_date, sort_order
		FROM treatment_plan_items WHERE plan_id = $1 ORDER BY sort_order`, pl.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pl.Items = make([]domain.TreatmentPlanItem, 0)
	for rows.Next() {
		var it domain.TreatmentPlanItem
		var scheduled, completed sql.NullTime
		if err := rows.Scan(&it.ID, &it.TreatmentItemID, &it.ToothNumber, &it.EstimatedSessions, &scheduled,
			&it.Notes, &it.Completed, &completed, &it.Order); err != nil {
			return nil, err
		}
		it.ScheduledDate = timePtr(scheduled)
		it.CompletedDate = timePtr(completed)
		pl.Items = append(pl.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &pl, nil
}

func (r sqlPlans) Create(ctx context.Context, pl domain.TreatmentPlan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO treatment_plans ("+planColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		pl.ID, pl.PatientID, pl.CreatedBy, pl.StaffName, pl.Title, pl.Notes, pl.Status, pl.CreatedAt, pl.UpdatedAt,
	)
	if err != nil {
		return translate(err, "treatment plan for patient "+pl.PatientID)
	}
	if err := insertPlanItems(ctx, tx, pl); err != nil {
		return err
	}
	return tx.Commit()
}

func (r sqlPlans) Save(ctx context.Context, pl domain.TreatmentPlan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = requireRow(tx.ExecContext(ctx,
		"UPDATE treatment_plans SET title = $2, notes = $3, status = $4, updated_at = $5 WHERE id = $1",
		pl.ID, pl.Title, pl.Notes, pl.Status, pl.UpdatedAt,
	))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM treatment_plan_items WHERE plan_id = $1", pl.ID); err != nil {
		return err
	}
	if err := insertPlanItems(ctx, tx, pl); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPlanItems(ctx context.Context, tx *sql.Tx, pl domain.TreatmentPlan) error {
	for _, it := range pl.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO treatment_plan_items (id, plan_id, treatment_item_id, tooth_number, estimated_sessions,
				scheduled_date, notes, completed, completed_date, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			it.ID, pl.ID, it.TreatmentItemID, it.ToothNumber, it.EstimatedSessions,
			nullTime(it.ScheduledDate), it.Notes, it.Completed, nullTime(it.CompletedDate), it.Order,
		)
		if err != nil {
			return translate(err, "treatment plan item "+it.ID)
		}
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type sqlChat struct{ db *sql.DB }

func (r sqlChat) Recent(ctx context.Context, patientID string, limit int) ([]domain.ChatMessage, error) {
	return r.query(ctx,
		"SELECT id, patient_id, role, content, created_at FROM chat_messages WHERE patient_id = $1 ORDER BY seq DESC LIMIT $2",
		patientID, limit)
}

func (r sqlChat) Transcript(ctx context.Context, patientID string) ([]domain.ChatMessage, error) {
	return r.query(ctx,
		"SELECT id, patient_id, role, content, created_at FROM chat_messages WHERE patient_id = $1 ORDER BY seq",
		patientID)
}

func (r sqlChat) query(ctx context.Context, q string, args ...any) ([]domain.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.PatientID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r sqlChat) Append(ctx context.Context, m domain.ChatMessage) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chat_messages (id, patient_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)",
		m.ID, m.PatientID, m.Role, m.Content, m.CreatedAt)
	return err
}

func (r sqlChat) Summaries(ctx context.Context, patientID string) ([]domain.ChatSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, summary_text, generated_at, generated_by
		FROM chat_summaries WHERE patient_id = $1 ORDER BY generated_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChatSummary, 0)
	for rows.Next() {
		var s domain.ChatSummary
		if err := rows.Scan(&s.ID, &s.PatientID, &s.SummaryText, &s.GeneratedAt, &s.GeneratedBy); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r sqlChat) SaveSummary(ctx context.Context, s domain.ChatSummary) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chat_summaries (id, patient_id, summary_text, generated_at, generated_by) VALUES ($1, $2, $3, $4, $5)",
		s.ID, s.PatientID, s.SummaryText, s.GeneratedAt, s.GeneratedBy)
	return err
}
