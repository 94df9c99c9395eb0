package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// AdmissionRepository persists durable admission records. Nested form groups
// live in JSONB columns; workflow scalars are plain columns so status
// transitions can be guarded in SQL.
type AdmissionRepository struct {
	db *sqlx.DB
}

// NewAdmissionRepository constructs the repository.
func NewAdmissionRepository(db *sqlx.DB) *AdmissionRepository {
	return &AdmissionRepository{db: db}
}

type admissionRow struct {
	ID          string     `db:"id"`
	Status      string     `db:"status"`
	Personal    []byte     `db:"personal"`
	Course      []byte     `db:"course"`
	Education   []byte     `db:"education"`
	IDs         []byte     `db:"ids"`
	Center      []byte     `db:"center"`
	Signatures  []byte     `db:"signatures"`
	TC          []byte     `db:"tc"`
	PDF         []byte     `db:"pdf"`
	EditRequest []byte     `db:"edit_request"`
	Fees        []byte     `db:"fees"`
	SubmittedAt time.Time  `db:"submitted_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	ApprovedAt  *time.Time `db:"approved_at"`
}

const admissionColumns = `id, status, personal, course, education, ids, center, signatures, tc, pdf, edit_request, fees, submitted_at, updated_at, approved_at`

func toRow(a *models.Admission) (*admissionRow, error) {
	row := &admissionRow{
		ID:          a.ID,
		Status:      string(a.Status),
		SubmittedAt: a.SubmittedAt,
		UpdatedAt:   a.UpdatedAt,
		ApprovedAt:  a.ApprovedAt,
	}
	groups := []struct {
		dst *[]byte
		src interface{}
	}{
		{&row.Personal, a.Personal},
		{&row.Course, a.Course},
		{&row.Education, a.Education},
		{&row.IDs, a.IDs},
		{&row.Center, a.Center},
		{&row.Signatures, a.Signatures},
		{&row.TC, a.TC},
		{&row.PDF, a.PDF},
		{&row.EditRequest, a.EditRequest},
	}
	for _, g := range groups {
		raw, err := json.Marshal(g.src)
		if err != nil {
			return nil, fmt.Errorf("encode admission group: %w", err)
		}
		*g.dst = raw
	}
	if a.Fees != nil {
		raw, err := json.Marshal(a.Fees)
		if err != nil {
			return nil, fmt.Errorf("encode admission fees: %w", err)
		}
		row.Fees = raw
	}
	return row, nil
}

func fromRow(row *admissionRow) (*models.Admission, error) {
	a := &models.Admission{
		ID:          row.ID,
		Status:      models.AdmissionStatus(row.Status),
		SubmittedAt: row.SubmittedAt,
		UpdatedAt:   row.UpdatedAt,
		ApprovedAt:  row.ApprovedAt,
	}
	groups := []struct {
		src []byte
		dst interface{}
	}{
		{row.Personal, &a.Personal},
		{row.Course, &a.Course},
		{row.Education, &a.Education},
		{row.IDs, &a.IDs},
		{row.Center, &a.Center},
		{row.Signatures, &a.Signatures},
		{row.TC, &a.TC},
		{row.PDF, &a.PDF},
		{row.EditRequest, &a.EditRequest},
	}
	for _, g := range groups {
		if len(g.src) == 0 {
			continue
		}
		if err := json.Unmarshal(g.src, g.dst); err != nil {
			return nil, fmt.Errorf("decode admission group: %w", err)
		}
	}
	if len(row.Fees) > 0 {
		var fees models.FeeInfo
		if err := json.Unmarshal(row.Fees, &fees); err != nil {
			return nil, fmt.Errorf("decode admission fees: %w", err)
		}
		a.Fees = &fees
	}
	return a, nil
}

// Create inserts a new admission record.
func (r *AdmissionRepository) Create(ctx context.Context, a *models.Admission) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.AdmissionStatusPending
	}
	now := time.Now().UTC()
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = now
	}
	a.UpdatedAt = now

	row, err := toRow(a)
	if err != nil {
		return err
	}
	const query = `INSERT INTO admissions
	(id, status, personal, course, education, ids, center, signatures, tc, pdf, edit_request, fees, submitted_at, updated_at, approved_at)
	VALUES (:id, :status, :personal, :course, :education, :ids, :center, :signatures, :tc, :pdf, :edit_request, :fees, :submitted_at, :updated_at, :approved_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("create admission: %w", err)
	}
	return nil
}

// GetByID fetches an admission by identifier.
func (r *AdmissionRepository) GetByID(ctx context.Context, id string) (*models.Admission, error) {
	query := fmt.Sprintf(`SELECT %s FROM admissions WHERE id = $1`, admissionColumns)
	var row admissionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return fromRow(&row)
}

// List returns admissions matching the filter, newest first.
func (r *AdmissionRepository) List(ctx context.Context, filter models.AdmissionFilter) ([]models.Admission, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM admissions`, admissionColumns))

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Center != "" {
		args = append(args, filter.Center)
		conditions = append(conditions, fmt.Sprintf("center->>'code' = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("lower(personal->>'firstName' || ' ' || personal->>'lastName') LIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submitted_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var rows []admissionRow
	if err := r.db.SelectContext(ctx, &rows, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list admissions: %w", err)
	}
	out := make([]models.Admission, 0, len(rows))
	for i := range rows {
		a, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// UpdateSections overwrites the form-group columns after an edit merge,
// stamps the resolved edit request, and resets the record to PENDING.
func (r *AdmissionRepository) UpdateSections(ctx context.Context, a *models.Admission) error {
	a.UpdatedAt = time.Now().UTC()
	row, err := toRow(a)
	if err != nil {
		return err
	}
	const query = `UPDATE admissions SET
	status = :status, personal = :personal, course = :course, education = :education,
	ids = :ids, center = :center, signatures = :signatures, pdf = :pdf,
	edit_request = :edit_request, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update admission sections: %w", err)
	}
	return requireRows(result, "update admission sections")
}

// SetEditRequest mirrors a counselor correction request onto the record.
func (r *AdmissionRepository) SetEditRequest(ctx context.Context, id string, req models.EditRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode edit request: %w", err)
	}
	const query = `UPDATE admissions SET edit_request = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, raw, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set edit request: %w", err)
	}
	return requireRows(result, "set edit request")
}

// SetFee records the counselor's fee hand-off. Guarded to PENDING records:
// fee details cannot be attached after approval.
func (r *AdmissionRepository) SetFee(ctx context.Context, id string, fees models.FeeInfo) error {
	raw, err := json.Marshal(fees)
	if err != nil {
		return fmt.Errorf("encode fees: %w", err)
	}
	query := fmt.Sprintf(`UPDATE admissions SET fees = $1, updated_at = $2 WHERE id = $3 AND status = '%s'`, models.AdmissionStatusPending)
	result, err := r.db.ExecContext(ctx, query, raw, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set admission fee: %w", err)
	}
	return requireRows(result, "set admission fee")
}

// SetApproved flips the record to APPROVED and stores the approved artifact.
// Re-approval is permitted: the WHERE clause only excludes rejected records.
func (r *AdmissionRepository) SetApproved(ctx context.Context, id string, pdf models.PDFRefs, approvedAt time.Time) error {
	raw, err := json.Marshal(pdf)
	if err != nil {
		return fmt.Errorf("encode pdf refs: %w", err)
	}
	query := fmt.Sprintf(`UPDATE admissions SET status = '%s', pdf = $1, approved_at = $2, updated_at = $3 WHERE id = $4 AND status <> '%s'`,
		models.AdmissionStatusApproved, models.AdmissionStatusRejected)
	result, err := r.db.ExecContext(ctx, query, raw, approvedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("approve admission: %w", err)
	}
	return requireRows(result, "approve admission")
}

// UpdatePDFRefs overwrites the artifact references after regeneration.
func (r *AdmissionRepository) UpdatePDFRefs(ctx context.Context, id string, pdf models.PDFRefs) error {
	raw, err := json.Marshal(pdf)
	if err != nil {
		return fmt.Errorf("encode pdf refs: %w", err)
	}
	const query = `UPDATE admissions SET pdf = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, raw, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update pdf refs: %w", err)
	}
	return requireRows(result, "update pdf refs")
}

func requireRows(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
