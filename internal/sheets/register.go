package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// Row is one admission entry in the bookkeeping register. Rows are a derived
// mirror of the durable record: regenerated as a whole, never hand-patched.
type Row struct {
	AdmissionID string
	Name        string
	Email       string
	Mobile      string
	Course      string
	Center      string
	Status      string
	FeeAmount   string
	FeeMode     string
	SubmittedAt string
	UpdatedAt   string
}

// FromAdmission projects a record into a register row.
func FromAdmission(a *models.Admission) Row {
	row := Row{
		AdmissionID: a.ID,
		Name:        a.Personal.FirstName + " " + a.Personal.LastName,
		Email:       a.Personal.Email,
		Mobile:      a.Personal.Mobile,
		Course:      a.Course.Name,
		Center:      a.Center.Name,
		Status:      string(a.Status),
		SubmittedAt: a.SubmittedAt.Format(time.RFC3339),
		UpdatedAt:   a.UpdatedAt.Format(time.RFC3339),
	}
	if a.Fees != nil {
		row.FeeAmount = fmt.Sprintf("%.2f", a.Fees.Amount)
		row.FeeMode = string(a.Fees.Mode)
	}
	return row
}

// Register mirrors admissions into an external spreadsheet. Implementations
// are bookkeeping sinks: every write is best-effort from the caller's view.
type Register interface {
	Append(ctx context.Context, row Row) error
	Update(ctx context.Context, admissionID string, row Row) error
	SetStatus(ctx context.Context, admissionID, status string) error
}

var headers = []string{"admission_id", "name", "email", "mobile", "course", "center", "status", "fee_amount", "fee_mode", "submitted_at", "updated_at"}

// CSVRegister is a file-backed register. A Sheets API client satisfies the
// same interface for hosted spreadsheets.
type CSVRegister struct {
	mu   sync.Mutex
	path string
}

// NewCSVRegister ensures the register file exists with headers.
func NewCSVRegister(path string) (*CSVRegister, error) {
	if path == "" {
		path = "./data/register.csv"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare register directory: %w", err)
	}
	r := &CSVRegister{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := r.writeAll(nil); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Append adds a new row.
func (r *CSVRegister) Append(_ context.Context, row Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.readAll()
	if err != nil {
		return err
	}
	rows = append(rows, row)
	return r.writeAll(rows)
}

// Update replaces the full row for the admission id. Missing rows are
// appended so the mirror converges even if the original append was lost.
func (r *CSVRegister) Update(_ context.Context, admissionID string, row Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.readAll()
	if err != nil {
		return err
	}
	replaced := false
	for i := range rows {
		if rows[i].AdmissionID == admissionID {
			rows[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, row)
	}
	return r.writeAll(rows)
}

// SetStatus flips only the status cell of the admission's row.
func (r *CSVRegister) SetStatus(_ context.Context, admissionID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.readAll()
	if err != nil {
		return err
	}
	for i := range rows {
		if rows[i].AdmissionID == admissionID {
			rows[i].Status = status
			rows[i].UpdatedAt = time.Now().UTC().Format(time.RFC3339)
			return r.writeAll(rows)
		}
	}
	return fmt.Errorf("register row not found for admission %s", admissionID)
}

func (r *CSVRegister) readAll() ([]Row, error) {
	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open register: %w", err)
	}
	defer file.Close() //nolint:errcheck

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read register: %w", err)
	}
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < len(headers) {
			continue
		}
		rows = append(rows, Row{
			AdmissionID: rec[0], Name: rec[1], Email: rec[2], Mobile: rec[3],
			Course: rec[4], Center: rec[5], Status: rec[6],
			FeeAmount: rec[7], FeeMode: rec[8], SubmittedAt: rec[9], UpdatedAt: rec[10],
		})
	}
	return rows, nil
}

func (r *CSVRegister) writeAll(rows []Row) error {
	tmp := r.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create register: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		file.Close() //nolint:errcheck
		return fmt.Errorf("write register headers: %w", err)
	}
	for _, row := range rows {
		rec := []string{
			row.AdmissionID, row.Name, row.Email, row.Mobile,
			row.Course, row.Center, row.Status,
			row.FeeAmount, row.FeeMode, row.SubmittedAt, row.UpdatedAt,
		}
		if err := writer.Write(rec); err != nil {
			file.Close() //nolint:errcheck
			return fmt.Errorf("write register row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close() //nolint:errcheck
		return fmt.Errorf("flush register: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close register: %w", err)
	}
	return os.Rename(tmp, r.path)
}
