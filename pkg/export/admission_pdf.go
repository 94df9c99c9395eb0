package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// PDFVariant selects the audience-specific layout of the admission document.
type PDFVariant string

const (
	// VariantStudent is the pending copy mailed to the student.
	VariantStudent PDFVariant = "student"
	// VariantCounselor adds review metadata for the routed counselor.
	VariantCounselor PDFVariant = "counselor"
	// VariantApproved is the final stamped copy produced on admin approval.
	VariantApproved PDFVariant = "approved"
)

// AdmissionPDF renders admission records into printable documents.
type AdmissionPDF struct{}

// NewAdmissionPDF constructs the renderer.
func NewAdmissionPDF() *AdmissionPDF {
	return &AdmissionPDF{}
}

// Render produces the PDF bytes for the record in the requested variant.
func (e *AdmissionPDF) Render(a *models.Admission, variant PDFVariant) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("pdf requires an admission record")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 14, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, "STUDENT ADMISSION FORM", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	subtitle := fmt.Sprintf("Application %s  |  %s", a.ID, strings.ToUpper(string(variant)))
	pdf.CellFormat(0, 6, subtitle, "", 1, "C", false, 0, "")

	if variant == VariantApproved {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(0, 102, 0)
		pdf.CellFormat(0, 8, "APPROVED", "", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(3)

	e.section(pdf, "Personal Details", [][2]string{
		{"Name", strings.TrimSpace(a.Personal.FirstName + " " + a.Personal.LastName)},
		{"Father's Name", a.Personal.FatherName},
		{"Mother's Name", a.Personal.MotherName},
		{"Date of Birth", a.Personal.DOB},
		{"Gender", a.Personal.Gender},
		{"Email", a.Personal.Email},
		{"Mobile", a.Personal.Mobile},
		{"Address", fmt.Sprintf("%s, %s, %s - %s", a.Personal.Address, a.Personal.City, a.Personal.State, a.Personal.Pincode)},
	})

	e.section(pdf, "Course", [][2]string{
		{"Course", a.Course.Name},
		{"Stream", a.Course.Stream},
		{"Batch", a.Course.Batch},
		{"Session", a.Course.Session},
	})

	e.educationTable(pdf, a.Education)

	e.section(pdf, "Identification", [][2]string{
		{"PAN", a.IDs.PANNumber},
		{"Aadhaar", a.IDs.AadhaarNumber},
	})

	e.section(pdf, "Center", [][2]string{
		{"Code", a.Center.Code},
		{"Name", a.Center.Name},
	})

	if variant == VariantCounselor {
		rows := [][2]string{
			{"Status", string(a.Status)},
			{"Submitted", a.SubmittedAt.Format(time.RFC822)},
		}
		if a.Fees != nil {
			rows = append(rows, [2]string{"Fee", fmt.Sprintf("%.2f (%s)", a.Fees.Amount, a.Fees.Mode)})
		}
		if a.EditRequest.Status != "" {
			rows = append(rows, [2]string{"Edit Request", string(a.EditRequest.Status)})
		}
		e.section(pdf, "Review", rows)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.MultiCell(0, 4, truncate(a.TC.Text, 1600), "", "L", false)
	pdf.Ln(2)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Terms v%s accepted on %s", a.TC.Version, a.TC.AcceptedAt.Format("02 Jan 2006 15:04")), "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render admission pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *AdmissionPDF) section(pdf *gofpdf.Fpdf, title string, rows [][2]string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.CellFormat(48, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
}

func (e *AdmissionPDF) educationTable(pdf *gofpdf.Fpdf, rows []models.EducationRow) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "Education", "B", 1, "L", false, 0, "")

	headers := []string{"Qualification", "Board", "School", "Year", "Marks", "%"}
	widths := []float64{34, 34, 52, 20, 24, 20}
	pdf.SetFont("Arial", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		cells := []string{row.CourseType, row.Board, row.School, row.YearPassed, row.Marks, row.Percentage}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 6, truncate(cell, 30), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
