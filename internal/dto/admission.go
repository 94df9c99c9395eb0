package dto

import (
	"encoding/json"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// DraftPayload is the structured form data submitted at init, before any
// uploads are attached. Field tags drive go-playground validation.
type DraftPayload struct {
	Personal  models.PersonalInfo    `json:"personal" validate:"required"`
	Course    models.CourseSelection `json:"course" validate:"required"`
	Education []models.EducationRow  `json:"education" validate:"required,min=1,dive"`
	IDs       models.IDNumbers       `json:"ids"`
	Center    models.CenterInfo      `json:"center" validate:"required"`
	TC        TermsPayload           `json:"tc" validate:"required"`
}

// TermsPayload carries the accepted terms snapshot from the client.
type TermsPayload struct {
	Version string `json:"version" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Text    string `json:"text" validate:"required"`
}

// InitResponse returns the opaque pending session id.
type InitResponse struct {
	PendingID string `json:"pendingId"`
}

// VerifyRequest confirms one OTP channel for a pending session.
type VerifyRequest struct {
	PendingID string `json:"pendingId" binding:"required"`
	OTP       string `json:"otp" binding:"required"`
	Channel   string `json:"channel" binding:"required,oneof=mobile email"`
}

// Verification step markers returned to the client.
const (
	StepMobileVerified = "mobile-verified"
	StepCompleted      = "completed"
)

// VerifyResponse reports the verification progress. ID and PDFURL are only
// set once the submission is finalized.
type VerifyResponse struct {
	Step   string `json:"step"`
	ID     string `json:"id,omitempty"`
	PDFURL string `json:"pdfUrl,omitempty"`
}

// RequestEditRequest is the counselor's correction request: whole sections
// plus per-field ok/fix verdicts.
type RequestEditRequest struct {
	Sections []string          `json:"sections"`
	Fields   map[string]string `json:"fields"`
	Notes    string            `json:"notes"`
}

// EditDataResponse is the prefill payload served to the student edit form.
type EditDataResponse struct {
	Admission       *models.Admission `json:"admission"`
	AllowedSections []models.Section  `json:"allowedSections"`
	AllowedFields   []string          `json:"allowedFields"`
}

// ApplyEditRequest carries the student's partial resubmission. Updated holds
// section-keyed JSON; sections outside the grant are ignored server-side.
type ApplyEditRequest struct {
	Updated json.RawMessage `json:"updated" binding:"required"`
}

// ApplyEditResponse acknowledges a consumed edit window.
type ApplyEditResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// SubmitToAdminRequest is the counselor fee hand-off (form-encoded).
type SubmitToAdminRequest struct {
	FeeAmount float64 `form:"feeAmount" json:"feeAmount"`
	FeeMode   string  `form:"feeMode" json:"feeMode"`
}

// ReviewProjection is the pure data view consumed by any review renderer.
type ReviewProjection struct {
	Admission       *models.Admission  `json:"admission"`
	FlaggedSections []models.Section   `json:"flaggedSections"`
	FlaggedFields   []string           `json:"flaggedFields"`
	Notes           string             `json:"notes,omitempty"`
	PDFURL          string             `json:"pdfUrl"`
	CanApprove      bool               `json:"canApprove"`
	EditRequest     models.EditRequest `json:"editRequest"`
}
