package models

import (
	"encoding/json"
	"time"
)

// AdmissionStatus captures the workflow state of a durable admission record.
type AdmissionStatus string

const (
	AdmissionStatusPending  AdmissionStatus = "PENDING"
	AdmissionStatusApproved AdmissionStatus = "APPROVED"
	AdmissionStatusRejected AdmissionStatus = "REJECTED"
)

// FeeMode enumerates accepted payment modes.
type FeeMode string

const (
	FeeModeCash   FeeMode = "cash"
	FeeModeOnline FeeMode = "online"
)

// Valid reports whether the mode is a member of the fixed enum.
func (m FeeMode) Valid() bool {
	return m == FeeModeCash || m == FeeModeOnline
}

// PersonalInfo holds the student's personal section.
type PersonalInfo struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	FatherName   string `json:"fatherName"`
	MotherName   string `json:"motherName"`
	DOB          string `json:"dob"`
	Gender       string `json:"gender"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	AltMobile    string `json:"altMobile,omitempty"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Category     string `json:"category,omitempty"`
	Nationality  string `json:"nationality,omitempty"`
	PhotoPath    string `json:"photoPath,omitempty"`
	GuardianName string `json:"guardianName,omitempty"`
}

// CourseSelection holds the course section.
type CourseSelection struct {
	Name     string `json:"name"`
	Stream   string `json:"stream,omitempty"`
	Batch    string `json:"batch,omitempty"`
	Duration string `json:"duration,omitempty"`
	Session  string `json:"session,omitempty"`
}

// EducationRow is one qualification entry. The first row is the 10th/SSC row
// and is mandatory for new submissions.
type EducationRow struct {
	CourseType string `json:"courseType"`
	Board      string `json:"board"`
	School     string `json:"school"`
	YearPassed string `json:"yearPassed"`
	Marks      string `json:"marks"`
	Percentage string `json:"percentage"`
}

// IDNumbers holds government identifier values and document references.
type IDNumbers struct {
	PANNumber     string `json:"panNumber"`
	AadhaarNumber string `json:"aadhaarNumber"`
	PANDocPath    string `json:"panDocPath,omitempty"`
	AadhaarPath   string `json:"aadhaarPath,omitempty"`
}

// CenterInfo names the admission center and routed counselor.
type CenterInfo struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	CounselorEmail string `json:"counselorEmail,omitempty"`
}

// Signatures holds the captured signature images. Student and parent are
// mandatory by policy.
type Signatures struct {
	StudentPath string `json:"studentPath"`
	ParentPath  string `json:"parentPath"`
}

// TermsAcceptance snapshots the terms shown at acceptance time. Text is
// immutable once recorded; it is never re-rendered from a current template.
type TermsAcceptance struct {
	Version    string    `json:"version"`
	Type       string    `json:"type"`
	Text       string    `json:"text"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// PDFRefs stores the derived PDF artifact references. Which one a viewer
// should see is selected by status: approved when APPROVED, pending otherwise.
type PDFRefs struct {
	PendingStudentURL   string `json:"pendingStudentUrl,omitempty"`
	PendingCounselorURL string `json:"pendingCounselorUrl,omitempty"`
	ApprovedURL         string `json:"approvedUrl,omitempty"`
}

// CurrentURL returns the artifact a viewer should be shown for the status.
func (p PDFRefs) CurrentURL(status AdmissionStatus) string {
	if status == AdmissionStatusApproved && p.ApprovedURL != "" {
		return p.ApprovedURL
	}
	return p.PendingStudentURL
}

// EditRequestStatus tracks the correction round-trip on the record.
type EditRequestStatus string

const (
	EditRequestStatusRequested EditRequestStatus = "REQUESTED"
	EditRequestStatusCompleted EditRequestStatus = "COMPLETED"
)

// EditRequest is the audit sub-record mirroring the counselor's correction
// request. It persists independently of the in-memory grant lifecycle.
type EditRequest struct {
	Status      EditRequestStatus `json:"status,omitempty"`
	Sections    []Section         `json:"sections,omitempty"`
	Fields      []string          `json:"fields,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	RequestedAt *time.Time        `json:"requestedAt,omitempty"`
	ResolvedAt  *time.Time        `json:"resolvedAt,omitempty"`
}

// FeeInfo records the counselor's fee hand-off to admin.
type FeeInfo struct {
	Amount       float64    `json:"amount"`
	Mode         FeeMode    `json:"mode"`
	Installments []string   `json:"installments,omitempty"`
	RecordedAt   *time.Time `json:"recordedAt,omitempty"`
}

// Admission is the durable record created at finalization. Nested form groups
// are persisted as JSONB columns; workflow scalars are plain columns.
type Admission struct {
	ID          string          `db:"id" json:"id"`
	Status      AdmissionStatus `db:"status" json:"status"`
	Personal    PersonalInfo    `json:"personal"`
	Course      CourseSelection `json:"course"`
	Education   []EducationRow  `json:"education"`
	IDs         IDNumbers       `json:"ids"`
	Center      CenterInfo      `json:"center"`
	Signatures  Signatures      `json:"signatures"`
	TC          TermsAcceptance `json:"tc"`
	PDF         PDFRefs         `json:"pdf"`
	EditRequest EditRequest     `json:"editRequest"`
	Fees        *FeeInfo        `json:"fees,omitempty"`
	SubmittedAt time.Time       `db:"submitted_at" json:"submittedAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
	ApprovedAt  *time.Time      `db:"approved_at" json:"approvedAt,omitempty"`
}

// HasFee reports whether a fee amount and mode have been recorded, which gates
// the admin approval step.
func (a *Admission) HasFee() bool {
	return a.Fees != nil && a.Fees.Mode.Valid() && a.Fees.RecordedAt != nil
}

// SectionPayload extracts the named section as a JSON-decodable unit. Used by
// the edit merge to copy whole allowed sections.
func (a *Admission) SectionPayload(s Section) interface{} {
	switch s {
	case SectionPersonal:
		return a.Personal
	case SectionCourse:
		return a.Course
	case SectionEducation:
		return a.Education
	case SectionIDs:
		return a.IDs
	case SectionCenter:
		return a.Center
	case SectionUploads:
		return struct {
			Photo   string `json:"photo"`
			PAN     string `json:"pan"`
			Aadhaar string `json:"aadhaar"`
		}{a.Personal.PhotoPath, a.IDs.PANDocPath, a.IDs.AadhaarPath}
	case SectionSignatures:
		return a.Signatures
	}
	return nil
}

// Clone returns a deep copy safe for concurrent snapshot comparison.
func (a *Admission) Clone() *Admission {
	raw, err := json.Marshal(a)
	if err != nil {
		copy := *a
		return &copy
	}
	var out Admission
	if err := json.Unmarshal(raw, &out); err != nil {
		copy := *a
		return &copy
	}
	return &out
}

// Pagination describes list paging metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// AdmissionFilter constrains listing queries.
type AdmissionFilter struct {
	Status []AdmissionStatus
	Center string
	Search string
	Limit  int
	Offset int
}
