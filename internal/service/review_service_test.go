package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admission-api/internal/models"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
)

func (r *stubAdmissionRepo) SetFee(_ context.Context, id string, fees models.FeeInfo) error {
	record, ok := r.records[id]
	if !ok || record.Status != models.AdmissionStatusPending {
		return sql.ErrNoRows
	}
	record.Fees = &fees
	return nil
}

func (r *stubAdmissionRepo) SetApproved(_ context.Context, id string, pdf models.PDFRefs, approvedAt time.Time) error {
	record, ok := r.records[id]
	if !ok || record.Status == models.AdmissionStatusRejected {
		return sql.ErrNoRows
	}
	record.Status = models.AdmissionStatusApproved
	record.PDF = pdf
	record.ApprovedAt = &approvedAt
	return nil
}

func (r *stubAdmissionRepo) UpdatePDFRefs(_ context.Context, id string, pdf models.PDFRefs) error {
	record, ok := r.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	record.PDF = pdf
	return nil
}

type stubRenderer struct {
	pendingErr  error
	approvedErr error
}

func (s *stubRenderer) RenderPending(_ context.Context, a *models.Admission) (string, string, error) {
	if s.pendingErr != nil {
		return "", "", s.pendingErr
	}
	return "http://example.com/files/student", "http://example.com/files/counselor", nil
}

func (s *stubRenderer) RenderApproved(_ context.Context, a *models.Admission) (string, error) {
	if s.approvedErr != nil {
		return "", s.approvedErr
	}
	return "http://example.com/files/approved", nil
}

func newReviewServiceForTest(t *testing.T, repo *stubAdmissionRepo, renderer *stubRenderer) (*ReviewService, *stubNotifier) {
	t.Helper()
	dispatch := &stubNotifier{}
	svc := NewReviewService(repo, renderer, dispatch, NewLocker(), "http://forms.example.com", "admin@example.com", nil)
	return svc, dispatch
}

func recordedFee() *models.FeeInfo {
	now := time.Now().UTC()
	return &models.FeeInfo{Amount: 25000, Mode: models.FeeModeCash, RecordedAt: &now}
}

func TestReviewDataNotFound(t *testing.T) {
	svc, _ := newReviewServiceForTest(t, newStubAdmissionRepo(), &stubRenderer{})

	_, err := svc.ReviewData(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestReviewDataProjection(t *testing.T) {
	record := sampleAdmission("adm-1")
	now := time.Now().UTC()
	record.EditRequest = models.EditRequest{
		Status:      models.EditRequestStatusRequested,
		Sections:    []models.Section{models.SectionCourse},
		Fields:      []string{"pf_email", "up_photo"},
		Notes:       "fix contact details",
		RequestedAt: &now,
	}
	record.PDF = models.PDFRefs{PendingStudentURL: "http://example.com/files/pending"}
	repo := newStubAdmissionRepo(record)
	svc, _ := newReviewServiceForTest(t, repo, &stubRenderer{})

	projection, err := svc.ReviewData(context.Background(), "adm-1")
	require.NoError(t, err)

	assert.False(t, projection.CanApprove)
	assert.Equal(t, "http://example.com/files/pending", projection.PDFURL)
	assert.Equal(t, "fix contact details", projection.Notes)
	assert.ElementsMatch(t, []string{"pf_email", "up_photo"}, projection.FlaggedFields)
	// Flagged sections cover the explicit mark plus sections implied by
	// flagged fields.
	assert.ElementsMatch(t,
		[]models.Section{models.SectionCourse, models.SectionPersonal, models.SectionUploads},
		projection.FlaggedSections)
}

func TestReviewDataCanApproveWithFee(t *testing.T) {
	record := sampleAdmission("adm-1")
	record.Fees = recordedFee()
	svc, _ := newReviewServiceForTest(t, newStubAdmissionRepo(record), &stubRenderer{})

	projection, err := svc.ReviewData(context.Background(), "adm-1")
	require.NoError(t, err)
	assert.True(t, projection.CanApprove)
}

func TestSubmitToAdminRejectsInvalidFee(t *testing.T) {
	record := sampleAdmission("adm-1")
	svc, dispatch := newReviewServiceForTest(t, newStubAdmissionRepo(record), &stubRenderer{})

	err := svc.SubmitToAdmin(context.Background(), "adm-1", -1, "cash")
	require.ErrorIs(t, err, appErrors.ErrInvalidFee)

	err = svc.SubmitToAdmin(context.Background(), "adm-1", math.NaN(), "cash")
	require.ErrorIs(t, err, appErrors.ErrInvalidFee)

	err = svc.SubmitToAdmin(context.Background(), "adm-1", 25000, "cheque")
	require.ErrorIs(t, err, appErrors.ErrInvalidFeeMode)

	assert.Empty(t, dispatch.mails)
}

func TestSubmitToAdminRecordsFeeAndNotifies(t *testing.T) {
	record := sampleAdmission("adm-1")
	repo := newStubAdmissionRepo(record)
	svc, dispatch := newReviewServiceForTest(t, repo, &stubRenderer{})

	err := svc.SubmitToAdmin(context.Background(), "adm-1", 25000, "online")
	require.NoError(t, err)

	stored := repo.records["adm-1"]
	require.NotNil(t, stored.Fees)
	assert.Equal(t, 25000.0, stored.Fees.Amount)
	assert.Equal(t, models.FeeModeOnline, stored.Fees.Mode)
	require.NotNil(t, stored.Fees.RecordedAt)
	assert.Equal(t, models.AdmissionStatusPending, stored.Status)

	require.Len(t, dispatch.mails, 1)
	mail := dispatch.mails[0]
	assert.Equal(t, []string{"admin@example.com"}, mail.To)
	assert.Contains(t, mail.Body, "/admissions/adm-1/approve")
	assert.Contains(t, mail.Body, "25000.00")
}

func TestSubmitToAdminConflictsWhenNotPending(t *testing.T) {
	record := sampleAdmission("adm-1")
	record.Status = models.AdmissionStatusApproved
	svc, _ := newReviewServiceForTest(t, newStubAdmissionRepo(record), &stubRenderer{})

	err := svc.SubmitToAdmin(context.Background(), "adm-1", 25000, "cash")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestApproveRequiresRecordedFee(t *testing.T) {
	record := sampleAdmission("adm-1")
	repo := newStubAdmissionRepo(record)
	svc, dispatch := newReviewServiceForTest(t, repo, &stubRenderer{})

	_, err := svc.Approve(context.Background(), "adm-1")
	require.ErrorIs(t, err, appErrors.ErrFeeNotRecorded)
	assert.Equal(t, models.AdmissionStatusPending, repo.records["adm-1"].Status)
	assert.Empty(t, dispatch.mails)
}

func TestApproveFlipsRecordAndNotifies(t *testing.T) {
	record := sampleAdmission("adm-1")
	record.Fees = recordedFee()
	repo := newStubAdmissionRepo(record)
	svc, dispatch := newReviewServiceForTest(t, repo, &stubRenderer{})

	approved, err := svc.Approve(context.Background(), "adm-1")
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "http://example.com/files/approved", approved.PDF.ApprovedURL)

	stored := repo.records["adm-1"]
	assert.Equal(t, models.AdmissionStatusApproved, stored.Status)

	assert.Equal(t, string(models.AdmissionStatusApproved), dispatch.statusFlips["adm-1"])
	require.Len(t, dispatch.mails, 1)
	assert.Equal(t, []string{"asha@example.com"}, dispatch.mails[0].To)
	assert.Contains(t, dispatch.mails[0].Body, "approved")
}

func TestApproveFailsClosedOnRenderError(t *testing.T) {
	record := sampleAdmission("adm-1")
	record.Fees = recordedFee()
	repo := newStubAdmissionRepo(record)
	svc, dispatch := newReviewServiceForTest(t, repo, &stubRenderer{approvedErr: errors.New("renderer down")})

	_, err := svc.Approve(context.Background(), "adm-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrArtifactGeneration.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.AdmissionStatusPending, repo.records["adm-1"].Status)
	assert.Empty(t, dispatch.mails)
}

func TestApproveRejectedRecordConflicts(t *testing.T) {
	record := sampleAdmission("adm-1")
	record.Status = models.AdmissionStatusRejected
	record.Fees = recordedFee()
	svc, _ := newReviewServiceForTest(t, newStubAdmissionRepo(record), &stubRenderer{})

	_, err := svc.Approve(context.Background(), "adm-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
