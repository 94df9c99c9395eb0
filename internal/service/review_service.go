package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/notify"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
)

// reviewRepository is the repository slice the review workflow needs.
type reviewRepository interface {
	GetByID(ctx context.Context, id string) (*models.Admission, error)
	SetFee(ctx context.Context, id string, fees models.FeeInfo) error
	SetApproved(ctx context.Context, id string, pdf models.PDFRefs, approvedAt time.Time) error
	UpdatePDFRefs(ctx context.Context, id string, pdf models.PDFRefs) error
}

// approvedRenderer renders the final approved artifact.
type approvedRenderer interface {
	RenderPending(ctx context.Context, a *models.Admission) (string, string, error)
	RenderApproved(ctx context.Context, a *models.Admission) (string, error)
}

// ReviewService encodes the counselor-to-admin progression: review projection,
// fee hand-off, and final approval. Approval is unreachable until a fee has
// been recorded.
type ReviewService struct {
	repo       reviewRepository
	artifacts  approvedRenderer
	dispatch   notifier
	locks      *Locker
	baseURL    string
	adminEmail string
	logger     *zap.Logger
}

// NewReviewService constructs the service.
func NewReviewService(
	repo reviewRepository,
	artifacts approvedRenderer,
	dispatch notifier,
	locks *Locker,
	baseURL, adminEmail string,
	logger *zap.Logger,
) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewLocker()
	}
	return &ReviewService{
		repo:       repo,
		artifacts:  artifacts,
		dispatch:   dispatch,
		locks:      locks,
		baseURL:    baseURL,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// ReviewData returns the pure data projection any review renderer consumes:
// the record, its flagged sections and fields, and the current PDF.
func (s *ReviewService) ReviewData(ctx context.Context, admissionID string) (*dto.ReviewProjection, error) {
	record, err := s.get(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	flags := models.ReviewFlags{
		Fields:   make(map[string]models.FieldDecision, len(record.EditRequest.Fields)),
		Sections: record.EditRequest.Sections,
		Notes:    record.EditRequest.Notes,
	}
	for _, field := range record.EditRequest.Fields {
		flags.Fields[field] = models.DecisionFix
	}
	return &dto.ReviewProjection{
		Admission:       record,
		FlaggedSections: flags.FlaggedSections(),
		FlaggedFields:   record.EditRequest.Fields,
		Notes:           record.EditRequest.Notes,
		PDFURL:          record.PDF.CurrentURL(record.Status),
		CanApprove:      record.HasFee(),
		EditRequest:     record.EditRequest,
	}, nil
}

// SubmitToAdmin records the counselor's fee hand-off and notifies the admin
// with a direct approve link. The record stays pending: this step routes, it
// does not approve.
func (s *ReviewService) SubmitToAdmin(ctx context.Context, admissionID string, feeAmount float64, feeMode string) error {
	if math.IsNaN(feeAmount) || math.IsInf(feeAmount, 0) || feeAmount < 0 {
		return appErrors.ErrInvalidFee
	}
	mode := models.FeeMode(feeMode)
	if !mode.Valid() {
		return appErrors.ErrInvalidFeeMode
	}

	s.locks.Lock(admissionID)
	defer s.locks.Unlock(admissionID)

	record, err := s.get(ctx, admissionID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	fees := models.FeeInfo{Amount: feeAmount, Mode: mode, RecordedAt: &now}
	if err := s.repo.SetFee(ctx, admissionID, fees); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "admission is no longer pending")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record fee")
	}
	record.Fees = &fees

	// Refresh the counselor copy so the admin attachment reflects fee data.
	_, counselorURL, err := s.artifacts.RenderPending(ctx, record)
	if err != nil {
		s.logger.Sugar().Warnw("failed to refresh counselor pdf for admin hand-off", "admission_id", admissionID, "error", err)
		counselorURL = record.PDF.PendingCounselorURL
	} else {
		record.PDF.PendingCounselorURL = counselorURL
		if err := s.repo.UpdatePDFRefs(ctx, admissionID, record.PDF); err != nil {
			s.logger.Sugar().Warnw("failed to store refreshed pdf refs", "admission_id", admissionID, "error", err)
		}
	}

	approveLink := fmt.Sprintf("%s/api/v1/admissions/%s/approve", s.baseURL, admissionID)
	s.dispatch.Mail(notify.Message{
		To:      []string{s.adminEmail},
		Subject: fmt.Sprintf("Admission %s ready for approval", admissionID),
		Body: fmt.Sprintf("Counselor has submitted admission %s for approval.\nFee: %.2f (%s)\nForm: %s\nApprove: %s\n",
			admissionID, feeAmount, mode, counselorURL, approveLink),
	})

	s.logger.Sugar().Infow("admission submitted to admin", "admission_id", admissionID, "fee_amount", feeAmount, "fee_mode", mode)
	return nil
}

// Approve renders the approved artifact, flips the record and the register
// row, and mails the student the final copy. Requires a recorded fee.
// Re-approval regenerates the artifact and resends the mail.
func (s *ReviewService) Approve(ctx context.Context, admissionID string) (*models.Admission, error) {
	s.locks.Lock(admissionID)
	defer s.locks.Unlock(admissionID)

	record, err := s.get(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	if !record.HasFee() {
		return nil, appErrors.ErrFeeNotRecorded
	}

	now := time.Now().UTC()
	record.Status = models.AdmissionStatusApproved
	record.ApprovedAt = &now

	approvedURL, err := s.artifacts.RenderApproved(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrArtifactGeneration.Code, appErrors.ErrArtifactGeneration.Status, appErrors.ErrArtifactGeneration.Message)
	}
	record.PDF.ApprovedURL = approvedURL

	if err := s.repo.SetApproved(ctx, admissionID, record.PDF, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "admission cannot be approved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve admission")
	}

	s.dispatch.RegisterStatus(admissionID, string(models.AdmissionStatusApproved))

	s.dispatch.Mail(notify.Message{
		To:      []string{record.Personal.Email},
		Subject: "Your admission has been approved",
		Body: fmt.Sprintf("Dear %s,\n\nCongratulations, your admission has been approved.\nYour approved form: %s\n",
			record.Personal.FirstName, approvedURL),
	})

	s.logger.Sugar().Infow("admission approved", "admission_id", admissionID)
	return record, nil
}

func (s *ReviewService) get(ctx context.Context, id string) (*models.Admission, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}
	return record, nil
}
