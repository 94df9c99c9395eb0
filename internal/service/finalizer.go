package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/notify"
	"github.com/noah-isme/sma-admission-api/internal/sheets"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
)

// admissionCreator is the repository slice the finalizer needs.
type admissionCreator interface {
	Create(ctx context.Context, a *models.Admission) error
}

// artifactRenderer renders and stores admission PDFs, returning signed URLs.
// Implemented by ArtifactService.
type artifactRenderer interface {
	RenderPending(ctx context.Context, a *models.Admission) (studentURL, counselorURL string, err error)
}

// Finalizer performs the one-time transition from verified pending submission
// to durable admission record. PDF rendering and record persistence are
// mandatory; the register append and all notifications are best-effort.
type Finalizer struct {
	repo      admissionCreator
	artifacts artifactRenderer
	dispatch  notifier
	baseURL   string
	logger    *zap.Logger
}

// NewFinalizer constructs the finalizer.
func NewFinalizer(repo admissionCreator, artifacts artifactRenderer, dispatch notifier, baseURL string, logger *zap.Logger) *Finalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Finalizer{
		repo:      repo,
		artifacts: artifacts,
		dispatch:  dispatch,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Finalize creates the durable record and requests its derivative artifacts.
// Runs at most once per pending entry: the caller holds the pending-id lock
// and deletes the entry on success.
func (f *Finalizer) Finalize(ctx context.Context, entry *models.PendingSubmission) (string, string, error) {
	var record models.Admission
	if err := json.Unmarshal(entry.Draft, &record); err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode draft payload")
	}
	record.ID = newAdmissionID()
	record.Status = models.AdmissionStatusPending
	record.SubmittedAt = time.Now().UTC()

	// A record must never exist without at least one durable PDF reference.
	studentURL, counselorURL, err := f.artifacts.RenderPending(ctx, &record)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrArtifactGeneration.Code, appErrors.ErrArtifactGeneration.Status, appErrors.ErrArtifactGeneration.Message)
	}
	record.PDF.PendingStudentURL = studentURL
	record.PDF.PendingCounselorURL = counselorURL

	if err := f.repo.Create(ctx, &record); err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist admission record")
	}

	f.dispatch.RegisterAppend(sheets.FromAdmission(&record))

	f.dispatch.Mail(notify.Message{
		To:      []string{record.Personal.Email},
		Subject: "Admission form received",
		Body: fmt.Sprintf("Dear %s,\n\nYour admission form has been received and is pending review.\nApplication id: %s\nYour copy: %s\n",
			record.Personal.FirstName, record.ID, studentURL),
	})

	counselorEmail := record.Center.CounselorEmail
	if counselorEmail != "" {
		reviewLink := fmt.Sprintf("%s/api/v1/admissions/%s/review", f.baseURL, record.ID)
		f.dispatch.Mail(notify.Message{
			To:      []string{counselorEmail},
			Subject: fmt.Sprintf("New admission awaiting review: %s", record.ID),
			Body: fmt.Sprintf("A new admission was submitted at center %s.\nCounselor copy: %s\nReview: %s\n",
				record.Center.Name, counselorURL, reviewLink),
		})
	} else {
		f.logger.Sugar().Warnw("no counselor routed for center", "admission_id", record.ID, "center", record.Center.Code)
	}

	f.logger.Sugar().Infow("admission finalized", "admission_id", record.ID)
	return record.ID, studentURL, nil
}

func newAdmissionID() string {
	return uuid.NewString()
}
