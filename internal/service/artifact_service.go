package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/sheets"
	"github.com/noah-isme/sma-admission-api/pkg/export"
	"github.com/noah-isme/sma-admission-api/pkg/storage"
)

// pdfRefUpdater is the repository slice the artifact service needs.
type pdfRefUpdater interface {
	UpdatePDFRefs(ctx context.Context, id string, pdf models.PDFRefs) error
}

// ArtifactService renders, stores, and links admission PDF artifacts, and
// keeps the register mirror consistent with the durable record. Artifacts are
// caches: always regenerated from the record, never edited in place.
type ArtifactService struct {
	renderer *export.AdmissionPDF
	files    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	repo     pdfRefUpdater
	dispatch notifier
	baseURL  string
	logger   *zap.Logger
}

// NewArtifactService constructs the service.
func NewArtifactService(
	renderer *export.AdmissionPDF,
	files *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	repo pdfRefUpdater,
	dispatch notifier,
	baseURL string,
	logger *zap.Logger,
) *ArtifactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactService{
		renderer: renderer,
		files:    files,
		signer:   signer,
		repo:     repo,
		dispatch: dispatch,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// RenderPending renders and stores the student and counselor pending copies,
// returning their signed URLs. Used at finalization, where failure is fatal.
func (s *ArtifactService) RenderPending(ctx context.Context, a *models.Admission) (string, string, error) {
	studentURL, err := s.renderAndLink(a, export.VariantStudent)
	if err != nil {
		return "", "", err
	}
	counselorURL, err := s.renderAndLink(a, export.VariantCounselor)
	if err != nil {
		return "", "", err
	}
	return studentURL, counselorURL, nil
}

// RenderApproved renders and stores the final approved copy.
func (s *ArtifactService) RenderApproved(ctx context.Context, a *models.Admission) (string, error) {
	return s.renderAndLink(a, export.VariantApproved)
}

// Regenerate refreshes the pending PDF variants and the register row after an
// edit merge. The record mutation is already durably committed, so failures
// here are logged and swallowed.
func (s *ArtifactService) Regenerate(ctx context.Context, a *models.Admission) {
	studentURL, counselorURL, err := s.RenderPending(ctx, a)
	if err != nil {
		s.logger.Sugar().Errorw("failed to regenerate admission pdfs", "admission_id", a.ID, "error", err)
	} else {
		a.PDF.PendingStudentURL = studentURL
		a.PDF.PendingCounselorURL = counselorURL
		if err := s.repo.UpdatePDFRefs(ctx, a.ID, a.PDF); err != nil {
			s.logger.Sugar().Errorw("failed to store regenerated pdf refs", "admission_id", a.ID, "error", err)
		}
	}

	// Full-row overwrite keyed by the admission identity.
	s.dispatch.RegisterUpdate(a.ID, sheets.FromAdmission(a))
}

func (s *ArtifactService) renderAndLink(a *models.Admission, variant export.PDFVariant) (string, error) {
	data, err := s.renderer.Render(a, variant)
	if err != nil {
		return "", fmt.Errorf("render %s pdf: %w", variant, err)
	}
	relPath := fmt.Sprintf("pdf/%s_%s.pdf", a.ID, variant)
	if _, err := s.files.Save(relPath, data); err != nil {
		return "", fmt.Errorf("store %s pdf: %w", variant, err)
	}
	token, _, err := s.signer.Generate(a.ID, relPath)
	if err != nil {
		return "", fmt.Errorf("sign %s pdf url: %w", variant, err)
	}
	return fmt.Sprintf("%s/api/v1/files/%s", s.baseURL, token), nil
}
