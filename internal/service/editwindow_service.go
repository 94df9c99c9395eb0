package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/notify"
	"github.com/noah-isme/sma-admission-api/internal/store"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
)

// admissionStore is the repository slice the edit window service needs.
type admissionStore interface {
	GetByID(ctx context.Context, id string) (*models.Admission, error)
	UpdateSections(ctx context.Context, a *models.Admission) error
	SetEditRequest(ctx context.Context, id string, req models.EditRequest) error
}

// artifactRegenerator refreshes derived artifacts after a committed edit.
type artifactRegenerator interface {
	Regenerate(ctx context.Context, a *models.Admission)
}

// EditWindowService manages single-use edit grants: created by a counselor's
// correction request, consumed exactly once by the student's resubmission.
type EditWindowService struct {
	grants   store.GrantStore
	repo     admissionStore
	artifact artifactRegenerator
	dispatch notifier
	locks    *Locker
	metrics  *MetricsService
	ttl      time.Duration
	baseURL  string
	logger   *zap.Logger
}

// NewEditWindowService constructs the service.
func NewEditWindowService(
	grants store.GrantStore,
	repo admissionStore,
	artifact artifactRegenerator,
	dispatch notifier,
	locks *Locker,
	metrics *MetricsService,
	ttl time.Duration,
	baseURL string,
	logger *zap.Logger,
) *EditWindowService {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewLocker()
	}
	return &EditWindowService{
		grants:   grants,
		repo:     repo,
		artifact: artifact,
		dispatch: dispatch,
		locks:    locks,
		metrics:  metrics,
		ttl:      ttl,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// Grant opens an edit window for the admission, overwriting any prior grant.
// The request is also mirrored onto the durable record for audit, independent
// of the in-memory window's lifetime, and the student is mailed the edit link.
func (s *EditWindowService) Grant(ctx context.Context, admissionID string, sections []models.Section, fields []string, notes string) error {
	for _, section := range sections {
		if !section.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown section %q", section))
		}
	}
	for _, field := range fields {
		section, ok := models.SectionForField(field)
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field key %q", field))
		}
		if section == models.SectionEducation {
			if _, err := models.ParseEducationField(field); err != nil {
				return appErrors.Clone(appErrors.ErrValidation, err.Error())
			}
		}
	}
	if len(sections) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one section must be flagged")
	}

	record, err := s.repo.GetByID(ctx, admissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}

	now := time.Now().UTC()
	grant := &models.EditGrant{
		AdmissionID: admissionID,
		Sections:    sections,
		Fields:      fields,
		Notes:       notes,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.grants.Put(ctx, grant); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store edit grant")
	}

	req := models.EditRequest{
		Status:      models.EditRequestStatusRequested,
		Sections:    sections,
		Fields:      fields,
		Notes:       notes,
		RequestedAt: &now,
	}
	if err := s.repo.SetEditRequest(ctx, admissionID, req); err != nil {
		s.logger.Sugar().Warnw("failed to mirror edit request onto record", "admission_id", admissionID, "error", err)
	}

	s.dispatch.Mail(notify.Message{
		To:      []string{record.Personal.Email},
		Subject: "Corrections needed on your admission form",
		Body: fmt.Sprintf("Dear %s,\n\nYour counselor has requested corrections to your admission form.\n%s\nEdit here: %s\n",
			record.Personal.FirstName, notes, s.editLink(admissionID, sections, fields)),
	})

	s.logger.Sugar().Infow("edit window granted", "admission_id", admissionID, "sections", sections, "fields", fields)
	return nil
}

// FetchForEdit serves the prefill data for the student edit form. The active
// grant is the sole authorization for this read.
func (s *EditWindowService) FetchForEdit(ctx context.Context, admissionID string) (*dto.EditDataResponse, error) {
	grant, err := s.activeGrant(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, admissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}
	return &dto.EditDataResponse{
		Admission:       record,
		AllowedSections: grant.Sections,
		AllowedFields:   grant.Fields,
	}, nil
}

// ApplyEdit merges the permitted parts of the student's resubmission into the
// record, resets it to pending, consumes the grant, and refreshes derived
// artifacts. Replaying the same edit link afterwards fails with NoActiveGrant.
func (s *EditWindowService) ApplyEdit(ctx context.Context, admissionID string, updated json.RawMessage) error {
	s.locks.Lock(admissionID)
	defer s.locks.Unlock(admissionID)

	grant, err := s.activeGrant(ctx, admissionID)
	if err != nil {
		return err
	}

	record, err := s.repo.GetByID(ctx, admissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(updated, &sections); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "updated payload must be an object keyed by section")
	}
	if err := mergeSections(record, sections, grant); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	now := time.Now().UTC()
	record.Status = models.AdmissionStatusPending
	record.EditRequest.Status = models.EditRequestStatusCompleted
	record.EditRequest.ResolvedAt = &now

	if err := s.repo.UpdateSections(ctx, record); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save corrections")
	}

	// Single-use: the grant is gone before any best-effort work runs.
	if err := s.grants.Delete(ctx, admissionID); err != nil {
		s.logger.Sugar().Errorw("failed to consume edit grant", "admission_id", admissionID, "error", err)
	}
	s.metrics.IncGrantConsumed()

	s.artifact.Regenerate(ctx, record)

	if record.Center.CounselorEmail != "" {
		s.dispatch.Mail(notify.Message{
			To:      []string{record.Center.CounselorEmail},
			Subject: fmt.Sprintf("Corrections submitted for %s", admissionID),
			Body:    fmt.Sprintf("The student has resubmitted corrections for admission %s. Please re-review.\n", admissionID),
		})
	}

	s.logger.Sugar().Infow("edit applied", "admission_id", admissionID)
	return nil
}

func (s *EditWindowService) activeGrant(ctx context.Context, admissionID string) (*models.EditGrant, error) {
	grant, err := s.grants.Get(ctx, admissionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.ErrNoActiveGrant
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit grant")
	}
	if grant.Expired(time.Now()) {
		return nil, appErrors.ErrNoActiveGrant
	}
	return grant, nil
}

// editLink builds the student-facing edit URL. The sections and fields are
// carried in the URL for immediate form rendering; the server-side grant
// remains the authorization boundary.
func (s *EditWindowService) editLink(admissionID string, sections []models.Section, fields []string) string {
	sectionsJSON, _ := json.Marshal(sections)
	fieldsJSON, _ := json.Marshal(fields)
	return fmt.Sprintf("%s/admission-form?edit=1&id=%s&sections=%s&fields=%s",
		s.baseURL,
		url.QueryEscape(admissionID),
		url.QueryEscape(string(sectionsJSON)),
		url.QueryEscape(string(fieldsJSON)),
	)
}
