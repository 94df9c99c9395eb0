package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/notify"
	"github.com/noah-isme/sma-admission-api/internal/otp"
	"github.com/noah-isme/sma-admission-api/internal/sheets"
	"github.com/noah-isme/sma-admission-api/internal/store"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
)

// notifier is the slice of Dispatcher the services need.
type notifier interface {
	Mail(msg notify.Message)
	SMS(to, text string)
	RegisterAppend(row sheets.Row)
	RegisterUpdate(admissionID string, row sheets.Row)
	RegisterStatus(admissionID, status string)
}

// submissionFinalizer turns a fully verified pending entry into a durable
// admission record. Implemented by Finalizer.
type submissionFinalizer interface {
	Finalize(ctx context.Context, entry *models.PendingSubmission) (admissionID, pdfURL string, err error)
}

// UploadPaths carries the stored locations of the multipart upload parts.
type UploadPaths struct {
	Photo            string
	PANDoc           string
	AadhaarDoc       string
	StudentSignature string
	ParentSignature  string
}

// PendingService owns the two-phase OTP-gated submission state machine:
// Created -> MobileVerified -> Finalized, with expiry reachable from any
// non-finalized state.
type PendingService struct {
	store       store.PendingStore
	codec       *otp.Codec
	finalizer   submissionFinalizer
	dispatch    notifier
	locks       *Locker
	metrics     *MetricsService
	ttl         time.Duration
	maxAttempts int
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewPendingService constructs the service.
func NewPendingService(
	pendingStore store.PendingStore,
	codec *otp.Codec,
	finalizer submissionFinalizer,
	dispatch notifier,
	locks *Locker,
	metrics *MetricsService,
	ttl time.Duration,
	maxAttempts int,
	logger *zap.Logger,
) *PendingService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewLocker()
	}
	return &PendingService{
		store:       pendingStore,
		codec:       codec,
		finalizer:   finalizer,
		dispatch:    dispatch,
		locks:       locks,
		metrics:     metrics,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Init validates the draft, stores the pending entry with two independent
// OTPs, and dispatches both codes. Returns the opaque pending id.
func (s *PendingService) Init(ctx context.Context, draft dto.DraftPayload, uploads UploadPaths) (string, error) {
	if err := s.validateDraft(draft, uploads); err != nil {
		return "", err
	}

	record := draftToAdmission(draft, uploads)
	raw, err := json.Marshal(record)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode draft")
	}

	mobileCode, mobileSalt, mobileHash, err := s.codec.Generate()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate otp")
	}
	emailCode, emailSalt, emailHash, err := s.codec.Generate()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate otp")
	}

	now := time.Now().UTC()
	entry := &models.PendingSubmission{
		ID:        newPendingID(),
		Draft:     raw,
		Mobile:    draft.Personal.Mobile,
		Email:     draft.Personal.Email,
		MobileOTP: models.OTPCredential{Salt: mobileSalt, Hash: mobileHash},
		EmailOTP:  models.OTPCredential{Salt: emailSalt, Hash: emailHash},
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Put(ctx, entry); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pending submission")
	}

	s.dispatch.SMS(entry.Mobile, fmt.Sprintf("Your admission verification code is %s. Valid for %d minutes.", mobileCode, int(s.ttl.Minutes())))
	s.dispatch.Mail(notify.Message{
		To:      []string{entry.Email},
		Subject: "Your admission email verification code",
		Body:    fmt.Sprintf("Your email verification code is %s. It expires in %d minutes.", emailCode, int(s.ttl.Minutes())),
	})

	s.logger.Sugar().Infow("pending submission created", "pending_id", entry.ID, "expires_at", entry.ExpiresAt)
	return entry.ID, nil
}

// Verify confirms one OTP channel. Mobile must be verified before email; the
// email transition from false to true finalizes the submission exactly once.
func (s *PendingService) Verify(ctx context.Context, pendingID, code string, channel models.VerifyChannel) (*dto.VerifyResponse, error) {
	if pendingID == "" || code == "" || !channel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pendingId, otp, and channel are required")
	}

	s.locks.Lock(pendingID)
	defer s.locks.Unlock(pendingID)

	entry, err := s.store.Get(ctx, pendingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "verification session not found or already completed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending submission")
	}

	now := time.Now()
	if entry.Expired(now) {
		if err := s.store.Delete(ctx, pendingID); err != nil {
			s.logger.Sugar().Warnw("failed to delete expired pending entry", "pending_id", pendingID, "error", err)
		}
		return nil, appErrors.ErrExpiredOTP
	}

	// Retried confirmations of an already-verified channel succeed without
	// side effects.
	if entry.Verified(channel) {
		return &dto.VerifyResponse{Step: dto.StepMobileVerified}, nil
	}

	if channel == models.ChannelEmail && !entry.MobileVerified {
		return nil, appErrors.ErrChannelOrder
	}

	cred := entry.Credential(channel)
	if !s.codec.Verify(code, cred.Salt, cred.Hash) {
		s.metrics.IncOTPFailure()
		entry.Attempts++
		if entry.Attempts >= s.maxAttempts {
			if err := s.store.Delete(ctx, pendingID); err != nil {
				s.logger.Sugar().Warnw("failed to delete burned pending entry", "pending_id", pendingID, "error", err)
			}
			return nil, appErrors.Clone(appErrors.ErrExpiredOTP, "too many failed attempts, please submit again")
		}
		if err := s.store.Put(ctx, entry); err != nil {
			s.logger.Sugar().Warnw("failed to persist otp attempt count", "pending_id", pendingID, "error", err)
		}
		return nil, appErrors.ErrInvalidOTP
	}

	if channel == models.ChannelMobile {
		entry.MobileVerified = true
		if err := s.store.Put(ctx, entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update pending submission")
		}
		return &dto.VerifyResponse{Step: dto.StepMobileVerified}, nil
	}

	entry.EmailVerified = true
	admissionID, pdfURL, err := s.finalizer.Finalize(ctx, entry)
	if err != nil {
		// The entry is retained so the client may retry verification once
		// the artifact renderer recovers.
		return nil, err
	}
	if err := s.store.Delete(ctx, pendingID); err != nil {
		s.logger.Sugar().Warnw("failed to delete finalized pending entry", "pending_id", pendingID, "error", err)
	}
	s.metrics.IncFinalized()

	return &dto.VerifyResponse{Step: dto.StepCompleted, ID: admissionID, PDFURL: pdfURL}, nil
}

func (s *PendingService) validateDraft(draft dto.DraftPayload, uploads UploadPaths) error {
	if err := s.validate.Struct(draft); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "admission form is incomplete")
	}
	if strings.TrimSpace(draft.Personal.Mobile) == "" || strings.TrimSpace(draft.Personal.Email) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "mobile number and email are required for verification")
	}
	if uploads.Photo == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student photo is required")
	}
	if uploads.PANDoc == "" || uploads.AadhaarDoc == "" {
		return appErrors.Clone(appErrors.ErrValidation, "PAN and Aadhaar documents are required")
	}
	if uploads.StudentSignature == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student signature is required")
	}
	if uploads.ParentSignature == "" {
		return appErrors.Clone(appErrors.ErrValidation, "parent or guardian signature is required")
	}
	first := draft.Education[0]
	if strings.TrimSpace(first.CourseType) == "" || strings.TrimSpace(first.Board) == "" || strings.TrimSpace(first.YearPassed) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "10th/SSC education details are required in the first row")
	}
	return nil
}

// draftToAdmission assembles the admission content held in the pending entry.
// The durable id and workflow timestamps are assigned at finalization.
func draftToAdmission(draft dto.DraftPayload, uploads UploadPaths) models.Admission {
	personal := draft.Personal
	personal.PhotoPath = uploads.Photo
	ids := draft.IDs
	ids.PANDocPath = uploads.PANDoc
	ids.AadhaarPath = uploads.AadhaarDoc

	return models.Admission{
		Status:    models.AdmissionStatusPending,
		Personal:  personal,
		Course:    draft.Course,
		Education: draft.Education,
		IDs:       ids,
		Center:    draft.Center,
		Signatures: models.Signatures{
			StudentPath: uploads.StudentSignature,
			ParentPath:  uploads.ParentSignature,
		},
		TC: models.TermsAcceptance{
			Version:    draft.TC.Version,
			Type:       draft.TC.Type,
			Text:       draft.TC.Text,
			AcceptedAt: time.Now().UTC(),
		},
	}
}

func newPendingID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("pending-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
