package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/service"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
	"github.com/noah-isme/sma-admission-api/pkg/response"
	"github.com/noah-isme/sma-admission-api/pkg/storage"
)

type pendingService interface {
	Init(ctx context.Context, draft dto.DraftPayload, uploads service.UploadPaths) (string, error)
	Verify(ctx context.Context, pendingID, code string, channel models.VerifyChannel) (*dto.VerifyResponse, error)
}

// AdmissionHandler exposes the submission intake endpoints.
type AdmissionHandler struct {
	service pendingService
	files   *storage.LocalStorage
}

// NewAdmissionHandler constructs the handler.
func NewAdmissionHandler(service pendingService, files *storage.LocalStorage) *AdmissionHandler {
	return &AdmissionHandler{service: service, files: files}
}

// Init godoc
// @Summary Submit a draft admission with uploads
// @Tags Admissions
// @Accept multipart/form-data
// @Produce json
// @Param payload formData string true "Draft JSON payload"
// @Success 201 {object} response.Envelope
// @Router /admissions/init [post]
func (h *AdmissionHandler) Init(c *gin.Context) {
	rawPayload := c.PostForm("payload")
	if rawPayload == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payload field is required"))
		return
	}
	var draft dto.DraftPayload
	if err := json.Unmarshal([]byte(rawPayload), &draft); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payload must be valid JSON"))
		return
	}

	batch := uuid.NewString()
	uploads := service.UploadPaths{}
	parts := []struct {
		field string
		dst   *string
	}{
		{"photo", &uploads.Photo},
		{"pan", &uploads.PANDoc},
		{"aadhaar", &uploads.AadhaarDoc},
		{"studentSignature", &uploads.StudentSignature},
		{"parentSignature", &uploads.ParentSignature},
	}
	for _, part := range parts {
		file, err := c.FormFile(part.field)
		if err != nil {
			continue
		}
		path, err := h.saveUpload(batch, part.field, file)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store uploaded file"))
			return
		}
		*part.dst = path
	}

	pendingID, err := h.service.Init(c.Request.Context(), draft, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.InitResponse{PendingID: pendingID})
}

// Verify godoc
// @Summary Verify a pending submission OTP channel
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body dto.VerifyRequest true "Verification payload"
// @Success 200 {object} response.Envelope
// @Router /admissions/verify [post]
func (h *AdmissionHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pendingId, otp, and channel are required"))
		return
	}
	result, err := h.service.Verify(c.Request.Context(), req.PendingID, strings.TrimSpace(req.OTP), models.VerifyChannel(req.Channel))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *AdmissionHandler) saveUpload(batch, field string, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded %s: %w", field, err)
	}
	defer src.Close() //nolint:errcheck

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".bin"
	}
	relPath := fmt.Sprintf("uploads/%s/%s%s", batch, field, ext)
	return h.files.SaveStream(relPath, src)
}
