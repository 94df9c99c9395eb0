package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
	"github.com/noah-isme/sma-admission-api/pkg/response"
)

type reviewService interface {
	ReviewData(ctx context.Context, admissionID string) (*dto.ReviewProjection, error)
	SubmitToAdmin(ctx context.Context, admissionID string, feeAmount float64, feeMode string) error
	Approve(ctx context.Context, admissionID string) (*models.Admission, error)
}

type editWindowService interface {
	Grant(ctx context.Context, admissionID string, sections []models.Section, fields []string, notes string) error
	FetchForEdit(ctx context.Context, admissionID string) (*dto.EditDataResponse, error)
	ApplyEdit(ctx context.Context, admissionID string, updated json.RawMessage) error
}

// ReviewHandler exposes the counselor/admin workflow endpoints plus the
// student-facing edit-window endpoints.
type ReviewHandler struct {
	review reviewService
	edits  editWindowService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(review reviewService, edits editWindowService) *ReviewHandler {
	return &ReviewHandler{review: review, edits: edits}
}

// ReviewData godoc
// @Summary Fetch the review projection for an admission
// @Tags Review
// @Produce json
// @Param id path string true "Admission ID"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id}/review [get]
func (h *ReviewHandler) ReviewData(c *gin.Context) {
	projection, err := h.review.ReviewData(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projection, nil)
}

// RequestEdit godoc
// @Summary Open a single-use edit window with section/field scope
// @Tags Review
// @Accept json
// @Produce json
// @Param id path string true "Admission ID"
// @Param payload body dto.RequestEditRequest true "Sections and field verdicts"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id}/request-edit [post]
func (h *ReviewHandler) RequestEdit(c *gin.Context) {
	req, err := bindRequestEdit(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	flags := models.ReviewFlags{Notes: req.Notes, Fields: make(map[string]models.FieldDecision, len(req.Fields))}
	for _, raw := range req.Sections {
		flags.Sections = append(flags.Sections, models.Section(strings.TrimSpace(raw)))
	}
	for field, verdict := range req.Fields {
		flags.Fields[field] = models.FieldDecision(strings.ToLower(strings.TrimSpace(verdict)))
	}

	if err := h.edits.Grant(c.Request.Context(), c.Param("id"), flags.FlaggedSections(), flags.FlaggedFields(), req.Notes); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"success": true}, nil)
}

// EditData godoc
// @Summary Fetch prefill data for an active edit window
// @Tags Edits
// @Produce json
// @Param id path string true "Admission ID"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id}/edit-data [get]
func (h *ReviewHandler) EditData(c *gin.Context) {
	data, err := h.edits.FetchForEdit(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// ApplyEdit godoc
// @Summary Apply corrections and consume the edit window
// @Tags Edits
// @Accept json
// @Produce json
// @Param id path string true "Admission ID"
// @Param payload body dto.ApplyEditRequest true "Section-keyed updates"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id}/apply-edit [post]
func (h *ReviewHandler) ApplyEdit(c *gin.Context) {
	var req dto.ApplyEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "updated payload is required"))
		return
	}
	id := c.Param("id")
	if err := h.edits.ApplyEdit(c.Request.Context(), id, req.Updated); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ApplyEditResponse{Success: true, ID: id}, nil)
}

// SubmitToAdmin godoc
// @Summary Record the fee and forward the admission to the admin
// @Tags Review
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id path string true "Admission ID"
// @Param feeAmount formData number true "Fee amount"
// @Param feeMode formData string true "Fee mode (cash or online)"
// @Success 200 {object} response.Envelope
// @Router /admissions/{id}/submit-to-admin [post]
func (h *ReviewHandler) SubmitToAdmin(c *gin.Context) {
	var req dto.SubmitToAdminRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "feeAmount and feeMode are required"))
		return
	}
	if err := h.review.SubmitToAdmin(c.Request.Context(), c.Param("id"), req.FeeAmount, req.FeeMode); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"success": true}, nil)
}

// Approve godoc
// @Summary Approve an admission (fee must be recorded)
// @Tags Review
// @Produce html
// @Param id path string true "Admission ID"
// @Success 200 {string} string "Confirmation page"
// @Router /admissions/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	record, err := h.review.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	name := strings.TrimSpace(record.Personal.FirstName + " " + record.Personal.LastName)
	page := fmt.Sprintf(
		"<!DOCTYPE html><html><body><h1>Admission approved</h1><p>%s (%s) has been approved.</p></body></html>",
		html.EscapeString(name), html.EscapeString(record.ID),
	)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// bindRequestEdit accepts either JSON or classic form encoding for the
// correction request. Form fields arrive as sections[] plus field_<key>
// verdict entries.
func bindRequestEdit(c *gin.Context) (*dto.RequestEditRequest, error) {
	contentType := c.ContentType()
	if strings.Contains(contentType, "json") {
		var req dto.RequestEditRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid correction request payload")
		}
		return &req, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid correction request form")
	}
	req := &dto.RequestEditRequest{
		Notes:  c.PostForm("notes"),
		Fields: make(map[string]string),
	}
	req.Sections = append(req.Sections, c.PostFormArray("sections")...)
	req.Sections = append(req.Sections, c.PostFormArray("sections[]")...)
	for key, values := range c.Request.PostForm {
		if !strings.HasPrefix(key, "field_") || len(values) == 0 {
			continue
		}
		req.Fields[strings.TrimPrefix(key, "field_")] = values[len(values)-1]
	}
	return req, nil
}
