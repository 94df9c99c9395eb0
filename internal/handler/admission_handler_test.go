package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
	"github.com/noah-isme/sma-admission-api/internal/service"
	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
	"github.com/noah-isme/sma-admission-api/pkg/storage"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
}

type fakePendingSrv struct {
	initID      string
	initErr     error
	lastUploads service.UploadPaths
	verifyResp  *dto.VerifyResponse
	verifyErr   error
	lastChannel models.VerifyChannel
}

func (f *fakePendingSrv) Init(_ context.Context, _ dto.DraftPayload, uploads service.UploadPaths) (string, error) {
	f.lastUploads = uploads
	return f.initID, f.initErr
}

func (f *fakePendingSrv) Verify(_ context.Context, _, _ string, channel models.VerifyChannel) (*dto.VerifyResponse, error) {
	f.lastChannel = channel
	return f.verifyResp, f.verifyErr
}

func testStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return files
}

func TestAdmissionHandlerInitRequiresPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdmissionHandler(&fakePendingSrv{}, testStorage(t))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admissions/init", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	h.Init(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmissionHandlerInitStoresUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePendingSrv{initID: "pending-1"}
	h := NewAdmissionHandler(srv, testStorage(t))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("payload", `{"personal":{"firstName":"Asha"}}`))
	part, err := writer.CreateFormFile("photo", "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/admissions/init", body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	h.Init(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "pending-1", envelope.Data["pendingId"])

	assert.True(t, strings.HasPrefix(srv.lastUploads.Photo, "uploads/"))
	assert.True(t, strings.HasSuffix(srv.lastUploads.Photo, "photo.jpg"))
	assert.Empty(t, srv.lastUploads.PANDoc)
}

func TestAdmissionHandlerVerifyMapsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid otp", appErrors.ErrInvalidOTP, http.StatusBadRequest},
		{"channel order", appErrors.ErrChannelOrder, http.StatusBadRequest},
		{"session gone", appErrors.ErrNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAdmissionHandler(&fakePendingSrv{verifyErr: tc.err}, testStorage(t))

			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			payload := `{"pendingId":"p1","otp":"123456","channel":"mobile"}`
			c.Request = httptest.NewRequest(http.MethodPost, "/admissions/verify", strings.NewReader(payload))
			c.Request.Header.Set("Content-Type", "application/json")

			h.Verify(c)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestAdmissionHandlerVerifySuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePendingSrv{verifyResp: &dto.VerifyResponse{Step: dto.StepCompleted, ID: "adm-1", PDFURL: "http://x/pdf"}}
	h := NewAdmissionHandler(srv, testStorage(t))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	payload := `{"pendingId":"p1","otp":"123456","channel":"email"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/admissions/verify", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Verify(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ChannelEmail, srv.lastChannel)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "completed", envelope.Data["step"])
	assert.Equal(t, "adm-1", envelope.Data["id"])
}

func TestAdmissionHandlerVerifyRejectsBadChannel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdmissionHandler(&fakePendingSrv{}, testStorage(t))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	payload := `{"pendingId":"p1","otp":"123456","channel":"carrier-pigeon"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/admissions/verify", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Verify(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
