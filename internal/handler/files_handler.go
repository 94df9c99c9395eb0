package handler

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-admission-api/pkg/errors"
	"github.com/noah-isme/sma-admission-api/pkg/response"
	"github.com/noah-isme/sma-admission-api/pkg/storage"
)

// FilesHandler serves stored artifacts through signed download tokens.
type FilesHandler struct {
	files  *storage.LocalStorage
	signer *storage.SignedURLSigner
}

// NewFilesHandler constructs the handler.
func NewFilesHandler(files *storage.LocalStorage, signer *storage.SignedURLSigner) *FilesHandler {
	return &FilesHandler{files: files, signer: signer}
}

// Download godoc
// @Summary Download a stored file via a signed token
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /files/{token} [get]
func (h *FilesHandler) Download(c *gin.Context) {
	token := c.Param("token")
	_, relPath, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download link is invalid or has expired"))
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read stored file"))
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(relPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "inline; filename=\""+filepath.Base(relPath)+"\"")
	http.ServeContent(c.Writer, c.Request, filepath.Base(relPath), info.ModTime(), file)
}
