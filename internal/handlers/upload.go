package handlers

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"

	"shopdesk/internal/storage"
)

// maxUploadSize limits product images to 5 MB.
const maxUploadSize = 5 << 20

// allowedImageTypes maps accepted sniffed content types to the object
// key extension used in storage.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload handles product image uploads to object storage. The storage
// client may be nil when S3 is not configured; uploads then return 503.
type Upload struct {
	storage *storage.Client
}

// NewUpload creates a new Upload handler group.
func NewUpload(s *storage.Client) *Upload {
	return &Upload{storage: s}
}

// uploadResponse echoes where the image landed.
type uploadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Image handles POST /upload/image. Accepts a multipart "file" field of
// at most 5 MB; the content type is sniffed, not trusted from the client.
func (h *Upload) Image(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeError(w, http.StatusServiceUnavailable, "image storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+4096)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "please select an image to upload")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusBadRequest, "image must be 5 MB or smaller")
		return
	}

	// Sniff the real content type from the first bytes.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		slog.Error("read upload", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		writeError(w, http.StatusBadRequest, "only jpg, png, gif, webp image formats are supported")
		return
	}

	key := "images/" + uuid.NewString() + ext
	body := io.MultiReader(bytes.NewReader(head), file)
	if err := h.storage.Upload(r.Context(), key, contentType, body, header.Size); err != nil {
		slog.Error("upload image", "error", err, "key", key)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		URL:      h.storage.PublicURL(key),
		Filename: path.Base(key),
		Size:     header.Size,
	})
}
