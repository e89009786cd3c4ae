package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"ku-isoko/internal/model"
	"ku-isoko/internal/storage"

	"github.com/rs/zerolog"
)

const (
	maxUploadBytes = 5 << 20
	uploadField    = "image"
)

var errUploadTooLarge = model.NewDomainError(model.ErrCodePayloadTooLarge, "File too large. Maximum size is 5MB")

// UploadHandler stores product and store images.
type UploadHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(store storage.Store, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		store:  store,
		logger: logger.With().Str("handler", "upload").Logger(),
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload handles POST /api/upload with a multipart "image" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+64<<10)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, errUploadTooLarge, h.logger)
			return
		}
		writeError(w, r, model.ValidationError("No file uploaded"), h.logger)
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		writeError(w, r, errUploadTooLarge, h.logger)
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, r, err, h.logger)
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, r, model.NewDomainError(model.ErrCodeUnsupportedMedia, "Only image files are allowed"), h.logger)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	key := storage.ObjectKey(header.Filename)
	url, err := h.store.Put(r.Context(), key, contentType, file)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	h.logger.Info().Str("key", key).Int64("size", header.Size).Str("content_type", contentType).Msg("image uploaded")
	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}
