package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/safar/framely/internal/blob"
	"github.com/safar/framely/internal/httpx"
	"github.com/safar/framely/internal/logging"
	"go.uber.org/zap"
)

// multipart framing allowance on top of the image itself
const uploadOverhead = 64 << 10

func (h *handlers) signedURL(w http.ResponseWriter, r *http.Request) {
	if !h.imagesConfigured(w, r) {
		return
	}
	name, err := blob.ValidateObjectName(r.URL.Query().Get("fileName"))
	if err != nil {
		writeBlobError(w, r, err)
		return
	}
	urls, err := h.images.SignedURLs(name)
	if err != nil {
		writeBlobError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, urls)
}

func (h *handlers) uploadImage(w http.ResponseWriter, r *http.Request) {
	if !h.imagesConfigured(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, blob.MaxUploadSize+uploadOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeBlobError(w, r, blob.ErrTooLarge)
			return
		}
		writeBlobError(w, r, blob.ErrNoFile)
		return
	}
	defer file.Close()

	contentType, err := blob.ValidateImage(header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeBlobError(w, r, err)
		return
	}

	name := blob.ObjectName(header.Filename)
	url, err := h.images.Upload(r.Context(), file, name, contentType)
	if err != nil {
		writeBlobError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("image uploaded",
		zap.String("object", name),
		zap.Int64("bytes", header.Size),
	)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *handlers) deleteImage(w http.ResponseWriter, r *http.Request) {
	if !h.imagesConfigured(w, r) {
		return
	}
	if err := h.images.Delete(r.Context(), strings.TrimSpace(chi.URLParam(r, "fileName"))); err != nil {
		writeBlobError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) imagesConfigured(w http.ResponseWriter, r *http.Request) bool {
	if h.images != nil {
		return true
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("storage_unavailable", "image storage is not configured", http.StatusServiceUnavailable))
	return false
}
