package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dcode-github/realestate_platform/backend/apperr"
	"github.com/dcode-github/realestate_platform/backend/metrics"
	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/storage"
	"github.com/dcode-github/realestate_platform/backend/utils"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// multipartMemory is how much of a form is held in memory before parts
// spill to temporary files.
const multipartMemory = 10 << 20

var propertyFileFields = []string{storage.FieldPropertyImages, storage.FieldFloorPlan, storage.FieldDocument}

func UploadAvatar(d *Deps) http.HandlerFunc {
	return d.uploadSingle(storage.FieldAvatar)
}

func UploadDocument(d *Deps) http.HandlerFunc {
	return d.uploadSingle(storage.FieldDocument)
}

func (d *Deps) uploadSingle(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := d.parseUpload(w, r, storage.MaxCount(field))
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		defer form.RemoveAll()

		headers := form.File[field]
		if len(headers) == 0 {
			d.handleError(w, r, apperr.BadRequest("Please upload a file"))
			return
		}
		stored, err := d.saveFiles(r, field, headers)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		ok(w, stored[0])
	}
}

func UploadPropertyImages(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := d.parseUpload(w, r, storage.MaxCount(storage.FieldPropertyImages))
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		defer form.RemoveAll()

		headers := form.File[storage.FieldPropertyImages]
		if len(headers) == 0 {
			d.handleError(w, r, apperr.BadRequest("Please upload at least one image"))
			return
		}
		stored, err := d.saveFiles(r, storage.FieldPropertyImages, headers)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, countOnly(len(stored), stored))
	}
}

// UploadPropertyFiles accepts images, floor plans and documents in one form.
// Every file is checked before any is written.
func UploadPropertyFiles(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxFiles := 0
		for _, field := range propertyFileFields {
			maxFiles += storage.MaxCount(field)
		}
		form, err := d.parseUpload(w, r, maxFiles)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		defer form.RemoveAll()

		for _, field := range propertyFileFields {
			if err := d.checkFiles(field, form.File[field]); err != nil {
				d.handleError(w, r, err)
				return
			}
		}
		result := make(map[string][]storage.Stored, len(propertyFileFields))
		for _, field := range propertyFileFields {
			stored, err := d.saveFiles(r, field, form.File[field])
			if err != nil {
				for _, saved := range result {
					d.discard(r, saved)
				}
				d.handleError(w, r, err)
				return
			}
			result[field] = stored
		}
		ok(w, result)
	}
}

func DeleteUpload(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		folder, filename := vars["folder"], vars["filename"]
		if !storage.KnownFolder(folder) {
			d.handleError(w, r, apperr.BadRequest("Invalid folder"))
			return
		}
		err := d.Uploads.Delete(r.Context(), folder, filename)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			d.handleError(w, r, apperr.NotFound("File not found"))
			return
		case errors.Is(err, storage.ErrInvalidPath):
			d.handleError(w, r, apperr.BadRequest("Invalid file name"))
			return
		case err != nil:
			d.handleError(w, r, err)
			return
		}
		respond(w, http.StatusOK, models.APIResponse{Success: true, Message: "File deleted successfully"})
	}
}

// parseUpload bounds the whole body by the per-file ceiling times the number
// of files the endpoint accepts.
func (d *Deps) parseUpload(w http.ResponseWriter, r *http.Request, maxFiles int) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, d.Cfg.MaxFileSize*int64(maxFiles)+maxBodyBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperr.BadRequest(d.sizeMessage())
		}
		return nil, apperr.Wrap(apperr.KindBadRequest, "Invalid multipart form", err)
	}
	return r.MultipartForm, nil
}

func (d *Deps) sizeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %d MB", d.Cfg.MaxFileSize>>20)
}

func (d *Deps) checkFiles(field string, headers []*multipart.FileHeader) error {
	if limit := storage.MaxCount(field); len(headers) > limit {
		return apperr.BadRequest(fmt.Sprintf("Too many files for %s. Maximum is %d", field, limit))
	}
	for _, h := range headers {
		if h.Size > d.Cfg.MaxFileSize {
			return apperr.BadRequest(d.sizeMessage())
		}
		if err := storage.Allowed(field, h.Filename, h.Header.Get("Content-Type")); err != nil {
			return apperr.Wrap(apperr.KindBadRequest, err.Error(), err)
		}
	}
	return nil
}

func (d *Deps) saveFiles(r *http.Request, field string, headers []*multipart.FileHeader) ([]storage.Stored, error) {
	if err := d.checkFiles(field, headers); err != nil {
		return nil, err
	}
	folder := storage.FolderFor(field)
	stored := make([]storage.Stored, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			d.discard(r, stored)
			return nil, err
		}
		filename := utils.UploadFilename(field, h.Filename, d.now())
		contentType := h.Header.Get("Content-Type")
		location, err := d.Uploads.Save(r.Context(), folder, filename, contentType, f, h.Size)
		f.Close()
		if err != nil {
			d.discard(r, stored)
			return nil, err
		}
		metrics.UploadedFiles.WithLabelValues(folder).Inc()
		d.Log.Debug("file uploaded",
			zap.String("backend", d.Uploads.Name()),
			zap.String("folder", folder),
			zap.String("filename", filename),
			zap.Int64("size", h.Size),
		)
		stored = append(stored, storage.Stored{
			Field:        field,
			OriginalName: h.Filename,
			Filename:     filename,
			Folder:       folder,
			Size:         h.Size,
			MimeType:     contentType,
			Path:         location,
			URL:          absoluteURL(r, location),
		})
	}
	return stored, nil
}

// discard removes files written earlier in a request that then failed.
func (d *Deps) discard(r *http.Request, stored []storage.Stored) {
	for _, s := range stored {
		if err := d.Uploads.Delete(r.Context(), s.Folder, s.Filename); err != nil {
			metrics.SideEffectFailed("upload_cleanup")
			d.Log.Warn("failed to remove orphaned upload",
				zap.String("folder", s.Folder),
				zap.String("filename", s.Filename),
				zap.Error(err),
			)
		}
	}
}

// absoluteURL resolves a path served by this server against the request host.
func absoluteURL(r *http.Request, location string) string {
	if !strings.HasPrefix(location, "/") {
		return location
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + location
}
