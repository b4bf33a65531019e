package controllers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/storage"
)

func (h *harness) upload(path, token, field, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	h.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		h.t.Fatalf("create part: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadAvatarAndDelete(t *testing.T) {
	h := newHarness(t)
	_, token := h.login(models.RoleUser)
	png := []byte("\x89PNG\r\n\x1a\nfake image bytes")

	env := h.expect(h.upload("/api/upload/avatar", token, "avatar", "me.png", "image/png", png), http.StatusOK)
	var stored storage.Stored
	decodeData(t, env, &stored)
	if stored.Folder != "avatars" || stored.Size != int64(len(png)) || stored.OriginalName != "me.png" {
		t.Fatalf("stored = %+v", stored)
	}
	onDisk, err := os.ReadFile(filepath.Join(h.deps.Cfg.UploadDir, "avatars", stored.Filename))
	if err != nil || !bytes.Equal(onDisk, png) {
		t.Fatalf("file on disk = %q, %v", onDisk, err)
	}

	path := "/api/upload/avatars/" + stored.Filename
	h.expect(h.do(http.MethodDelete, path, token, nil), http.StatusOK)
	h.expect(h.do(http.MethodDelete, path, token, nil), http.StatusNotFound)
	h.expect(h.do(http.MethodDelete, "/api/upload/secrets/"+stored.Filename, token, nil), http.StatusBadRequest)
}

func TestUploadRejectsBadFiles(t *testing.T) {
	h := newHarness(t)
	_, token := h.login(models.RoleUser)

	h.expect(h.upload("/api/upload/avatar", token, "avatar", "notes.txt", "text/plain", []byte("hello")), http.StatusBadRequest)
	h.expect(h.upload("/api/upload/avatar", token, "document", "me.png", "image/png", []byte("png")), http.StatusBadRequest)

	big := bytes.Repeat([]byte("x"), int(h.deps.Cfg.MaxFileSize)+1)
	env := h.expect(h.upload("/api/upload/avatar", token, "avatar", "big.png", "image/png", big), http.StatusBadRequest)
	if env.Message != "File too large. Maximum size is 1 MB" {
		t.Fatalf("message = %q", env.Message)
	}

	entries, _ := os.ReadDir(filepath.Join(h.deps.Cfg.UploadDir, "avatars"))
	if len(entries) != 0 {
		t.Fatalf("%d files written for rejected uploads", len(entries))
	}
}

// flakyUploads stores the first n files and refuses the rest.
type flakyUploads struct {
	storage.Backend
	remaining int
}

func (f *flakyUploads) Save(ctx context.Context, folder, filename, contentType string, r io.Reader, size int64) (string, error) {
	if f.remaining == 0 {
		return "", errors.New("bucket unavailable")
	}
	f.remaining--
	return f.Backend.Save(ctx, folder, filename, contentType, r, size)
}

type filePart struct {
	field, filename, contentType string
}

func (h *harness) uploadMany(path, token string, parts []filePart) *httptest.ResponseRecorder {
	h.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		header.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(header)
		if err != nil {
			h.t.Fatalf("create part: %v", err)
		}
		w.Write([]byte("contents of " + p.filename))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestFailedUploadLeavesNoFilesBehind(t *testing.T) {
	parts := []filePart{
		{storage.FieldPropertyImages, "front.jpg", "image/jpeg"},
		{storage.FieldPropertyImages, "back.png", "image/png"},
		{storage.FieldDocument, "deed.pdf", "application/pdf"},
	}
	for _, saves := range []int{1, 2} {
		h := newHarness(t)
		_, token := h.login(models.RoleAgent)
		h.deps.Uploads = &flakyUploads{Backend: h.deps.Uploads, remaining: saves}

		h.expect(h.uploadMany("/api/upload/property-files", token, parts), http.StatusInternalServerError)

		for _, field := range []string{storage.FieldPropertyImages, storage.FieldDocument} {
			dir := filepath.Join(h.deps.Cfg.UploadDir, storage.FolderFor(field))
			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatalf("read %s: %v", dir, err)
			}
			if len(entries) != 0 {
				t.Fatalf("after %d successful saves, %d files left in %s", saves, len(entries), dir)
			}
		}
	}
}
