// Package storage persists uploaded files on local disk or in an S3
// compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

const (
	FieldAvatar         = "avatar"
	FieldPropertyImages = "propertyImages"
	FieldFloorPlan      = "floorPlan"
	FieldDocument       = "document"
)

var (
	ErrFileType    = errors.New("file type not allowed")
	ErrInvalidPath = errors.New("invalid file path")
	ErrNotFound    = errors.New("file not found")
)

var folders = map[string]string{
	FieldAvatar:         "avatars",
	FieldPropertyImages: "properties",
	FieldFloorPlan:      "floorplans",
	FieldDocument:       "documents",
}

var maxCounts = map[string]int{
	FieldAvatar:         1,
	FieldPropertyImages: 20,
	FieldFloorPlan:      5,
	FieldDocument:       10,
}

var (
	imageExts    = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true}
	documentExts = map[string]bool{".pdf": true, ".doc": true, ".docx": true}
	// fields that may carry documents as well as images
	documentFields = map[string]bool{FieldFloorPlan: true, FieldDocument: true}
)

// Stored describes one saved file.
type Stored struct {
	Field        string `json:"fieldname"`
	OriginalName string `json:"originalname"`
	Filename     string `json:"filename"`
	Folder       string `json:"folder"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
	Path         string `json:"path"`
	URL          string `json:"url"`
}

type Backend interface {
	Save(ctx context.Context, folder, filename, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, folder, filename string) error
	Name() string
}

// FolderFor maps a form field to the folder its files are written to.
func FolderFor(field string) string {
	if f, ok := folders[field]; ok {
		return f
	}
	return "misc"
}

// MaxCount is how many files one request may carry for field.
func MaxCount(field string) int {
	if n, ok := maxCounts[field]; ok {
		return n
	}
	return 1
}

// KnownFolder reports whether folder is one files are ever written to.
func KnownFolder(folder string) bool {
	if folder == "misc" {
		return true
	}
	for _, f := range folders {
		if f == folder {
			return true
		}
	}
	return false
}

// Allowed checks an upload's extension and, for images, its content type.
// Floor plans and documents may also be pdf or Word files.
func Allowed(field, filename, contentType string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}
	if imageExts[ext] && strings.HasPrefix(mediaType, "image/") {
		return nil
	}
	if documentFields[field] {
		if documentExts[ext] {
			return nil
		}
		return fmt.Errorf("%w: only images (jpeg, jpg, png, gif, webp) and documents (pdf, doc, docx) are allowed", ErrFileType)
	}
	return fmt.Errorf("%w: only images (jpeg, jpg, png, gif, webp) are allowed", ErrFileType)
}

// cleanPath rejects anything that would escape its folder.
func cleanPath(folder, filename string) error {
	if !KnownFolder(folder) {
		return ErrInvalidPath
	}
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return ErrInvalidPath
	}
	return nil
}
