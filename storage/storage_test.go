package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFolderFor(t *testing.T) {
	cases := map[string]string{
		"avatar":         "avatars",
		"propertyImages": "properties",
		"floorPlan":      "floorplans",
		"document":       "documents",
		"other":          "misc",
	}
	for field, want := range cases {
		if got := FolderFor(field); got != want {
			t.Fatalf("FolderFor(%q) = %q, want %q", field, got, want)
		}
	}
	if MaxCount(FieldPropertyImages) != 20 || MaxCount(FieldFloorPlan) != 5 || MaxCount(FieldDocument) != 10 {
		t.Fatalf("unexpected max counts")
	}
}

func TestAllowed(t *testing.T) {
	ok := []struct{ field, name, mime string }{
		{FieldAvatar, "me.PNG", "image/png"},
		{FieldPropertyImages, "a.webp", "image/webp"},
		{FieldDocument, "deed.pdf", "application/pdf"},
		{FieldDocument, "scan.jpg", "image/jpeg"},
		{FieldFloorPlan, "plan.PDF", "application/octet-stream"},
	}
	for _, c := range ok {
		if err := Allowed(c.field, c.name, c.mime); err != nil {
			t.Fatalf("expected %s accepted for %s: %v", c.name, c.field, err)
		}
	}
	bad := []struct{ field, name, mime string }{
		{FieldAvatar, "a.pdf", "application/pdf"},
		{FieldPropertyImages, "x.exe", "image/png"},
		{FieldPropertyImages, "x.png", "text/html"},
		{FieldDocument, "x.txt", "text/plain"},
	}
	for _, c := range bad {
		if err := Allowed(c.field, c.name, c.mime); !errors.Is(err, ErrFileType) {
			t.Fatalf("expected ErrFileType for %s on %s, got %v", c.name, c.field, err)
		}
	}
}

func TestDiskSaveAndDelete(t *testing.T) {
	root := t.TempDir()
	d, err := NewDiskStorage(root)
	if err != nil {
		t.Fatalf("NewDiskStorage: %v", err)
	}
	ctx := context.Background()

	url, err := d.Save(ctx, "avatars", "avatar-1-2.png", "image/png", strings.NewReader("png"), 3)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if url != "/uploads/avatars/avatar-1-2.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if data, _ := os.ReadFile(filepath.Join(root, "avatars", "avatar-1-2.png")); string(data) != "png" {
		t.Fatalf("unexpected file content %q", data)
	}
	if _, err := d.Save(ctx, "avatars", "avatar-1-2.png", "image/png", strings.NewReader("x"), 1); err == nil {
		t.Fatalf("expected an existing file not to be overwritten")
	}

	if err := d.Delete(ctx, "avatars", "avatar-1-2.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := d.Delete(ctx, "avatars", "avatar-1-2.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDiskRejectsTraversal(t *testing.T) {
	d, err := NewDiskStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStorage: %v", err)
	}
	ctx := context.Background()
	for _, c := range []struct{ folder, name string }{
		{"avatars", "../secret"},
		{"..", "passwd"},
		{"avatars", ".env"},
		{"etc", "x.png"},
	} {
		if err := d.Delete(ctx, c.folder, c.name); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for %s/%s, got %v", c.folder, c.name, err)
		}
	}
}
