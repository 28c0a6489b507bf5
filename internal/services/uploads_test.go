package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gestorbiz/gestor-backend/internal/validation"
)

func TestCheckUploadNilFileIsAccepted(t *testing.T) {
	ext, err := checkUpload(nil)
	if err != nil {
		t.Fatalf("nil upload: unexpected error %v", err)
	}
	if ext != "" {
		t.Fatalf("nil upload: want empty extension, got %q", ext)
	}
}

func TestCheckUploadUsesBufferedBytesOverDeclaredSize(t *testing.T) {
	f := &FileUpload{
		Name:        "logo.png",
		ContentType: "image/png",
		Size:        128,
		Content:     bytes.Repeat([]byte{0xAB}, validation.MaxFileSizeBytes+1),
	}

	_, err := checkUpload(f)
	var fcErr *validation.FileConstraintError
	if !errors.As(err, &fcErr) {
		t.Fatalf("oversized buffered content: want FileConstraintError, got %v", err)
	}
}

func TestCheckUploadDeclaredSizeStillEnforced(t *testing.T) {
	f := &FileUpload{
		Name:        "contract.pdf",
		ContentType: "application/pdf",
		Size:        validation.MaxFileSizeBytes + 1,
		Content:     []byte("%PDF-1.7"),
	}

	_, err := checkUpload(f)
	var fcErr *validation.FileConstraintError
	if !errors.As(err, &fcErr) {
		t.Fatalf("oversized declared size: want FileConstraintError, got %v", err)
	}

	f.Size = 8
	ext, err := checkUpload(f)
	if err != nil {
		t.Fatalf("small pdf: unexpected error %v", err)
	}
	if ext != ".pdf" {
		t.Fatalf("small pdf: want extension .pdf, got %q", ext)
	}
}
