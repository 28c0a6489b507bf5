package validation

import (
	"errors"
	"testing"
)

func TestMinLen(t *testing.T) {
	if err := MinLen("name", "ab", 3); err == nil {
		t.Fatalf("expected error for short name")
	} else {
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "name" {
			t.Fatalf("expected *ValidationError for name, got %v", err)
		}
	}
	if err := MinLen("name", "Acme", 3); err != nil {
		t.Fatalf("MinLen: %v", err)
	}
	// Whitespace does not count toward the minimum.
	if err := MinLen("name", "  a  ", 3); err == nil {
		t.Fatalf("expected error for padded short name")
	}
}

func TestNonNegativeFloat(t *testing.T) {
	if _, err := NonNegativeFloat("price", "-5"); err == nil {
		t.Fatalf("expected error for negative price")
	}
	if _, err := NonNegativeFloat("price", "abc"); err == nil {
		t.Fatalf("expected error for non-numeric price")
	}
	f, err := NonNegativeFloat("price", "19.90")
	if err != nil {
		t.Fatalf("NonNegativeFloat: %v", err)
	}
	if f != 19.90 {
		t.Fatalf("price: want=19.90 got=%v", f)
	}
}

func TestNonNegativeInt(t *testing.T) {
	if _, err := NonNegativeInt("stock", "-1"); err == nil {
		t.Fatalf("expected error for negative stock")
	}
	n, err := NonNegativeInt("stock", "12")
	if err != nil {
		t.Fatalf("NonNegativeInt: %v", err)
	}
	if n != 12 {
		t.Fatalf("stock: want=12 got=%d", n)
	}
}

func TestEmail(t *testing.T) {
	if err := Email("email", "not-an-email"); err == nil {
		t.Fatalf("expected error for invalid email")
	}
	if err := Email("email", "a@b.com"); err != nil {
		t.Fatalf("Email: %v", err)
	}
	// Empty is allowed; Required covers presence.
	if err := Email("email", ""); err != nil {
		t.Fatalf("Email empty: %v", err)
	}
}

func TestUniqueKeys(t *testing.T) {
	if err := UniqueKeys("attributes", []KV{{Key: "color", Value: "red"}, {Key: "color", Value: "blue"}}); err == nil {
		t.Fatalf("expected error for duplicate keys")
	}
	if err := UniqueKeys("attributes", []KV{{Key: "", Value: "x"}}); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if err := UniqueKeys("attributes", []KV{{Key: "color", Value: "red"}, {Key: "size", Value: "M"}}); err != nil {
		t.Fatalf("UniqueKeys: %v", err)
	}
}

func TestCheckFile(t *testing.T) {
	if _, err := CheckFile("notes.txt", "text/plain", 100); err == nil {
		t.Fatalf("expected error for disallowed content type")
	} else {
		var fe *FileConstraintError
		if !errors.As(err, &fe) || fe.Name != "notes.txt" {
			t.Fatalf("expected *FileConstraintError naming the file, got %v", err)
		}
	}

	if _, err := CheckFile("big.png", "image/png", 6<<20); err == nil {
		t.Fatalf("expected error for oversized file")
	}

	ext, err := CheckFile("logo.png", "image/png", 1024)
	if err != nil {
		t.Fatalf("CheckFile: %v", err)
	}
	if ext != ".png" {
		t.Fatalf("ext: want=.png got=%s", ext)
	}

	if ext, err := CheckFile("doc.pdf", "application/pdf", validationMaxOK()); err != nil || ext != ".pdf" {
		t.Fatalf("CheckFile pdf at limit: ext=%s err=%v", ext, err)
	}
}

// exactly at the 5 MiB boundary is allowed
func validationMaxOK() int64 { return MaxFileSizeBytes }
