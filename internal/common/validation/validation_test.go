package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateGUID(t *testing.T) {
	tests := []struct {
		name    string
		guid    string
		wantErr string
	}{
		{"valid", "12345678-1234-1234-1234-123456789012", ""},
		{"valid with spaces", "  abcdef01-2345-6789-abcd-ef0123456789 ", ""},
		{"empty", "", "cannot be empty"},
		{"too short", "1234", "should be a GUID"},
		{"misplaced dashes", "123456789-234-1234-1234-123456789012", "dashes at wrong positions"},
		{"not hex", "zzzzzzzz-1234-1234-1234-123456789012", "non-hexadecimal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGUID(tt.guid, "tenantId")
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateGUID(%q) unexpected error = %v", tt.guid, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateGUID(%q) error = %v, want containing %q", tt.guid, err, tt.wantErr)
			}
		})
	}
}

func TestValidateThumbprint(t *testing.T) {
	tests := []struct {
		name       string
		thumbprint string
		wantErr    bool
	}{
		{"valid lowercase", "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678", false},
		{"valid with colons", "A1:B2:C3:D4:E5:F6:07:18:29:3A:4B:5C:6D:7E:8F:90:12:34:56:78", false},
		{"valid with spaces", "a1 b2 c3 d4 e5 f6 07 18 29 3a 4b 5c 6d 7e 8f 90 12 34 56 78", false},
		{"too short", "a1b2c3", true},
		{"not hex", "g1b2c3d4e5f60718293a4b5c6d7e8f9012345678", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThumbprint(tt.thumbprint)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateThumbprint(%q) error = %v, wantErr %v", tt.thumbprint, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFilePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.pfx")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"empty is optional", "", ""},
		{"existing file", file, ""},
		{"missing", filepath.Join(dir, "missing.pfx"), "file not found"},
		{"directory", dir, "not a regular file"},
		{"traversal", "../../etc/passwd", "directory traversal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path, "certificatePath")
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateFilePath(%q) unexpected error = %v", tt.path, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateFilePath(%q) error = %v, want containing %q", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateHostname(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{"outlook.office365.com", false},
		{"10.0.0.5", false},
		{"::1", false},
		{"", true},
		{"-bad.example.com", true},
		{"bad_host", true},
	}

	for _, tt := range tests {
		if err := ValidateHostname(tt.host); (err != nil) != tt.wantErr {
			t.Errorf("ValidateHostname(%q) error = %v, wantErr %v", tt.host, err, tt.wantErr)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("reports@contoso.com"); err != nil {
		t.Errorf("ValidateEmail(valid) error = %v", err)
	}
	for _, bad := range []string{"", "no-at", "@contoso.com", "a@b@c"} {
		if err := ValidateEmail(bad); err == nil {
			t.Errorf("ValidateEmail(%q) error = nil, want error", bad)
		}
	}
}
