//go:build !integration
// +build !integration

package credential

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"software.sslmate.com/src/go-pkcs12"

	"m365console/internal/common/errs"
)

func TestDecodePFX_Encodings(t *testing.T) {
	cert, key := generateTestCertificate(t, time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))

	tests := []struct {
		name    string
		encoder *pkcs12.Encoder
	}{
		{"modern2023", pkcs12.Modern2023},
		{"legacy", pkcs12.Legacy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.encoder.Encode(key, cert, nil, "pw")
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := DecodePFX(data, "pw")
			if err != nil {
				t.Fatalf("DecodePFX() error = %v", err)
			}
			if got.Leaf.Subject.CommonName != "Test Certificate" {
				t.Errorf("CommonName = %q", got.Leaf.Subject.CommonName)
			}
			if len(got.Chain) != 1 {
				t.Errorf("chain length = %d, want 1", len(got.Chain))
			}
		})
	}
}

func TestDecodePFX_Errors(t *testing.T) {
	cert, key := generateTestCertificate(t, time.Now(), time.Now().Add(time.Hour))
	data, err := pkcs12.Modern2023.Encode(key, cert, nil, "right")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := DecodePFX(data, "wrong"); err == nil {
		t.Error("DecodePFX() with wrong password succeeded")
	}
	if _, err := DecodePFX([]byte("not a pfx"), "right"); err == nil {
		t.Error("DecodePFX() with malformed data succeeded")
	}
	if _, err := DecodePFX(nil, ""); err == nil {
		t.Error("DecodePFX() with empty data succeeded")
	}
}

func TestCertificateInfo(t *testing.T) {
	now := time.Now()
	cert, key := generateTestCertificate(t, now.Add(-time.Hour), now.Add(45*24*time.Hour))
	data, err := pkcs12.Modern2023.Encode(key, cert, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	c, err := DecodePFX(data, "")
	if err != nil {
		t.Fatal(err)
	}

	sum := sha1.Sum(cert.Raw)
	if c.Thumbprint() != hex.EncodeToString(sum[:]) {
		t.Errorf("Thumbprint() = %s", c.Thumbprint())
	}

	info := c.Info(now)
	if info.IsExpired {
		t.Error("IsExpired = true")
	}
	if !info.IsSelfSigned {
		t.Error("IsSelfSigned = false for self-signed certificate")
	}
	if info.DaysUntilExpiry < 44 || info.DaysUntilExpiry > 45 {
		t.Errorf("DaysUntilExpiry = %d, want ~45", info.DaysUntilExpiry)
	}

	later := c.Info(now.Add(46 * 24 * time.Hour))
	if !later.IsExpired || later.DaysUntilExpiry >= 0 {
		t.Errorf("Info(after expiry) = expired %v, days %d", later.IsExpired, later.DaysUntilExpiry)
	}
}

func TestTokenCredential(t *testing.T) {
	path, _ := writeTestPFX(t, "pw", time.Now().Add(24*time.Hour))
	c, err := LoadPFXFile(path, "pw")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cred    Credential
		wantErr bool
	}{
		{"secret", Credential{Kind: KindSecret, TenantID: testTenant, ClientID: testClient, Secret: "x"}, false},
		{"certificate", Credential{Kind: KindCertificate, TenantID: testTenant, ClientID: testClient, Certificate: c}, false},
		{"certificate without material", Credential{Kind: KindCertificate, TenantID: testTenant, ClientID: testClient}, true},
		{"unknown kind", Credential{Kind: "kerberos", TenantID: testTenant, ClientID: testClient}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := TokenCredential(tt.cred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TokenCredential() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tc == nil {
				t.Error("TokenCredential() returned nil credential")
			}
		})
	}
}

func TestClassifyAuthError(t *testing.T) {
	response := func(status int) *http.Response {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`{"error":"invalid_client"}`)),
			Request:    httptest.NewRequest(http.MethodPost, "https://login.microsoftonline.com/token", nil),
		}
	}
	rejected := &azidentity.AuthenticationFailedError{RawResponse: response(http.StatusUnauthorized)}
	throttled := &azidentity.AuthenticationFailedError{RawResponse: response(http.StatusTooManyRequests)}
	plain := errors.New("dial tcp: connection refused")

	if err := ClassifyAuthError("connect", rejected); !errors.Is(err, errs.ErrAuth) {
		t.Errorf("401 classified as %v, want AuthError", err)
	}
	if err := ClassifyAuthError("connect", throttled); !errors.Is(err, errs.ErrNetwork) {
		t.Errorf("429 classified as %v, want NetworkError", err)
	}
	if err := ClassifyAuthError("connect", plain); err != plain {
		t.Errorf("plain error changed to %v", err)
	}
}
