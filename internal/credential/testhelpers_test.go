//go:build !integration
// +build !integration

package credential

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

const (
	testTenant = "12345678-1234-1234-1234-123456789abc"
	testClient = "abcdef01-2345-6789-abcd-ef0123456789"
)

// generateTestCertificate returns a self-signed client certificate valid
// from notBefore until notAfter.
func generateTestCertificate(t *testing.T, notBefore, notAfter time.Time) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate private key: %v", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		t.Fatalf("Failed to generate serial number: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Test Organization"},
			CommonName:   "Test Certificate",
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("Failed to parse certificate: %v", err)
	}
	return cert, privateKey
}

// writeTestPFX writes a Modern2023 PFX to a temp file and returns its path
// and the leaf certificate.
func writeTestPFX(t *testing.T, password string, notAfter time.Time) (string, *x509.Certificate) {
	t.Helper()

	cert, key := generateTestCertificate(t, time.Now().Add(-time.Hour), notAfter)
	pfxData, err := pkcs12.Modern2023.Encode(key, cert, nil, password)
	if err != nil {
		t.Fatalf("Failed to encode PFX: %v", err)
	}

	path := filepath.Join(t.TempDir(), "app.pfx")
	if err := os.WriteFile(path, pfxData, 0o600); err != nil {
		t.Fatalf("Failed to write PFX: %v", err)
	}
	return path, cert
}
