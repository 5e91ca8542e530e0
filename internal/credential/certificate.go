package credential

import (
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// Certificate is a decoded PFX: leaf first, then any CA certificates.
type Certificate struct {
	Leaf  *x509.Certificate
	Chain []*x509.Certificate
	key   crypto.PrivateKey
}

// CertificateInfo summarizes the leaf certificate.
type CertificateInfo struct {
	Subject         string
	Issuer          string
	SerialNumber    string
	Thumbprint      string
	ValidFrom       time.Time
	ValidTo         time.Time
	DaysUntilExpiry int // negative if expired
	IsExpired       bool
	IsSelfSigned    bool
	ChainLength     int
}

// LoadPFXFile reads and decodes a PFX file.
func LoadPFXFile(path, password string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PFX file: %w", err)
	}
	return DecodePFX(data, password)
}

// DecodePFX decodes PFX data with go-pkcs12, which handles both legacy
// (SHA-1/3DES) and modern (SHA-256/AES) encodings.
func DecodePFX(data []byte, password string) (*Certificate, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to decode PFX: empty data")
	}
	key, leaf, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PFX: %w", err)
	}
	privKey, ok := key.(crypto.PrivateKey)
	if !ok || privKey == nil {
		return nil, fmt.Errorf("decoded key is not a valid crypto.PrivateKey")
	}

	chain := []*x509.Certificate{leaf}
	chain = append(chain, caCerts...)
	return &Certificate{Leaf: leaf, Chain: chain, key: privKey}, nil
}

// Thumbprint is the lowercase hex SHA-1 of the leaf, as shown by Windows.
func (c *Certificate) Thumbprint() string {
	sum := sha1.Sum(c.Leaf.Raw)
	return hex.EncodeToString(sum[:])
}

// Info describes the leaf certificate relative to now.
func (c *Certificate) Info(now time.Time) CertificateInfo {
	leaf := c.Leaf
	return CertificateInfo{
		Subject:         leaf.Subject.String(),
		Issuer:          leaf.Issuer.String(),
		SerialNumber:    fmt.Sprintf("%X", leaf.SerialNumber),
		Thumbprint:      c.Thumbprint(),
		ValidFrom:       leaf.NotBefore,
		ValidTo:         leaf.NotAfter,
		DaysUntilExpiry: int(leaf.NotAfter.Sub(now).Hours() / 24),
		IsExpired:       now.After(leaf.NotAfter),
		IsSelfSigned:    leaf.Subject.String() == leaf.Issuer.String(),
		ChainLength:     len(c.Chain),
	}
}
