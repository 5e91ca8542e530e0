//go:build windows

package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"syscall"
	"unsafe"
)

var (
	modcrypt32 = syscall.NewLazyDLL("crypt32.dll")

	procCertOpenSystemStoreW             = modcrypt32.NewProc("CertOpenSystemStoreW")
	procCertFindCertificateInStore       = modcrypt32.NewProc("CertFindCertificateInStore")
	procCertOpenStore                    = modcrypt32.NewProc("CertOpenStore")
	procCertAddCertificateContextToStore = modcrypt32.NewProc("CertAddCertificateContextToStore")
	procCertCloseStore                   = modcrypt32.NewProc("CertCloseStore")
	procPFXExportCertStoreEx             = modcrypt32.NewProc("PFXExportCertStoreEx")
	procCertFreeCertificateContext       = modcrypt32.NewProc("CertFreeCertificateContext")
)

const (
	x509ASNEncoding  = 0x00000001
	pkcs7ASNEncoding = 0x00010000
	certFindSHA1Hash = 1 << 16

	certStoreProvMemory = 2
	certStoreAddAlways  = 4

	exportPrivateKeys               = 0x0004
	reportNoPrivateKey              = 0x0008
	reportNotAbleToExportPrivateKey = 0x0010
)

type cryptoAPIBlob struct {
	DataSize uint32
	Data     *byte
}

// loadFromStore exports the certificate with the given SHA-1 thumbprint
// from CurrentUser\My as a PFX protected by a one-time password, then
// decodes it like a file-based certificate.
func loadFromStore(thumbprint string) (*Certificate, error) {
	if thumbprint == "" {
		return nil, fmt.Errorf("certificate thumbprint is required for store lookup")
	}
	pfxData, password, err := exportFromStore(thumbprint)
	if err != nil {
		return nil, fmt.Errorf("failed to export cert from store: %w", err)
	}
	return DecodePFX(pfxData, password)
}

func exportFromStore(thumbprint string) ([]byte, string, error) {
	thumbprintBytes, err := hex.DecodeString(thumbprint)
	if err != nil {
		return nil, "", fmt.Errorf("invalid thumbprint format: %w", err)
	}

	storeName, _ := syscall.UTF16PtrFromString("MY")
	hSourceStore, _, err := procCertOpenSystemStoreW.Call(0, uintptr(unsafe.Pointer(storeName)))
	if hSourceStore == 0 {
		return nil, "", fmt.Errorf("failed to open system certificate store: %v", err)
	}
	defer procCertCloseStore.Call(hSourceStore, 0)

	hashBlob := cryptoAPIBlob{
		DataSize: uint32(len(thumbprintBytes)),
		Data:     &thumbprintBytes[0],
	}
	pCertContext, _, _ := procCertFindCertificateInStore.Call(
		hSourceStore,
		uintptr(x509ASNEncoding|pkcs7ASNEncoding),
		0,
		uintptr(certFindSHA1Hash),
		uintptr(unsafe.Pointer(&hashBlob)),
		0,
	)
	if pCertContext == 0 {
		return nil, "", fmt.Errorf("certificate with thumbprint %s not found in CurrentUser\\My", thumbprint)
	}
	defer procCertFreeCertificateContext.Call(pCertContext)

	// Export through a memory store so only this certificate is included.
	hTempStore, _, err := procCertOpenStore.Call(uintptr(certStoreProvMemory), 0, 0, 0, 0)
	if hTempStore == 0 {
		return nil, "", fmt.Errorf("failed to create temporary memory store: %v", err)
	}
	defer procCertCloseStore.Call(hTempStore, 0)

	ret, _, err := procCertAddCertificateContextToStore.Call(hTempStore, pCertContext, uintptr(certStoreAddAlways), 0)
	if ret == 0 {
		return nil, "", fmt.Errorf("failed to add certificate to memory store: %v", err)
	}

	password, err := oneTimePassword()
	if err != nil {
		return nil, "", err
	}
	pwPtr, _ := syscall.UTF16PtrFromString(password)

	var blob cryptoAPIBlob
	exportFlags := uintptr(exportPrivateKeys | reportNoPrivateKey | reportNotAbleToExportPrivateKey)

	// First call sizes the blob, second fills it.
	ret, _, err = procPFXExportCertStoreEx.Call(hTempStore, uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(pwPtr)), 0, exportFlags)
	if ret == 0 {
		return nil, "", fmt.Errorf("failed to determine PFX size (key might not be exportable): %v", err)
	}

	buf := make([]byte, blob.DataSize)
	blob.Data = &buf[0]
	ret, _, err = procPFXExportCertStoreEx.Call(hTempStore, uintptr(unsafe.Pointer(&blob)),
		uintptr(unsafe.Pointer(pwPtr)), 0, exportFlags)
	if ret == 0 {
		return nil, "", fmt.Errorf("failed to export PFX data: %v", err)
	}

	return buf, password, nil
}

func oneTimePassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate export password: %w", err)
	}
	return hex.EncodeToString(b), nil
}
