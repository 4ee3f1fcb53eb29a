package orchestrator

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/catalystcommunity/lattice/internal/config"
)

// tlsKeyBits is the RSA key size for generated controller certificates.
// Tests shrink it to keep key generation fast.
var tlsKeyBits = 4096

// tlsValidity is how long generated certificates stay valid.
const tlsValidity = 365 * 24 * time.Hour

// ensureTLS returns the PEM-encoded controller certificate and key. It
// prefers the files named by the record, then a previously generated
// pair under the lattice config directory, and generates a self-signed
// pair when neither exists.
func ensureTLS(domain string, cfg *config.OrchestratorConfig) (certPEM, keyPEM []byte, err error) {
	if cert, key, ok := readPair(cfg.TLSCertPath, cfg.TLSKeyPath); ok {
		return cert, key, nil
	}
	fallbackCert, fallbackKey, err := fallbackPaths()
	if err != nil {
		return nil, nil, err
	}
	if cert, key, ok := readPair(fallbackCert, fallbackKey); ok {
		return cert, key, nil
	}

	fmt.Printf("  Generating self-signed TLS certificate for %s...\n", domain)
	certPEM, keyPEM, err = generateSelfSigned(domain)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate TLS certificate: %w", err)
	}
	if err := writePair(cfg.TLSCertPath, cfg.TLSKeyPath, certPEM, keyPEM); err != nil {
		// The configured location is usually root-owned. Keep the pair
		// under the config directory so future runs reuse it.
		if err := writePair(fallbackCert, fallbackKey, certPEM, keyPEM); err != nil {
			return nil, nil, fmt.Errorf("failed to store TLS certificate: %w", err)
		}
	}
	return certPEM, keyPEM, nil
}

// readPair loads a certificate and key, reporting ok only when both
// files are readable.
func readPair(certPath, keyPath string) (cert, key []byte, ok bool) {
	cert, certErr := os.ReadFile(certPath)
	key, keyErr := os.ReadFile(keyPath)
	if certErr != nil || keyErr != nil {
		return nil, nil, false
	}
	return cert, key, true
}

// fallbackPaths names the certificate pair under the config directory.
func fallbackPaths() (certPath, keyPath string, err error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return "", "", err
	}
	certsDir := filepath.Join(configDir, "certs")
	return filepath.Join(certsDir, "tls.crt"), filepath.Join(certsDir, "tls.key"), nil
}

func writePair(certPath, keyPath string, cert, key []byte) error {
	if err := os.MkdirAll(filepath.Dir(certPath), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(certPath, cert, 0644); err != nil {
		return err
	}
	return os.WriteFile(keyPath, key, 0600)
}

// generateSelfSigned creates a self-signed server certificate for the
// deployment domain and its subdomains.
func generateSelfSigned(domain string) (certPEM, keyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, tlsKeyBits)
	if err != nil {
		return nil, nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: domain},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(tlsValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{domain, "*." + domain},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM, nil
}
