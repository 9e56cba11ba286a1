package httpclient

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
)

func TestTLSConfig_Build_Empty(t *testing.T) {
	var nilCfg *TLSConfig
	if got, err := nilCfg.Build(); err != nil || got != nil {
		t.Fatalf("nil config: got (%v, %v)", got, err)
	}
	if got, err := (&TLSConfig{}).Build(); err != nil || got != nil {
		t.Fatalf("zero config: got (%v, %v)", got, err)
	}
}

func TestTLSConfig_Build_SkipVerify(t *testing.T) {
	got, err := (&TLSConfig{SkipVerify: true, ServerName: "api.example.com"}).Build()
	if err != nil {
		t.Fatal(err)
	}
	if !got.InsecureSkipVerify || got.ServerName != "api.example.com" {
		t.Errorf("unexpected config: %+v", got)
	}
	if got.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected TLS 1.2 minimum, got %d", got.MinVersion)
	}
}

func TestTLSConfig_Build_BadCAFile(t *testing.T) {
	if _, err := (&TLSConfig{CAFile: "/nonexistent/ca.pem"}).Build(); err == nil {
		t.Fatal("expected error for missing CA file")
	}

	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := (&TLSConfig{CAFile: path}).Build(); err == nil {
		t.Fatal("expected error for CA file without certificates")
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	if err := (&TLSConfig{CertFile: "cert.pem"}).Validate(); err == nil {
		t.Fatal("expected error when key_file is missing")
	}
	if err := (&TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
