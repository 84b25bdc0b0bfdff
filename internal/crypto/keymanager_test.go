package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKeyHex, "hunter2")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	got, err := DecryptKey(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("decrypted key = %s, want %s", got, testKeyHex)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "correct")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}

	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("expected decryption failure with wrong password")
	}
}

func TestEncryptKeyRejectsBadInput(t *testing.T) {
	if _, err := EncryptKey(testKeyHex, ""); err == nil {
		t.Error("expected error for empty password")
	}
	if _, err := EncryptKey("zz", "pw"); err == nil {
		t.Error("expected error for non-hex key")
	}
	if _, err := EncryptKey("abcd", "pw"); err == nil {
		t.Error("expected error for short key")
	}
}

func TestLoadKeyPrefersRaw(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("key = %s, want %s", got, testKeyHex)
	}
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	if err != nil {
		t.Fatalf("EncryptKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if got != testKeyHex {
		t.Errorf("key = %s, want %s", got, testKeyHex)
	}
}

func TestLoadKeyNoSource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "no private key source") {
		t.Errorf("unexpected error: %v", err)
	}
}
