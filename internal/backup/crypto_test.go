package backup

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte(`{"device_id":"abc","days":{}}`)

	sealed, err := Encrypt(plaintext, "correct horse")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, []byte("device_id")) {
		t.Error("ciphertext leaks plaintext")
	}

	opened, err := Decrypt(sealed, "correct horse")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("round trip mismatch: %q", opened)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(sealed, "wrong"); err == nil {
		t.Error("decrypt with wrong passphrase succeeded")
	}
}

func TestDecryptTruncated(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatal(err)
	}

	for _, n := range []int{0, saltSize, saltSize + nonceSize - 1, len(sealed) - 1} {
		if _, err := Decrypt(sealed[:n], "pass"); err == nil {
			t.Errorf("decrypt of %d-byte prefix succeeded", n)
		}
	}
}

func TestEncryptFreshSaltPerCall(t *testing.T) {
	a, err := Encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a[:saltSize], b[:saltSize]) {
		t.Error("salt reused across encryptions")
	}
	if bytes.Equal(a, b) {
		t.Error("identical ciphertexts for separate encryptions")
	}
}
