package utils

import "testing"

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundtrip(t *testing.T) {
	encrypted, err := Encrypt([]byte("access-token-value"), testKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encrypted == "access-token-value" {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := Decrypt(encrypted, testKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if decrypted != "access-token-value" {
		t.Fatalf("decrypted = %q, want the original plaintext", decrypted)
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), testKey)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	wrongKey := []byte("ffffffffffffffffffffffffffffffff")
	if _, err := Decrypt(encrypted, wrongKey); err == nil {
		t.Fatal("Decrypt with the wrong key succeeded")
	}
}

func TestDecryptGarbage(t *testing.T) {
	if _, err := Decrypt("bm90IGEgcmVhbCBjaXBoZXJ0ZXh0", testKey); err == nil {
		t.Fatal("Decrypt of garbage succeeded")
	}
}
