package crypto

import "testing"

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor([]byte("short-secret"))
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}

	sealed, err := enc.Encrypt("ya29.access-token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if sealed == "ya29.access-token" || !IsEncrypted(sealed) {
		t.Fatalf("Encrypt() = %q, want ciphertext", sealed)
	}

	plain, err := enc.Decrypt(sealed)
	if err != nil || plain != "ya29.access-token" {
		t.Fatalf("Decrypt() = %q, %v", plain, err)
	}
}

func TestEncryptor_WrongKey(t *testing.T) {
	a, _ := NewEncryptor([]byte("key-a"))
	b, _ := NewEncryptor([]byte("key-b"))

	sealed, _ := a.Encrypt("token")
	if _, err := b.Decrypt(sealed); err != ErrDecryptionFailed {
		t.Errorf("Decrypt() error = %v, want ErrDecryptionFailed", err)
	}
	if got := b.DecryptOrPlain(sealed); got != sealed {
		t.Errorf("DecryptOrPlain() should pass through undecryptable input")
	}
}

func TestEncryptor_PlainPassThrough(t *testing.T) {
	enc, _ := NewEncryptor([]byte("k"))
	if got := enc.DecryptOrPlain("legacy-token"); got != "legacy-token" {
		t.Errorf("DecryptOrPlain() = %q", got)
	}
	if got, _ := enc.Encrypt(""); got != "" {
		t.Errorf("Encrypt(\"\") = %q, want empty", got)
	}
}

func TestNewEncryptor_EmptyKey(t *testing.T) {
	if _, err := NewEncryptor(nil); err != ErrEmptyKey {
		t.Errorf("NewEncryptor(nil) error = %v, want ErrEmptyKey", err)
	}
}
