package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/qclickin/platform/libs/auth"
	"github.com/qclickin/platform/services/auth-service/internal/storage"
)

func TestPasswordHashing(t *testing.T) {
	password := "correct-horse"
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if err := verifyPassword(hash, password); err != nil {
		t.Fatalf("verifyPassword should succeed: %v", err)
	}
	if err := verifyPassword(hash, "wrong-pass"); err == nil {
		t.Fatal("verifyPassword should fail for wrong password")
	}
}

func TestIssueJWTCarriesIdentity(t *testing.T) {
	signer := NewHS256Signer("test-secret")
	user := storage.User{
		ID:       "4ec0e8c1-18a8-4e40-9276-8dbd28318d2e",
		Username: "pro",
		Role:     "USER",
		Plan:     "PRO",
	}

	token, err := issueJWT(user, signer)
	if err != nil {
		t.Fatalf("issueJWT failed: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Sub != user.ID {
		t.Fatalf("sub = %q, want %q", claims.Sub, user.ID)
	}
	if claims.Username != "pro" {
		t.Fatalf("username = %q, want pro", claims.Username)
	}
	if claims.Plan != "PRO" {
		t.Fatalf("plan = %q, want PRO", claims.Plan)
	}
	if claims.Exp <= time.Now().Unix() {
		t.Fatal("token should not be issued already expired")
	}
}

func TestRotatingSignerRejectsUnknownKid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	keys, err := ParseRS256KeySet(string(pemBytes))
	if err != nil {
		t.Fatalf("ParseRS256KeySet failed: %v", err)
	}
	signer, err := NewRotatingRS256Signer(keys, "")
	if err != nil {
		t.Fatalf("NewRotatingRS256Signer failed: %v", err)
	}

	token, err := signer.Sign(auth.Claims{
		Sub: "user-1",
		Exp: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if _, err := signer.Verify(token); err != nil {
		t.Fatalf("Verify should accept its own token: %v", err)
	}

	hsToken, err := auth.SignHS256(auth.Claims{Sub: "user-1"}, "other")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := signer.Verify(hsToken); err == nil {
		t.Fatal("Verify should reject a token without a known kid")
	}
}

func TestNewRefreshTokenIsRandom(t *testing.T) {
	a, err := newRefreshToken()
	if err != nil {
		t.Fatalf("newRefreshToken failed: %v", err)
	}
	b, err := newRefreshToken()
	if err != nil {
		t.Fatalf("newRefreshToken failed: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(a))
	}
	if a == b {
		t.Fatal("two refresh tokens should not collide")
	}
}
