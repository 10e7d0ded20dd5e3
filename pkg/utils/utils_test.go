package utils

import "testing"

func TestHashPassword(t *testing.T) {
	password := "supersecret123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == password {
		t.Error("hash should not equal the plain password")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should accept the correct password")
	}
	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should reject a wrong password")
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret"

	token, err := GenerateToken("42", "club", secret)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "42" {
		t.Errorf("expected user id 42, got %s", claims.UserID)
	}
	if claims.Role != "club" {
		t.Errorf("expected role club, got %s", claims.Role)
	}

	if _, err := ValidateToken(token, "other-secret"); err == nil {
		t.Error("expected validation to fail with the wrong secret")
	}
	if _, err := ValidateToken("not-a-token", secret); err == nil {
		t.Error("expected validation to fail for a malformed token")
	}
}
