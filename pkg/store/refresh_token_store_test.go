package store

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryRefreshTokenRotation(t *testing.T) {
	s := NewMemoryRefreshTokenStore()

	token, err := s.NewToken("u1", time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	userID, next, err := s.RotateToken(token, time.Hour)
	if err != nil {
		t.Fatalf("RotateToken: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("userID = %q, want u1", userID)
	}
	if next == token {
		t.Fatal("rotation returned the same token")
	}

	// Replaying the rotated-out token revokes the whole family.
	if _, _, err := s.RotateToken(token, time.Hour); !errors.Is(err, ErrRefreshTokenReplay) {
		t.Fatalf("replay err = %v, want ErrRefreshTokenReplay", err)
	}
	if _, _, err := s.RotateToken(next, time.Hour); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("post-revocation err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestMemoryRefreshTokenDelete(t *testing.T) {
	s := NewMemoryRefreshTokenStore()
	token, err := s.NewToken("u1", time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if err := s.DeleteToken(token); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, _, err := s.RotateToken(token, time.Hour); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("rotate after delete err = %v, want ErrInvalidRefreshToken", err)
	}
	// Deleting an unknown token is a no-op.
	if err := s.DeleteToken("does-not-exist"); err != nil {
		t.Fatalf("DeleteToken unknown: %v", err)
	}
}

func TestMemoryRefreshTokenExpiry(t *testing.T) {
	s := NewMemoryRefreshTokenStore()
	token, err := s.NewToken("u1", -time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if _, _, err := s.RotateToken(token, time.Hour); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expired rotate err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRedisRefreshTokenRotation(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisRefreshTokenStore(mr.Addr(), "")

	token, err := s.NewToken("u1", time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	userID, next, err := s.RotateToken(token, time.Hour)
	if err != nil {
		t.Fatalf("RotateToken: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("userID = %q, want u1", userID)
	}

	if _, _, err := s.RotateToken(token, time.Hour); !errors.Is(err, ErrRefreshTokenReplay) {
		t.Fatalf("replay err = %v, want ErrRefreshTokenReplay", err)
	}
	// The replay revoked the family, including the freshly issued token.
	if _, _, err := s.RotateToken(next, time.Hour); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("post-revocation err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRedisRefreshTokenDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisRefreshTokenStore(mr.Addr(), "")

	token, err := s.NewToken("u1", time.Hour)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if err := s.DeleteToken(token); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, _, err := s.RotateToken(token, time.Hour); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("rotate after delete err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRedisRefreshTokenExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisRefreshTokenStore(mr.Addr(), "")

	token, err := s.NewToken("u1", time.Minute)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, _, err := s.RotateToken(token, time.Hour); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expired rotate err = %v, want ErrInvalidRefreshToken", err)
	}
}
