package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignedURLSigner mints and verifies expiring download tokens for exported
// timetable files, so the download endpoint can stay unauthenticated.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSignedURLSigner builds a signer. A non-positive TTL falls back to 24h.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl}
}

// Generate returns a token binding the schedule ID to the stored file path,
// valid until the returned expiry.
func (s *SignedURLSigner) Generate(scheduleID, relPath string) (string, time.Time, error) {
	if scheduleID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("schedule ID and file path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}

	expiresAt := time.Now().Add(s.ttl)
	expiry := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(relPath))

	token := strings.Join([]string{
		scheduleID,
		expiry,
		encodedPath,
		s.sign(scheduleID, expiry, encodedPath),
	}, ".")
	return token, expiresAt, nil
}

// Parse verifies the signature and expiry of a token and returns the schedule
// ID and file path it carries. allowExpired skips the expiry check, which the
// cleanup loop relies on.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (scheduleID, relPath string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("malformed download token")
	}
	scheduleID, expiry, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(scheduleID, expiry, encodedPath)), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("download token signature mismatch")
	}

	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode token path: %w", err)
	}

	expUnix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid token expiry")
	}
	expiresAt = time.Unix(expUnix, 0)

	if !allowExpired && time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("download token expired")
	}
	return scheduleID, string(rawPath), expiresAt, nil
}

func (s *SignedURLSigner) sign(scheduleID, expiry, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s", scheduleID, expiry, encodedPath)
	return hex.EncodeToString(mac.Sum(nil))
}
