package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ReportLinkSigner mints and validates short-lived download tokens for
// session reports, so a rendered report can be fetched without an access
// token.
type ReportLinkSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewReportLinkSigner constructs a signer with the provided secret and TTL.
func NewReportLinkSigner(secret string, ttl time.Duration) *ReportLinkSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReportLinkSigner{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate returns a signed token referencing a session date and a render
// format ("pdf" or "csv").
func (s *ReportLinkSigner) Generate(sessionDateID, format string) (string, time.Time, error) {
	if sessionDateID == "" || format == "" {
		return "", time.Time{}, fmt.Errorf("sessionDateID and format required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encodedID := base64.RawURLEncoding.EncodeToString([]byte(sessionDateID))
	payload := fmt.Sprintf("%s|%d|%s", format, expiresAt.Unix(), encodedID)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	token := strings.Join([]string{format, fmt.Sprintf("%d", expiresAt.Unix()), encodedID, signature}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded session date and format.
func (s *ReportLinkSigner) Parse(token string) (sessionDateID, format string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, fmt.Errorf("invalid token format")
	}
	format = parts[0]
	ts := parts[1]
	encodedID := parts[2]
	signature := parts[3]

	rawID, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("decode session id: %w", err)
	}

	expUnix, err := parseUnix(ts)
	if err != nil {
		return "", "", time.Time{}, err
	}
	expiresAt = time.Unix(expUnix, 0)

	payload := fmt.Sprintf("%s|%s|%s", format, ts, encodedID)
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", "", time.Time{}, fmt.Errorf("invalid token signature")
	}
	if time.Now().After(expiresAt) {
		return "", "", time.Time{}, fmt.Errorf("token expired")
	}
	return string(rawID), format, expiresAt, nil
}

func parseUnix(raw string) (int64, error) {
	var ts int64
	_, err := fmt.Sscanf(raw, "%d", &ts)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp")
	}
	return ts, nil
}
