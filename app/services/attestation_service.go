// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AttestationService verifies a human-attestation (bot mitigation) token
// issued by the client before sensitive actions such as signup. A false
// result means the token was rejected; a non-nil error means the verifier
// itself failed.
type AttestationService interface {
	Verify(ctx context.Context, token, action string) (bool, error)
}

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaService verifies tokens server-side against the reCAPTCHA
// siteverify endpoint.
type RecaptchaService struct {
	secret   string
	minScore float64
	client   *http.Client
}

// NewRecaptchaService creates a reCAPTCHA-backed attestation service.
// minScore applies to v3 tokens; a zero value accepts any score.
func NewRecaptchaService(secret string, minScore float64, timeout time.Duration) AttestationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RecaptchaService{
		secret:   secret,
		minScore: minScore,
		client:   &http.Client{Timeout: timeout},
	}
}

type recaptchaResponse struct {
	Success bool     `json:"success"`
	Score   float64  `json:"score"`
	Action  string   `json:"action"`
	Errors  []string `json:"error-codes"`
}

func (s *RecaptchaService) Verify(ctx context.Context, token, action string) (bool, error) {
	if token == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", s.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recaptchaVerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build recaptcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("recaptcha request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("recaptcha returned status %d", resp.StatusCode)
	}

	var body recaptchaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode recaptcha response: %w", err)
	}

	if !body.Success {
		return false, nil
	}
	if action != "" && body.Action != "" && body.Action != action {
		return false, nil
	}
	if s.minScore > 0 && body.Score > 0 && body.Score < s.minScore {
		return false, nil
	}

	return true, nil
}

// MockAttestationService accepts any non-empty token without contacting a
// verifier. Development stand-in only; it provides no real bot mitigation.
type MockAttestationService struct{}

func NewMockAttestationService() AttestationService {
	return &MockAttestationService{}
}

func (s *MockAttestationService) Verify(ctx context.Context, token, action string) (bool, error) {
	if token == "" {
		return false, nil
	}
	log.Printf("Accepting attestation token for action %q without server-side verification", action)
	return true, nil
}
