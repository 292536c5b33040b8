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

// TwoFactorService validates and enrolls second-factor codes against an
// external verifier. Verify and Enroll return whether the code was accepted;
// a non-nil error means the verifier itself failed, which is distinct from a
// rejected code.
type TwoFactorService interface {
	Verify(ctx context.Context, identity, code string) (bool, error)
	Enroll(ctx context.Context, identity, code string) (bool, error)
}

// PrivacyIDEAService validates codes against a privacyIDEA server.
type PrivacyIDEAService struct {
	baseURL      string
	serviceToken string
	realm        string
	client       *http.Client
}

// NewPrivacyIDEAService creates a privacyIDEA-backed two-factor service
func NewPrivacyIDEAService(baseURL, serviceToken, realm string, timeout time.Duration) TwoFactorService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PrivacyIDEAService{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		realm:        realm,
		client:       &http.Client{Timeout: timeout},
	}
}

type privacyIDEAResponse struct {
	Result struct {
		Status bool `json:"status"`
		Value  bool `json:"value"`
	} `json:"result"`
}

// Verify checks a code against the user's enrolled token
func (s *PrivacyIDEAService) Verify(ctx context.Context, identity, code string) (bool, error) {
	return s.post(ctx, "/validate/check", identity, code)
}

// Enroll confirms the final verification step of token enrollment
func (s *PrivacyIDEAService) Enroll(ctx context.Context, identity, code string) (bool, error) {
	return s.post(ctx, "/token/init", identity, code)
}

func (s *PrivacyIDEAService) post(ctx context.Context, path, identity, code string) (bool, error) {
	form := url.Values{}
	form.Set("user", identity)
	form.Set("pass", code)
	if s.realm != "" {
		form.Set("realm", s.realm)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build privacyIDEA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.serviceToken != "" {
		req.Header.Set("Authorization", s.serviceToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("privacyIDEA request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("privacyIDEA returned status %d", resp.StatusCode)
	}

	var body privacyIDEAResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode privacyIDEA response: %w", err)
	}

	return body.Result.Status && body.Result.Value, nil
}

// MockTwoFactorService accepts a single fixed code. Stand-in for development
// and tests; production must configure the privacyIDEA service instead.
type MockTwoFactorService struct {
	AcceptedCode string
}

func NewMockTwoFactorService() TwoFactorService {
	return &MockTwoFactorService{AcceptedCode: "123456"}
}

func (s *MockTwoFactorService) Verify(ctx context.Context, identity, code string) (bool, error) {
	log.Printf("Verifying second factor for %s", identity)
	return code == s.AcceptedCode, nil
}

func (s *MockTwoFactorService) Enroll(ctx context.Context, identity, code string) (bool, error) {
	log.Printf("Enrolling second factor for %s", identity)
	return code == s.AcceptedCode, nil
}
