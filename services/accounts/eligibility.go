package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPEligibilityVerifier asks the accounts backend whether a subject is in
// good standing. Satisfies middleware.EligibilityVerifier; callers decide
// what to do when the backend is unreachable.
type HTTPEligibilityVerifier struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPEligibilityVerifier(baseURL string) *HTTPEligibilityVerifier {
	return &HTTPEligibilityVerifier{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *HTTPEligibilityVerifier) IsEligible(ctx context.Context, subjectID string) (bool, error) {
	url := fmt.Sprintf("%s/accounts/%s/standing", v.BaseURL, subjectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("accounts backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("accounts backend returned status %d", resp.StatusCode)
	}

	var body struct {
		Eligible bool `json:"eligible"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode standing response: %w", err)
	}
	return body.Eligible, nil
}
