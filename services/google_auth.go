package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is what the core needs back from Google: a verified email
// plus whatever name material is available.
type GoogleIdentity struct {
	Email     string
	Name      string
	GivenName string
}

// IdentityVerifier abstracts the external identity collaborator so auth
// flows can be tested without network access.
type IdentityVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (GoogleIdentity, error)
	VerifyAccessToken(ctx context.Context, token string) (GoogleIdentity, error)
}

// GoogleVerifier validates Google sign-in credentials. ID tokens are checked
// cryptographically via the idtoken package; access tokens fall back to
// Google's tokeninfo/userinfo endpoints. All calls are bounded by a short
// timeout so a slow collaborator degrades to an auth failure, never a hang.
type GoogleVerifier struct {
	ClientIDs []string
	Client    *http.Client
}

func NewGoogleVerifier(clientIDs []string) *GoogleVerifier {
	return &GoogleVerifier{
		ClientIDs: clientIDs,
		Client:    &http.Client{Timeout: 8 * time.Second},
	}
}

func (g *GoogleVerifier) VerifyIDToken(ctx context.Context, token string) (GoogleIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return GoogleIdentity{}, fmt.Errorf("%w: empty google token", ErrUnauthorized)
	}

	// Audience "" skips the aud check inside Validate; the configured client
	// id set is checked below so any of the per-platform ids is accepted.
	payload, err := idtoken.Validate(ctx, token, "")
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("%w: invalid google token", ErrUnauthorized)
	}
	if !g.audienceAllowed(payload.Audience) {
		return GoogleIdentity{}, fmt.Errorf("%w: google token audience not trusted", ErrUnauthorized)
	}
	if !claimTrue(payload.Claims["email_verified"]) {
		return GoogleIdentity{}, fmt.Errorf("%w: google email not verified", ErrUnauthorized)
	}

	return GoogleIdentity{
		Email:     strings.ToLower(strings.TrimSpace(claimString(payload.Claims["email"]))),
		Name:      claimString(payload.Claims["name"]),
		GivenName: claimString(payload.Claims["given_name"]),
	}, nil
}

func (g *GoogleVerifier) VerifyAccessToken(ctx context.Context, token string) (GoogleIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return GoogleIdentity{}, fmt.Errorf("%w: empty google token", ErrUnauthorized)
	}

	info, err := g.fetchTokenInfo(ctx, token)
	if err != nil {
		return GoogleIdentity{}, err
	}
	if !g.audienceAllowed(claimString(info["aud"])) {
		return GoogleIdentity{}, fmt.Errorf("%w: google token audience not trusted", ErrUnauthorized)
	}

	profile := info
	if !claimTrue(info["email_verified"]) {
		profile, err = g.fetchUserInfo(ctx, token)
		if err != nil {
			return GoogleIdentity{}, err
		}
	}

	email := strings.ToLower(strings.TrimSpace(claimString(profile["email"])))
	if email == "" {
		// tokeninfo sometimes omits the email scope payload
		fallback, err := g.fetchUserInfo(ctx, token)
		if err == nil {
			email = strings.ToLower(strings.TrimSpace(claimString(fallback["email"])))
			for k, v := range fallback {
				profile[k] = v
			}
		}
	}
	if email == "" {
		return GoogleIdentity{}, fmt.Errorf("%w: google account missing email", ErrUnauthorized)
	}

	return GoogleIdentity{
		Email:     email,
		Name:      claimString(profile["name"]),
		GivenName: claimString(profile["given_name"]),
	}, nil
}

func (g *GoogleVerifier) audienceAllowed(aud string) bool {
	if len(g.ClientIDs) == 0 {
		return true
	}
	for _, id := range g.ClientIDs {
		if id == aud {
			return true
		}
	}
	return false
}

func (g *GoogleVerifier) fetchTokenInfo(ctx context.Context, accessToken string) (map[string]interface{}, error) {
	endpoint := "https://oauth2.googleapis.com/tokeninfo?" + url.Values{"access_token": {accessToken}}.Encode()
	return g.getJSON(ctx, endpoint, "")
}

func (g *GoogleVerifier) fetchUserInfo(ctx context.Context, accessToken string) (map[string]interface{}, error) {
	return g.getJSON(ctx, "https://www.googleapis.com/oauth2/v3/userinfo", accessToken)
}

func (g *GoogleVerifier) getJSON(ctx context.Context, endpoint, bearer string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google verification unavailable", ErrUnauthorized)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: invalid google token", ErrUnauthorized)
	}

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: invalid google token", ErrUnauthorized)
	}
	return data, nil
}

func claimString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// claimTrue accepts the shapes Google uses for boolean claims across its
// endpoints: true, "true", "1", 1.
func claimTrue(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true" || val == "1"
	case float64:
		return val == 1
	default:
		return false
	}
}
