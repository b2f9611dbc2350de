package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crusade/internal/interfaces"
	"crusade/internal/models"

	"github.com/go-redis/redis_rate/v10"
	"github.com/samber/do"
)

// ServiceIdentity exchanges a provider id token for a session token.
type ServiceIdentity struct {
	ServiceHTTP
	auth    *Authentication
	limiter interfaces.Limiter

	googleClientID string
	lineChannelID  string
	googleURL      string
	lineURL        string
}

func NewServiceIdentity(container *do.Injector) (*ServiceIdentity, error) {
	auth, err := do.Invoke[*Authentication](container)
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	googleClientID, _ := do.InvokeNamed[string](container, "google-client-id")
	lineChannelID, _ := do.InvokeNamed[string](container, "line-channel-id")

	return &ServiceIdentity{
		auth:           auth,
		limiter:        limiter,
		googleClientID: googleClientID,
		lineChannelID:  lineChannelID,
		googleURL:      GOOGLE_TOKENINFO_URL,
		lineURL:        LINE_API_BASE_URL + "/verify",
	}, nil
}

func (service *ServiceIdentity) Login(ctx context.Context, clientIP string, input *models.LoginInput) (*models.LoginResult, error) {
	err := service.limiter.Allow(ctx, RateKeyLogin(clientIP), redis_rate.PerMinute(LOGIN_RATE_LIMIT_PER_MINUTE))
	if err != nil {
		return nil, err
	}

	identity, err := service.Verify(ctx, input.Provider, input.IDToken)
	if err != nil {
		return nil, err
	}

	user := models.UserFromAuth{
		ID:       identity.UserID(),
		Provider: identity.Provider,
		Email:    identity.Email,
		Name:     identity.Name,
	}
	token, expiresAt, err := service.auth.CreateToken(&user, time.Now())
	if err != nil {
		return nil, err
	}

	return &models.LoginResult{AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

func (service *ServiceIdentity) Verify(ctx context.Context, provider, idToken string) (*models.Identity, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidIdentity
	}

	switch provider {
	case models.ProviderGoogle:
		if service.googleClientID == "" {
			return nil, ErrProviderDisabled
		}
		return service.verifyGoogle(idToken)
	case models.ProviderLine:
		if service.lineChannelID == "" {
			return nil, ErrProviderDisabled
		}
		return service.verifyLine(idToken)
	}
	return nil, ErrUnknownProvider
}

type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (service *ServiceIdentity) verifyGoogle(idToken string) (*models.Identity, error) {
	resp, err := service.httpClient(HTTP_TIMEOUT).Get(service.googleURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, err
	}

	var info googleTokenInfo
	if err := decodeJSONResponse(resp, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if info.Aud != service.googleClientID || info.Sub == "" {
		return nil, ErrInvalidIdentity
	}

	return &models.Identity{
		Provider: models.ProviderGoogle,
		Subject:  info.Sub,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
	}, nil
}

type lineVerifyResponse struct {
	Aud     string `json:"aud"`
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (service *ServiceIdentity) verifyLine(idToken string) (*models.Identity, error) {
	form := url.Values{}
	form.Set("id_token", idToken)
	form.Set("client_id", service.lineChannelID)

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := service.httpClient(HTTP_TIMEOUT).Post(service.lineURL, strings.NewReader(form.Encode()), headers)
	if err != nil {
		return nil, err
	}

	var info lineVerifyResponse
	if err := decodeJSONResponse(resp, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if info.Aud != service.lineChannelID || info.Sub == "" {
		return nil, ErrInvalidIdentity
	}

	return &models.Identity{
		Provider: models.ProviderLine,
		Subject:  info.Sub,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
	}, nil
}
