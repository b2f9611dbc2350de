package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"crusade/internal/datastore"
	"crusade/internal/models"
	"crusade/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*models.UserFromAuth

func (v stubVerifier) Validate(token string) (*models.UserFromAuth, error) {
	user, ok := v[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return user, nil
}

func serveAuthn(t *testing.T, header string) (*httptest.ResponseRecorder, *models.UserFromAuth, bool) {
	t.Helper()

	verifier := stubVerifier{"good": {ID: "google:1", Provider: "google"}}
	var seen *models.UserFromAuth
	reached := false
	next := func(c echo.Context) error {
		reached = true
		seen, _ = ResolveValidUser(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, Authn(verifier)(next)(c))
	return rec, seen, reached
}

func TestAuthnWithoutHeaderPassesThrough(t *testing.T) {
	rec, user, reached := serveAuthn(t, "")
	assert.True(t, reached)
	assert.Nil(t, user)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, user, reached = serveAuthn(t, "Basic abc")
	assert.True(t, reached)
	assert.Nil(t, user)
}

func TestAuthnStoresSessionUser(t *testing.T) {
	rec, user, reached := serveAuthn(t, "Bearer good")
	assert.True(t, reached)
	require.NotNil(t, user)
	assert.Equal(t, "google:1", user.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthnRejectsInvalidToken(t *testing.T) {
	_, user, reached := serveAuthn(t, "Bearer forged")
	assert.False(t, reached)
	assert.Nil(t, user)
}

func TestResolveValidUserRequiresSession(t *testing.T) {
	_, err := ResolveValidUser(context.Background())
	assert.Error(t, err)

	ctx := context.WithValue(context.Background(), ctxKeyAuthUser, &models.UserFromAuth{})
	_, err = ResolveValidUser(ctx)
	assert.Error(t, err)
}

func TestWrapServiceError(t *testing.T) {
	for _, err := range []error{
		models.ErrTitleRequired,
		services.ErrTaskAlreadyCompleted,
		datastore.ErrAlreadyClaimed,
		services.ErrGameStateLock,
		errors.New("boom"),
	} {
		assert.Error(t, wrapServiceError(err))
	}
	assert.NoError(t, wrapServiceError(nil))
}
