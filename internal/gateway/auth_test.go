package gateway_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/micromegas/lakehouse/internal/gateway"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyAuthenticatorRejectsMissingHeader(t *testing.T) {
	auth := gateway.NewAPIKeyAuthenticator([]string{"secret"})
	req := httptest.NewRequest(http.MethodPost, "/gateway/query", nil)
	require.Error(t, auth.Authenticate(req))
}

func TestAPIKeyAuthenticatorAcceptsValidToken(t *testing.T) {
	auth := gateway.NewAPIKeyAuthenticator([]string{"secret"})
	req := httptest.NewRequest(http.MethodPost, "/gateway/query", nil)
	req.Header.Set("Authorization", "Bearer secret")
	require.NoError(t, auth.Authenticate(req))
}

func TestAPIKeyAuthenticatorNoKeysConfiguredAllowsAll(t *testing.T) {
	auth := gateway.NewAPIKeyAuthenticator(nil)
	req := httptest.NewRequest(http.MethodPost, "/gateway/query", nil)
	require.NoError(t, auth.Authenticate(req))
}

func TestNoAuthAlwaysSucceeds(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/gateway/query", nil)
	require.NoError(t, (gateway.NoAuth{}).Authenticate(req))
}
