package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/models"
)

func testConfig() (*common.SessionConfig, *common.TargetConfig) {
	cfg := common.NewDefaultConfig()
	cfg.Session.NavigationTimeout = common.Duration(2 * time.Second)
	cfg.Session.ElementTimeout = common.Duration(500 * time.Millisecond)
	return &cfg.Session, &cfg.Target
}

func TestIsLoginURL(t *testing.T) {
	assert.True(t, isLoginURL("https://www.linkedin.com/login"))
	assert.True(t, isLoginURL("https://www.linkedin.com/login?session_redirect=%2Ffeed"))
	assert.True(t, isLoginURL("https://www.linkedin.com/checkpoint/login"))
	assert.False(t, isLoginURL("https://www.linkedin.com/feed"))
	assert.False(t, isLoginURL("https://www.linkedin.com/in/someone"))
	assert.False(t, isLoginURL(""))
}

func TestCloseIsIdempotent(t *testing.T) {
	sessionCfg, targetCfg := testConfig()
	svc := NewService(sessionCfg, targetCfg, common.GetLogger())

	// Close before any browser launch, then again
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
}

func TestEnsureSessionAfterCloseFails(t *testing.T) {
	sessionCfg, targetCfg := testConfig()
	svc := NewService(sessionCfg, targetCfg, common.GetLogger())
	require.NoError(t, svc.Close())

	_, err := svc.EnsureSession(context.Background())
	require.Error(t, err)
	assert.True(t, models.IsAuthenticationError(err))
}

func TestLoginWithoutCredentials(t *testing.T) {
	sessionCfg, targetCfg := testConfig()
	targetCfg.Credentials = models.Credentials{}
	svc := &Service{
		config:       sessionCfg,
		targetConfig: targetCfg,
		logger:       common.GetLogger(),
	}

	// Credential check happens before any browser work
	err := svc.loginLocked(context.Background(), models.Credentials{})
	require.Error(t, err)
	assert.True(t, models.IsAuthenticationError(err))
}

func TestIsAuthenticatedFalseWhenNoBrowser(t *testing.T) {
	sessionCfg, targetCfg := testConfig()
	svc := NewService(sessionCfg, targetCfg, common.GetLogger())

	// No browser launched; the check must return false, not fail
	assert.False(t, svc.IsAuthenticated(context.Background()))
}

func TestLogoutWithoutBrowserIsNoop(t *testing.T) {
	sessionCfg, targetCfg := testConfig()
	svc := NewService(sessionCfg, targetCfg, common.GetLogger())

	assert.NoError(t, svc.Logout(context.Background()))
}
