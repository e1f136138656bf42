package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/adminops/auth"
	"github.com/jonwraymond/adminops/cache"
	"github.com/jonwraymond/adminops/resilience"
	"github.com/jonwraymond/adminops/secret"
)

func TestLoadProfile_Defaults(t *testing.T) {
	lookup := envconfig.MapLookuper(map[string]string{
		"ADMINOPS_PROD_URL": "https://splunk.example.com:8089",
	})

	p, err := LoadProfile(context.Background(), "prod", lookup)
	require.NoError(t, err)

	assert.Equal(t, "prod", p.Name)
	assert.Equal(t, "https://splunk.example.com:8089", p.URL)
	assert.Equal(t, "/services/auth/login", p.LoginPath)
	assert.Equal(t, "Splunk", p.SessionScheme)
	assert.Equal(t, "/services/server/health/splunkd", p.HealthPath)
	assert.Equal(t, 30*time.Second, p.AttemptTimeout)
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, time.Hour, p.SessionTTL)
	assert.Equal(t, time.Minute, p.ExpiryBuffer)
	assert.Equal(t, "json", p.OutputMode)

	assert.Equal(t, RetrySettings{
		BaseDelay:     time.Second,
		MaxDelay:      time.Minute,
		Strategy:      "exponential",
		MaxRetryAfter: 5 * time.Minute,
	}, p.Retry)
	assert.Equal(t, BreakerSettings{
		Enabled:          true,
		FailureThreshold: 5,
		FailureWindow:    time.Minute,
		ResetTimeout:     30 * time.Second,
		HalfOpenRequests: 1,
		SuccessThreshold: 1,
	}, p.Breaker)
	assert.True(t, p.Cache.Enabled)
	assert.Equal(t, time.Minute, p.Cache.DefaultTTL)
	assert.Equal(t, 1024, p.Cache.MaxEntries)
	assert.Nil(t, p.Strategy())
}

func TestLoadProfile_Overrides(t *testing.T) {
	lookup := envconfig.MapLookuper(map[string]string{
		"ADMINOPS_STAGING_EU_URL":                       "https://staging:8089",
		"ADMINOPS_STAGING_EU_USERNAME":                  "admin",
		"ADMINOPS_STAGING_EU_PASSWORD":                  "changeme",
		"ADMINOPS_STAGING_EU_MAX_RETRIES":               "5",
		"ADMINOPS_STAGING_EU_RETRY_BASE_DELAY":          "250ms",
		"ADMINOPS_STAGING_EU_RETRY_STRATEGY":            "linear",
		"ADMINOPS_STAGING_EU_BREAKER_ENABLED":           "false",
		"ADMINOPS_STAGING_EU_CACHE_POLICIES":            "/services/server/info=5m,/services/search/jobs=no-cache",
		"ADMINOPS_STAGING_EU_RATE_LIMIT_RATE":           "2.5",
		"ADMINOPS_STAGING_EU_MAX_CONCURRENT":            "4",
		"ADMINOPS_STAGING_EU_INSECURE_SKIP_VERIFY":      "true",
		"ADMINOPS_STAGING_EU_SESSION_EXPIRY_BUFFER":     "2m",
		"ADMINOPS_STAGING_EU_BREAKER_RESET_TIMEOUT":     "1m",
		"ADMINOPS_STAGING_EU_CACHE_DEFAULT_TTL":         "0s",
		"ADMINOPS_STAGING_EU_BREAKER_FAILURE_WINDOW":    "2m",
		"ADMINOPS_STAGING_EU_RETRY_MAX_RETRY_AFTER":     "1m",
		"ADMINOPS_STAGING_EU_BREAKER_FAILURE_THRESHOLD": "3",
		"ADMINOPS_STAGING_EU_SESSION_SCHEME":            "Bearer",
		"ADMINOPS_STAGING_EU_HEALTH_PATH":               "/services/server/health/deployment",
	})

	p, err := LoadProfile(context.Background(), "staging-eu", lookup)
	require.NoError(t, err)

	assert.Equal(t, auth.SessionToken{Username: "admin", Password: "changeme"}, p.Strategy())
	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, p.Retry.BaseDelay)
	assert.False(t, p.Breaker.Enabled)
	assert.Equal(t, 3, p.Breaker.FailureThreshold)
	assert.Equal(t, 2.5, p.RateLimit.Rate)
	assert.Equal(t, 4, p.MaxConcurrent)
	assert.True(t, p.InsecureSkipVerify)
	assert.Equal(t, "/services/server/health/deployment", p.HealthPath)
	assert.Equal(t, PathPolicies{
		"/services/server/info": cache.CacheWithTTL(5 * time.Minute),
		"/services/search/jobs": cache.NoCache(),
	}, p.Cache.Policies)

	opts, err := p.ClientOptions()
	require.NoError(t, err)
	assert.Equal(t, "staging-eu", opts.Profile)
	assert.Equal(t, "Bearer", opts.SessionScheme)
	assert.Equal(t, resilience.BackoffLinear, opts.Retry.Strategy)
	assert.True(t, opts.Breaker.Disabled)
	assert.True(t, opts.HTTPTransport.InsecureSkipVerify)
	assert.Equal(t, 4, opts.Bulkhead.MaxConcurrent)
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Equal(t, []cache.Param{{Name: "output_mode", Value: "json"}}, opts.DefaultQuery)
}

func TestLoadProfile_Token(t *testing.T) {
	lookup := envconfig.MapLookuper(map[string]string{
		"ADMINOPS_PROD_URL":   "https://splunk:8089",
		"ADMINOPS_PROD_TOKEN": "eyJhbGciOi",
	})

	p, err := LoadProfile(context.Background(), "prod", lookup)
	require.NoError(t, err)
	assert.Equal(t, auth.APIToken{Token: "eyJhbGciOi"}, p.Strategy())
}

func TestLoadProfile_ResolvesCredentialReferences(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("from-file\n"), 0o600))

	lookup := envconfig.MapLookuper(map[string]string{
		"SPLUNK_HOST":         "splunk.internal",
		"VAULT_PASSWORD":      "s3cret",
		"ADMINOPS_A_URL":      "https://${SPLUNK_HOST}:8089",
		"ADMINOPS_A_USERNAME": "admin",
		"ADMINOPS_A_PASSWORD": "secretref:env:VAULT_PASSWORD",
		"ADMINOPS_B_URL":      "https://b:8089",
		"ADMINOPS_B_TOKEN":    "secretref:file:" + tokenFile,
		"ADMINOPS_C_URL":      "https://c:8089",
		"ADMINOPS_C_PASSWORD": "${MISSING_PASSWORD}",
		"ADMINOPS_C_USERNAME": "admin",
	})

	a, err := LoadProfile(context.Background(), "a", lookup)
	require.NoError(t, err)
	assert.Equal(t, "https://splunk.internal:8089", a.URL)
	assert.Equal(t, "s3cret", a.Password)

	b, err := LoadProfile(context.Background(), "b", lookup)
	require.NoError(t, err)
	assert.Equal(t, "from-file", b.Token)

	_, err = LoadProfile(context.Background(), "c", lookup)
	assert.ErrorIs(t, err, secret.ErrMissingVariable)
}

func TestLoadProfile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		env     map[string]string
		wantErr error
	}{
		{"bad name", "1prod", map[string]string{}, ErrInvalidProfileName},
		{"both credentials", "p", map[string]string{
			"ADMINOPS_P_URL": "https://x", "ADMINOPS_P_TOKEN": "t", "ADMINOPS_P_USERNAME": "u", "ADMINOPS_P_PASSWORD": "p",
		}, ErrAmbiguousCredentials},
		{"no password", "p", map[string]string{
			"ADMINOPS_P_URL": "https://x", "ADMINOPS_P_USERNAME": "u",
		}, ErrIncompleteCredentials},
		{"retries out of range", "p", map[string]string{
			"ADMINOPS_P_URL": "https://x", "ADMINOPS_P_MAX_RETRIES": "11",
		}, ErrInvalidValue},
		{"unknown strategy", "p", map[string]string{
			"ADMINOPS_P_URL": "https://x", "ADMINOPS_P_RETRY_STRATEGY": "fibonacci",
		}, ErrInvalidValue},
		// Decoder errors are reported by envconfig without a stable sentinel.
		{"bad policy", "p", map[string]string{
			"ADMINOPS_P_URL": "https://x", "ADMINOPS_P_CACHE_POLICIES": "services=5m",
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(context.Background(), tt.profile, envconfig.MapLookuper(tt.env))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadProfile_MissingURL(t *testing.T) {
	_, err := LoadProfile(context.Background(), "prod", envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL")
}

func TestLoadWith(t *testing.T) {
	lookup := envconfig.MapLookuper(map[string]string{
		"ADMINOPS_PROFILES":             "prod,dev",
		"ADMINOPS_DEFAULT_PROFILE":      "dev",
		"ADMINOPS_OBSERVE_LOG_LEVEL":    "debug",
		"ADMINOPS_OBSERVE_SERVICE_NAME": "adminctl",
		"ADMINOPS_PROD_URL":             "https://prod:8089",
		"ADMINOPS_DEV_URL":              "https://dev:8089",
	})

	cfg, err := LoadWith(context.Background(), lookup)
	require.NoError(t, err)

	assert.Equal(t, []string{"prod", "dev"}, cfg.ProfileNames)
	assert.Equal(t, "dev", cfg.DefaultProfile)
	require.Len(t, cfg.Profiles, 2)
	assert.Equal(t, "https://prod:8089", cfg.Profiles["prod"].URL)
	assert.Equal(t, "https://dev:8089", cfg.Profiles["dev"].URL)

	obs := cfg.Observe.ObserveConfig("1.2.3")
	assert.Equal(t, "adminctl", obs.ServiceName)
	assert.Equal(t, "1.2.3", obs.Version)
	assert.Equal(t, "debug", obs.Logging.Level)
	assert.Equal(t, "console", obs.Logging.Format)
	assert.False(t, obs.Tracing.Enabled)
}

func TestLoadWith_DefaultProfileMustExist(t *testing.T) {
	lookup := envconfig.MapLookuper(map[string]string{
		"ADMINOPS_PROFILES": "prod",
		"ADMINOPS_PROD_URL": "https://prod:8089",
	})

	_, err := LoadWith(context.Background(), lookup)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadWith_InvalidObserveSettings(t *testing.T) {
	lookup := envconfig.MapLookuper(map[string]string{
		"ADMINOPS_DEFAULT_URL":        "https://x",
		"ADMINOPS_OBSERVE_LOG_FORMAT": "xml",
	})

	_, err := LoadWith(context.Background(), lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid observe configuration")
}

func TestClientOptions_ZeroRetriesMeansNone(t *testing.T) {
	p := Profile{Name: "p", URL: "https://x", MaxRetries: 0, AttemptTimeout: time.Second}
	opts, err := p.ClientOptions()
	require.NoError(t, err)
	assert.Equal(t, 0, resilience.ClampRetries(opts.MaxRetries))
	assert.Nil(t, opts.DefaultQuery)
}
