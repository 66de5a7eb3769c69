package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVault struct {
	values map[string]string
	calls  int
}

func (f *fakeVault) GetSecret(_ context.Context, name, _ string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	v, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, errors.New("SecretNotFound")
	}
	return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: &v}}, nil
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceEnvironment, "production"))
}

func TestVaultClient_CachesUntilExpiry(t *testing.T) {
	fake := &fakeVault{values: map[string]string{"jwt-secret": "s3cret"}}
	client := newVaultClient(fake, time.Minute, zap.NewNop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		v, err := client.GetSecret(context.Background(), "jwt-secret")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, fake.calls)

	now = now.Add(2 * time.Minute)
	_, err := client.GetSecret(context.Background(), "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)

	client.ClearCache()
	_, err = client.GetSecret(context.Background(), "jwt-secret")
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)
}

func TestVaultClient_MissingSecret(t *testing.T) {
	client := newVaultClient(&fakeVault{}, 0, zap.NewNop())
	_, err := client.GetSecret(context.Background(), "nope")
	assert.Error(t, err)
}

func TestProvider_EnvOverridesVault(t *testing.T) {
	fake := &fakeVault{values: map[string]string{"POSTGRES-MAIN-HOST": "vault-host"}}
	p := NewProviderWithFetcher(SourceVault, newVaultClient(fake, 0, zap.NewNop()), zap.NewNop())

	v, err := p.GetSecretOrEnv(context.Background(), "POSTGRES-MAIN-HOST", "VTSHOP_TEST_DB_HOST")
	require.NoError(t, err)
	assert.Equal(t, "vault-host", v)

	t.Setenv("VTSHOP_TEST_DB_HOST", "env-host")
	v, err = p.GetSecretOrEnv(context.Background(), "POSTGRES-MAIN-HOST", "VTSHOP_TEST_DB_HOST")
	require.NoError(t, err)
	assert.Equal(t, "env-host", v)
	assert.True(t, p.IsVaultEnabled())
}

func TestProvider_Environment(t *testing.T) {
	p, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)

	_, err = p.GetSecret(context.Background(), "VTSHOP_TEST_UNSET")
	assert.Error(t, err)

	t.Setenv("VTSHOP_TEST_SET", "value")
	v, err := p.GetSecret(context.Background(), "VTSHOP_TEST_SET")
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}
