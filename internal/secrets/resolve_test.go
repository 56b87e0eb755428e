package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	values map[string]string
	calls  int
}

func (s *stubResolver) Resolve(_ context.Context, ref string) (string, error) {
	s.calls++
	value, ok := s.values[ref]
	if !ok {
		return "", errors.New("no such item")
	}
	return value, nil
}

func TestResolve_Literal(t *testing.T) {
	stub := &stubResolver{}
	secret, err := Resolve(context.Background(), "S3cret!", stub)

	require.NoError(t, err)
	assert.Equal(t, "S3cret!", secret.Value)
	assert.Equal(t, "literal", secret.Source)
	assert.Zero(t, stub.calls, "literal values must not hit the resolver")
}

func TestResolve_Reference(t *testing.T) {
	stub := &stubResolver{values: map[string]string{"op://infra/mysql/password": "from-vault"}}
	secret, err := Resolve(context.Background(), "op://infra/mysql/password", stub)

	require.NoError(t, err)
	assert.Equal(t, "from-vault", secret.Value)
	assert.Equal(t, "1password", secret.Source)
}

func TestResolve_ReferenceErrors(t *testing.T) {
	stub := &stubResolver{values: map[string]string{"op://infra/empty/password": ""}}

	_, err := Resolve(context.Background(), "op://infra/missing/password", stub)
	assert.Error(t, err)

	_, err = Resolve(context.Background(), "op://infra/empty/password", stub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty value")
}

func TestResolve_NoServiceAccount(t *testing.T) {
	t.Setenv(EnvServiceAccountToken, "")

	secret, err := Resolve(context.Background(), "op://infra/mysql/password", nil)
	assert.Nil(t, secret)
	assert.True(t, errors.Is(err, ErrNoServiceAccount))
}

func TestIsReference(t *testing.T) {
	assert.True(t, IsReference("op://vault/item/field"))
	assert.False(t, IsReference("op:/vault"))
	assert.False(t, IsReference("plain"))
}
