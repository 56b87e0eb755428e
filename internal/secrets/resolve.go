package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/1password/onepassword-sdk-go"
)

// OnePasswordPrefix marks a value as a 1Password secret reference.
const OnePasswordPrefix = "op://"

// EnvServiceAccountToken names the variable holding the 1Password service account token.
const EnvServiceAccountToken = "OP_SERVICE_ACCOUNT_TOKEN"

// ErrNoServiceAccount is returned when a 1Password reference is given but no token is set.
var ErrNoServiceAccount = errors.New("OP_SERVICE_ACCOUNT_TOKEN is not set")

// Resolver turns a secret reference into its value.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Secret is a resolved credential and where it came from.
type Secret struct {
	Value  string
	Source string // "literal" or "1password"
}

// IsReference reports whether value should be resolved rather than used as-is.
func IsReference(value string) bool {
	return strings.HasPrefix(value, OnePasswordPrefix)
}

// Resolve returns value unchanged unless it is an op:// reference, in which case
// it is looked up through resolver. A nil resolver builds a 1Password client from
// OP_SERVICE_ACCOUNT_TOKEN.
func Resolve(ctx context.Context, value string, resolver Resolver) (*Secret, error) {
	if !IsReference(value) {
		return &Secret{Value: value, Source: "literal"}, nil
	}

	if resolver == nil {
		token := os.Getenv(EnvServiceAccountToken)
		if token == "" {
			return nil, fmt.Errorf("cannot resolve %s: %w", value, ErrNoServiceAccount)
		}
		client, err := NewOnePassword(ctx, token)
		if err != nil {
			return nil, err
		}
		resolver = client
	}

	resolved, err := resolver.Resolve(ctx, value)
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		return nil, fmt.Errorf("secret reference '%s' resolved to an empty value", value)
	}

	return &Secret{Value: resolved, Source: "1password"}, nil
}

// OnePassword resolves op:// references with the 1Password SDK.
type OnePassword struct {
	client *onepassword.Client
}

func NewOnePassword(ctx context.Context, serviceAccountToken string) (*OnePassword, error) {
	client, err := onepassword.NewClient(
		ctx,
		onepassword.WithServiceAccountToken(serviceAccountToken),
		onepassword.WithIntegrationInfo("hostprov", "v1.0.0"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create 1Password client: %w", err)
	}
	return &OnePassword{client: client}, nil
}

func (o *OnePassword) Resolve(ctx context.Context, ref string) (string, error) {
	value, err := o.client.Secrets().Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to resolve 1Password secret '%s': %w", ref, err)
	}
	return value, nil
}
