package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// CredentialResolver fetches the Lacework API access token from Secrets
// Manager. A failed resolve is a configuration error, so there are no retries
// at this layer; the token is resolved fresh per invocation and never cached.
type CredentialResolver struct {
	secrets  SecretsAPI
	secretID string
}

func NewCredentialResolver(secrets SecretsAPI, secretID string) (*CredentialResolver, error) {
	if secrets == nil {
		return nil, errors.New("secrets client is required")
	}
	if secretID == "" {
		return nil, errors.New("secret id is required")
	}
	return &CredentialResolver{secrets: secrets, secretID: secretID}, nil
}

// Resolve returns the bearer token stored under the AccessToken field of the
// secret's JSON payload. The token must never be logged by callers.
func (r *CredentialResolver) Resolve(ctx context.Context) (string, error) {
	out, err := r.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &r.secretID,
	})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", r.secretID, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string payload", r.secretID)
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &payload); err != nil {
		return "", fmt.Errorf("parse secret %s: %w", r.secretID, err)
	}

	token := payload[accessTokenField]
	if token == "" {
		return "", fmt.Errorf("secret %s is missing the %s field", r.secretID, accessTokenField)
	}
	return token, nil
}
