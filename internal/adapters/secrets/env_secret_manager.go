package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/sepantapay/payment-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// envSecretManager implements SecretManagerAdapter using environment variables
// WARNING: This is for development only. Use AWS Secrets Manager in production.
type envSecretManager struct {
	logger *zap.Logger
}

// NewEnvSecretManager creates a secret manager backed by process environment
func NewEnvSecretManager(logger *zap.Logger) ports.SecretManagerAdapter {
	return &envSecretManager{logger: logger}
}

// GetSecret reads the secret from the environment variable named by path
func (m *envSecretManager) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	m.logger.Debug("Reading secret from environment",
		zap.String("path", path),
	)

	value := os.Getenv(path)
	if value == "" {
		return nil, fmt.Errorf("secret not found: %s", path)
	}

	return &ports.Secret{
		Value:   value,
		Version: "v1",
	}, nil
}
