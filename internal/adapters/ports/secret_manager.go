package ports

import (
	"context"
)

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string            // The secret value (e.g., terminal ID)
	Version   string            // Secret version identifier
	Metadata  map[string]string // Additional secret metadata
	CreatedAt string            // When this version was created
}

// SecretManagerAdapter defines the port for retrieving merchant credentials
// (terminal ID, callback signing material) from a secret management service.
// Implementations are responsible for authentication with the backing
// service, caching with TTL, and failing loudly when a secret is missing.
type SecretManagerAdapter interface {
	// GetSecret retrieves a secret by its path/name.
	// Path format depends on implementation:
	//   - AWS: "payment-service/sep/terminal_id"
	//   - Env: "SEP_TERMINAL_ID"
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
