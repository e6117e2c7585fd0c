package runtime

import (
	"context"
	"fmt"
)

// Backend is the narrow lifecycle contract for one tenant's isolated
// runtime. Implementations are swappable; the orchestrator never talks
// to a container engine directly.
type Backend interface {
	// Build materializes an image from the tenant's directory. Safe to
	// re-run: the same tenant always rebuilds the same image ref.
	Build(ctx context.Context, tenantID, tenantDir string) (string, error)
	// Start runs a detached instance with environment injected from the
	// tenant's credential file.
	Start(ctx context.Context, tenantID, imageRef, envFile string) (string, error)
	// Stop and Remove are idempotent: acting on an already stopped or
	// removed instance is a no-op, so a sweep can retry a partially
	// completed teardown.
	Stop(ctx context.Context, tenantID string) error
	Remove(ctx context.Context, tenantID string) error
}

// OpError wraps a failed backend operation with enough context for the
// error taxonomy: op is one of build/start/stop/remove.
type OpError struct {
	Op       string
	TenantID string
	Output   string
	Err      error
}

func (e *OpError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s failed for tenant %s: %v: %s", e.Op, e.TenantID, e.Err, e.Output)
	}
	return fmt.Sprintf("%s failed for tenant %s: %v", e.Op, e.TenantID, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// InstanceName is the deterministic container/image name for a tenant.
func InstanceName(tenantID string) string {
	return "bot_" + tenantID
}
