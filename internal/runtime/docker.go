package runtime

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DockerBackend drives the docker CLI. The limiter paces invocations so
// a large sweep does not saturate the host's docker daemon.
type DockerBackend struct {
	binary  string
	limiter *rate.Limiter
	logger  *zap.Logger

	// runCommand is swapped out in tests.
	runCommand func(ctx context.Context, name string, args ...string) (string, error)
}

func NewDockerBackend(binary string, opsPerSecond float64, logger *zap.Logger) *DockerBackend {
	if binary == "" {
		binary = "docker"
	}
	b := &DockerBackend{
		binary:  binary,
		limiter: rate.NewLimiter(rate.Limit(opsPerSecond), 1),
		logger:  logger,
	}
	b.runCommand = b.execCommand
	return b
}

func (b *DockerBackend) execCommand(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (b *DockerBackend) run(ctx context.Context, op, tenantID string, args ...string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", &OpError{Op: op, TenantID: tenantID, Err: err}
	}

	out, err := b.runCommand(ctx, b.binary, args...)
	if err != nil {
		return out, &OpError{Op: op, TenantID: tenantID, Output: out, Err: err}
	}
	return out, nil
}

func (b *DockerBackend) Build(ctx context.Context, tenantID, tenantDir string) (string, error) {
	image := InstanceName(tenantID)

	b.logger.Info("Building image",
		zap.String("tenant_id", tenantID),
		zap.String("image", image),
	)

	if _, err := b.run(ctx, "build", tenantID, "build", "-t", image, tenantDir); err != nil {
		return "", err
	}
	return image, nil
}

func (b *DockerBackend) Start(ctx context.Context, tenantID, imageRef, envFile string) (string, error) {
	name := InstanceName(tenantID)

	b.logger.Info("Starting instance",
		zap.String("tenant_id", tenantID),
		zap.String("image", imageRef),
	)

	if _, err := b.run(ctx, "start", tenantID,
		"run", "-d", "--env-file", envFile, "--name", name, imageRef); err != nil {
		return "", err
	}
	return name, nil
}

func (b *DockerBackend) Stop(ctx context.Context, tenantID string) error {
	out, err := b.run(ctx, "stop", tenantID, "stop", InstanceName(tenantID))
	if err != nil && isMissingInstance(out) {
		return nil
	}
	return err
}

func (b *DockerBackend) Remove(ctx context.Context, tenantID string) error {
	out, err := b.run(ctx, "remove", tenantID, "rm", InstanceName(tenantID))
	if err != nil && isMissingInstance(out) {
		return nil
	}
	return err
}

// isMissingInstance detects the daemon's "nothing to act on" replies so
// stop/remove stay no-ops for already reclaimed tenants.
func isMissingInstance(output string) bool {
	return strings.Contains(output, "No such container") ||
		strings.Contains(output, "is not running")
}
