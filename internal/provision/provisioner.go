package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/runtime"
)

// ErrAllocationExhausted means every allocation attempt collided with an
// existing tenant. Practically unreachable with 8-hex-char identifiers.
var ErrAllocationExhausted = errors.New("could not allocate a free tenant id")

const (
	tenantIDLength = 8
	maxAllocTries  = 5
)

// Provisioning steps, reported in StepError so the inbound caller can
// tell which part of the sequence failed.
const (
	StepAllocate   = "allocate"
	StepTemplate   = "template"
	StepCredential = "credential"
	StepBuild      = "build"
	StepStart      = "start"
	StepRegister   = "register"
)

type StepError struct {
	Step     string
	TenantID string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("provisioning step %s failed for tenant %s: %v", e.Step, e.TenantID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type SubscriptionRegistry interface {
	Create(ctx context.Context, tenantID string, adminID int64) error
	Exists(ctx context.Context, tenantID string) (bool, error)
}

type CredentialWriter interface {
	Write(tenantID, botToken string, adminID int64) error
	EnvPath(tenantID string) string
}

type Metrics interface {
	RecordProvision(step string, err error)
}

// Provisioner materializes a new tenant instance from the template: id
// allocation, file materialization, credential write, image build and
// start, subscription registration. The sequence is deliberately not
// atomic; a failure leaves observable partial state and the same slot
// converges when re-run (every step overwrites its own output).
type Provisioner struct {
	registry    SubscriptionRegistry
	creds       CredentialWriter
	backend     runtime.Backend
	templateDir string
	botsDir     string
	logger      *zap.Logger
	metrics     Metrics

	newID func() string
}

func NewProvisioner(registry SubscriptionRegistry, creds CredentialWriter, backend runtime.Backend, templateDir, botsDir string, metrics Metrics, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		registry:    registry,
		creds:       creds,
		backend:     backend,
		templateDir: templateDir,
		botsDir:     botsDir,
		logger:      logger,
		metrics:     metrics,
		newID:       func() string { return uuid.New().String()[:tenantIDLength] },
	}
}

// Provision creates a new isolated bot instance and returns its tenant
// id once every step has succeeded.
func (p *Provisioner) Provision(ctx context.Context, botToken string, adminID int64) (string, error) {
	tenantID, err := p.allocate(ctx)
	if err != nil {
		p.metrics.RecordProvision(StepAllocate, err)
		return "", &StepError{Step: StepAllocate, Err: err}
	}
	if err := p.ProvisionSlot(ctx, tenantID, botToken, adminID); err != nil {
		return "", err
	}
	return tenantID, nil
}

// ProvisionSlot runs the provisioning sequence for a known tenant id.
// Used for the initial attempt and for retrying a slot left behind by a
// partial failure: template copy and build both overwrite.
func (p *Provisioner) ProvisionSlot(ctx context.Context, tenantID, botToken string, adminID int64) error {
	fail := func(step string, err error) error {
		p.metrics.RecordProvision(step, err)
		p.logger.Error("Provisioning failed",
			zap.String("tenant_id", tenantID),
			zap.String("step", step),
			zap.Error(err),
		)
		return &StepError{Step: step, TenantID: tenantID, Err: err}
	}

	tenantDir := filepath.Join(p.botsDir, tenantID)
	if err := copyTree(p.templateDir, tenantDir); err != nil {
		return fail(StepTemplate, err)
	}

	if err := p.creds.Write(tenantID, botToken, adminID); err != nil {
		return fail(StepCredential, err)
	}

	imageRef, err := p.backend.Build(ctx, tenantID, tenantDir)
	if err != nil {
		return fail(StepBuild, err)
	}

	if _, err := p.backend.Start(ctx, tenantID, imageRef, p.creds.EnvPath(tenantID)); err != nil {
		return fail(StepStart, err)
	}

	if err := p.registry.Create(ctx, tenantID, adminID); err != nil {
		return fail(StepRegister, err)
	}

	p.metrics.RecordProvision("", nil)
	p.logger.Info("Tenant provisioned",
		zap.String("tenant_id", tenantID),
		zap.Int64("admin_id", adminID),
	)
	return nil
}

// allocate picks a fresh short id, retrying on the unlikely collision
// with an existing subscription. Never reuses a taken slot.
func (p *Provisioner) allocate(ctx context.Context) (string, error) {
	for i := 0; i < maxAllocTries; i++ {
		tenantID := p.newID()
		taken, err := p.registry.Exists(ctx, tenantID)
		if err != nil {
			return "", err
		}
		if !taken {
			return tenantID, nil
		}
		p.logger.Warn("Tenant id collision, retrying", zap.String("tenant_id", tenantID))
	}
	return "", ErrAllocationExhausted
}

// copyTree copies the template into the tenant directory, overwriting
// files that already exist so a retried slot converges.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("template missing: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("template %s is not a directory", src)
	}

	return filepath.Walk(src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if fi.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, fi.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
