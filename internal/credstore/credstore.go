package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrCredentialNotFound means the tenant has no credential file or the
// file is missing required keys. Readers degrade to zero values.
var ErrCredentialNotFound = errors.New("credential not found")

const (
	keyBotToken = "BOT_TOKEN"
	keyAdminIDs = "ADMIN_IDS"

	envFileName = ".env"
)

type Credentials struct {
	BotToken string
	AdminID  int64
}

// Store keeps one key-value env file per tenant directory. It owns only
// the file; registering the tenant elsewhere is the caller's problem.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) EnvPath(tenantID string) string {
	return filepath.Join(s.baseDir, tenantID, envFileName)
}

// Write persists the credential file into the tenant's directory. The
// directory must already exist; Write does not create tenant slots.
func (s *Store) Write(tenantID, botToken string, adminID int64) error {
	dir := filepath.Join(s.baseDir, tenantID)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("tenant directory missing for %s: %w", tenantID, err)
	}

	env := map[string]string{
		keyBotToken: botToken,
		keyAdminIDs: strconv.FormatInt(adminID, 10),
	}
	if err := godotenv.Write(env, s.EnvPath(tenantID)); err != nil {
		return fmt.Errorf("failed to write credential file for %s: %w", tenantID, err)
	}
	return nil
}

// Read loads the tenant's credentials. Returns zero values together with
// ErrCredentialNotFound when the file or a required key is absent.
func (s *Store) Read(tenantID string) (Credentials, error) {
	env, err := godotenv.Read(s.EnvPath(tenantID))
	if err != nil {
		return Credentials{}, ErrCredentialNotFound
	}

	token := env[keyBotToken]
	rawAdmin := env[keyAdminIDs]
	if token == "" || rawAdmin == "" {
		return Credentials{}, ErrCredentialNotFound
	}

	// ADMIN_IDS may carry a comma-separated list; only the first entry
	// is the notification target.
	first := strings.TrimSpace(strings.Split(rawAdmin, ",")[0])
	adminID, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return Credentials{}, ErrCredentialNotFound
	}

	return Credentials{BotToken: token, AdminID: adminID}, nil
}
