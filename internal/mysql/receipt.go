package mysql

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
	"golang.org/x/crypto/bcrypt"
)

// Receipt records the outcome of the last successful run. It stores a bcrypt
// hash of the root credential, never the credential itself.
type Receipt struct {
	BindAddress   string    `toml:"bind_address"`
	Port          int       `toml:"port"`
	PasswordHash  string    `toml:"password_hash"`
	ProvisionedAt time.Time `toml:"provisioned_at"`
}

func NewReceipt(p Params, now time.Time) (Receipt, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.RootPassword()), bcrypt.DefaultCost)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return Receipt{
		BindAddress:   p.BindAddress(),
		Port:          p.Port(),
		PasswordHash:  string(hash),
		ProvisionedAt: now.UTC().Truncate(time.Second),
	}, nil
}

// Matches reports whether p describes the same bind address, port and credential.
func (r Receipt) Matches(p Params) bool {
	if r.BindAddress != p.BindAddress() || r.Port != p.Port() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(p.RootPassword())) == nil
}

// LoadReceipt reads the receipt at path. A missing file returns nil, nil.
func LoadReceipt(path string) (*Receipt, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read receipt %s: %w", path, err)
	}

	var receipt Receipt
	if err := toml.Unmarshal(content, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse receipt %s: %w", path, err)
	}
	return &receipt, nil
}

// Save writes the receipt atomically with owner-only permissions.
func (r Receipt) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create receipt directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(r); err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}

	if err := renameio.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write receipt %s: %w", path, err)
	}
	return nil
}
