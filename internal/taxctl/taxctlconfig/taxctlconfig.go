// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package taxctlconfig provides configuration parsing and validation for taxctl.
//
// The configuration lives at <dir>/taxctl.yaml and lists the securities and accounts
// that snapshot instruments are resolved against.
package taxctlconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bufdev/taxctl/internal/taxctl/taxctlmodel"
	"github.com/bufdev/taxctl/internal/taxctl/taxctlpath"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# The securities that snapshot instruments are matched against.
#
# Instruments match by ISIN, then ticker, then WKN, then name. Identifiers are
# compared exactly.
#
# The id is optional. If omitted, it is derived from the name, so renaming a
# security detaches it from its existing assignments.
securities: []
#   - name: Apple Inc.
#     isin: US0378331005
#     ticker: AAPL
#     wkn: "865985"
# The accounts that snapshot instruments are matched against by name.
#
# Optional. Account names must differ from every security name and from each
# other, since instruments match securities by name before accounts.
accounts: []
#   - name: Checking
# Defaults for "taxctl taxonomy import".
#
# Optional. Flags passed on the command line take precedence.
import:
  # Keep the names, descriptions, and colors of existing categories.
  preserve_names: false
  # Delete categories and assignments that the snapshot does not mention.
  prune: false
`

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	// Version is the configuration file version (must be "v1").
	Version string `yaml:"version"`
	// Securities is the list of securities.
	Securities []ExternalSecurityConfig `yaml:"securities"`
	// Accounts is the list of accounts.
	Accounts []ExternalAccountConfig `yaml:"accounts"`
	// Import holds the import defaults.
	Import ExternalImportConfig `yaml:"import"`
}

// ExternalSecurityConfig holds the identifiers of a security.
type ExternalSecurityConfig struct {
	// ID is the optional stable id.
	ID string `yaml:"id"`
	// Name is the display name.
	Name string `yaml:"name"`
	// ISIN is the International Securities Identification Number.
	ISIN string `yaml:"isin"`
	// Ticker is the ticker symbol.
	Ticker string `yaml:"ticker"`
	// WKN is the German securities identification number.
	WKN string `yaml:"wkn"`
}

// ExternalAccountConfig holds the identifiers of an account.
type ExternalAccountConfig struct {
	// ID is the optional stable id.
	ID string `yaml:"id"`
	// Name is the display name.
	Name string `yaml:"name"`
}

// ExternalImportConfig holds import defaults.
type ExternalImportConfig struct {
	// PreserveNames keeps the names, descriptions, and colors of existing categories.
	PreserveNames bool `yaml:"preserve_names"`
	// Prune deletes categories and assignments absent from the snapshot.
	Prune bool `yaml:"prune"`
}

// Config is the validated runtime configuration derived from the config file.
type Config struct {
	// DirPath is the base directory containing taxctl.yaml.
	DirPath string
	// Securities are the configured securities in file order.
	Securities []*taxctlmodel.Security
	// Accounts are the configured accounts in file order.
	Accounts []*taxctlmodel.Account
	// ImportPreserveNames is the default of the import --preserve-names flag.
	ImportPreserveNames bool
	// ImportPrune is the default of the import --prune flag.
	ImportPrune bool
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
func NewConfig(dirPath string, externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("unsupported config version %q, must be v1", externalConfig.Version)
	}
	// Ids are shared between securities and accounts.
	ids := make(map[string]string)
	checkID := func(id string, description string) error {
		if existing, ok := ids[id]; ok {
			return fmt.Errorf("duplicate id %q used by %s and %s", id, existing, description)
		}
		ids[id] = description
		return nil
	}
	securities := make([]*taxctlmodel.Security, 0, len(externalConfig.Securities))
	for i, s := range externalConfig.Securities {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("securities[%d]: name is required", i)
		}
		id := s.ID
		if id == "" {
			id = DeriveVehicleID("security", name)
		}
		if err := checkID(id, fmt.Sprintf("security %q", name)); err != nil {
			return nil, err
		}
		securities = append(
			securities,
			taxctlmodel.NewSecurity(id, name, strings.TrimSpace(s.ISIN), strings.TrimSpace(s.Ticker), strings.TrimSpace(s.WKN)),
		)
	}
	securityNames := make(map[string]struct{}, len(securities))
	for _, security := range securities {
		securityNames[security.Name()] = struct{}{}
	}
	accountNames := make(map[string]struct{}, len(externalConfig.Accounts))
	accounts := make([]*taxctlmodel.Account, 0, len(externalConfig.Accounts))
	for i, a := range externalConfig.Accounts {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return nil, fmt.Errorf("accounts[%d]: name is required", i)
		}
		id := a.ID
		if id == "" {
			id = DeriveVehicleID("account", name)
		}
		if err := checkID(id, fmt.Sprintf("account %q", name)); err != nil {
			return nil, err
		}
		// Accounts only carry a name, so the name must identify them.
		if _, ok := securityNames[name]; ok {
			return nil, fmt.Errorf("accounts[%d]: name %q is already used by a security", i, name)
		}
		if _, ok := accountNames[name]; ok {
			return nil, fmt.Errorf("accounts[%d]: name %q is already used by another account", i, name)
		}
		accountNames[name] = struct{}{}
		accounts = append(accounts, taxctlmodel.NewAccount(id, name))
	}
	return &Config{
		DirPath:             dirPath,
		Securities:          securities,
		Accounts:            accounts,
		ImportPreserveNames: externalConfig.Import.PreserveNames,
		ImportPrune:         externalConfig.Import.Prune,
	}, nil
}

// Client returns the vehicles of the configuration.
func (c *Config) Client() *taxctlmodel.Client {
	return taxctlmodel.NewClient(c.Securities, c.Accounts)
}

// DeriveVehicleID returns the stable id of a vehicle without an explicit id.
//
// The id is a name-based UUID, so it is stable across runs as long as the name is unchanged.
func DeriveVehicleID(kind string, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("taxctl/"+kind+"/"+name)).String()
}

// ReadConfig reads and validates the configuration file from the given base directory.
// Returns a clear error message directing users to run "taxctl config init" if the file is missing.
func ReadConfig(dirPath string) (*Config, error) {
	filePath := taxctlpath.ConfigFilePath(dirPath)
	config, err := readConfigFile(dirPath, filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found at %s, run \"taxctl config init\" to create one", filePath)
		}
		return nil, err
	}
	return config, nil
}

// InitConfig creates a new configuration file with a documented template.
// Creates the base directory if it does not exist.
// Returns the path to the created file, or an error if the file already exists.
func InitConfig(dirPath string) (string, error) {
	filePath := taxctlpath.ConfigFilePath(dirPath)
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("configuration file already exists: %s", filePath)
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(configTemplate), 0o644); err != nil {
		return "", err
	}
	return filePath, nil
}

// ValidateConfigFile reads and validates the configuration file at the given path.
func ValidateConfigFile(filePath string) error {
	_, err := readConfigFile("", filePath)
	return err
}

func readConfigFile(dirPath string, filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var externalConfig ExternalConfig
	if err := unmarshalYAMLStrict(data, &externalConfig); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
	}
	config, err := NewConfig(dirPath, externalConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filePath, err)
	}
	return config, nil
}

// unmarshalYAMLStrict unmarshals the data as YAML with strict field checking.
// If the data length is 0, this is a no-op.
func unmarshalYAMLStrict(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
	// Reject unknown fields.
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(v); err != nil {
		return fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	return nil
}
