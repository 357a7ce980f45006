package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// PrivateKeyEnv is read when the file does not set private_key.
const PrivateKeyEnv = "LAUNCHER_PRIVATE_KEY"

// Defaults applied to omitted fields.
const (
	DefaultStoreURL            = "file://launcher-data"
	DefaultAddr                = ":8080"
	DefaultConfirmations       = 1
	DefaultPollInterval        = 2 * time.Second
	DefaultConfirmationTimeout = 3 * time.Minute
	DefaultGasBufferPercent    = 20
	DefaultMetricsNamespace    = "launcher"
)

// Duration is a time.Duration written as a string such as "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

type LauncherConfig struct {
	ChainID     *big.Int `yaml:"chain_id"`
	RPCURL      string   `yaml:"rpc_url"`
	PrivateKey  string   `yaml:"private_key"`
	PoolManager string   `yaml:"pool_manager"`
	// PoolManagerHookData selects initialize(key, price, hookData).
	PoolManagerHookData bool   `yaml:"pool_manager_hook_data"`
	TokenArtifact       string `yaml:"token_artifact"`

	Confirmations       uint64   `yaml:"confirmations"`
	PollInterval        Duration `yaml:"poll_interval"`
	ConfirmationTimeout Duration `yaml:"confirmation_timeout"`
	GasBufferPercent    *uint64  `yaml:"gas_buffer_percent"`
	VerifySupply        bool     `yaml:"verify_supply"`

	StoreURL string        `yaml:"store_url"`
	HTTP     HTTPConfig    `yaml:"http"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// envRef matches ${VAR}. Bare $ is left alone so secrets may contain it.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		return []byte(os.Getenv(string(envRef.FindSubmatch(ref)[1])))
	})
}

// LoadConfig reads a configuration file from the given path, expands ${VAR}
// references from the environment and unmarshals it into a LauncherConfig with
// defaults applied.
func LoadConfig(path string) (*LauncherConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a configuration document. See LoadConfig.
func Parse(data []byte) (*LauncherConfig, error) {
	var cfg LauncherConfig
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills omitted fields.
func (c *LauncherConfig) ApplyDefaults() {
	if c.PrivateKey == "" {
		c.PrivateKey = os.Getenv(PrivateKeyEnv)
	}
	if c.StoreURL == "" {
		c.StoreURL = DefaultStoreURL
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultAddr
	}
	if c.Confirmations == 0 {
		c.Confirmations = DefaultConfirmations
	}
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.ConfirmationTimeout <= 0 {
		c.ConfirmationTimeout = Duration(DefaultConfirmationTimeout)
	}
	if c.GasBufferPercent == nil {
		v := uint64(DefaultGasBufferPercent)
		c.GasBufferPercent = &v
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "token-launcher"
	}
}

// Validate checks the fields needed to submit transactions.
func (c *LauncherConfig) Validate() error {
	var errs []error
	if c.ChainID == nil || c.ChainID.Sign() <= 0 {
		errs = append(errs, errors.New("chain_id is required"))
	}
	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc_url is required"))
	}
	if c.PrivateKey == "" {
		errs = append(errs, fmt.Errorf("private_key is required (or set %s)", PrivateKeyEnv))
	}
	if !common.IsHexAddress(c.PoolManager) {
		errs = append(errs, fmt.Errorf("pool_manager %q is not a hex address", c.PoolManager))
	}
	if c.TokenArtifact == "" {
		errs = append(errs, errors.New("token_artifact is required"))
	}
	if c.PollInterval.Std() >= c.ConfirmationTimeout.Std() {
		errs = append(errs, errors.New("poll_interval must be shorter than confirmation_timeout"))
	}
	return errors.Join(errs...)
}

// PrivateKeyHex returns the signing key without a 0x prefix.
func (c *LauncherConfig) PrivateKeyHex() string {
	return strings.TrimPrefix(strings.TrimPrefix(c.PrivateKey, "0x"), "0X")
}
