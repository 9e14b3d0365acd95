package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath         = "."
	defaultPollInterval = 3 * time.Second
	defaultPollTimeout  = 5 * time.Minute
	defaultAPITimeout   = 30 * time.Second
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	API struct {
		BaseURL string        `json:"baseUrl" yaml:"baseUrl"`
		Timeout time.Duration `json:"timeout" yaml:"timeout"`
	} `json:"api" yaml:"api"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// External configures the third-party identity provider. Its presence
	// (a non-empty client key) is what enables the external and hybrid
	// authentication modes.
	External *ExternalAuthConfig `json:"external" yaml:"external"`

	Sync *SyncConfig `json:"sync" yaml:"sync"`

	// Invalidation configures the optional webhook notified on terminal
	// sync events, in addition to the in-process invalidation bus.
	Invalidation *InvalidationConfig `json:"invalidation" yaml:"invalidation"`

	// Devstub configuration for the local development backend
	Devstub *DevstubConfig `json:"devstub" yaml:"devstub"`

	// MockMode disables credential attachment and 401 handling entirely,
	// for local development against the devstub or recorded fixtures.
	MockMode bool `json:"mockMode" yaml:"mockMode"`
}

// AuthConfig selects the requested authentication mode.
type AuthConfig struct {
	// Mode is one of "session", "external" or "hybrid". Requesting
	// external or hybrid without an external client key silently
	// degrades to session mode; that is a valid deployment state.
	Mode string `json:"mode" yaml:"mode"`
}

// ExternalAuthConfig defines the third-party identity provider settings.
type ExternalAuthConfig struct {
	ClientKey string `json:"clientKey" yaml:"clientKey"`
	// Issuer is validated against the iss claim of ID tokens when set.
	Issuer string `json:"issuer" yaml:"issuer"`
	// TokenFile is where the provider's sign-in tooling drops the current
	// ID token; the token service watches it for sign-in/sign-out.
	TokenFile string `json:"tokenFile" yaml:"tokenFile"`
}

// SyncConfig defines the background sync watcher settings.
type SyncConfig struct {
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	PollTimeout  time.Duration `json:"pollTimeout" yaml:"pollTimeout"`
}

// InvalidationConfig defines the terminal-event webhook settings.
type InvalidationConfig struct {
	WebhookEndpoint string `json:"webhookEndpoint" yaml:"webhookEndpoint"`
}

// DevstubConfig defines configuration for the local development backend.
type DevstubConfig struct {
	Port          int           `json:"port" yaml:"port"`
	SessionSecret string        `json:"sessionSecret" yaml:"sessionSecret"`
	JobDuration   time.Duration `json:"jobDuration" yaml:"jobDuration"`
	// FailSyncs makes every simulated sync job finish with an error,
	// for exercising the error path of consumers.
	FailSyncs bool             `json:"failSyncs" yaml:"failSyncs"`
	Accounts  []DevstubAccount `json:"accounts" yaml:"accounts"`
}

// DevstubAccount seeds a demo login for the devstub backend.
type DevstubAccount struct {
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
	Name     string `json:"name" yaml:"name"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: API_BASEURL -> api.baseUrl (not api.baseurl)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if cfg.Auth == nil {
		cfg.Auth = &AuthConfig{Mode: "session"}
	}
	if cfg.Sync == nil {
		cfg.Sync = &SyncConfig{}
	}
	if cfg.Sync.PollInterval <= 0 {
		cfg.Sync.PollInterval = defaultPollInterval
	}
	if cfg.Sync.PollTimeout <= 0 {
		cfg.Sync.PollTimeout = defaultPollTimeout
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = defaultAPITimeout
	}

	return cfg, nil
}

// HasExternalKey reports whether an external provider client key is
// configured. Absence of the key is a valid deployment state that
// degrades external and hybrid modes to session mode.
func (c *Config) HasExternalKey() bool {
	return c.External != nil && strings.TrimSpace(c.External.ClientKey) != ""
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
