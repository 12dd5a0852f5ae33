package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// KeyType is an SSH key algorithm gus can generate.
type KeyType string

const (
	KeyTypeEd25519 KeyType = "ed25519"
	KeyTypeRSA     KeyType = "rsa"
	KeyTypeECDSA   KeyType = "ecdsa"
)

// Valid reports whether t is a supported key type.
func (t KeyType) Valid() bool {
	switch t {
	case KeyTypeEd25519, KeyTypeRSA, KeyTypeECDSA:
		return true
	}
	return false
}

// Persisted records deliberately avoid omitempty: a key missing from the
// encoded document is treated as unknown when merging preserved fields.

// Identity is a named Git author bound to one SSH key pair.
type Identity struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	KeyID string `yaml:"key"`
}

// String formats the identity the way `gus list` prints it.
func (i Identity) String() string {
	return fmt.Sprintf("%s: %s <%s>", i.ID, i.Name, i.Email)
}

// KeyPair references an SSH key pair on disk. Key material is never stored here.
type KeyPair struct {
	ID                  string    `yaml:"id"`
	Type                KeyType   `yaml:"type"`
	PrivatePath         string    `yaml:"private_path"`
	PublicPath          string    `yaml:"public_path"`
	PassphraseProtected bool      `yaml:"passphrase_protected"`
	Managed             bool      `yaml:"managed"`
	CreatedAt           time.Time `yaml:"created_at"`
}

// Session records the active identity of one terminal.
type Session struct {
	ID          string    `yaml:"id"`
	IdentityID  string    `yaml:"identity"`
	LastUpdated time.Time `yaml:"last_updated"`
}

// Rule binds a directory glob to an identity. Rules are evaluated in order.
type Rule struct {
	Pattern    string `yaml:"pattern"`
	IdentityID string `yaml:"identity"`
}

// Config is the whole gus state document: settings, auto-switch rules, the
// identity catalog, key references and the session table.
type Config struct {
	DefaultKeyDir       string        `yaml:"default_key_dir"`
	DefaultKeyType      KeyType       `yaml:"default_key_type"`
	DefaultKeyRounds    int           `yaml:"default_key_rounds"`
	MinPassphraseLength int           `yaml:"min_passphrase_length"`
	ForceUseGus         bool          `yaml:"force_use_gus"`
	AutoSwitchEnabled   bool          `yaml:"auto_switch_enabled"`
	SessionTTL          time.Duration `yaml:"session_ttl"`
	GitProgram          string        `yaml:"git_program"`        // empty = "git" from PATH
	KeygenProgram       string        `yaml:"ssh_keygen_program"` // empty = auto-detect
	Rules               []Rule        `yaml:"rules"`
	Identities          []Identity    `yaml:"identities"`
	Keys                []KeyPair     `yaml:"keys"`
	Sessions            []Session     `yaml:"sessions"`

	// raw is the mapping node this config was decoded from; fields the
	// struct does not know are carried over from it on Marshal.
	raw *yaml.Node
}

// Default values for a fresh config.
const (
	DefaultKeyRounds           = 100
	DefaultMinPassphraseLength = 10
	DefaultSessionTTL          = 30 * 24 * time.Hour
)

// DefaultConfig returns a new Config storing generated keys under keyDir.
func DefaultConfig(keyDir string) Config {
	return Config{
		DefaultKeyDir:       keyDir,
		DefaultKeyType:      KeyTypeEd25519,
		DefaultKeyRounds:    DefaultKeyRounds,
		MinPassphraseLength: DefaultMinPassphraseLength,
		ForceUseGus:         true,
		AutoSwitchEnabled:   false,
		SessionTTL:          DefaultSessionTTL,
		Rules:               []Rule{},
		Identities:          []Identity{},
		Keys:                []KeyPair{},
		Sessions:            []Session{},
	}
}

// UnmarshalYAML decodes the document, keeping the raw node for
// unknown-field preservation and giving list-shape mistakes a readable error.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type configAlias Config
	var temp configAlias

	if err := node.Decode(&temp); err != nil {
		if strings.Contains(err.Error(), "cannot unmarshal !!map into []config.") {
			return fmt.Errorf(
				"invalid list in config:\n"+
					"  rules, identities, keys and sessions must be YAML sequences (- item)\n"+
					"  Original error: %w", err)
		}
		return err
	}

	*c = Config(temp)
	c.raw = node
	return nil
}

// Parse decodes and validates a config document.
func Parse(data []byte) (Config, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Config{}, fmt.Errorf("config file is empty")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes the config, re-attaching fields from the original document
// that this version of gus does not understand.
func (c *Config) Marshal() ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if c.raw != nil {
		mergeUnknown(&node, c.raw)
	}
	return yaml.Marshal(&node)
}

var identityIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateIdentityID checks that id is a usable identity slug.
func ValidateIdentityID(id string) error {
	if !identityIDPattern.MatchString(id) {
		return fmt.Errorf("invalid identity id %q: use letters, digits, '.', '_' or '-'", id)
	}
	return nil
}

// Validate checks cross-record consistency of a decoded document.
func (c *Config) Validate() error {
	if c.DefaultKeyType != "" && !c.DefaultKeyType.Valid() {
		return fmt.Errorf("default_key_type: unsupported key type %q", c.DefaultKeyType)
	}
	if c.DefaultKeyRounds < 0 {
		return fmt.Errorf("default_key_rounds: must not be negative")
	}
	if c.MinPassphraseLength < 0 {
		return fmt.Errorf("min_passphrase_length: must not be negative")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session_ttl: must not be negative")
	}

	keys := make(map[string]bool, len(c.Keys))
	for i, k := range c.Keys {
		if k.ID == "" {
			return fmt.Errorf("keys[%d]: missing id", i)
		}
		if keys[k.ID] {
			return fmt.Errorf("keys[%d]: duplicate key id %q", i, k.ID)
		}
		keys[k.ID] = true
	}

	ids := make(map[string]bool, len(c.Identities))
	for i, ident := range c.Identities {
		if err := ValidateIdentityID(ident.ID); err != nil {
			return fmt.Errorf("identities[%d]: %w", i, err)
		}
		if ids[ident.ID] {
			return fmt.Errorf("identities[%d]: duplicate identity id %q", i, ident.ID)
		}
		if !keys[ident.KeyID] {
			return fmt.Errorf("identities[%d]: identity %q references unknown key %q", i, ident.ID, ident.KeyID)
		}
		ids[ident.ID] = true
	}

	patterns := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		if patterns[r.Pattern] {
			return fmt.Errorf("rules[%d]: duplicate pattern %q", i, r.Pattern)
		}
		patterns[r.Pattern] = true
	}

	return nil
}

// FindIdentity returns the index of the identity with the given id, or -1.
func (c *Config) FindIdentity(id string) int {
	for i := range c.Identities {
		if c.Identities[i].ID == id {
			return i
		}
	}
	return -1
}

// FindKey returns the index of the key pair with the given id, or -1.
func (c *Config) FindKey(id string) int {
	for i := range c.Keys {
		if c.Keys[i].ID == id {
			return i
		}
	}
	return -1
}

// FindSession returns the index of the session with the given id, or -1.
func (c *Config) FindSession(id string) int {
	for i := range c.Sessions {
		if c.Sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// FindRule returns the index of the rule with the exact pattern, or -1.
func (c *Config) FindRule(pattern string) int {
	for i := range c.Rules {
		if c.Rules[i].Pattern == pattern {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the record slices so callers can mutate the
// result without aliasing c.
func (c Config) Clone() Config {
	out := c
	out.Rules = append([]Rule{}, c.Rules...)
	out.Identities = append([]Identity{}, c.Identities...)
	out.Keys = append([]KeyPair{}, c.Keys...)
	out.Sessions = append([]Session{}, c.Sessions...)
	return out
}
