package permit

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the declarative form of an evaluation environment: engine
// tuning plus the seed records (spaces, memberships, resources, grants)
// that populate a store.
type Config struct {
	Version   uint16             `json:"version" yaml:"version"`
	Engine    EngineConfig       `json:"engine" yaml:"engine"`
	Spaces    []SpaceConfig      `json:"spaces" yaml:"spaces"`
	Members   []MemberConfig     `json:"members" yaml:"members"`
	Resources []*Resource        `json:"resources" yaml:"resources"`
	Grants    []*PermissionGrant `json:"grants" yaml:"grants"`
}

// SpaceConfig declares one space and its billing tier
type SpaceConfig struct {
	ID   string           `json:"id" yaml:"id"`
	Name string           `json:"name,omitempty" yaml:"name,omitempty"`
	Tier SubscriptionTier `json:"tier" yaml:"tier"`
}

// MemberConfig declares one space membership and its role joins
type MemberConfig struct {
	SpaceRoleID string   `json:"space_role_id" yaml:"space_role_id"`
	UserID      string   `json:"user_id" yaml:"user_id"`
	SpaceID     string   `json:"space_id" yaml:"space_id"`
	Admin       bool     `json:"admin" yaml:"admin"`
	Guest       bool     `json:"guest" yaml:"guest"`
	Roles       []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// EngineConfig tunes the evaluator's in-process access cache
type EngineConfig struct {
	AccessCacheTTL      int64 `json:"access_cache_ttl_ms" yaml:"access_cache_ttl_ms"`
	RistrettoNumCounter int64 `json:"ristretto_num_counter" yaml:"ristretto_num_counter"`
	RistrettoMaxCost    int64 `json:"ristretto_max_cost" yaml:"ristretto_max_cost"`
	RistrettoBuffer     int64 `json:"ristretto_buffer" yaml:"ristretto_buffer"`
}

func (c EngineConfig) accessCacheTTL() time.Duration {
	if c.AccessCacheTTL <= 0 {
		return time.Second
	}
	return time.Duration(c.AccessCacheTTL) * time.Millisecond
}

func (c EngineConfig) ristrettoNumCounters() int64 {
	if c.RistrettoNumCounter <= 0 {
		return 1 << 14
	}
	return c.RistrettoNumCounter
}

func (c EngineConfig) ristrettoMaxCost() int64 {
	if c.RistrettoMaxCost <= 0 {
		return 1 << 12
	}
	return c.RistrettoMaxCost
}

func (c EngineConfig) ristrettoBuffer() int64 {
	if c.RistrettoBuffer <= 0 {
		return 64
	}
	return c.RistrettoBuffer
}

// ConfigLoader loads configuration from YAML or JSON
type ConfigLoader struct{}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{}
}

func (l *ConfigLoader) LoadYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) LoadJSON(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile picks the loader from the file extension (.yaml/.yml/.json)
func (l *ConfigLoader) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch {
	case hasSuffix(path, ".yaml"), hasSuffix(path, ".yml"):
		return l.LoadYAML(data)
	case hasSuffix(path, ".json"):
		return l.LoadJSON(data)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// SaveYAML serializes the config for round-tripping between formats
func (c *Config) SaveYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate performs structural checks before a config is applied anywhere
func (c *Config) Validate() error {
	spaces := make(map[string]struct{}, len(c.Spaces))
	for _, s := range c.Spaces {
		if err := validateID("spaces.id", s.ID); err != nil {
			return err
		}
		spaces[s.ID] = struct{}{}
	}
	for _, m := range c.Members {
		if err := validateID("members.user_id", m.UserID); err != nil {
			return err
		}
		if _, ok := spaces[m.SpaceID]; !ok {
			return fmt.Errorf("member %s references unknown space %s", m.UserID, m.SpaceID)
		}
	}
	for _, r := range c.Resources {
		if err := validateID("resources.id", r.ID); err != nil {
			return err
		}
		if _, ok := spaces[r.SpaceID]; !ok {
			return fmt.Errorf("resource %s references unknown space %s", r.ID, r.SpaceID)
		}
		if len(OperationsForKind(r.Kind)) == 0 {
			return fmt.Errorf("resource %s has unknown kind %q", r.ID, r.Kind)
		}
	}
	for _, g := range c.Grants {
		if _, err := ResolveAssignee(g); err != nil {
			return err
		}
		if g.Level == LevelCustom && len(g.Operations) == 0 {
			return fmt.Errorf("grant %s is custom but lists no operations", g.ID)
		}
	}
	return nil
}

// Seeder is implemented by stores that can be populated from a Config
type Seeder interface {
	AddSpace(id string, tier SubscriptionTier)
	AddSpaceRole(role *SpaceRoleRecord)
	AssignRole(spaceRoleID, roleID string)
	AddResource(res *Resource)
	AddGrant(grant *PermissionGrant)
}

// Apply seeds a store with the config's records
func (c *Config) Apply(s Seeder) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, sp := range c.Spaces {
		s.AddSpace(sp.ID, sp.Tier)
	}
	for _, m := range c.Members {
		s.AddSpaceRole(&SpaceRoleRecord{
			ID:      m.SpaceRoleID,
			UserID:  m.UserID,
			SpaceID: m.SpaceID,
			IsAdmin: m.Admin,
			IsGuest: m.Guest,
		})
		for _, roleID := range m.Roles {
			s.AssignRole(m.SpaceRoleID, roleID)
		}
	}
	for _, r := range c.Resources {
		s.AddResource(r)
	}
	for _, g := range c.Grants {
		s.AddGrant(g)
	}
	return nil
}
