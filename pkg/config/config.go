package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"edge-boot/pkg/model"
)

// Feature flag names as referenced by template block delimiters.
const (
	FlagDualStack        = "DUAL_STACK"
	FlagCDNFallback      = "CDN_FALLBACK"
	FlagSubscription     = "SUBSCRIPTION"
	FlagAuthoritativeDNS = "AUTHORITATIVE_DNS"
	FlagCamouflage       = "CAMOUFLAGE"
)

var flagEnv = map[string]string{
	FlagDualStack:        "ENABLE_DUAL_STACK",
	FlagCDNFallback:      "ENABLE_CDN_FALLBACK",
	FlagSubscription:     "ENABLE_SUBSCRIPTION",
	FlagAuthoritativeDNS: "ENABLE_AUTHORITATIVE_DNS",
	FlagCamouflage:       "ENABLE_CAMOUFLAGE",
}

// Flags is the per-process feature toggle set, resolved once at start.
type Flags struct {
	DualStack        bool
	CDNFallback      bool
	Subscription     bool
	AuthoritativeDNS bool
	Camouflage       bool
}

// Enabled resolves a flag by its template block name. Unknown names are
// false; block pruning treats absent flags the same as disabled ones.
func (f Flags) Enabled(name string) bool {
	switch name {
	case FlagDualStack:
		return f.DualStack
	case FlagCDNFallback:
		return f.CDNFallback
	case FlagSubscription:
		return f.Subscription
	case FlagAuthoritativeDNS:
		return f.AuthoritativeDNS
	case FlagCamouflage:
		return f.Camouflage
	}
	return false
}

type envSet struct {
	required []string
	optional []string
}

// The closed, per-role environment surface. Templates may reference only
// these names; anything else fails at render time, not silently.
var roleEnv = map[model.Role]envSet{
	model.RoleProxy: {
		required: []string{"DOMAIN", "TLS_PORT"},
		optional: []string{"PROXY_ADDR4", "PROXY_ADDR6", "UPSTREAM_HOST", "SUBSCRIPTION_PATH", "CDN_HOST", "CLIENT_SUBNET4", "CLIENT_SUBNET6", "PEER_ADDR4", "PEER_ADDR6"},
	},
	model.RoleDNS: {
		required: []string{"DOMAIN", "DNS_PORT"},
		optional: []string{"DNS_ADDR4", "DNS_ADDR6", "ZONE_ORIGIN", "CLIENT_SUBNET4", "CLIENT_SUBNET6", "PEER_ADDR4", "PEER_ADDR6"},
	},
	model.RoleXray: {
		required: []string{"DOMAIN", "TLS_PORT"},
		optional: []string{"XRAY_SNI", "CDN_HOST", "FALLBACK_PORT", "CLIENT_SUBNET4", "CLIENT_SUBNET6", "PEER_ADDR4", "PEER_ADDR6"},
	},
	model.RoleVPN: {
		required: []string{"DOMAIN", "VPN_PORT"},
		optional: []string{"VPN_SNI", "VPN_GROUP", "CAMOUFLAGE_REALM", "CLIENT_SUBNET4", "CLIENT_SUBNET6", "PEER_ADDR4", "PEER_ADDR6"},
	},
}

// Config is the resolved runtime configuration for one edge process.
// Populated once at start; immutable afterwards.
type Config struct {
	Role   model.Role
	Flags  Flags
	Values map[string]string
}

// Load resolves the environment surface for a role. A .env file in the
// working directory is honored first, matching how the rest of the fleet
// is provisioned. Missing required names fail here, not deep in a render.
func Load(role model.Role) (*Config, error) {
	_ = loadDotEnv()

	set, ok := roleEnv[role]
	if !ok {
		return nil, fmt.Errorf("no environment surface for role %q", role)
	}

	values := make(map[string]string, len(set.required)+len(set.optional))
	for _, name := range set.required {
		v := os.Getenv(name)
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("required environment value %s is not set for role %s", name, role)
		}
		values[name] = v
	}
	for _, name := range set.optional {
		values[name] = os.Getenv(name)
	}

	return &Config{
		Role: role,
		Flags: Flags{
			DualStack:        boolEnv(flagEnv[FlagDualStack]),
			CDNFallback:      boolEnv(flagEnv[FlagCDNFallback]),
			Subscription:     boolEnv(flagEnv[FlagSubscription]),
			AuthoritativeDNS: boolEnv(flagEnv[FlagAuthoritativeDNS]),
			Camouflage:       boolEnv(flagEnv[FlagCamouflage]),
		},
		Values: values,
	}, nil
}

// Value returns a resolved environment value. The second return is false
// for names outside the role's closed set.
func (c *Config) Value(name string) (string, bool) {
	v, ok := c.Values[name]
	return v, ok
}

// Domain is required for every role.
func (c *Config) Domain() string { return c.Values["DOMAIN"] }

func boolEnv(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}
