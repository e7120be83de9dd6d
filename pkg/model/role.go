package model

import "fmt"

// Role identifies which edge daemon a boot sequence is preparing.
type Role string

const (
	RoleProxy Role = "proxy" // reverse proxy terminating TLS
	RoleDNS   Role = "dns"   // resolver / authoritative responder
	RoleXray  Role = "xray"  // proxy daemon with structured JSON config
	RoleVPN   Role = "vpn"   // VPN daemon with flat credential file
)

var roles = map[Role]bool{
	RoleProxy: true,
	RoleDNS:   true,
	RoleXray:  true,
	RoleVPN:   true,
}

// ParseRole validates a role name from flags or the environment.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !roles[r] {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
