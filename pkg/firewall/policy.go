package firewall

import "log"

// Ingress is one declared service port an edge role listens on.
type Ingress struct {
	Proto string // tcp or udp
	Port  string
}

// Peers names the addresses and subnets a role may forward for. Empty
// values simply drop the corresponding rules.
type Peers struct {
	Subnet4 string
	Subnet6 string
	Addr4   string
	Addr6   string
}

// Private ranges denied for forwarding after any egress permit, as a
// safety net against lateral access into adjacent infrastructure.
var (
	privateV4 = []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "100.64.0.0/10", "169.254.0.0/16"}
	privateV6 = []string{"fc00::/7", "fe80::/10"}
)

// BuildTable assembles the complete policy for a role: default deny on
// INPUT and FORWARD, loopback and established permits, the declared
// ingress ports, and peer-scoped forwarding followed by the standing
// private-range denies. IPv6 rules exist only when dualStack is set, and
// each v6 permit additionally requires its peer value to be non-empty;
// a missing address degrades to single-stack instead of erroring.
func BuildTable(ingress []Ingress, peers Peers, dualStack bool) (Table, error) {
	b := NewBuilder()

	families := []Family{V4}
	if dualStack {
		families = append(families, V6)
	}

	for _, f := range families {
		b.Policy(f, "INPUT", "DROP")
		b.Policy(f, "FORWARD", "DROP")
		b.Base(f, "INPUT", "-m", "state", "--state", "RELATED,ESTABLISHED")
		b.Base(f, "INPUT", "-i", "lo")
		b.Base(f, "FORWARD", "-m", "state", "--state", "RELATED,ESTABLISHED")
	}

	for _, in := range ingress {
		b.Permit(V4, "INPUT", "-p", in.Proto, "--dport", in.Port)
		if dualStack {
			b.Permit(V6, "INPUT", "-p", in.Proto, "--dport", in.Port)
		}
	}

	egress := false
	if peers.Subnet4 != "" {
		b.Permit(V4, "FORWARD", "-s", peers.Subnet4)
		egress = true
	}
	if peers.Addr4 != "" {
		b.Permit(V4, "FORWARD", "-d", peers.Addr4)
		egress = true
	}
	if egress {
		for _, cidr := range privateV4 {
			b.Deny(V4, "FORWARD", "-d", cidr)
		}
	}

	if dualStack {
		egress6 := false
		if peers.Subnet6 != "" {
			b.Permit(V6, "FORWARD", "-s", peers.Subnet6)
			egress6 = true
		}
		if peers.Addr6 != "" {
			b.Permit(V6, "FORWARD", "-d", peers.Addr6)
			egress6 = true
		}
		if egress6 {
			for _, cidr := range privateV6 {
				b.Deny(V6, "FORWARD", "-d", cidr)
			}
		} else if peers.Subnet4 != "" || peers.Addr4 != "" {
			log.Printf("dual-stack enabled but no v6 peer configured; forwarding stays single-stack")
		}
	}

	return b.Build()
}
