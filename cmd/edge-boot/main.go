package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"edge-boot/pkg/boot"
	"edge-boot/pkg/config"
	"edge-boot/pkg/firewall"
	"edge-boot/pkg/genstore"
	"edge-boot/pkg/model"
	"edge-boot/pkg/synth"
	"edge-boot/pkg/version"
)

func main() {
	baseline := time.Now()

	defaultRole := os.Getenv("ROLE")
	defaultTemplate := os.Getenv("TEMPLATE_PATH")
	defaultGenDir := os.Getenv("GENERATION_DIR")
	if defaultGenDir == "" {
		defaultGenDir = "/var/lib/edge-boot/generation"
	}
	defaultConsul := os.Getenv("CONSUL_ADDR")
	defaultConsulToken := os.Getenv("CONSUL_TOKEN")

	role := flag.String("role", defaultRole, "edge role: proxy|dns|xray|vpn (env ROLE)")
	showVersion := flag.Bool("v", false, "print version and exit")
	templatePath := flag.String("template", defaultTemplate, "config template path (env TEMPLATE_PATH)")
	outDir := flag.String("out", "/run/edge-boot", "directory to write rendered artifacts")
	genDir := flag.String("generation-dir", defaultGenDir, "generation store directory (env GENERATION_DIR)")
	storeType := flag.String("store", "file", "generation store backend: file|consul (consul requires build tag consul)")
	consulAddr := flag.String("consul-addr", defaultConsul, "consul address (when store=consul, env CONSUL_ADDR)")
	consulToken := flag.String("consul-token", defaultConsulToken, "consul token (env CONSUL_TOKEN)")
	consulPrefix := flag.String("consul-prefix", "edge-boot/generation", "consul KV prefix for the generation store")
	gateTimeout := flag.Duration("gate-timeout", 60*time.Second, "how long to wait for a fresh credential snapshot")
	pollInterval := flag.Duration("poll-interval", time.Second, "generation store poll interval")
	daemon := flag.String("daemon", "", "edge daemon binary to hand off to (required)")
	noFirewall := flag.Bool("no-firewall", strings.EqualFold(os.Getenv("SKIP_FIREWALL"), "true"), "skip policy install (development only, env SKIP_FIREWALL)")
	journalPath := flag.String("journal", firewall.DefaultJournalPath, "sqlite journal for applied rules")
	purgeInterval := flag.Duration("purge-interval", 0, "if >0, purge aged logs on this interval and signal the daemon")
	purgeDir := flag.String("purge-dir", "/var/log/edge", "log directory for the purge timer")
	purgeMaxAge := flag.Duration("purge-max-age", 72*time.Hour, "log age threshold for the purge timer")
	flag.Parse()

	if *showVersion {
		log.Printf("edge-boot version=%s", version.Build)
		return
	}

	r, err := model.ParseRole(*role)
	if err != nil {
		log.Fatalf("role: %v (flag --role or env ROLE)", err)
	}
	if *templatePath == "" {
		log.Fatal("template path is required (flag --template or env TEMPLATE_PATH)")
	}
	if *daemon == "" {
		log.Fatal("daemon binary is required (flag --daemon)")
	}

	cfg, err := config.Load(r)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	table, err := firewall.BuildTable(ingressFor(cfg), peersFor(cfg), cfg.Flags.DualStack)
	if err != nil {
		log.Fatalf("policy construction failed: %v", err)
	}

	var store genstore.Store
	switch *storeType {
	case "consul":
		store, err = genstore.NewConsulStore(*consulAddr, *consulToken, *consulPrefix, *genDir)
		if err != nil {
			log.Fatalf("consul store init failed: %v", err)
		}
	case "file":
		store = genstore.NewFileStore(*genDir)
	default:
		log.Fatalf("unsupported store type: %s", *storeType)
	}
	gate := genstore.Gate{Store: store, Interval: *pollInterval, Timeout: *gateTimeout}

	journal := firewall.OpenJournal(*journalPath)
	defer journal.Close()
	installer := &firewall.Installer{Journal: journal}

	seq := &boot.Sequencer{
		Install: func() error {
			if *noFirewall {
				log.Printf("policy install skipped (--no-firewall)")
				return nil
			}
			return installer.Install(table)
		},
		Await: gate.Await,
		Synthesize: func(record model.GenerationRecord) ([]string, error) {
			return synth.RenderAndWrite(cfg, *templatePath, *outDir, record)
		},
		Handoff: handoff(*daemon, flag.Args(), *purgeInterval, *purgeDir, *purgeMaxAge),
	}

	log.Printf("edge-boot version=%s role=%s daemon=%s", version.Build, r, *daemon)
	if err := seq.Run(baseline); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			log.Printf("daemon exited: %v", err)
			os.Exit(exit.ExitCode())
		}
		log.Fatalf("boot sequence failed: %v", err)
	}
}

// handoff returns the final stage. With no purge timer the daemon
// replaces this process; with one, the daemon runs as a child so the
// timer can keep signaling it.
func handoff(daemon string, extraArgs []string, purgeInterval time.Duration, purgeDir string, purgeMaxAge time.Duration) func([]string) error {
	return func(artifacts []string) error {
		args := append(append([]string{}, artifacts...), extraArgs...)
		if purgeInterval <= 0 {
			return boot.ExecHandoff(daemon, args)
		}

		cmd, err := boot.SpawnHandoff(daemon, args)
		if err != nil {
			return err
		}
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		done := make(chan struct{})
		go boot.RelaySignals(cmd.Process, sigs, done)
		purger := &boot.Purger{
			Dir:      purgeDir,
			MaxAge:   purgeMaxAge,
			Interval: purgeInterval,
			Signal:   func() error { return cmd.Process.Signal(syscall.SIGHUP) },
		}
		stop := make(chan struct{})
		go purger.Start(stop)
		err = cmd.Wait()
		close(stop)
		signal.Stop(sigs)
		close(done)
		return err
	}
}

// ingressFor maps the role's declared service ports to permit rules.
func ingressFor(cfg *config.Config) []firewall.Ingress {
	var in []firewall.Ingress
	add := func(proto, name string) {
		if port, _ := cfg.Value(name); port != "" {
			in = append(in, firewall.Ingress{Proto: proto, Port: port})
		}
	}
	switch cfg.Role {
	case model.RoleProxy:
		add("tcp", "TLS_PORT")
	case model.RoleDNS:
		add("tcp", "DNS_PORT")
		add("udp", "DNS_PORT")
	case model.RoleXray:
		add("tcp", "TLS_PORT")
		add("tcp", "FALLBACK_PORT")
	case model.RoleVPN:
		add("tcp", "VPN_PORT")
		add("udp", "VPN_PORT")
	}
	return in
}

func peersFor(cfg *config.Config) firewall.Peers {
	v := func(name string) string {
		s, _ := cfg.Value(name)
		return s
	}
	return firewall.Peers{
		Subnet4: v("CLIENT_SUBNET4"),
		Subnet6: v("CLIENT_SUBNET6"),
		Addr4:   v("PEER_ADDR4"),
		Addr6:   v("PEER_ADDR6"),
	}
}
