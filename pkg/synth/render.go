// Package synth renders a role's template into concrete config
// artifacts and injects the credential snapshot. Reruns with identical
// inputs rewrite identical bytes.
package synth

import (
	"fmt"
	"os"
	"path/filepath"

	"edge-boot/pkg/config"
	"edge-boot/pkg/inject"
	"edge-boot/pkg/model"
	"edge-boot/pkg/template"
)

// Inbound tags and transport markers used by the structured target.
const (
	primaryTag        = "primary"
	fallbackTag       = "fallback"
	primaryTransport  = "ws"
	fallbackTransport = "grpc"
)

// RenderAndWrite synthesizes the artifacts for one role and returns the
// written paths in the order the daemon expects them as arguments.
func RenderAndWrite(cfg *config.Config, templatePath, outDir string, record model.GenerationRecord) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output: %w", err)
	}

	tpl, err := template.LoadFile(templatePath)
	if err != nil {
		return nil, err
	}
	artifact, err := tpl.Render(cfg, cfg.Flags)
	if err != nil {
		return nil, err
	}

	confPath := filepath.Join(outDir, confName(cfg.Role))
	mode := os.FileMode(0o644)

	switch cfg.Role {
	case model.RoleXray:
		s := inject.Structured{
			Domain:            cfg.Domain(),
			PrimaryTag:        primaryTag,
			FallbackTag:       fallbackTag,
			PrimaryTransport:  primaryTransport,
			FallbackTransport: fallbackTransport,
			FallbackEnabled:   cfg.Flags.CDNFallback,
		}
		artifact, err = s.Inject(artifact, record.Users)
		if err != nil {
			return nil, err
		}
		mode = 0o600
	case model.RoleVPN:
		mode = 0o600
	}

	if err := os.WriteFile(confPath, artifact, mode); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	paths := []string{confPath}

	if cfg.Role == model.RoleVPN {
		group, _ := cfg.Value("VPN_GROUP")
		f := inject.Flat{Path: filepath.Join(outDir, "passwd"), Group: group}
		if err := f.Write(record.Users); err != nil {
			return nil, err
		}
		paths = append(paths, f.Path)
	}
	return paths, nil
}

func confName(role model.Role) string {
	switch role {
	case model.RoleXray:
		return "config.json"
	case model.RoleDNS:
		return "named.conf"
	case model.RoleVPN:
		return "daemon.conf"
	}
	return "server.conf"
}
