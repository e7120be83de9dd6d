package main

import (
	"flag"
	"log"
	"os"
	"time"

	"edge-boot/pkg/identity"
	"edge-boot/pkg/version"
)

func main() {
	defaultDir := os.Getenv("GENERATION_DIR")
	if defaultDir == "" {
		defaultDir = "/var/lib/edge-boot/generation"
	}

	dir := flag.String("dir", defaultDir, "generation store directory (env GENERATION_DIR)")
	addUser := flag.String("add", "", "create a user before exporting")
	delUser := flag.String("delete", "", "delete a user before exporting")
	interval := flag.Duration("interval", 0, "if >0, re-export on this interval instead of exiting")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		log.Printf("genexport version=%s", version.Build)
		return
	}

	db, err := identity.Open()
	if err != nil {
		log.Fatalf("identity database: %v", err)
	}
	exporter := &identity.Exporter{DB: db, Dir: *dir}

	if *addUser != "" {
		cred, err := exporter.AddUser(*addUser)
		if err != nil {
			log.Fatalf("add user: %v", err)
		}
		log.Printf("credentials: %s %s", cred.Username, cred.Secret)
	}
	if *delUser != "" {
		if err := exporter.DeleteUser(*delUser); err != nil {
			log.Fatalf("delete user: %v", err)
		}
	}

	if err := exporter.Export(); err != nil {
		log.Fatalf("export failed: %v", err)
	}
	if *interval <= 0 {
		return
	}
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := exporter.Export(); err != nil {
			log.Printf("export failed: %v", err)
		}
	}
}
