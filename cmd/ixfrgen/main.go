// Command ixfrgen drives one start -> (external zone reload) -> perform
// cycle against a pair of zone files, for manual testing and as an
// integration-test harness for the diff engine.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/miekg/dns"
	"github.com/spf13/pflag"

	"github.com/jschlyter/ixfrdiff/session"
	"github.com/jschlyter/ixfrdiff/zone"
)

func main() {
	var (
		cfgFile     string
		zoneName    string
		oldZonefile string
		newZonefile string
		statusAddr  string
	)

	pflag.StringVar(&cfgFile, "config", "", "config file path")
	pflag.StringVar(&zoneName, "zone", "", "zone name (apex)")
	pflag.StringVar(&oldZonefile, "old-zonefile", "", "zone file for the pre-reload snapshot")
	pflag.StringVar(&newZonefile, "new-zonefile", "", "zone file for the post-reload content")
	pflag.StringVar(&statusAddr, "status-addr", "", "address for the read-only status endpoint, e.g. :8053")
	pflag.Parse()

	if zoneName == "" || oldZonefile == "" || newZonefile == "" {
		fmt.Fprintln(os.Stderr, "Usage: ixfrgen --zone <apex> --old-zonefile <path> --new-zonefile <path> [--config <path>] [--status-addr <addr>]")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	conf, err := session.LoadConfig(cfgFile)
	if err != nil {
		log.Fatalf("ixfrgen: loading config: %v", err)
	}
	session.SetupLogging(conf.LogFile)

	spoolDir := conf.SpoolDir
	if spoolDir == "" {
		spoolDir = os.TempDir()
	}

	mgr, err := session.NewManager(conf.AuditDB)
	if err != nil {
		log.Fatalf("ixfrgen: %v", err)
	}
	defer mgr.Audit.Close()

	if statusAddr == "" {
		statusAddr = conf.StatusAddr
	}
	if statusAddr != "" {
		router := session.SetupStatusRouter(mgr)
		go func() {
			log.Printf("ixfrgen: status endpoint listening on %s", statusAddr)
			if err := http.ListenAndServe(statusAddr, router); err != nil {
				log.Printf("ixfrgen: status endpoint exited: %v", err)
			}
		}()
	}

	oldZone, err := loadZonefile(zoneName, oldZonefile)
	if err != nil {
		log.Fatalf("ixfrgen: loading old zone file: %v", err)
	}

	sess, err := mgr.Start(oldZone, spoolDir)
	if err != nil {
		log.Fatalf("ixfrgen: start: %v", err)
	}

	newZone, err := loadZonefile(zoneName, newZonefile)
	if err != nil {
		log.Fatalf("ixfrgen: loading new zone file: %v", err)
	}

	rsp, err := mgr.Perform(sess, newZone)
	if err != nil {
		log.Fatalf("ixfrgen: perform: %v", err)
	}
	if rsp == nil {
		fmt.Println("no changes between old and new zone content")
	} else {
		for _, rr := range rsp.Answer {
			fmt.Println(rr.String())
		}
	}

	if err := mgr.Free(sess); err != nil {
		log.Fatalf("ixfrgen: free: %v", err)
	}
}

func loadZonefile(apex, path string) (*zone.ZoneData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	zd := zone.New(apex)
	zp := dns.NewZoneParser(f, dns.Fqdn(apex), path)
	zp.SetIncludeAllowed(true)
	for rr, ok := zp.Next(); ok; rr, ok = zp.Next() {
		if err := zd.AddRR(rr); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	if err := zp.Err(); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	zd.ComputeIndices()
	return zd, nil
}
