// Moth CLI - boots a dispatch runtime, runs a workload and reports how its
// call sites specialized
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/FinnC/moth-SOMns/config"
	"github.com/FinnC/moth-SOMns/profile"
	"github.com/FinnC/moth-SOMns/vm"
)

func main() {
	configDir := flag.String("config", "", "Directory containing moth.toml (default: search upward from the working directory)")
	verbosity := flag.Int("v", -1, "Log verbosity (overrides [log] verbosity)")
	profileDB := flag.String("profile-db", "", "Record the call-site snapshot in this SQLite database")
	snapshotPath := flag.String("snapshot", "", "Write the call-site snapshot to this CBOR file")
	iterations := flag.Int("n", 1000, "Workload iterations")
	top := flag.Int("top", 10, "Number of hottest call sites to list")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: moth [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs the dispatch workload and prints call-site classification.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  moth                               # Use ./moth.toml if present\n")
		fmt.Fprintf(os.Stderr, "  moth -n 100000 -top 5              # Longer run, five hottest sites\n")
		fmt.Fprintf(os.Stderr, "  moth -profile-db profile.db        # Persist the snapshot\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, *verbosity, *profileDB, *snapshotPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	configureLogging(cfg)

	rt := vm.New(cfg.VMOptions())
	if err := runWorkload(rt, *iterations); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printReport(rt, *top)

	if err := persist(context.Background(), cfg, rt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads moth.toml from dir, or searches upward from the working
// directory when dir is empty. Without a file the defaults apply.
func loadConfig(dir string) (*config.Config, error) {
	if dir != "" {
		return config.Load(dir)
	}
	cfg, err := config.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return config.Default(), nil
	}
	return cfg, nil
}

// applyFlags overrides configuration values with the ones given on the
// command line. Paths from flags are relative to the working directory, not
// to the directory of moth.toml.
func applyFlags(cfg *config.Config, verbosity int, profileDB, snapshot string) error {
	if verbosity >= 0 {
		cfg.Log.Verbosity = verbosity
	}
	if profileDB != "" {
		abs, err := filepath.Abs(profileDB)
		if err != nil {
			return fmt.Errorf("-profile-db: %w", err)
		}
		cfg.Profile.Database = abs
	}
	if snapshot != "" {
		abs, err := filepath.Abs(snapshot)
		if err != nil {
			return fmt.Errorf("-snapshot: %w", err)
		}
		cfg.Profile.Snapshot = abs
	}
	return nil
}

func configureLogging(cfg *config.Config) {
	var path *string
	if cfg.Log.File != "" {
		path = &cfg.Log.File
	}
	commonlog.Configure(cfg.Log.Verbosity, path)
}

func printReport(rt *vm.Runtime, top int) {
	stats := rt.ICStats()
	fmt.Printf("Call sites: %d (monomorphic %d, polymorphic %d, megamorphic %d, uninitialized %d)\n",
		stats.TotalCallSites, stats.Monomorphic, stats.Polymorphic, stats.Megamorphic, stats.Empty)
	fmt.Printf("Hit rate: %.1f%%  specializations: %d  deoptimizations: %d\n\n",
		stats.HitRate, stats.Specializations, stats.Deopts)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSELECTOR\tSOURCE\tSTATE\tLENGTH\tSENDS\tNODES")
	for _, r := range rt.TopSites(top) {
		fmt.Fprintf(w, "%d\t%s\t#%s\t%s\t%s\t%d\t%d\t%v\n",
			r.ID, r.Kind, r.Selector, r.Source, r.State, r.ChainLength, r.Stats.Hits+r.Stats.Misses, r.Nodes)
	}
	w.Flush()
}

// persist writes the snapshot file and records the snapshot in the profile
// database, as configured.
func persist(ctx context.Context, cfg *config.Config, rt *vm.Runtime) error {
	dbPath, snapPath := cfg.ProfileDatabasePath(), cfg.SnapshotPath()
	if dbPath == "" && snapPath == "" {
		return nil
	}
	snap := profile.NewSnapshot(rt)

	if snapPath != "" {
		data, err := profile.MarshalSnapshot(snap)
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		if err := os.WriteFile(snapPath, data, 0o644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		fmt.Printf("\nWrote snapshot %s to %s\n", snap.SessionID, snapPath)
	}

	if dbPath != "" {
		store, err := profile.OpenStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Record(ctx, snap); err != nil {
			return err
		}
		fmt.Printf("\nRecorded session %s in %s\n", snap.SessionID, dbPath)
	}
	return nil
}
