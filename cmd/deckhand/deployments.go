package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// =============================================================================
// deployments Command
// =============================================================================

func deploymentsCmd(args []string) int {
	fs := flag.NewFlagSet("deployments", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	limit := fs.Int("limit", 20, "maximum records to list")
	offset := fs.Int("offset", 0, "records to skip")
	name := fs.String("name", "", "filter by container name")
	fs.Parse(args)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return ExitConfigError
	}

	if cfg.History.DSN == "" {
		fmt.Fprintln(os.Stderr, "history is not configured; set history.dsn or DECKHAND_HISTORY_DSN")
		return ExitConfigError
	}

	st, err := store.NewSQLiteStore(cfg.History.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history store: %v\n", err)
		return ExitRuntimeError
	}
	defer st.Close()

	ctx, cancel := commandContext()
	defer cancel()

	opts := store.ListOptions{Limit: *limit, Offset: *offset}
	var records []store.DeploymentRecord
	if *name != "" {
		records, err = st.ListDeploymentsByName(ctx, *name, opts)
	} else {
		records, err = st.ListDeployments(ctx, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "list deployments: %v\n", err)
		return ExitRuntimeError
	}

	if len(records) == 0 {
		fmt.Println("no deployments recorded")
		return ExitSuccess
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "FINISHED\tNAME\tIMAGE\tSTATE\tATTEMPTS\tSOURCE\tID")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			rec.ContainerName, rec.Image, rec.FinalState, rec.Attempts, rec.Source, rec.ID)
	}
	w.Flush()
	return ExitSuccess
}
