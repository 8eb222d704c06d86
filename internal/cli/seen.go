package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/subwatch/internal/config"
	"github.com/ppiankov/subwatch/internal/store"
)

var (
	seenJSON bool
	seenList bool
)

var seenCmd = &cobra.Command{
	Use:   "seen",
	Short: "Show dedup state size and freshness",
	RunE:  seenAction,
}

func init() {
	seenCmd.Flags().BoolVar(&seenJSON, "json", false, "output as JSON")
	seenCmd.Flags().BoolVar(&seenList, "list", false, "print every stored post id")
}

type seenOutput struct {
	Backend     string   `json:"backend"`
	Location    string   `json:"location,omitempty"`
	Count       int      `json:"count"`
	LastUpdated string   `json:"last_updated,omitempty"`
	IDs         []string `json:"ids,omitempty"`
}

func seenAction(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	seen, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dedup state: %w", err)
	}

	out := seenOutput{
		Backend: cfg.Storage.Backend,
		Count:   seen.Len(),
	}
	if cfg.Storage.Backend != store.BackendPostgres {
		out.Location = cfg.Storage.Path
	}
	if !seen.UpdatedAt.IsZero() {
		out.LastUpdated = seen.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if seenList {
		out.IDs = seen.IDs()
	}

	if seenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Backend:      %s\n", out.Backend)
	if out.Location != "" {
		fmt.Printf("Location:     %s\n", out.Location)
	}
	fmt.Printf("Seen posts:   %d\n", out.Count)
	if out.LastUpdated != "" {
		fmt.Printf("Last updated: %s (%s ago)\n", out.LastUpdated, time.Since(seen.UpdatedAt).Round(time.Second))
	} else {
		fmt.Println("Last updated: never")
	}
	for _, id := range out.IDs {
		fmt.Println(id)
	}
	return nil
}
