package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/baapco/diksha/internal/config"
	"github.com/baapco/diksha/internal/storage"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List customer records from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		customers, err := store.ListCustomers()
		if err != nil {
			return fmt.Errorf("listing customers: %w", err)
		}
		if len(customers) == 0 {
			fmt.Println("No customers yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "IDENTITY\tNAME\tINTENT\tPURPOSE\tFIRST SEEN")
		for _, c := range customers {
			purpose := c.Purpose
			if len(purpose) > 60 {
				purpose = purpose[:60] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				c.Identity, c.DisplayName, c.Intent, purpose,
				c.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}
