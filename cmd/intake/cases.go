package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"intake-chatbot/internal/db"
	"intake-chatbot/pkg"
)

var casesLimit int

var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "List recently resolved cases from the audit log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("database.url (or DATABASE_URL) is required")
		}
		dbConn, err := openDatabase(cmd.Context(), cfg.Database.URL)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		records, err := db.NewRepository(dbConn, nil).RecentCases(cmd.Context(), casesLimit)
		if err != nil {
			return err
		}
		return printCases(cmd.OutOrStdout(), records)
	},
}

func init() {
	casesCmd.Flags().IntVar(&casesLimit, "limit", 20, "number of cases to show")
}

func printCases(w io.Writer, records []pkg.CaseRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tCASE\tOUTCOME\tDIAGNOSIS\tPRESCRIPTION")
	for _, r := range records {
		path := "-"
		if r.PrescriptionPath != nil {
			path = *r.PrescriptionPath
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.ID, r.Outcome, r.Diagnosis, path)
	}
	return tw.Flush()
}
