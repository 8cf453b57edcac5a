package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"intake-chatbot/internal/kb"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect the symptom knowledge base",
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the cases in match priority order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		knowledge, err := loadKnowledge(kbPath)
		if err != nil {
			return err
		}
		return printKnowledge(cmd.OutOrStdout(), knowledge)
	},
}

var kbValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a knowledge base file (default: the built-in one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := kbPath
		if len(args) == 1 {
			path = args[0]
		}
		knowledge, err := loadKnowledge(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d cases\n", knowledge.Len())
		return nil
	},
}

func init() {
	kbCmd.AddCommand(kbListCmd, kbValidateCmd)
}

func printKnowledge(w io.Writer, knowledge *kb.KnowledgeBase) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDISEASE\tDAYS\tMEDICINE\tALTERNATIVE\tKEYWORDS")
	for i, c := range knowledge.Entries() {
		fmt.Fprintf(tw, "%d\t%s\t%d-%d\t%s\t%s\t%s\n",
			i+1, c.Disease, c.MinDays, c.MaxDays, c.Medicine, c.AlternativeMedicine,
			strings.Join(c.Keywords, ", "))
	}
	return tw.Flush()
}
