package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/account-intel/internal/model"
)

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Manage user-entered client overrides",
	Long:  "Overrides replace a client's segment, geography or payment model in every snapshot, ahead of upstream data and Salesforce enrichment.",
}

var overridesAddCmd = &cobra.Command{
	Use:   "add <client name> <field> <value>",
	Short: "Add an override (field: segment, geography or payment_model)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		o, err := st.AddOverride(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added override %s\n", o.ID)
		return nil
	},
}

var overridesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List overrides, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		overrides, err := st.ListOverrides(ctx)
		if err != nil {
			return err
		}
		printOverrides(cmd, overrides)
		return nil
	},
}

var overridesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteOverride(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted override %s\n", args[0])
		return nil
	},
}

func printOverrides(cmd *cobra.Command, overrides []model.Override) {
	if len(overrides) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no overrides")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLIENT\tFIELD\tVALUE\tCREATED")
	for _, o := range overrides {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.ID, o.ClientName, o.Field, o.Value, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush() //nolint:errcheck
}

func init() {
	overridesCmd.AddCommand(overridesAddCmd, overridesListCmd, overridesDeleteCmd)
	rootCmd.AddCommand(overridesCmd)
}
