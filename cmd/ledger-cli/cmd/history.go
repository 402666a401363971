package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledger-core/internal/service"
)

var (
	historyUser uint64
	historyJSON bool
)

var historyCmd = &cobra.Command{
	Use:   "history <asset>",
	Short: "查询用户某币种的资金流水",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := connect()
		if err != nil {
			return err
		}
		defer d.Close()

		records, err := service.NewHistoryService(d.store).Build(cmd.Context(), historyUser, args[0])
		if err != nil {
			return err
		}
		if historyJSON {
			return printJSON(records)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSOURCE\tID\tDIRECTION\tAMOUNT\tFEE\tSTATUS")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source, r.ID, r.Direction,
				r.Amount.String(), r.Fee.String(), r.Status)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Uint64Var(&historyUser, "user", 0, "用户 ID")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "以 JSON 输出")
	_ = historyCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(historyCmd)
}
