package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ledger-core/internal/ledger"
	"ledger-core/internal/repository"
	"ledger-core/internal/service"
	"ledger-core/internal/worker"
	"ledger-core/pkg/config"
)

var (
	reviewAdmin  uint64
	reviewRemark string
	pendingOnly  bool
	listLimit    int
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "人工审核充值与提现",
}

func newReviewAction(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <kind> <id>",
		Short: "审核一条记录，kind 为 recharge / withdrawal / bank_withdrawal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := ledger.ParseSource(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("无效的记录 ID: %s", args[1])
			}
			if reviewAdmin == 0 {
				return fmt.Errorf("必须通过 --admin 指定审核人")
			}

			d, err := connect()
			if err != nil {
				return err
			}
			defer d.Close()

			notifier := worker.NewClient(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB)
			defer notifier.Close()

			admin := service.NewAdminService(d.store, notifier, config.Global.Ledger.EventsTopic)
			rec, err := admin.Review(cmd.Context(), reviewAdmin, source, id, action, reviewRemark)
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
}

var reviewListCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "列出某类记录，默认只看待审核",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := ledger.ParseSource(args[0])
		if err != nil {
			return err
		}
		d, err := connect()
		if err != nil {
			return err
		}
		defer d.Close()

		filter := repository.RecordFilter{Limit: listLimit}
		if pendingOnly {
			status := ledger.StatusPending
			filter.Status = &status
		}
		admin := service.NewAdminService(d.store, nil, config.Global.Ledger.EventsTopic)
		records, total, err := admin.List(cmd.Context(), source, filter)
		if err != nil {
			return err
		}
		fmt.Printf("共 %d 条\n", total)
		return printJSON(records)
	},
}

var reviewHistoryCmd = &cobra.Command{
	Use:   "history <kind> <id>",
	Short: "查看一条记录的审核历史",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := ledger.ParseSource(args[0])
		if err != nil {
			return err
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("无效的记录 ID: %s", args[1])
		}
		d, err := connect()
		if err != nil {
			return err
		}
		defer d.Close()

		admin := service.NewAdminService(d.store, nil, config.Global.Ledger.EventsTopic)
		reviews, err := admin.Reviews(cmd.Context(), source, id)
		if err != nil {
			return err
		}
		return printJSON(reviews)
	},
}

func init() {
	for _, action := range []string{"approve", "reject"} {
		c := newReviewAction(action)
		c.Flags().Uint64Var(&reviewAdmin, "admin", 0, "审核人 ID")
		c.Flags().StringVar(&reviewRemark, "remark", "", "备注，驳回时作为驳回原因")
		reviewCmd.AddCommand(c)
	}
	reviewListCmd.Flags().BoolVar(&pendingOnly, "pending", true, "只列出待审核记录")
	reviewListCmd.Flags().IntVar(&listLimit, "limit", 20, "最多返回条数")
	reviewCmd.AddCommand(reviewListCmd, reviewHistoryCmd)
	rootCmd.AddCommand(reviewCmd)
}
