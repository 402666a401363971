package cmd

import (
	"github.com/spf13/cobra"

	"ledger-core/internal/service"
	"ledger-core/pkg/config"
	"ledger-core/pkg/utils/lock"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "立即执行一轮余额对账",
	Long:  `检查所有账户的 total = available + frozen，不满足的账户会被冻结。与服务端的定时对账共用同一把分布式锁。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := connect()
		if err != nil {
			return err
		}
		defer d.Close()

		var locker lock.DistributedLock
		if d.rdb != nil {
			locker = lock.NewRedisLock(d.rdb)
		}
		conf := config.Global.Ledger
		svc := service.NewReconcileService(d.store, locker, conf.ReconcileSpec, conf.EventsTopic, conf.ReconcileWorkers)
		report, err := svc.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
