package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ledger-core/internal/model"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "提现限额配置",
}

var limitsGetCmd = &cobra.Command{
	Use:   "get <asset> <network>",
	Short: "查看某币种网络的生效限额",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := connect()
		if err != nil {
			return err
		}
		defer d.Close()

		l, err := d.limits().Lookup(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(l)
	},
}

var (
	limitMin       string
	limitMax       string
	limitFee       string
	limitPrecision int32
	limitDisabled  bool
)

var limitsSetCmd = &cobra.Command{
	Use:   "set <asset> <network>",
	Short: "新增或覆盖限额，银行卡提现的 network 为 BANK",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l := &model.NetworkLimit{
			Asset:     args[0],
			Network:   args[1],
			Precision: limitPrecision,
			Enabled:   !limitDisabled,
		}
		var err error
		if l.MinWithdraw, err = decimal.NewFromString(limitMin); err != nil {
			return fmt.Errorf("--min 不是合法数字: %w", err)
		}
		if l.MaxWithdraw, err = decimal.NewFromString(limitMax); err != nil {
			return fmt.Errorf("--max 不是合法数字: %w", err)
		}
		if l.Fee, err = decimal.NewFromString(limitFee); err != nil {
			return fmt.Errorf("--fee 不是合法数字: %w", err)
		}
		if l.MinWithdraw.IsNegative() || l.Fee.IsNegative() || l.MaxWithdraw.LessThan(l.MinWithdraw) {
			return fmt.Errorf("需要 0 <= min <= max 且 fee >= 0")
		}

		d, err := connect()
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.limits().Set(cmd.Context(), l); err != nil {
			return err
		}
		fmt.Printf("已更新 %s/%s 限额\n", l.Asset, l.Network)
		return nil
	},
}

func init() {
	limitsSetCmd.Flags().StringVar(&limitMin, "min", "0", "单笔最小提现额")
	limitsSetCmd.Flags().StringVar(&limitMax, "max", "0", "单笔最大提现额")
	limitsSetCmd.Flags().StringVar(&limitFee, "fee", "0", "固定手续费")
	limitsSetCmd.Flags().Int32Var(&limitPrecision, "precision", 0, "展示精度，0 使用默认值")
	limitsSetCmd.Flags().BoolVar(&limitDisabled, "disabled", false, "停用该网络的提现")
	_ = limitsSetCmd.MarkFlagRequired("max")

	limitsCmd.AddCommand(limitsGetCmd, limitsSetCmd)
	rootCmd.AddCommand(limitsCmd)
}
