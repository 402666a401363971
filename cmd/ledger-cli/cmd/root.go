package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"ledger-core/internal/repository"
	"ledger-core/internal/service"
	"ledger-core/pkg/cache"
	"ledger-core/pkg/config"
	"ledger-core/pkg/database"
	"ledger-core/pkg/logger"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "ledger-cli",
	Short: "账本运维命令行工具",
	Long: `直接连接账本数据库的运维工具。
支持配置提现限额、人工审核、查询资金流水以及手动触发对账。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Init()
		logger.Init(config.Global.App.Env)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// deps 子命令共享的连接
type deps struct {
	db    *gorm.DB
	rdb   *redis.Client
	store repository.Store
}

func connect() (*deps, error) {
	db, err := database.ConnectPostgres(config.Global.DB.DSN(), false)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	d := &deps{db: db, store: repository.NewGormStore(db)}
	// Redis 只用于让服务端的限额缓存失效，连不上不影响其余命令
	if rdb, err := database.ConnectRedis(config.Global.Redis.Addr, config.Global.Redis.Password, config.Global.Redis.DB); err == nil {
		d.rdb = rdb
	} else {
		fmt.Fprintf(os.Stderr, "warning: redis 不可用，限额缓存需等待过期: %v\n", err)
	}
	return d, nil
}

func (d *deps) limits() *service.LimitsService {
	var c cache.Cache = cache.NewMemoryCache(time.Minute, 5*time.Minute)
	if d.rdb != nil {
		c = cache.NewMultiLevelCache(c, cache.NewRedisCache(d.rdb, "ledger:limits:"))
	}
	ttl := time.Duration(config.Global.Ledger.LimitsCacheTTLSec) * time.Second
	return service.NewLimitsService(d.store, c, ttl, config.Global.Ledger.DisplayPrecision)
}

func (d *deps) Close() {
	if sqlDB, err := d.db.DB(); err == nil {
		sqlDB.Close()
	}
	if d.rdb != nil {
		d.rdb.Close()
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
