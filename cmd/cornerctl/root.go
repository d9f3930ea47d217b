package main

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Corner-Boxing/corner-backend/internal/config"
	"github.com/Corner-Boxing/corner-backend/internal/store"
)

var (
	cfg       *config.Config
	storeFlag string
)

var rootCmd = &cobra.Command{
	Use:          "cornerctl",
	Short:        "Plan, render and inspect boxing class audio jobs.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil {
			return nil
		}
		c, err := config.Load()
		if err != nil {
			return err
		}
		if storeFlag != "" {
			c.Store.Driver = storeFlag
		}
		cfg = c
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Job store driver (memory|redis|sqlite3|mysql), overrides STORE_DRIVER")
}

// openStore connects to the configured job store. The returned func
// releases it.
func openStore() (store.JobStore, func(), error) {
	var redisClient *redis.Client
	if cfg.Store.Driver == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	st, err := store.Open(cfg.Store, redisClient)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, nil, err
	}
	return st, func() {
		st.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}, nil
}
