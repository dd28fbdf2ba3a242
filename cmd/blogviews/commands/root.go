// Package commands blogviews的命令行
package commands

import (
	"context"

	"github.com/d0ngw/blogviews/app"
	"github.com/spf13/cobra"
)

// Run 执行命令
func Run(args []string) error {
	RootCmd.SetArgs(args)
	return RootCmd.Execute()
}

// RootCmd 根命令
var RootCmd = &cobra.Command{
	Use:          "blogviews",
	Short:        "blog article view counter with per-visitor session dedup.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringP("config", "c", "conf/blogviews.yaml", "config file name.")
}

func loadConfig(command *cobra.Command) (*app.Config, error) {
	file, err := command.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return app.LoadConfig(file)
}

func openStores(command *cobra.Command) (*app.Stores, error) {
	conf, err := loadConfig(command)
	if err != nil {
		return nil, err
	}
	return app.OpenStores(context.Background(), conf)
}
