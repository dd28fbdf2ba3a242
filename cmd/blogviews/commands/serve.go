package commands

import (
	"context"

	"github.com/d0ngw/blogviews/app"
	c "github.com/d0ngw/blogviews/common"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the blogviews http server",
	RunE:  serveCmdF,
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

func serveCmdF(command *cobra.Command, args []string) error {
	conf, err := loadConfig(command)
	if err != nil {
		return err
	}
	server, err := app.New(context.Background(), conf)
	if err != nil {
		return err
	}

	hook := c.NewShutdownhook()
	if err := server.Start(); err != nil {
		server.Stop()
		return err
	}
	hook.AddHook(server.Stop)
	hook.WaitShutdown()
	return nil
}
