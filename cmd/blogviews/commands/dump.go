package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/d0ngw/blogviews/counter"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "print all article views as json",
	Args:  cobra.NoArgs,
	RunE:  dumpCmdF,
}

var importCmd = &cobra.Command{
	Use:   "import <views.json>",
	Short: "replace all article views with the json file, only for migration",
	Args:  cobra.ExactArgs(1),
	RunE:  importCmdF,
}

func init() {
	RootCmd.AddCommand(dumpCmd, importCmd)
}

func dumpCmdF(command *cobra.Command, args []string) error {
	stores, err := openStores(command)
	if err != nil {
		return err
	}
	defer stores.Close()

	views, err := stores.Store.GetAll(context.Background())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(views, "", "  ")
	if err != nil {
		return err
	}
	out := command.OutOrStdout()
	if _, err := out.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func importCmdF(command *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var views counter.Views
	if err := json.Unmarshal(data, &views); err != nil {
		return errors.Wrapf(err, "decode %s", args[0])
	}
	if err := views.Validate(); err != nil {
		return err
	}

	stores, err := openStores(command)
	if err != nil {
		return err
	}
	defer stores.Close()

	if err := stores.Store.ReplaceAll(context.Background(), views); err != nil {
		return err
	}
	fmt.Fprintf(command.OutOrStdout(), "imported %d articles into %s\n", len(views), stores.Store.Name())
	return nil
}
