package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/netrecon/netrecon/internal/logger"
	"github.com/netrecon/netrecon/pkg/recontypes"
	"github.com/netrecon/netrecon/pkg/resultstore"
)

func newQueryCommand(flags *pflag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the result store",
	}

	cmd.AddCommand(newQueryHostCommand(flags))
	cmd.AddCommand(newQueryPortCommand(flags))
	cmd.AddCommand(newQueryServiceCommand(flags))
	return cmd
}

func openStoreForQuery(flags *pflag.FlagSet) (*resultstore.Store, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return resultstore.Open(cfg.StorePath, log)
}

func newQueryHostCommand(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{
		Use:   "host <ip>",
		Short: "Look up one host by its exact IP address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStoreForQuery(flags)
			if err != nil {
				return err
			}
			defer store.Close()

			row, ok := store.GetRowByHost(args[0])
			if !ok {
				fmt.Println("not found")
				return nil
			}
			printRow(row)
			return nil
		},
	}
}

func newQueryPortCommand(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{
		Use:   "port <substring>",
		Short: "Find hosts whose ports column contains substring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStoreForQuery(flags)
			if err != nil {
				return err
			}
			defer store.Close()

			var substring string
			if len(args) == 1 {
				substring = args[0]
			}
			for _, row := range store.GetRowsByPort(substring) {
				printRow(row)
			}
			return nil
		},
	}
}

func newQueryServiceCommand(flags *pflag.FlagSet) *cobra.Command {
	return &cobra.Command{
		Use:   "service <substring>",
		Short: "Find hosts whose services column contains substring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStoreForQuery(flags)
			if err != nil {
				return err
			}
			defer store.Close()

			var substring string
			if len(args) == 1 {
				substring = args[0]
			}
			for _, row := range store.GetRowsByService(substring) {
				printRow(row)
			}
			return nil
		},
	}
}

func printRow(row recontypes.HostRecord) {
	fmt.Printf("%s ports=%v services=%q\n", row.HostID, row.Ports, row.Services)
}
