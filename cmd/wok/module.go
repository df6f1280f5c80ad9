package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Inspect a module's state and output",
}

var moduleStateCmd = &cobra.Command{
	Use:   "state <module-id>",
	Short: "Show a module's current state",
	Args:  cobra.ExactArgs(1),
	RunE:  runModuleStateCmd,
}

var moduleOutputCmd = &cobra.Command{
	Use:   "output <module-id>",
	Short: "Print a leaf module's concatenated task output",
	Args:  cobra.ExactArgs(1),
	RunE:  runModuleOutputCmd,
}

func init() {
	moduleCmd.PersistentFlags().String("addr", "127.0.0.1:8080", "Control surface address")
	moduleCmd.AddCommand(moduleStateCmd)
	moduleCmd.AddCommand(moduleOutputCmd)
}

func runModuleStateCmd(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	var resp struct {
		State string `json:"state"`
	}
	q := url.Values{"id": {args[0]}}
	if err := getJSON(addr, "/module_state", q, &resp); err != nil {
		return err
	}
	fmt.Println(resp.State)
	return nil
}

func runModuleOutputCmd(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	q := url.Values{"id": {args[0]}}
	var raw string
	if err := getText(addr, "/module_output", q, &raw); err != nil {
		return err
	}
	fmt.Print(raw)
	return nil
}
