package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Query a running instance's state over its control surface",
	RunE:  runStateCmd,
}

func init() {
	stateCmd.Flags().String("addr", "127.0.0.1:8080", "Control surface address")
}

func runStateCmd(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	var resp struct {
		State string `json:"state"`
	}
	if err := getJSON(addr, "/state", url.Values{}, &resp); err != nil {
		return err
	}
	fmt.Println(resp.State)
	return nil
}
