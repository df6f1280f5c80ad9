package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect a task's state, configuration, output and logs",
}

var taskStateCmd = &cobra.Command{
	Use:   "state <task-id>",
	Short: "Show a task's current state",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskStateCmd,
}

var taskConfCmd = &cobra.Command{
	Use:   "conf <task-id>",
	Short: "Print a task's resolved configuration as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskConfCmd,
}

var taskOutputCmd = &cobra.Command{
	Use:   "output <task-id>",
	Short: "Print a task's raw combined stdout/stderr",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskOutputCmd,
}

var taskLogsCmd = &cobra.Command{
	Use:   "logs <module-id> <index>",
	Short: "Print a task's parsed log entries",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskLogsCmd,
}

func init() {
	taskCmd.PersistentFlags().String("addr", "127.0.0.1:8080", "Control surface address")
	taskCmd.AddCommand(taskStateCmd)
	taskCmd.AddCommand(taskConfCmd)
	taskCmd.AddCommand(taskOutputCmd)
	taskCmd.AddCommand(taskLogsCmd)
}

func runTaskStateCmd(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	var resp struct {
		State string `json:"state"`
	}
	q := url.Values{"id": {args[0]}}
	if err := getJSON(addr, "/task_state", q, &resp); err != nil {
		return err
	}
	fmt.Println(resp.State)
	return nil
}

func runTaskConfCmd(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	var conf map[string]any
	q := url.Values{"id": {args[0]}}
	if err := getJSON(addr, "/task_conf", q, &conf); err != nil {
		return err
	}
	out, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runTaskOutputCmd(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	q := url.Values{"id": {args[0]}}
	var raw string
	if err := getText(addr, "/task_output", q, &raw); err != nil {
		return err
	}
	fmt.Print(raw)
	return nil
}

func runTaskLogsCmd(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	var entries []map[string]string
	q := url.Values{"module_id": {args[0]}, "index": {args[1]}}
	if err := getJSON(addr, "/task_logs", q, &entries); err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s %s %s %s : %s\n", e["Date"], e["Time"], e["TaskID"], e["Level"], e["Message"])
	}
	return nil
}
