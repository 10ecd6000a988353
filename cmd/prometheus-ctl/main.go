package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"prometheus/internal/ipc"
)

func main() {
	socketPath := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Parse()

	cmd := ipc.CmdStatus
	if args := cli.Args(); len(args) > 0 {
		cmd = args[0]
	}

	resp, err := ipc.Send(*socketPath, cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "prometheus-daemon not running:", err)
		os.Exit(1)
	}
	if resp.Err != "" {
		fmt.Fprintln(os.Stderr, resp.Err)
		os.Exit(1)
	}

	switch cmd {
	case ipc.CmdStart:
		fmt.Println("started")
	case ipc.CmdStatus:
		fmt.Printf("started=%v state=%s\n", resp.Started, resp.State)
	}
}
