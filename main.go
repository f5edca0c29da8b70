// telnetd - a minimal remote shell server for telnet clients.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"telnetd/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "telnetd: %v\n", err)
		os.Exit(1)
	}
}
