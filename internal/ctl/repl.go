package ctl

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printFn is a test seam for user-facing output.
var printFn = fmt.Print

// execIface is the command surface the REPL needs. App satisfies it.
type execIface interface {
	Servers(ctx context.Context) error
	Keys(ctx context.Context, address string) error
	Sync(ctx context.Context, address string) error
	SyncAll(ctx context.Context) error
}

const helpText = `Available commands:
  servers          list registered servers
  keys <address>   list stored keys of a server
  sync <address>   reconcile the keys of a server
  syncall          reconcile every active server
  help             show this help
  exit | quit      leave the program
`

// runREPL reads commands line by line and dispatches them to a. The prompt
// is printed only when interactive is set. The loop ends on EOF, exit or
// quit. Command errors are reported and the loop goes on.
func runREPL(ctx context.Context, a execIface, interactive bool, scanner *bufio.Scanner) {
	for {
		if interactive {
			printFn("outlinectl> ")
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printFn(helpText)

		case "servers", "ls":
			err = a.Servers(ctx)

		case "keys":
			if len(args) != 1 {
				printFn("usage: keys <address>\n")
				continue
			}
			err = a.Keys(ctx, args[0])

		case "sync":
			if len(args) != 1 {
				printFn("usage: sync <address>\n")
				continue
			}
			err = a.Sync(ctx, args[0])

		case "syncall":
			err = a.SyncAll(ctx)

		case "exit", "quit":
			printFn("Bye!\n")
			return

		default:
			printFn(fmt.Sprintf("Unknown command: %s\n", cmd))
		}

		if err != nil {
			printFn(fmt.Sprintf("error: %v\n", err))
		}
	}
}
