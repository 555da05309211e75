package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = func(args ...any) { fmt.Println(args...) }

// execIface defines the minimal command surface the REPL needs. The real
// App type satisfies it; tests can provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Verify(ctx context.Context) error
	Resend(ctx context.Context) error
	Whoami(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL reads a command per line and dispatches to a. Unknown commands
// are reported back. The loop exits on EOF or "exit"/"quit". Handler errors
// are printed by the handlers themselves and ignored here.
func runREPL(a execIface, statusFn func() string, scanner *bufio.Scanner) {
	ctx := context.Background()

	for {
		printlnFn(fmt.Sprintf("userval> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, logout, exit")
			} else {
				printlnFn("Available commands: register, login, verify, resend, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "verify":
			_ = a.Verify(ctx)
		case "resend":
			_ = a.Resend(ctx)
		case "whoami":
			_ = a.Whoami(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "exit", "quit":
			return
		default:
			printlnFn("Unknown command. Type 'help' for the list.")
		}
	}
}
