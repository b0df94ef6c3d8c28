package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Upload(ctx context.Context, path, parentDirID string) error
	List(ctx context.Context) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	Sync(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the FileKeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	help                        — show available commands
//	upload <path> [dirId]       — register a file and start uploading
//	l | list                    — list uploads with status and progress
//	pause <id>                  — pause a running upload
//	resume <id>                 — resume a paused or failed upload
//	cancel <id>                 — cancel an upload and discard its bytes
//	sync                        — run a reconciliation pass now
//	exit | quit                 — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("fk> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: upload <path> [dirId], (l)ist, pause <id>, resume <id>, cancel <id>, sync, exit")

		case "upload":
			if len(args) == 0 {
				printlnFn("Usage: upload <path> [dirId]")
				continue
			}
			parentDirID := ""
			if len(args) > 1 {
				parentDirID = args[1]
			}
			_ = a.Upload(ctx, args[0], parentDirID)

		case "l", "list":
			_ = a.List(ctx)

		case "pause":
			if len(args) == 0 {
				printlnFn("Usage: pause <id>")
				continue
			}
			_ = a.Pause(ctx, args[0])

		case "resume":
			if len(args) == 0 {
				printlnFn("Usage: resume <id>")
				continue
			}
			_ = a.Resume(ctx, args[0])

		case "cancel":
			if len(args) == 0 {
				printlnFn("Usage: cancel <id>")
				continue
			}
			_ = a.Cancel(ctx, args[0])

		case "sync":
			_ = a.Sync(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
