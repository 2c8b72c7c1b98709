// Command mindmap is a headless editor for the mind-map diagram service.
//
// Every invocation restores the diagram being edited from the device
// snapshot, applies one command, and writes pending edits back before
// exiting, so a sequence of commands behaves like one editing session.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"

	"github.com/mindmapapp/mindmap/internal/config"
)

const version = "1.0.0"

const usage = `Mind map editor.

Edits are kept on this device between commands. Use "save" to store the
diagram on the server.

Usage:
    mindmap login <email> [--password=<password>]
    mindmap register <nombre> <email> [--password=<password>]
    mindmap logout
    mindmap whoami
    mindmap profile [--name=<name>] [--password=<password>]
    mindmap status
    mindmap show
    mindmap add-node [<label>] [--at=<x,y>]
    mindmap add-image-node <url> [<label>]
    mindmap set-image <node> <url>
    mindmap relabel <node> <label>
    mindmap relabel-edge <edge> [<label>]
    mindmap move <node> <x> <y>
    mindmap connect <source> <target>
    mindmap delete-node <node>
    mindmap delete-edge <edge>
    mindmap title [<title>]
    mindmap save [<title>]
    mindmap open <id> [--save | --discard]
    mindmap new [--save | --discard]
    mindmap list [--filter=<text>]
    mindmap search <query>
    mindmap delete <id> [--yes]
    mindmap export <format> [--out=<path>]
    mindmap import <path>
    mindmap goto <destination> [--save | --discard]
    mindmap watch
    mindmap -h | --help
    mindmap --version

Options:
    -h --help              Show this screen.
    --version              Show version.
    --password=<password>  Password. Read from standard input when omitted.
    --name=<name>          New display name.
    --at=<x,y>             Canvas position of the new node.
    --save                 Save unsaved changes before leaving the diagram.
    --discard              Leave the diagram without saving.
    --filter=<text>        Only list titles containing text.
    --out=<path>           Output file, "-" for standard output.
    --yes                  Do not ask for confirmation.`

type handler func(a *app, ctx context.Context, opts docopt.Opts) error

var commands = []struct {
	name string
	run  handler
}{
	{"login", (*app).login},
	{"register", (*app).register},
	{"logout", (*app).logout},
	{"whoami", (*app).whoami},
	{"profile", (*app).profile},
	{"status", (*app).status},
	{"show", (*app).show},
	{"add-node", (*app).addNode},
	{"add-image-node", (*app).addImageNode},
	{"set-image", (*app).setImage},
	{"relabel", (*app).relabel},
	{"relabel-edge", (*app).relabelEdge},
	{"move", (*app).move},
	{"connect", (*app).connect},
	{"delete-node", (*app).deleteNode},
	{"delete-edge", (*app).deleteEdge},
	{"title", (*app).title},
	{"save", (*app).save},
	{"open", (*app).open},
	{"new", (*app).newDiagram},
	{"list", (*app).list},
	{"search", (*app).search},
	{"delete", (*app).delete},
	{"export", (*app).export},
	{"import", (*app).importFile},
	{"goto", (*app).gotoDestination},
	{"watch", (*app).watch},
}

func main() {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], cfg, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code: 0 on success,
// 1 when the command failed and 2 on a usage error.
func run(ctx context.Context, args []string, cfg *config.ClientConfig, stdin io.Reader, stdout, stderr io.Writer) int {
	parser := &docopt.Parser{
		HelpHandler: func(err error, usage string) {
			if err != nil {
				fmt.Fprintln(stderr, usage)
				return
			}
			fmt.Fprintln(stdout, usage)
		},
	}
	opts, err := parser.ParseArgs(usage, args, version)
	if err != nil {
		return 2
	}

	cmd := lookup(opts)
	if cmd == nil {
		// --help or --version was printed.
		return 0
	}

	a, err := newApp(cfg, stdin, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.close()

	if err := a.start(ctx); err != nil {
		a.fail(err)
		return 1
	}
	err = cmd(a, ctx, opts)
	a.finish(ctx)
	if err != nil {
		a.fail(err)
		return 1
	}
	return 0
}

func lookup(opts docopt.Opts) handler {
	for _, c := range commands {
		if ok, _ := opts.Bool(c.name); ok {
			return c.run
		}
	}
	return nil
}
