package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/1broseidon/traytile/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "items":
		os.Exit(runItems(os.Args[2:]))
	case "refresh":
		os.Exit(runRefresh(os.Args[2:]))
	case "move":
		os.Exit(runMove(os.Args[2:]))
	case "click":
		os.Exit(runClick(os.Args[2:], false))
	case "show":
		os.Exit(runClick(os.Args[2:], true))
	case "rehide":
		os.Exit(runRehide(os.Args[2:]))
	case "forget":
		os.Exit(runForget(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: traytile <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the traytile daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  items               List cached tray items")
	fmt.Fprintln(w, "  refresh             Re-read the tray and rebuild the cache")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  move                Move an item into a section or next to another item")
	fmt.Fprintln(w, "  click               Click an item")
	fmt.Fprintln(w, "  show                Temporarily show a hidden item and click it")
	fmt.Fprintln(w, "  rehide              Return temporarily shown items")
	fmt.Fprintln(w, "  forget              Drop an item from the temporarily shown list")
	fmt.Fprintln(w, "  reload              Reload the daemon configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Items are named by tag: <namespace>:<title>, as printed by 'traytile items'.")
	fmt.Fprintln(w, "Run 'traytile <command> --help' for command-specific options.")
}

// newFlagSet builds a flag set with the usage text used by every command.
func newFlagSet(name, usage, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: traytile %s\n", usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, summary)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags returns the exit code to use when parsing stops the command.
func parseFlags(fs *flag.FlagSet, args []string, nargs int) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	if nargs >= 0 && fs.NArg() != nargs {
		fmt.Fprintf(os.Stderr, "%s takes %d argument(s)\n", fs.Name(), nargs)
		fs.Usage()
		return 2, false
	}
	return 0, true
}

// report prints err and returns the exit code for it.
func report(err error) int {
	if err == nil {
		return 0
	}
	var re *ipc.RemoteError
	if errors.As(err, &re) && re.Code != "" {
		fmt.Fprintf(os.Stderr, "%s [%s]\n", re.Message, re.Code)
		return 1
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "status", "Show daemon status via IPC.")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		return report(err)
	}
	fmt.Printf("daemon_running:  %v\n", status.DaemonRunning)
	fmt.Printf("uptime_seconds:  %d\n", status.UptimeSeconds)
	fmt.Printf("display_id:      %d\n", status.DisplayID)
	fmt.Printf("visible:         %d\n", status.ItemCounts.Visible)
	fmt.Printf("hidden:          %d\n", status.ItemCounts.Hidden)
	fmt.Printf("always_hidden:   %d\n", status.ItemCounts.AlwaysHidden)
	if len(status.TempShown) > 0 {
		fmt.Printf("temp_shown:      %s\n", strings.Join(status.TempShown, ", "))
	}
	return 0
}

func runItems(args []string) int {
	fs := newFlagSet("items", "items [--section NAME] [--control]", "List cached tray items left to right.")
	section := fs.String("section", "", "Only list items in this section")
	control := fs.Bool("control", false, "Include the section marker items")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	data, err := ipc.NewClient().ListItems()
	if err != nil {
		return report(err)
	}
	items := filterItems(data.Items, *section, *control)
	writeItems(os.Stdout, items, term.IsTerminal(int(os.Stdout.Fd())))
	return 0
}

func filterItems(items []ipc.ItemInfo, section string, control bool) []ipc.ItemInfo {
	out := make([]ipc.ItemInfo, 0, len(items))
	for _, item := range items {
		if item.Control && !control {
			continue
		}
		if section != "" && !strings.EqualFold(item.Section, section) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// writeItems prints an aligned table for terminals and tab-separated rows
// otherwise.
func writeItems(w io.Writer, items []ipc.ItemInfo, pretty bool) {
	if !pretty {
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d,%d\n", item.Section, item.Tag, item.OwnerPID, item.X, item.Y)
		}
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tTAG\tPID\tPOSITION\tFLAGS")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d,%d\t%s\n", item.Section, item.Tag, item.OwnerPID, item.X, item.Y, itemFlags(item))
	}
	tw.Flush()
}

func itemFlags(item ipc.ItemInfo) string {
	var flags []string
	if !item.OnScreen {
		flags = append(flags, "offscreen")
	}
	if !item.Movable {
		flags = append(flags, "fixed")
	}
	if !item.CanBeHidden {
		flags = append(flags, "pinned")
	}
	if item.Control {
		flags = append(flags, "control")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}

func runRefresh(args []string) int {
	fs := newFlagSet("refresh", "refresh [--force]", "Re-read the tray and rebuild the item cache if it changed.")
	force := fs.Bool("force", false, "Rebuild even if the item order is unchanged")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}

	data, err := ipc.NewClient().Refresh(*force)
	if err != nil {
		return report(err)
	}
	if data.Refreshed {
		fmt.Println("refreshed")
	} else {
		fmt.Println("unchanged")
	}
	return 0
}

func runMove(args []string) int {
	fs := newFlagSet("move",
		"move <tag> (--section NAME | --left-of TAG | --right-of TAG)",
		"Move an item into a section or next to another item.")
	section := fs.String("section", "", "Destination section: visible, hidden or always-hidden")
	leftOf := fs.String("left-of", "", "Move immediately left of this item")
	rightOf := fs.String("right-of", "", "Move immediately right of this item")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}

	payload, err := movePayload(fs.Arg(0), *section, *leftOf, *rightOf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}
	return report(ipc.NewClient().MoveItem(payload))
}

func movePayload(tag, section, leftOf, rightOf string) (ipc.MoveItemPayload, error) {
	p := ipc.MoveItemPayload{Tag: tag}
	set := 0
	if section != "" {
		p.Section = section
		set++
	}
	if leftOf != "" {
		p.Target, p.Direction = leftOf, "left"
		set++
	}
	if rightOf != "" {
		p.Target, p.Direction = rightOf, "right"
		set++
	}
	if set != 1 {
		return ipc.MoveItemPayload{}, fmt.Errorf("exactly one of --section, --left-of and --right-of is required")
	}
	return p, nil
}

func runClick(args []string, show bool) int {
	name, summary := "click", "Click an on-screen item."
	if show {
		name, summary = "show", "Temporarily show a hidden item and click it."
	}
	fs := newFlagSet(name, name+" [--button left|right|center] <tag>", summary)
	button := fs.String("button", "left", "Mouse button")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}

	client := ipc.NewClient()
	if show {
		return report(client.TempShow(fs.Arg(0), *button))
	}
	return report(client.ClickItem(fs.Arg(0), *button))
}

func runRehide(args []string) int {
	fs := newFlagSet("rehide", "rehide", "Return every temporarily shown item now.")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}
	return report(ipc.NewClient().Rehide())
}

func runForget(args []string) int {
	fs := newFlagSet("forget", "forget <tag>", "Stop tracking a temporarily shown item without moving it.")
	if code, ok := parseFlags(fs, args, 1); !ok {
		return code
	}
	return report(ipc.NewClient().ForgetTemp(fs.Arg(0)))
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "reload", "Ask the daemon to reload its configuration.")
	if code, ok := parseFlags(fs, args, 0); !ok {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		return report(err)
	}
	fmt.Println("config reloaded")
	return 0
}
