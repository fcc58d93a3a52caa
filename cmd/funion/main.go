package main

import (
	"context"
	"fmt"
	"github.com/funvibe/funion/internal/config"
	"github.com/funvibe/funion/internal/inspect"
	"github.com/funvibe/funion/internal/journal"
	"github.com/funvibe/funion/internal/protowire"
	"github.com/funvibe/funion/internal/remote"
	"github.com/funvibe/funion/pkg/envelope"
	"github.com/funvibe/funion/pkg/schema"
	"github.com/mattn/go-isatty"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Version is the release version reported by the version command.
// Can be set at build time using: -ldflags "-X main.Version=..."
var Version = "0.1.0"

const usage = `Usage: funion <command> [arguments]

Commands:
  classify [-c config] <file>           classify records, print index and tag
  filter [-c config] <tag> <file>       keep records tagged <tag>, re-encode as JSON
  check <dir> [patterns...]             report non-exhaustive switches over sealed interfaces
  journal append [-c config] [-j db] <file>
  journal list [-c config] [-j db] [tag]
  journal verify [-c config] [-j db]
  proto [-c config] [union]             print generated proto source for a union
  serve [-c config] <addr>              serve echo handlers for every declared tag
  call [-c config] <addr> <file>        dispatch records to a running server
  version                               print version
  help                                  print this help

The union declaration is read from the -c path, or from the nearest
funion.yaml up from the working directory. When the file declares several
unions, -u <name> selects one. A <file> argument of "-" reads stdin.
`

// cmdFlags are the option flags shared by the union-driven commands.
type cmdFlags struct {
	config  string // -c: union declaration file
	union   string // -u: union name when the file declares several
	journal string // -j: journal database path
}

// parseArgs splits command arguments into recognized flags and positionals.
func parseArgs(args []string) (cmdFlags, []string, error) {
	var flags cmdFlags
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-c", "--config":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("%s requires a path", arg)
			}
			i++
			flags.config = args[i]
		case "-u", "--union":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("%s requires a union name", arg)
			}
			i++
			flags.union = args[i]
		case "-j", "--journal":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("%s requires a path", arg)
			}
			i++
			flags.journal = args[i]
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return flags, nil, fmt.Errorf("unknown flag %s", arg)
			}
			rest = append(rest, arg)
		}
	}
	return flags, rest, nil
}

// loadUnion resolves the union declaration for a command: the explicit
// config path if given, otherwise the nearest funion.yaml up from the
// working directory. With several unions declared, name selects one.
func loadUnion(configPath, name string) (*schema.Union, error) {
	if configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		found, err := schema.FindConfig(wd)
		if err != nil {
			return nil, err
		}
		if found == "" {
			return nil, fmt.Errorf("no %s found in %s or any parent (use -c)",
				config.ConfigFileNames[0], wd)
		}
		configPath = found
	}

	cfg, err := schema.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	unions, err := cfg.Compile()
	if err != nil {
		return nil, err
	}

	if name == "" {
		if len(unions) > 1 {
			names := make([]string, len(unions))
			for i, u := range unions {
				names[i] = u.Name()
			}
			return nil, fmt.Errorf("%s declares %d unions (%s); pick one with -u",
				configPath, len(unions), strings.Join(names, ", "))
		}
		return unions[0], nil
	}
	for _, u := range unions {
		if u.Name() == name {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%s: no union named %q", configPath, name)
}

func mustLoadUnion(configPath, name string) *schema.Union {
	u, err := loadUnion(configPath, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return u
}

// decodeRecords reads tagged records from path: a YAML stream for .yaml and
// .yml files, otherwise a single JSON object or a JSON array. A path of "-"
// reads stdin as JSON.
func decodeRecords(c *envelope.Codec, path string) ([]*envelope.Value, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return c.DecodeYAMLAll(data)
	}
	if isJSONArray(data) {
		return c.DecodeJSONList(data)
	}
	v, err := c.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return []*envelope.Value{v}, nil
}

// isJSONArray reports whether the document's first non-whitespace byte
// opens an array.
func isJSONArray(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b == '['
	}
	return false
}

// colorOn caches whether stdout accepts ANSI color.
var (
	colorOnce sync.Once
	colorOn   bool
)

func useColor() bool {
	colorOnce.Do(func() {
		// NO_COLOR convention: https://no-color.org/
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return
		}
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return
		}
		if os.Getenv("TERM") == "dumb" {
			return
		}
		colorOn = true
	})
	return colorOn
}

func ansiFg(colorCode int, s string) string {
	if !useColor() {
		return s
	}
	return fmt.Sprintf("\033[%dm%s\033[39m", colorCode, s)
}

func handleHelp() bool {
	if len(os.Args) < 2 {
		return false
	}
	if os.Args[1] != "help" && os.Args[1] != "-help" && os.Args[1] != "--help" {
		return false
	}
	fmt.Print(usage)
	return true
}

func handleVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	if os.Args[1] != "version" && os.Args[1] != "-version" && os.Args[1] != "--version" {
		return false
	}
	fmt.Printf("funion %s\n", Version)
	return true
}

// handleClassify decodes records from a file and prints one line per
// record: its index and its tag. A tag outside the declared set aborts
// with the offending tag named.
func handleClassify() bool {
	if len(os.Args) < 2 || os.Args[1] != "classify" {
		return false
	}

	flags, rest, err := parseArgs(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if len(rest) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s classify [-c config] <file>\n", os.Args[0])
		os.Exit(1)
	}

	u := mustLoadUnion(flags.config, flags.union)
	codec := envelope.NewCodec(u)
	values, err := decodeRecords(codec, rest[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	for i, v := range values {
		fmt.Printf("%d\t%s\n", i, ansiFg(32, v.Tag()))
	}
	return true
}

// handleFilter keeps the records tagged with the given tag, in their
// original order, re-encoded as one JSON object per line.
func handleFilter() bool {
	if len(os.Args) < 2 || os.Args[1] != "filter" {
		return false
	}

	flags, rest, err := parseArgs(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if len(rest) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s filter [-c config] <tag> <file>\n", os.Args[0])
		os.Exit(1)
	}

	u := mustLoadUnion(flags.config, flags.union)
	tag := rest[0]
	if _, err := u.VariantOf(tag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	codec := envelope.NewCodec(u)
	values, err := decodeRecords(codec, rest[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	for _, v := range envelope.Filter(values, tag) {
		out, err := codec.EncodeJSON(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	}
	return true
}

// handleCheck reports type switches over sealed interfaces that miss an
// implementer. Findings go to stdout; any finding exits nonzero.
func handleCheck() bool {
	if len(os.Args) < 2 || os.Args[1] != "check" {
		return false
	}
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s check <dir> [patterns...]\n", os.Args[0])
		os.Exit(1)
	}

	findings, err := inspect.Check(os.Args[2], os.Args[3:]...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	for _, f := range findings {
		fmt.Println(ansiFg(31, f.String()))
	}
	if len(findings) > 0 {
		os.Exit(1)
	}
	return true
}

// handleProto prints the generated proto source for a declared union.
func handleProto() bool {
	if len(os.Args) < 2 || os.Args[1] != "proto" {
		return false
	}

	flags, rest, err := parseArgs(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	name := flags.union
	if len(rest) == 1 {
		name = rest[0]
	} else if len(rest) > 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s proto [-c config] [union]\n", os.Args[0])
		os.Exit(1)
	}

	u := mustLoadUnion(flags.config, name)
	src, err := protowire.ProtoSource(u)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	fmt.Print(src)
	return true
}

// handleJournal runs the append, list, and verify subcommands against the
// journal database (-j, default funion.db).
func handleJournal() bool {
	if len(os.Args) < 2 || os.Args[1] != "journal" {
		return false
	}
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s journal <append|list|verify> ...\n", os.Args[0])
		os.Exit(1)
	}

	flags, rest, err := parseArgs(os.Args[3:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	u := mustLoadUnion(flags.config, flags.union)
	dbPath := flags.journal
	if dbPath == "" {
		dbPath = config.DefaultJournalFile
	}
	j, err := journal.Open(dbPath, u)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer j.Close()

	switch os.Args[2] {
	case "append":
		if len(rest) != 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s journal append [-c config] [-j db] <file>\n", os.Args[0])
			os.Exit(1)
		}
		codec := envelope.NewCodec(u)
		values, err := decodeRecords(codec, rest[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		for _, v := range values {
			id, err := j.Append(v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			fmt.Println(id)
		}

	case "list":
		if len(rest) > 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s journal list [-c config] [-j db] [tag]\n", os.Args[0])
			os.Exit(1)
		}
		printEntry := func(e *journal.Entry) error {
			fmt.Printf("%d\t%s\t%s\n", e.Seq, e.ID, ansiFg(32, e.Value.Tag()))
			return nil
		}
		if len(rest) == 1 {
			entries, err := j.FilterTag(rest[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			for _, e := range entries {
				printEntry(e)
			}
		} else if err := j.Scan(printEntry); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

	case "verify":
		if len(rest) != 0 {
			fmt.Fprintf(os.Stderr, "Usage: %s journal verify [-c config] [-j db]\n", os.Args[0])
			os.Exit(1)
		}
		bad, err := j.Verify()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		if len(bad) > 0 {
			for _, b := range bad {
				fmt.Println(ansiFg(31, fmt.Sprintf("%d\t%s\t%s", b.Seq, b.ID, b.Err)))
			}
			os.Exit(1)
		}
		n, err := j.Len()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		fmt.Printf("%d entries, all tags declared\n", n)

	default:
		fmt.Fprintf(os.Stderr, "Unknown journal command: %s\n", os.Args[2])
		os.Exit(1)
	}
	return true
}

// handleServe runs a dispatch server with an echo handler for every
// declared tag, so construction passes the coverage check.
func handleServe() bool {
	if len(os.Args) < 2 || os.Args[1] != "serve" {
		return false
	}

	flags, rest, err := parseArgs(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if len(rest) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s serve [-c config] <addr>\n", os.Args[0])
		os.Exit(1)
	}

	u := mustLoadUnion(flags.config, flags.union)
	handlers := make(remote.Handlers, u.Len())
	for _, tag := range u.Tags() {
		handlers[tag] = func(v *envelope.Value) (*envelope.Value, error) {
			return v, nil
		}
	}

	srv, err := remote.NewServer(u, handlers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Serving union %s on %s\n", u.Name(), rest[0])
	if err := srv.ListenAndServe(rest[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %s\n", err)
		os.Exit(1)
	}
	return true
}

// handleCall dispatches each record in the file to a running server and
// prints the replies as JSON.
func handleCall() bool {
	if len(os.Args) < 2 || os.Args[1] != "call" {
		return false
	}

	flags, rest, err := parseArgs(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if len(rest) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s call [-c config] <addr> <file>\n", os.Args[0])
		os.Exit(1)
	}

	u := mustLoadUnion(flags.config, flags.union)
	codec := envelope.NewCodec(u)
	values, err := decodeRecords(codec, rest[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	client, err := remote.Dial(rest[0], u)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, v := range values {
		reply, err := client.Dispatch(ctx, v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		out, err := codec.EncodeJSON(reply)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	}
	return true
}

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			// Print stack trace for debugging
			if os.Getenv(config.DebugEnvVar) == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if handleHelp() {
		return
	}
	if handleVersion() {
		return
	}
	if handleClassify() {
		return
	}
	if handleFilter() {
		return
	}
	if handleCheck() {
		return
	}
	if handleJournal() {
		return
	}
	if handleProto() {
		return
	}
	if handleServe() {
		return
	}
	if handleCall() {
		return
	}

	if len(os.Args) >= 2 {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
	}
	fmt.Fprint(os.Stderr, usage)
	os.Exit(1)
}
