// Command cplexgen generates the raw CPLEX cgo bindings for package cplex.
//
// It is run through go generate from the package directory:
//
//	go generate -tags cplex ./cplex
//
// Exit codes: 0 on success, 1 when generation fails, 2 on usage errors.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/bartolsthoorn/gocplex/internal/bridgegen"
	"github.com/bartolsthoorn/gocplex/internal/logging"
)

// ExitError carries the process exit code for a failed run.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

type options struct {
	config     string
	out        string
	envFile    string
	rootGlob   string
	goos       string
	goarch     string
	strict     bool
	logLevel   string
	logFile    string
	noManifest bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Environ()))
}

func run(args []string, stdout, stderr io.Writer, environ []string) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(stderr, "cplexgen:", exitErr.Message)
			}
			return exitErr.Code
		}
		fmt.Fprintln(stderr, "cplexgen:", err)
		return 2
	}

	log, err := logging.New(logging.Options{Level: opts.logLevel, File: opts.logFile, Console: stderr})
	if err != nil {
		fmt.Fprintln(stderr, "cplexgen:", err)
		return 2
	}
	defer log.Sync()

	environ, err = withDotEnv(environ, opts.envFile)
	if err != nil {
		log.Error("cannot load env file", zap.String("path", opts.envFile), zap.Error(err))
		return 1
	}

	target := bridgegen.HostTarget(environ)
	if opts.goos != "" {
		target.GOOS = opts.goos
	}
	if opts.goarch != "" {
		target.GOARCH = opts.goarch
	}

	rep := newReport(stdout)
	rep.header("cplexgen " + target.String())

	cfg, err := bridgegen.LoadConfig(opts.config, target, environ)
	if err != nil {
		rep.step("config", stepFailed, opts.config, err)
		rep.summary()
		return 1
	}
	if opts.rootGlob != "" {
		cfg.Discovery.RootGlob = opts.rootGlob
	}
	rep.step("config", stepPassed,
		fmt.Sprintf("%s (%d types, %d functions)", opts.config, len(cfg.Whitelist.Types), len(cfg.Whitelist.Functions)), nil)

	res, err := bridgegen.Generate(cfg, bridgegen.Options{
		Logger:     log,
		OutDir:     outDir(opts.out, environ),
		Target:     target,
		Strict:     opts.strict,
		NoManifest: opts.noManifest,
	})
	reportResult(rep, res, err, opts.strict)
	rep.summary()

	if err != nil {
		log.Error("generation failed", zap.Error(err))
		return 1
	}
	return 0
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("cplexgen", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
cplexgen - generate whitelisted CPLEX cgo bindings.

Usage:
  cplexgen [options]

Options:
`)
		fs.PrintDefaults()
	}

	opts := &options{}
	fs.StringVar(&opts.config, "config", "bridge.hcl", "Path to the whitelist file.")
	fs.StringVar(&opts.out, "out", "", "Output directory. Defaults to $CPLEXGEN_OUT_DIR, then the working directory.")
	fs.StringVar(&opts.envFile, "env-file", ".env", "Optional dotenv file merged into the environment.")
	fs.StringVar(&opts.rootGlob, "root-glob", "", "Override the installation root glob from the whitelist file.")
	fs.StringVar(&opts.goos, "goos", "", "Target GOOS. Defaults to $GOOS, then the host.")
	fs.StringVar(&opts.goarch, "goarch", "", "Target GOARCH. Defaults to $GOARCH, then the host.")
	fs.BoolVar(&opts.strict, "strict", false, "Fail when no installation or library file is found.")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error.")
	fs.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file, with rotation.")
	fs.BoolVar(&opts.noManifest, "no-manifest", false, "Do not write the link manifest.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, &ExitError{Code: 0}
		}
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() > 0 {
		return nil, &ExitError{Code: 2, Message: "unexpected arguments: " + strings.Join(fs.Args(), " ")}
	}
	if opts.config == "" {
		return nil, &ExitError{Code: 2, Message: "-config must not be empty"}
	}
	return opts, nil
}

// withDotEnv appends variables from path that environ does not already set.
// A missing file is not an error.
func withDotEnv(environ []string, path string) ([]string, error) {
	if path == "" {
		return environ, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return environ, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(environ))
	for _, kv := range environ {
		k, _, _ := strings.Cut(kv, "=")
		set[k] = true
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if !set[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	out := slices.Clip(environ)
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out, nil
}

func outDir(flagValue string, environ []string) string {
	if flagValue != "" {
		return flagValue
	}
	for _, kv := range environ {
		if v, ok := strings.CutPrefix(kv, "CPLEXGEN_OUT_DIR="); ok && v != "" {
			return v
		}
	}
	return "."
}
