// Command example opens a CPLEX environment and prints a greeting. It fails
// when the binary was built without the CPLEX library.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/bartolsthoorn/gocplex/cplex"
	"github.com/bartolsthoorn/gocplex/internal/logging"
)

func main() {
	logger, err := logging.New(logging.Options{Level: logLevel()})
	if err != nil {
		log.Fatal(err)
	}
	if err := runLogged(os.Stdout, logger); err != nil {
		log.Fatal(err)
	}
}

// runLogged runs the example with logger installed and flushes it before
// returning, since log.Fatal skips deferred calls.
func runLogged(w io.Writer, logger *zap.Logger) error {
	defer logger.Sync()
	cplex.SetLogger(logger)

	logger.Debug("starting", zap.String("backend", cplex.Backend()))
	return run(w)
}

func logLevel() string {
	if level := os.Getenv("CPLEX_LOG_LEVEL"); level != "" {
		return level
	}
	return "warn"
}

func run(w io.Writer) error {
	return cplex.With(func(*cplex.Env) error {
		fmt.Fprintln(w, "Opened CPLEX.")
		fmt.Fprintln(w, "Hello, world!")
		return nil
	})
}
