package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cleitonmarx/teardown"
	"github.com/cleitonmarx/teardown/introspection"
	"github.com/cleitonmarx/teardown/introspection/mermaid"
	"github.com/cleitonmarx/teardown/phase"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

const stopServerPhase = "stop-graph-server"

func newGraphCommand() *cobra.Command {
	var (
		serveAddr string
		title     string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the phase dependency graph as Mermaid",
		Long: `Render the phase dependency graph as Mermaid.

Without --serve the graph source is printed. With --serve an HTML page rendering
the graph is served at "/" and the JSON report at "/report.json" until the process
receives SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, log, err := setup(cmd)
			if err != nil {
				return err
			}
			report, err := newCoordinator(doc).Report()
			if err != nil {
				return err
			}

			if serveAddr == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), mermaid.GeneratePhaseGraph(report))
				return err
			}

			lis, err := net.Listen("tcp", serveAddr)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "serving phase graph on http://%s/\n", lis.Addr())
			return serveGraph(cmd, log, lis, title, report)
		},
	}
	cmd.Flags().StringVar(&serveAddr, "serve", "", "serve the graph over HTTP on this address, e.g. localhost:8080")
	cmd.Flags().StringVar(&title, "title", "teardown", "title of the served graph page")
	return cmd
}

// serveGraph serves the graph page on lis until a termination signal arrives or the
// command context ends. The server itself is stopped by a one-phase coordinator.
func serveGraph(cmd *cobra.Command, log logr.Logger, lis net.Listener, title string, report introspection.Report) error {
	mux := http.NewServeMux()
	mux.Handle("/", mermaid.NewGraphHandler(title, report))
	mux.Handle("/report.json", mermaid.NewReportHandler(report))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	td := teardown.New(phase.Set{
		stopServerPhase: {Timeout: 5 * time.Second, Recover: false},
	}, teardown.WithLogger(log))
	td.AddTask(stopServerPhase, "http-server", srv.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stopped := make(chan error, 1)
	go func() {
		stopped <- td.ListenForSignals(commandContext(cmd))
	}()

	select {
	case err := <-stopped:
		return err
	case err, ok := <-serveErr:
		if !ok {
			return <-stopped
		}
		return err
	}
}
