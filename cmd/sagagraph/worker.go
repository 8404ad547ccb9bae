package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dd0wney/saga-graph/pkg/logging"
	"github.com/dd0wney/saga-graph/pkg/simhost"
)

func newWorkerCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a simulation worker for hosts configured with spawn_worker: false",
		Long: `Runs the background side of the simulation protocol on a mangos PAIR
socket. Point host.worker_address of the serving process at the same address.
A worker holds one graph for one peer, so that process needs max_sessions: 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = a.cfg.Viewer.Host.WorkerAddress
			}
			if listen == "" {
				return errors.New("no listen address: pass --listen or set host.worker_address")
			}
			w, err := simhost.NewWorker(a.cfg.Viewer.Host, a.logger, a.metrics)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := w.Listen(listen); err != nil {
				return err
			}
			err = w.Serve(cmd.Context())
			a.logger.Info("worker stopped", logging.String("address", listen))
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "mangos address, e.g. tcp://127.0.0.1:7070")
	return cmd
}
