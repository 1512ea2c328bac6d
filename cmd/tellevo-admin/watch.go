package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tellevo/tellevo-sdk-go/tellevo"
)

// errStreamStopped is returned by watch when the client gives up or the
// server closes the feed.
var errStreamStopped = errors.New("stream disconnected")

func newWatchCommand(a *app) *cobra.Command {
	var (
		url       string
		asJSON    bool
		maxEvents int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print live ventas events",
		Long: `Connect to the ventas websocket feed and print every event until
interrupted. The URL is resolved from TELLEVO_BACKEND_HOST, TELLEVO_BACKEND_PORT,
TELLEVO_PAGE_ORIGIN and TELLEVO_ENV unless --url is given.`,
		Example: `  tellevo-admin watch
  TELLEVO_ENV=development TELLEVO_BACKEND_HOST=localhost tellevo-admin watch --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := url
			if target == "" {
				resolved, err := a.cfg.StreamURL()
				if err != nil {
					return fmt.Errorf("resolve stream url: %w", err)
				}
				target = resolved
			}

			client, err := tellevo.NewClient(a.cfg.ClientConfig(target))
			if err != nil {
				return err
			}
			client.SetLogger(tellevo.NewSlogLogger(a.logger))

			events := make(chan tellevo.StreamEvent, 256)
			stopped := make(chan struct{}, 1)
			client.OnData(func(ev tellevo.StreamEvent) {
				select {
				case events <- ev:
				default:
					a.logger.Warn("printer is behind, dropping event", "id", ev.ID)
				}
			})
			client.OnStatus(func(ev tellevo.StatusEvent) {
				a.logger.Info("stream status", "from", ev.OldState, "to", ev.NewState, "attempt", ev.Attempt)
				if ev.NewState == tellevo.StateDisconnected {
					select {
					case stopped <- struct{}{}:
					default:
					}
				}
			})
			client.OnError(func(err error) {
				a.logger.Warn("stream error", "error", err)
			})

			a.logger.Info("connecting", "url", target)
			client.Connect()
			defer client.Disconnect()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			printed := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-stopped:
					for {
						select {
						case ev := <-events:
							if err := printEvent(out, ev, asJSON); err != nil {
								return err
							}
						default:
							return errStreamStopped
						}
					}
				case ev := <-events:
					if err := printEvent(out, ev, asJSON); err != nil {
						return err
					}
					printed++
					if maxEvents > 0 && printed >= maxEvents {
						return nil
					}
				}
			}
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Websocket URL, overrides endpoint resolution")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print events as JSON lines")
	cmd.Flags().IntVar(&maxEvents, "max-events", 0, "Exit after this many events (0 = unlimited)")

	return cmd
}

func printEvent(w io.Writer, ev tellevo.StreamEvent, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(ev)
	}
	_, err := fmt.Fprintf(w, "%s  #%d  %s  %s\n", ev.SentAt.Format(time.DateTime), ev.ID, ev.CompanyName, ev.Email)
	return err
}
