package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
	"github.com/7blacky7/ki-browser-standalone/internal/config"
	"github.com/7blacky7/ki-browser-standalone/internal/dispatch"
	"github.com/7blacky7/ki-browser-standalone/internal/observability"
	"github.com/7blacky7/ki-browser-standalone/internal/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the browser engine with an interactive JSON console.",
	Long: `Starts the engine and reads newline-delimited JSON commands from
stdin. Each command receives exactly one JSON response on stdout; lifecycle
events are interleaved as {"event": ...} frames. The session ends on EOF,
SIGINT, or a shutdown command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.NewFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		logger := observability.GetLogger()

		svc, err := service.New(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer func() {
			// Drain with a fresh context; the signal one is already done.
			if err := svc.Stop(context.Background()); err != nil {
				logger.Warn("Shutdown incomplete", zap.Error(err))
			}
		}()

		logger.Info("Console ready",
			zap.String("engine", string(svc.Backend().Kind())),
			zap.Int("max_tabs", cfg.Browser.MaxTabs))
		return runConsole(ctx, svc.Dispatcher(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// eventFrame distinguishes broadcast events from command responses on the
// shared stdout stream.
type eventFrame struct {
	Event schemas.Event `json:"event"`
}

// runConsole pumps the line-driven command loop until the input ends, the
// context is canceled, or the dispatcher shuts down.
func runConsole(ctx context.Context, disp *dispatch.Dispatcher, in io.Reader, out io.Writer) error {
	var outMu sync.Mutex
	write := func(v interface{}) {
		outMu.Lock()
		defer outMu.Unlock()
		if b, err := json.Marshal(v); err == nil {
			fmt.Fprintln(out, string(b))
		}
	}

	events, cancelSub := disp.Subscribe()
	defer cancelSub()

	// Event frames interleave with responses; shutdown ends the pump.
	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		for ev := range events {
			write(eventFrame{Event: ev})
			if ev.Type == schemas.EventShutdown {
				return
			}
		}
	}()

	lines := make(chan string)
	readDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		// Inline screenshot payloads can be large.
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			case <-shutdown:
				return
			}
		}
		readDone <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-shutdown:
			return nil
		case err := <-readDone:
			return err
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var req schemas.CommandRequest
			if err := json.Unmarshal([]byte(line), &req); err != nil {
				write(schemas.CommandResponse{OK: false, Error: fmt.Sprintf("invalid command frame: %v", err)})
				continue
			}
			resp, err := disp.Send(ctx, req)
			write(resp)
			if errors.Is(err, dispatch.ErrChannelClosed) {
				return nil
			}
		}
	}
}
