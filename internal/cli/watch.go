package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/buildflow/internal/mq"
	"github.com/shaiso/buildflow/internal/telemetry"
)

// NewWatchCmd создаёт команду наблюдения за событиями сборок.
func NewWatchCmd(app *App) *cobra.Command {
	var filter string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream pipeline events from RabbitMQ",
		Long: "Stream pipeline events from RabbitMQ.\n\n" +
			"--filter takes a routing key pattern: run.*, task.finished, # (all).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := app.Logger

			conn, err := app.events(ctx, "buildflow-watch", true)
			if err != nil {
				return err
			}
			defer conn.Close()

			metrics := telemetry.NewMetrics()
			if metricsAddr != "" {
				stop := serveMetrics(ctx, app, metrics, metricsAddr)
				defer stop()
			}

			out := app.output()
			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Declare: mq.WatchQueue(mq.RoutingKey(filter)),
				Handler: eventHandler(out, metrics),
			})

			logger.Info("watching pipeline events", "exchange", mq.ExchangeEvents, "filter", filter)
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", string(mq.RoutingKeyAll), "Routing key pattern")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve event metrics on this address (e.g. :9102)")

	return cmd
}

// eventHandler печатает событие и учитывает его в метриках.
func eventHandler(out *Output, metrics *telemetry.Metrics) mq.Handler {
	return func(ctx context.Context, msg *mq.Message) error {
		line, status, err := formatEvent(msg)
		if err != nil {
			return err
		}
		metrics.ObserveEvent(string(msg.Type), status)

		if out.jsonMode {
			out.JSON(msg)
			return nil
		}
		out.Line("%s", line)
		return nil
	}
}

// formatEvent возвращает строку для вывода и статус из payload события.
func formatEvent(msg *mq.Message) (string, string, error) {
	ts := msg.Timestamp.Local().Format(time.TimeOnly)

	switch msg.Type {
	case mq.MessageTypeRunStarted, mq.MessageTypeRunFinished:
		p, err := mq.ParsePayload[mq.RunPayload](msg)
		if err != nil {
			return "", "", err
		}
		line := fmt.Sprintf("%s %-13s run=%s target=%s status=%s", ts, msg.Type, p.RunID, p.Target, p.Status)
		if p.FailedTask != "" {
			line += " failed_task=" + p.FailedTask
		}
		if p.Error != "" {
			line += fmt.Sprintf(" error=%q", p.Error)
		}
		if msg.Type == mq.MessageTypeRunFinished {
			line += " duration=" + formatDuration(time.Duration(p.DurationMs)*time.Millisecond)
		}
		return line, p.Status, nil

	case mq.MessageTypeTaskFinished:
		p, err := mq.ParsePayload[mq.TaskPayload](msg)
		if err != nil {
			return "", "", err
		}
		line := fmt.Sprintf("%s %-13s run=%s task=%s status=%s duration=%s",
			ts, msg.Type, p.RunID, p.Task, p.Status,
			formatDuration(time.Duration(p.DurationMs)*time.Millisecond))
		if note := strings.TrimSpace(p.Error + p.SkipReason); note != "" {
			line += fmt.Sprintf(" note=%q", note)
		}
		return line, p.Status, nil

	default:
		return "", "", fmt.Errorf("unknown event type %q", msg.Type)
	}
}

// serveMetrics поднимает HTTP сервер с /metrics и /healthz.
// Возвращает функцию остановки.
func serveMetrics(ctx context.Context, app *App, metrics *telemetry.Metrics, addr string) func() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		app.Logger.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("metrics server error", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}
}
