// Command stride is the coordination client for the training-analytics
// backend: it resolves the active identity, triggers a remote sync job,
// watches it to a terminal state, and prints the resulting history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stride/config"
	"stride/internal/domain/service"
	"stride/internal/infra/cache"
	"stride/internal/infra/clock"
	"stride/internal/infra/gateway"
	"stride/internal/infra/identity"
	logs "stride/internal/infra/log"
	"stride/internal/usecase"
	"stride/internal/usecase/impl"

	"go.uber.org/fx"
)

type options struct {
	email     string
	password  string
	sync      bool
	endpoints string
	history   int
}

func main() {
	opts := &options{}
	flag.StringVar(&opts.email, "email", "", "log in with this email (requires -password)")
	flag.StringVar(&opts.password, "password", "", "password for -email")
	flag.BoolVar(&opts.sync, "sync", true, "trigger a sync run and watch it to completion")
	flag.StringVar(&opts.endpoints, "endpoints", "", "comma-separated endpoint scope for the sync run")
	flag.IntVar(&opts.history, "history", 5, "number of past sync records to print")
	flag.Parse()

	fx.New(
		injectInfra(),
		injectService(),
		injectUsecase(),
		fx.Supply(opts),
		fx.Invoke(
			run,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		clock.NewSystem,
		gateway.New,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			cache.NewBus,
			cache.NewSyncNotifier,
			identity.NewProvider,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAuthService,
			impl.NewSyncService,
			impl.NewWatchService,
		),
	)
}

type runParams struct {
	fx.In
	fx.Lifecycle

	Ctx        context.Context
	Opts       *options
	Logger     *slog.Logger
	Client     *gateway.Client
	Bus        service.InvalidationBus
	Auth       usecase.AuthUsecase
	Syncs      usecase.SyncUsecase
	Watcher    usecase.SyncWatchUsecase
	Shutdowner fx.Shutdowner
}

func run(params runParams) {
	params.Client.SetUnauthorizedHandler(func(rawURL string) {
		params.Logger.Warn("Session rejected, log in again with -email/-password",
			slog.String("url", rawURL),
		)
	})

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := workflow(params.Ctx, params); err != nil {
					params.Logger.Error("Workflow failed", slog.Any("error", err))
					_ = params.Shutdowner.Shutdown(fx.ExitCode(1))

					return
				}
				_ = params.Shutdowner.Shutdown()
			}()

			return nil
		},
	})
}

func workflow(ctx context.Context, params runParams) error {
	session := params.Auth.Resolve(ctx)
	if session.IsAuthenticated() {
		fmt.Printf("signed in as %s (%s mode)\n", session.User.Email, session.Mode)
	} else {
		fmt.Printf("anonymous (%s mode)\n", session.Mode)
	}

	if params.Opts.email != "" {
		out, err := params.Auth.Login(ctx, usecase.LoginInput{
			Email:    params.Opts.email,
			Password: params.Opts.password,
		})
		if err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", out.User.Email)
	}

	conn, err := params.Syncs.Connection(ctx)
	if err != nil {
		params.Logger.Warn("Connection check failed", slog.Any("error", err))
	} else {
		fmt.Printf("provider %s connected=%v\n", conn.Provider, conn.Connected)
	}

	if params.Opts.sync {
		if err := runAndWatch(ctx, params); err != nil {
			return err
		}
	}

	return printHistory(ctx, params)
}

func runAndWatch(ctx context.Context, params runParams) error {
	input := usecase.RunSyncInput{}
	if params.Opts.endpoints != "" {
		input.Endpoints = strings.Split(params.Opts.endpoints, ",")
	}

	out, err := params.Syncs.Run(ctx, input)
	if err != nil {
		return err
	}
	fmt.Printf("sync started: %s (%s)\n", out.Message, strings.Join(out.Endpoints, ", "))

	done := make(chan struct{})
	params.Watcher.SetHooks(usecase.TerminalHooks{
		OnComplete: func() {
			fmt.Println("sync completed")
			close(done)
		},
		OnError: func(message string) {
			fmt.Fprintf(os.Stderr, "sync failed: %s\n", message)
			close(done)
		},
		OnTimeout: func() {
			fmt.Fprintln(os.Stderr, "sync still running remotely, stopped waiting")
			close(done)
		},
	})

	if err := params.Watcher.Start(ctx); err != nil {
		return err
	}

	select {
	case <-done:
	case <-ctx.Done():
		params.Watcher.Stop()

		return ctx.Err()
	}

	return nil
}

func printHistory(ctx context.Context, params runParams) error {
	if params.Opts.history <= 0 {
		return nil
	}

	history, err := params.Syncs.History(ctx, usecase.HistoryParams{Page: 1, PerPage: params.Opts.history})
	if err != nil {
		return err
	}
	params.Bus.MarkFetched(service.CacheKeySyncHistory)

	fmt.Printf("last %d of %d sync runs:\n", len(history.Records), history.Total)
	for _, record := range history.Records {
		line := fmt.Sprintf("  %s  %s  %s", record.StartedAt.Format("2006-01-02 15:04:05"), record.Status, strings.Join(record.Endpoints, ","))
		if record.Error != "" {
			line += "  " + record.Error
		}
		fmt.Println(line)
	}

	return nil
}
