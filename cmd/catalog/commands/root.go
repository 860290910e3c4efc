package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/catalog-browser/internal/domain/catalog"
	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/internal/productapi"
)

// errFailed is returned when the command ended in an Error state.
var errFailed = errors.New("load failed")

// options holds the global flags and the dependencies built from them.
type options struct {
	baseURL string
	timeout time.Duration
	demo    bool
	verbose bool

	lg    *zap.Logger
	store *catalog.Store
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errFailed) {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Browse the product catalog from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "https://dummyjson.com/", "catalog API base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	root.PersistentFlags().BoolVar(&opts.demo, "demo", false, "use the built-in demo catalog")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log repository and store activity")

	root.AddCommand(listCmd(opts), showCmd(opts))
	return root
}

func (o *options) setup() error {
	o.lg = zap.NewNop()
	if o.verbose {
		lg, err := zap.NewDevelopment()
		if err != nil {
			return errors.Wrap(err, "create logger")
		}
		o.lg = lg
	}

	svc, err := o.service()
	if err != nil {
		return err
	}

	repo := catalog.NewRepository(svc, o.lg.Named("repository"), tracenoop.NewTracerProvider())
	store, err := catalog.NewStore(repo, o.lg.Named("store"), metricnoop.NewMeterProvider())
	if err != nil {
		return errors.Wrap(err, "create store")
	}
	o.store = store
	return nil
}

func (o *options) service() (product.Service, error) {
	if o.demo {
		return productapi.NewDemo(), nil
	}
	client, err := productapi.NewClient(productapi.Config{
		BaseURL:   o.baseURL,
		Timeout:   o.timeout,
		UserAgent: "catalog-cli/1.0",
	})
	if err != nil {
		return nil, errors.Wrap(err, "create catalog client")
	}
	return client, nil
}

// teardown cancels in-flight loads and flushes the logger. Subcommands defer
// it because cobra skips post-run hooks when RunE fails.
func (o *options) teardown() {
	if o.store != nil {
		o.store.Close()
	}
	if o.lg != nil {
		_ = o.lg.Sync()
	}
}

// follow prints every state from states until a terminal one arrives after
// the command was issued. Repeated Loading states are printed once.
func follow[T any](ctx context.Context, out io.Writer, states <-chan catalog.State[T], render func(io.Writer, catalog.State[T])) error {
	var last *catalog.Status
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-states:
			if !ok {
				return ctx.Err()
			}
			if last != nil && *last == s.Status && s.IsLoading() {
				continue
			}
			status := s.Status
			last = &status

			render(out, s)
			if s.IsError() {
				return errors.Errorf("%w: %s", errFailed, s.Message)
			}
			if s.Terminal() {
				return nil
			}
		}
	}
}
