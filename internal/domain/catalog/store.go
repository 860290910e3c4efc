package catalog

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/pkg/observable"
)

const (
	emptyCatalogMessage = "No products available. Check your internet connection."
	fallbackMessage     = "An unexpected error occurred"
)

// ErrEmptyCatalog is the error reported when the list call succeeds with
// zero products.
var ErrEmptyCatalog = errors.New(emptyCatalogMessage)

// Store holds the product list and product detail states and the two
// commands that drive them.
//
// Each state slot starts as Loading. A command sets its slot to Loading
// synchronously, performs the repository call on a new goroutine and then
// sets Success or Error. Issuing a command while a previous one for the
// same slot is in flight cancels the previous call; its completion is
// discarded, so the slot always ends with the result of the latest command.
//
// Subscribers are notified on the goroutine that performs the transition and
// must not issue commands synchronously from their callbacks.
type Store struct {
	repo    Repository
	lg      *zap.Logger
	metrics storeMetrics

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex // protects closed and wg.Add
	closed bool
	wg     sync.WaitGroup

	list   *slot[[]product.Product]
	detail *slot[product.Product]
}

// NewStore creates a Store backed by repo. Both slots start as Loading.
func NewStore(repo Repository, lg *zap.Logger, mp metric.MeterProvider) (*Store, error) {
	metrics, err := newStoreMetrics(mp)
	if err != nil {
		return nil, errors.Wrap(err, "create store metrics")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		repo:    repo,
		lg:      lg,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
		list:    newSlot[[]product.Product]("list"),
		detail:  newSlot[product.Product]("detail"),
	}, nil
}

// ListState returns the observable product list state.
func (s *Store) ListState() observable.Source[ListState] {
	return s.list.value
}

// DetailState returns the observable product detail state.
func (s *Store) DetailState() observable.Source[DetailState] {
	return s.detail.value
}

// LoadList reloads the product list. It returns immediately.
func (s *Store) LoadList() {
	load(s, s.list, func(ctx context.Context) (ListState, error) {
		products, err := s.repo.GetProducts(ctx)
		if err != nil {
			return failedState[[]product.Product](err), err
		}
		if len(products) == 0 {
			return failedState[[]product.Product](ErrEmptyCatalog), nil
		}
		return Success(products), nil
	})
}

// LoadDetail loads the product with the given id. It returns immediately.
func (s *Store) LoadDetail(id int64) {
	load(s, s.detail, func(ctx context.Context) (DetailState, error) {
		p, err := s.repo.GetProductByID(ctx, id)
		if err != nil {
			return failedState[product.Product](err), err
		}
		return Success(p), nil
	})
}

// Close cancels in-flight commands and waits for them to return. Commands
// issued after Close are ignored. Close is safe to call more than once.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

// load runs one command against sl.
func load[T any](s *Store, sl *slot[T], run func(ctx context.Context) (State[T], error)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	ctx, gen := sl.begin(s.ctx)
	s.metrics.transition(sl.name, StatusLoading)

	go func() {
		defer s.wg.Done()

		state, err := run(ctx)
		if err != nil && ctx.Err() != nil {
			// Cancelled by a newer command or by Close.
			sl.release(gen)
			s.metrics.discard(sl.name)
			s.lg.Debug("Discarded cancelled load", zap.String("slot", sl.name), zap.Uint64("generation", gen))
			return
		}
		if !sl.finish(gen, state) {
			s.metrics.discard(sl.name)
			s.lg.Debug("Discarded stale load", zap.String("slot", sl.name), zap.Uint64("generation", gen))
			return
		}
		s.metrics.transition(sl.name, state.Status)
	}()
}

func failedState[T any](err error) State[T] {
	msg := err.Error()
	if msg == "" {
		msg = fallbackMessage
	}
	return Failed[T](msg, product.StatusCode(err))
}

// slot is one independently observable state plus the handle of the command
// currently allowed to write it.
type slot[T any] struct {
	name  string
	value *observable.Value[State[T]]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func newSlot[T any](name string) *slot[T] {
	return &slot[T]{
		name:  name,
		value: observable.New(Loading[T]()),
	}
}

// begin supersedes the current command, publishes Loading and returns the
// context and generation of the new command.
func (sl *slot[T]) begin(parent context.Context) (context.Context, uint64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.cancel != nil {
		sl.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	sl.gen++
	sl.cancel = cancel

	sl.value.Set(Loading[T]())
	return ctx, sl.gen
}

// finish publishes state if gen is still the latest command.
func (sl *slot[T]) finish(gen uint64, state State[T]) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if gen != sl.gen {
		return false
	}
	sl.cancel()
	sl.cancel = nil

	sl.value.Set(state)
	return true
}

// release drops the handle of gen without publishing anything.
func (sl *slot[T]) release(gen uint64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if gen == sl.gen && sl.cancel != nil {
		sl.cancel()
		sl.cancel = nil
	}
}

type storeMetrics struct {
	transitions metric.Int64Counter
	discarded   metric.Int64Counter
}

func newStoreMetrics(mp metric.MeterProvider) (storeMetrics, error) {
	meter := mp.Meter("github.com/xenking/catalog-browser/internal/domain/catalog")

	transitions, err := meter.Int64Counter("catalog.store.transitions",
		metric.WithDescription("State transitions published by the catalog store"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return storeMetrics{}, errors.Wrap(err, "transitions counter")
	}

	discarded, err := meter.Int64Counter("catalog.store.stale_discarded",
		metric.WithDescription("Command completions dropped because a newer command superseded them"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return storeMetrics{}, errors.Wrap(err, "discarded counter")
	}

	return storeMetrics{transitions: transitions, discarded: discarded}, nil
}

func (m storeMetrics) transition(slot string, status Status) {
	m.transitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("slot", slot),
		attribute.String("state", status.String()),
	))
}

func (m storeMetrics) discard(slot string) {
	m.discarded.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("slot", slot),
	))
}
