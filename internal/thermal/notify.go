package thermal

import (
	"fmt"
	"reflect"
	"sync"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"github.com/google/uuid"
)

// Listener receives throttling change notifications. Implementations must
// be comparable, typically a pointer, so a listener can be found again.
type Listener interface {
	NotifyThrottling(t Temperature) error
}

type registration struct {
	id       uuid.UUID
	listener Listener
	filtered bool
	typ      TemperatureType
}

func (r registration) accepts(t Temperature) bool {
	return !r.filtered || r.typ == t.Type
}

type sweep struct {
	temp    Temperature
	targets []registration
}

// Registry tracks throttling listeners and pushes notifications to them.
// Sweeps are delivered one at a time, in the order they were queued.
type Registry struct {
	mu       sync.RWMutex
	regs     []registration
	inflight sync.WaitGroup
	logger   logger.Logger

	queueMu  sync.Mutex
	queue    []sweep
	draining bool
}

// NewRegistry returns an empty registry.
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{logger: log.With("listeners")}
}

func validListener(l Listener) error {
	errFactory := errors.New()
	if l == nil {
		return errFactory.WithMessage(ErrInvalidListener, "Invalid nullptr")
	}
	if !reflect.TypeOf(l).Comparable() {
		return errFactory.WithMessage(ErrInvalidListener, "Listener type is not comparable")
	}

	return nil
}

// Register adds a listener. With filtered set, only notifications for
// sensors of type t are delivered to it.
func (r *Registry) Register(l Listener, filtered bool, t TemperatureType) (uuid.UUID, error) {
	errFactory := errors.New()
	if err := validListener(l); err != nil {
		return uuid.Nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reg := range r.regs {
		if reg.listener == l {
			return uuid.Nil, errFactory.WithMessage(ErrAlreadyRegistered, "Same callback interface registered already")
		}
	}

	reg := registration{id: uuid.New(), listener: l, filtered: filtered, typ: t}
	r.regs = append(r.regs, reg)
	listenerCount.Set(float64(len(r.regs)))

	ev := r.logger.Info().Str("id", reg.id.String()).Bool("filtered", filtered)
	if filtered {
		ev = ev.Str("type", t.String())
	}
	ev.Msg("Listener registered")

	return reg.id, nil
}

// Unregister removes a listener.
func (r *Registry) Unregister(l Listener) error {
	if err := validListener(l); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, reg := range r.regs {
		if reg.listener == l {
			r.regs = append(r.regs[:i], r.regs[i+1:]...)
			listenerCount.Set(float64(len(r.regs)))
			r.logger.Info().Str("id", reg.id.String()).Msg("Listener unregistered")
			return nil
		}
	}

	return errors.New().WithMessage(ErrNotRegistered, "Callback wasn't registered")
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.regs)
}

// NotifyThrottling queues t for every accepting listener without blocking
// the caller. A failing listener is logged and the sweep continues.
func (r *Registry) NotifyThrottling(t Temperature) {
	r.mu.RLock()
	targets := make([]registration, 0, len(r.regs))
	for _, reg := range r.regs {
		if reg.accepts(t) {
			targets = append(targets, reg)
		}
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	r.inflight.Add(1)

	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	r.queue = append(r.queue, sweep{temp: t, targets: targets})
	if !r.draining {
		r.draining = true
		go r.drain()
	}
}

// drain delivers queued sweeps until the queue is empty.
func (r *Registry) drain() {
	for {
		r.queueMu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			r.queueMu.Unlock()
			return
		}
		s := r.queue[0]
		r.queue[0] = sweep{}
		r.queue = r.queue[1:]
		r.queueMu.Unlock()

		r.deliverSweep(s)
		r.inflight.Done()
	}
}

func (r *Registry) deliverSweep(s sweep) {
	for _, reg := range s.targets {
		if err := deliver(reg.listener, s.temp); err != nil {
			notificationTotal.WithLabelValues("failed").Inc()
			r.logger.Error().
				Err(err).
				Str("id", reg.id.String()).
				Str("sensor", s.temp.Name).
				Msg("Unable to invoke listener")
			continue
		}
		notificationTotal.WithLabelValues("delivered").Inc()
	}
}

// Wait blocks until every sweep queued so far has been delivered.
func (r *Registry) Wait() {
	r.inflight.Wait()
}

// deliver calls a listener, turning a panic into an error.
func deliver(l Listener, t Temperature) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New().WithData(ErrListenerFailed, fmt.Sprint(p))
		}
	}()

	if err := l.NotifyThrottling(t); err != nil {
		return errors.New().Wrap(ErrListenerFailed, err)
	}

	return nil
}
