package autocomplete

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/lookup"
	"github.com/hyperjump/montero/pkg/utils"
)

// State is the engine's position in its search cycle.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateFilled    State = "filled"
	StateNotFound  State = "not-found"
	StateError     State = "error"
)

// Engine drives one identifier lookup form. Its methods are safe for concurrent
// use; responses are applied one at a time and the last one to arrive wins.
type Engine struct {
	cfg      Config
	form     FieldAccessor
	lookuper lookup.Lookuper
	notifier Notifier
	logger   *zap.Logger
	inert    bool

	mu            sync.Mutex
	state         State
	autocompleted []string
	blurTimer     *time.Timer

	// callbacks never run concurrently with each other; one queued while
	// another runs is drained by the goroutine already running them
	cbMu      sync.Mutex
	cbQueue   []func()
	cbRunning bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithNotifier replaces the default MessageBox.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// New creates an engine over form. When a required identifier field is missing
// from form the engine is inert: every operation is a no-op.
func New(cfg Config, form FieldAccessor, lookuper lookup.Lookuper, opts ...Option) *Engine {
	ApplyDefaults(&cfg)
	e := &Engine{
		cfg:      cfg,
		form:     form,
		lookuper: lookuper,
		logger:   zap.NewNop(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = NewMessageBox(DefaultMessageTTL)
	}

	typeField, _ := cfg.Identifier.typeSource()
	switch {
	case form == nil || lookuper == nil:
		e.inert = true
		e.logger.Error("autocomplete disabled: no form or lookuper")
	case !form.Has(cfg.Identifier.valueField()):
		e.inert = true
		e.logger.Error("autocomplete disabled: value field not found",
			zap.String("field", cfg.Identifier.valueField()))
	case typeField != "" && !form.Has(typeField):
		e.inert = true
		e.logger.Error("autocomplete disabled: type field not found",
			zap.String("field", typeField))
	}
	return e
}

// Inert reports whether the engine was disabled at construction.
func (e *Engine) Inert() bool { return e.inert }

// Simplified reports whether the identifier type is fixed.
func (e *Engine) Simplified() bool {
	_, ok := e.cfg.Identifier.(Simplified)
	return ok
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Autocompleted returns the selectors filled by the last successful search.
func (e *Engine) Autocompleted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.autocompleted...)
}

// Request builds the lookup request from the form. It returns false when the
// type is empty or the value is not at least MinDigits digits.
func (e *Engine) Request() (lookup.Request, bool) {
	if e.inert {
		return lookup.Request{}, false
	}
	raw, _ := e.form.Value(e.cfg.Identifier.valueField())
	number := strings.TrimSpace(raw)

	typeField, fixed := e.cfg.Identifier.typeSource()
	tipo := fixed
	if typeField != "" {
		v, _ := e.form.Value(typeField)
		tipo = strings.TrimSpace(v)
	}
	if tipo == "" || len(number) < e.cfg.MinDigits || !utils.IsDigits(number) {
		return lookup.Request{}, false
	}
	return lookup.Request{Type: tipo, Number: number}, true
}

// Search looks the current identifier up and applies the outcome to the form.
// When the identifier is incomplete nothing happens and the current state is
// returned.
func (e *Engine) Search(ctx context.Context) State {
	req, ok := e.Request()
	if !ok {
		return e.State()
	}

	e.mu.Lock()
	e.state = StateSearching
	e.mu.Unlock()

	valueField := e.cfg.Identifier.valueField()
	e.form.SetLoading(valueField, true)
	e.logger.Debug("searching", zap.Stringer("request", req))
	entity, err := e.lookuper.Lookup(ctx, req)
	e.form.SetLoading(valueField, false)

	switch {
	case err == nil:
		return e.fill(entity)
	case errors.Is(err, lookup.ErrNotFound):
		return e.notFound(req)
	default:
		return e.fail(req, err)
	}
}

func (e *Engine) fill(entity lookup.Entity) State {
	e.mu.Lock()
	filled := make([]string, 0, len(e.cfg.Mapping))
	seen := make(map[string]struct{}, len(e.cfg.Mapping))
	for _, m := range e.cfg.Mapping {
		text, ok := m.resolve(entity)
		if !ok {
			continue
		}
		e.form.SetValue(m.Selector, text)
		if _, dup := seen[m.Selector]; !dup {
			seen[m.Selector] = struct{}{}
			filled = append(filled, m.Selector)
		}
	}
	lock := e.cfg.AutoLockOrDefault()
	for _, sel := range e.cfg.Targets() {
		if _, ok := seen[sel]; ok && lock {
			e.form.Lock(sel)
		} else {
			e.form.Unlock(sel)
		}
	}
	e.autocompleted = filled
	e.state = StateFilled
	e.show(Message{Kind: MessageSuccess, Text: e.cfg.Messages.Found})
	e.mu.Unlock()

	e.logger.Debug("fields filled", zap.Strings("fields", filled))
	if e.cfg.OnSuccess != nil {
		e.dispatch(func() { e.cfg.OnSuccess(entity) })
	}
	return StateFilled
}

func (e *Engine) notFound(req lookup.Request) State {
	e.mu.Lock()
	e.clearLocked()
	e.state = StateNotFound
	e.show(Message{Kind: MessageWarning, Text: e.cfg.Messages.NotFound})
	e.mu.Unlock()

	e.logger.Debug("identifier not found", zap.Stringer("request", req))
	if e.cfg.OnNotFound != nil {
		e.dispatch(e.cfg.OnNotFound)
	}
	return StateNotFound
}

func (e *Engine) fail(req lookup.Request, err error) State {
	var lerr *lookup.Error
	if errors.As(err, &lerr) {
		cp := *lerr
		lerr = &cp
	} else {
		lerr = &lookup.Error{Message: err.Error(), Err: err}
	}
	if lerr.Message == "" {
		lerr.Message = lookup.DefaultErrorMessage
	}

	e.mu.Lock()
	e.unlockLocked()
	e.autocompleted = nil
	e.state = StateError
	e.show(Message{Kind: MessageDanger, Text: e.cfg.Messages.ErrorPrefix + lerr.Message})
	e.mu.Unlock()

	e.logger.Error("lookup failed", zap.Stringer("request", req), zap.Error(err))
	if e.cfg.OnError != nil {
		e.dispatch(func() { e.cfg.OnError(lerr) })
	}
	return StateError
}

// ResetFields clears and unlocks every mapped field and hides feedback.
func (e *Engine) ResetFields() {
	if e.inert {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
	e.state = StateIdle
	e.notifier.Hide()
}

// SetFieldValue writes value into the field at selector. Missing fields are
// ignored and nil is written as "".
func (e *Engine) SetFieldValue(selector string, value any) {
	if e.inert {
		return
	}
	e.form.SetValue(selector, FormatValue(value))
}

// Blur schedules a search after the debounce interval, replacing any search
// already scheduled.
func (e *Engine) Blur() {
	if e.inert {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.blurTimer != nil {
		e.blurTimer.Stop()
	}
	e.blurTimer = time.AfterFunc(e.cfg.Debounce, func() {
		e.Search(context.Background())
	})
}

// HandleKey searches immediately on Enter. It reports whether the key was
// consumed.
func (e *Engine) HandleKey(ctx context.Context, key string) bool {
	if e.inert || key != "Enter" {
		return false
	}
	e.Search(ctx)
	return true
}

// TypeChanged resets the form when the identifier type changes. It does
// nothing in simplified mode.
func (e *Engine) TypeChanged() {
	if e.Simplified() {
		return
	}
	e.ResetFields()
}

// ValueEdited hides feedback left by a fill and returns a filled engine to
// idle. Field values and locks are kept.
func (e *Engine) ValueEdited() {
	if e.inert {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.autocompleted) > 0 {
		e.notifier.Hide()
	}
	if e.state == StateFilled {
		e.state = StateIdle
	}
}

// Destroy detaches the engine. Nothing is held, so it only logs.
func (e *Engine) Destroy() {
	e.logger.Debug("autocomplete destroyed")
}

// dispatch runs fn after any callback already queued. A callback that
// triggers another one, for example by searching again, returns before the
// nested callback runs instead of waiting on itself.
func (e *Engine) dispatch(fn func()) {
	e.cbMu.Lock()
	e.cbQueue = append(e.cbQueue, fn)
	if e.cbRunning {
		e.cbMu.Unlock()
		return
	}
	e.cbRunning = true
	for len(e.cbQueue) > 0 {
		next := e.cbQueue[0]
		e.cbQueue = e.cbQueue[1:]
		e.cbMu.Unlock()
		e.runCallback(next)
		e.cbMu.Lock()
	}
	e.cbRunning = false
	e.cbMu.Unlock()
}

func (e *Engine) runCallback(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("autocomplete callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}

func (e *Engine) show(msg Message) {
	if !e.cfg.ShowMessagesOrDefault() {
		return
	}
	e.notifier.Show(msg)
}

// clearLocked empties and unlocks every mapped field. Callers hold e.mu.
func (e *Engine) clearLocked() {
	for _, sel := range e.cfg.Targets() {
		e.form.SetValue(sel, "")
		e.form.Unlock(sel)
	}
	e.autocompleted = nil
}

// unlockLocked unlocks every mapped field. Callers hold e.mu.
func (e *Engine) unlockLocked() {
	for _, sel := range e.cfg.Targets() {
		e.form.Unlock(sel)
	}
}
