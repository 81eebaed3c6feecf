// Package dom drives a live portal form in a browser page so the autocomplete
// engine can run against the real markup.
package dom

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/autocomplete"
	"github.com/hyperjump/montero/pkg/utils"
)

// DefaultMessageContainer is the id of the alert element used for feedback.
const DefaultMessageContainer = "userSearchMessage"

// resolveJS finds the element for a selector the same way MemoryForm does.
const resolveJS = `
const resolve = (sel) => {
	if (!sel) return null;
	if (sel[0] === '#') return document.getElementById(sel.slice(1));
	if (sel[0] === '.') return document.querySelector(sel);
	return document.getElementById(sel);
};`

// Form implements autocomplete.FieldAccessor and autocomplete.Notifier over a
// rod page. Evaluation failures are logged and reported as missing fields.
type Form struct {
	page       *rod.Page
	ctx        context.Context
	container  string
	anchor     string
	messageTTL time.Duration
	logger     *zap.Logger

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

// Option configures a Form.
type Option func(*Form)

// WithContext bounds every evaluation by ctx.
func WithContext(ctx context.Context) Option {
	return func(f *Form) { f.ctx = ctx }
}

// WithMessageContainer sets the id of the feedback alert element.
func WithMessageContainer(id string) Option {
	return func(f *Form) { f.container = id }
}

// WithAnchor names the field whose parent receives a created message container.
func WithAnchor(selector string) Option {
	return func(f *Form) { f.anchor = selector }
}

// WithMessageTTL sets how long success messages stay visible.
func WithMessageTTL(d time.Duration) Option {
	return func(f *Form) { f.messageTTL = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Form) { f.logger = utils.OrNop(l) }
}

// NewForm wraps page.
func NewForm(page *rod.Page, opts ...Option) *Form {
	f := &Form{
		page:       page,
		ctx:        context.Background(),
		container:  DefaultMessageContainer,
		anchor:     "#" + autocomplete.DefaultValueField,
		messageTTL: autocomplete.DefaultMessageTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var (
	_ autocomplete.FieldAccessor = (*Form)(nil)
	_ autocomplete.Notifier      = (*Form)(nil)
)

// eval runs js as the body of a function of (sel, arg). It returns nil when
// evaluation fails or the result is null.
func (f *Form) eval(js string, sel, arg any) *proto.RuntimeRemoteObject {
	res, err := f.page.Context(f.ctx).Evaluate(&rod.EvalOptions{
		JS:      "(sel, arg) => {" + resolveJS + js + "}",
		JSArgs:  []interface{}{sel, arg},
		ByValue: true,
	})
	if err != nil {
		f.logger.Debug("dom evaluation failed", zap.Error(err))
		return nil
	}
	if res == nil || res.Value.Nil() {
		return nil
	}
	return res
}

func (f *Form) boolean(js string, sel, arg any) bool {
	res := f.eval(js, sel, arg)
	return res != nil && res.Value.Bool()
}

func (f *Form) Has(selector string) bool {
	return f.boolean(`return resolve(sel) !== null;`, selector, nil)
}

func (f *Form) Value(selector string) (string, bool) {
	res := f.eval(`
	const el = resolve(sel);
	return el === null ? null : String(el.value ?? '');`, selector, nil)
	if res == nil {
		return "", false
	}
	return res.Value.Str(), true
}

func (f *Form) SetValue(selector, value string) bool {
	return f.boolean(`
	const el = resolve(sel);
	if (el === null) return false;
	el.value = arg;
	return true;`, selector, value)
}

func (f *Form) Lock(selector string) bool {
	return f.boolean(`
	const el = resolve(sel);
	if (el === null) return false;
	el.setAttribute('readonly', 'readonly');
	el.classList.add('`+autocomplete.LockedClass+`');
	return true;`, selector, nil)
}

func (f *Form) Unlock(selector string) bool {
	return f.boolean(`
	const el = resolve(sel);
	if (el === null) return false;
	el.removeAttribute('readonly');
	el.classList.remove('`+autocomplete.LockedClass+`');
	return true;`, selector, nil)
}

func (f *Form) Locked(selector string) bool {
	return f.boolean(`
	const el = resolve(sel);
	return el !== null && el.hasAttribute('readonly');`, selector, nil)
}

func (f *Form) SetLoading(selector string, loading bool) {
	f.boolean(`
	const el = resolve(sel);
	if (el === null) return false;
	el.classList.toggle('`+autocomplete.LoadingClass+`', arg);
	return true;`, selector, loading)
}

// Show renders msg into the message container, creating it next to the
// anchor field when the page has none. Success messages hide after the TTL.
func (f *Form) Show(msg autocomplete.Message) {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if msg.Kind == autocomplete.MessageSuccess && f.messageTTL > 0 {
		f.timer = time.AfterFunc(f.messageTTL, func() { f.hideIf(seq) })
	}
	f.mu.Unlock()

	f.boolean(`
	let box = document.getElementById(arg.id);
	if (box === null) {
		const anchor = resolve(sel);
		if (anchor === null || anchor.parentElement === null) return false;
		box = document.createElement('div');
		box.id = arg.id;
		box.setAttribute('role', 'alert');
		anchor.parentElement.appendChild(box);
	}
	box.className = 'alert alert-' + arg.kind + ' alert-dismissible fade show mt-2';
	box.textContent = arg.text;
	const close = document.createElement('button');
	close.type = 'button';
	close.className = 'btn-close';
	close.setAttribute('data-bs-dismiss', 'alert');
	close.setAttribute('aria-label', 'Close');
	box.appendChild(close);
	return true;`, f.anchor, map[string]string{
		"id":   f.container,
		"kind": string(msg.Kind),
		"text": msg.Text,
	})
}

// Hide removes the message container.
func (f *Form) Hide() {
	f.mu.Lock()
	f.seq++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
	f.remove()
}

func (f *Form) hideIf(seq uint64) {
	f.mu.Lock()
	current := f.seq == seq
	if current {
		f.timer = nil
	}
	f.mu.Unlock()
	if current {
		f.remove()
	}
}

func (f *Form) remove() {
	f.boolean(`
	const box = document.getElementById(arg);
	if (box !== null) box.remove();
	return true;`, nil, f.container)
}

// Message returns the text and alert kind currently rendered, if any.
func (f *Form) Message() (autocomplete.Message, bool) {
	res := f.eval(`
	const box = document.getElementById(arg);
	if (box === null) return null;
	const kind = [...box.classList].find(c => c.startsWith('alert-') && c !== 'alert-dismissible');
	return (kind ? kind.slice(6) : '') + '|' + box.textContent.trim();`, nil, f.container)
	if res == nil {
		return autocomplete.Message{}, false
	}
	kind, text, _ := strings.Cut(res.Value.Str(), "|")
	return autocomplete.Message{Kind: autocomplete.MessageKind(kind), Text: text}, true
}

// Close stops a pending auto-hide.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
