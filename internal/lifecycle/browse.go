package lifecycle

import (
	"context"
	"errors"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
)

type BrowseStatus string

const (
	BrowseIdle    BrowseStatus = "idle"
	BrowseLoading BrowseStatus = "loading"
	BrowseLoaded  BrowseStatus = "loaded"
	BrowseFailed  BrowseStatus = "failed"
)

const (
	msgLoadFailed   = "Failed to load events. Check the connection to the server."
	msgDeleteFailed = "Failed to delete the event. Try again."
)

// BrowseState is a snapshot of the browse screen.
type BrowseState struct {
	Status    BrowseStatus    `json:"status"`
	PageIndex int             `json:"pageIndex"`
	PageSize  int             `json:"pageSize"`
	Page      model.EventPage `json:"page"`
	Message   string          `json:"message,omitempty"`
	Err       error           `json:"-"`
	// SearchMessage explains why a typed id was not accepted.
	SearchMessage string `json:"searchMessage,omitempty"`
	// PendingDelete is the id awaiting confirmation, or zero.
	PendingDelete int64  `json:"pendingDelete,omitempty"`
	Deleting      bool   `json:"deleting,omitempty"`
	Notice        string `json:"notice,omitempty"`
}

// Browse is the paginated list screen.
type Browse struct {
	screen
	gw       Gateway
	nav      Navigator
	onChange func(BrowseState)
	opts     Options

	state   BrowseState
	loads   flight
	deletes flight
}

// NewBrowse creates an idle browse screen. onChange may be nil; it is called
// with every new state while the controller lock is held, so it must not call
// back into the controller.
func NewBrowse(gw Gateway, nav Navigator, onChange func(BrowseState), opts Options) *Browse {
	opts = opts.withDefaults()
	b := &Browse{
		gw:       gw,
		nav:      nav,
		onChange: onChange,
		opts:     opts,
		state: BrowseState{
			Status:   BrowseIdle,
			PageSize: opts.PageSize,
			Page:     model.NewEventPage(nil, 0, 0, opts.PageSize),
		},
	}
	b.screen.init(opts.Logger.With("screen", "browse"))
	return b
}

// Mount loads the first page. notice is a message carried from the previous
// screen, e.g. after a successful submit.
func (b *Browse) Mount(notice string) error {
	return b.Start(notice, 0, b.opts.PageSize)
}

// Start is Mount at a given page, for shells that keep pagination in the URL.
func (b *Browse) Start(notice string, pageIndex, pageSize int) error {
	b.mu.Lock()
	b.state.Notice = notice
	b.mu.Unlock()
	return b.Load(pageIndex, pageSize)
}

// Load requests a page, superseding any load still in flight.
func (b *Browse) Load(pageIndex, pageSize int) error {
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageSize <= 0 {
		pageSize = b.opts.PageSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.loadLocked(pageIndex, pageSize)
	return nil
}

// ChangePage moves to another page at the current size.
func (b *Browse) ChangePage(pageIndex int) error {
	b.mu.Lock()
	size := b.state.PageSize
	b.mu.Unlock()
	return b.Load(pageIndex, size)
}

// ChangePageSize switches the page size, keeping the first visible row on screen.
func (b *Browse) ChangePageSize(pageSize int) error {
	if pageSize <= 0 {
		pageSize = b.opts.PageSize
	}
	b.mu.Lock()
	first := b.state.PageIndex * b.state.PageSize
	b.mu.Unlock()
	return b.Load(first/pageSize, pageSize)
}

// Reload repeats the current page request.
func (b *Browse) Reload() error {
	b.mu.Lock()
	index, size := b.state.PageIndex, b.state.PageSize
	b.mu.Unlock()
	return b.Load(index, size)
}

// Search validates a typed id and navigates to its detail screen. It never
// loads data itself.
func (b *Browse) Search(input string) error {
	id, err := validate.ParseID(input)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		var verr *validate.ValidationError
		if errors.As(err, &verr) {
			b.state.SearchMessage = verr.Violations[0].Message
		}
		b.publish()
		b.mu.Unlock()
		return err
	}
	b.state.SearchMessage = ""
	b.publish()
	b.mu.Unlock()

	b.nav.Detail(id)
	return nil
}

// Open navigates to the detail screen of a listed event.
func (b *Browse) Open(id int64) {
	b.nav.Detail(id)
}

// RequestDelete asks for confirmation before deleting id.
func (b *Browse) RequestDelete(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.state.Deleting {
		return ErrBusy
	}
	b.state.PendingDelete = id
	b.publish()
	return nil
}

// CancelDelete drops a pending confirmation.
func (b *Browse) CancelDelete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Deleting || b.state.PendingDelete == 0 {
		return
	}
	b.state.PendingDelete = 0
	b.publish()
}

// ConfirmDelete deletes the pending event and reloads the page. Without a
// prior RequestDelete it makes no remote call.
func (b *Browse) ConfirmDelete() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if b.state.Deleting {
		return ErrBusy
	}
	id := b.state.PendingDelete
	if id == 0 {
		return ErrNothingPending
	}

	b.state.Deleting = true
	b.state.Message = ""
	b.publish()

	ctx, gen := b.begin(&b.deletes)
	b.spawn(func() { b.runDelete(ctx, gen, id) })
	return nil
}

func (b *Browse) runDelete(ctx context.Context, gen uint64, id int64) {
	err := b.gw.SoftDelete(ctx, id)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.current(&b.deletes, gen) {
		return
	}
	b.state.Deleting = false
	b.state.PendingDelete = 0
	if err != nil {
		b.logger.Warn("delete failed", "id", id, "error", err)
		b.state.Err = err
		b.state.Message = msgDeleteFailed
		b.publish()
		return
	}

	b.logger.Info("event deleted", "id", id)
	b.state.Notice = NoticeDeleted
	index := b.state.PageIndex
	// Step back when the deleted row was the only one on a later page.
	if index > 0 && len(b.state.Page.Items) == 1 && b.state.Page.Items[0].ID == id {
		index--
	}
	b.loadLocked(index, b.state.PageSize)
}

// loadLocked starts a page load. Caller holds mu.
func (b *Browse) loadLocked(pageIndex, pageSize int) {
	ctx, gen := b.begin(&b.loads)
	b.state.Status = BrowseLoading
	b.state.PageIndex = pageIndex
	b.state.PageSize = pageSize
	b.state.Message = ""
	b.state.Err = nil
	b.publish()

	sort := b.opts.Sort
	b.spawn(func() { b.runLoad(ctx, gen, pageIndex, pageSize, sort) })
}

func (b *Browse) runLoad(ctx context.Context, gen uint64, pageIndex, pageSize int, sort model.Sort) {
	page, err := b.gw.List(ctx, pageIndex, pageSize, sort)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.current(&b.loads, gen) {
		return
	}
	if err != nil {
		b.logger.Warn("load failed", "page", pageIndex, "size", pageSize, "error", err)
		b.state.Status = BrowseFailed
		b.state.Err = err
		b.state.Message = msgLoadFailed
		b.publish()
		return
	}

	b.state.Status = BrowseLoaded
	b.state.Page = page
	if page.PageSize > 0 {
		b.state.PageIndex = page.PageIndex
		b.state.PageSize = page.PageSize
	}
	b.publish()
}

// State returns the current snapshot.
func (b *Browse) State() BrowseState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Close tears the screen down; responses still in flight are dropped.
func (b *Browse) Close() {
	b.close()
}

// publish reports the state. Caller holds mu.
func (b *Browse) publish() {
	if b.onChange != nil && !b.closed {
		b.onChange(b.state)
	}
}
