package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/eventclient"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
)

type DetailStatus string

const (
	DetailLoading          DetailStatus = "loading"
	DetailLoaded           DetailStatus = "loaded"
	DetailNotFoundOrError  DetailStatus = "not_found_or_error"
	DetailConfirmingDelete DetailStatus = "confirming_delete"
	DetailDeleting         DetailStatus = "deleting"
	DetailDeleted          DetailStatus = "deleted"
)

const (
	msgDetailNotFound = "The event could not be found. It may not exist or may have been deleted."
	msgDetailFailed   = "Could not load the event details. Try again."
)

// DetailState is a snapshot of the detail screen.
type DetailState struct {
	Status   DetailStatus `json:"status"`
	ID       int64        `json:"id"`
	Event    *model.Event `json:"event,omitempty"`
	NotFound bool         `json:"notFound,omitempty"`
	Message  string       `json:"message,omitempty"`
	Err      error        `json:"-"`
	Notice   string       `json:"notice,omitempty"`
}

// Detail shows one event and owns its delete flow.
type Detail struct {
	screen
	gw       Gateway
	nav      Navigator
	onChange func(DetailState)
	opts     Options

	state   DetailState
	loads   flight
	deletes flight
	leave   *time.Timer
}

// NewDetail creates a detail screen; call Open to load a record.
func NewDetail(gw Gateway, nav Navigator, onChange func(DetailState), opts Options) *Detail {
	opts = opts.withDefaults()
	d := &Detail{
		gw:       gw,
		nav:      nav,
		onChange: onChange,
		opts:     opts,
		state:    DetailState{Status: DetailLoading},
	}
	d.screen.init(opts.Logger.With("screen", "detail"))
	return d
}

// Open loads the event with the given id, superseding an earlier Open.
func (d *Detail) Open(id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state.Status == DetailDeleting {
		return ErrBusy
	}
	d.stopLeaving()

	ctx, gen := d.begin(&d.loads)
	d.state = DetailState{Status: DetailLoading, ID: id}
	d.publish()
	d.spawn(func() { d.runLoad(ctx, gen, id) })
	return nil
}

func (d *Detail) runLoad(ctx context.Context, gen uint64, id int64) {
	e, err := d.gw.Get(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.current(&d.loads, gen) {
		return
	}
	if err != nil {
		d.logger.Warn("load failed", "id", id, "error", err)
		d.state.Status = DetailNotFoundOrError
		d.state.Err = err
		d.state.NotFound = errors.Is(err, eventclient.ErrNotFound)
		if d.state.NotFound {
			d.state.Message = msgDetailNotFound
		} else {
			d.state.Message = msgDetailFailed
		}
		d.publish()
		return
	}
	d.state.Status = DetailLoaded
	d.state.Event = &e
	d.publish()
}

// RequestDelete enters the confirmation step. No request is made.
func (d *Detail) RequestDelete() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state.Status != DetailLoaded {
		return ErrNotReady
	}
	d.state.Status = DetailConfirmingDelete
	d.state.Message = ""
	d.publish()
	return nil
}

// CancelDelete leaves the confirmation step with the record intact.
func (d *Detail) CancelDelete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Status != DetailConfirmingDelete {
		return
	}
	d.state.Status = DetailLoaded
	d.publish()
}

// ConfirmDelete performs the delete the user affirmed. It returns
// ErrNotConfirmed, without any remote call, unless RequestDelete came first.
func (d *Detail) ConfirmDelete() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.state.Status != DetailConfirmingDelete {
		return ErrNotConfirmed
	}

	id := d.state.ID
	d.state.Status = DetailDeleting
	d.publish()

	ctx, gen := d.begin(&d.deletes)
	d.spawn(func() { d.runDelete(ctx, gen, id) })
	return nil
}

func (d *Detail) runDelete(ctx context.Context, gen uint64, id int64) {
	err := d.gw.SoftDelete(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.current(&d.deletes, gen) {
		return
	}
	if err != nil {
		d.logger.Warn("delete failed", "id", id, "error", err)
		d.state.Status = DetailLoaded
		d.state.Err = err
		d.state.Message = msgDeleteFailed
		d.publish()
		return
	}

	d.logger.Info("event deleted", "id", id)
	d.state.Status = DetailDeleted
	d.state.Err = nil
	d.state.Notice = NoticeDeleted
	d.publish()
	d.leave = time.AfterFunc(d.opts.NavigateDelay, func() { d.leaveAfterDelete(gen) })
}

// leaveAfterDelete navigates only while the screen still shows the delete
// that scheduled it.
func (d *Detail) leaveAfterDelete(gen uint64) {
	d.mu.Lock()
	stale := d.closed || d.deletes.gen != gen || d.state.Status != DetailDeleted
	d.mu.Unlock()
	if !stale {
		d.nav.Browse(NoticeDeleted)
	}
}

// stopLeaving cancels a scheduled post-delete navigation. Caller holds mu.
func (d *Detail) stopLeaving() {
	if d.leave != nil {
		d.leave.Stop()
		d.leave = nil
	}
}

// Back returns to the browse screen.
func (d *Detail) Back() {
	d.nav.Browse("")
}

// State returns the current snapshot.
func (d *Detail) State() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close tears the screen down, including a scheduled post-delete navigation.
func (d *Detail) Close() {
	if !d.close() {
		return
	}
	d.mu.Lock()
	d.stopLeaving()
	d.mu.Unlock()
}

func (d *Detail) publish() {
	if d.onChange != nil && !d.closed {
		d.onChange(d.state)
	}
}
