package lifecycle

import (
	"context"
	"errors"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/eventclient"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
)

// Fields are the form values as typed.
type Fields = validate.Candidate

type FormStatus string

const (
	FormInitializing    FormStatus = "initializing"
	FormReady           FormStatus = "ready"
	FormSubmitting      FormStatus = "submitting"
	FormSubmittedOK     FormStatus = "submitted_ok"
	FormSubmittedFailed FormStatus = "submitted_failed"
	FormAborted         FormStatus = "aborted"
)

type FormMode string

const (
	ModeCreate FormMode = "create"
	ModeEdit   FormMode = "edit"
)

const MsgEditLoadFailed = "Failed to load the event for editing."

// FormState is a snapshot of the create/edit form.
type FormState struct {
	Status FormStatus `json:"status"`
	Mode   FormMode   `json:"mode"`
	ID     int64      `json:"id,omitempty"`
	Fields Fields     `json:"fields"`
	// Violations maps a form field to its message, local or from the server.
	Violations    map[string]string `json:"violations,omitempty"`
	Message       string            `json:"message,omitempty"`
	Err           error             `json:"-"`
	MinSelectable string            `json:"minSelectable"`
}

// Form is the create/edit screen.
type Form struct {
	screen
	gw       Gateway
	nav      Navigator
	onChange func(FormState)
	opts     Options

	state   FormState
	loads   flight
	submits flight
}

// NewForm creates a form screen; call Open to pick create or edit mode.
func NewForm(gw Gateway, nav Navigator, onChange func(FormState), opts Options) *Form {
	opts = opts.withDefaults()
	f := &Form{
		gw:       gw,
		nav:      nav,
		onChange: onChange,
		opts:     opts,
	}
	f.screen.init(opts.Logger.With("screen", "form"))
	return f
}

// Open starts the form. A zero id means create mode and the form is ready at
// once; otherwise the record is fetched first.
func (f *Form) Open(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.state.Status == FormSubmitting {
		return ErrBusy
	}

	// Any load still in flight belongs to the previous record.
	ctx, gen := f.begin(&f.loads)
	f.state = FormState{MinSelectable: f.minSelectable()}
	if id == 0 {
		f.state.Mode = ModeCreate
		f.state.Status = FormReady
		f.publish()
		return nil
	}

	f.state.Mode = ModeEdit
	f.state.ID = id
	f.state.Status = FormInitializing
	f.publish()

	f.spawn(func() { f.runLoad(ctx, gen, id) })
	return nil
}

func (f *Form) runLoad(ctx context.Context, gen uint64, id int64) {
	e, err := f.gw.Get(ctx, id)

	f.mu.Lock()
	if !f.current(&f.loads, gen) {
		f.mu.Unlock()
		return
	}
	if err != nil {
		f.logger.Warn("load for edit failed", "id", id, "error", err)
		f.state.Status = FormAborted
		f.state.Err = err
		f.state.Message = MsgEditLoadFailed
		f.publish()
		f.mu.Unlock()
		f.nav.Browse(MsgEditLoadFailed)
		return
	}
	f.state.Fields = validate.CandidateFrom(e.Input())
	f.state.Status = FormReady
	f.publish()
	f.mu.Unlock()
}

// SetFields replaces the typed values. Only a ready form accepts input.
func (f *Form) SetFields(v Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.state.Status != FormReady {
		return ErrNotReady
	}
	f.state.Fields = v
	f.publish()
	return nil
}

// Submit validates the current values against the clock as it is now and, if
// they pass, sends them. A *validate.ValidationError is returned, and nothing
// is sent, when any rule fails.
func (f *Form) Submit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.state.Status != FormReady {
		return ErrNotReady
	}

	f.state.MinSelectable = f.minSelectable()
	if err := f.opts.Validator.Validate(f.state.Fields); err != nil {
		var verr *validate.ValidationError
		if errors.As(err, &verr) {
			f.state.Violations = verr.Messages()
		}
		f.state.Err = err
		f.state.Message = ""
		f.publish()
		return err
	}

	in, err := f.input()
	if err != nil {
		return err
	}
	f.state.Status = FormSubmitting
	f.state.Violations = nil
	f.state.Message = ""
	f.state.Err = nil
	f.publish()

	mode, id := f.state.Mode, f.state.ID
	ctx, gen := f.begin(&f.submits)
	f.spawn(func() { f.runSubmit(ctx, gen, mode, id, in) })
	return nil
}

func (f *Form) input() (model.EventInput, error) {
	at, err := wallclock.ParseInput(f.state.Fields.OccursAt)
	if err != nil {
		return model.EventInput{}, err
	}
	return model.EventInput{
		Title:       f.state.Fields.Title,
		Description: f.state.Fields.Description,
		OccursAt:    at,
		Location:    f.state.Fields.Location,
	}, nil
}

func (f *Form) runSubmit(ctx context.Context, gen uint64, mode FormMode, id int64, in model.EventInput) {
	var err error
	if mode == ModeEdit {
		_, err = f.gw.Update(ctx, id, in)
	} else {
		_, err = f.gw.Create(ctx, in)
	}

	f.mu.Lock()
	if !f.current(&f.submits, gen) {
		f.mu.Unlock()
		return
	}
	if err != nil {
		f.logger.Warn("submit failed", "mode", mode, "id", id, "error", err)
		f.state.Status = FormSubmittedFailed
		f.state.Err = err
		f.state.Message = submitFailure(mode, err)
		var sve *eventclient.ServerValidationError
		if errors.As(err, &sve) && len(sve.Fields) > 0 {
			f.state.Violations = sve.Fields
		}
		f.publish()
		// The typed values stay for the next attempt.
		f.state.Status = FormReady
		f.publish()
		f.mu.Unlock()
		return
	}

	notice := NoticeCreated
	if mode == ModeEdit {
		notice = NoticeUpdated
	}
	f.logger.Info("event saved", "mode", mode, "id", id)
	f.state.Status = FormSubmittedOK
	f.publish()
	f.mu.Unlock()
	f.nav.Browse(notice)
}

func submitFailure(mode FormMode, err error) string {
	action := "create"
	if mode == ModeEdit {
		action = "update"
	}
	var sve *eventclient.ServerValidationError
	switch {
	case errors.As(err, &sve) && sve.Message != "":
		return "Failed to " + action + " event. Detail: " + sve.Message
	case errors.Is(err, eventclient.ErrNotFound):
		return "The event no longer exists."
	case errors.As(err, &sve):
		return "Failed to " + action + " event. Check the highlighted fields."
	default:
		return "Failed to " + action + " event. Check the connection to the server."
	}
}

// Cancel leaves the form without saving.
func (f *Form) Cancel() {
	f.nav.Browse("")
}

// MinSelectable is the earliest value the date picker should offer.
func (f *Form) MinSelectable() string {
	return f.minSelectable()
}

func (f *Form) minSelectable() string {
	return wallclock.MinSelectable(f.opts.Validator.Clock()).Input()
}

// State returns the current snapshot.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Close tears the screen down; a submit still in flight is not applied.
func (f *Form) Close() {
	f.close()
}

func (f *Form) publish() {
	if f.onChange != nil && !f.closed {
		f.onChange(f.state)
	}
}
