package roster

import (
	"net/url"

	"github.com/pkg/errors"
	"github.com/yakoovad/team-roster/internal/model"
	"github.com/yakoovad/team-roster/internal/schema"
)

type DialogState string

const (
	DialogClosed  DialogState = "closed"
	DialogOpen    DialogState = "open"
	DialogEditing DialogState = "editing"
	DialogInvalid DialogState = "invalid"
)

// AcceptFunc receives the validated player of an accepted dialog submit.
type AcceptFunc func(model.PlayerRecord) error

// Dialog is the modal player entry sub-form. It starts closed and can be
// reopened any number of times.
type Dialog struct {
	schema *schema.Validator
	state  DialogState
	draft  url.Values
	errs   []schema.FieldError
}

func NewDialog(v *schema.Validator) *Dialog {
	return &Dialog{schema: v, state: DialogClosed}
}

func (d *Dialog) State() DialogState {
	return d.state
}

func (d *Dialog) IsOpen() bool {
	return d.state != DialogClosed
}

// Draft returns the values last entered into the dialog.
func (d *Dialog) Draft() url.Values {
	return d.draft
}

func (d *Dialog) Errors() []schema.FieldError {
	return d.errs
}

func (d *Dialog) Open() {
	if d.IsOpen() {
		return
	}
	d.reset()
	d.state = DialogOpen
}

// Close discards whatever was typed into the dialog.
func (d *Dialog) Close() {
	d.reset()
	d.state = DialogClosed
}

func (d *Dialog) Edit(values url.Values) error {
	if !d.IsOpen() {
		return ErrDialogClosed
	}
	d.draft = values
	if d.state == DialogOpen {
		d.state = DialogEditing
	}
	return nil
}

// Submit validates values against the player schema. Valid input is passed
// to accept and closes the dialog; invalid input keeps it open with errors and
// never reaches accept.
func (d *Dialog) Submit(values url.Values, accept AcceptFunc) (schema.Submission[model.PlayerRecord], error) {
	if !d.IsOpen() {
		return schema.Submission[model.PlayerRecord]{}, ErrDialogClosed
	}

	d.draft = values

	sub := d.schema.ParsePlayer(values)
	if !sub.OK() {
		d.state = DialogInvalid
		d.errs = sub.Errors
		return sub, nil
	}

	if accept != nil {
		if err := accept(*sub.Value); err != nil {
			d.state = DialogInvalid
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				d.errs = verr.Fields
			}
			return sub, errors.Wrap(err, "accept player")
		}
	}

	d.Close()
	return sub, nil
}

func (d *Dialog) reset() {
	d.draft = nil
	d.errs = nil
}
