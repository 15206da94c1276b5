package roster

import (
	"net/url"

	"github.com/yakoovad/team-roster/internal/model"
	"github.com/yakoovad/team-roster/internal/schema"
)

// Workspace is the state of one roster page: the parent form and its dialog.
type Workspace struct {
	Form   *Form
	Dialog *Dialog
}

func NewWorkspace(v *schema.Validator) *Workspace {
	return &Workspace{
		Form:   NewForm(v),
		Dialog: NewDialog(v),
	}
}

// OpenDialog keeps the coach typed so far and opens the player dialog.
func (w *Workspace) OpenDialog(coachDraft string) {
	w.Form.SetCoach(coachDraft)
	w.Dialog.Open()
}

// Submit submits the parent form. The form is blocked while the player dialog
// is open.
func (w *Workspace) Submit(values url.Values, handle SubmitHandler) (schema.Submission[model.TeamSubmission], error) {
	if w.Dialog.IsOpen() {
		return schema.Submission[model.TeamSubmission]{}, ErrDialogOpen
	}

	w.Form.SetCoach(values.Get("coach"))
	return w.Form.Submit(values, handle), nil
}

func (w *Workspace) CloseDialog() {
	w.Dialog.Close()
}

// AddPlayer submits the dialog and, when it is accepted, appends the player
// to the form.
func (w *Workspace) AddPlayer(values url.Values) (schema.Submission[model.PlayerRecord], error) {
	return w.Dialog.Submit(values, func(p model.PlayerRecord) error {
		_, err := w.Form.Insert(p)
		return err
	})
}
