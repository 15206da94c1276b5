// Package roster holds the form controllers behind the team roster page:
// the parent roster form with its ordered player list, and the modal
// dialog that feeds validated players into it.
package roster

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/yakoovad/team-roster/internal/model"
	"github.com/yakoovad/team-roster/internal/schema"
)

// Entry is one row of the players list. Key is assigned at insertion and
// never derived from the entry's position.
type Entry struct {
	Key    string
	Player model.PlayerRecord
}

type HiddenField struct {
	Name  string
	Value string
}

// SubmitHandler receives the validated aggregate of a successful submit.
type SubmitHandler func(model.TeamSubmission)

// Form is the parent roster form. It is not safe for concurrent use; callers
// serialize access per session.
type Form struct {
	schema  *schema.Validator
	coach   string
	entries []Entry
}

func NewForm(v *schema.Validator) *Form {
	return &Form{schema: v}
}

func (f *Form) Coach() string {
	return f.coach
}

func (f *Form) SetCoach(coach string) {
	f.coach = coach
}

func (f *Form) Len() int {
	return len(f.entries)
}

func (f *Form) Entries() []Entry {
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *Form) Players() []model.PlayerRecord {
	out := make([]model.PlayerRecord, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Player)
	}
	return out
}

// Insert appends p after all existing entries. p is validated against the
// player schema first; an invalid record leaves the list untouched.
func (f *Form) Insert(p model.PlayerRecord) (Entry, error) {
	if errs := f.schema.ValidatePlayer(&p); len(errs) > 0 {
		return Entry{}, &schema.ValidationError{Fields: errs}
	}

	entry := Entry{Key: uuid.NewString(), Player: p}
	f.entries = append(f.entries, entry)
	return entry, nil
}

// HiddenFields returns the hidden inputs that carry the players list in the
// submitted form, in list order.
func (f *Form) HiddenFields() []HiddenField {
	out := make([]HiddenField, 0, 2*len(f.entries))
	for i, e := range f.entries {
		out = append(out,
			HiddenField{Name: PlayerFieldName(i, "name"), Value: e.Player.Name},
			HiddenField{Name: PlayerFieldName(i, "goal"), Value: strconv.Itoa(e.Player.Goal)},
		)
	}
	return out
}

// Values is the form data a browser would post for the current state.
func (f *Form) Values() url.Values {
	values := url.Values{"coach": {f.coach}}
	for _, h := range f.HiddenFields() {
		values.Set(h.Name, h.Value)
	}
	return values
}

// Validate parses values against the team schema without side effects.
func (f *Form) Validate(values url.Values) schema.Submission[model.TeamSubmission] {
	return f.schema.ParseTeam(values)
}

// Submit validates values and hands the result to handle on success. A
// failed submission calls nothing and changes nothing.
func (f *Form) Submit(values url.Values, handle SubmitHandler) schema.Submission[model.TeamSubmission] {
	sub := f.schema.ParseTeam(values)
	if !sub.OK() {
		return sub
	}

	if handle != nil {
		handle(*sub.Value)
	}
	return sub
}

func PlayerFieldName(index int, field string) string {
	return fmt.Sprintf("players[%d].%s", index, field)
}
