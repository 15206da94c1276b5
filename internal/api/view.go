package api

import (
	"encoding/json"
	"strconv"

	"github.com/yakoovad/team-roster/internal/roster"
	"github.com/yakoovad/team-roster/internal/schema"
	"github.com/yakoovad/team-roster/internal/service"
)

const rosterTemplate = "roster.html"

type rosterPage struct {
	Coach       string
	CoachErrors []string
	Players     []playerRow
	OtherErrors []schema.FieldError
	Dialog      dialogView
	Submitted   string
	CSRFToken   string
}

type playerRow struct {
	Key        string
	Name       string
	Goal       int
	NameField  string
	GoalField  string
	NameErrors []string
	GoalErrors []string
}

type dialogView struct {
	Open       bool
	Name       string
	Goal       string
	NameErrors []string
	GoalErrors []string
}

func newRosterPage(state *service.RosterState, csrfToken string) *rosterPage {
	formErrs := groupErrors(state.FormErrors)
	dialogErrs := groupErrors(state.Dialog.Errors)

	page := &rosterPage{
		Coach:       state.Coach,
		CoachErrors: formErrs.take("coach"),
		Players:     make([]playerRow, 0, len(state.Entries)),
		Dialog: dialogView{
			Open:       state.Dialog.Open(),
			Name:       state.Dialog.Draft.Get("name"),
			Goal:       state.Dialog.Draft.Get("goal"),
			NameErrors: dialogErrs.take("name"),
			GoalErrors: dialogErrs.take("goal"),
		},
		CSRFToken: csrfToken,
	}

	for i, e := range state.Entries {
		nameField := roster.PlayerFieldName(i, "name")
		goalField := roster.PlayerFieldName(i, "goal")
		page.Players = append(page.Players, playerRow{
			Key:        e.Key,
			Name:       e.Player.Name,
			Goal:       e.Player.Goal,
			NameField:  nameField,
			GoalField:  goalField,
			NameErrors: formErrs.take(nameField),
			GoalErrors: formErrs.take(goalField),
		})
	}

	page.OtherErrors = formErrs.rest(state.FormErrors)

	if state.Submitted != nil {
		if b, err := json.MarshalIndent(state.Submitted, "", "  "); err == nil {
			page.Submitted = string(b)
		}
	}

	return page
}

type errorGroups map[string][]string

func groupErrors(errs []schema.FieldError) errorGroups {
	g := make(errorGroups, len(errs))
	for _, fe := range errs {
		g[fe.Path] = append(g[fe.Path], fe.Message)
	}
	return g
}

func (g errorGroups) take(path string) []string {
	msgs := g[path]
	delete(g, path)
	return msgs
}

// rest returns errors not yet taken, in their original order.
func (g errorGroups) rest(all []schema.FieldError) []schema.FieldError {
	var out []schema.FieldError
	for _, fe := range all {
		if _, ok := g[fe.Path]; ok {
			out = append(out, fe)
		}
	}
	return out
}

func (r playerRow) GoalValue() string {
	return strconv.Itoa(r.Goal)
}
