package service

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
	"github.com/yakoovad/team-roster/internal/model"
	"github.com/yakoovad/team-roster/internal/repository"
	"github.com/yakoovad/team-roster/internal/roster"
	"github.com/yakoovad/team-roster/internal/schema"
	"github.com/yakoovad/team-roster/pkg/logger"
	"go.uber.org/zap"
)

// SubmissionHandler receives every successfully validated team submission.
type SubmissionHandler func(ctx context.Context, team model.TeamSubmission)

// LogSubmission reports the submitted team to the request logger. Nothing is stored.
func LogSubmission(ctx context.Context, team model.TeamSubmission) {
	logger.FromContext(ctx).Info("team submitted",
		zap.String("coach", team.Coach),
		zap.Int("players", len(team.Players)),
		zap.Any("team", team))
}

// RosterState is a snapshot of one session's roster page.
type RosterState struct {
	SessionID string
	Coach     string
	Entries   []roster.Entry
	Hidden    []roster.HiddenField
	Dialog    DialogState

	// Set by Submit only.
	FormErrors []schema.FieldError
	Submitted  *model.TeamSubmission
}

type DialogState struct {
	State  roster.DialogState
	Draft  url.Values
	Errors []schema.FieldError
}

func (d DialogState) Open() bool {
	return d.State != roster.DialogClosed
}

type RosterService struct {
	schema *schema.Validator

	sessions repository.SessionRepository
	onSubmit SubmissionHandler
}

func NewRosterService(v *schema.Validator) *RosterService {
	return &RosterService{
		schema:   v,
		onSubmit: LogSubmission,
	}
}

// Start returns the state of sessionID, creating a fresh session when the id
// is empty or unknown.
func (r *RosterService) Start(ctx context.Context, sessionID string) (*RosterState, *Error) {
	l := logger.FromContext(ctx)

	if sessionID != "" {
		state, err := r.view(ctx, sessionID, nil)
		if err == nil {
			return state, nil
		}
		if err.Code != ErrorCodeNotFound {
			return nil, err
		}
		l.Debug("session expired, starting a new one", zap.String("session_id", sessionID))
	}

	id, err := r.sessions.Create(ctx)
	if err != nil {
		l.Error("failed to create session", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create session")
	}

	l.Info("session created", zap.String("session_id", id))

	return r.view(ctx, id, nil)
}

func (r *RosterService) Get(ctx context.Context, sessionID string) (*RosterState, *Error) {
	return r.view(ctx, sessionID, nil)
}

func (r *RosterService) OpenDialog(ctx context.Context, sessionID, coachDraft string) (*RosterState, *Error) {
	logger.FromContext(ctx).Debug("opening player dialog", zap.String("session_id", sessionID))

	return r.view(ctx, sessionID, func(s *repository.Session, _ *RosterState) error {
		s.Workspace.OpenDialog(coachDraft)
		return nil
	})
}

func (r *RosterService) CloseDialog(ctx context.Context, sessionID string) (*RosterState, *Error) {
	logger.FromContext(ctx).Debug("closing player dialog", zap.String("session_id", sessionID))

	return r.view(ctx, sessionID, func(s *repository.Session, _ *RosterState) error {
		s.Workspace.CloseDialog()
		return nil
	})
}

// AddPlayer submits the player dialog. On validation failure the returned
// state is still populated so the dialog can be shown again with its errors.
func (r *RosterService) AddPlayer(ctx context.Context, sessionID string, values url.Values) (*RosterState, *Error) {
	l := logger.FromContext(ctx)

	var res *Error
	state, err := r.view(ctx, sessionID, func(s *repository.Session, _ *RosterState) error {
		sub, err := s.Workspace.AddPlayer(values)
		if errors.Is(err, roster.ErrDialogClosed) {
			l.Warn("player submitted to a closed dialog", zap.String("session_id", sessionID))
			return NewError(ErrorCodeDialogClosed, "player dialog is not open")
		}
		if err != nil {
			l.Warn("player rejected by roster", zap.String("session_id", sessionID), zap.Error(err))
			res = NewValidationError(s.Workspace.Dialog.Errors())
			return nil
		}
		if !sub.OK() {
			l.Info("player validation failed", zap.String("session_id", sessionID), zap.Any("errors", sub.Errors))
			res = NewValidationError(sub.Errors)
			return nil
		}

		l.Info("player added",
			zap.String("session_id", sessionID),
			zap.String("name", sub.Value.Name),
			zap.Int("goal", sub.Value.Goal),
			zap.Int("players", s.Workspace.Form.Len()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, res
}

// Submit validates the posted roster. The players list of the session is
// never modified; the posted coach is kept so it survives a failed submit.
// Submitting while the player dialog is open fails with ErrorCodeDialogOpen.
func (r *RosterService) Submit(ctx context.Context, sessionID string, values url.Values) (*RosterState, *Error) {
	l := logger.FromContext(ctx)

	var res *Error
	state, err := r.view(ctx, sessionID, func(s *repository.Session, state *RosterState) error {
		sub, err := s.Workspace.Submit(values, func(team model.TeamSubmission) {
			if r.onSubmit != nil {
				r.onSubmit(ctx, team)
			}
		})
		if errors.Is(err, roster.ErrDialogOpen) {
			l.Warn("roster submitted while the player dialog is open", zap.String("session_id", sessionID))
			return NewError(ErrorCodeDialogOpen, "player dialog is open")
		}
		if err != nil {
			return err
		}
		if !sub.OK() {
			l.Info("team validation failed", zap.String("session_id", sessionID), zap.Any("errors", sub.Errors))
			state.FormErrors = sub.Errors
			res = NewValidationError(sub.Errors)
			return nil
		}

		state.Submitted = sub.Value
		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, res
}

// Validate runs the team schema over in-progress form data.
func (r *RosterService) Validate(ctx context.Context, values url.Values) schema.Submission[model.TeamSubmission] {
	sub := r.schema.ParseTeam(values)
	logger.FromContext(ctx).Debug("team validated", zap.String("status", string(sub.Status)))
	return sub
}

// SubmitTeam validates an already decoded team and reports it when valid.
func (r *RosterService) SubmitTeam(ctx context.Context, team *model.TeamSubmission) *Error {
	if errs := r.schema.ValidateTeam(team); len(errs) > 0 {
		logger.FromContext(ctx).Info("team validation failed", zap.Any("errors", errs))
		return NewValidationError(errs)
	}

	if r.onSubmit != nil {
		r.onSubmit(ctx, *team)
	}
	return nil
}

func (r *RosterService) view(ctx context.Context, sessionID string, mutate func(*repository.Session, *RosterState) error) (*RosterState, *Error) {
	l := logger.FromContext(ctx)

	state := &RosterState{}
	err := r.sessions.WithinSession(ctx, sessionID, func(s *repository.Session) error {
		if mutate != nil {
			if err := mutate(s, state); err != nil {
				return err
			}
		}
		snapshot(s, state)
		return nil
	})

	var res *Error
	switch {
	case err == nil:
		return state, nil
	case errors.As(err, &res):
		return nil, res
	case errors.Is(err, repository.ErrNotFound):
		l.Warn("session not found", zap.String("session_id", sessionID))
		return nil, NewError(ErrorCodeNotFound, "session not found")
	default:
		l.Error("failed to access session", zap.String("session_id", sessionID), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to access session")
	}
}

func snapshot(s *repository.Session, state *RosterState) {
	w := s.Workspace

	state.SessionID = s.ID
	state.Coach = w.Form.Coach()
	state.Entries = w.Form.Entries()
	state.Hidden = w.Form.HiddenFields()
	state.Dialog = DialogState{
		State:  w.Dialog.State(),
		Draft:  cloneValues(w.Dialog.Draft()),
		Errors: append([]schema.FieldError(nil), w.Dialog.Errors()...),
	}
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func (r *RosterService) WithSessionRepo(repo repository.SessionRepository) *RosterService {
	r.sessions = repo
	return r
}

func (r *RosterService) WithSubmissionHandler(h SubmissionHandler) *RosterService {
	r.onSubmit = h
	return r
}
