package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/yakoovad/team-roster/internal/model"
	"github.com/yakoovad/team-roster/internal/schema"
	"github.com/yakoovad/team-roster/internal/service"
	"github.com/yakoovad/team-roster/pkg/logger"
	"go.uber.org/zap"
)

const (
	csrfFormField    = "_csrf"
	maxFormBodyBytes = "256K"
)

type Options struct {
	SessionCookie string
	SecureCookie  bool
	CSRF          bool
}

type Handler struct {
	roster    *service.RosterService
	validator *schema.Validator
	renderer  echo.Renderer

	healthChecker HealthChecker

	opts   Options
	logger *zap.Logger
}

func NewHandler(logger *zap.Logger, opts Options) *Handler {
	if opts.SessionCookie == "" {
		opts.SessionCookie = "roster_session"
	}
	return &Handler{
		opts:   opts,
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithRosterService(roster *service.RosterService) *Handler {
	h.roster = roster
	return h
}

func (h *Handler) WithValidator(v *schema.Validator) *Handler {
	h.validator = v
	return h
}

func (h *Handler) WithRenderer(r echo.Renderer) *Handler {
	h.renderer = r
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator(h.validator)
	e.Renderer = h.renderer
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.BodyLimit(maxFormBodyBytes))

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	pages := e.Group("")
	if h.opts.CSRF {
		pages.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:" + csrfFormField,
			CookiePath:     "/",
			CookieHTTPOnly: true,
			CookieSecure:   h.opts.SecureCookie,
			CookieSameSite: http.SameSiteLaxMode,
		}))
	}

	pages.GET("/", h.Index)
	pages.POST("/roster", h.SubmitRoster)
	pages.POST("/roster/dialog", h.OpenDialog)
	pages.POST("/roster/dialog/close", h.CloseDialog)
	pages.POST("/roster/players", h.AddPlayer)
	pages.POST("/roster/validate", h.ValidateRoster)

	e.POST("/api/team", h.SubmitTeam)
}

func (h *Handler) Index(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	state, err := h.roster.Start(e.Request().Context(), h.sessionID(e))
	if err != nil {
		l.Error("failed to start roster session", zap.Any("error", err))
		return h.pageError(e, err)
	}

	h.setSession(e, state.SessionID)

	return h.renderRoster(e, http.StatusOK, state)
}

func (h *Handler) OpenDialog(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	values, decodeErr := h.formValues(e)
	if decodeErr != nil {
		return h.pageError(e, decodeErr)
	}

	sessionID := h.sessionID(e)
	l.Info("opening player dialog", zap.String("session_id", sessionID))

	state, err := h.roster.OpenDialog(e.Request().Context(), sessionID, values.Get("coach"))
	if err != nil {
		l.Error("failed to open player dialog", zap.String("session_id", sessionID), zap.Any("error", err))
		return h.pageError(e, err)
	}

	return h.renderRoster(e, http.StatusOK, state)
}

func (h *Handler) CloseDialog(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	sessionID := h.sessionID(e)
	l.Info("closing player dialog", zap.String("session_id", sessionID))

	state, err := h.roster.CloseDialog(e.Request().Context(), sessionID)
	if err != nil {
		l.Error("failed to close player dialog", zap.String("session_id", sessionID), zap.Any("error", err))
		return h.pageError(e, err)
	}

	return h.renderRoster(e, http.StatusOK, state)
}

func (h *Handler) AddPlayer(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	values, decodeErr := h.formValues(e)
	if decodeErr != nil {
		return h.pageError(e, decodeErr)
	}

	sessionID := h.sessionID(e)
	l.Info("adding player", zap.String("session_id", sessionID))

	state, err := h.roster.AddPlayer(e.Request().Context(), sessionID, values)
	if err != nil && state == nil {
		l.Error("failed to add player", zap.String("session_id", sessionID), zap.Any("error", err))
		return h.pageError(e, err)
	}
	if err != nil {
		return h.renderRoster(e, http.StatusUnprocessableEntity, state)
	}

	return h.renderRoster(e, http.StatusOK, state)
}

func (h *Handler) SubmitRoster(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	values, decodeErr := h.formValues(e)
	if decodeErr != nil {
		return h.pageError(e, decodeErr)
	}

	sessionID := h.sessionID(e)
	l.Info("submitting roster", zap.String("session_id", sessionID))

	state, err := h.roster.Submit(e.Request().Context(), sessionID, values)
	if err != nil && state == nil {
		l.Error("failed to submit roster", zap.String("session_id", sessionID), zap.Any("error", err))
		return h.pageError(e, err)
	}
	if err != nil {
		return h.renderRoster(e, http.StatusUnprocessableEntity, state)
	}

	return h.renderRoster(e, http.StatusOK, state)
}

// ValidateRoster validates in-progress roster form data without submitting it.
func (h *Handler) ValidateRoster(e echo.Context) error {
	values, decodeErr := h.formValues(e)
	if decodeErr != nil {
		return h.transportError(e, decodeErr)
	}

	sub := h.roster.Validate(e.Request().Context(), values)
	if !sub.OK() {
		return e.JSON(http.StatusUnprocessableEntity, sub)
	}
	return e.JSON(http.StatusOK, sub)
}

func (h *Handler) SubmitTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	team := &model.TeamSubmission{}

	if err := h.decodeRequest(e, team); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}
	if team.Players == nil {
		team.Players = []*model.PlayerRecord{}
	}

	l.Info("submitting team", zap.String("coach", team.Coach), zap.Int("players", len(team.Players)))

	if err := h.roster.SubmitTeam(e.Request().Context(), team); err != nil {
		l.Error("failed to submit team", zap.String("coach", team.Coach), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) decodeRequest(e echo.Context, req *model.TeamSubmission) *service.Error {
	err := ProcessRequest(e, req,
		func(e echo.Context, req *model.TeamSubmission) error {
			if err := e.Bind(req); err != nil {
				return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
			}
			return nil
		},
		func(e echo.Context, req *model.TeamSubmission) error {
			if err := e.Validate(req); err != nil {
				var verr *schema.ValidationError
				if errors.As(err, &verr) {
					return service.NewValidationError(verr.Fields)
				}
				return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
			}
			return nil
		},
	)
	if err == nil {
		return nil
	}

	var res *service.Error
	if errors.As(err, &res) {
		return res
	}
	return service.NewError(service.ErrorCodeUnspecified, err.Error())
}

func (h *Handler) formValues(e echo.Context) (url.Values, *service.Error) {
	values, err := e.FormParams()
	if err != nil {
		return nil, service.NewError(service.ErrorCodeInvalidBody, "invalid form body")
	}
	return values, nil
}

func (h *Handler) renderRoster(e echo.Context, status int, state *service.RosterState) error {
	token, _ := e.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return e.Render(status, rosterTemplate, newRosterPage(state, token))
}

func (h *Handler) sessionID(e echo.Context) string {
	cookie, err := e.Cookie(h.opts.SessionCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func (h *Handler) setSession(e echo.Context, id string) {
	e.SetCookie(&http.Cookie{
		Name:     h.opts.SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// pageError answers a failed page action. Stale sessions and double submits
// are sent back to the roster page.
func (h *Handler) pageError(e echo.Context, err *service.Error) error {
	switch err.Code {
	case service.ErrorCodeNotFound, service.ErrorCodeDialogClosed:
		return e.Redirect(http.StatusSeeOther, "/")
	default:
		return e.String(statusFor(err.Code), err.Message)
	}
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := struct {
		Error *service.Error `json:"error"`
	}{Error: err}

	return e.JSON(statusFor(err.Code), response)
}

func statusFor(code service.ErrorCode) int {
	switch code {
	case service.ErrorCodeNotFound:
		return http.StatusNotFound
	case service.ErrorCodeInvalidBody:
		return http.StatusBadRequest
	case service.ErrorCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case service.ErrorCodeDialogClosed, service.ErrorCodeDialogOpen:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
