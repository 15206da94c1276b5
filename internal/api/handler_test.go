package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/team-roster/internal/model"
	"github.com/yakoovad/team-roster/internal/repository"
	"github.com/yakoovad/team-roster/internal/roster"
	"github.com/yakoovad/team-roster/internal/schema"
	"github.com/yakoovad/team-roster/internal/service"
	"go.uber.org/zap"
)

const testCookie = "roster_session"

type testServer struct {
	e         *echo.Echo
	submitted []model.TeamSubmission
	cookie    *http.Cookie
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	v := schema.MustNew()
	sessions := repository.NewMemorySessionRepository(func() *roster.Workspace {
		return roster.NewWorkspace(v)
	})

	ts := &testServer{e: echo.New()}

	svc := service.NewRosterService(v).
		WithSessionRepo(sessions).
		WithSubmissionHandler(func(_ context.Context, team model.TeamSubmission) {
			ts.submitted = append(ts.submitted, team)
		})

	renderer, err := NewTemplateRenderer()
	require.NoError(t, err)

	NewHandler(zap.NewNop(), opts).
		WithRosterService(svc).
		WithValidator(v).
		WithRenderer(renderer).
		WithHealthChecker(MustNewHealthChecker("test", SessionStoreCheck(sessions))).
		RegisterRoutes(ts.e)

	return ts
}

func (ts *testServer) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if ts.cookie != nil {
		req.AddCookie(ts.cookie)
	}

	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			ts.cookie = c
		}
	}
	return rec
}

func (ts *testServer) doJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

var hiddenInput = regexp.MustCompile(`<input type="hidden" name="(players\[\d+\]\.\w+)" value="([^"]*)">`)

func hiddenValues(body string) url.Values {
	values := url.Values{}
	for _, m := range hiddenInput.FindAllStringSubmatch(body, -1) {
		values.Set(m[1], m[2])
	}
	return values
}

func TestHandler_Index(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.cookie)
	assert.NotEmpty(t, ts.cookie.Value)
	assert.True(t, ts.cookie.HttpOnly)
	assert.Contains(t, rec.Body.String(), "Add a player")
	assert.NotContains(t, rec.Body.String(), "<dialog open")
	assert.Contains(t, rec.Body.String(), `data-validate="/roster/validate"`)
	assert.Empty(t, hiddenValues(rec.Body.String()))

	first := ts.cookie.Value
	ts.do(http.MethodGet, "/", nil)
	assert.Equal(t, first, ts.cookie.Value)
}

func TestHandler_AddPlayerFlow(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(http.MethodGet, "/", nil)

	rec := ts.do(http.MethodPost, "/roster/dialog", url.Values{"coach": {"Jo"}, "intent": {"open-dialog"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<dialog open")
	assert.Contains(t, body, "<main inert")
	assert.Contains(t, body, `value="Jo"`)

	rec = ts.do(http.MethodPost, "/roster/players", url.Values{"name": {""}, "goal": {"2"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "<dialog open")
	assert.Contains(t, body, "name is a required field")
	assert.Empty(t, hiddenValues(body))

	rec = ts.do(http.MethodPost, "/roster/players", url.Values{"name": {"Alice"}, "goal": {"3"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.NotContains(t, body, "<dialog open")
	assert.Contains(t, body, "Alice with 3 goals")
	assert.Equal(t, url.Values{
		"players[0].name": {"Alice"},
		"players[0].goal": {"3"},
	}, hiddenValues(body))

	// A second submit to the now closed dialog changes nothing.
	rec = ts.do(http.MethodPost, "/roster/players", url.Values{"name": {"Bob"}, "goal": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = ts.do(http.MethodGet, "/", nil)
	assert.Len(t, hiddenValues(rec.Body.String()), 2)
}

func TestHandler_CloseDialogDiscardsDraft(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(http.MethodGet, "/", nil)
	ts.do(http.MethodPost, "/roster/dialog", url.Values{"coach": {"Jo"}})

	rec := ts.do(http.MethodPost, "/roster/players", url.Values{"name": {"Alice"}, "goal": {"many"}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "goal must be a number")

	rec = ts.do(http.MethodPost, "/roster/dialog/close", url.Values{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<dialog open")
	assert.Empty(t, hiddenValues(rec.Body.String()))

	rec = ts.do(http.MethodPost, "/roster/dialog", url.Values{"coach": {"Jo"}})
	assert.NotContains(t, rec.Body.String(), "goal must be a number")
	assert.NotContains(t, rec.Body.String(), `value="many"`)
}

func TestHandler_SubmitRoster(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(http.MethodGet, "/", nil)

	for _, p := range []url.Values{
		{"name": {"Bo"}, "goal": {"1"}},
		{"name": {"Cy"}, "goal": {"0"}},
	} {
		ts.do(http.MethodPost, "/roster/dialog", url.Values{"coach": {"Jo"}})
		rec := ts.do(http.MethodPost, "/roster/players", p)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := ts.do(http.MethodGet, "/", nil)
	form := hiddenValues(rec.Body.String())
	form.Set("coach", "Jo")

	rec = ts.do(http.MethodPost, "/roster", form)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="submitted"`)

	require.Len(t, ts.submitted, 1)
	assert.Equal(t, model.TeamSubmission{
		Coach: "Jo",
		Players: []*model.PlayerRecord{
			{Name: "Bo", Goal: 1},
			{Name: "Cy", Goal: 0},
		},
	}, ts.submitted[0])
}

func TestHandler_SubmitRosterWhileDialogOpen(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(http.MethodGet, "/", nil)

	rec := ts.do(http.MethodPost, "/roster/dialog", url.Values{"coach": {"Jo"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/roster", url.Values{"coach": {"Jo"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, ts.submitted)

	rec = ts.do(http.MethodGet, "/", nil)
	assert.Contains(t, rec.Body.String(), "<dialog open")

	ts.do(http.MethodPost, "/roster/dialog/close", url.Values{})
	rec = ts.do(http.MethodPost, "/roster", url.Values{"coach": {"Jo"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ts.submitted, 1)
}

func TestHandler_SubmitRosterInvalid(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(http.MethodGet, "/", nil)

	rec := ts.do(http.MethodPost, "/roster", url.Values{
		"coach":           {""},
		"players[0].name": {"Bo"},
		"players[0].goal": {"abc"},
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "coach is a required field")
	assert.Contains(t, body, "goal must be a number")
	assert.NotContains(t, body, `id="submitted"`)
	assert.Empty(t, ts.submitted)
}

func TestHandler_StaleSessionRedirects(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.cookie = &http.Cookie{Name: testCookie, Value: "unknown"}

	rec := ts.do(http.MethodPost, "/roster/players", url.Values{"name": {"Alice"}, "goal": {"3"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	rec = ts.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "unknown", ts.cookie.Value)
}

func TestHandler_ValidateRoster(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name           string
		form           url.Values
		expectedStatus int
		expectedErrors []schema.FieldError
	}{
		{
			name:           "valid",
			form:           url.Values{"coach": {"Jo"}, "players[0].name": {"Bo"}, "players[0].goal": {"2"}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid",
			form:           url.Values{"coach": {"Jo"}, "players[0].name": {""}, "players[0].goal": {"2"}},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedErrors: []schema.FieldError{{Path: "players[0].name", Message: "name is a required field"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/roster/validate", tt.form)
			require.Equal(t, tt.expectedStatus, rec.Code)

			var got schema.Submission[model.TeamSubmission]
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.expectedErrors, got.Errors)
			if tt.expectedErrors == nil {
				assert.Equal(t, schema.StatusSuccess, got.Status)
				require.NotNil(t, got.Value)
				assert.Equal(t, "Jo", got.Value.Coach)
			} else {
				assert.Equal(t, schema.StatusError, got.Status)
			}
		})
	}
}

func TestHandler_SubmitTeam(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   service.ErrorCode
	}{
		{
			name:           "valid",
			body:           `{"coach":"Jo","players":[{"name":"Alice","goal":3}]}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "valid without players",
			body:           `{"coach":"Jo"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid player",
			body:           `{"coach":"Jo","players":[{"name":"","goal":-1}]}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   service.ErrorCodeValidationFailed,
		},
		{
			name:           "malformed body",
			body:           `{"coach":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.ErrorCodeInvalidBody,
		},
		{
			name:           "goal of the wrong type",
			body:           `{"coach":"Jo","players":[{"name":"Alice","goal":"three"}]}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   service.ErrorCodeInvalidBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Options{})

			rec := ts.doJSON("/api/team", tt.body)
			require.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedCode == "" {
				assert.Len(t, ts.submitted, 1)
				var got model.TeamSubmission
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, "Jo", got.Coach)
				assert.NotNil(t, got.Players)
				return
			}

			var resp struct {
				Error service.Error `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedCode, resp.Error.Code)
			assert.Empty(t, ts.submitted)
		})
	}
}

func TestHandler_Health(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_CSRF(t *testing.T) {
	ts := newTestServer(t, Options{CSRF: true})

	rec := ts.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="_csrf"`)

	rec = ts.do(http.MethodPost, "/roster/dialog", url.Values{"coach": {"Jo"}})
	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	assert.NotContains(t, rec.Body.String(), "<dialog open")
}
