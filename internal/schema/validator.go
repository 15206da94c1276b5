package schema

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/yakoovad/team-roster/internal/model"
)

// MaxPlayers bounds the players list accepted from a single form post.
const MaxPlayers = 500

// Numeric spellings a browser would accept for a number input. Go-only forms
// such as digit separators or hex floats are not numbers here.
var (
	decimalNumber  = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	prefixedNumber = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[bB][01]+|[oO][0-7]+)$`)
)

// raw form shapes: every value arrives as a string and is coerced afterwards.
type teamForm struct {
	Coach   string       `form:"coach"`
	Players []playerForm `form:"players"`
}

type playerForm struct {
	Name string `form:"name"`
	Goal string `form:"goal"`
}

type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
	decoder  *form.Decoder
}

func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, errors.Wrap(err, "register validation translations")
	}

	decoder := form.NewDecoder()
	decoder.SetMaxArraySize(MaxPlayers)

	return &Validator{
		validate: v,
		trans:    trans,
		decoder:  decoder,
	}, nil
}

func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// ParseTeam parses a roster form post against the team schema
// {coach: string, players: array<{name: string, goal: number}>}.
func (v *Validator) ParseTeam(values url.Values) Submission[model.TeamSubmission] {
	var raw teamForm
	errs := v.decode(&raw, values)

	team := &model.TeamSubmission{
		Coach:   raw.Coach,
		Players: make([]*model.PlayerRecord, 0, len(raw.Players)),
	}
	for i, p := range raw.Players {
		player, playerErrs := v.coercePlayer(fmt.Sprintf("players[%d].", i), p)
		team.Players = append(team.Players, player)
		errs = append(errs, playerErrs...)
	}

	errs = merge(errs, v.ValidateTeam(team))
	return newSubmission(values, team, errs)
}

// ParsePlayer parses a single player form post against the element schema
// of the team's players list.
func (v *Validator) ParsePlayer(values url.Values) Submission[model.PlayerRecord] {
	var raw playerForm
	errs := v.decode(&raw, values)

	player, playerErrs := v.coercePlayer("", raw)
	errs = append(errs, playerErrs...)

	errs = merge(errs, v.ValidatePlayer(player))
	return newSubmission(values, player, errs)
}

func (v *Validator) ValidateTeam(team *model.TeamSubmission) []FieldError {
	return v.Struct(team)
}

func (v *Validator) ValidatePlayer(player *model.PlayerRecord) []FieldError {
	return v.Struct(player)
}

func (v *Validator) decode(dst any, values url.Values) []FieldError {
	err := v.decoder.Decode(dst, values)
	if err == nil {
		return nil
	}

	var decodeErrs form.DecodeErrors
	if !errors.As(err, &decodeErrs) {
		return []FieldError{{Message: err.Error()}}
	}

	paths := make([]string, 0, len(decodeErrs))
	for path := range decodeErrs {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	out := make([]FieldError, 0, len(paths))
	for _, path := range paths {
		out = append(out, FieldError{Path: path, Message: decodeErrs[path].Error()})
	}
	return out
}

func (v *Validator) coercePlayer(prefix string, raw playerForm) (*model.PlayerRecord, []FieldError) {
	goal, msg := coerceGoal(raw.Goal)
	player := &model.PlayerRecord{Name: raw.Name, Goal: goal}
	if msg == "" {
		return player, nil
	}
	return player, []FieldError{{Path: prefix + "goal", Message: msg}}
}

func coerceGoal(raw string) (int, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, "goal is a required field"
	}

	var (
		f   float64
		err error
	)
	switch {
	case decimalNumber.MatchString(s):
		f, err = cast.ToFloat64E(s)
	case prefixedNumber.MatchString(s):
		var n int64
		n, err = cast.ToInt64E(s)
		f = float64(n)
	default:
		err = errors.Errorf("%q is not a number", s)
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "goal must be a number"
	}
	if f != math.Trunc(f) {
		return 0, "goal must be a whole number"
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, "goal is out of range"
	}
	return int(f), ""
}

// Struct validates any struct carrying validate tags and reports errors by
// form path.
func (v *Validator) Struct(s any) []FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, FieldError{
			Path:    fieldPath(fe.Namespace()),
			Message: fe.Translate(v.trans),
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace:
// "TeamSubmission.players[0].name" becomes "players[0].name".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// merge appends structural errors, skipping paths that already failed coercion.
func merge(coerced, structural []FieldError) []FieldError {
	if len(coerced) == 0 {
		return structural
	}

	seen := make(map[string]struct{}, len(coerced))
	for _, fe := range coerced {
		seen[fe.Path] = struct{}{}
	}

	out := coerced
	for _, fe := range structural {
		if _, ok := seen[fe.Path]; ok {
			continue
		}
		out = append(out, fe)
	}
	return out
}
