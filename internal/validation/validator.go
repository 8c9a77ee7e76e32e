// Package validation implements the field rules films and users must satisfy
// before they are stored. Rules are declared as go-playground/validator tags on
// the model structs; violations come back in field declaration order, which is
// also the order in which they take precedence.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/filmorate/backend/internal/models"
)

// Messages returned to clients. They are part of the public API and must not change.
const (
	MsgFilmNameBlank       = "Название фильма не может быть пустым"
	MsgFilmDescriptionLong = "Максимальная длина описания 200 символов"
	MsgFilmReleaseDate     = "Дата релиза не может быть раньше 28 декабря 1895 года"
	MsgFilmDuration        = "Продолжительность фильма должна быть положительным числом"
	MsgFilmMPA             = "Рейтинг MPA должен быть одним из: G, PG, PG-13, R, NC-17"
	MsgUserEmail           = "Электронная почта не может быть пустой и должна содержать символ @"
	MsgUserLogin           = "Логин не может быть пустым и содержать пробелы"
	MsgUserBirthday        = "Дата рождения не может быть в будущем"
	MsgIDRequired          = "Id должен быть указан"
	MsgIDForbidden         = "Id не должен быть указан при создании"
	MsgSelfFriend          = "Пользователь не может добавить в друзья самого себя"
	MsgIDNotNumeric        = "Идентификатор должен быть целым числом"
	MsgCountNotNumeric     = "Параметр count должен быть целым числом"
	MsgMalformedBody       = "Тело запроса не является корректным JSON"
)

// EarliestReleaseDate is the first public film screening; nothing may be released before it.
var EarliestReleaseDate = models.NewDate(1895, time.December, 28)

// Violation describes a single rejected field.
type Violation struct {
	Field   string `json:"fieldName"`
	Message string `json:"message"`
}

// messages maps a validator namespace (type name plus JSON field name) to the client message.
var messages = map[string]string{
	"Film.name":        MsgFilmNameBlank,
	"Film.description": MsgFilmDescriptionLong,
	"Film.releaseDate": MsgFilmReleaseDate,
	"Film.duration":    MsgFilmDuration,
	"Film.mpa":         MsgFilmMPA,
	"User.email":       MsgUserEmail,
	"User.login":       MsgUserLogin,
	"User.birthday":    MsgUserBirthday,
}

// Gate validates films and users. It is safe for concurrent use.
type Gate struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewGate builds a Gate. now supplies "today" for birthday checks and defaults to time.Now.
func NewGate(now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}

	g := &Gate{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      now,
	}

	g.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	mustRegister(g.validate, "notblank", notBlank)
	mustRegister(g.validate, "nowhitespace", noWhitespace)
	mustRegister(g.validate, "releasedate", g.releaseDate)
	mustRegister(g.validate, "notfuture", g.notFuture)

	return g
}

// ValidateFilm returns the film's violations in precedence order, or nil.
func (g *Gate) ValidateFilm(film models.Film) []Violation {
	return g.run(film)
}

// ValidateUser returns the user's violations in precedence order, or nil. A
// blank display name is replaced with the login before the remaining rules
// run; that substitution is never reported as a violation.
func (g *Gate) ValidateUser(user *models.User) []Violation {
	if user == nil {
		return []Violation{{Field: "body", Message: "user is required"}}
	}
	if strings.TrimSpace(user.Name) == "" {
		user.Name = user.Login
	}
	return g.run(user)
}

func (g *Gate) run(target any) []Violation {
	err := g.validate.Struct(target)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Field: "body", Message: err.Error()}}
	}

	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		message, ok := messages[fe.Namespace()]
		if !ok {
			message = fe.Error()
		}
		violations = append(violations, Violation{Field: fe.Field(), Message: message})
	}
	return violations
}

// mustRegister panics when a rule cannot be registered; the tags are fixed at
// compile time, so a failure is a programming error.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func noWhitespace(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
}

func (g *Gate) releaseDate(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(models.Date)
	if !ok || d.IsZero() {
		return false
	}
	return !d.Before(EarliestReleaseDate)
}

func (g *Gate) notFuture(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(models.Date)
	if !ok {
		return false
	}
	if d.IsZero() {
		return true
	}
	return !d.After(models.DateOf(g.now().UTC()))
}
