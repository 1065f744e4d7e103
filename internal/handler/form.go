package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// signInForm はサインイン画面の入力。
type signInForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// signUpForm はユーザー登録画面の入力。
type signUpForm struct {
	Name                 string `form:"name" validate:"required"`
	Email                string `form:"email" validate:"required,email"`
	Password             string `form:"password" validate:"required"`
	PasswordConfirmation string `form:"password_confirmation" validate:"required"`
}

// formValidator はフォームの必須チェックを行う。
// エラーメッセージにはformタグの名前を読みやすくして使う。
type formValidator struct {
	validate *validator.Validate
}

func newFormValidator() *formValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &formValidator{validate: v}
}

// check は入力を検証し、問題があれば ", " 区切りのメッセージを返す。問題がなければ空文字。
func (fv *formValidator) check(form any) string {
	err := fv.validate.Struct(form)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid input"
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := fv.fieldName(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" is not a valid email address")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, ", ")
}

// fieldName は password_confirmation を Password Confirmation のように整形する。
// Caserはゴルーチン間で共有できないため呼び出しごとに生成する。
func (fv *formValidator) fieldName(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}
