package handler

import (
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Dan9191/feedback-app/internal/service"
)

// FieldErrors maps form fields to their validation messages
type FieldErrors map[string][]string

func (fe FieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (fe FieldErrors) required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		fe.add(field, "This field is required.")
		return false
	}
	return true
}

func (fe FieldErrors) maxLen(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		fe.add(field, "Must be at most "+strconv.Itoa(max)+" characters.")
	}
}

const maxPasswordBytes = 72

type registerForm struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

func parseRegisterForm(r *http.Request) registerForm {
	return registerForm{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Password:  r.PostFormValue("password"),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
	}
}

func (f registerForm) validate() FieldErrors {
	errs := FieldErrors{}
	if errs.required("username", f.Username) {
		errs.maxLen("username", f.Username, 20)
		if strings.ContainsAny(f.Username, "/?#") {
			errs.add("username", "Must not contain /, ? or #.")
		}
		if f.Username == "." || f.Username == ".." {
			errs.add("username", "Invalid username.")
		}
	}
	// bcrypt only hashes the first 72 bytes and refuses anything longer.
	if errs.required("password", f.Password) && len(f.Password) > maxPasswordBytes {
		errs.add("password", "Must be at most "+strconv.Itoa(maxPasswordBytes)+" bytes.")
	}
	if errs.required("email", f.Email) {
		errs.maxLen("email", f.Email, 50)
		if addr, err := mail.ParseAddress(f.Email); err != nil || addr.Address != f.Email {
			errs.add("email", "Invalid email address.")
		}
	}
	if errs.required("first_name", f.FirstName) {
		errs.maxLen("first_name", f.FirstName, 30)
	}
	if errs.required("last_name", f.LastName) {
		errs.maxLen("last_name", f.LastName, 30)
	}
	return errs
}

func (f registerForm) input() service.RegisterInput {
	return service.RegisterInput{
		Username:  f.Username,
		Password:  f.Password,
		Email:     f.Email,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	}
}

// values echoes the form back without the password
func (f registerForm) values() map[string]string {
	return map[string]string{
		"username":   f.Username,
		"email":      f.Email,
		"first_name": f.FirstName,
		"last_name":  f.LastName,
	}
}

type loginForm struct {
	Username string
	Password string
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

func (f loginForm) validate() FieldErrors {
	errs := FieldErrors{}
	errs.required("username", f.Username)
	errs.required("password", f.Password)
	return errs
}

type feedbackForm struct {
	Title   string
	Content string
}

func parseFeedbackForm(r *http.Request) feedbackForm {
	return feedbackForm{
		Title:   strings.TrimSpace(r.PostFormValue("title")),
		Content: strings.TrimSpace(r.PostFormValue("content")),
	}
}

func (f feedbackForm) validate() FieldErrors {
	errs := FieldErrors{}
	if errs.required("title", f.Title) {
		errs.maxLen("title", f.Title, 100)
	}
	errs.required("content", f.Content)
	return errs
}

func (f feedbackForm) input() service.FeedbackInput {
	return service.FeedbackInput{Title: f.Title, Content: f.Content}
}

func (f feedbackForm) values() map[string]string {
	return map[string]string{"title": f.Title, "content": f.Content}
}
