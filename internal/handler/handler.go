package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/feedback-app/internal/export"
	"github.com/Dan9191/feedback-app/internal/models"
	"github.com/Dan9191/feedback-app/internal/service"
	"github.com/Dan9191/feedback-app/internal/session"
)

type Handler struct {
	svc      *service.Service
	sessions *session.Manager
	log      *logrus.Logger
}

func NewHandler(svc *service.Service, sessions *session.Manager, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, log: log}
}

type formView struct {
	Form    string            `json:"form"`
	Values  map[string]string `json:"values,omitempty"`
	Errors  FieldErrors       `json:"errors,omitempty"`
	Flashes []string          `json:"flashes"`
}

type userView struct {
	User     *models.User      `json:"user"`
	Feedback []models.Feedback `json:"feedback"`
	Flashes  []string          `json:"flashes"`
}

type feedbackFormView struct {
	formView
	Owner      string `json:"owner"`
	FeedbackID int64  `json:"feedback_id,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Root sends visitors to the sign-up form
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/register", http.StatusFound)
}

// Register shows the sign-up form and creates users
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	if r.Method == http.MethodGet {
		h.writeJSON(w, http.StatusOK, formView{Form: "register", Flashes: h.popFlashes(w, sess)})
		return
	}

	form := parseRegisterForm(r)
	if errs := form.validate(); len(errs) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, formView{
			Form: "register", Values: form.values(), Errors: errs, Flashes: h.popFlashes(w, sess),
		})
		return
	}

	user, err := h.svc.Register(r.Context(), form.input())
	if errors.Is(err, service.ErrUsernameTaken) {
		h.writeJSON(w, http.StatusConflict, formView{
			Form:    "register",
			Values:  form.values(),
			Errors:  FieldErrors{"username": {"Username already taken."}},
			Flashes: h.popFlashes(w, sess),
		})
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	h.endSession(r, sess)
	sess.Login(user.Username, user.AccountID)
	sess.AddFlash("Account created successfully!")
	h.redirect(w, r, sess, userPath(user.Username))
}

// Login shows the login form and authenticates users
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	if r.Method == http.MethodGet {
		h.writeJSON(w, http.StatusOK, formView{Form: "login", Flashes: h.popFlashes(w, sess)})
		return
	}

	form := parseLoginForm(r)
	values := map[string]string{"username": form.Username}
	if errs := form.validate(); len(errs) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, formView{
			Form: "login", Values: values, Errors: errs, Flashes: h.popFlashes(w, sess),
		})
		return
	}

	user, err := h.svc.Authenticate(r.Context(), form.Username, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.writeJSON(w, http.StatusUnauthorized, formView{
			Form:    "login",
			Values:  values,
			Errors:  FieldErrors{"username": {"Invalid Username/Password"}},
			Flashes: h.popFlashes(w, sess),
		})
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}

	h.endSession(r, sess)
	sess.Login(user.Username, user.AccountID)
	sess.AddFlash("Welcome Back " + user.Username)
	h.redirect(w, r, sess, userPath(user.Username))
}

// Logout clears the session identity
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	h.endSession(r, sess)
	h.redirect(w, r, sess, "/")
}

// ShowUser renders the owner's page with their feedback
func (h *Handler) ShowUser(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	user, items, err := h.svc.UserPage(r.Context(), sess.Username, mux.Vars(r)["username"])
	if err != nil {
		h.handleError(w, r, sess, err, "Please login to view", "/")
		return
	}

	h.writeJSON(w, http.StatusOK, userView{User: user, Feedback: items, Flashes: h.popFlashes(w, sess)})
}

// DeleteUser removes the owner's account and logs them out
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	if err := h.svc.DeleteUser(r.Context(), sess.Username, mux.Vars(r)["username"]); err != nil {
		h.handleError(w, r, sess, err, "Not allowed to delete user", "/")
		return
	}

	h.endSession(r, sess)
	h.redirect(w, r, sess, "/login")
}

// AddFeedback shows the feedback form and creates feedback for the owner
func (h *Handler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	user, err := h.svc.User(r.Context(), sess.Username, mux.Vars(r)["username"])
	if err != nil {
		h.handleError(w, r, sess, err, "Must Log in to post feedback", "/")
		return
	}

	view := feedbackFormView{formView: formView{Form: "feedback"}, Owner: user.Username}

	if r.Method == http.MethodGet {
		view.Flashes = h.popFlashes(w, sess)
		h.writeJSON(w, http.StatusOK, view)
		return
	}

	form := parseFeedbackForm(r)
	if errs := form.validate(); len(errs) > 0 {
		view.Values, view.Errors, view.Flashes = form.values(), errs, h.popFlashes(w, sess)
		h.writeJSON(w, http.StatusUnprocessableEntity, view)
		return
	}

	if _, err := h.svc.CreateFeedback(r.Context(), sess.Username, user.Username, form.input()); err != nil {
		h.handleError(w, r, sess, err, "Must Log in to post feedback", "/")
		return
	}
	h.redirect(w, r, sess, userPath(user.Username))
}

// UpdateFeedback shows the edit form and saves changes for the owner
func (h *Handler) UpdateFeedback(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	id, ok := feedbackID(r)
	if !ok {
		h.notFound(w)
		return
	}

	fb, err := h.svc.Feedback(r.Context(), sess.Username, id)
	if err != nil {
		h.handleError(w, r, sess, err, "Must Log in to edit feedback", "/")
		return
	}

	view := feedbackFormView{formView: formView{Form: "edit_feedback"}, Owner: fb.Username, FeedbackID: fb.ID}

	if r.Method == http.MethodGet {
		view.Values = map[string]string{"title": fb.Title, "content": fb.Content}
		view.Flashes = h.popFlashes(w, sess)
		h.writeJSON(w, http.StatusOK, view)
		return
	}

	form := parseFeedbackForm(r)
	if errs := form.validate(); len(errs) > 0 {
		view.Values, view.Errors, view.Flashes = form.values(), errs, h.popFlashes(w, sess)
		h.writeJSON(w, http.StatusUnprocessableEntity, view)
		return
	}

	updated, err := h.svc.UpdateFeedback(r.Context(), sess.Username, id, form.input())
	if err != nil {
		h.handleError(w, r, sess, err, "Must Log in to edit feedback", "/")
		return
	}
	h.redirect(w, r, sess, userPath(updated.Username))
}

// DeleteFeedback removes feedback for the owner
func (h *Handler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	id, ok := feedbackID(r)
	if !ok {
		h.notFound(w)
		return
	}

	fb, err := h.svc.DeleteFeedback(r.Context(), sess.Username, id)
	if err != nil {
		h.handleError(w, r, sess, err, "Must be logged in to delete feedback", "/login")
		return
	}
	h.redirect(w, r, sess, userPath(fb.Username))
}

// ExportFeedback returns the owner's feedback as XML
func (h *Handler) ExportFeedback(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	user, items, err := h.svc.UserPage(r.Context(), sess.Username, mux.Vars(r)["username"])
	if err != nil {
		h.handleError(w, r, sess, err, "Please login to view", "/")
		return
	}

	body, err := export.FeedbackXML(user, items)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Healthz is a liveness probe
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleError answers service errors: forbidden flashes and redirects, missing is 404
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, sess *session.Session, err error, deniedMsg, deniedURL string) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		sess.AddFlash(deniedMsg)
		h.redirect(w, r, sess, deniedURL)
	case errors.Is(err, service.ErrNotFound):
		h.notFound(w)
	default:
		h.fail(w, err)
	}
}

func (h *Handler) endSession(r *http.Request, sess *session.Session) {
	if !sess.Authenticated() {
		return
	}
	if err := h.sessions.Revoke(r.Context(), sess); err != nil {
		h.log.Errorf("Failed to revoke session for %s: %v", sess.Username, err)
	}
	sess.Logout()
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, sess *session.Session, target string) {
	h.saveSession(w, sess)
	http.Redirect(w, r, target, http.StatusFound)
}

// popFlashes drains pending messages for display and persists the drained session
func (h *Handler) popFlashes(w http.ResponseWriter, sess *session.Session) []string {
	flashes := sess.PopFlashes()
	if len(flashes) == 0 {
		return []string{}
	}
	h.saveSession(w, sess)
	return flashes
}

func (h *Handler) saveSession(w http.ResponseWriter, sess *session.Session) {
	if err := h.sessions.Save(w, sess); err != nil {
		h.log.Errorf("Failed to save session: %v", err)
	}
}

func (h *Handler) notFound(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusNotFound, errorResponse{
		Error:   http.StatusText(http.StatusNotFound),
		Message: "The requested resource was not found",
	})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.log.Errorf("Request failed: %v", err)
	h.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   http.StatusText(http.StatusInternalServerError),
		Message: "Something went wrong",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func userPath(username string) string {
	return "/users/" + url.PathEscape(username)
}

func feedbackID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}
