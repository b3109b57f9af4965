package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/feedback-app/internal/models"
	"github.com/Dan9191/feedback-app/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence the service depends on
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	DeleteUser(ctx context.Context, username string) error
	CreateFeedback(ctx context.Context, fb *models.Feedback) error
	FindFeedbackByID(ctx context.Context, id int64) (*models.Feedback, error)
	ListFeedbackByUsername(ctx context.Context, username string) ([]models.Feedback, error)
	UpdateFeedback(ctx context.Context, fb *models.Feedback) error
	DeleteFeedback(ctx context.Context, id int64) error
}

// Mailer delivers account notifications
type Mailer interface {
	SendWelcome(to, username, fullName string) error
}

// Service handles business logic
type Service struct {
	repo       Store
	mailer     Mailer
	log        *logrus.Logger
	bcryptCost int
	dummyHash  []byte
}

// NewService initializes a new service
func NewService(repo Store, mailer Mailer, log *logrus.Logger, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown so both failure paths cost the same.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	return &Service{repo: repo, mailer: mailer, log: log, bcryptCost: bcryptCost, dummyHash: dummy}
}

// RegisterInput is the validated registration form
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// FeedbackInput is the validated feedback form
type FeedbackInput struct {
	Title   string
	Content string
}

// Register creates a new user with hashed password
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hashedPassword),
		AccountID:    uuid.NewString(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Username)

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(user.Email, user.Username, user.FullName()); err != nil {
			s.log.Warnf("Welcome email for %s not sent: %v", user.Username, err)
		}
	}
	return user, nil
}

// Authenticate returns the user when the password matches the stored hash
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.log.Infof("User logged in: %s", user.Username)
	return user, nil
}

// User returns the owner's own account; actor is the session identity
func (s *Service) User(ctx context.Context, actor, username string) (*models.User, error) {
	if err := authorize(actor, username); err != nil {
		return nil, err
	}
	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

// UserPage returns the owner's account and feedback
func (s *Service) UserPage(ctx context.Context, actor, username string) (*models.User, []models.Feedback, error) {
	user, err := s.User(ctx, actor, username)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.ListFeedbackByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	return user, items, nil
}

// DeleteUser removes the owner's account and all of their feedback
func (s *Service) DeleteUser(ctx context.Context, actor, username string) error {
	if err := authorize(actor, username); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, username); err != nil {
		return mapNotFound(err)
	}
	s.log.Infof("User deleted: %s", username)
	return nil
}

// CreateFeedback adds feedback owned by username
func (s *Service) CreateFeedback(ctx context.Context, actor, username string, in FeedbackInput) (*models.Feedback, error) {
	if err := authorize(actor, username); err != nil {
		return nil, err
	}

	fb := &models.Feedback{Title: in.Title, Content: in.Content, Username: username}
	if err := s.repo.CreateFeedback(ctx, fb); err != nil {
		return nil, mapNotFound(err)
	}

	s.log.Infof("Feedback %d created by %s", fb.ID, username)
	return fb, nil
}

// Feedback loads a feedback entry for its owner
func (s *Service) Feedback(ctx context.Context, actor string, id int64) (*models.Feedback, error) {
	if actor == "" {
		return nil, ErrForbidden
	}
	fb, err := s.repo.FindFeedbackByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := authorize(actor, fb.Username); err != nil {
		return nil, err
	}
	return fb, nil
}

// UpdateFeedback overwrites title and content; ID and owner never change
func (s *Service) UpdateFeedback(ctx context.Context, actor string, id int64, in FeedbackInput) (*models.Feedback, error) {
	fb, err := s.Feedback(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	fb.Title = in.Title
	fb.Content = in.Content
	if err := s.repo.UpdateFeedback(ctx, fb); err != nil {
		return nil, mapNotFound(err)
	}

	s.log.Infof("Feedback %d updated by %s", fb.ID, actor)
	return fb, nil
}

// DeleteFeedback removes a feedback entry and returns what was deleted
func (s *Service) DeleteFeedback(ctx context.Context, actor string, id int64) (*models.Feedback, error) {
	fb, err := s.Feedback(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteFeedback(ctx, fb.ID); err != nil {
		return nil, mapNotFound(err)
	}

	s.log.Infof("Feedback %d deleted by %s", fb.ID, actor)
	return fb, nil
}

// authorize is the owner-only gate
func authorize(actor, owner string) error {
	if actor == "" || actor != owner {
		return ErrForbidden
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
