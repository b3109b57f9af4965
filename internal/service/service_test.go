package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/feedback-app/internal/repository"
	"github.com/Dan9191/feedback-app/internal/service"
	"github.com/Dan9191/feedback-app/internal/testutil"
)

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) SendWelcome(to, username, fullName string) error {
	m.sent = append(m.sent, to)
	return m.err
}

func newTestService(t *testing.T) (*service.Service, *repository.Repository, *recordingMailer) {
	t.Helper()
	repo := repository.NewRepository(testutil.SetupTestDB(t))
	mailer := &recordingMailer{}
	return service.NewService(repo, mailer, testutil.NewLogger(), bcrypt.MinCost), repo, mailer
}

func register(t *testing.T, svc *service.Service, username, password string) {
	t.Helper()
	_, err := svc.Register(context.Background(), service.RegisterInput{
		Username:  username,
		Password:  password,
		Email:     username + "@example.com",
		FirstName: "First",
		LastName:  "Last",
	})
	require.NoError(t, err)
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, repo, mailer := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice", "s3cret")

	stored, err := repo.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))
	assert.Equal(t, []string{"alice@example.com"}, mailer.sent)
	assert.NotEmpty(t, stored.AccountID)
}

func TestReRegistrationGetsNewAccountID(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "bob", "pw")
	first, err := repo.FindUserByUsername(ctx, "bob")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, "bob", "bob"))
	register(t, svc, "bob", "pw")
	second, err := repo.FindUserByUsername(ctx, "bob")
	require.NoError(t, err)

	assert.NotEqual(t, first.AccountID, second.AccountID)
}

func TestRegisterTwiceFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "alice", "first")

	_, err := svc.Register(ctx, service.RegisterInput{Username: "alice", Password: "second", Email: "a2@example.com"})
	assert.ErrorIs(t, err, service.ErrUsernameTaken)

	_, err = svc.Authenticate(ctx, "alice", "first")
	assert.NoError(t, err, "first registration still owns the name")

	stored, err := repo.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", stored.Email)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	svc, _, mailer := newTestService(t)
	mailer.err = errors.New("smtp down")

	register(t, svc, "alice", "pw")
	assert.Len(t, mailer.sent, 1)
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "alice", "correct horse")

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"matching password", "alice", "correct horse", nil},
		{"wrong password", "alice", "battery staple", service.ErrInvalidCredentials},
		{"empty password", "alice", "", service.ErrInvalidCredentials},
		{"unknown user", "mallory", "correct horse", service.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, user.Username)
		})
	}
}

func TestUserPageOwnerOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "alice", "pw")
	register(t, svc, "bob", "pw")

	_, err := svc.CreateFeedback(ctx, "alice", "alice", service.FeedbackInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	user, items, err := svc.UserPage(ctx, "alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Len(t, items, 1)

	_, _, err = svc.UserPage(ctx, "bob", "alice")
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, _, err = svc.UserPage(ctx, "", "alice")
	assert.ErrorIs(t, err, service.ErrForbidden)

	// The gate runs before lookup, so unknown users look the same as others' pages.
	_, _, err = svc.UserPage(ctx, "bob", "ghost")
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestFeedbackOwnerOnly(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "alice", "pw")
	register(t, svc, "bob", "pw")

	fb, err := svc.CreateFeedback(ctx, "alice", "alice", service.FeedbackInput{Title: "mine", Content: "c"})
	require.NoError(t, err)

	_, err = svc.CreateFeedback(ctx, "bob", "alice", service.FeedbackInput{Title: "x", Content: "x"})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.Feedback(ctx, "bob", fb.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.UpdateFeedback(ctx, "bob", fb.ID, service.FeedbackInput{Title: "pwned", Content: "x"})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.DeleteFeedback(ctx, "bob", fb.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = svc.DeleteFeedback(ctx, "", fb.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	stored, err := repo.FindFeedbackByID(ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", stored.Title)

	items, err := repo.ListFeedbackByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestUpdateFeedbackKeepsIdentity(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "bob", "pw")

	fb, err := svc.CreateFeedback(ctx, "bob", "bob", service.FeedbackInput{Title: "hi", Content: "hello"})
	require.NoError(t, err)

	updated, err := svc.UpdateFeedback(ctx, "bob", fb.ID, service.FeedbackInput{Title: "hi2", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, fb.ID, updated.ID)
	assert.Equal(t, "bob", updated.Username)

	stored, err := repo.FindFeedbackByID(ctx, fb.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi2", stored.Title)
	assert.Equal(t, "hello", stored.Content)
	assert.Equal(t, "bob", stored.Username)
}

func TestMissingFeedback(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "bob", "pw")

	_, err := svc.Feedback(ctx, "bob", 999)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.UpdateFeedback(ctx, "bob", 999, service.FeedbackInput{Title: "t", Content: "c"})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.DeleteFeedback(ctx, "bob", 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "alice", "pw")
	register(t, svc, "bob", "pw")
	_, err := svc.CreateFeedback(ctx, "alice", "alice", service.FeedbackInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteUser(ctx, "bob", "alice"), service.ErrForbidden)
	_, err = repo.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, "alice", "alice"))

	items, err := repo.ListFeedbackByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.Authenticate(ctx, "alice", "pw")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	assert.ErrorIs(t, svc.DeleteUser(ctx, "alice", "alice"), service.ErrNotFound)
}
