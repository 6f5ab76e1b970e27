package services

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/broker-one/core/internal/database"
	"github.com/broker-one/core/internal/database/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	return db
}

func TestProperty_PasswordsStoredHashed(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	db := newUserTestDB(t)
	svc := NewUserService(db)

	passwordGen := gen.SliceOfN(10, gen.AlphaChar()).Map(func(chars []rune) string {
		return string(chars)
	})
	usernameGen := gen.SliceOfN(8, gen.AlphaLowerChar()).Map(func(chars []rune) string {
		return string(chars)
	})

	counter := 0
	properties.Property("password_never_stored_as_plaintext", prop.ForAll(
		func(username, password string) bool {
			counter++
			username = uniqueUsername(username, counter)

			user, err := svc.CreateUser(username, password, "Broker")
			if err != nil {
				return false
			}

			if user.PasswordHash == password {
				return false
			}
			if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
				return false
			}

			// The round trip through Authenticate works
			authed, err := svc.Authenticate(username, password)
			if err != nil || authed.ID != user.ID {
				return false
			}

			// And a wrong password is refused
			_, err = svc.Authenticate(username, password+"x")
			return errors.Is(err, ErrInvalidCredentials)
		},
		usernameGen,
		passwordGen,
	))

	properties.TestingRun(t)
}

// uniqueUsername keeps generated usernames unique across property iterations
func uniqueUsername(base string, n int) string {
	return base + string(rune('a'+n%26)) + string(rune('a'+(n/26)%26))
}

func TestUserService_CreateUser(t *testing.T) {
	db := newUserTestDB(t)
	svc := NewUserService(db)

	if _, err := svc.CreateUser("broker", "short", "Broker"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short password: err = %v, want ErrPasswordTooShort", err)
	}

	user, err := svc.CreateUser("broker", "secret123", "Broker")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CreateUser("broker", "secret123", "Other"); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate: err = %v, want ErrUserAlreadyExists", err)
	}

	// Default settings are seeded with creation
	settings, err := svc.GetSettings(user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !settings.ValidateDrafts {
		t.Error("validation must default on")
	}
	if settings.AgentName != "Alex" {
		t.Errorf("agent name = %q, want the default", settings.AgentName)
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	db := newUserTestDB(t)
	svc := NewUserService(db)

	user, err := svc.CreateUser("broker", "secret123", "Broker")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ChangePassword(user.ID, "wrong", "newsecret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong old password: err = %v, want ErrInvalidCredentials", err)
	}
	if err := svc.ChangePassword(user.ID, "secret123", "tiny"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short new password: err = %v, want ErrPasswordTooShort", err)
	}

	if err := svc.ChangePassword(user.ID, "secret123", "newsecret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate("broker", "newsecret1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := svc.Authenticate("broker", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password still accepted after change")
	}
}

func TestUserService_ResetPassword(t *testing.T) {
	db := newUserTestDB(t)
	svc := NewUserService(db)

	if _, err := svc.CreateUser("broker", "secret123", "Broker"); err != nil {
		t.Fatal(err)
	}

	if err := svc.ResetPassword("nobody", "resetsecret"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: err = %v, want ErrUserNotFound", err)
	}
	if err := svc.ResetPassword("broker", "resetsecret"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Authenticate("broker", "resetsecret"); err != nil {
		t.Errorf("reset password rejected: %v", err)
	}
}

func TestUserService_Settings(t *testing.T) {
	db := newUserTestDB(t)
	svc := NewUserService(db)

	user, err := svc.CreateUser("broker", "secret123", "Broker")
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateSettings(user.ID, models.UserSettings{
		ValidateDrafts: false,
		AgentName:      "Morgan",
		Theme:          "light",
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.ValidateDrafts {
		t.Error("validation toggle not persisted")
	}
	if updated.AgentName != "Morgan" || updated.Theme != "light" {
		t.Errorf("settings = %+v", updated)
	}

	// Empty strings leave the existing values in place
	kept, err := svc.UpdateSettings(user.ID, models.UserSettings{AgentName: "", Theme: ""})
	if err != nil {
		t.Fatal(err)
	}
	if kept.AgentName != "Morgan" || kept.Theme != "light" {
		t.Errorf("blank fields must not clear settings: %+v", kept)
	}
}
