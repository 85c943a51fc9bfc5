package models

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	UnauthenticatedError = errors.New("Unauthorized")
	UserNotFoundError    = errors.New("Invalid userId.")
	InvalidEmailError    = errors.New("Email required")
)

// User models the User object.
type User struct {
	Id        uint32    `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Name      string    `json:"name"`
	AvatarUrl string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User.TableName() is for letting Gorm know the correct table name.
func (User) TableName() string {
	return "users"
}

// UpsertUser creates the user with the given email if it doesn't exist yet.
// Otherwise it refreshes the profile fields the auth provider supplied; empty
// name or avatarUrl leave the stored values untouched.
func UpsertUser(email, name, avatarUrl string) (*User, error) {
	var l = logger.WithFields(logrus.Fields{
		"method":      "UpsertUser",
		"param_email": email,
	})

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, InvalidEmailError
	}

	db := getDB()

	u := &User{}
	result := db.Where("email = ?", email).First(u)
	switch {
	case result.RecordNotFound():
		u = &User{
			Email:     email,
			Name:      name,
			AvatarUrl: avatarUrl,
		}
		err := db.Create(u).Error
		if err == nil {
			l.Infof("Created user %d", u.Id)
			return u, nil
		}
		if !isUniqueViolation(err) {
			l.Errorf("Error creating user: '%+v'", err)
			return nil, err
		}
		// lost a race with a concurrent callback for the same email
		l.Debugf("User created concurrently. Reloading")
		u = &User{}
		if err := db.Where("email = ?", email).First(u).Error; err != nil {
			return nil, err
		}
	case result.Error != nil:
		l.Errorf("Error loading user: '%+v'", result.Error)
		return nil, result.Error
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if avatarUrl != "" {
		updates["avatar_url"] = avatarUrl
	}
	if len(updates) == 0 {
		return u, nil
	}
	if err := db.Model(u).Updates(updates).Error; err != nil {
		l.Errorf("Error refreshing user profile: '%+v'", err)
		return nil, err
	}

	l.Debugf("Refreshed user %d", u.Id)
	return u, nil
}

// GetUserById returns the user with the given id
func GetUserById(userId uint32) (*User, error) {
	u := &User{}
	result := getDB().First(u, userId)
	if result.RecordNotFound() {
		return nil, UserNotFoundError
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return u, nil
}

// GetUserByEmail returns the user registered with the given email
func GetUserByEmail(email string) (*User, error) {
	u := &User{}
	result := getDB().Where("email = ?", strings.TrimSpace(email)).First(u)
	if result.RecordNotFound() {
		return nil, UserNotFoundError
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return u, nil
}
