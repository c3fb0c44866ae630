package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fitflow/fitflow/internal/health"
	"github.com/fitflow/fitflow/internal/models"
)

// Signup is the registration form.
type Signup struct {
	FullName     string            `json:"fullName"`
	Email        string            `json:"email"`
	Password     string            `json:"password"`
	Gender       string            `json:"gender,omitempty"`
	Height       string            `json:"height,omitempty"`
	Weight       string            `json:"weight,omitempty"`
	FitnessLevel models.Difficulty `json:"fitnessLevel,omitempty"`
	Age          int               `json:"age,omitempty"`
}

// LoginResult is the signed-in user and the bearer token for the history API.
type LoginResult struct {
	User  models.UserProfile `json:"user"`
	Token string             `json:"token"`
}

// Auth is a client for the account backend.
type Auth struct {
	base
}

// NewAuth creates an auth client. token may be empty until Login succeeds.
func NewAuth(baseURL, token string) *Auth {
	return &Auth{base: newBase(baseURL, token)}
}

// Register creates an account.
func (a *Auth) Register(ctx context.Context, s Signup) (*models.UserProfile, error) {
	if s.Email == "" || s.Password == "" || s.FullName == "" {
		return nil, errors.New("name, email and password are required")
	}
	var u models.UserProfile
	if err := a.do(ctx, http.MethodPost, "/user/register", nil, s, &u); err != nil {
		return nil, fmt.Errorf("registering %s: %w", s.Email, err)
	}
	return &u, nil
}

// Login exchanges credentials for a profile and token. The token is kept for
// later calls on this client.
func (a *Auth) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	in := map[string]string{"email": email, "password": password}
	var res LoginResult
	if err := a.do(ctx, http.MethodPost, "/user/login", nil, in, &res); err != nil {
		return nil, fmt.Errorf("signing in %s: %w", email, err)
	}
	a.token = res.Token
	return &res, nil
}

// UpdateProfile saves profile fields. BMI and BMR are recomputed from the
// body measurements when they are complete. The id travels in the path only.
func (a *Auth) UpdateProfile(ctx context.Context, p models.UserProfile) (*models.UserProfile, error) {
	if p.ID == "" {
		return nil, errors.New("user id missing")
	}
	m := health.FromProfile(p.Gender, p.Weight, p.Height, p.Age)
	if m.BMI > 0 {
		p.BMI = &m.BMI
	}
	if m.WeightKg > 0 && m.HeightCm > 0 && p.Age > 0 {
		p.BMR = &m.BMR
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	delete(payload, "_id")

	var u models.UserProfile
	if err := a.do(ctx, http.MethodPut, "/user/"+url.PathEscape(p.ID), nil, payload, &u); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return &u, nil
}
