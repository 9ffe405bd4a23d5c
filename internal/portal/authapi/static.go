package authapi

import (
	"context"
	"sync"
)

// StaticService is an in-memory Service for tests and local runs without a backend.
type StaticService struct {
	LoginFunc    func(ctx context.Context, creds Credentials) (*LoginResponse, error)
	RegisterFunc func(ctx context.Context, reg Registration) (*RegisterResponse, error)

	mu            sync.Mutex
	logins        []Credentials
	registrations []Registration
}

// Login records the call and delegates to LoginFunc.
func (s *StaticService) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	s.mu.Lock()
	s.logins = append(s.logins, creds)
	s.mu.Unlock()
	if s.LoginFunc == nil {
		return nil, &ServerError{Op: "login", Status: 401, Body: ErrorBody{LoginErr: "Invalid credentials"}}
	}
	return s.LoginFunc(ctx, creds)
}

// Register records the call and delegates to RegisterFunc.
func (s *StaticService) Register(ctx context.Context, reg Registration) (*RegisterResponse, error) {
	s.mu.Lock()
	s.registrations = append(s.registrations, reg)
	s.mu.Unlock()
	if s.RegisterFunc == nil {
		return &RegisterResponse{Message: "Registration successful"}, nil
	}
	return s.RegisterFunc(ctx, reg)
}

// Logins returns the credentials received so far.
func (s *StaticService) Logins() []Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Credentials(nil), s.logins...)
}

// Registrations returns the registrations received so far.
func (s *StaticService) Registrations() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Registration(nil), s.registrations...)
}
