package domain

import (
	"context"
	"errors"
)

var (
	ErrInviteNotFound     = errors.New("invite_code_not_found")
	ErrInviteAlreadyUsed  = errors.New("invite_code_already_used")
	ErrInviteWrongChannel = errors.New("invite_code_wrong_channel")
	ErrAlreadyRegistered  = errors.New("admin_already_registered")
)

// RegisterRequest carries a registration attempt from an unknown sender.
type RegisterRequest struct {
	Phone         string
	Name          string
	Code          string
	PhoneNumberID string
}

// RegisterResult reports the created admin and its fresh business/state.
type RegisterResult struct {
	Admin    Admin
	Business BusinessRef
	State    State
}

// BusinessRef is the newly provisioned business id; the business package
// owns the full record.
type BusinessRef struct {
	ID int64
}

// Registration consumes single-use invite codes and provisions the admin,
// the empty business, and the initial conversation state atomically.
type Registration interface {
	// LooksLikeInvite reports whether the text has the invite code shape.
	LooksLikeInvite(text string) bool
	Register(ctx context.Context, req RegisterRequest) (RegisterResult, error)
	FindAdmin(ctx context.Context, phone string) (*Admin, error)
}
