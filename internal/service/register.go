package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ayutenn/skeleton/internal/apperror"
	"github.com/ayutenn/skeleton/internal/repository"
)

// OutcomeKind names the terminal states of one registration attempt.
//
// A CLOSED SET INSTEAD OF ERRORS:
// Registration has exactly four ways to end, every one of which the caller
// must present to a human. Modelling them as an enum-plus-message Outcome
// (rather than error values the handler would have to errors.Is its way
// through) makes the handler a switch with no default-leaks: raw storage
// detail physically cannot reach the user because it was never put in the
// Outcome.
type OutcomeKind string

const (
	// OutcomeCreated — the account exists now.
	OutcomeCreated OutcomeKind = "created"
	// OutcomePasswordMismatch — password and confirmation differ. The
	// store was never touched.
	OutcomePasswordMismatch OutcomeKind = "password_mismatch"
	// OutcomeDuplicate — a non-deleted user with that id already exists.
	OutcomeDuplicate OutcomeKind = "duplicate"
	// OutcomeFailed — something lower-level went wrong; details are in the
	// log, not in the message.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the result of a registration attempt: a kind for branching
// and a display string safe to show the user.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

// Succeeded reports whether the attempt created an account.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeCreated
}

// RegisterService orchestrates self-service account creation.
//
// Attempt lifecycle:
//
//	Received → Validated → ┬ Rejected(PasswordMismatch)   (no store access)
//	                       └ StoreAttempted → ┬ Created
//	                                          ├ Rejected(Duplicate)
//	                                          └ Failed
//
// All states on the right are terminal — there are no retries; a failed
// attempt requires a fresh request.
type RegisterService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewRegisterService creates a RegisterService.
func NewRegisterService(users repository.UserRepository, logger *slog.Logger) *RegisterService {
	return &RegisterService{
		users:  users,
		logger: logger,
	}
}

// Register runs one registration attempt.
//
// The password/confirmation comparison happens first and short-circuits —
// when they differ the store is never consulted. Everything else delegates
// to UserRepository.Create, whose structured errors are translated into
// outcomes here: Duplicate gets a specific message, anything unexpected is
// logged in full and reported generically.
func (s *RegisterService) Register(ctx context.Context, userID, userName, password, passwordConfirm string) Outcome {
	if password != passwordConfirm {
		return Outcome{
			Kind:    OutcomePasswordMismatch,
			Message: "The passwords do not match.",
		}
	}

	err := s.users.Create(ctx, userID, userName, password)
	switch {
	case err == nil:
		s.logger.Info("user registered", slog.String("userID", userID))
		return Outcome{
			Kind:    OutcomeCreated,
			Message: "Registration completed!",
		}

	case errors.Is(err, apperror.ErrDuplicate):
		return Outcome{
			Kind:    OutcomeDuplicate,
			Message: "A user with that ID already exists.",
		}

	default:
		// Full detail to the log; a generic line to the human.
		s.logger.Error("registration failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return Outcome{
			Kind:    OutcomeFailed,
			Message: "Registration failed. Please try again later.",
		}
	}
}
