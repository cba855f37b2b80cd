package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

var (
	errNotMember = errors.New("caller is not a member of the group")
	errInvalid   = errors.New("invalid request")
)

// invalidf builds a validation error that maps to CodeInvalidArgument.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalid, fmt.Sprintf(format, args...))
}

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return err
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, errNotMember):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, errInvalid),
		errors.Is(err, calculator.ErrNoParticipants),
		errors.Is(err, calculator.ErrNegativeAmount),
		errors.Is(err, calculator.ErrNegativeShare),
		errors.Is(err, calculator.ErrDuplicateParticipant),
		errors.Is(err, calculator.ErrPrecision),
		errors.Is(err, calculator.ErrShareSum):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		// calculator.ErrResidual lands here: the ledger is inconsistent
		return connect.NewError(connect.CodeInternal, err)
	}
}

// callerID returns the authenticated user or an Unauthenticated error.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// memberGroup loads the group and checks that userID belongs to it.
func memberGroup(ctx context.Context, store storage.GroupStore, groupID, userID string) (*models.Group, error) {
	if groupID == "" {
		return nil, invalidf("group_id is required")
	}
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, fmt.Errorf("group %s: %w", groupID, errNotMember)
	}
	return group, nil
}
