package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE ACCOUNT COMMAND
// Erases every owned row, then the auth identity so the address can
// register again. Rows are gone even when the identity call fails.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteAccountCommand identifies the account.
type DeleteAccountCommand struct {
	UserID string
}

// DeleteAccountResult reports what was removed.
type DeleteAccountResult struct {
	RowsDeleted int64
}

// DeleteAccountHandler handles the DeleteAccountCommand.
type DeleteAccountHandler struct {
	eraser   AccountEraser
	identity IdentityDeleter
	profiles ProfileLoader
	events   shared.EventPublisher
	logger   *logger.Logger
}

// NewDeleteAccountHandler creates a new DeleteAccountHandler.
func NewDeleteAccountHandler(
	eraser AccountEraser,
	identity IdentityDeleter,
	profiles ProfileLoader,
	events shared.EventPublisher,
	log *logger.Logger,
) *DeleteAccountHandler {
	if events == nil {
		events = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DeleteAccountHandler{
		eraser:   eraser,
		identity: identity,
		profiles: profiles,
		events:   events,
		logger:   log.With(logger.Component("account")),
	}
}

// Handle executes the command.
func (h *DeleteAccountHandler) Handle(ctx context.Context, cmd DeleteAccountCommand) (*DeleteAccountResult, error) {
	if cmd.UserID == "" {
		return nil, shared.ErrInvalidUserID
	}

	rows, err := h.eraser.DeleteAll(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("delete_account: erase rows: %w", err)
	}
	_ = h.profiles.Invalidate(ctx, cmd.UserID)

	h.logger.Info("account rows erased", logger.UserID(cmd.UserID), logger.Int64("rows", rows))

	if err := h.identity.DeleteUser(ctx, cmd.UserID); err != nil {
		h.logger.Error("auth identity deletion failed after erasure",
			logger.UserID(cmd.UserID), logger.Err(err))
		if errors.Is(err, shared.ErrAuthAdminUnavailable) {
			return nil, err
		}
		return nil, shared.ErrAuthAdminUnavailable.Wrap(err)
	}

	_ = h.events.Publish(shared.NewAccountDeletedEvent(cmd.UserID, rows))
	return &DeleteAccountResult{RowsDeleted: rows}, nil
}
