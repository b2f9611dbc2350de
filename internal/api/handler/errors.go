package handler

import (
	"database/sql"
	"errors"

	"crusade/internal/datastore"
	"crusade/internal/game"
	"crusade/internal/models"
	"crusade/internal/pkg/limiter"
	"crusade/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
)

var validationErrors = []error{
	models.ErrTitleRequired,
	models.ErrInvalidDifficulty,
	models.ErrCompleteViaAction,
	models.ErrInvalidMonth,
	models.ErrSubTaskTitle,
	models.ErrCategoryRequired,
	models.ErrAmountOutOfRange,
	models.ErrItemRequired,
	models.ErrNegativeAmount,
	models.ErrDateRequired,
	models.ErrInvalidSubscriptionKind,
	models.ErrEndpointRequired,
	models.ErrChatIDRequired,
	services.ErrInvalidCount,
	services.ErrUnknownProvider,
	game.ErrUnknownUnit,
	game.ErrUnknownResource,
	game.ErrActivityName,
	game.ErrActivityAmount,
}

// rule violations on valid input
var invalidErrors = []error{
	datastore.ErrAlreadyClaimed,
	services.ErrTaskAlreadyCompleted,
	services.ErrInsufficientResources,
	services.ErrProviderDisabled,
	game.ErrUpgradeUnlocked,
	game.ErrUpgradeLocked,
	game.ErrInsufficientAmount,
}

var notExistErrors = []error{
	sql.ErrNoRows,
	services.ErrSubTaskNotFound,
	game.ErrUnknownUpgrade,
	game.ErrUnknownActivity,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wrapServiceError attaches the errorx kind matching a service error.
func wrapServiceError(err error) error {
	switch {
	case err == nil:
		return nil
	case isAny(err, validationErrors):
		return errorx.Wrap(err, errorx.Validation)
	case isAny(err, invalidErrors):
		return errorx.Wrap(err, errorx.Invalid)
	case isAny(err, notExistErrors):
		return errorx.Wrap(errors.New("not found"), errorx.NotExist)
	case errors.Is(err, limiter.ErrRateLimited),
		errors.Is(err, services.ErrGameStateLock),
		errors.Is(err, services.ErrClaimLock):
		return errorx.Wrap(err, errorx.RateLimiting)
	case errors.Is(err, services.ErrInvalidIdentity):
		return errorx.Wrap(err, errorx.Authn)
	}
	return errorx.Wrap(err, errorx.Service)
}
