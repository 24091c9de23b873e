package httperr

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nexusplay/nexusplay/internal/ledger"
)

// From maps ledger errors onto HTTP errors. Financial conflicts surface as
// 409, validation as 400, unknown entities as 404; only store failures fall
// through to 500.
func From(err error) *fiber.Error {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrWalletFrozen),
		errors.Is(err, ledger.ErrAlreadyProcessed),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, ledger.ErrDuplicateAccrual):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
