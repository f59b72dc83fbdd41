package session

import (
	"errors"

	"github.com/kapu/gridlock/internal/game"
	"github.com/kapu/gridlock/internal/room"
)

// Machine-readable error codes carried in wire.Error. Clients match on
// the code; the message text comes from the catalog.
const (
	CodeInvalidRoomID       = "InvalidRoomId"
	CodeRoomNotFound        = "RoomNotFound"
	CodeSpectatorForbidden  = "SpectatorForbidden"
	CodeGameNotActive       = "GameNotActive"
	CodeNotYourTurn         = "NotYourTurn"
	CodeSymbolCapReached    = "SymbolCapReached"
	CodeInvalidCellIndex    = "InvalidCellIndex"
	CodeCellOccupied        = "CellOccupied"
	CodeCannotRemoveForeign = "CannotRemoveForeignSymbol"
	CodeRateLimited         = "RateLimited"
	CodeNothingToUndo       = "NothingToUndo"
	CodeBadRequest          = "BadRequest"
)

// catalogKey maps an error code to its message-catalog entry.
var catalogKey = map[string]string{
	CodeInvalidRoomID:       "errors.invalid_room_id",
	CodeRoomNotFound:        "errors.room_not_found",
	CodeSpectatorForbidden:  "errors.spectator_forbidden",
	CodeGameNotActive:       "errors.game_not_active",
	CodeNotYourTurn:         "errors.not_your_turn",
	CodeSymbolCapReached:    "errors.symbol_cap_reached",
	CodeInvalidCellIndex:    "errors.invalid_cell_index",
	CodeCellOccupied:        "errors.cell_occupied",
	CodeCannotRemoveForeign: "errors.cannot_remove_foreign",
	CodeRateLimited:         "errors.rate_limited",
	CodeNothingToUndo:       "errors.nothing_to_undo",
	CodeBadRequest:          "errors.bad_request",
}

// codeForEngineErr translates engine and registry sentinels into wire codes.
func codeForEngineErr(err error) string {
	switch {
	case errors.Is(err, room.ErrInvalidRoomID):
		return CodeInvalidRoomID
	case errors.Is(err, room.ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, game.ErrGameNotActive):
		return CodeGameNotActive
	case errors.Is(err, game.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, game.ErrSymbolCapReached):
		return CodeSymbolCapReached
	case errors.Is(err, game.ErrInvalidCellIndex):
		return CodeInvalidCellIndex
	case errors.Is(err, game.ErrCellOccupied):
		return CodeCellOccupied
	case errors.Is(err, game.ErrCannotRemoveForeign):
		return CodeCannotRemoveForeign
	default:
		return CodeBadRequest
	}
}
