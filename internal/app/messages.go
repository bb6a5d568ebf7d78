package app

import (
	"errors"
	"fmt"

	"bursa/internal/auth"
	"bursa/internal/domain"
	"bursa/internal/roster"
	"bursa/internal/trade"
	"bursa/pkg/bursa"
)

const (
	msgMarketUnavailable = "⚠️ No se pudieron cargar los precios en tiempo real."
	msgUserUnavailable   = "⚠️ Error al cargar datos del alumno."
	msgTradeFailed       = "❌ Error en la operación"
	msgTradeUnreachable  = "❌ Error de conexión con el servidor de trading"
	msgAddFailed         = "❌ Error al agregar activo"
	msgRemoveFailed      = "❌ Error al eliminar activo"
	msgLoginFailed       = "❌ No se pudo iniciar sesión"
)

func tradeSuccess(side domain.Side) string {
	if side == domain.SideSell {
		return "✅ Venta Exitosa"
	}
	return "✅ Compra Exitosa"
}

// userMessage turns an operation error into the notification text. Local
// validation errors get their fixed wording; backend rejections show the
// backend detail; anything else falls back to generic.
func userMessage(err error, generic string) string {
	var holdings *roster.HoldingsError
	switch {
	case errors.Is(err, trade.ErrInvalidQuantity):
		return "⚠️ Cantidad inválida"
	case errors.Is(err, trade.ErrNotLoggedIn):
		return "⚠️ Inicia sesión para operar"
	case errors.Is(err, trade.ErrNoAsset):
		return "⚠️ Selecciona un activo"
	case errors.Is(err, trade.ErrInvalidOrder):
		return "⚠️ Orden inválida"
	case errors.Is(err, auth.ErrEmptyIdentifier):
		return "⚠️ Ingresa un número de legajo"
	case errors.Is(err, auth.ErrEmptyCode):
		return "⚠️ Ingresa el código recibido"
	case errors.Is(err, auth.ErrNoPendingCode):
		return "⚠️ Primero solicita un código"
	case errors.Is(err, roster.ErrEmptySymbol):
		return "⚠️ Escribe un símbolo"
	case errors.Is(err, roster.ErrAlreadyListed):
		return "⚠️ El activo ya está en la lista"
	case errors.As(err, &holdings):
		return fmt.Sprintf("❌ Error: %s", holdings.Error())
	}
	if d := bursa.Detail(err); d != "" {
		return "❌ " + d
	}
	return generic
}
