package metrics

import (
	"context"
	"expvar"

	"github.com/amzilayoub/nft-marketplace/internal/events"
)

var (
	ListingsCreated   = expvar.NewInt("market_listings_created")
	ListingsCanceled  = expvar.NewInt("market_listings_canceled")
	ListingsUpdated   = expvar.NewInt("market_listings_updated")
	ItemsBought       = expvar.NewInt("market_items_bought")
	ProceedsWithdrawn = expvar.NewInt("market_proceeds_withdrawn")
	APIErrors         = expvar.NewMap("market_api_errors")
)

// EventCounter 按事件类型累加计数，挂到事件总线上
type EventCounter struct{}

func (EventCounter) HandleEvent(_ context.Context, env events.Envelope) {
	switch env.Kind {
	case events.KindItemListed:
		ListingsCreated.Add(1)
	case events.KindItemCanceled:
		ListingsCanceled.Add(1)
	case events.KindItemUpdated:
		ListingsUpdated.Add(1)
	case events.KindItemBought:
		ItemsBought.Add(1)
	case events.KindProceedsWithdrawn:
		ProceedsWithdrawn.Add(1)
	}
}

// CountError 按错误码计数 API 失败
func CountError(code string) {
	APIErrors.Add(code, 1)
}
