package watchlistsync

import (
	"context"

	"github.com/abhivicks22/stockpulse/models"
	"github.com/abhivicks22/stockpulse/quotes"
)

// LocalBackend implements Store and QuoteSource in process, on top of the
// models package and a quotes.Service, for one user
type LocalBackend struct {
	UserId uint32
	Quotes *quotes.Service
}

func fromModel(it *models.WatchlistItem) Item {
	return Item{
		Id:      it.Id,
		Symbol:  it.Symbol,
		Name:    it.Name,
		Type:    it.Type,
		AddedAt: it.AddedAt,
	}
}

func (b *LocalBackend) List(ctx context.Context) ([]Item, error) {
	list, err := models.GetWatchlist(b.UserId)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(list))
	for i, it := range list {
		items[i] = fromModel(it)
	}
	return items, nil
}

func (b *LocalBackend) Add(ctx context.Context, symbol, name string) (Item, error) {
	it, err := models.AddWatchlistItem(b.UserId, symbol, name, models.DefaultInstrumentType)
	if err != nil {
		return Item{}, err
	}
	return fromModel(it), nil
}

func (b *LocalBackend) Remove(ctx context.Context, itemId string) error {
	return models.RemoveWatchlistItem(b.UserId, itemId, "")
}

func (b *LocalBackend) GetQuotes(ctx context.Context, symbols []string) (map[string]*quotes.Quote, error) {
	return b.Quotes.GetQuotes(ctx, symbols), nil
}
