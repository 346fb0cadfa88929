package journal

import (
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/amzilayoub/nft-marketplace/internal/events"
)

var (
	collection = common.HexToAddress("0x00000000000000000000000000000000000000C1")
	seller     = common.HexToAddress("0x000000000000000000000000000000000000005E")
	buyer      = common.HexToAddress("0x00000000000000000000000000000000000000B0")
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRecordsBusEvents(t *testing.T) {
	j := openTemp(t)
	bus := events.NewBus(j)
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	bus.Publish(ctx, &events.ItemListed{Seller: seller, Collection: collection, TokenID: big.NewInt(7), Price: big.NewInt(100), Timestamp: at})
	bus.Publish(ctx, &events.ItemBought{Buyer: buyer, Collection: collection, TokenID: big.NewInt(7), Price: big.NewInt(150), Timestamp: at.Add(time.Second)})
	bus.Publish(ctx, &events.ProceedsWithdrawn{Seller: seller, Amount: big.NewInt(150), Timestamp: at.Add(2 * time.Second)})

	n, err := j.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	all, err := j.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, events.KindProceedsWithdrawn, all[0].Kind)
	require.Equal(t, events.KindItemListed, all[2].Kind)
	require.Empty(t, all[0].Collection)
	require.True(t, at.Equal(all[2].CreatedAt))

	bought, err := j.List(ctx, Query{Kind: events.KindItemBought})
	require.NoError(t, err)
	require.Len(t, bought, 1)
	require.Equal(t, strings.ToLower(buyer.Hex()), bought[0].Party)
	require.Equal(t, "7", bought[0].TokenID)

	var payload struct {
		Price *big.Int `json:"price"`
	}
	require.NoError(t, json.Unmarshal(bought[0].Payload, &payload))
	require.Equal(t, int64(150), payload.Price.Int64())
}

func TestJournalFilters(t *testing.T) {
	j := openTemp(t)
	bus := events.NewBus(j)
	ctx := context.Background()

	for i := int64(0); i < 5; i++ {
		bus.Publish(ctx, &events.ItemListed{Seller: seller, Collection: collection, TokenID: big.NewInt(i), Price: big.NewInt(1)})
	}
	bus.Publish(ctx, &events.ItemCanceled{Owner: seller, Collection: collection, TokenID: big.NewInt(3)})

	byAsset, err := j.List(ctx, Query{Collection: collection.Hex(), TokenID: "3"})
	require.NoError(t, err)
	require.Len(t, byAsset, 2)
	require.Equal(t, events.KindItemCanceled, byAsset[0].Kind)

	byParty, err := j.List(ctx, Query{Party: seller.Hex(), Limit: 2})
	require.NoError(t, err)
	require.Len(t, byParty, 2)

	none, err := j.List(ctx, Query{Party: buyer.Hex()})
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestJournalDuplicateIDRejected(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	env := events.Envelope{ID: "dup", Kind: events.KindItemCanceled, At: time.Now(),
		Event: &events.ItemCanceled{Owner: seller, Collection: collection, TokenID: big.NewInt(1)}}
	require.NoError(t, j.Append(ctx, env))
	require.Error(t, j.Append(ctx, env))
}

func TestJournalPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	events.NewBus(j).Publish(context.Background(), &events.ItemListed{Seller: seller, Collection: collection, TokenID: big.NewInt(1), Price: big.NewInt(1)})
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	n, err := j.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestOpenMemory(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer j.Close()
	_, err = Open("")
	require.Error(t, err)
}
