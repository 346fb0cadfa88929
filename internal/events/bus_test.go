package events

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllHandlersSynchronously(t *testing.T) {
	var got []Envelope
	bus := NewBus(HandlerFunc(func(_ context.Context, env Envelope) { got = append(got, env) }))

	var second int
	unsubscribe := bus.Subscribe(HandlerFunc(func(context.Context, Envelope) { second++ }))

	bus.Publish(context.Background(), &ItemListed{
		Seller:     common.HexToAddress("0x0a"),
		Collection: common.HexToAddress("0xc1"),
		TokenID:    big.NewInt(7),
		Price:      big.NewInt(100),
	})
	require.Len(t, got, 1)
	require.Equal(t, 1, second)
	require.Equal(t, KindItemListed, got[0].Kind)
	require.NotEmpty(t, got[0].ID)
	require.False(t, got[0].At.IsZero())

	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), &ItemCanceled{Owner: common.HexToAddress("0x0a")})
	require.Len(t, got, 2)
	require.Equal(t, 1, second)
}

func TestEnvelopeJSON(t *testing.T) {
	env := Envelope{
		ID:   "id-1",
		Kind: KindProceedsWithdrawn,
		At:   time.Unix(0, 0).UTC(),
		Event: &ProceedsWithdrawn{
			Seller: common.HexToAddress("0x0a"),
			Amount: big.NewInt(150),
		},
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded struct {
		Kind  string `json:"kind"`
		Event struct {
			Seller string `json:"seller"`
			Amount int64  `json:"amount"`
		} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "ProceedsWithdrawn", decoded.Kind)
	require.Equal(t, int64(150), decoded.Event.Amount)
	require.Equal(t, common.HexToAddress("0x0a").Hex(), decoded.Event.Seller)
}

func TestSubjectAndParty(t *testing.T) {
	bought := &ItemBought{Buyer: common.HexToAddress("0x0b"), Collection: common.HexToAddress("0xc1"), TokenID: big.NewInt(3)}
	c, id, ok := Subject(bought)
	require.True(t, ok)
	require.Equal(t, common.HexToAddress("0xc1"), c)
	require.Equal(t, int64(3), id.Int64())
	require.Equal(t, common.HexToAddress("0x0b"), Party(bought))

	_, _, ok = Subject(&ProceedsWithdrawn{})
	require.False(t, ok)
}
