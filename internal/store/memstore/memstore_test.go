package memstore

import (
	"testing"

	"github.com/amzilayoub/nft-marketplace/internal/store/storetest"
)

func TestListings(t *testing.T) {
	storetest.RunListingStore(t, NewListings())
}

func TestProceeds(t *testing.T) {
	storetest.RunProceedsStore(t, NewProceeds())
}

func TestDeposits(t *testing.T) {
	storetest.RunDepositStore(t, NewDeposits())
}
