package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
	"github.com/amzilayoub/nft-marketplace/pkg/marketapi"
)

func (s *Server) handleGetListing(c *gin.Context) {
	collection, tokenID, ok := assetFromPath(c)
	if !ok {
		return
	}
	l, err := s.market.GetListing(c.Request.Context(), collection, tokenID)
	if err != nil {
		writeMarketError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, listingResponse(collection, tokenID, l))
}

func (s *Server) handleList(c *gin.Context) {
	var req marketapi.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	collection, err := parseAddress("collection", req.Collection)
	if err != nil {
		badRequest(c, err)
		return
	}
	tokenID, err := parseTokenID(req.TokenID)
	if err != nil {
		badRequest(c, err)
		return
	}
	price, err := domain.ParseAmount(req.Price)
	if err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := s.market.List(ctx, collection, tokenID, price, callerOf(c)); err != nil {
		writeMarketError(c, err)
		return
	}
	l, err := s.market.GetListing(ctx, collection, tokenID)
	if err != nil {
		writeMarketError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, listingResponse(collection, tokenID, l))
}

func (s *Server) handleReprice(c *gin.Context) {
	collection, tokenID, ok := assetFromPath(c)
	if !ok {
		return
	}
	var req marketapi.RepriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	price, err := domain.ParseAmount(req.Price)
	if err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := s.market.Reprice(ctx, collection, tokenID, price, callerOf(c)); err != nil {
		writeMarketError(c, err)
		return
	}
	l, err := s.market.GetListing(ctx, collection, tokenID)
	if err != nil {
		writeMarketError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, listingResponse(collection, tokenID, l))
}

func (s *Server) handleCancel(c *gin.Context) {
	collection, tokenID, ok := assetFromPath(c)
	if !ok {
		return
	}
	if err := s.market.Cancel(c.Request.Context(), collection, tokenID, callerOf(c)); err != nil {
		writeMarketError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleBuy(c *gin.Context) {
	collection, tokenID, ok := assetFromPath(c)
	if !ok {
		return
	}
	var req marketapi.BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	caller := callerOf(c)
	resp := marketapi.BuyResponse{
		Collection: collection.Hex(),
		TokenID:    tokenID.String(),
		Buyer:      caller.Hex(),
	}

	if req.PaymentTx != "" {
		ref, err := parseTxHash(req.PaymentTx)
		if err != nil {
			badRequest(c, err)
			return
		}
		paid, err := s.market.BuyWithDeposit(c.Request.Context(), collection, tokenID, ref, caller)
		if err != nil {
			writeMarketError(c, err)
			return
		}
		resp.Payment = paid.String()
		resp.PaymentTx = ref.Hex()
		writeJSON(c, http.StatusOK, resp)
		return
	}

	payment, err := domain.ParseAmount(req.Payment)
	if err != nil {
		if s.market.RequiresDeposit() {
			writeMarketError(c, domain.ErrDepositRequired)
			return
		}
		badRequest(c, err)
		return
	}
	if err := s.market.Buy(c.Request.Context(), collection, tokenID, payment, caller); err != nil {
		writeMarketError(c, err)
		return
	}
	resp.Payment = payment.String()
	writeJSON(c, http.StatusOK, resp)
}

func (s *Server) handleGetProceeds(c *gin.Context) {
	caller := callerOf(c)
	bal, err := s.market.GetProceeds(c.Request.Context(), caller)
	if err != nil {
		writeMarketError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, proceedsResponse(caller, bal))
}

func (s *Server) handleWithdraw(c *gin.Context) {
	caller := callerOf(c)
	paid, err := s.market.Withdraw(c.Request.Context(), caller)
	if err != nil {
		writeMarketError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, proceedsResponse(caller, paid))
}
