package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amzilayoub/nft-marketplace/pkg/marketapi"
)

// handleDevMint 在内存 oracle 上给 owner 铸造 token（本地联调用）
func (s *Server) handleDevMint(c *gin.Context) {
	var req marketapi.MintRequest
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
	owner := callerOf(c)
	if req.Owner != "" {
		if owner, err = parseAddress("owner", req.Owner); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := s.cfg.Dev.Mint(collection, tokenID, owner); err != nil {
		writeError(c, http.StatusConflict, marketapi.CodeBadRequest, err.Error())
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"collection": collection.Hex(), "token_id": tokenID.String(), "owner": owner.Hex()})
}

// handleDevApprove 调用方（持有人）授权 spender，默认授权市场
func (s *Server) handleDevApprove(c *gin.Context) {
	var req marketapi.ApproveRequest
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
	spender := s.market.Address()
	if req.Spender != "" {
		if spender, err = parseAddress("spender", req.Spender); err != nil {
			badRequest(c, err)
			return
		}
	}
	if err := s.cfg.Dev.Approve(callerOf(c), spender, collection, tokenID); err != nil {
		writeError(c, http.StatusForbidden, marketapi.CodeBadRequest, err.Error())
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"collection": collection.Hex(), "token_id": tokenID.String(), "spender": spender.Hex()})
}
