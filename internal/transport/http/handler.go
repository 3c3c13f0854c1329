package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coldsats/lnwallet/internal/gateway"
	"github.com/coldsats/lnwallet/internal/lnurl"
	"github.com/coldsats/lnwallet/internal/ratelimit"
	"github.com/coldsats/lnwallet/internal/service"
)

const actionLnurlWithdraw = "lnurl-withdraw"

func RegisterHandlers(r *gin.Engine, svc *service.WalletService, limiter *ratelimit.Limiter, log *zap.SugaredLogger) {
	r.GET("/lnurl/withdraw/callback", withdrawCallbackHandler(svc, limiter, log))

	v1 := r.Group("/v1")
	{
		v1.POST("/users/:id/withdraw-links", createWithdrawLinkHandler(svc))
		v1.POST("/users/:id/deposits", createDepositHandler(svc))
		v1.GET("/users/:id/summary", summaryHandler(svc))
	}
}

// withdrawCallbackHandler serves both steps of the LNURL-withdraw
// handshake on a single public endpoint; the presence of pr selects the
// second step. Per the LNURL envelope convention every reply is HTTP 200,
// including errors.
func withdrawCallbackHandler(svc *service.WalletService, limiter *ratelimit.Limiter, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		k1 := c.Query("k1")

		res := limiter.Check(c, k1, actionLnurlWithdraw)
		if !res.Allowed {
			log.Warnf("lnurl withdraw throttled k1=%s window=%s", k1, res.Window)
			c.JSON(http.StatusOK, lnurl.Errorf("too many requests"))
			return
		}

		if pr := c.Query("pr"); pr != "" {
			if err := svc.SecondStep(c, k1, pr); err != nil {
				c.JSON(http.StatusOK, lnurl.Errorf(publicReason(err, log)))
				return
			}
			// a settled withdrawal clears earlier failed attempts
			limiter.Reset(c, k1, actionLnurlWithdraw)
			c.JSON(http.StatusOK, lnurl.OK())
			return
		}

		maxW, _ := strconv.ParseInt(c.Query("maxWithdrawable"), 10, 64)
		minW, _ := strconv.ParseInt(c.Query("minWithdrawable"), 10, 64)
		discovery, err := svc.FirstStep(c, service.FirstStepRequest{
			K1:              k1,
			Tag:             c.Query("tag"),
			Callback:        c.Query("callback"),
			MaxWithdrawable: maxW,
			MinWithdrawable: minW,
			Description:     c.Query("defaultDescription"),
			PR:              c.Query("pr"),
		})
		if err != nil {
			c.JSON(http.StatusOK, lnurl.Errorf(publicReason(err, log)))
			return
		}
		c.JSON(http.StatusOK, discovery)
	}
}

// publicReason maps an error to the reason string exposed on the wire.
// Store faults and other internals are logged, never surfaced.
func publicReason(err error, log *zap.SugaredLogger) string {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return verr.Reason
	}
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return gerr.Message
	}
	switch {
	case errors.Is(err, service.ErrNotFoundOrExpired),
		errors.Is(err, service.ErrInvalidOrExpired),
		errors.Is(err, service.ErrAmountMismatch):
		return err.Error()
	}
	log.Errorf("lnurl withdraw internal error: %v", err)
	return "internal error"
}

type withdrawLinkReq struct {
	AmountMsats int64  `json:"amount_msats" binding:"required"`
	Description string `json:"description"`
}

func createWithdrawLinkHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req withdrawLinkReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		link, err := svc.CreateWithdrawLink(c, c.Param("id"), req.AmountMsats, req.Description)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

type depositReq struct {
	AmountMsats int64  `json:"amount_msats" binding:"required"`
	Description string `json:"description"`
	Context     string `json:"context"`
}

func createDepositHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req depositReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		inv, err := svc.CreateDepositInvoice(c, c.Param("id"), req.AmountMsats, req.Description, req.Context)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, inv)
	}
}

func summaryHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := svc.Summary(c, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
