package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v8"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/coldsats/lnwallet/internal/config"
	"github.com/coldsats/lnwallet/internal/gateway"
	"github.com/coldsats/lnwallet/internal/lnurl"
	"github.com/coldsats/lnwallet/internal/logger"
	"github.com/coldsats/lnwallet/internal/model"
	"github.com/coldsats/lnwallet/internal/ratelimit"
	"github.com/coldsats/lnwallet/internal/repo"
	"github.com/coldsats/lnwallet/internal/service"
)

type okGateway struct{}

func (okGateway) Invoice(ctx context.Context, amountMsats int64, description string) (*gateway.InvoiceResult, error) {
	return &gateway.InvoiceResult{Invoice: "lnbc1fake", OperationID: "op-1"}, nil
}
func (okGateway) Decode(ctx context.Context, invoice string) (*gateway.DecodedInvoice, error) {
	return &gateway.DecodedInvoice{}, nil
}
func (okGateway) Pay(ctx context.Context, invoice string) (*gateway.PayResult, error) {
	return &gateway.PayResult{OperationID: "op-pay", FeeMsats: 1000}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *service.WalletService) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&model.Transaction{}))

	rdb, _ := redismock.NewClientMock()
	log, _ := logger.NewLogger("info")
	repository := repo.NewRepository(db, rdb, &kafka.Writer{}, log)
	svc := service.NewWalletService(repository, okGateway{}, lnurl.NewSigner("test-secret"), log,
		"https://wallet.example.com/lnurl", 10*time.Minute)
	// redis mock without expectations: the limiter fails open
	limiter := ratelimit.NewLimiter(rdb, log, 5, time.Minute, 20, time.Hour)

	router := NewRouter(svc, limiter, config.RateLimitConfig{RPS: 100, Burst: 100}, log)
	return router, svc
}

func doGET(router *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.RemoteAddr = "203.0.113.7:4444"
	router.ServeHTTP(w, req)
	return w
}

func TestWithdrawCallback_ErrorsAreHTTP200(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doGET(router, "/lnurl/withdraw/callback?k1=ffffffffffffffff&tag=withdrawRequest")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp lnurl.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ERROR", resp.Status)
	assert.Equal(t, "Withdrawal request not found or expired", resp.Reason)
}

func TestWithdrawCallback_Handshake(t *testing.T) {
	router, svc := newTestRouter(t)

	link, err := svc.CreateWithdrawLink(context.Background(), "user-1", 100_000, "withdraw")
	assert.NoError(t, err)

	// first step
	url := fmt.Sprintf(
		"/lnurl/withdraw/callback?k1=%s&tag=withdrawRequest&callback=cb&maxWithdrawable=100000&minWithdrawable=100000&defaultDescription=withdraw",
		link.K1)
	w := doGET(router, url)
	assert.Equal(t, http.StatusOK, w.Code)

	var discovery lnurl.WithdrawRequest
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &discovery))
	assert.Equal(t, lnurl.TagWithdrawRequest, discovery.Tag)
	assert.Equal(t, link.K1, discovery.K1)
	assert.Equal(t, int64(100_000), discovery.MaxWithdrawable)

	// second step
	w = doGET(router, fmt.Sprintf("/lnurl/withdraw/callback?k1=%s&pr=lnbc1walletinvoice", link.K1))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp lnurl.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp.Status)

	// replay
	w = doGET(router, fmt.Sprintf("/lnurl/withdraw/callback?k1=%s&pr=lnbc1walletinvoice", link.K1))
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ERROR", resp.Status)
	assert.Equal(t, "LNURL withdrawal is now invalid or expired", resp.Reason)
}

func TestWithdrawCallback_AmountMismatch(t *testing.T) {
	router, svc := newTestRouter(t)

	link, err := svc.CreateWithdrawLink(context.Background(), "user-1", 50_000, "withdraw")
	assert.NoError(t, err)

	url := fmt.Sprintf(
		"/lnurl/withdraw/callback?k1=%s&tag=withdrawRequest&maxWithdrawable=100000&minWithdrawable=100000",
		link.K1)
	w := doGET(router, url)

	var resp lnurl.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ERROR", resp.Status)
	assert.Equal(t, "maxWithdrawable exceeds expected amount", resp.Reason)
}
