package kis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-lab/kistrader/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokerStub is a fake KIS API recording auth calls and the last order seen.
type brokerStub struct {
	srv        *httptest.Server
	authCalls  atomic.Int64
	lastTrID   atomic.Value // string
	lastOrder  atomic.Value // map[string]string
	balanceRes string
	orderRes   string
}

func newBrokerStub(t *testing.T) *brokerStub {
	t.Helper()
	s := &brokerStub{
		balanceRes: `{"rt_cd":"0","msg1":"ok","output1":[],"output2":[]}`,
		orderRes:   `{"rt_cd":"0","msg1":"accepted"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth2/tokenP", func(w http.ResponseWriter, r *http.Request) {
		s.authCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token"}`))
	})
	mux.HandleFunc("GET /uapi/domestic-stock/v1/trading/inquire-balance", func(w http.ResponseWriter, r *http.Request) {
		s.lastTrID.Store(r.Header.Get("tr_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s.balanceRes))
	})
	mux.HandleFunc("POST /uapi/domestic-stock/v1/trading/order-cash", func(w http.ResponseWriter, r *http.Request) {
		s.lastTrID.Store(r.Header.Get("tr_id"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.lastOrder.Store(body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(s.orderRes))
	})

	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *brokerStub) order() map[string]string {
	v, _ := s.lastOrder.Load().(map[string]string)
	return v
}

func (s *brokerStub) trID() string {
	v, _ := s.lastTrID.Load().(string)
	return v
}

func newTestClient(t *testing.T, stub *brokerStub, mode domain.TradingMode, tokenPath string) *Client {
	t.Helper()
	return NewClient(ClientConfig{
		Mode:        mode,
		AppKey:      "app-key",
		AppSecret:   "app-secret",
		AccountNo:   "12345678",
		AccountCode: "01",
		BaseURL:     stub.srv.URL,
	}, NewTokenStore(tokenPath), discardLogger())
}

func saveCredential(t *testing.T, path string, age time.Duration) {
	t.Helper()
	err := NewTokenStore(path).Save(domain.Credential{
		AccessToken: "stored-token",
		IssuedAt:    time.Now().Add(-age),
	})
	require.NoError(t, err)
}

func TestClientReusesStoredCredential(t *testing.T) {
	stub := newBrokerStub(t)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	saveCredential(t, tokenPath, time.Hour)

	client := newTestClient(t, stub, domain.ModePaper, tokenPath)
	holdings, summary := client.GetBalance(context.Background())

	assert.NotNil(t, client)
	assert.Equal(t, int64(0), stub.authCalls.Load(), "a valid stored credential must not trigger authentication")
	assert.Empty(t, holdings)
	assert.Empty(t, summary)
}

func TestClientRefreshesExpiredCredential(t *testing.T) {
	stub := newBrokerStub(t)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	saveCredential(t, tokenPath, 24*time.Hour)

	client := newTestClient(t, stub, domain.ModePaper, tokenPath)
	client.GetBalance(context.Background())

	assert.Equal(t, int64(1), stub.authCalls.Load(), "an expired credential triggers exactly one re-authentication")

	// The refreshed credential is persisted for the next process.
	cred, ok := NewTokenStore(tokenPath).Load()
	require.True(t, ok)
	assert.Equal(t, "fresh-token", cred.AccessToken)

	// Subsequent calls reuse the refreshed token.
	client.GetBalance(context.Background())
	assert.Equal(t, int64(1), stub.authCalls.Load())
}

func TestBalanceTransactionCodes(t *testing.T) {
	tests := []struct {
		name string
		mode domain.TradingMode
		want string
	}{
		{"paper", domain.ModePaper, "VTTC8434R"},
		{"live", domain.ModeLive, "TTTC8434R"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newBrokerStub(t)
			client := newTestClient(t, stub, tt.mode, filepath.Join(t.TempDir(), "token.json"))

			client.GetBalance(context.Background())
			assert.Equal(t, tt.want, stub.trID())
		})
	}
}

func TestGetBalanceDegradesToEmpty(t *testing.T) {
	stub := newBrokerStub(t)
	stub.balanceRes = `{"rt_cd":"1","msg1":"rejected"}`
	client := newTestClient(t, stub, domain.ModePaper, filepath.Join(t.TempDir(), "token.json"))

	holdings, summary := client.GetBalance(context.Background())
	assert.Nil(t, holdings)
	assert.Nil(t, summary)
}

func TestGetBalanceParsesRows(t *testing.T) {
	stub := newBrokerStub(t)
	stub.balanceRes = `{
		"rt_cd":"0","msg1":"ok",
		"output1":[{"pdno":"005930","prdt_name":"Samsung Electronics","hldg_qty":"10","pchs_avg_pric":"71000.00","prpr":"72500","evlu_pfls_amt":"15000","evlu_pfls_rt":"2.11"}],
		"output2":[{"tot_evlu_amt":"1000000","evlu_pfls_smtl_amt":"15000","evlu_pfls_rt":"1.52","dnca_tot_amt":"275000"}]
	}`
	client := newTestClient(t, stub, domain.ModePaper, filepath.Join(t.TempDir(), "token.json"))

	holdings, summary := client.GetBalance(context.Background())
	require.Len(t, holdings, 1)
	require.Len(t, summary, 1)
	assert.Equal(t, "005930", holdings[0].Symbol)
	assert.Equal(t, "10", holdings[0].HoldingQty)
	assert.Equal(t, "275000", summary[0].CashBalance)
}

func TestSubmitOrderPayload(t *testing.T) {
	tests := []struct {
		name       string
		mode       domain.TradingMode
		side       domain.OrderSide
		limitPrice float64
		wantTrID   string
		wantDvsn   string
		wantUnpr   string
	}{
		{"paper market sell", domain.ModePaper, domain.OrderSideSell, 0, "VTTC0801U", "01", "0"},
		{"paper market buy", domain.ModePaper, domain.OrderSideBuy, 0, "VTTC0802U", "01", "0"},
		{"live market buy", domain.ModeLive, domain.OrderSideBuy, 0, "TTTC0802U", "01", "0"},
		{"live market sell", domain.ModeLive, domain.OrderSideSell, 0, "TTTC0801U", "01", "0"},
		{"paper limit buy", domain.ModePaper, domain.OrderSideBuy, 50, "VTTC0802U", "00", "50"},
		{"live limit sell", domain.ModeLive, domain.OrderSideSell, 50, "TTTC0801U", "00", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newBrokerStub(t)
			client := newTestClient(t, stub, tt.mode, filepath.Join(t.TempDir(), "token.json"))

			ok := client.SubmitOrder(context.Background(), "005930", 3, tt.limitPrice, tt.side)
			require.True(t, ok)

			assert.Equal(t, tt.wantTrID, stub.trID())
			order := stub.order()
			assert.Equal(t, "12345678", order["CANO"])
			assert.Equal(t, "01", order["ACNT_PRDT_CD"])
			assert.Equal(t, "005930", order["PDNO"])
			assert.Equal(t, tt.wantDvsn, order["ORD_DVSN"])
			assert.Equal(t, "3", order["ORD_QTY"])
			assert.Equal(t, tt.wantUnpr, order["ORD_UNPR"])
		})
	}
}

func TestSubmitOrderRejection(t *testing.T) {
	stub := newBrokerStub(t)
	stub.orderRes = `{"rt_cd":"7","msg1":"insufficient funds"}`
	client := newTestClient(t, stub, domain.ModePaper, filepath.Join(t.TempDir(), "token.json"))

	ok := client.SubmitOrder(context.Background(), "005930", 1, 0, domain.OrderSideBuy)
	assert.False(t, ok)
}

func TestSubmitOrderTransportFailure(t *testing.T) {
	stub := newBrokerStub(t)
	tokenPath := filepath.Join(t.TempDir(), "token.json")
	saveCredential(t, tokenPath, time.Hour)
	client := newTestClient(t, stub, domain.ModePaper, tokenPath)

	// Kill the server: the order must come back false, never a panic.
	stub.srv.Close()
	ok := client.SubmitOrder(context.Background(), "005930", 1, 0, domain.OrderSideBuy)
	assert.False(t, ok)

	holdings, summary := client.GetBalance(context.Background())
	assert.Nil(t, holdings)
	assert.Nil(t, summary)
}
