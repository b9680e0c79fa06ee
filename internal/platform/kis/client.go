// Package kis implements the Korea Investment & Securities Open API client:
// token lifecycle, balance inquiry, cash orders, and the realtime quote
// websocket.
package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// Base endpoints per trading environment.
const (
	baseURLPaper = "https://openapivts.koreainvestment.com:29443"
	baseURLLive  = "https://openapi.koreainvestment.com:9443"

	wsURLPaper = "ws://ops.koreainvestment.com:31000"
	wsURLLive  = "ws://ops.koreainvestment.com:21000"
)

// ClientConfig holds the credentials and environment for a broker client.
// BaseURL is normally derived from Mode; tests override it.
type ClientConfig struct {
	Mode        domain.TradingMode
	AppKey      string
	AppSecret   string
	AccountNo   string // 8-digit account prefix
	AccountCode string // 2-digit product code
	BaseURL     string
}

// Client is the REST client for the KIS trading API. The trading mode is
// fixed at construction and selects both the base endpoint and the
// transaction code used for every operation.
//
// GetBalance and SubmitOrder never let a transport or parse fault escape:
// every failure maps to an empty/false result with the brokerage message
// logged, so a caller always has a defined fallback.
type Client struct {
	mode        domain.TradingMode
	baseURL     string
	appKey      string
	appSecret   string
	accountNo   string
	accountCode string

	tokens     *TokenStore
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	// mu serializes authentication so concurrent callers (controller,
	// portfolio handler, feed) never race a refresh and overwrite each
	// other's saved credential.
	mu   sync.Mutex
	cred domain.Credential
}

// NewClient creates a broker client. If the token store holds a still-valid
// credential the client starts authenticated without any network call.
func NewClient(cfg ClientConfig, tokens *TokenStore, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Mode == domain.ModeLive {
			baseURL = baseURLLive
		} else {
			baseURL = baseURLPaper
		}
	}

	c := &Client{
		mode:        cfg.Mode,
		baseURL:     baseURL,
		appKey:      cfg.AppKey,
		appSecret:   cfg.AppSecret,
		accountNo:   cfg.AccountNo,
		accountCode: cfg.AccountCode,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger.With(slog.String("component", "kis_client")),
		now:         time.Now,
	}

	if cred, ok := tokens.Load(); ok && cred.Valid(c.now()) {
		c.cred = cred
		c.logger.Info("reusing cached access token",
			slog.Time("issued_at", cred.IssuedAt),
		)
	}

	return c
}

// Mode returns the trading environment this client targets.
func (c *Client) Mode() domain.TradingMode {
	return c.mode
}

// Authenticate requests a fresh access token and persists it. On any failure
// the client stays unauthenticated; there is no retry — the caller retries by
// invoking again (or implicitly on the next authenticated call).
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

// authenticateLocked performs the token request. Caller must hold c.mu.
func (c *Client) authenticateLocked(ctx context.Context) error {
	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"appsecret":  c.appSecret,
	}

	status, respBody, err := c.doJSON(ctx, http.MethodPost, "/oauth2/tokenP", nil, nil, body)
	if err != nil {
		c.cred = domain.Credential{}
		return fmt.Errorf("kis: authenticate: %w", err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		c.cred = domain.Credential{}
		return fmt.Errorf("kis: authenticate: HTTP %d: %w", status, domain.ErrUnauthorized)
	}
	if status != http.StatusOK {
		c.cred = domain.Credential{}
		return fmt.Errorf("kis: authenticate: HTTP %d: %s", status, truncate(respBody, 256))
	}

	var tok tokenResponse
	if err := json.Unmarshal(respBody, &tok); err != nil {
		c.cred = domain.Credential{}
		return fmt.Errorf("kis: authenticate: decode response: %w", err)
	}
	if tok.AccessToken == "" {
		c.cred = domain.Credential{}
		return fmt.Errorf("kis: authenticate: %w", domain.ErrNoCredential)
	}

	cred := domain.Credential{AccessToken: tok.AccessToken, IssuedAt: c.now()}
	c.cred = cred
	if err := c.tokens.Save(cred); err != nil {
		// A failed save is not fatal: the in-memory token works for this
		// process, the next restart just authenticates again.
		c.logger.Warn("failed to persist access token", slog.String("error", err.Error()))
	}
	c.logger.Info("access token issued", slog.String("mode", string(c.mode)))
	return nil
}

// ensureToken re-authenticates synchronously when the credential is absent or
// past the expiry window. It blocks concurrent callers for the duration of
// the refresh.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cred.Valid(c.now()) {
		return nil
	}
	if c.cred.AccessToken != "" {
		c.logger.Info("access token expired, re-authenticating",
			slog.Time("issued_at", c.cred.IssuedAt),
		)
	}
	return c.authenticateLocked(ctx)
}

// bearer returns the current token under the lock so a refresh never tears a
// reader's in-flight request.
func (c *Client) bearer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cred.AccessToken
}

// commonHeaders builds the per-request authenticated header set.
func (c *Client) commonHeaders(trID string) map[string]string {
	return map[string]string{
		"content-type":  "application/json; charset=utf-8",
		"authorization": "Bearer " + c.bearer(),
		"appkey":        c.appKey,
		"appsecret":     c.appSecret,
		"tr_id":         trID,
	}
}

// GetBalance issues the balance inquiry for the configured account. It
// returns the raw holdings rows (output1) and account totals (output2); on
// any failure it returns empty results and logs the brokerage message.
func (c *Client) GetBalance(ctx context.Context) ([]BalanceHolding, []BalanceSummary) {
	if err := c.ensureToken(ctx); err != nil {
		c.logger.Error("balance inquiry: authentication failed", slog.String("error", err.Error()))
		return nil, nil
	}

	trID := trBalancePaper
	if c.mode == domain.ModeLive {
		trID = trBalanceLive
	}

	query := url.Values{}
	query.Set("CANO", c.accountNo)
	query.Set("ACNT_PRDT_CD", c.accountCode)
	query.Set("AFHR_FLPR_YN", "N")
	query.Set("OFL_YN", "")
	query.Set("INQR_DVSN", "02")
	query.Set("UNPR_DVSN", "01")
	query.Set("FUND_STTL_ICLD_YN", "N")
	query.Set("FNCG_AMT_AUTO_RDPT_YN", "N")
	query.Set("PRCS_DVSN", "00")
	query.Set("CTX_AREA_FK100", "")
	query.Set("CTX_AREA_NK100", "")

	status, respBody, err := c.doJSON(ctx, http.MethodGet,
		"/uapi/domestic-stock/v1/trading/inquire-balance",
		c.commonHeaders(trID), query, nil)
	if err != nil {
		c.logger.Error("balance inquiry failed", slog.String("error", err.Error()))
		return nil, nil
	}

	var resp balanceResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.logger.Error("balance inquiry: decode response", slog.String("error", err.Error()))
		return nil, nil
	}
	if status != http.StatusOK || resp.ResultCode != rtSuccess {
		c.logger.Error("balance inquiry rejected",
			slog.Int("status", status),
			slog.String("rt_cd", resp.ResultCode),
			slog.String("msg", resp.Message),
		)
		return nil, nil
	}

	return resp.Holdings, resp.Summary
}

// SubmitOrder submits a cash order and reports whether the brokerage accepted
// it. A zero limitPrice places a market order. There is no automatic retry;
// the caller decides whether and when to re-attempt.
func (c *Client) SubmitOrder(ctx context.Context, symbol string, quantity int, limitPrice float64, side domain.OrderSide) bool {
	result := c.PlaceOrder(ctx, domain.OrderRequest{
		Symbol:     symbol,
		Quantity:   quantity,
		LimitPrice: limitPrice,
		Side:       side,
	})
	return result.Success
}

// PlaceOrder submits a cash order and returns the full result including the
// brokerage message. Orders are atomically accepted or rejected.
func (c *Client) PlaceOrder(ctx context.Context, req domain.OrderRequest) domain.OrderResult {
	if err := c.ensureToken(ctx); err != nil {
		c.logger.Error("order: authentication failed", slog.String("error", err.Error()))
		return domain.OrderResult{Message: err.Error()}
	}

	trID := c.orderTrID(req.Side)

	// Order division: market unless a limit price is given.
	ordDvsn := "01"
	ordUnpr := "0"
	if req.LimitPrice > 0 {
		ordDvsn = "00"
		ordUnpr = strconv.FormatFloat(req.LimitPrice, 'f', -1, 64)
	}

	body := map[string]string{
		"CANO":         c.accountNo,
		"ACNT_PRDT_CD": c.accountCode,
		"PDNO":         req.Symbol,
		"ORD_DVSN":     ordDvsn,
		"ORD_QTY":      strconv.Itoa(req.Quantity),
		"ORD_UNPR":     ordUnpr,
	}

	status, respBody, err := c.doJSON(ctx, http.MethodPost,
		"/uapi/domestic-stock/v1/trading/order-cash",
		c.commonHeaders(trID), nil, body)
	if err != nil {
		c.logger.Error("order submission failed",
			slog.String("symbol", req.Symbol),
			slog.String("side", string(req.Side)),
			slog.String("error", err.Error()),
		)
		return domain.OrderResult{Message: err.Error()}
	}

	var resp orderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		c.logger.Error("order: decode response", slog.String("error", err.Error()))
		return domain.OrderResult{Message: err.Error()}
	}
	if status != http.StatusOK || resp.ResultCode != rtSuccess {
		c.logger.Error("order rejected",
			slog.String("symbol", req.Symbol),
			slog.String("side", string(req.Side)),
			slog.String("rt_cd", resp.ResultCode),
			slog.String("msg", resp.Message),
		)
		return domain.OrderResult{Message: resp.Message}
	}

	c.logger.Info("order accepted",
		slog.String("symbol", req.Symbol),
		slog.String("side", string(req.Side)),
		slog.Int("quantity", req.Quantity),
		slog.String("msg", resp.Message),
	)
	return domain.OrderResult{Success: true, Message: resp.Message}
}

// orderTrID selects the transaction code from the {mode, side} matrix.
func (c *Client) orderTrID(side domain.OrderSide) string {
	if c.mode == domain.ModeLive {
		if side == domain.OrderSideBuy {
			return trBuyLive
		}
		return trSellLive
	}
	if side == domain.OrderSideBuy {
		return trBuyPaper
	}
	return trSellPaper
}

// ApprovalKey requests the websocket approval key used by the realtime quote
// feed. Unlike the trading operations this returns an error: the feed layer
// owns the retry loop.
func (c *Client) ApprovalKey(ctx context.Context) (string, error) {
	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"secretkey":  c.appSecret,
	}

	status, respBody, err := c.doJSON(ctx, http.MethodPost, "/oauth2/Approval", nil, nil, body)
	if err != nil {
		return "", fmt.Errorf("kis: approval key: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("kis: approval key: HTTP %d: %s", status, truncate(respBody, 256))
	}

	var resp approvalResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("kis: approval key: decode response: %w", err)
	}
	if resp.ApprovalKey == "" {
		return "", fmt.Errorf("kis: approval key: empty key in response")
	}
	return resp.ApprovalKey, nil
}

// WSEndpoint returns the realtime websocket endpoint for this client's mode.
func (c *Client) WSEndpoint() string {
	if c.mode == domain.ModeLive {
		return wsURLLive
	}
	return wsURLPaper
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doJSON builds, sends, and reads an HTTP request against the KIS API. It
// returns the status code and raw body; interpreting the envelope is left to
// the caller because KIS reports most failures inside a 200 response.
func (c *Client) doJSON(ctx context.Context, method, path string, headers map[string]string, query url.Values, reqBody any) (int, []byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// truncate limits a response body for inclusion in error strings.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
