package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"merchant-ledger/internal/adapter/http/dto"
	"merchant-ledger/internal/adapter/http/middleware"
	"merchant-ledger/internal/adapter/storage/memory"
	"merchant-ledger/internal/adapter/transfer"
	"merchant-ledger/internal/auth"
	"merchant-ledger/internal/core/domain"
	"merchant-ledger/internal/core/ports"
	"merchant-ledger/internal/core/ports/mocks"
	"merchant-ledger/internal/service"
	"merchant-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testLedger struct {
	router  *gin.Engine
	sigSvc  *service.Ed25519SignatureService
	bank    *transfer.CustodyBank
	custody *keypair.Full
	admin   *keypair.Full
}

func newTestLedger(t *testing.T, limiter ports.RateLimiter) *testLedger {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()
	clock := service.SystemClock{}
	custody := keypair.MustRandom()
	bank := transfer.NewCustodyBank(log)
	require.NoError(t, bank.Mint(domain.NativeToken, domain.Principal(custody.Address()), decimal.NewFromInt(1_000_000)))

	events := service.NewEventService(memory.NewEventRepo(store), nil, clock, log)
	deps := service.Deps{
		Roles:      memory.NewRoleRepo(store),
		Counters:   memory.NewCounterRepo(store),
		Merchants:  memory.NewMerchantRepo(store),
		Invoices:   memory.NewInvoiceRepo(store),
		Balances:   memory.NewBalanceRepo(store),
		Accounts:   memory.NewAccountRepo(store),
		Fees:       memory.NewFeeRepo(store),
		Transactor: store,
		Authn:      auth.NewContextAuthenticator(),
		Transferer: bank,
		Events:     events,
		Clock:      clock,
	}

	acl := service.NewAccessControlService(deps, log)
	sigSvc := service.NewEd25519SignatureService()

	router := SetupRouter(RouterDeps{
		AccessControl:  acl,
		Merchants:      service.NewMerchantRegistryService(deps, acl, log),
		Invoices:       service.NewInvoiceService(deps, acl, domain.Principal(custody.Address()), log),
		Fees:           service.NewFeeService(deps, acl, log),
		Accounts:       service.NewAccountService(deps, acl, log),
		Events:         events,
		SigSvc:         sigSvc,
		NonceStore:     memory.NewNonceStore(),
		TokenSvc:       service.NewJWTTokenService("test-secret", time.Hour, "merchant-ledger"),
		RateLimiter:    limiter,
		HealthCheckers: []ports.HealthChecker{store},
		OpenAPISpec:    []byte("openapi: 3.0.3\n"),
		Logger:         log,
	})

	return &testLedger{router: router, sigSvc: sigSvc, bank: bank, custody: custody, admin: keypair.MustRandom()}
}

// do sends a request signed by as; a nil signer sends it unauthenticated.
func (l *testLedger) do(t *testing.T, as *keypair.Full, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		ts := time.Now().Unix()
		nonce := uuid.NewString()
		sig, err := l.sigSvc.Sign(as.Seed(), l.sigSvc.BuildCanonicalString(method, req.URL.Path, ts, nonce, body))
		require.NoError(t, err)
		req.Header.Set(middleware.HeaderPrincipal, as.Address())
		req.Header.Set(middleware.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(middleware.HeaderNonce, nonce)
		req.Header.Set(middleware.HeaderSignature, sig)
	}
	w := httptest.NewRecorder()
	l.router.ServeHTTP(w, req)
	return w
}

func (l *testLedger) doBearer(token, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	l.router.ServeHTTP(w, req)
	return w
}

func (l *testLedger) initialize(t *testing.T) {
	t.Helper()
	w := l.do(t, l.admin, http.MethodPost, "/api/v1/ledger/initialize", fmt.Sprintf(`{"admin":%q}`, l.admin.Address()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (l *testLedger) registerMerchant(t *testing.T, merchant, manager *keypair.Full) dto.MerchantResponse {
	t.Helper()
	body := fmt.Sprintf(`{"merchant_address":%q,"manager_address":%q}`, merchant.Address(), manager.Address())
	w := l.do(t, l.admin, http.MethodPost, "/api/v1/merchants", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m dto.MerchantResponse
	decodeData(t, w, &m)
	return m
}

func (l *testLedger) createInvoice(t *testing.T, merchant *keypair.Full, amount string) dto.InvoiceResponse {
	t.Helper()
	body := fmt.Sprintf(`{"merchant_address":%q,"description":"order","amount":%q,"token":"native"}`, merchant.Address(), amount)
	w := l.do(t, merchant, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var inv dto.InvoiceResponse
	decodeData(t, w, &inv)
	return inv
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLedgerFlow_InvoiceToWithdrawal(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)

	merchant := keypair.MustRandom()
	manager := keypair.MustRandom()
	payout := keypair.MustRandom()

	m := l.registerMerchant(t, merchant, manager)
	assert.Equal(t, uint64(1), m.ID)
	assert.Equal(t, merchant.Address(), m.Address)

	w := l.do(t, l.admin, http.MethodPut, "/api/v1/fees/native", `{"fee":"25"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	inv := l.createInvoice(t, merchant, "1000")
	assert.Equal(t, uint64(1), inv.ID)
	assert.Equal(t, "PENDING", inv.Status)

	w = l.do(t, l.admin, http.MethodPost, "/api/v1/invoices/1/pay", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var paid dto.InvoiceResponse
	decodeData(t, w, &paid)
	assert.Equal(t, "PAID", paid.Status)
	require.NotNil(t, paid.Payer)
	assert.Equal(t, l.admin.Address(), *paid.Payer)
	assert.NotNil(t, paid.DatePaid)

	assert.Equal(t, "999025", l.bank.Balance(domain.NativeToken, domain.Principal(l.custody.Address())).String())
	assert.Equal(t, "975", l.bank.Balance(domain.NativeToken, domain.Principal(merchant.Address())).String())

	w = l.do(t, nil, http.MethodGet, "/api/v1/accounts/1/balances/native", "")
	require.Equal(t, http.StatusOK, w.Code)
	var bal dto.BalanceResponse
	decodeData(t, w, &bal)
	assert.Equal(t, "975", bal.Amount)

	w = l.do(t, merchant, http.MethodPut, "/api/v1/accounts/1/withdrawal-address", fmt.Sprintf(`{"address":%q}`, payout.Address()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = l.do(t, merchant, http.MethodPost, "/api/v1/accounts/1/withdrawals", `{"token":"native","amount":"500"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var wd dto.WithdrawalResponse
	decodeData(t, w, &wd)
	assert.Equal(t, "475", wd.Remaining)
	assert.Equal(t, payout.Address(), wd.To)
	assert.NotEmpty(t, wd.Reference)
	assert.Equal(t, "500", l.bank.Balance(domain.NativeToken, domain.Principal(payout.Address())).String())

	w = l.do(t, nil, http.MethodGet, "/api/v1/accounts/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var acct dto.AccountResponse
	decodeData(t, w, &acct)
	assert.Equal(t, manager.Address(), acct.Manager)
	require.NotNil(t, acct.WithdrawalAddress)
	assert.Equal(t, payout.Address(), *acct.WithdrawalAddress)
	require.Len(t, acct.Balances, 1)
	assert.Equal(t, "475", acct.Balances[0].Amount)

	w = l.do(t, nil, http.MethodGet, "/api/v1/events?topic=InvoicePaid", "")
	require.Equal(t, http.StatusOK, w.Code)
	var events struct {
		Items []dto.EventResponse `json:"items"`
		Count int                 `json:"count"`
	}
	decodeData(t, w, &events)
	require.Equal(t, 1, events.Count)
	var payload domain.InvoicePaidPayload
	require.NoError(t, json.Unmarshal(events.Items[0].Payload, &payload))
	assert.Equal(t, uint64(1), payload.InvoiceID)
	assert.True(t, payload.Fee.Equal(decimal.NewFromInt(25)))
}

func TestInvoices_ErrorMapping(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)
	merchant := keypair.MustRandom()
	l.registerMerchant(t, merchant, keypair.MustRandom())

	tests := []struct {
		name     string
		as       *keypair.Full
		method   string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"zero amount", merchant, http.MethodPost, "/api/v1/invoices",
			fmt.Sprintf(`{"merchant_address":%q,"amount":"0","token":"native"}`, merchant.Address()), http.StatusBadRequest, "PAY_002"},
		{"amount above 2^127-1", merchant, http.MethodPost, "/api/v1/invoices",
			fmt.Sprintf(`{"merchant_address":%q,"amount":"170141183460469231731687303715884105728","token":"native"}`, merchant.Address()), http.StatusBadRequest, "PAY_002"},
		{"signed by someone else", l.admin, http.MethodPost, "/api/v1/invoices",
			fmt.Sprintf(`{"merchant_address":%q,"amount":"10","token":"native"}`, merchant.Address()), http.StatusForbidden, "ACL_001"},
		{"unsigned write", nil, http.MethodPost, "/api/v1/invoices/1/pay", "", http.StatusUnauthorized, "SEC_001"},
		{"unknown invoice", nil, http.MethodGet, "/api/v1/invoices/42", "", http.StatusNotFound, "LED_004"},
		{"bad id", nil, http.MethodGet, "/api/v1/invoices/abc", "", http.StatusBadRequest, "VAL_001"},
		{"pay without role", merchant, http.MethodPost, "/api/v1/invoices/1/pay", "", http.StatusForbidden, "ACL_001"},
		{"bad status filter", nil, http.MethodGet, "/api/v1/invoices?status=refunded", "", http.StatusBadRequest, "VAL_001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := l.do(t, tt.as, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Equal(t, tt.wantErr, decodeError(t, w).ErrorCode)
		})
	}
}

func TestInvoices_CancelAndFilter(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)
	merchant := keypair.MustRandom()
	other := keypair.MustRandom()
	l.registerMerchant(t, merchant, keypair.MustRandom())
	l.registerMerchant(t, other, keypair.MustRandom())

	l.createInvoice(t, merchant, "100")
	l.createInvoice(t, other, "200")
	l.createInvoice(t, merchant, "300")

	w := l.do(t, l.admin, http.MethodPost, "/api/v1/invoices/3/cancel", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = l.do(t, l.admin, http.MethodPost, "/api/v1/invoices/3/pay", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INV_001", decodeError(t, w).ErrorCode)

	list := func(query string) []uint64 {
		w := l.do(t, nil, http.MethodGet, "/api/v1/invoices"+query, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out struct {
			Items []dto.InvoiceResponse `json:"items"`
		}
		decodeData(t, w, &out)
		ids := []uint64{}
		for _, inv := range out.Items {
			ids = append(ids, inv.ID)
		}
		return ids
	}

	assert.Equal(t, []uint64{1, 2, 3}, list(""))
	assert.Equal(t, []uint64{1, 3}, list("?merchant="+merchant.Address()))
	assert.Equal(t, []uint64{3}, list("?status=cancelled"))
	assert.Equal(t, []uint64{1, 2}, list("?status=PENDING&max_amount=200"))
	assert.Equal(t, []uint64{2, 3}, list("?min_amount=200"))
	assert.Equal(t, []uint64{}, list("?merchant="+keypair.MustRandom().Address()))
}

func TestInvoices_DescriptionStoredVerbatim(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)
	merchant := keypair.MustRandom()
	l.registerMerchant(t, merchant, keypair.MustRandom())

	body := fmt.Sprintf(`{"merchant_address":%q,"description":"  A & B <x> ","amount":"5","token":"native"}`, merchant.Address())
	w := l.do(t, merchant, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = l.do(t, nil, http.MethodGet, "/api/v1/invoices/1", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "<x>")
	assert.NotContains(t, w.Body.String(), "&amp;")

	var inv dto.InvoiceResponse
	decodeData(t, w, &inv)
	assert.Equal(t, "A & B <x>", inv.Description)
}

func TestWithdraw_Failures(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)
	merchant := keypair.MustRandom()
	l.registerMerchant(t, merchant, keypair.MustRandom())
	l.createInvoice(t, merchant, "100")
	require.Equal(t, http.StatusOK, l.do(t, l.admin, http.MethodPost, "/api/v1/invoices/1/pay", "").Code)

	w := l.do(t, merchant, http.MethodPost, "/api/v1/accounts/1/withdrawals", `{"token":"native","amount":"101"}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "PAY_001", decodeError(t, w).ErrorCode)

	issuer := keypair.MustRandom().Address()
	w = l.do(t, merchant, http.MethodPost, "/api/v1/accounts/1/withdrawals", fmt.Sprintf(`{"token":"USDC:%s","amount":"1"}`, issuer))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "BAL_001", decodeError(t, w).ErrorCode)

	// Without a withdrawal address the payout would land on the merchant address itself
	w = l.do(t, merchant, http.MethodPost, "/api/v1/accounts/1/withdrawals", `{"token":"native","amount":"10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "BAL_003", decodeError(t, w).ErrorCode)
	assert.Equal(t, "100", l.bank.Balance(domain.NativeToken, domain.Principal(merchant.Address())).String())
	w = l.do(t, nil, http.MethodGet, "/api/v1/events?topic=Withdrawal", "")
	var noEvents struct {
		Items []dto.EventResponse `json:"items"`
	}
	decodeData(t, w, &noEvents)
	assert.Empty(t, noEvents.Items)

	w = l.do(t, merchant, http.MethodPut, "/api/v1/accounts/1/withdrawal-address", fmt.Sprintf(`{"address":%q}`, merchant.Address()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = l.do(t, merchant, http.MethodPost, "/api/v1/accounts/1/withdrawals", `{"token":"native","amount":"10"}`)
	assert.Equal(t, "BAL_003", decodeError(t, w).ErrorCode, "registering the merchant address itself does not help")

	w = l.do(t, l.admin, http.MethodPut, "/api/v1/accounts/1/restriction", `{"restricted":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var acct dto.AccountResponse
	decodeData(t, w, &acct)
	assert.True(t, acct.Restricted)

	w = l.do(t, merchant, http.MethodPost, "/api/v1/accounts/1/withdrawals", `{"token":"native","amount":"10"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "BAL_002", decodeError(t, w).ErrorCode)

	// Balance untouched by the failed attempts
	w = l.do(t, nil, http.MethodGet, "/api/v1/accounts/1/balances", "")
	var balances struct {
		Items []dto.BalanceResponse `json:"items"`
	}
	decodeData(t, w, &balances)
	require.Len(t, balances.Items, 1)
	assert.Equal(t, "100", balances.Items[0].Amount)
}

func TestAccounts_AddToken(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)
	merchant := keypair.MustRandom()
	manager := keypair.MustRandom()
	l.registerMerchant(t, merchant, manager)
	token := "USDC:" + keypair.MustRandom().Address()

	w := l.do(t, manager, http.MethodPost, "/api/v1/accounts/1/tokens", fmt.Sprintf(`{"token":%q}`, token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var bal dto.BalanceResponse
	decodeData(t, w, &bal)
	assert.Equal(t, "0", bal.Amount)

	w = l.do(t, nil, http.MethodGet, "/api/v1/accounts/1/balances/"+token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = l.do(t, keypair.MustRandom(), http.MethodPost, "/api/v1/accounts/1/tokens", `{"token":"native"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = l.do(t, nil, http.MethodGet, "/api/v1/accounts/1/balances/native", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "BAL_001", decodeError(t, w).ErrorCode)
}

func TestRolesAndInitialization(t *testing.T) {
	l := newTestLedger(t, nil)
	manager := keypair.MustRandom()
	grant := fmt.Sprintf(`{"principal":%q,"role":"manager"}`, manager.Address())

	w := l.do(t, l.admin, http.MethodPost, "/api/v1/roles/grant", grant)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "LED_002", decodeError(t, w).ErrorCode)

	w = l.do(t, manager, http.MethodPost, "/api/v1/ledger/initialize", fmt.Sprintf(`{"admin":%q}`, l.admin.Address()))
	assert.Equal(t, http.StatusForbidden, w.Code, "initialize must be signed by the admin")

	l.initialize(t)
	w = l.do(t, l.admin, http.MethodPost, "/api/v1/ledger/initialize", fmt.Sprintf(`{"admin":%q}`, l.admin.Address()))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "LED_001", decodeError(t, w).ErrorCode)

	w = l.do(t, l.admin, http.MethodPost, "/api/v1/roles/grant", grant)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = l.do(t, nil, http.MethodGet, "/api/v1/roles/"+manager.Address()+"?role=manager", "")
	require.Equal(t, http.StatusOK, w.Code)
	var has dto.HasRoleResponse
	decodeData(t, w, &has)
	assert.True(t, has.HasRole)

	w = l.do(t, manager, http.MethodPost, "/api/v1/roles/grant", fmt.Sprintf(`{"principal":%q,"role":"admin"}`, manager.Address()))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = l.do(t, l.admin, http.MethodPost, "/api/v1/roles/revoke", grant)
	require.Equal(t, http.StatusOK, w.Code)
	var roles dto.RolesResponse
	decodeData(t, w, &roles)
	assert.Empty(t, roles.Roles)

	w = l.do(t, nil, http.MethodPost, "/api/v1/roles/grant", `{"principal":"nope","role":"manager"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMerchants_LookupAndUpdate(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)
	merchant := keypair.MustRandom()
	l.registerMerchant(t, merchant, keypair.MustRandom())

	w := l.do(t, nil, http.MethodGet, "/api/v1/merchants/by-address/"+merchant.Address(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var found dto.MerchantLookupResponse
	decodeData(t, w, &found)
	assert.True(t, found.IsMerchant)
	require.NotNil(t, found.Merchant)
	assert.Equal(t, uint64(1), found.Merchant.ID)

	w = l.do(t, nil, http.MethodGet, "/api/v1/merchants/by-address/"+keypair.MustRandom().Address(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var missing dto.MerchantLookupResponse
	decodeData(t, w, &missing)
	assert.False(t, missing.IsMerchant)
	assert.Nil(t, missing.Merchant)

	body := fmt.Sprintf(`{"merchant_address":%q,"manager_address":%q}`, merchant.Address(), keypair.MustRandom().Address())
	w = l.do(t, l.admin, http.MethodPost, "/api/v1/merchants", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "MER_001", decodeError(t, w).ErrorCode)

	newManager := keypair.MustRandom()
	w = l.do(t, merchant, http.MethodPut, "/api/v1/merchants/1", fmt.Sprintf(`{"manager":%q}`, newManager.Address()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated dto.MerchantResponse
	decodeData(t, w, &updated)
	assert.Equal(t, newManager.Address(), updated.Manager)

	w = l.do(t, merchant, http.MethodPut, "/api/v1/merchants/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = l.do(t, nil, http.MethodGet, "/api/v1/merchants/9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFees(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)

	w := l.do(t, nil, http.MethodGet, "/api/v1/fees/native", "")
	require.Equal(t, http.StatusOK, w.Code)
	var unset dto.FeeResponse
	decodeData(t, w, &unset)
	assert.Equal(t, "0", unset.Fee)
	assert.False(t, unset.Configured)

	w = l.do(t, l.admin, http.MethodPut, "/api/v1/fees/native", `{"fee":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PAY_002", decodeError(t, w).ErrorCode)

	w = l.do(t, keypair.MustRandom(), http.MethodPut, "/api/v1/fees/native", `{"fee":"5"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.Equal(t, http.StatusOK, l.do(t, l.admin, http.MethodPut, "/api/v1/fees/native", `{"fee":"5"}`).Code)

	w = l.do(t, nil, http.MethodGet, "/api/v1/fees", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items []dto.FeeResponse `json:"items"`
	}
	decodeData(t, w, &list)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "5", list.Items[0].Fee)
	assert.True(t, list.Items[0].Configured)
	require.NotNil(t, list.Items[0].UpdatedBy)
	assert.Equal(t, l.admin.Address(), *list.Items[0].UpdatedBy)
}

func TestFeeExceedingAmount_BlocksSettlement(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)
	merchant := keypair.MustRandom()
	l.registerMerchant(t, merchant, keypair.MustRandom())
	l.createInvoice(t, merchant, "10")
	require.Equal(t, http.StatusOK, l.do(t, l.admin, http.MethodPut, "/api/v1/fees/native", `{"fee":"11"}`).Code)

	w := l.do(t, l.admin, http.MethodPost, "/api/v1/invoices/1/pay", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INV_002", decodeError(t, w).ErrorCode)

	w = l.do(t, nil, http.MethodGet, "/api/v1/invoices/1", "")
	var inv dto.InvoiceResponse
	decodeData(t, w, &inv)
	assert.Equal(t, "PENDING", inv.Status)
	assert.Equal(t, "1000000", l.bank.Balance(domain.NativeToken, domain.Principal(l.custody.Address())).String())
}

func TestSession_BearerTokenAuthorizesWrites(t *testing.T) {
	l := newTestLedger(t, nil)
	l.initialize(t)
	merchant := keypair.MustRandom()
	l.registerMerchant(t, merchant, keypair.MustRandom())

	w := l.do(t, merchant, http.MethodPost, "/api/v1/auth/session", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session dto.SessionResponse
	decodeData(t, w, &session)
	assert.Equal(t, merchant.Address(), session.Principal)
	assert.Greater(t, session.ExpiresAt, time.Now().Unix())

	body := fmt.Sprintf(`{"merchant_address":%q,"amount":"50","token":"native"}`, merchant.Address())
	w = l.doBearer(session.Token, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = l.doBearer("garbage", http.MethodPost, "/api/v1/invoices", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = l.doBearer(session.Token, http.MethodPost, "/api/v1/auth/session", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "sessions are only issued for signed requests")
}

func TestRateLimit_Applied(t *testing.T) {
	ctrl := gomock.NewController(t)
	limiter := mocks.NewMockRateLimiter(ctrl)
	limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), int64(300), time.Minute).
		Return(&ports.RateLimitResult{Allowed: false, Limit: 300, Remaining: 0, ResetAt: time.Now().Add(time.Minute).Unix()}, nil)

	l := newTestLedger(t, limiter)
	w := l.do(t, nil, http.MethodGet, "/api/v1/fees", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHealthAndDocs(t *testing.T) {
	l := newTestLedger(t, nil)

	w := l.do(t, nil, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"memory":{"status":"healthy"}`)

	w = l.do(t, nil, http.MethodGet, "/swagger/spec", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "openapi: 3.0.3\n", w.Body.String())

	w = l.do(t, nil, http.MethodGet, "/swagger", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")
}

type downChecker struct{}

func (downChecker) Ping(context.Context) error { return fmt.Errorf("connection refused") }
func (downChecker) Name() string               { return "postgresql" }

func TestHealthCheck_Degraded(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthCheck(downChecker{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
	assert.Contains(t, w.Body.String(), "connection refused")
}
