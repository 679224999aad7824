package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	chirouter "github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/kailas-cloud/spendguard/internal/domain"
	domacc "github.com/kailas-cloud/spendguard/internal/domain/account"
	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/domain/call"
	"github.com/kailas-cloud/spendguard/internal/logger"
	accountuc "github.com/kailas-cloud/spendguard/internal/usecase/account"
	activityuc "github.com/kailas-cloud/spendguard/internal/usecase/activity"
	healthuc "github.com/kailas-cloud/spendguard/internal/usecase/health"
	ledgeruc "github.com/kailas-cloud/spendguard/internal/usecase/ledger"
	transferuc "github.com/kailas-cloud/spendguard/internal/usecase/transfer"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the ledger HTTP API.
type Server struct {
	accounts      *accountuc.Service
	ledger        *ledgeruc.Service
	transfers     *transferuc.Service
	activity      *activityuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	accounts *accountuc.Service,
	ledger *ledgeruc.Service,
	transfers *transferuc.Service,
	activity *activityuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		accounts:  accounts,
		ledger:    ledger,
		transfers: transfers,
		activity:  activity,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		detailHandler(domain.ErrInvalidAmount, http.StatusBadRequest, ErrorCodeInvalidAmount),
		detailHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrUnauthorized, http.StatusForbidden, ErrorCodeUnauthorized),
		sentinelHandler(domain.ErrInvalidUpdate, http.StatusConflict, ErrorCodeInvalidUpdate),
		sentinelHandler(domain.ErrLimitExceeded, http.StatusPaymentRequired, ErrorCodeLimitExceeded),
		sentinelHandler(domain.ErrInsufficientFunds, http.StatusPaymentRequired, ErrorCodeInsufficientFunds),
		sentinelHandler(domain.ErrAccountNotFound, http.StatusNotFound, ErrorCodeAccountNotFound),
	}
	return s
}

// Mount registers the API routes on r.
func (s *Server) Mount(r chirouter.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1/accounts", func(r chirouter.Router) {
		r.Post("/", s.DeployAccount)
		r.Route("/{account}", func(r chirouter.Router) {
			r.Get("/", s.GetAccount)
			r.Post("/fund", s.FundAccount)
			r.Get("/balances/{asset}", s.GetBalance)
			r.Get("/limits", s.ListLimits)
			r.Get("/limits/{asset}", s.GetLimit)
			r.Put("/limits/{asset}", s.SetLimit)
			r.Delete("/limits/{asset}", s.RemoveLimit)
			r.Post("/transfers", s.Transfer)
			r.Get("/activity", s.GetActivity)
		})
	})
}

// DeployAccount handles POST /api/v1/accounts.
func (s *Server) DeployAccount(w http.ResponseWriter, r *http.Request) {
	var req DeployAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := domain.ParseAddress(req.Owner)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	salt, err := parseSalt(req.Salt)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	acc, created, err := s.accounts.Deploy(r.Context(), owner, salt)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, accountToAPI(acc))
}

// GetAccount handles GET /api/v1/accounts/{account}.
func (s *Server) GetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "account")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	acc, err := s.accounts.Get(r.Context(), addr)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountToAPI(acc))
}

// FundAccount handles POST /api/v1/accounts/{account}/fund.
func (s *Server) FundAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "account")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var req FundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	asset, err := domain.ParseAddress(req.Asset)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	bal, err := s.accounts.Fund(r.Context(), addr, asset, amount)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Account: addr.Hex(), Asset: asset.Hex(), Balance: bal.Dec()})
}

// GetBalance handles GET /api/v1/accounts/{account}/balances/{asset}.
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, asset, err := pathAccountAsset(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	bal, err := s.accounts.Balance(r.Context(), addr, asset)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Account: addr.Hex(), Asset: asset.Hex(), Balance: bal.Dec()})
}

// ListLimits handles GET /api/v1/accounts/{account}/limits.
func (s *Server) ListLimits(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "account")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	recs, err := s.ledger.List(r.Context(), addr)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LimitListResponse{
		Items: lo.Map(recs, func(rec allowance.Record, _ int) LimitResponse { return limitToAPI(rec) }),
	})
}

// GetLimit handles GET /api/v1/accounts/{account}/limits/{asset}.
func (s *Server) GetLimit(w http.ResponseWriter, r *http.Request) {
	addr, asset, err := pathAccountAsset(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	rec, eff, err := s.ledger.LimitView(r.Context(), addr, asset)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := limitToAPI(rec)
	if eff.IsEnabled() {
		resp.Spendable = lo.ToPtr(dec(eff.Available()))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetLimit handles PUT /api/v1/accounts/{account}/limits/{asset}.
func (s *Server) SetLimit(w http.ResponseWriter, r *http.Request) {
	addr, asset, err := pathAccountAsset(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var req SetLimitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	limit, err := domain.ParseAmount(req.Limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rec, err := s.ledger.SetSpendingLimit(r.Context(), call.Call{
		Kind:    call.KindSetSpendingLimit,
		Account: addr,
		Asset:   asset,
		Amount:  limit,
		Nonce:   req.Nonce,
	}, sig)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limitToAPI(rec))
}

// RemoveLimit handles DELETE /api/v1/accounts/{account}/limits/{asset}.
func (s *Server) RemoveLimit(w http.ResponseWriter, r *http.Request) {
	addr, asset, err := pathAccountAsset(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var req RemoveLimitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rec, err := s.ledger.RemoveSpendingLimit(r.Context(), call.Call{
		Kind:    call.KindRemoveSpendingLimit,
		Account: addr,
		Asset:   asset,
		Nonce:   req.Nonce,
	}, sig)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limitToAPI(rec))
}

// Transfer handles POST /api/v1/accounts/{account}/transfers.
func (s *Server) Transfer(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "account")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var req TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, sig, err := transferCallFromAPI(addr, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	receipt, err := s.transfers.Transfer(r.Context(), c, sig)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TransferResponse{
		From:      receipt.From.Hex(),
		To:        receipt.To.Hex(),
		Asset:     receipt.Asset.Hex(),
		Amount:    receipt.Amount.Dec(),
		Nonce:     receipt.Nonce,
		Balance:   receipt.Balance.Dec(),
		Internal:  receipt.Internal,
		Allowance: limitToAPI(receipt.Allowance),
	})
}

// GetActivity handles GET /api/v1/accounts/{account}/activity.
func (s *Server) GetActivity(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "account")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if _, err := s.accounts.Get(r.Context(), addr); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	act, err := s.activity.Today(r.Context(), addr)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{
		Account:    act.Account().Hex(),
		Day:        act.Day(),
		Authorized: act.Authorized(),
		Denied:     act.Denied(),
		ResetsAt:   time.UnixMilli(act.ResetsAt()).UTC(),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnauthorized,
		domain.ErrInvalidUpdate,
		domain.ErrLimitExceeded,
		domain.ErrInsufficientFunds,
		domain.ErrAccountNotFound,
		domain.ErrInvalidAmount,
		domain.ErrInvalidRequest,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// detailHandler is a sentinelHandler for caller mistakes: the full error text is returned.
func detailHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, _ string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Debug("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

// pathAddress binds the path parameter name and parses it as an address.
func pathAddress(r *http.Request, name string) (common.Address, error) {
	var raw string
	err := runtime.BindStyledParameterWithOptions("simple", name, chirouter.URLParam(r, name), &raw,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: parameter %s: %w", domain.ErrInvalidRequest, name, err)
	}
	return domain.ParseAddress(raw)
}

func pathAccountAsset(r *http.Request) (acc, asset common.Address, err error) {
	if acc, err = pathAddress(r, "account"); err != nil {
		return common.Address{}, common.Address{}, err
	}
	if asset, err = pathAddress(r, "asset"); err != nil {
		return common.Address{}, common.Address{}, err
	}
	return acc, asset, nil
}

func parseSalt(s string) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: salt: %w", domain.ErrInvalidRequest, err)
	}
	if len(b) > common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: salt longer than %d bytes", domain.ErrInvalidRequest, common.HashLength)
	}
	return common.BytesToHash(b), nil
}

func parseSignature(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: signature is required", domain.ErrInvalidRequest)
	}
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %w", domain.ErrInvalidRequest, err)
	}
	return sig, nil
}

func transferCallFromAPI(from common.Address, req TransferRequest) (call.Call, []byte, error) {
	asset, err := domain.ParseAddress(req.Asset)
	if err != nil {
		return call.Call{}, nil, err
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		return call.Call{}, nil, err
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		return call.Call{}, nil, err
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		return call.Call{}, nil, err
	}
	return call.Call{
		Kind:    call.KindTransfer,
		Account: from,
		Asset:   asset,
		Amount:  amount,
		To:      to,
		Nonce:   req.Nonce,
	}, sig, nil
}

func accountToAPI(a domacc.Account) AccountResponse {
	return AccountResponse{
		Address:   a.Address().Hex(),
		Owner:     a.Owner().Hex(),
		Salt:      a.Salt().Hex(),
		Nonce:     a.Nonce(),
		CreatedAt: time.UnixMilli(a.CreatedAt()).UTC(),
	}
}

func limitToAPI(rec allowance.Record) LimitResponse {
	resp := LimitResponse{
		Asset:     rec.Asset().Hex(),
		Limit:     dec(rec.Limit()),
		Available: dec(rec.Available()),
		ResetTime: rec.ResetTime(),
		Enabled:   rec.IsEnabled(),
	}
	if rec.ResetTime() > 0 {
		resp.ResetAt = lo.ToPtr(time.Unix(rec.ResetTime(), 0).UTC())
	}
	return resp
}

func dec(v uint256.Int) string { return v.Dec() }
