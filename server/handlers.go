package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	tumbler "github.com/bnb-chain/zkbnb-tumbler"
	"github.com/bnb-chain/zkbnb-tumbler/ledger"
)

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req CreatePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Pool == "" {
		http.Error(w, "pool is required", http.StatusBadRequest)
		return
	}
	if _, err := s.ledger.CreatePool(req.Pool); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondWithPool(w, req.Pool, http.StatusCreated)
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req FundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		http.Error(w, "account is required", http.StatusBadRequest)
		return
	}
	balance, err := s.ledger.Fund(req.Account, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &AccountResponse{Name: req.Account, Balance: balance})
}

func (s *Server) handleInstruction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req InstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Pool == "" {
		http.Error(w, "pool is required", http.StatusBadRequest)
		return
	}
	if req.Payer == "" && req.Recipient == "" {
		http.Error(w, "payer or recipient is required", http.StatusBadRequest)
		return
	}
	receipt, err := s.ledger.Execute(r.Context(), req.Pool, req.Payer, req.Recipient, req.Data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newReceiptResponse(receipt))
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	pool := r.URL.Query().Get("pool")
	if pool == "" {
		http.Error(w, "pool is required", http.StatusBadRequest)
		return
	}
	s.respondWithPool(w, pool, http.StatusOK)
}

func (s *Server) respondWithPool(w http.ResponseWriter, pool string, status int) {
	state, err := s.ledger.PoolState(pool)
	if err != nil {
		s.writeError(w, err)
		return
	}
	balance, err := s.ledger.Balance(pool)
	if err != nil {
		s.writeError(w, err)
		return
	}
	store := s.ledger.Processor().Store()
	s.writeJSON(w, status, &PoolResponse{
		Pool:              pool,
		Depth:             store.Depth(),
		HashType:          store.HashType().String(),
		NullifierCapacity: store.NullifierCapacity(),
		Root:              state.Root(),
		LeafCount:         state.LeafCount(),
		Balance:           balance,
		Nullifiers:        state.Nullifiers.Entries(),
	})
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	pool := query.Get("pool")
	if pool == "" {
		http.Error(w, "pool is required", http.StatusBadRequest)
		return
	}
	index, err := strconv.ParseUint(query.Get("index"), 10, 64)
	if err != nil {
		http.Error(w, "index must be an unsigned integer", http.StatusBadRequest)
		return
	}
	state, err := s.ledger.PoolState(pool)
	if err != nil {
		s.writeError(w, err)
		return
	}
	proof, err := s.ledger.Proof(pool, index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	record, err := s.ledger.LeafLog().Record(pool, index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	leaf, err := record.CommitmentDigest()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &ProofResponse{
		Pool:  pool,
		Root:  state.Root(),
		Leaf:  leaf,
		Proof: proof,
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	balance, err := s.ledger.Balance(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &AccountResponse{Name: name, Balance: balance})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	pool := r.URL.Query().Get("pool")
	if pool == "" {
		http.Error(w, "pool is required", http.StatusBadRequest)
		return
	}
	report, err := s.ledger.Audit(r.Context(), pool)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// statusOf maps an error to the HTTP status reported for it.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ledger.ErrPoolNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrPoolExists), errors.Is(err, ledger.ErrBalanceOverflow):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrInvalidParty):
		return http.StatusBadRequest
	}
	switch tumbler.Kind(err) {
	case "InvalidInstructionData", "ProofInvalid", "InvalidIndex":
		return http.StatusBadRequest
	case "AlreadySpent", "PoolFull", "NullifierSetFull":
		return http.StatusConflict
	case "InsufficientFunds":
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ledger.ErrPoolNotFound):
		return "PoolNotFound"
	case errors.Is(err, ledger.ErrAccountNotFound):
		return "AccountNotFound"
	case errors.Is(err, ledger.ErrPoolExists):
		return "PoolExists"
	case errors.Is(err, ledger.ErrBalanceOverflow):
		return "BalanceOverflow"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, ledger.ErrInvalidParty):
		return "InvalidParty"
	}
	return tumbler.Kind(err)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Sugar().Errorw("request failed", "error", err)
	}
	s.writeJSON(w, status, &ErrorResponse{Kind: kindOf(err), Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Sugar().Warnw("Failed to encode response", "error", err)
	}
}
