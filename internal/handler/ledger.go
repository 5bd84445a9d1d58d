package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/greyfiles/loyalty/internal/auth"
	"github.com/greyfiles/loyalty/internal/store"
	"github.com/greyfiles/loyalty/internal/websocket"
)

// LedgerHandler exposes enrollment and the two record operations.
type LedgerHandler struct {
	ledgerStore *store.LedgerStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewLedgerHandler(ls *store.LedgerStore, hub *websocket.Hub, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{ledgerStore: ls, hub: hub, logger: logger}
}

func (h *LedgerHandler) broadcast(evt websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(evt)
	}
}

type enrollRequest struct {
	ProgramID int64 `json:"program_id"`
}

func (h *LedgerHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	customerID := auth.CustomerID(r.Context())
	if customerID == 0 {
		writeError(w, http.StatusForbidden, "customer session required")
		return
	}

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	wallet, err := h.ledgerStore.Enroll(r.Context(), customerID, req.ProgramID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.broadcast(websocket.Event{
		Type:      websocket.EventEnrolled,
		WalletID:  wallet.ID,
		ProgramID: wallet.ProgramID,
	})

	writeJSON(w, http.StatusOK, wallet)
}

type recordRequest struct {
	WalletID    int64  `json:"wallet_id"`
	ProgramID   int64  `json:"program_id"`
	RuleVersion int    `json:"rule_version"`
	RuleCode    string `json:"rule_code"`
	Date        string `json:"date"`
}

func (r *recordRequest) parseDate() (time.Time, bool) {
	if r.Date == "" {
		return time.Now().UTC(), true
	}
	t, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (h *LedgerHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	date, ok := req.parseDate()
	if !ok {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	instance, err := h.ledgerStore.RecordActivity(r.Context(), req.WalletID, req.ProgramID, req.RuleVersion, req.RuleCode, date)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.logger.Info("activity recorded",
		"wallet_id", instance.WalletID,
		"program_id", instance.ProgramID,
		"rule_code", instance.RuleCode,
	)
	h.broadcast(websocket.Event{
		Type:      websocket.EventActivity,
		WalletID:  instance.WalletID,
		ProgramID: instance.ProgramID,
	})

	writeJSON(w, http.StatusCreated, instance)
}

func (h *LedgerHandler) RecordRedemption(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	date, ok := req.parseDate()
	if !ok {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	instance, err := h.ledgerStore.RecordRedemption(r.Context(), req.WalletID, req.ProgramID, req.RuleVersion, req.RuleCode, date)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.logger.Info("redemption recorded",
		"wallet_id", instance.WalletID,
		"program_id", instance.ProgramID,
		"rule_code", instance.RuleCode,
	)
	h.broadcast(websocket.Event{
		Type:      websocket.EventRedemption,
		WalletID:  instance.WalletID,
		ProgramID: instance.ProgramID,
	})

	writeJSON(w, http.StatusCreated, instance)
}

func (h *LedgerHandler) GetParticipation(w http.ResponseWriter, r *http.Request) {
	walletID, err := parseIDParam(r, "wallet")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid wallet id")
		return
	}
	programID, err := parseIDParam(r, "program")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid program id")
		return
	}

	participation, err := h.ledgerStore.GetParticipation(r.Context(), walletID, programID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if participation == nil {
		writeError(w, http.StatusNotFound, "wallet not enrolled in program")
		return
	}
	writeJSON(w, http.StatusOK, participation)
}
