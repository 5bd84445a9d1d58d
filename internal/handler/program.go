package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/greyfiles/loyalty/internal/auth"
	"github.com/greyfiles/loyalty/internal/model"
	"github.com/greyfiles/loyalty/internal/store"
)

// ProgramHandler manages a brand's program, catalog, and rules. All
// routes require a brand session.
type ProgramHandler struct {
	programStore *store.ProgramStore
	logger       *slog.Logger
}

func NewProgramHandler(ps *store.ProgramStore, logger *slog.Logger) *ProgramHandler {
	return &ProgramHandler{programStore: ps, logger: logger}
}

type programRequest struct {
	Name string `json:"name"`
}

func (h *ProgramHandler) Create(w http.ResponseWriter, r *http.Request) {
	brandID := auth.BrandID(r.Context())

	var req programRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	program, err := h.programStore.Create(r.Context(), brandID, strings.TrimSpace(req.Name))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.logger.Info("program created", "program_id", program.ID, "brand_id", brandID)
	writeJSON(w, http.StatusCreated, program)
}

func (h *ProgramHandler) Get(w http.ResponseWriter, r *http.Request) {
	brandID := auth.BrandID(r.Context())

	program, err := h.programStore.GetByBrand(r.Context(), brandID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if program == nil {
		writeError(w, http.StatusNotFound, "no program for brand")
		return
	}
	writeJSON(w, http.StatusOK, program)
}

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *ProgramHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	category, err := h.programStore.CreateCategory(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *ProgramHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.programStore.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if categories == nil {
		categories = []model.ActivityCategory{}
	}
	writeJSON(w, http.StatusOK, categories)
}

type rewardRequest struct {
	Name string `json:"name"`
}

func (h *ProgramHandler) CreateReward(w http.ResponseWriter, r *http.Request) {
	program, ok := h.ownProgram(w, r)
	if !ok {
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	reward, err := h.programStore.CreateReward(r.Context(), program.ID, strings.TrimSpace(req.Name))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

func (h *ProgramHandler) ListRewards(w http.ResponseWriter, r *http.Request) {
	program, ok := h.ownProgram(w, r)
	if !ok {
		return
	}

	rewards, err := h.programStore.ListRewards(r.Context(), program.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

type earningRuleRequest struct {
	RuleVersion int    `json:"rule_version"`
	RuleCode    string `json:"rule_code"`
	CategoryID  int64  `json:"category_id"`
	Points      int    `json:"points"`
}

func (h *ProgramHandler) CreateEarningRule(w http.ResponseWriter, r *http.Request) {
	program, ok := h.ownProgram(w, r)
	if !ok {
		return
	}

	var req earningRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rule := model.EarningRule{
		ProgramID:   program.ID,
		RuleVersion: req.RuleVersion,
		RuleCode:    strings.TrimSpace(req.RuleCode),
		CategoryID:  req.CategoryID,
		Points:      req.Points,
	}
	if err := h.programStore.CreateEarningRule(r.Context(), rule); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

type redeemingRuleRequest struct {
	RuleVersion int    `json:"rule_version"`
	RuleCode    string `json:"rule_code"`
	RewardID    int64  `json:"reward_id"`
	Points      int    `json:"points"`
}

func (h *ProgramHandler) CreateRedeemingRule(w http.ResponseWriter, r *http.Request) {
	program, ok := h.ownProgram(w, r)
	if !ok {
		return
	}

	var req redeemingRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rule := model.RedeemingRule{
		ProgramID:   program.ID,
		RuleVersion: req.RuleVersion,
		RuleCode:    strings.TrimSpace(req.RuleCode),
		RewardID:    req.RewardID,
		Points:      req.Points,
	}
	if err := h.programStore.CreateRedeemingRule(r.Context(), rule); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// ownProgram resolves the authenticated brand's program, writing the
// error response when there is none.
func (h *ProgramHandler) ownProgram(w http.ResponseWriter, r *http.Request) (*model.LoyaltyProgram, bool) {
	brandID := auth.BrandID(r.Context())

	program, err := h.programStore.GetByBrand(r.Context(), brandID)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	if program == nil {
		writeError(w, http.StatusNotFound, "no program for brand")
		return nil, false
	}
	return program, true
}
