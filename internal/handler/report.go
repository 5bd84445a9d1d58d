package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/greyfiles/loyalty/internal/model"
	"github.com/greyfiles/loyalty/internal/store"
)

// ReportHandler exposes the eight analytical queries as GET endpoints.
// Parameters arrive in the query string; identifiers and names are always
// bound, never interpolated.
type ReportHandler struct {
	reportStore *store.ReportStore
	logger      *slog.Logger
}

func NewReportHandler(rs *store.ReportStore, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reportStore: rs, logger: logger}
}

func writeNames(w http.ResponseWriter, names []string, err error) {
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func queryInt64(r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return v, err == nil
}

func (h *ReportHandler) CustomersNotInProgram(w http.ResponseWriter, r *http.Request) {
	programID, ok := queryInt64(r, "program_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "program_id is required")
		return
	}
	names, err := h.reportStore.CustomersNotInProgram(r.Context(), programID)
	writeNames(w, names, err)
}

func (h *ReportHandler) EnrolledInactiveCustomers(w http.ResponseWriter, r *http.Request) {
	results, err := h.reportStore.EnrolledInactiveCustomers(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if results == nil {
		results = []model.EnrolledInactive{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *ReportHandler) RewardsOfBrandProgram(w http.ResponseWriter, r *http.Request) {
	brandID, ok := queryInt64(r, "brand_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "brand_id is required")
		return
	}
	names, err := h.reportStore.RewardsOfBrandProgram(r.Context(), brandID)
	writeNames(w, names, err)
}

func (h *ReportHandler) ProgramsWithActivity(w http.ResponseWriter, r *http.Request) {
	names, err := h.reportStore.ProgramsWithActivity(r.Context(), r.URL.Query().Get("activity"))
	writeNames(w, names, err)
}

func (h *ReportHandler) ActivityCountsByCategory(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reportStore.ActivityCountsByCategory(r.Context(), r.URL.Query().Get("brand"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if counts == nil {
		counts = []model.CategoryCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *ReportHandler) RepeatRedeemers(w http.ResponseWriter, r *http.Request) {
	min := 0
	if raw := r.URL.Query().Get("min_redemptions"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_redemptions must be an integer")
			return
		}
		min = v
	}
	names, err := h.reportStore.RepeatRedeemers(r.Context(), r.URL.Query().Get("brand"), min)
	writeNames(w, names, err)
}

func (h *ReportHandler) LowRedemptionBrands(w http.ResponseWriter, r *http.Request) {
	threshold := 0
	if raw := r.URL.Query().Get("point_threshold"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "point_threshold must be an integer")
			return
		}
		threshold = v
	}
	names, err := h.reportStore.LowRedemptionBrands(r.Context(), threshold)
	writeNames(w, names, err)
}

func (h *ReportHandler) ActivityCountInWindow(w http.ResponseWriter, r *http.Request) {
	customerID, ok := queryInt64(r, "customer_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}

	count, err := h.reportStore.ActivityCountInWindow(r.Context(), customerID, r.URL.Query().Get("brand"), start, end)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
