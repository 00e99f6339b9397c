package http

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
	"github.com/upawatch/upawatch/pkg/usecase"
)

// FacilityHandler serves the public live map
type FacilityHandler struct {
	board   usecase.LiveBoard
	reports usecase.ReportUseCase
	travel  model.TravelMultipliers

	// holds maps each subscription handed out over HTTP to its facility
	mu    sync.Mutex
	holds map[types.SubscriptionID]types.FacilityID
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(board usecase.LiveBoard, reports usecase.ReportUseCase, travel model.TravelMultipliers) *FacilityHandler {
	return &FacilityHandler{
		board:   board,
		reports: reports,
		travel:  travel,
		holds:   make(map[types.SubscriptionID]types.FacilityID),
	}
}

func (h *FacilityHandler) addHold(id types.FacilityID) types.SubscriptionID {
	sub := types.NewSubscriptionID()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.holds[sub] = id
	return sub
}

// takeHold removes a subscription if it belongs to the facility
func (h *FacilityHandler) takeHold(sub types.SubscriptionID, id types.FacilityID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if held, ok := h.holds[sub]; !ok || held != id {
		return false
	}
	delete(h.holds, sub)
	return true
}

// facilityView is one map entry; live fields are absent until the facility is subscribed
type facilityView struct {
	*model.FacilityMetadata
	Marker  *model.FacilityMarkerState `json:"marker,omitempty"`
	Metrics *model.DerivedMetrics      `json:"metrics,omitempty"`
}

type snapshotView struct {
	Snapshot       *model.QueueSnapshot  `json:"snapshot"`
	Metrics        *model.DerivedMetrics `json:"metrics"`
	SubscriptionID types.SubscriptionID  `json:"subscription_id,omitempty"`
}

func facilityID(r *http.Request) types.FacilityID {
	return types.FacilityID(chi.URLParam(r, "id"))
}

func newSnapshotView(s *model.QueueSnapshot) snapshotView {
	return snapshotView{Snapshot: s, Metrics: usecase.DeriveMetrics(s)}
}

// HandleList returns the facility catalog with the marker of every subscribed facility
func (h *FacilityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	facilities, err := h.reports.ListFacilities(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]facilityView, 0, len(facilities))
	for _, f := range facilities {
		view := facilityView{FacilityMetadata: f}
		if snapshot, err := h.board.Snapshot(f.ID); err == nil {
			metrics := usecase.DeriveMetrics(snapshot)
			view.Metrics = metrics
			view.Marker = &metrics.Marker
		}
		views = append(views, view)
	}
	writeJSON(w, r, http.StatusOK, views)
}

// HandleSnapshot returns the current snapshot of a subscribed facility
func (h *FacilityHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.board.Snapshot(facilityID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSnapshotView(snapshot))
}

// HandleSubscribe takes a hold on a facility and returns its first snapshot along with the
// subscription ID that releases the hold
func (h *FacilityHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	id := facilityID(r)
	if err := id.Validate(); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid facility", goerr.T(model.ErrTagInvalidQuery)))
		return
	}

	snapshot, err := h.board.Subscribe(r.Context(), id)
	if err != nil {
		// Unknown and discarded facilities already left the board with their holds
		if !errors.Is(err, model.ErrFacilityNotFound) && !errors.Is(err, usecase.ErrFetchDiscarded) {
			if relErr := h.board.Unsubscribe(r.Context(), id); relErr != nil {
				ctxlog.From(r.Context()).Warn("Failed to release facility hold", "facility_id", id, "error", relErr)
			}
		}
		writeError(w, r, err)
		return
	}

	view := newSnapshotView(snapshot)
	view.SubscriptionID = h.addHold(id)
	writeJSON(w, r, http.StatusOK, view)
}

// HandleUnsubscribe releases the hold named by the subscription query parameter
func (h *FacilityHandler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id := facilityID(r)
	sub := types.SubscriptionID(r.URL.Query().Get("subscription"))
	if !h.takeHold(sub, id) {
		writeError(w, r, goerr.Wrap(model.ErrSubscriptionNotFound, "unknown subscription",
			goerr.V("facility_id", id),
			goerr.V("subscription_id", sub)))
		return
	}

	if err := h.board.Unsubscribe(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefresh forces a REST refresh of a subscribed facility
func (h *FacilityHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.board.Refresh(r.Context(), facilityID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newSnapshotView(snapshot))
}

type travelView struct {
	model.TravelEstimate
	Distance string `json:"distance,omitempty"`
}

// HandleTravel turns a driving estimate from the map provider into bike and foot times
func (h *FacilityHandler) HandleTravel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	driving, err := strconv.ParseFloat(q.Get("driving_minutes"), 64)
	if err != nil {
		writeError(w, r, goerr.Wrap(err, "driving_minutes must be a number",
			goerr.V("driving_minutes", q.Get("driving_minutes")),
			goerr.T(model.ErrTagInvalidQuery)))
		return
	}

	view := travelView{TravelEstimate: model.EstimateTravel(driving, h.travel)}
	if raw := q.Get("distance_meters"); raw != "" {
		meters, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, r, goerr.Wrap(err, "distance_meters must be a number",
				goerr.V("distance_meters", raw),
				goerr.T(model.ErrTagInvalidQuery)))
			return
		}
		view.Distance = model.FormatDistanceMeters(meters)
	}
	writeJSON(w, r, http.StatusOK, view)
}
