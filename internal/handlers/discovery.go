package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/chloekuoi/cowork-connect/internal/api/middleware"
	"github.com/chloekuoi/cowork-connect/internal/geo"
	"github.com/chloekuoi/cowork-connect/internal/metrics"
	"github.com/chloekuoi/cowork-connect/internal/models"
	"github.com/chloekuoi/cowork-connect/internal/store"
)

// today returns the current UTC day as "YYYY-MM-DD".
func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// queryDate returns the validated "date" query parameter, defaulting to
// today.
func queryDate(r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return today(), true
	}
	return date, isValidDate(date)
}

// IntentRequest carries a user's coworking declaration for a day.
type IntentRequest struct {
	TaskDescription string  `json:"task_description"`
	AvailableFrom   string  `json:"available_from"`
	AvailableUntil  string  `json:"available_until"`
	WorkStyle       string  `json:"work_style"`
	LocationType    string  `json:"location_type"`
	LocationName    string  `json:"location_name"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	IntentDate      string  `json:"intent_date"`
}

// UpsertIntent creates or replaces the caller's intent for a day.
func (h *Handler) UpsertIntent(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.IntentDate == "" {
		req.IntentDate = today()
	}
	if !isValidDate(req.IntentDate) {
		h.Error(w, http.StatusBadRequest, "intent_date must be YYYY-MM-DD")
		return
	}
	req.TaskDescription = sanitizeText(req.TaskDescription, 500)
	if req.TaskDescription == "" {
		h.Error(w, http.StatusBadRequest, "task_description is required")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		h.Error(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	intent, err := h.db.UpsertIntent(r.Context(), &models.WorkIntent{
		UserID:          user.ID,
		TaskDescription: req.TaskDescription,
		AvailableFrom:   sanitizeText(req.AvailableFrom, 5),
		AvailableUntil:  sanitizeText(req.AvailableUntil, 5),
		WorkStyle:       sanitizeText(req.WorkStyle, 50),
		LocationType:    sanitizeText(req.LocationType, 50),
		LocationName:    sanitizeText(req.LocationName, 200),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		IntentDate:      req.IntentDate,
	})
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to save intent")
		return
	}

	h.JSON(w, http.StatusOK, intent)
}

// GetIntent returns the caller's intent for a day, or 404.
func (h *Handler) GetIntent(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	date, ok := queryDate(r)
	if !ok {
		h.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	intent, err := h.db.GetIntent(r.Context(), user.ID, date)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if intent == nil {
		h.Error(w, http.StatusNotFound, "no intent for this date")
		return
	}

	h.JSON(w, http.StatusOK, intent)
}

// Discover returns nearby candidates for the day: users with an intent
// today whom the caller has not yet swiped on, ordered by distance.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	date, ok := queryDate(r)
	if !ok {
		h.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	own, err := h.db.GetIntent(r.Context(), user.ID, date)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if own == nil {
		h.Error(w, http.StatusConflict, "set your intent for the day first")
		return
	}

	intents, err := h.db.ListIntentsForDate(r.Context(), date, user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	swipedIDs, err := h.db.ListSwipedIDs(r.Context(), user.ID, date)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	swiped := make(map[uuid.UUID]bool, len(swipedIDs))
	for _, id := range swipedIDs {
		swiped[id] = true
	}

	cards := make([]models.DiscoveryCard, 0, len(intents))
	for _, intent := range intents {
		if swiped[intent.UserID] {
			continue
		}

		distance := geo.DistanceKM(own.Latitude, own.Longitude, intent.Latitude, intent.Longitude)
		if distance > h.radiusKM {
			continue
		}

		profile, err := h.db.GetProfileByID(r.Context(), intent.UserID)
		if err != nil || profile == nil {
			continue
		}
		profile.PasswordHash = ""
		profile.Email = ""

		cards = append(cards, models.DiscoveryCard{
			Profile:  *profile,
			Intent:   intent,
			Distance: distance,
		})
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].Distance < cards[j].Distance })

	h.JSON(w, http.StatusOK, map[string]interface{}{"cards": cards, "date": date})
}

// SwipeRequest records a decision on a discovery card.
type SwipeRequest struct {
	SwipedID  uuid.UUID `json:"swiped_id"`
	Direction string    `json:"direction"`
	Date      string    `json:"date"`
}

// SwipeResponse reports whether the swipe produced a match.
type SwipeResponse struct {
	Matched bool          `json:"matched"`
	Match   *models.Match `json:"match,omitempty"`
}

// Swipe records a swipe and creates a match on mutual right swipes. A
// repeat swipe on the same pair and day is benign.
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Direction != models.SwipeRight && req.Direction != models.SwipeLeft {
		h.Error(w, http.StatusBadRequest, "direction must be right or left")
		return
	}
	if req.SwipedID == uuid.Nil || req.SwipedID == user.ID {
		h.Error(w, http.StatusBadRequest, "invalid swiped_id")
		return
	}
	if req.Date == "" {
		req.Date = today()
	}
	if !isValidDate(req.Date) {
		h.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	err := h.db.RecordSwipe(r.Context(), user.ID, req.SwipedID, req.Direction, req.Date)
	if err != nil && !errors.Is(err, store.ErrDuplicate) {
		h.Error(w, http.StatusInternalServerError, "failed to record swipe")
		return
	}
	if err == nil {
		metrics.SwipesRecorded.WithLabelValues(req.Direction).Inc()
	}

	resp := SwipeResponse{}
	if req.Direction == models.SwipeRight {
		mutual, err := h.db.HasRightSwipe(r.Context(), req.SwipedID, user.ID, req.Date)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "match check failed")
			return
		}
		if mutual {
			match, err := h.db.CreateMatch(r.Context(), user.ID, req.SwipedID)
			if err != nil {
				h.Error(w, http.StatusInternalServerError, "failed to create match")
				return
			}
			metrics.MatchesCreated.Inc()
			resp.Matched = true
			resp.Match = match
		}
	}

	h.JSON(w, http.StatusOK, resp)
}
