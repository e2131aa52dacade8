package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/feed"
	"github.com/swipehire/swipehire-api/internal/feedcache"
	"github.com/swipehire/swipehire-api/internal/interaction"
	"github.com/swipehire/swipehire-api/internal/middleware"
	"github.com/swipehire/swipehire-api/internal/profile"
	"github.com/swipehire/swipehire-api/internal/tracing"
)

// Feed pagination and pool constraints.
const (
	DefaultFeedPageSize = 10
	MaxFeedPageSize     = 50
	DefaultFeedPoolSize = 500
)

// FeedSessionHeader carries the feed session ID between requests so later
// pages replay the order ranked on the first page.
const FeedSessionHeader = "X-Feed-Session"

// FeedHandlers holds dependencies for the feed endpoint.
type FeedHandlers struct {
	items        content.Repository
	profiles     profile.Repository
	interactions interaction.Repository
	sessions     feedcache.Store
	weights      *feed.Weights
	metrics      *feed.Metrics
	poolSize     int
	sessionTTL   time.Duration
}

// FeedHandlersConfig configures the feed handlers. Weights and Metrics are
// optional; nil weights fall back to the default calibration.
type FeedHandlersConfig struct {
	Items        content.Repository
	Profiles     profile.Repository
	Interactions interaction.Repository
	Sessions     feedcache.Store
	Weights      *feed.Weights
	Metrics      *feed.Metrics
	PoolSize     int
	SessionTTL   time.Duration
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(cfg FeedHandlersConfig) *FeedHandlers {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultFeedPoolSize
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = feedcache.DefaultSessionTTL
	}
	return &FeedHandlers{
		items:        cfg.Items,
		profiles:     cfg.Profiles,
		interactions: cfg.Interactions,
		sessions:     cfg.Sessions,
		weights:      cfg.Weights,
		metrics:      cfg.Metrics,
		poolSize:     poolSize,
		sessionTTL:   sessionTTL,
	}
}

// FeedEntry is a single ranked item in a feed page, enriched with its
// author profile when one exists.
type FeedEntry struct {
	Item   *content.Item   `json:"item"`
	Author *profile.Author `json:"author,omitempty"`
	Score  float64         `json:"score"`
}

// FeedResponse is the response body for GET /feed.
type FeedResponse struct {
	SessionID string      `json:"session_id"`
	Page      int         `json:"page"`
	PageSize  int         `json:"page_size"`
	HasMore   bool        `json:"has_more"`
	Entries   []FeedEntry `json:"entries"`
}

// parseFeedFilters builds the structured filters from query parameters.
// Returns an error message for invalid values, empty string when valid.
func parseFeedFilters(q map[string][]string) (feed.Filters, string) {
	var f feed.Filters

	if raw := firstValue(q, "kinds"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			kind := content.Kind(strings.TrimSpace(part))
			if kind == "" {
				continue
			}
			if !content.ValidKind(kind) {
				return f, "unknown content kind: " + string(kind)
			}
			f.Kinds = append(f.Kinds, kind)
		}
	}

	if raw := firstValue(q, "roles"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			role := profile.Role(strings.TrimSpace(part))
			if role == "" {
				continue
			}
			if !profile.ValidRole(role) {
				return f, "unknown author role: " + string(role)
			}
			f.AuthorRoles = append(f.AuthorRoles, role)
		}
	}

	f.Location = strings.TrimSpace(firstValue(q, "location"))

	if raw := firstValue(q, "skills"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			skill := strings.TrimSpace(part)
			if skill != "" {
				f.Skills = append(f.Skills, skill)
			}
		}
	}

	return f, ""
}

func firstValue(q map[string][]string, key string) string {
	if vals := q[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// filtersKey returns a canonical cache key for the structured filters, so
// session reuse only happens when the filters are unchanged.
func filtersKey(f feed.Filters) string {
	if f.Empty() {
		return ""
	}
	data, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(data)
}

// Feed handles GET /feed - the ranked content feed.
//
// The first request of a feed load ranks the whole candidate pool once and
// caches the order under a session ID returned in the response. Subsequent
// pages send the session ID in the X-Feed-Session header and replay the
// cached order; the pool is never re-ranked mid-session. A page-0 request
// or a change of query or filters starts a fresh session.
func (h *FeedHandlers) Feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()

	viewerID := middleware.GetUserID(r.Context())
	if viewerID == "" {
		viewerID = strings.TrimSpace(q.Get("viewer_id"))
	}

	query := strings.TrimSpace(q.Get("q"))

	filters, errMsg := parseFeedFilters(q)
	if errMsg != "" {
		h.countRequest("error")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	page, errMsg := parseNonNegativeInt(q.Get("page"), 0)
	if errMsg != "" {
		h.countRequest("error")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "page must be a non-negative integer")
		return
	}
	pageSize, errMsg := parseNonNegativeInt(q.Get("page_size"), DefaultFeedPageSize)
	if errMsg != "" || pageSize == 0 {
		h.countRequest("error")
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "page_size must be a positive integer")
		return
	}
	if pageSize > MaxFeedPageSize {
		pageSize = MaxFeedPageSize
	}

	fKey := filtersKey(filters)

	// Sessions are keyed by viewer; anonymous viewers continue a session
	// through the key handed back in the X-Feed-Session header.
	sessionKey := viewerID
	if sessionKey == "" {
		sessionKey = strings.TrimSpace(r.Header.Get(FeedSessionHeader))
	}
	if sessionKey == "" {
		sessionKey = "anon:" + uuid.New().String()
	}

	// A page-0 request is a new feed load and always re-ranks so new items
	// and a fresh discovery draw show up. The cached order only serves later
	// pages of the same load; the viewed and liked sets carry over.
	var session *feedcache.Session
	if page > 0 {
		session = h.lookupSession(r, sessionKey, query, fKey)
	}
	if session == nil {
		var err error
		session, err = h.rankNewSession(r, viewerID, sessionKey, query, filters, fKey)
		if err != nil {
			h.countRequest("error")
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to rank feed")
			return
		}
	}

	entries, hasMore := h.buildPage(session, page, pageSize)

	// Persist the viewed marks made while serving the page
	if err := h.sessions.Put(r.Context(), session, h.sessionTTL); err != nil {
		slog.WarnContext(r.Context(), "failed to persist feed session", "session_key", session.ViewerID, "error", err)
	}

	h.countRequest("ok")

	resp := FeedResponse{
		SessionID: session.ViewerID,
		Page:      page,
		PageSize:  pageSize,
		HasMore:   hasMore,
		Entries:   entries,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(FeedSessionHeader, session.ViewerID)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode feed response", "error", err)
	}
}

// lookupSession returns the viewer's cached session if it exists and was
// built for the same query and filters. Any mismatch is treated as a miss
// and ranks a fresh session.
func (h *FeedHandlers) lookupSession(r *http.Request, sessionKey, query, fKey string) *feedcache.Session {
	session, err := h.sessions.Get(r.Context(), sessionKey)
	if err != nil {
		if !errors.Is(err, feedcache.ErrSessionNotFound) {
			slog.WarnContext(r.Context(), "feed session lookup failed", "session_key", sessionKey, "error", err)
		}
		h.countCacheLookup("miss")
		return nil
	}
	if !session.Matches(query, fKey) {
		h.countCacheLookup("stale")
		return nil
	}

	h.countCacheLookup("hit")
	return session
}

// rankNewSession ranks the candidate pool once and caches the order.
func (h *FeedHandlers) rankNewSession(r *http.Request, viewerID, sessionKey, query string, filters feed.Filters, fKey string) (*feedcache.Session, error) {
	pool, err := h.items.ListRecent(h.poolSize)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]string, 0, len(pool))
	seen := make(map[string]struct{}, len(pool))
	for _, item := range pool {
		if _, ok := seen[item.AuthorID]; ok {
			continue
		}
		seen[item.AuthorID] = struct{}{}
		authorIDs = append(authorIDs, item.AuthorID)
	}
	authors, err := h.profiles.GetAuthors(authorIDs)
	if err != nil {
		return nil, err
	}

	viewer := h.buildViewer(r, viewerID)

	// A query or filter change re-ranks but the viewer keeps what they have
	// already seen this session, so the viewed penalty carries over.
	session := feedcache.NewSession(sessionKey, query, fKey)
	if prior, err := h.sessions.Get(r.Context(), sessionKey); err == nil {
		session.Viewed = prior.Viewed
		session.Liked = prior.Liked
		viewer.Viewed = setToBoolMap(prior.Viewed)
		viewer.Liked = setToBoolMap(prior.Liked)
	}

	_, endSpan := tracing.StartSpan(r.Context(), "feed.rank",
		attribute.Int("feed.pool_size", len(pool)))
	start := time.Now()
	ranked := feed.Rank(pool, authors, viewer, query, filters, h.weights, nil)
	endSpan(nil)
	if h.metrics != nil {
		h.metrics.ObserveRanking(time.Since(start), len(pool))
	}

	session.Ranked = make([]feedcache.RankedEntry, len(ranked))
	for i, s := range ranked {
		session.Ranked[i] = feedcache.RankedEntry{ItemID: s.Item.ID, Score: s.Score}
	}

	return session, nil
}

func setToBoolMap(set map[string]struct{}) map[string]bool {
	if len(set) == 0 {
		return nil
	}
	out := make(map[string]bool, len(set))
	for k := range set {
		out[k] = true
	}
	return out
}

// buildViewer assembles the ranking Viewer from the viewer's profile,
// follows, and swipe history. An empty viewer ID yields an anonymous viewer.
func (h *FeedHandlers) buildViewer(r *http.Request, viewerID string) feed.Viewer {
	var viewer feed.Viewer
	if viewerID == "" {
		return viewer
	}

	if prof, err := h.profiles.GetViewer(viewerID); err == nil {
		viewer.Profile = prof
	}

	if follows, err := h.interactions.Follows(viewerID); err == nil {
		viewer.Follows = follows
	}

	if swipes, err := h.interactions.ListSwipes(viewerID); err == nil {
		signals := interaction.BuildSignals(swipes)
		viewer.LikedAuthors = signals.LikedAuthors
		viewer.KindCounts = signals.KindCounts
		viewer.PositiveTotal = signals.PositiveTotal
		viewer.TagCounts = signals.TagCounts
	} else {
		slog.WarnContext(r.Context(), "failed to load swipe history", "viewer_id", viewerID, "error", err)
	}

	return viewer
}

// buildPage materializes one page of the session's cached order, marking the
// served items as viewed for subsequent rankings. Items deleted since the
// ranking are skipped without shifting the page window.
func (h *FeedHandlers) buildPage(session *feedcache.Session, page, pageSize int) ([]FeedEntry, bool) {
	offset := page * pageSize
	if offset >= len(session.Ranked) {
		return []FeedEntry{}, false
	}

	end := offset + pageSize
	if end > len(session.Ranked) {
		end = len(session.Ranked)
	}

	window := session.Ranked[offset:end]
	entries := make([]FeedEntry, 0, len(window))
	for _, ranked := range window {
		item, err := h.items.GetByID(ranked.ItemID)
		if err != nil {
			continue
		}
		entry := FeedEntry{Item: item, Score: ranked.Score}
		if author, err := h.profiles.GetAuthor(item.AuthorID); err == nil {
			entry.Author = author
		}
		entries = append(entries, entry)
		session.MarkViewed(item.ID)
	}

	return entries, end < len(session.Ranked)
}

func (h *FeedHandlers) countRequest(result string) {
	if h.metrics != nil {
		h.metrics.IncRequests(result)
	}
}

func (h *FeedHandlers) countCacheLookup(outcome string) {
	if h.metrics != nil {
		h.metrics.IncCacheLookup(outcome)
	}
}

// parseNonNegativeInt parses a query parameter as a non-negative integer,
// returning the default when the parameter is absent.
func parseNonNegativeInt(raw string, defaultVal int) (int, string) {
	if raw == "" {
		return defaultVal, ""
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, "must be a non-negative integer"
	}
	return n, ""
}
