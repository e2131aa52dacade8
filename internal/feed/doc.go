// Package feed implements the video feed ranking engine: a multi-factor
// scoring heuristic that orders a candidate pool of content items for an
// infinite-scroll feed.
//
// The engine is a pure, synchronous computation over an in-memory snapshot
// of the pool. It performs no I/O. Given a viewer's profile, preference
// signals, follow set, and session state, it filters the pool, scores each
// surviving item from independent clamped terms, applies diversity and
// discovery adjustments, sorts descending, and paginates.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := feed.LoadCalibration("configs/feed.calibration.json")
//	if err != nil {
//		slog.Warn("using default feed weights", "error", err)
//	}
//
//	ranked := feed.Rank(pool, authors, viewer, req.Query, req.Filters, weights, rng)
//	items, hasMore := feed.Paginate(ranked, req.PageIndex, req.PageSize)
//
// The only randomized term is the discovery bonus. It is drawn from the
// *rand.Rand passed by the caller, once per item per ranking pass. Callers
// that need a stable order across page requests must rank once and slice
// the cached order (see the feedcache package); re-ranking with a fresh
// source reshuffles the feed, which is intentional on reload.
//
// Weights are policy choices, not derived constants. They can be tuned at
// deploy time via a JSON calibration file loaded at startup.
package feed
