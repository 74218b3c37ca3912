package controller

import (
	"errors"
	"net/http"

	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleAggregated serves GET /poll/{pollId}/aggregated.
func (c *Controller) HandleAggregated(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["pollId"]

	res, err := c.App.Snapshots.GetAggregatedSnapshot(r.Context(), raw)
	switch {
	case err == nil:
	case errors.Is(err, gravity.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "poll id must be numeric")
		return
	case errors.Is(err, gravity.ErrNotFound):
		writeError(w, http.StatusNotFound, "poll not found")
		return
	default:
		c.App.Logger.Error("Snapshot failed", zap.String("pollId", raw), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	w.Header().Set("Cache-Control", res.CacheControl)
	writeJSON(w, http.StatusOK, res.Snapshot)
}

// HandleReveals serves GET /poll/{pollId}/reveals?cursor=&limit=.
func (c *Controller) HandleReveals(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	pollID, err := gravity.ParsePollID(mux.Vars(r)["pollId"])
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "poll id must be numeric")
		return
	}

	page, err := parsePageSpec(r, c.App.RevealPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := c.App.Reveals.FetchRevealPage(r.Context(), pollID, page.Cursor, page.Limit)
	switch {
	case err == nil:
	case errors.Is(err, gravity.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, errInvalidCursor.Error())
		return
	default:
		c.App.Logger.Error("Reveal page failed", zap.Uint64("pollId", pollID), zap.String("cursor", page.Cursor), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, out)
}
