// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/jason-s-yu/imposter/internal/room"
	"github.com/sirupsen/logrus"
)

// CreateRoomHandler inserts the posted room unless its code is taken.
func (g *Gateway) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var rec models.Room
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "bad room payload")
		return
	}
	if !room.ValidCode(rec.RoomCode) {
		writeError(w, http.StatusBadRequest, "invalid room code")
		return
	}
	if rec.HostID == "" {
		writeError(w, http.StatusBadRequest, "missing host_id")
		return
	}
	if rec.GameState == "" {
		rec.GameState = models.StateLobby
	}

	code, err := g.Store.CreateRoom(r.Context(), &rec)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	g.Logger.WithField("room", code).Info("room created")
	writeJSON(w, http.StatusCreated, map[string]string{"room_code": code})
}

// GetRoomHandler returns the full record.
func (g *Gateway) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := g.Store.FetchRoom(r.Context(), r.PathValue("code"))
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetFieldHandler returns one column's JSON value.
func (g *Gateway) GetFieldHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := g.Store.FetchField(r.Context(), r.PathValue("code"), models.Field(r.PathValue("field")))
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

// PatchRoomHandler applies a merge patch. room_code and host_id cannot be patched.
func (g *Gateway) PatchRoomHandler(w http.ResponseWriter, r *http.Request) {
	var patch models.RoomPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad patch payload")
		return
	}
	if patch.GameState != nil && !patch.GameState.Valid() {
		writeError(w, http.StatusBadRequest, "invalid game_state")
		return
	}

	if err := g.Store.UpdateRoom(r.Context(), r.PathValue("code"), patch); err != nil {
		g.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		g.Logger.WithFields(logrus.Fields{
			"path":  r.URL.Path,
			"error": err,
		}).Error("store call failed")
	}
	writeError(w, status, err.Error())
}
