package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-ports/homie/internal/models"
)

// ---------------------------------------------------------------------------
// Devices and scenes
// ---------------------------------------------------------------------------

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	devs := s.dir.ListDevices()
	if devs == nil {
		devs = []models.Device{}
	}
	writeJSON(w, http.StatusOK, models.DeviceList{Devices: devs})
}

func (s *Server) handleScenes(w http.ResponseWriter, _ *http.Request) {
	scenes := s.dir.ListScenes()
	if scenes == nil {
		scenes = []models.Scene{}
	}
	writeJSON(w, http.StatusOK, models.SceneList{Scenes: scenes})
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := resolveDevice(s.dir.ListDevices(), r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, matchMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	dev, err := resolveDevice(s.dir.ListDevices(), r.PathValue("name"))
	if err != nil {
		writeJSON(w, http.StatusOK, models.ActionResult{Error: matchMessage(err)})
		return
	}
	s.applyDevice(w, r, dev, !dev.IsOn, nil)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	var req models.SetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ActionResult{Error: "invalid JSON body"})
		return
	}
	if req.On == nil && req.Brightness == nil {
		writeJSON(w, http.StatusBadRequest, models.ActionResult{Error: "on or brightness is required"})
		return
	}

	dev, err := resolveDevice(s.dir.ListDevices(), r.PathValue("name"))
	if err != nil {
		writeJSON(w, http.StatusOK, models.ActionResult{Error: matchMessage(err)})
		return
	}

	on := dev.IsOn
	var brightness *int
	if req.Brightness != nil {
		b := clamp(*req.Brightness, 0, 100)
		brightness = &b
		on = true
	}
	if req.On != nil {
		on = *req.On
	}
	s.applyDevice(w, r, dev, on, brightness)
}

func (s *Server) applyDevice(w http.ResponseWriter, r *http.Request, dev models.Device, on bool, brightness *int) {
	if err := s.dir.SetDeviceState(r.Context(), dev, on, brightness); err != nil {
		s.logger.Warn("device update failed", "device", dev.ID, "err", err)
		writeJSON(w, http.StatusOK, models.ActionResult{Error: fmt.Sprintf("Failed to update '%s'", dev.Name)})
		return
	}
	if updated, ok := s.dir.GetDevice(dev.ID); ok {
		dev = updated
	}
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true, Device: &dev})
}

func (s *Server) handleTriggerScene(w http.ResponseWriter, r *http.Request) {
	scene, err := resolveScene(s.dir.ListScenes(), r.PathValue("name"))
	if err != nil {
		writeJSON(w, http.StatusOK, models.ActionResult{Error: matchMessage(err)})
		return
	}
	if err := s.dir.TriggerScene(r.Context(), scene.Name); err != nil {
		s.logger.Warn("scene trigger failed", "scene", scene.Name, "err", err)
		writeJSON(w, http.StatusOK, models.ActionResult{Error: fmt.Sprintf("Failed to trigger '%s'", scene.Name)})
		return
	}
	writeJSON(w, http.StatusOK, models.ActionResult{Success: true})
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func (s *Server) handleDebug(w http.ResponseWriter, _ *http.Request) {
	info := models.DebugInfo{
		DevicesLoaded:    len(s.dir.ListDevices()),
		ScenesLoaded:     len(s.dir.ListScenes()),
		ActiveRules:      s.eng.ActiveRuleNames(),
		SecurityDegraded: s.status.SecurityDegraded(),
		ContextSource:    s.status.ContextSource(),
		Version:          s.version,
	}
	if ev, ok := s.eng.LastContext(); ok {
		info.CurrentApp = ev.AppIdentifier
	}
	writeJSON(w, http.StatusOK, info)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
