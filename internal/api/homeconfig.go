package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NikolovskiKristijan/ZikDomotica/internal/home"
)

// handleListRooms returns the configured rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	if s.homeRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration store not available")
		return
	}
	rooms, err := s.homeRepo.ListRooms(r.Context())
	if err != nil {
		s.logger.Error("listing rooms failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing rooms failed")
		return
	}
	if rooms == nil {
		rooms = []home.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

// handleCreateRoom adds a room to the configuration store.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if s.homeRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration store not available")
		return
	}

	var room home.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.homeRepo.CreateRoom(r.Context(), &room); err != nil {
		if errors.Is(err, home.ErrInvalidRoom) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("creating room failed", "error", err, "name", room.Name)
		writeError(w, http.StatusInternalServerError, "creating room failed")
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// handleListDevices returns the configured devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if s.homeRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration store not available")
		return
	}
	devices, err := s.homeRepo.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("listing devices failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing devices failed")
		return
	}
	if devices == nil {
		devices = []home.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleCreateDevice adds a device to the configuration store.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	if s.homeRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration store not available")
		return
	}

	var device home.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.homeRepo.CreateDevice(r.Context(), &device); err != nil {
		switch {
		case errors.Is(err, home.ErrInvalidDevice):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, home.ErrRoomNotFound):
			writeError(w, http.StatusNotFound, "room not found")
		default:
			s.logger.Error("creating device failed", "error", err, "name", device.Name)
			writeError(w, http.StatusInternalServerError, "creating device failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, device)
}

// handleHomeConfig returns every room with its devices nested.
func (s *Server) handleHomeConfig(w http.ResponseWriter, r *http.Request) {
	if s.homeRepo == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration store not available")
		return
	}
	config, err := s.homeRepo.HomeConfig(r.Context())
	if err != nil {
		s.logger.Error("loading home config failed", "error", err)
		writeError(w, http.StatusInternalServerError, "loading home config failed")
		return
	}
	if config == nil {
		config = []home.RoomConfig{}
	}
	writeJSON(w, http.StatusOK, config)
}
