// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wneessen/userlocation/internal/controller"
	"github.com/wneessen/userlocation/internal/geo"
	"github.com/wneessen/userlocation/internal/logger"
	"github.com/wneessen/userlocation/internal/permission"
)

type StateResponse struct {
	controller.Snapshot
	Address           string          `json:"address"`
	Region            geo.Region      `json:"region"`
	ShowsUserLocation bool            `json:"shows_user_location"`
	UserLocation      *geo.Coordinate `json:"user_location,omitempty"`
}

type RegionRequest struct {
	Center             *geo.Coordinate `json:"center"`
	LatitudinalMeters  float64         `json:"latitudinal_meters"`
	LongitudinalMeters float64         `json:"longitudinal_meters"`
}

type DirectionsResponse struct {
	RequestID string `json:"request_id"`
}

type AuthorizationRequest struct {
	State           *permission.State `json:"state"`
	ServicesEnabled *bool             `json:"services_enabled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.controller.Snapshot(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	resp := StateResponse{
		Snapshot:          snap,
		Address:           s.view.Address(),
		Region:            s.view.Region(),
		ShowsUserLocation: s.view.ShowsUserLocation(),
	}
	if coord, ok := s.view.UserLocation(); ok {
		resp.UserLocation = &coord
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMap(w http.ResponseWriter, _ *http.Request) {
	collection, err := s.view.GeoJSON()
	if err != nil {
		s.logger.Error("failed to render map", logger.Err(err))
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to render map"})
		return
	}
	data, err := collection.MarshalJSON()
	if err != nil {
		s.logger.Error("failed to encode map", logger.Err(err))
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to encode map"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// handleRegion pans the map. A missing span keeps the current one.
func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	var req RegionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Center == nil || !req.Center.Valid() {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid center coordinate"})
		return
	}
	if req.LatitudinalMeters < 0 || req.LongitudinalMeters < 0 {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid region span"})
		return
	}

	current := s.view.Region()
	region := geo.NewRegion(*req.Center, current.LatitudinalMeters, current.LongitudinalMeters)
	if req.LatitudinalMeters > 0 {
		region.LatitudinalMeters = req.LatitudinalMeters
	}
	if req.LongitudinalMeters > 0 {
		region.LongitudinalMeters = req.LongitudinalMeters
	}
	s.view.SetRegion(region)
	s.writeJSON(w, http.StatusOK, region)
}

func (s *Server) handleDirections(w http.ResponseWriter, r *http.Request) {
	id, err := s.controller.RequestDirections(r.Context())
	if err != nil {
		s.writeControllerError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, DirectionsResponse{RequestID: id})
}

// handleAuthorization re-evaluates the authorization. With a body, the static permission
// provider is moved to the given state first.
func (s *Server) handleAuthorization(w http.ResponseWriter, r *http.Request) {
	var req AuthorizationRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.State == nil && req.ServicesEnabled == nil {
		s.controller.AuthorizationChanged()
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if s.options.Authorizer == nil {
		s.writeJSON(w, http.StatusConflict, ErrorResponse{Error: "authorization is managed by the permission service"})
		return
	}
	if req.ServicesEnabled != nil {
		s.options.Authorizer.SetServicesEnabled(*req.ServicesEnabled)
	}
	if req.State != nil {
		s.options.Authorizer.SetState(*req.State)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	if kind, ok := controller.KindOf(err); ok {
		s.writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Kind: kind.String()})
		return
	}
	if errors.Is(err, controller.ErrLoopStopped) {
		s.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	s.logger.Error("controller request failed", logger.Err(err))
	s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", logger.Err(err))
	}
}

func decodeBody(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}
