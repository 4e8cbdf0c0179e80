// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/zerrors"
	"github.com/hpe-storage/fc-zone-libs/zonemanager"
)

const (
	// Shared error messages
	errorMessageEmptyInitiatorTargetMap = "empty initiator target map passed in the request"
	errorMessageEmptyTargetList         = "empty target wwn list passed in the request"
)

// Response :
type Response struct {
	Data interface{} `json:"data,omitempty"`
	Err  interface{} `json:"errors,omitempty"`
}

// ZoneRequest is the body of an attach or detach request
type ZoneRequest struct {
	InitiatorTargetMap model.InitiatorTargetMap `json:"initiator_target_map"`
	HostName           string                   `json:"host_name,omitempty"`
	StorageSystem      string                   `json:"storage_system,omitempty"`
}

// Handler serves the zoning admin API on top of one zone manager
type Handler struct {
	manager *zonemanager.ZoneManager
}

// NewHandler returns a handler delegating to the given manager
func NewHandler(manager *zonemanager.ZoneManager) *Handler {
	return &Handler{manager: manager}
}

// NewRouter builds the API route table
func (h *Handler) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Handle("/api/v1/zones/attach", log.HTTPLogger(http.HandlerFunc(h.AttachZones), "AttachZones")).Methods("POST")
	router.Handle("/api/v1/zones/detach", log.HTTPLogger(http.HandlerFunc(h.DetachZones), "DetachZones")).Methods("POST")
	router.Handle("/api/v1/sancontext", log.HTTPLogger(http.HandlerFunc(h.GetSanContext), "GetSanContext")).Methods("GET")
	return router
}

//@APIVersion 1.0.0
//@Title AttachZones
//@Description zone the given initiators to their targets on every configured fabric
//@Accept json
//@Resource /api/v1/zones/attach
//@Success 200
//@Router /api/v1/zones/attach [post]
func (h *Handler) AttachZones(w http.ResponseWriter, r *http.Request) {
	var zoneResp Response

	zoneReq, ok := decodeZoneRequest(w, zoneResp, r)
	if !ok {
		return
	}

	if err := h.manager.AddConnection(zoneReq.InitiatorTargetMap, zoneReq.HostName, zoneReq.StorageSystem); err != nil {
		handleError(w, zoneResp, err, http.StatusInternalServerError)
		return
	}
	zoneResp.Data = zoneReq.InitiatorTargetMap
	json.NewEncoder(w).Encode(zoneResp)
}

//@APIVersion 1.0.0
//@Title DetachZones
//@Description remove the zoning established for the given initiators and targets
//@Accept json
//@Resource /api/v1/zones/detach
//@Success 200
//@Router /api/v1/zones/detach [post]
func (h *Handler) DetachZones(w http.ResponseWriter, r *http.Request) {
	var zoneResp Response

	zoneReq, ok := decodeZoneRequest(w, zoneResp, r)
	if !ok {
		return
	}

	if err := h.manager.DeleteConnection(zoneReq.InitiatorTargetMap, zoneReq.HostName, zoneReq.StorageSystem); err != nil {
		handleError(w, zoneResp, err, http.StatusInternalServerError)
		return
	}
	zoneResp.Data = zoneReq.InitiatorTargetMap
	json.NewEncoder(w).Encode(zoneResp)
}

//@APIVersion 1.0.0
//@Title GetSanContext
//@Description report which of the given target wwns are visible on each fabric
//@Accept json
//@Resource /api/v1/sancontext
//@Success 200
//@Router /api/v1/sancontext [get]
func (h *Handler) GetSanContext(w http.ResponseWriter, r *http.Request) {
	var zoneResp Response

	targets := r.URL.Query()["target"]
	if len(targets) == 0 {
		handleError(w, zoneResp, errors.New(errorMessageEmptyTargetList), http.StatusBadRequest)
		return
	}

	sanContext, err := h.manager.GetSanContext(targets)
	if err != nil {
		handleError(w, zoneResp, err, http.StatusInternalServerError)
		return
	}
	zoneResp.Data = sanContext
	json.NewEncoder(w).Encode(zoneResp)
}

func decodeZoneRequest(w http.ResponseWriter, zoneResp Response, r *http.Request) (*ZoneRequest, bool) {
	var zoneReq *ZoneRequest
	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&zoneReq)
	defer r.Body.Close()

	if err != nil {
		handleError(w, zoneResp, err, http.StatusBadRequest)
		return nil, false
	}
	if zoneReq == nil || len(zoneReq.InitiatorTargetMap) == 0 {
		handleError(w, zoneResp, errors.New(errorMessageEmptyInitiatorTargetMap), http.StatusBadRequest)
		return nil, false
	}
	return zoneReq, true
}

func handleError(w http.ResponseWriter, zoneResp Response, err error, statusCode int) {
	log.Error("Err :", err.Error())
	w.WriteHeader(statusCode)
	zoneResp.Err = zerrors.NewZoneError(err)
	json.NewEncoder(w).Encode(zoneResp)
}
