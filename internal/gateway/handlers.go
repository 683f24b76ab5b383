package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/paxr/paxr-gateway/internal/domain"
	"github.com/paxr/paxr-gateway/internal/pricing"
	"github.com/paxr/paxr-gateway/shared/config"
	"github.com/paxr/paxr-gateway/shared/monitoring"
)

// eventResponse is an event record annotated with its derived status and
// display prices at response time
type eventResponse struct {
	*domain.EventRecord
	Status         domain.EventStatus `json:"status"`
	TicketPriceETH string             `json:"ticketPriceETH"`
	TicketPriceUSD string             `json:"ticketPriceUSD"`
}

func (s *Server) annotate(e *domain.EventRecord, now time.Time) eventResponse {
	quote := s.refresher.Quote()
	return eventResponse{
		EventRecord:    e,
		Status:         e.StatusAt(now),
		TicketPriceETH: pricing.FormatETH(e.TicketPrice),
		TicketPriceUSD: pricing.FormatUSD(e.TicketPrice, quote.ETH),
	}
}

func (s *Server) annotateAll(events []*domain.EventRecord) []eventResponse {
	now := time.Now()
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, s.annotate(e, now))
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": s.cfg.ServiceName,
		"version": s.cfg.ServiceVersion,
		"chainId": s.cfg.Chain.ChainID,
	})
}

// handleListEvents returns every event that currently resolves. Connectivity
// failures on the count read are the only hard error.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.reader.AllEvents(r.Context())
	if err != nil {
		s.upstreamError(w, r, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": s.annotateAll(events)})
}

func (s *Server) handleActiveEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.reader.ActiveEvents(r.Context())
	if err != nil {
		s.upstreamError(w, r, "list active events", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": s.annotateAll(events)})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	event := s.reader.Event(r.Context(), id)
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, s.annotate(event, time.Now()))
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathUint(w, r, "tokenId")
	if !ok {
		return
	}
	ticket := s.reader.TicketData(r.Context(), tokenID)
	if ticket == nil {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleTicketURI(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathUint(w, r, "tokenId")
	if !ok {
		return
	}
	uri := s.reader.TicketURI(r.Context(), tokenID)
	if uri == "" {
		writeError(w, http.StatusNotFound, "token URI not found")
		return
	}
	resolved := uri
	if s.pinner != nil {
		resolved = s.pinner.GatewayURL(uri)
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": uri, "resolved": resolved})
}

func (s *Server) handleUserTickets(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !config.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	tokenIDs, err := s.reader.UserTickets(r.Context(), address)
	if err != nil {
		s.upstreamError(w, r, "user tickets", err)
		return
	}

	// Per-item hydration failures leave holes; only ids that resolve are
	// returned with records.
	tickets := make([]*domain.TicketRecord, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		if rec := s.reader.TicketData(r.Context(), id); rec != nil {
			tickets = append(tickets, rec)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tokenIds": tokenIDs,
		"tickets":  tickets,
	})
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathUint(w, r, "tokenId")
	if !ok {
		return
	}
	listing := s.reader.Listing(r.Context(), tokenID)
	if listing == nil {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.refresher.Quote())
}

// handlePinAsset accepts a multipart upload and pins the file to IPFS
func (s *Server) handlePinAsset(w http.ResponseWriter, r *http.Request) {
	if s.pinner == nil {
		writeError(w, http.StatusServiceUnavailable, "asset pinning is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxUploadSize)
	if err := r.ParseMultipartForm(s.cfg.HTTP.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	result, err := s.pinner.PinFile(r.Context(), file, header.Filename)
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("asset pin failed")
		monitoring.CaptureError(err, "pinning")
		writeError(w, http.StatusBadGateway, "failed to pin asset")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"cid":  result.CID,
		"size": result.Size,
		"url":  s.pinner.GatewayURL(result.CID),
	})
}

// handlePinMetadata pins an event metadata document
func (s *Server) handlePinMetadata(w http.ResponseWriter, r *http.Request) {
	if s.pinner == nil {
		writeError(w, http.StatusServiceUnavailable, "asset pinning is not configured")
		return
	}

	var meta domain.EventMetadata
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "invalid metadata document")
		return
	}
	if meta.Name == "" {
		writeError(w, http.StatusBadRequest, "metadata name is required")
		return
	}

	result, err := s.pinner.PinJSON(r.Context(), meta, meta.Name+".json")
	if err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("metadata pin failed")
		monitoring.CaptureError(err, "pinning")
		writeError(w, http.StatusBadGateway, "failed to pin metadata")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"cid": result.CID,
		"uri": "ipfs://" + result.CID,
		"url": s.pinner.GatewayURL(result.CID),
	})
}

func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.WithContext(r.Context()).WithError(err).Errorf("%s failed", op)
	monitoring.CaptureError(err, "chain")
	writeError(w, http.StatusBadGateway, "upstream RPC unavailable")
}

func pathUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
