package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dimalipin/netviz/core"
	"github.com/dimalipin/netviz/internal/catalog"
	"github.com/dimalipin/netviz/internal/datagram"
	"github.com/dimalipin/netviz/internal/ipheader"
	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/internal/nbi"
	"github.com/dimalipin/netviz/internal/render"
	"github.com/dimalipin/netviz/kb"
)

var (
	// ErrNoPacket is returned when the header of a packet is requested
	// before any packet was sent.
	ErrNoPacket = errors.New("no packet has been sent")
	// ErrBadRequest wraps malformed request bodies.
	ErrBadRequest = errors.New("bad request")
)

// HelloResponse is the body of /api/hello.
type HelloResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// SendRequest names the hosts of a send. Both empty means a random pair.
type SendRequest struct {
	SrcIP string `json:"src_ip"`
	DstIP string `json:"dst_ip"`
}

// SelectRequest names the header field to select.
type SelectRequest struct {
	Key string `json:"key"`
}

// FieldsResponse lists the header field catalog.
type FieldsResponse struct {
	Selected string           `json:"selected"`
	Fields   []ipheader.Field `json:"fields"`
}

// PacketResponse is the decoded header of the in-flight packet.
type PacketResponse struct {
	Hex    string           `json:"hex"`
	Values []ipheader.Value `json:"values"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HelloResponse{Message: "Hello from the Go backend!", Status: "success"})
}

func (s *Server) handleVisualizations(w http.ResponseWriter, r *http.Request) {
	cards := []catalog.Card{}
	if s.catalog != nil {
		cards = s.catalog.Cards()
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sim.Frame())
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.BuildScene(s.sim.Frame()))
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	sent := true
	switch {
	case req.SrcIP == "" && req.DstIP == "":
		ok, err := s.sim.SendRandom(ctx)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		sent = ok
	case req.SrcIP == "" || req.DstIP == "":
		s.writeError(w, r, fmt.Errorf("%w: src_ip and dst_ip must be given together", ErrBadRequest))
		return
	default:
		if err := s.sim.Send(ctx, req.SrcIP, req.DstIP); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, nbi.NewSendResult(sent, s.sim.Frame()))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sim.Reset()
	writeJSON(w, http.StatusOK, s.sim.Frame())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nbi.RunsResponse{Runs: s.sim.Timeline().Summaries()})
}

func (s *Server) handleRoutingTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nbi.RoutingTables(s.sim.Topology().Gateways()))
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FieldsResponse{
		Selected: s.inspector.Selected().Key,
		Fields:   ipheader.Fields(),
	})
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	resp, err := nbi.DescribeHeaderField(s.sim.Header(), r.PathValue("key"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := nbi.SelectField(s.inspector, s.sim.Header(), req.Key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePacket(w http.ResponseWriter, r *http.Request) {
	hdr := s.sim.Header()
	if len(hdr) == 0 {
		s.writeError(w, r, ErrNoPacket)
		return
	}
	values, err := ipheader.Describe(hdr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PacketResponse{Hex: hex.EncodeToString(hdr), Values: values})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, kb.ErrHostNotFound),
		errors.Is(err, kb.ErrGatewayNotFound),
		errors.Is(err, kb.ErrSubnetNotFound),
		errors.Is(err, ipheader.ErrUnknownField),
		errors.Is(err, ErrNoPacket):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, core.ErrSameHost),
		errors.Is(err, datagram.ErrNotIPv4):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoRoute):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	log := logging.LoggerFromContext(r.Context())
	if log == nil {
		log = s.log
	}
	if code >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", logging.Err(err))
	} else {
		log.Debug(r.Context(), "request rejected", logging.Int("status", code), logging.Err(err))
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// decodeBody reads a small JSON body into v. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
