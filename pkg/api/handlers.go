package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ndegiovanni/hywire/pkg/capture"
	"github.com/ndegiovanni/hywire/pkg/codec"
	"github.com/ndegiovanni/hywire/pkg/schema"
	"github.com/ndegiovanni/hywire/pkg/wire"
)

// Server holds the API server state
type Server struct {
	registry *codec.Registry
	config   ServerConfig
	metrics  *Metrics
	capture  *capture.Store
}

// NewServer creates a new API server. store may be nil; when set, every
// successfully decoded message is appended to it for later replay.
func NewServer(registry *codec.Registry, config ServerConfig, metrics *Metrics, store *capture.Store) *Server {
	return &Server{
		registry: registry,
		config:   config,
		metrics:  metrics,
		capture:  store,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) readMessage(w http.ResponseWriter, r *http.Request) (*wire.Buffer, bool) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON body", http.StatusBadRequest)
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		sendError(w, "Field 'data' must be base64", http.StatusBadRequest)
		return nil, false
	}
	return wire.Wrap(data), true
}

func outcome(res codec.ValidationResult) string {
	switch {
	case res.OK:
		return outcomeOK
	case res.Truncated():
		return outcomeTruncated
	default:
		return outcomeMalformed
	}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	buf, ok := s.readMessage(w, r)
	if !ok {
		return
	}
	res := s.registry.Validate(buf)
	s.metrics.RecordValidation(outcome(res))
	resp := ValidateResponse{OK: res.OK, BytesConsumed: res.BytesConsumed}
	if !res.OK {
		resp.Reason = outcome(res)
		resp.Detail = res.Err.Error()
	}
	sendSuccess(w, resp)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	buf, ok := s.readMessage(w, r)
	if !ok {
		return
	}
	// Structural validation first: decode allocations stay bounded even on
	// hostile payloads.
	res := s.registry.Validate(buf)
	s.metrics.RecordValidation(outcome(res))
	if !res.OK {
		s.metrics.RecordDecode("", outcome(res), 0)
		sendWireError(w, fmt.Sprintf("message is not structurally valid: %v", res.Err), res.Err, http.StatusUnprocessableEntity)
		return
	}
	start := time.Now()
	rec, err := s.registry.Decode(buf)
	if err != nil {
		s.metrics.RecordDecode("", outcomeMalformed, time.Since(start))
		sendWireError(w, fmt.Sprintf("decode failed: %v", err), err, http.StatusUnprocessableEntity)
		return
	}
	s.metrics.RecordDecode(rec.Schema().Name(), outcomeOK, time.Since(start))
	if s.capture != nil {
		if _, err := s.capture.Append(rec.Schema().ID(), buf.Bytes()); err != nil {
			sendError(w, fmt.Sprintf("capture append failed: %v", err), http.StatusInternalServerError)
			return
		}
	}
	sendSuccess(w, DecodeResponse{
		MessageID: rec.Schema().ID(),
		Message:   rec.Schema().Name(),
		Fields:    jsonFields(rec),
	})
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	schemas := s.registry.Schemas()
	out := make([]SchemaInfo, 0, len(schemas))
	for _, sch := range schemas {
		info := SchemaInfo{ID: sch.ID(), Name: sch.Name()}
		for i := 0; i < sch.NumFields(); i++ {
			f := sch.Field(i)
			info.Fields = append(info.Fields, FieldInfo{
				Name:     f.Name,
				Kind:     f.Kind.String(),
				Nullable: f.Nullable,
			})
		}
		out = append(out, info)
	}
	sendSuccess(w, out)
}

// jsonFields renders a record's fields for JSON, base64-encoding byte
// values.
func jsonFields(rec *codec.Record) map[string]interface{} {
	out := make(map[string]interface{})
	sch := rec.Schema()
	for i := 0; i < sch.NumFields(); i++ {
		f := sch.Field(i)
		if !rec.Has(f.Name) {
			continue
		}
		switch f.Kind.Class() {
		case schema.ClassScalar:
			v, _ := rec.Uint(f.Name)
			out[f.Name] = v
		case schema.ClassStruct:
			v, _ := rec.Struct(f.Name)
			out[f.Name] = v
		case schema.ClassBytes:
			v, _ := rec.Bytes(f.Name)
			out[f.Name] = base64.StdEncoding.EncodeToString(v)
		case schema.ClassString:
			v, _ := rec.String(f.Name)
			out[f.Name] = v
		case schema.ClassArray:
			switch f.Kind.Elem().Class() {
			case schema.ClassScalar:
				v, _ := rec.Uints(f.Name)
				out[f.Name] = v
			case schema.ClassString:
				v, _ := rec.Strings(f.Name)
				out[f.Name] = v
			case schema.ClassBytes:
				v, _ := rec.ByteSlices(f.Name)
				enc := make([]string, len(v))
				for j, b := range v {
					enc[j] = base64.StdEncoding.EncodeToString(b)
				}
				out[f.Name] = enc
			}
		}
	}
	return out
}
