// Package httpapi exposes the vault operations as a JSON-over-HTTP
// surface. Handlers stay thin: decode, delegate to a service, map the
// error taxonomy onto a status code.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/afterword/vaultword/internal/common"
	"github.com/afterword/vaultword/internal/logging"
	"github.com/afterword/vaultword/internal/server/entitlement"
	"github.com/afterword/vaultword/internal/server/gate"
	"github.com/afterword/vaultword/internal/server/identity"
	"github.com/afterword/vaultword/internal/server/lifecycle"
)

type Server struct {
	gate        *gate.Service
	lifecycle   *lifecycle.Service
	entitlement *entitlement.Service
	verifier    identity.Verifier
	logger      logging.Logger
}

func NewServer(g *gate.Service, lc *lifecycle.Service, e *entitlement.Service,
	v identity.Verifier, logger logging.Logger) *Server {
	return &Server{
		gate:        g,
		lifecycle:   lc,
		entitlement: e,
		verifier:    v,
		logger:      logger.With("module", "httpapi"),
	}
}

// Router assembles the route tree. Decrypt routes carry a per-IP rate
// limit on top of the shared middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(api chi.Router) {
		api.Use(requireBearer)

		api.Route("/crypto", func(r chi.Router) {
			r.Post("/encrypt-text", s.encryptText)
			r.Post("/encrypt-bytes", s.encryptBytes)

			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(30, time.Minute))
				r.Post("/decrypt-text", s.decryptText)
				r.Post("/decrypt-bytes", s.decryptBytes)
			})
		})

		api.Post("/entries/status", s.entryStatus)
		api.Post("/entitlement/resolve", s.resolveEntitlement)
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type encryptTextRequest struct {
	Plaintext string `json:"plaintext"`
}

type ciphertextResponse struct {
	Ciphertext string `json:"ciphertext"`
}

func (s *Server) encryptText(w http.ResponseWriter, r *http.Request) {
	var req encryptTextRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ciphertext, err := s.gate.EncryptText(r.Context(), req.Plaintext)
	if err != nil {
		s.logger.Error(r.Context(), "encrypt failed", "error", err.Error())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ciphertextResponse{Ciphertext: ciphertext})
}

type encryptBytesRequest struct {
	BytesB64 string `json:"bytes_b64"`
	Store    bool   `json:"store"`
}

type blobPathResponse struct {
	BlobPath string `json:"blob_path"`
}

func (s *Server) encryptBytes(w http.ResponseWriter, r *http.Request) {
	var req encryptBytesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.BytesB64)
	if err != nil {
		writeError(w, common.ErrFormat)
		return
	}

	if req.Store {
		path, err := s.gate.EncryptBytesStored(r.Context(), data)
		if err != nil {
			s.logger.Error(r.Context(), "encrypt failed", "error", err.Error())
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, blobPathResponse{BlobPath: path})
		return
	}

	ciphertext, err := s.gate.EncryptBytes(r.Context(), data)
	if err != nil {
		s.logger.Error(r.Context(), "encrypt failed", "error", err.Error())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ciphertextResponse{Ciphertext: ciphertext})
}

type decryptRequest struct {
	Ciphertext string `json:"ciphertext"`
	BlobPath   string `json:"blob_path"`
	ProofB64   string `json:"proof_b64"`
	EntryID    string `json:"entry_id"`
}

// ciphertextArg folds the two transport forms into the single argument
// the gate accepts.
func (req *decryptRequest) ciphertextArg() string {
	if req.BlobPath != "" {
		return gate.BlobPathPrefix + req.BlobPath
	}
	return req.Ciphertext
}

type decryptTextResponse struct {
	Plaintext string `json:"plaintext"`
}

func (s *Server) decryptText(w http.ResponseWriter, r *http.Request) {
	var req decryptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	plaintext, err := s.gate.DecryptText(r.Context(), bearerToken(r), req.EntryID, req.ciphertextArg(), req.ProofB64)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decryptTextResponse{Plaintext: plaintext})
}

type decryptBytesResponse struct {
	BytesB64 string `json:"bytes_b64"`
}

func (s *Server) decryptBytes(w http.ResponseWriter, r *http.Request) {
	var req decryptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	data, err := s.gate.DecryptBytes(r.Context(), bearerToken(r), req.EntryID, req.ciphertextArg(), req.ProofB64)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decryptBytesResponse{BytesB64: base64.StdEncoding.EncodeToString(data)})
}

type entryStatusRequest struct {
	EntryID string `json:"entry_id"`
}

func (s *Server) entryStatus(w http.ResponseWriter, r *http.Request) {
	var req entryStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.EntryID == "" {
		writeError(w, common.ErrFormat)
		return
	}
	status, err := s.lifecycle.Check(r.Context(), req.EntryID)
	if err != nil {
		s.logger.Error(r.Context(), "status check failed", "entry", req.EntryID, "error", err.Error())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type entitlementResponse struct {
	Status string `json:"status"`
}

func (s *Server) resolveEntitlement(w http.ResponseWriter, r *http.Request) {
	accountID, err := s.verifier.VerifyCredential(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}
	tier, err := s.entitlement.Resolve(r.Context(), accountID)
	if err != nil {
		s.logger.Error(r.Context(), "entitlement resolve failed", "account", accountID, "error", err.Error())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entitlementResponse{Status: tier})
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.ErrFormat
	}
	return nil
}
