// Package server exposes the reconciliation engine over HTTP.
//
// The request interface holds no business logic: it fetches the two input
// files from the document store, hands the parsed tables to the engine,
// uploads the rendered report, and answers with the report's location. Each
// request builds an independent working set, so requests may run
// concurrently without locking.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// FileStore is the document-store contract the server depends on.
type FileStore interface {
	Download(ctx context.Context, serverRelativePath string) ([]byte, error)
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// ReportFileName is the name the reconciled report is uploaded under.
const ReportFileName = "Reconciled_Report.xlsx"

// Server handles reconciliation requests.
type Server struct {
	engine *reconciler.Engine
	store  FileStore
	logger logger.Logger
}

// New creates a server around an engine and a document store.
func New(engine *reconciler.Engine, store FileStore) *Server {
	return &Server{
		engine: engine,
		store:  store,
		logger: logger.WithComponent("http_server"),
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /reconcile", s.handleReconcile)

	return mux
}

// reconcileRequest is the request body for POST /reconcile.
type reconcileRequest struct {
	InvoiceURL string `json:"invoice_url"`
	POURL      string `json:"po_url"`
}

// reconcileResponse is the success body for POST /reconcile.
type reconcileResponse struct {
	Message   string              `json:"message"`
	OutputURL string              `json:"output_url"`
	Summary   *reconciler.Summary `json:"summary"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InvoiceURL == "" || req.POURL == "" {
		writeError(w, http.StatusBadRequest, "missing 'invoice_url' or 'po_url' in request body")
		return
	}

	log := s.logger.WithFields(logger.Fields{
		"invoice_url": req.InvoiceURL,
		"po_url":      req.POURL,
	})
	log.Info("Reconciliation request received")

	invoiceData, err := s.store.Download(ctx, req.InvoiceURL)
	if err != nil {
		s.fail(w, log, err)
		return
	}
	poData, err := s.store.Download(ctx, req.POURL)
	if err != nil {
		s.fail(w, log, err)
		return
	}

	invoiceTable, err := parsers.ParseBytes(req.InvoiceURL, invoiceData)
	if err != nil {
		s.fail(w, log, err)
		return
	}
	poTable, err := parsers.ParseBytes(req.POURL, poData)
	if err != nil {
		s.fail(w, log, err)
		return
	}

	output, summary, err := s.engine.Reconcile(invoiceTable, poTable)
	if err != nil {
		s.fail(w, log, err)
		return
	}

	rep, err := reporter.NewReporter(&reporter.ReportConfig{
		Format:    reporter.FormatXLSX,
		SheetName: "Reconciled",
	})
	if err != nil {
		s.fail(w, log, err)
		return
	}

	var buf bytes.Buffer
	if err := rep.WriteTable(&buf, output); err != nil {
		s.fail(w, log, err)
		return
	}

	// Upload happens only after a fully successful run; a failed run never
	// persists partial output.
	location, err := s.store.Upload(ctx, ReportFileName, buf.Bytes())
	if err != nil {
		s.fail(w, log, err)
		return
	}

	log.WithField("output_url", location).Info("Reconciliation request complete")

	writeJSON(w, http.StatusOK, &reconcileResponse{
		Message:   "Reconciliation complete.",
		OutputURL: location,
		Summary:   summary,
	})
}

// fail maps an error to an HTTP status by category and writes the response.
func (s *Server) fail(w http.ResponseWriter, log logger.Logger, err error) {
	status := http.StatusInternalServerError
	if re, ok := errors.AsReconcilerError(err); ok {
		switch re.Category {
		case errors.CategoryStore:
			status = http.StatusBadGateway
		case errors.CategorySchema, errors.CategoryParse, errors.CategoryValidation:
			status = http.StatusUnprocessableEntity
		case errors.CategoryFile:
			status = http.StatusUnprocessableEntity
		}
	}

	log.WithError(err).Error("Reconciliation request failed")
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
