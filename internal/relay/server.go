package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"ciphergroup/internal/domain"
)

// MaxPayload limits the size of one stored item.
const MaxPayload = 1 << 20

// Server serves the relay API over a Mailbox backend.
type Server struct {
	mailbox domain.Mailbox
	log     logrus.FieldLogger
}

// NewServer returns a relay Server storing items in mb.
func NewServer(mb domain.Mailbox, log logrus.FieldLogger) *Server {
	return &Server{mailbox: mb, log: log}
}

type enqueueResponse struct {
	ID string `json:"id"`
	TS int64  `json:"ts"`
}

// Routes builds the chi router for the relay API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/msg/{recipient}", s.handleEnqueue)
	r.Get("/msg/{recipient}", s.handleFetch)
	return r
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	recipient, ok := recipientParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxPayload)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty payload")
		return
	}

	item, err := s.mailbox.Append(r.Context(), recipient, string(data))
	if err != nil {
		s.log.WithError(err).WithField("recipient", recipient).Error("enqueue failed")
		respondError(w, http.StatusInternalServerError, "could not store item")
		return
	}
	s.log.WithFields(logrus.Fields{
		"recipient": recipient,
		"id":        item.ID,
		"ts":        item.TS,
		"bytes":     len(data),
	}).Info("item stored")
	respondJSON(w, http.StatusCreated, enqueueResponse{ID: item.ID, TS: item.TS})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	recipient, ok := recipientParam(w, r)
	if !ok {
		return
	}
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "since must be a non-negative integer")
			return
		}
		since = n
	}

	items, err := s.mailbox.Since(r.Context(), recipient, since)
	if err != nil {
		s.log.WithError(err).WithField("recipient", recipient).Error("fetch failed")
		respondError(w, http.StatusInternalServerError, "could not read mailbox")
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	s.log.WithFields(logrus.Fields{
		"recipient": recipient,
		"since":     since,
		"count":     len(items),
	}).Debug("items fetched")
	respondJSON(w, http.StatusOK, items)
}

// accessLog records one line per request through the server's logger.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start),
			"request":  middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func recipientParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	recipient, err := url.PathUnescape(chi.URLParam(r, "recipient"))
	if err != nil || recipient == "" {
		respondError(w, http.StatusBadRequest, "invalid recipient")
		return "", false
	}
	return recipient, true
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
