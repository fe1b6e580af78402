// Package httpapi provides topic administration and registration handlers.
// This file contains handlers for topics, producers and subscribers.
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/vnykmshr/topiclog/internal/broker"
	"github.com/vnykmshr/topiclog/internal/logging"
)

type createTopicRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Capacity int    `json:"capacity"`
}

type topicResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Capacity    int    `json:"capacity"`
	FirstOffset int64  `json:"first_offset"`
	LastOffset  int64  `json:"last_offset"`
	Retained    int    `json:"retained"`
	Appended    uint64 `json:"appended"`
	Evicted     uint64 `json:"evicted"`
	Waiters     int    `json:"waiters"`
	Producers   int    `json:"producers"`
	Subscribers int    `json:"subscribers"`
}

func newTopicResponse(st broker.TopicStats) topicResponse {
	return topicResponse{
		ID:          st.ID,
		Name:        st.Name,
		Capacity:    st.Capacity,
		FirstOffset: st.FirstOffset,
		LastOffset:  st.LastOffset,
		Retained:    st.Retained,
		Appended:    st.Appended,
		Evicted:     st.Evicted,
		Waiters:     st.Waiters,
		Producers:   st.Producers,
		Subscribers: st.Subscribers,
	}
}

type registerRequest struct {
	ID    string `json:"id"`
	Start string `json:"start,omitempty"`
}

type producerResponse struct {
	ID string `json:"id"`
}

type subscriberResponse struct {
	ID     string        `json:"id"`
	Cursor broker.Cursor `json:"cursor"`
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.reg.CreateTopic(req.ID, req.Capacity, broker.WithTopicName(req.Name)); err != nil {
		writeError(w, err)
		return
	}

	st, err := s.reg.TopicStats(req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTopicResponse(st))
}

func (s *Server) handleListTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"topics": s.reg.Topics()})
}

func (s *Server) handleTopicStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.TopicStats(r.PathValue("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTopicResponse(st))
}

func (s *Server) handleRemoveTopic(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.RemoveTopic(r.PathValue("topic")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterProducer(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	topicID := r.PathValue("topic")
	if err := s.reg.RegisterProducer(topicID, req.ID); err != nil {
		writeError(w, err)
		return
	}

	s.opts.Logger.Info("producer registered",
		logging.F("topic", topicID),
		logging.F("producer", req.ID),
	)
	writeJSON(w, http.StatusCreated, producerResponse{ID: req.ID})
}

func (s *Server) handleUnregisterProducer(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.UnregisterProducer(r.PathValue("topic"), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterSubscriber(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	var start broker.StartPosition
	switch req.Start {
	case "", "beginning":
		start = broker.StartBeginning
	case "latest":
		start = broker.StartLatest
	default:
		writeError(w, errBadRequest.withMessage(fmt.Sprintf("unknown start position %q", req.Start)))
		return
	}

	topicID := r.PathValue("topic")
	cur, err := s.reg.RegisterSubscriber(topicID, req.ID, broker.WithStart(start))
	if err != nil {
		writeError(w, err)
		return
	}

	s.opts.Logger.Info("subscriber registered",
		logging.F("topic", topicID),
		logging.F("subscriber", req.ID),
		logging.F("start", start.String()),
	)
	writeJSON(w, http.StatusCreated, subscriberResponse{ID: req.ID, Cursor: cur})
}

func (s *Server) handleUnregisterSubscriber(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.UnregisterSubscriber(r.PathValue("topic"), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
