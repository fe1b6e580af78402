// Package httpapi provides HTTP error mapping and JSON encoding helpers.
// This file contains the error envelope and the registry error to status mapping.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vnykmshr/topiclog/internal/broker"
)

// httpError is the JSON error envelope returned by every failing request.
type httpError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e httpError) Error() string {
	return e.Message
}

func (e httpError) withMessage(message string) httpError {
	e.Message = message
	return e
}

func (e httpError) withDetails(details map[string]any) httpError {
	e.Details = details
	return e
}

var (
	errBadRequest  = httpError{Status: http.StatusBadRequest, Code: "bad_request"}
	errForbidden   = httpError{Status: http.StatusForbidden, Code: "forbidden"}
	errNotFound    = httpError{Status: http.StatusNotFound, Code: "not_found"}
	errConflict    = httpError{Status: http.StatusConflict, Code: "conflict"}
	errTooLarge    = httpError{Status: http.StatusRequestEntityTooLarge, Code: "payload_too_large"}
	errOutOfRange  = httpError{Status: http.StatusRequestedRangeNotSatisfiable, Code: "offset_out_of_range"}
	errUnavailable = httpError{Status: http.StatusServiceUnavailable, Code: "unavailable"}
	errInternal    = httpError{Status: http.StatusInternalServerError, Code: "internal_error"}
	errCancelled   = httpError{Status: http.StatusRequestTimeout, Code: "request_cancelled"}
)

// toHTTPError maps a registry error onto a status and machine-readable code.
func toHTTPError(err error) httpError {
	var he httpError
	if errors.As(err, &he) {
		return he
	}

	var oor *broker.OutOfRangeError
	if errors.As(err, &oor) {
		return errOutOfRange.withMessage(err.Error()).withDetails(map[string]any{
			"requested": oor.Requested,
			"first":     oor.First,
			"last":      oor.Last,
		})
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return errTooLarge.withMessage(err.Error())
	}

	switch {
	case errors.Is(err, broker.ErrTopicExists):
		return errConflict.withMessage(err.Error())
	case errors.Is(err, broker.ErrTopicNotFound):
		return errNotFound.withMessage(err.Error())
	case errors.Is(err, broker.ErrProducerNotAuthorized),
		errors.Is(err, broker.ErrSubscriberNotAuthorized):
		return errForbidden.withMessage(err.Error())
	case errors.Is(err, broker.ErrMessageTooLarge):
		return errTooLarge.withMessage(err.Error())
	case errors.Is(err, broker.ErrInvalidTopic),
		errors.Is(err, broker.ErrInvalidActor),
		errors.Is(err, broker.ErrInvalidCapacity):
		return errBadRequest.withMessage(err.Error())
	case errors.Is(err, broker.ErrRegistryClosed):
		return errUnavailable.withMessage(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errCancelled.withMessage(err.Error())
	default:
		return errInternal.withMessage(err.Error())
	}
}

func writeError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	writeJSON(w, he.Status, he)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object from the request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		// An empty body leaves every optional field at its zero value.
		if errors.Is(err, io.EOF) {
			return nil
		}
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return errBadRequest.withMessage("invalid JSON body: " + err.Error())
	}
	return nil
}
