// Package broker provides a streaming API for real-time message delivery.
// This file contains the push-style loop built on blocking Poll.
package broker

import (
	"context"
	"errors"
	"fmt"
)

// StreamHandler is called for each record in the stream.
// Return an error to stop streaming.
type StreamHandler func(Record) error

// Stream delivers every record after cur to handler, in offset order, until
// ctx is done, handler fails, or polling fails. It blocks between records
// instead of sleeping on a ticker, so new records are delivered as soon as
// they are published.
//
// The returned cursor reflects the last record handler accepted and can be
// passed to Poll or Stream to resume. Context cancellation returns ctx.Err().
// Handler errors are wrapped and returned.
//
// Example usage:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	cur, err = r.Stream(ctx, cur, func(rec broker.Record) error {
//	    fmt.Printf("%d: %s\n", rec.Offset, rec.Payload)
//	    return nil
//	})
func (r *Registry) Stream(ctx context.Context, cur Cursor, handler StreamHandler) (Cursor, error) {
	if handler == nil {
		return cur, errors.New("handler cannot be nil")
	}

	for {
		records, _, err := r.Poll(ctx, cur, WaitForever)
		if err != nil {
			return cur, err
		}

		for _, rec := range records {
			if err := handler(rec); err != nil {
				return cur, fmt.Errorf("handler error: %w", err)
			}
			cur.Offset = rec.Offset
		}
	}
}
