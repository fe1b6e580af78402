package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vnykmshr/topiclog/pkg/topiclog"
)

type demoSubscriber struct {
	id    string
	topic string
}

type demoResult struct {
	subscriber string
	topic      string
	received   int
	cursor     int64
}

// runDemo wires two producers and four subscribers to two topics and
// prints every delivery as it happens.
func runDemo(args []string) error {
	count := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("message count must be a positive integer, got %q", args[0])
		}
		count = n
	}

	reg, err := topiclog.New(nil)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	producers := map[string]string{"T1": "P1", "T2": "P2"}
	subscribers := []demoSubscriber{
		{id: "S1", topic: "T1"},
		{id: "S2", topic: "T1"},
		{id: "S3", topic: "T2"},
		{id: "S4", topic: "T2"},
	}

	for topicID, producerID := range producers {
		if err := reg.CreateTopic(topicID, count); err != nil {
			return err
		}
		if err := reg.RegisterProducer(topicID, producerID); err != nil {
			return err
		}
	}

	cursors := make([]topiclog.Cursor, len(subscribers))
	for i, s := range subscribers {
		cur, err := reg.RegisterSubscriber(s.topic, s.id)
		if err != nil {
			return err
		}
		cursors[i] = cur
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(count)*time.Second+5*time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make([]demoResult, len(subscribers))
	)

	g, gctx := errgroup.WithContext(ctx)

	for topicID, producerID := range producers {
		g.Go(func() error {
			for i := 0; i < count; i++ {
				payload := fmt.Sprintf("%s message %d", producerID, i)
				offset, err := reg.Publish(topicID, producerID, []byte(payload))
				if err != nil {
					return err
				}
				fmt.Printf("%s -> %s  offset=%d  %q\n", producerID, topicID, offset, payload)
				time.Sleep(50 * time.Millisecond)
			}
			return nil
		})
	}

	for i, s := range subscribers {
		cur := cursors[i]
		g.Go(func() error {
			received := 0
			for received < count {
				msgs, next, err := reg.Poll(gctx, cur, time.Second)
				if err != nil {
					return fmt.Errorf("%s: %w", s.id, err)
				}
				for _, m := range msgs {
					fmt.Printf("%s <- %s  offset=%d  %q\n", s.id, s.topic, m.Offset, m.Payload)
				}
				received += len(msgs)
				cur = next
			}

			mu.Lock()
			results[i] = demoResult{subscriber: s.id, topic: s.topic, received: received, cursor: cur.Offset}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUBSCRIBER\tTOPIC\tRECEIVED\tCURSOR")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", r.subscriber, r.topic, r.received, r.cursor)
	}
	return w.Flush()
}
