package sender

import (
	"context"
	"log"
)

// Summary reports the outcome of a batch run.
type Summary struct {
	Sent      int
	Failed    int
	LastEmail string // recipient of the final attempt, successful or not
}

// SendBatch delivers msgs one at a time, stopping early when ctx is
// cancelled. Failures are counted and logged, never fatal: one bad
// recipient should not sink the rest of a campaign. onResult, when
// non-nil, observes every attempt.
func SendBatch(ctx context.Context, s Sender, msgs []Message, onResult func(Message, Result)) Summary {
	var sum Summary
	for _, msg := range msgs {
		select {
		case <-ctx.Done():
			return sum
		default:
		}

		res := s.Send(ctx, msg)
		sum.LastEmail = msg.To
		if res.Success {
			sum.Sent++
		} else {
			sum.Failed++
			log.Printf("Warning: send to %s failed: %v", msg.To, res.Error)
		}
		if onResult != nil {
			onResult(msg, res)
		}
	}
	return sum
}
