// Package notify publishes order-created events to an external channel.
//
// Delivery is best effort: publishers make a single attempt and report the
// error to the caller, which decides whether it matters.
package notify

import (
	"context"
	"time"

	"github.com/go-faster/jx"
)

// DefaultChannel is the channel subscribers listen on.
const DefaultChannel = "order_channel"

// Created is the payload announcing a newly persisted order.
type Created struct {
	OrderID   int64
	Timestamp time.Time
}

// Encode renders the event as {"OrderId":<id>,"Timestamp":"<RFC3339 UTC>"}.
func (c Created) Encode() []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("OrderId")
	e.Int64(c.OrderID)
	e.FieldStart("Timestamp")
	e.Str(c.Timestamp.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}

// Decode parses an encoded event.
func Decode(data []byte) (Created, error) {
	var c Created
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "OrderId":
			v, err := d.Int64()
			c.OrderID = v
			return err
		case "Timestamp":
			s, err := d.Str()
			if err != nil {
				return err
			}
			c.Timestamp, err = time.Parse(time.RFC3339Nano, s)
			return err
		default:
			return d.Skip()
		}
	})
	return c, err
}

// Nop discards every event. It is used when notifications are disabled.
type Nop struct{}

func (Nop) OrderCreated(context.Context, int64, time.Time) error { return nil }

func (Nop) Close() error { return nil }
