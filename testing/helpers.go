// Package testing provides fixtures and helpers for weave tests.
package testing

import (
	"reflect"
	"testing"
	"time"

	"github.com/zoobzio/weave"
	"github.com/zoobzio/weave/bson"
	"github.com/zoobzio/weave/cbor"
	"github.com/zoobzio/weave/json"
	"github.com/zoobzio/weave/msgpack"
	"github.com/zoobzio/weave/xml"
	"github.com/zoobzio/weave/yaml"
)

// Status is a registered enum.
type Status int

const (
	StatusPending Status = iota
	StatusPaid
	StatusShipped
)

// StatusNames are the enum names registered by RegisterFixtures.
var StatusNames = map[Status]string{
	StatusPending: "Pending",
	StatusPaid:    "Paid",
	StatusShipped: "Shipped",
}

// Customer owns orders that point back at it.
type Customer struct {
	ID     int               `graph:"id"`
	Name   string            `graph:"name"`
	Orders []*Order          `graph:"orders"`
	Tags   map[string]string `graph:"tags"`
}

// Order is a node in the customer cycle.
type Order struct {
	Number   string      `graph:"number"`
	Status   Status      `graph:"status"`
	Placed   time.Time   `graph:"placed"`
	Customer *Customer   `graph:"customer"`
	Items    []*LineItem `graph:"items"`
}

// LineItem references a product that may be shared between orders.
type LineItem struct {
	Product  *Product `graph:"product"`
	Quantity int      `graph:"qty"`
}

// Product is shared by reference.
type Product struct {
	SKU   string  `graph:"sku"`
	Price float64 `graph:"price"`
}

// RegisterFixtures registers the fixture enum and types on r.
func RegisterFixtures(r *weave.Registry) error {
	if err := weave.RegisterEnum(r, StatusNames); err != nil {
		return err
	}
	weave.Register[Customer](r)
	weave.Register[Order](r)
	weave.Register[LineItem](r)
	weave.Register[Product](r)
	return nil
}

// NewEngine returns an engine with the fixtures registered.
func NewEngine(tb testing.TB, opts ...weave.Option) *weave.Engine {
	tb.Helper()
	r := weave.NewRegistry()
	if err := RegisterFixtures(r); err != nil {
		tb.Fatalf("RegisterFixtures() error: %v", err)
	}
	return weave.New(r, opts...)
}

// Codecs returns one instance of every codec provider.
func Codecs() []weave.Codec {
	return []weave.Codec{
		json.New(),
		xml.New(),
		yaml.New(),
		msgpack.New(),
		cbor.MustNew(),
		bson.New(),
	}
}

// Shop returns a customer with two orders sharing one product. Every order
// points back at the customer.
func Shop() *Customer {
	widget := &Product{SKU: "W-1", Price: 2.5}
	gadget := &Product{SKU: "G-7", Price: 19.99}
	c := &Customer{
		ID:   42,
		Name: "Ada",
		Tags: map[string]string{"tier": "gold", "region": "eu"},
	}
	c.Orders = []*Order{
		{
			Number: "A-1",
			Status: StatusPaid,
			Placed: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
			Items: []*LineItem{
				{Product: widget, Quantity: 3},
				{Product: gadget, Quantity: 1},
			},
		},
		{
			Number: "A-2",
			Status: StatusShipped,
			Placed: time.Date(2024, 6, 12, 17, 45, 0, 0, time.UTC),
			Items:  []*LineItem{{Product: widget, Quantity: 10}},
		},
	}
	for _, o := range c.Orders {
		o.Customer = c
	}
	return c
}

// CheckShop fails tb unless got has the shape and identities of Shop().
func CheckShop(tb testing.TB, got *Customer) {
	tb.Helper()
	want := Shop()
	if got == nil {
		tb.Fatal("customer is nil")
	}
	if got.ID != want.ID || got.Name != want.Name {
		tb.Errorf("customer = %d/%q, want %d/%q", got.ID, got.Name, want.ID, want.Name)
	}
	if !reflect.DeepEqual(got.Tags, want.Tags) {
		tb.Errorf("tags = %v, want %v", got.Tags, want.Tags)
	}
	if len(got.Orders) != len(want.Orders) {
		tb.Fatalf("got %d orders, want %d", len(got.Orders), len(want.Orders))
	}
	for i, o := range got.Orders {
		w := want.Orders[i]
		if o.Customer != got {
			tb.Errorf("order %s lost its back-reference", o.Number)
		}
		if o.Number != w.Number || o.Status != w.Status || !o.Placed.Equal(w.Placed) {
			tb.Errorf("order %d = %s/%d/%s, want %s/%d/%s",
				i, o.Number, o.Status, o.Placed, w.Number, w.Status, w.Placed)
		}
		if len(o.Items) != len(w.Items) {
			tb.Fatalf("order %s has %d items, want %d", o.Number, len(o.Items), len(w.Items))
		}
		for j, it := range o.Items {
			if *it.Product != *w.Items[j].Product || it.Quantity != w.Items[j].Quantity {
				tb.Errorf("order %s item %d = %+v/%d", o.Number, j, *it.Product, it.Quantity)
			}
		}
	}
	if got.Orders[0].Items[0].Product != got.Orders[1].Items[0].Product {
		tb.Error("shared product identity lost")
	}
}

// RoundTrip marshals v through codec and back using a fresh serializer.
func RoundTrip[T any](tb testing.TB, engine *weave.Engine, codec weave.Codec, v T, opts ...weave.SerializerOption) T {
	tb.Helper()
	s, err := weave.NewSerializer[T](engine, codec, opts...)
	if err != nil {
		tb.Fatalf("NewSerializer() error: %v", err)
	}
	ctx := tb.Context()
	data, err := s.Marshal(ctx, v)
	if err != nil {
		tb.Fatalf("%s Marshal() error: %v", codec.ContentType(), err)
	}
	out, err := s.Unmarshal(ctx, data)
	if err != nil {
		tb.Fatalf("%s Unmarshal() error: %v", codec.ContentType(), err)
	}
	return out
}
