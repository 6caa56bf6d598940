package record

import (
	"github.com/google/uuid"

	"github.com/codeready-toolchain/eventledger/pkg/catalog"
	"github.com/codeready-toolchain/eventledger/pkg/hlc"
)

// Factory creates EventRecords: it assigns identity and HLC timestamps, then
// validates the result against a catalog before handing it back.
type Factory struct {
	catalog *catalog.Catalog
	clock   *hlc.Clock
}

// NewFactory builds a Factory over the given catalog and clock.
func NewFactory(cat *catalog.Catalog, clock *hlc.Clock) *Factory {
	return &Factory{catalog: cat, clock: clock}
}

// MakeRecord assembles a new EventRecord for typ from payload, stamps it
// with the factory's clock, and validates it against the factory's catalog.
// A validation failure (including an unrecognized type) is returned as-is;
// the record is still returned so a caller can inspect what was rejected.
func (f *Factory) MakeRecord(typ string, payload Payload) (*EventRecord, error) {
	stream := payload.Stream
	if stream == "" {
		stream = uuid.NewString()
	}

	ts, err := f.clock.Now()
	if err != nil {
		return nil, err
	}
	created := ts.String()

	rec := &EventRecord{
		ID:       uuid.NewString(),
		Stream:   stream,
		Type:     typ,
		Data:     payload.Data,
		Meta:     payload.Meta,
		Created:  created,
		Recorded: created,
	}

	if err := f.catalog.Validate(rec.ID, rec.Type, rec.Data, rec.Meta); err != nil {
		return rec, err
	}
	return rec, nil
}
