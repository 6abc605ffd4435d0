package artifact

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/closedloop/econsim/internal/events"
)

// payloadFactory builds a zero-valued concrete events.Data for a given
// kind, so decodeEventPayload can msgpack.Unmarshal into the right
// concrete type (events.Data is an interface, so there is no single
// static type the decoder can target without this registry). Grounded on
// the direct msgpack.Marshal/Unmarshal usage in display/bridge/main.go,
// the one place in the teacher pack that round-trips a concrete Go value
// through vmihailenco/msgpack rather than its net/rpc codec.
var payloadFactory = map[events.Type]func() events.Data{
	events.BeginDay:                  func() events.Data { return &events.BeginDayData{} },
	events.PayableCreated:            func() events.Data { return &events.PayableCreatedData{} },
	events.PayableSettled:            func() events.Data { return &events.PayableSettledData{} },
	events.DefaultEvent:              func() events.Data { return &events.DefaultEventData{} },
	events.StockCreated:              func() events.Data { return &events.StockCreatedData{} },
	events.StockTransferred:          func() events.Data { return &events.StockTransferredData{} },
	events.DeliveryObligationSettled: func() events.Data { return &events.DeliveryObligationSettledData{} },
	events.ClientPayment:             func() events.Data { return &events.ClientPaymentData{} },
	events.InterbankCleared:          func() events.Data { return &events.InterbankClearedData{} },
	events.ClaimTransferred:          func() events.Data { return &events.ClaimTransferredData{} },
	events.DealerTrade:               func() events.Data { return &events.DealerTradeData{} },
	events.DealerPassthrough:         func() events.Data { return &events.DealerTradeData{} },
	events.DealerRebucket:            func() events.Data { return &events.DealerRebucketData{} },
	events.VbtAnchorUpdate:           func() events.Data { return &events.VbtAnchorUpdateData{} },
	events.DealerOrderRejected:       func() events.Data { return &events.DealerOrderRejectedData{} },
	events.DealerLiquidation:         func() events.Data { return &events.DealerLiquidationData{} },
}

// encodeEventPayload msgpack-encodes an event's typed Data payload.
func encodeEventPayload(data events.Data) ([]byte, error) {
	b, err := msgpack.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode event payload: %w", err)
	}
	return b, nil
}

// decodeEventPayload msgpack-decodes payload back into the concrete type
// registered for kind. Phase-marker kinds (PhaseA/B/C, SubphaseB1/B2)
// have no registered factory and no payload beyond the marker itself —
// decodeEventPayload returns a PhaseMarkerData for any unregistered kind,
// matching how the ledger emits them (events.PhaseMarkerData.EventType
// derives its Type from the Phase field, so the kind column alone
// recovers it).
func decodeEventPayload(kind events.Type, payload []byte) (events.Data, error) {
	factory, ok := payloadFactory[kind]
	if !ok {
		return &events.PhaseMarkerData{Phase: string(kind)}, nil
	}
	data := factory()
	if err := msgpack.Unmarshal(payload, data); err != nil {
		return nil, fmt.Errorf("decode event payload (kind=%s): %w", kind, err)
	}
	return data, nil
}
