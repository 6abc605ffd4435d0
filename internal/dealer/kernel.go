package dealer

import "github.com/closedloop/econsim/internal/money"

// BucketState is the per-bucket runtime record of spec.md §3 "Dealer
// subsystem state": a dealer record and a VBT record, plus every derived
// kernel quantity recomputed after each touching event (spec.md §4.8).
type BucketState struct {
	Name           string
	TauMin, TauMax int

	DealerAgentID string
	DealerCash    money.Amount
	// DealerTickets holds this bucket's dealer-owned ticket ids in
	// acquisition order (used for BUY-side ticket selection tie-break).
	DealerTickets []string

	VBTAgentID string
	VBTCash    money.Amount
	VBTTickets []string
	M, O       money.Price // outside anchors
	PhiM, PhiO money.Price

	// Derived kernel outputs (spec.md §4.8); valid only after Recompute.
	X           money.Amount // current inventory face, a*S
	A, B        money.Price
	V           money.Price
	KStar       int64
	XStar       money.Amount
	N           int64
	Lambda      money.Price
	I           money.Price
	Midline     money.Price
	Bid, Ask    money.Price
	PinnedBid   bool
	PinnedAsk   bool
	Guarded     bool
}

// amountAtLeast reports whether amt, expressed as a Price, is >= price —
// used for the interior-BUY feasibility check "C >= bid" which compares
// an integer cash Amount against a decimal kernel quote.
func amountAtLeast(amt money.Amount, price money.Price) bool {
	return money.PriceFromInt(int64(amt)).GreaterThanOrEqual(price)
}

func floorToInt64(p money.Price) int64 {
	return int64(money.FloorAmount(p))
}

// Recompute runs the pricing kernel of spec.md §4.8 for the bucket's
// current inventory, cash, and anchors. cfg supplies the ticket size S,
// the guard threshold M_min, and whether B is clipped to non-negative.
func (b *BucketState) Recompute(cfg *Config) {
	b.A = b.M.Add(b.O.Div(money.PriceFromInt(2)))
	rawB := b.M.Sub(b.O.Div(money.PriceFromInt(2)))
	if cfg.ClipBidNonNegative {
		rawB = money.ClampNonNegative(rawB)
	}
	b.B = rawB

	if b.M.LessThanOrEqual(cfg.MMin) {
		b.Guarded = true
		b.X = money.Amount(len(b.DealerTickets)) * cfg.TicketSize
		b.Bid = b.B
		b.Ask = b.A
		b.XStar = 0
		b.KStar = 0
		b.N = 1
		b.Midline = b.M
		b.Lambda = money.Zero
		b.I = money.Zero
		b.PinnedBid = true
		b.PinnedAsk = true
		return
	}
	b.Guarded = false

	a := int64(len(b.DealerTickets))
	S := money.PriceFromInt(int64(cfg.TicketSize))
	b.X = money.Amount(a) * cfg.TicketSize

	b.V = b.M.Mul(money.PriceFromInt(a)).Add(money.PriceFromInt(int64(b.DealerCash)))
	b.KStar = floorToInt64(b.V.Div(b.M))
	if b.KStar < 0 {
		b.KStar = 0
	}
	b.XStar = money.Amount(b.KStar) * cfg.TicketSize
	b.N = b.KStar + 1

	xStarP := money.PriceFromInt(int64(b.XStar))
	denomLambda := xStarP.Add(S)
	if denomLambda.IsZero() {
		b.Lambda = money.PriceFromInt(1)
	} else {
		b.Lambda = S.Div(denomLambda)
	}
	b.I = b.Lambda.Mul(b.O)

	x := money.PriceFromInt(a * int64(cfg.TicketSize))
	denomP := xStarP.Add(S.Mul(money.PriceFromInt(2)))
	var slope money.Price
	if denomP.IsZero() {
		slope = money.Zero
	} else {
		slope = b.O.Div(denomP)
	}
	b.Midline = b.M.Sub(slope.Mul(x.Sub(xStarP.Div(money.PriceFromInt(2)))))

	half := b.I.Div(money.PriceFromInt(2))
	interiorAsk := b.Midline.Add(half)
	interiorBid := b.Midline.Sub(half)

	b.Ask = money.MinPrice(b.A, interiorAsk)
	b.Bid = money.Max(b.B, interiorBid)
	b.PinnedAsk = b.Ask.Equal(b.A)
	b.PinnedBid = b.Bid.Equal(b.B)
}
