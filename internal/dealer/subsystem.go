package dealer

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/closedloop/econsim/internal/domain"
	"github.com/closedloop/econsim/internal/events"
	"github.com/closedloop/econsim/internal/ledger"
	"github.com/closedloop/econsim/internal/money"
)

// Subsystem is the full dealer ring: every bucket's dealer/VBT records,
// every live ticket, and the seeded PRNG, wired to one ledger.State via
// the ledger.DealerHook interface (spec.md §3, §4.7–§4.11). There is
// exactly one Subsystem per simulation, owned by the ledger state that
// holds it (spec.md §5 "the dealer subsystem is owned exclusively by the
// ledger state").
type Subsystem struct {
	ledger *ledger.State
	cfg    *Config
	logger zerolog.Logger
	rng    *RNG

	buckets     map[string]*BucketState
	bucketOrder []string

	tickets     map[string]*Ticket
	ticketOrder []string
	ticketSeq   uint64

	// risk is nil unless cfg.RiskParams is set, in which case every
	// order-flow arrival is gated through it (spec.md §4.9, extended).
	risk *RiskAssessor

	// maturedBucket records the bucket a ticket occupied immediately
	// before it matured out of inventory today, keyed by its source
	// payable id — consumed by AfterSettlement's per-bucket loss-rate
	// computation (spec.md §4.10 step 7).
	maturedBucket map[string]string
}

// New builds a Subsystem whose PRNG is seeded from cfg.Seed; call Init
// before the first RunDay.
func New(st *ledger.State, cfg *Config) *Subsystem {
	ds := &Subsystem{
		ledger:        st,
		cfg:           cfg,
		logger:        st.Logger().With().Str("component", "dealer").Logger(),
		rng:           NewRNG(cfg.Seed),
		buckets:       make(map[string]*BucketState),
		tickets:       make(map[string]*Ticket),
		maturedBucket: make(map[string]string),
	}
	if cfg.RiskParams != nil {
		ds.risk = NewRiskAssessor(*cfg.RiskParams)
	}
	return ds
}

// Init performs spec.md §4.7's subsystem initialization: builds each
// configured bucket's dealer/VBT records (minting their starting cash as
// an outside liquidity injection) and converts every existing payable
// into a ticket, splitting the initial holding across {dealer, VBT,
// trader} by the configured shares. Call once, after ledger.State.EndSetup
// and before the first RunDay.
func (ds *Subsystem) Init() error {
	for _, bc := range ds.cfg.Buckets {
		bs := &BucketState{
			Name: bc.Name, TauMin: bc.TauMin, TauMax: bc.TauMax,
			DealerAgentID: bc.DealerAgentID, VBTAgentID: bc.VBTAgentID,
			M: bc.InitialM, O: bc.InitialO,
			PhiM: ds.cfg.PhiM, PhiO: ds.cfg.PhiO,
		}
		if bc.InitialDealerCash > 0 {
			if _, err := ds.ledger.MintCash(bc.DealerAgentID, bc.InitialDealerCash, ds.cfg.CentralBankID, ""); err != nil {
				return fmt.Errorf("dealer: fund bucket %s dealer: %w", bc.Name, err)
			}
			bs.DealerCash = bc.InitialDealerCash
		}
		if bc.InitialVBTCash > 0 {
			if _, err := ds.ledger.MintCash(bc.VBTAgentID, bc.InitialVBTCash, ds.cfg.CentralBankID, ""); err != nil {
				return fmt.Errorf("dealer: fund bucket %s vbt: %w", bc.Name, err)
			}
			bs.VBTCash = bc.InitialVBTCash
		}
		ds.buckets[bc.Name] = bs
		ds.bucketOrder = append(ds.bucketOrder, bc.Name)
	}

	day := ds.ledger.Day
	for _, iid := range ds.ledger.InstrumentIDs() {
		inst, ok := ds.ledger.Instrument(iid)
		if !ok || inst.Kind != domain.KindPayable {
			continue
		}
		if err := ds.convertPayableToTicket(inst, day); err != nil {
			return err
		}
	}
	ds.recomputeAll()
	return nil
}

func (ds *Subsystem) convertPayableToTicket(inst *domain.Instrument, day int) error {
	face := inst.Amount
	if !ds.cfg.FaceFromPayable {
		face = ds.cfg.TicketSize
	}
	ds.ticketSeq++
	t := &Ticket{
		ID:              ds.ledger.NextID("tk"),
		Serial:          ds.ticketSeq,
		SourcePayableID: inst.ID,
		IssuerID:        inst.LiabilityIssuerID,
		OwnerID:         inst.EffectiveCreditor(),
		HolderKind:      HolderTrader,
		Face:            face,
		MaturityDay:     inst.DueDay,
	}
	t.Recompute(ds.cfg, day)
	if t.Bucket == "" {
		// Already matured or past every configured band; leave with its
		// original creditor, untracked by the subsystem.
		return nil
	}
	bs := ds.buckets[t.Bucket]
	if bs == nil {
		return nil
	}

	r := ds.rng.Float64()
	dealerShare := bc64(ds.cfg.DealerShare)
	vbtShare := bc64(ds.cfg.VBTShare)
	switch {
	case r < dealerShare:
		t.OwnerID = bs.DealerAgentID
		t.HolderKind = HolderDealer
		bs.DealerTickets = append(bs.DealerTickets, t.ID)
		if t.OwnerID != inst.EffectiveCreditor() {
			if err := ds.ledger.TransferClaim(inst.ID, t.OwnerID); err != nil {
				return err
			}
		}
	case r < dealerShare+vbtShare:
		t.OwnerID = bs.VBTAgentID
		t.HolderKind = HolderVBT
		bs.VBTTickets = append(bs.VBTTickets, t.ID)
		if t.OwnerID != inst.EffectiveCreditor() {
			if err := ds.ledger.TransferClaim(inst.ID, t.OwnerID); err != nil {
				return err
			}
		}
	default:
		// stays with the original creditor, a trader
	}

	ds.tickets[t.ID] = t
	ds.ticketOrder = append(ds.ticketOrder, t.ID)
	return nil
}

func bc64(p money.Price) float64 {
	f, _ := p.Decimal().Float64()
	return f
}

func (ds *Subsystem) recomputeAll() {
	for _, name := range ds.bucketOrder {
		ds.buckets[name].Recompute(ds.cfg)
	}
}

// RunDailyPhase executes spec.md §4.10 steps 1–5 for day.
func (ds *Subsystem) RunDailyPhase(day int) error {
	if err := ds.tickAndRebucket(day); err != nil {
		return err
	}
	ds.recomputeAll()
	sellPool, buyPool := ds.buildEligibility(day)
	return ds.runOrderFlow(day, sellPool, buyPool)
}

// AfterSettlement executes spec.md §4.10 steps 6–7: it reads today's
// DefaultEvents (already emitted by Phase B2) and applies each affected
// bucket's VBT anchor update.
func (ds *Subsystem) AfterSettlement(day int) error {
	type lossAgg struct{ faceTotal, lostTotal money.Amount }
	losses := make(map[string]*lossAgg)

	defaulted := make(map[string]bool)
	for _, d := range ds.ledger.DefaultsOnDay(day) {
		defaulted[d.InstrumentID] = true
		if ds.risk != nil {
			ds.risk.UpdateHistory(day, d.DebtorID, d.Recovered < d.Face)
		}
		bucket, ok := ds.maturedBucket[d.InstrumentID]
		if !ok {
			continue
		}
		agg := losses[bucket]
		if agg == nil {
			agg = &lossAgg{}
			losses[bucket] = agg
		}
		agg.faceTotal += money.Amount(d.Face)
		agg.lostTotal += money.Amount(d.Face - d.Recovered)
	}
	if ds.risk != nil {
		for _, p := range ds.ledger.PayableSettlementsOnDay(day) {
			if defaulted[p.InstrumentID] {
				continue
			}
			ds.risk.UpdateHistory(day, p.DebtorID, false)
		}
	}

	ds.maturedBucket = make(map[string]string)

	for _, bucket := range ds.bucketOrder {
		agg := losses[bucket]
		if agg == nil {
			continue
		}
		bs := ds.buckets[bucket]
		if bs == nil || agg.faceTotal == 0 {
			continue
		}
		lossRate := money.Ratio(agg.lostTotal, agg.faceTotal)
		bs.M = bs.M.Sub(bs.PhiM.Mul(lossRate))
		newO := bs.O.Add(bs.PhiO.Mul(lossRate))
		bs.O = money.Max(ds.cfg.OMin, newO)
		bs.Recompute(ds.cfg)
		ds.ledger.EmitDealerEvent(&events.VbtAnchorUpdateData{
			Bucket: bucket, LossRate: lossRate.String(), NewM: bs.M.String(), NewO: bs.O.String(),
		})
	}
	return nil
}

// Bucket looks up a bucket by name, for tests and the metrics layer.
func (ds *Subsystem) Bucket(name string) (*BucketState, bool) {
	bs, ok := ds.buckets[name]
	return bs, ok
}

// BucketNames returns the configured bucket names in order.
func (ds *Subsystem) BucketNames() []string { return ds.bucketOrder }

// Config exposes the subsystem's read-only configuration, for the
// metrics layer (package dealermetrics) and tests.
func (ds *Subsystem) Config() *Config { return ds.cfg }
