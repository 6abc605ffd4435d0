package ledger

import "github.com/closedloop/econsim/internal/domain"

// Scope is the atomic mutation wrapper of spec.md §4.1. Every compound
// operation (primitive op, settlement step, trade) runs inside exactly
// one Scope via State.Atomic. On any error returned from the scope's
// function, every touched record is restored to its pre-scope value and
// every record created during the scope is deleted; on success the
// writes are already in place (they mutate State directly) and are kept.
//
// Atomic scopes do not nest for rollback purposes (spec.md §4.1): only
// one Scope is ever active at a time in this single-threaded core (§5),
// so State.Atomic is not reentrant — a primitive op must never call
// State.Atomic from inside another scope's function. Compound operations
// that need several primitives call them directly (not through their own
// nested State.Atomic) and let the outer scope cover all of them.
type Scope struct {
	st *State

	agentOrderLen int
	instrOrderLen int
	stockOrderLen int
	aliasOrderLen int
	logLen        int
	idSeqSnap     map[string]uint64

	agentSnap map[string]domain.Agent
	instrSnap map[string]domain.Instrument
	stockSnap map[string]domain.StockLot

	newAgents      []string
	newInstruments []string
	newStocks      []string
	newAliases     []string
}

func cloneU64Map(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneAgentValue(a *domain.Agent) domain.Agent {
	cp := *a
	cp.AssetIDs = append([]string(nil), a.AssetIDs...)
	cp.LiabilityIDs = append([]string(nil), a.LiabilityIDs...)
	cp.StockIDs = append([]string(nil), a.StockIDs...)
	cp.ClientIDs = append([]string(nil), a.ClientIDs...)
	return cp
}

func (s *State) beginScope() *Scope {
	return &Scope{
		st:            s,
		agentOrderLen: len(s.agentOrder),
		instrOrderLen: len(s.instrOrder),
		stockOrderLen: len(s.stockOrder),
		aliasOrderLen: len(s.aliasOrder),
		logLen:        s.Log.Len(),
		idSeqSnap:     cloneU64Map(s.idSeq),
		agentSnap:     make(map[string]domain.Agent),
		instrSnap:     make(map[string]domain.Instrument),
		stockSnap:     make(map[string]domain.StockLot),
	}
}

// TouchAgent snapshots an existing agent's value the first time it is
// mutated within the scope. Call before mutating AssetIDs/LiabilityIDs/
// StockIDs/Defaulted/ClientIDs/BankID on a pre-existing agent.
func (sc *Scope) TouchAgent(id string) {
	if _, already := sc.agentSnap[id]; already {
		return
	}
	if a, ok := sc.st.agents[id]; ok {
		sc.agentSnap[id] = cloneAgentValue(a)
	}
}

// TouchInstrument snapshots an existing instrument's value the first time
// it is mutated within the scope.
func (sc *Scope) TouchInstrument(id string) {
	if _, already := sc.instrSnap[id]; already {
		return
	}
	if i, ok := sc.st.instruments[id]; ok {
		sc.instrSnap[id] = *i
	}
}

// TouchStock snapshots an existing stock lot's value the first time it is
// mutated within the scope.
func (sc *Scope) TouchStock(id string) {
	if _, already := sc.stockSnap[id]; already {
		return
	}
	if st, ok := sc.st.stocks[id]; ok {
		sc.stockSnap[id] = *st
	}
}

// NoteNewAgent records that id was created during this scope, so it can
// be deleted wholesale on rollback.
func (sc *Scope) NoteNewAgent(id string) { sc.newAgents = append(sc.newAgents, id) }

// NoteNewInstrument records that id was created during this scope.
func (sc *Scope) NoteNewInstrument(id string) { sc.newInstruments = append(sc.newInstruments, id) }

// NoteNewStock records that id was created during this scope.
func (sc *Scope) NoteNewStock(id string) { sc.newStocks = append(sc.newStocks, id) }

// NoteNewAlias records that alias was registered during this scope.
func (sc *Scope) NoteNewAlias(alias string) { sc.newAliases = append(sc.newAliases, alias) }

func (sc *Scope) rollback() {
	s := sc.st
	for id, snap := range sc.agentSnap {
		if a, ok := s.agents[id]; ok {
			*a = snap
		}
	}
	for id, snap := range sc.instrSnap {
		if i, ok := s.instruments[id]; ok {
			*i = snap
		}
	}
	for id, snap := range sc.stockSnap {
		if st, ok := s.stocks[id]; ok {
			*st = snap
		}
	}
	for _, id := range sc.newAgents {
		delete(s.agents, id)
	}
	for _, id := range sc.newInstruments {
		delete(s.instruments, id)
	}
	for _, id := range sc.newStocks {
		delete(s.stocks, id)
	}
	for _, alias := range sc.newAliases {
		delete(s.aliases, alias)
	}
	s.agentOrder = s.agentOrder[:sc.agentOrderLen]
	s.instrOrder = s.instrOrder[:sc.instrOrderLen]
	s.stockOrder = s.stockOrder[:sc.stockOrderLen]
	s.aliasOrder = s.aliasOrder[:sc.aliasOrderLen]
	s.Log.Truncate(sc.logLen)
	s.idSeq = sc.idSeqSnap
}

// Atomic runs fn inside a fresh Scope (spec.md §4.1). On error, every
// mutation fn performed is rewound; on success, invariant checks run
// according to Policy.InvariantCheckMode ("commit" checks now, "daily"
// and "off" defer/skip). During PhaseSetup the commit-time check is
// skipped; EndSetup runs it once when setup completes.
func (s *State) Atomic(fn func(sc *Scope) error) error {
	sc := s.beginScope()
	if err := fn(sc); err != nil {
		sc.rollback()
		return err
	}
	if s.Policy.InvariantCheckMode == InvariantCheckCommit && s.Phase != PhaseSetup {
		if err := s.CheckInvariants(); err != nil {
			sc.rollback()
			return err
		}
	}
	return nil
}
