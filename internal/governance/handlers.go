package governance

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	com "github.com/omnikdao/governance/internal/common"
	"github.com/omnikdao/governance/internal/deploy"
	"github.com/omnikdao/governance/internal/services/db"
	"github.com/omnikdao/governance/pkg/governor"
)

type Service struct {
	d  *deploy.Deployment
	db *db.DB
}

func NewService(d *deploy.Deployment, db *db.DB) *Service {
	return &Service{
		d:  d,
		db: db,
	}
}

func pagination(r *http.Request) (int, int) {
	limitq := r.URL.Query().Get("limit")
	offsetq := r.URL.Query().Get("offset")

	limit, err := strconv.Atoi(limitq)
	if err != nil || limit <= 0 {
		limit = 20
	}

	offset, err := strconv.Atoi(offsetq)
	if err != nil || offset < 0 {
		offset = 0
	}

	return limit, offset
}

// GetProposals godoc
//
//	@Summary		Fetch proposals
//	@Description	get indexed proposals, optionally filtered by state
//	@Tags			gov
//	@Produce		json
//	@Param			state	query		string	false	"Proposal state"
//	@Success		200		{object}	common.Response
//	@Failure		500
//	@Router			/gov/proposals [get]
func (s *Service) GetProposals(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	state := r.URL.Query().Get("state")

	ps, err := s.db.ProposalDB.GetProposals(state, limit, offset)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	err = com.BodyMultiple(w, ps, com.Pagination{Limit: limit, Offset: offset, Total: offset + len(ps)})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type proposal struct {
	ID          common.Hash            `json:"proposal_id"`
	Proposer    common.Address         `json:"proposer"`
	Descriptor  governor.Descriptor    `json:"descriptor"`
	Description string                 `json:"description"`
	State       string                 `json:"state"`
	Snapshot    uint64                 `json:"snapshot"`
	Deadline    uint64                 `json:"deadline"`
	Eta         uint64                 `json:"eta"`
	Votes       governor.ProposalVotes `json:"votes"`
	Quorum      *big.Int               `json:"quorum,omitempty"`
}

// GetProposal godoc
//
//	@Summary		Fetch a proposal
//	@Description	get the live state, schedule and tally of a proposal
//	@Tags			gov
//	@Produce		json
//	@Param			id	path		string	true	"Proposal id, hex or decimal"
//	@Success		200	{object}	common.Response
//	@Failure		400
//	@Failure		404
//	@Router			/gov/proposals/{id} [get]
func (s *Service) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := com.ParseID(chi.URLParam(r, "id"))
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var p proposal
	err := s.d.Chain.View(func() error {
		pr, err := s.d.Governor.Proposal(id)
		if err != nil {
			return err
		}

		st, err := s.d.Governor.State(id)
		if err != nil {
			return err
		}

		p = proposal{
			ID:          pr.ID,
			Proposer:    pr.Proposer,
			Descriptor:  pr.Descriptor,
			Description: pr.Description,
			State:       st.String(),
			Snapshot:    pr.Snapshot,
			Deadline:    pr.Deadline,
			Eta:         pr.Eta,
			Votes:       pr.Votes,
		}

		// quorum is known once the snapshot is in the past
		if q, err := s.d.Governor.Quorum(pr.Snapshot); err == nil {
			p.Quorum = q
		}

		return nil
	})
	if err != nil {
		com.Error(w, err)
		return
	}

	err = com.Body(w, p, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type ballot struct {
	Voter    string `json:"voter"`
	Support  string `json:"support"`
	Weight   string `json:"weight"`
	Reason   string `json:"reason"`
	Position uint64 `json:"position"`
}

type tally struct {
	Votes   governor.ProposalVotes `json:"votes"`
	Ballots []ballot               `json:"ballots"`
}

// GetProposalVotes godoc
//
//	@Summary		Fetch the votes of a proposal
//	@Description	get the tally and the individual ballots cast on a proposal
//	@Tags			gov
//	@Produce		json
//	@Param			id	path		string	true	"Proposal id, hex or decimal"
//	@Success		200	{object}	common.Response
//	@Failure		400
//	@Failure		404
//	@Router			/gov/proposals/{id}/votes [get]
func (s *Service) GetProposalVotes(w http.ResponseWriter, r *http.Request) {
	id, ok := com.ParseID(chi.URLParam(r, "id"))
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	limit, offset := pagination(r)

	var (
		t        tally
		snapshot uint64
	)
	err := s.d.Chain.View(func() error {
		v, err := s.d.Governor.ProposalVotes(id)
		if err != nil {
			return err
		}

		t.Votes = v
		snapshot, err = s.d.Governor.ProposalSnapshot(id)
		return err
	})
	if err != nil {
		com.Error(w, err)
		return
	}

	// ballots are cast after the snapshot
	logs, err := s.db.LogDB.GetLogs(s.d.Governor.Address(), governor.EventName(governor.EventVoteCast), snapshot, limit, offset)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	pid := id.Big().String()
	logs = com.Filter(logs, func(l *governor.Log) bool {
		return fmt.Sprint(l.Data["proposalId"]) == pid
	})

	t.Ballots = com.Map(logs, func(l *governor.Log) ballot {
		support, _ := strconv.Atoi(fmt.Sprint(l.Data["support"]))
		return ballot{
			Voter:    fmt.Sprint(l.Data["voter"]),
			Support:  governor.VoteType(support).String(),
			Weight:   fmt.Sprint(l.Data["weight"]),
			Reason:   fmt.Sprint(l.Data["reason"]),
			Position: l.Position,
		}
	})

	err = com.Body(w, t, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type quorum struct {
	Position  uint64   `json:"position"`
	Quorum    *big.Int `json:"quorum"`
	Numerator uint64   `json:"numerator"`
}

// GetQuorum godoc
//
//	@Summary		Fetch the quorum
//	@Description	get the participation required at a past position
//	@Tags			gov
//	@Produce		json
//	@Param			position	path		int	true	"Position"
//	@Success		200			{object}	common.Response
//	@Failure		400
//	@Router			/gov/quorum/{position} [get]
func (s *Service) GetQuorum(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.ParseUint(chi.URLParam(r, "position"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	q := quorum{Position: position}
	err = s.d.Chain.View(func() error {
		v, err := s.d.Governor.Quorum(position)
		if err != nil {
			return err
		}

		q.Quorum = v
		q.Numerator = s.d.Governor.QuorumNumerator()
		return nil
	})
	if err != nil {
		com.Error(w, err)
		return
	}

	err = com.Body(w, q, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type operation struct {
	ID      common.Hash `json:"operation_id"`
	State   string      `json:"state"`
	Ready   bool        `json:"ready"`
	Done    bool        `json:"done"`
	ReadyAt uint64      `json:"ready_at"`
}

// GetOperation godoc
//
//	@Summary		Fetch a timelock operation
//	@Description	get the state of a scheduled operation
//	@Tags			timelock
//	@Produce		json
//	@Param			id	path		string	true	"Operation id"
//	@Success		200	{object}	common.Response
//	@Failure		400
//	@Failure		404
//	@Router			/timelock/operations/{id} [get]
func (s *Service) GetOperation(w http.ResponseWriter, r *http.Request) {
	id, ok := com.ParseID(chi.URLParam(r, "id"))
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var (
		op    operation
		found bool
	)
	s.d.Chain.View(func() error {
		o, ok := s.d.Timelock.Operation(id)
		if !ok {
			return nil
		}

		found = true
		op = operation{
			ID:      id,
			State:   o.State.String(),
			Ready:   s.d.Timelock.IsOperationReady(id),
			Done:    s.d.Timelock.IsOperationDone(id),
			ReadyAt: o.ReadyAt,
		}
		return nil
	})
	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	err := com.Body(w, op, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type treasury struct {
	Address     common.Address `json:"address"`
	Owner       common.Address `json:"owner"`
	Beneficiary common.Address `json:"beneficiary"`
	Released    bool           `json:"is_released"`
	Balance     string         `json:"balance"`
	Ether       string         `json:"ether"`
}

// GetTreasury godoc
//
//	@Summary		Fetch the treasury
//	@Description	get the owner, release flag and balance of the treasury
//	@Tags			treasury
//	@Produce		json
//	@Success		200	{object}	common.Response
//	@Router			/treasury [get]
func (s *Service) GetTreasury(w http.ResponseWriter, r *http.Request) {
	var t treasury
	s.d.Chain.View(func() error {
		b := s.d.Treasury.Balance()
		t = treasury{
			Address:     s.d.Treasury.Address(),
			Owner:       s.d.Treasury.Owner(),
			Beneficiary: s.d.Treasury.Beneficiary(),
			Released:    s.d.Treasury.IsReleased(),
			Balance:     b.String(),
			Ether:       com.FormatEther(b),
		}
		return nil
	})

	err := com.Body(w, t, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type accountVotes struct {
	Address   common.Address `json:"address"`
	Delegate  common.Address `json:"delegate"`
	Balance   *big.Int       `json:"balance"`
	Votes     *big.Int       `json:"votes"`
	Position  uint64         `json:"position"`
	Historic  bool           `json:"historic"`
	Snapshots int            `json:"checkpoints"`
}

// GetAccountVotes godoc
//
//	@Summary		Fetch voting power
//	@Description	get the current voting power of an account, or its power at a past position
//	@Tags			votes
//	@Produce		json
//	@Param			addr		path		string	true	"Account address"
//	@Param			position	query		int		false	"Past position"
//	@Success		200			{object}	common.Response
//	@Failure		400
//	@Router			/accounts/{addr}/votes [get]
func (s *Service) GetAccountVotes(w http.ResponseWriter, r *http.Request) {
	addr, ok := com.ParseAddress(chi.URLParam(r, "addr"))
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var position *uint64
	if pq := r.URL.Query().Get("position"); pq != "" {
		p, err := strconv.ParseUint(pq, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		position = &p
	}

	var a accountVotes
	err := s.d.Chain.View(func() error {
		a = accountVotes{
			Address:   addr,
			Delegate:  s.d.Token.Delegates(addr),
			Balance:   s.d.Token.BalanceOf(addr),
			Votes:     s.d.Token.GetVotes(addr),
			Position:  s.d.Chain.Position(),
			Snapshots: s.d.Token.NumCheckpoints(addr),
		}

		if position == nil {
			return nil
		}

		v, err := s.d.Token.GetPastVotes(addr, *position)
		if err != nil {
			return err
		}

		a.Votes = v
		a.Position = *position
		a.Historic = true
		return nil
	})
	if err != nil {
		com.Error(w, err)
		return
	}

	err = com.Body(w, a, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
