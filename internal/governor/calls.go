package governor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/pkg/contracts"
	gov "github.com/omnikdao/governance/pkg/governor"
)

func proposalID(v any) common.Hash {
	return common.BigToHash(v.(*big.Int))
}

func descriptor(args []any) gov.Descriptor {
	return gov.NewDescriptor(args[0].([]common.Address), args[1].([]*big.Int), args[2].([][]byte))
}

func uint256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func ret(id common.Hash, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	return []any{id.Big()}, nil
}

func retUint(v uint64, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	return []any{uint256(v)}, nil
}

// Call runs an ABI encoded governor call
func (g *Governor) Call(tx *chain.Tx, input []byte) ([]byte, error) {
	a, err := contracts.Load(contracts.GovernorContract)
	if err != nil {
		return nil, err
	}

	return contracts.Dispatch(a, input, map[string]contracts.Handler{
		"name": func(args []any) ([]any, error) {
			return []any{g.name}, nil
		},
		"hashProposal": func(args []any) ([]any, error) {
			return ret(g.HashProposal(descriptor(args), common.Hash(args[3].([32]byte))))
		},
		"propose": func(args []any) ([]any, error) {
			return ret(g.Propose(tx, descriptor(args), args[3].(string)))
		},
		"queue": func(args []any) ([]any, error) {
			return ret(g.Queue(tx, descriptor(args), common.Hash(args[3].([32]byte))))
		},
		"execute": func(args []any) ([]any, error) {
			return ret(g.Execute(tx, descriptor(args), common.Hash(args[3].([32]byte))))
		},
		"cancel": func(args []any) ([]any, error) {
			return nil, g.Cancel(tx, proposalID(args[0]))
		},
		"castVote": func(args []any) ([]any, error) {
			w, err := g.CastVote(tx, proposalID(args[0]), gov.VoteType(args[1].(uint8)), "")
			if err != nil {
				return nil, err
			}
			return []any{w}, nil
		},
		"castVoteWithReason": func(args []any) ([]any, error) {
			w, err := g.CastVote(tx, proposalID(args[0]), gov.VoteType(args[1].(uint8)), args[2].(string))
			if err != nil {
				return nil, err
			}
			return []any{w}, nil
		},
		"state": func(args []any) ([]any, error) {
			st, err := g.State(proposalID(args[0]))
			if err != nil {
				return nil, err
			}
			return []any{uint8(st)}, nil
		},
		"proposalSnapshot": func(args []any) ([]any, error) {
			return retUint(g.ProposalSnapshot(proposalID(args[0])))
		},
		"proposalDeadline": func(args []any) ([]any, error) {
			return retUint(g.ProposalDeadline(proposalID(args[0])))
		},
		"proposalProposer": func(args []any) ([]any, error) {
			p, err := g.ProposalProposer(proposalID(args[0]))
			if err != nil {
				return nil, err
			}
			return []any{p}, nil
		},
		"proposalEta": func(args []any) ([]any, error) {
			return retUint(g.ProposalEta(proposalID(args[0])))
		},
		"proposalVotes": func(args []any) ([]any, error) {
			v, err := g.ProposalVotes(proposalID(args[0]))
			if err != nil {
				return nil, err
			}
			return []any{v.Against, v.For, v.Abstain}, nil
		},
		"hasVoted": func(args []any) ([]any, error) {
			return []any{g.HasVoted(proposalID(args[0]), args[1].(common.Address))}, nil
		},
		"getVotes": func(args []any) ([]any, error) {
			position, err := contracts.PositionArg(args[1])
			if err != nil {
				return nil, err
			}
			v, err := g.GetVotes(args[0].(common.Address), position)
			if err != nil {
				return nil, err
			}
			return []any{v}, nil
		},
		"quorum": func(args []any) ([]any, error) {
			position, err := contracts.PositionArg(args[0])
			if err != nil {
				return nil, err
			}
			q, err := g.Quorum(position)
			if err != nil {
				return nil, err
			}
			return []any{q}, nil
		},
		"quorumNumerator": func(args []any) ([]any, error) {
			return []any{uint256(g.QuorumNumerator())}, nil
		},
		"quorumDenominator": func(args []any) ([]any, error) {
			return []any{uint256(QuorumDenominator)}, nil
		},
		"votingDelay": func(args []any) ([]any, error) {
			return []any{uint256(g.VotingDelay())}, nil
		},
		"votingPeriod": func(args []any) ([]any, error) {
			return []any{uint256(g.VotingPeriod())}, nil
		},
		"proposalThreshold": func(args []any) ([]any, error) {
			return []any{g.ProposalThreshold()}, nil
		},
		"timelock": func(args []any) ([]any, error) {
			return []any{g.Timelock()}, nil
		},
		"token": func(args []any) ([]any, error) {
			return []any{g.Token()}, nil
		},
		"setVotingDelay": func(args []any) ([]any, error) {
			v, err := contracts.Uint64Arg(args[0])
			if err != nil {
				return nil, err
			}
			return nil, g.SetVotingDelay(tx, v)
		},
		"setVotingPeriod": func(args []any) ([]any, error) {
			v, err := contracts.Uint64Arg(args[0])
			if err != nil {
				return nil, err
			}
			return nil, g.SetVotingPeriod(tx, v)
		},
		"setProposalThreshold": func(args []any) ([]any, error) {
			return nil, g.SetProposalThreshold(tx, args[0].(*big.Int))
		},
		"updateQuorumNumerator": func(args []any) ([]any, error) {
			v, err := contracts.Uint64Arg(args[0])
			if err != nil {
				return nil, err
			}
			return nil, g.UpdateQuorumNumerator(tx, v)
		},
	})
}
