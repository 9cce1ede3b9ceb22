package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/omnikdao/governance/pkg/governor"
)

//     enum ProposalState {
//        Pending,
//        Active,
//        Canceled,
//        Defeated,
//        Succeeded,
//        Queued,
//        Expired,
//        Executed
//    }

var ErrProposalNotFound = errors.New("proposal not found")

// ProposalDB is the queryable projection of governor proposals
type ProposalDB struct {
	suffix string
	db     *sql.DB
	rdb    *sql.DB
}

func NewProposalDB(db, rdb *sql.DB, name string) *ProposalDB {
	return &ProposalDB{
		suffix: name,
		db:     db,
		rdb:    rdb,
	}
}

func (db *ProposalDB) tableName() string {
	return fmt.Sprintf("t_proposals_%s", db.suffix)
}

// CreateProposalTable creates a table to store proposals in the given db
func (db *ProposalDB) CreateProposalTable() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS t_proposals_%s(
		proposal_id text NOT NULL PRIMARY KEY,
		proposer text NOT NULL,
		state text NOT NULL,
		descriptor jsonb NOT NULL,
		description text NOT NULL,
		snapshot integer NOT NULL,
		deadline integer NOT NULL,
		eta integer NOT NULL DEFAULT 0,
		against_votes text NOT NULL DEFAULT '0',
		for_votes text NOT NULL DEFAULT '0',
		abstain_votes text NOT NULL DEFAULT '0',
		updated_position integer NOT NULL,
		created_at timestamp NOT NULL,
		updated_at timestamp NOT NULL
	);
	`, db.suffix))

	return err
}

// CreateProposalTableIndexes creates the indexes for proposals in the given db
func (db *ProposalDB) CreateProposalTableIndexes() error {
	_, err := db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_proposals_%s_state ON t_proposals_%s (state);
	`, db.suffix, db.suffix))
	if err != nil {
		return err
	}

	_, err = db.db.Exec(fmt.Sprintf(`
	CREATE INDEX IF NOT EXISTS idx_proposals_%s_proposer ON t_proposals_%s (proposer);
	`, db.suffix, db.suffix))
	if err != nil {
		return err
	}

	return nil
}

// UpsertProposal inserts a proposal or refreshes its state, tally and eta
func (db *ProposalDB) UpsertProposal(p *governor.ProposalSummary) error {
	desc, err := json.Marshal(p.Descriptor)
	if err != nil {
		return err
	}

	t := time.Now().UTC()

	_, err = db.db.Exec(fmt.Sprintf(`
	INSERT INTO t_proposals_%s (proposal_id, proposer, state, descriptor, description, snapshot, deadline, eta, against_votes, for_votes, abstain_votes, updated_position, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (proposal_id) DO UPDATE SET
		state = excluded.state,
		eta = excluded.eta,
		against_votes = excluded.against_votes,
		for_votes = excluded.for_votes,
		abstain_votes = excluded.abstain_votes,
		updated_position = excluded.updated_position,
		updated_at = excluded.updated_at
	`, db.suffix), p.ID.Hex(), p.Proposer.Hex(), p.State, string(desc), p.Description, p.Snapshot, p.Deadline, p.Eta,
		p.Votes.Against.String(), p.Votes.For.String(), p.Votes.Abstain.String(), p.UpdatedPosition, t, t)

	return err
}

const proposalColumns = `proposal_id, proposer, state, descriptor, description, snapshot, deadline, eta, against_votes, for_votes, abstain_votes, updated_position, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProposal(row scanner) (*governor.ProposalSummary, error) {
	var (
		p                       governor.ProposalSummary
		id, proposer            string
		desc                    []byte
		against, votes, abstain string
	)

	err := row.Scan(&id, &proposer, &p.State, &desc, &p.Description, &p.Snapshot, &p.Deadline, &p.Eta,
		&against, &votes, &abstain, &p.UpdatedPosition, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.ID = common.HexToHash(id)
	p.Proposer = common.HexToAddress(proposer)

	err = json.Unmarshal(desc, &p.Descriptor)
	if err != nil {
		return nil, err
	}

	p.Votes = governor.ProposalVotes{
		Against: parseBig(against),
		For:     parseBig(votes),
		Abstain: parseBig(abstain),
	}

	return &p, nil
}

func parseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// GetProposal returns a single proposal by id
func (db *ProposalDB) GetProposal(id common.Hash) (*governor.ProposalSummary, error) {
	row := db.rdb.QueryRow(fmt.Sprintf(`
	SELECT %s
	FROM t_proposals_%s
	WHERE proposal_id = $1
	`, proposalColumns, db.suffix), id.Hex())

	p, err := scanProposal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrProposalNotFound, id.Hex())
		}
		return nil, err
	}

	return p, nil
}

// GetProposals returns proposals in creation order, optionally filtered by state
func (db *ProposalDB) GetProposals(state string, limit, offset int) ([]*governor.ProposalSummary, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM t_proposals_%s
	`, proposalColumns, db.suffix)
	args := []any{}

	if state != "" {
		query += " WHERE state = $1 ORDER BY snapshot ASC, proposal_id ASC LIMIT $2 OFFSET $3"
		args = append(args, state, limit, offset)
	} else {
		query += " ORDER BY snapshot ASC, proposal_id ASC LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}

	rows, err := db.rdb.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ps := []*governor.ProposalSummary{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}

		ps = append(ps, p)
	}

	return ps, rows.Err()
}
