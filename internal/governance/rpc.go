package governance

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	com "github.com/omnikdao/governance/internal/common"
	"github.com/omnikdao/governance/internal/deploy"
	"github.com/omnikdao/governance/pkg/governor"
	"github.com/omnikdao/governance/pkg/queue"
)

var ErrTimeout = errors.New("timed out waiting for the call to be sequenced")

type RPCService struct {
	d   *deploy.Deployment
	txq *queue.Service
	idx *Indexer

	timeout time.Duration
}

// NewRPCService
func NewRPCService(d *deploy.Deployment, txq *queue.Service, idx *Indexer, timeout time.Duration) *RPCService {
	return &RPCService{
		d:       d,
		txq:     txq,
		idx:     idx,
		timeout: timeout,
	}
}

type txParams struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *hexutil.Big   `json:"value,omitempty"`
	Data  hexutil.Bytes  `json:"data"`
}

// SendTransaction sequences a call on behalf of the verified caller and waits for its result
func (s *RPCService) SendTransaction(r *http.Request) (any, int) {
	addr, ok := governor.GetAddressFromContext(r.Context())
	if !ok {
		return nil, http.StatusUnauthorized
	}

	var params txParams
	err := json.NewDecoder(r.Body).Decode(&params)
	if err != nil {
		return err, http.StatusBadRequest
	}

	from := common.HexToAddress(addr)
	if params.From != (common.Address{}) && params.From != from {
		return nil, http.StatusUnauthorized
	}

	value := new(big.Int)
	if params.Value != nil {
		value = params.Value.ToInt()
	}

	message, txm := governor.NewTxMessage(from, params.To, value, params.Data)

	s.txq.Enqueue(*message)

	select {
	case res := <-txm.Reply:
		if res.Err != nil {
			return res.Err, com.StatusCode(res.Err)
		}
		return res, http.StatusOK
	case <-r.Context().Done():
		return r.Context().Err(), http.StatusRequestTimeout
	case <-time.After(s.timeout):
		return ErrTimeout, http.StatusGatewayTimeout
	}
}

// Call evaluates a read against committed state
func (s *RPCService) Call(r *http.Request) (any, int) {
	var params txParams
	err := json.NewDecoder(r.Body).Decode(&params)
	if err != nil {
		return err, http.StatusBadRequest
	}

	ret, err := s.d.Chain.Call(params.From, params.To, params.Data)
	if err != nil {
		return err, com.StatusCode(err)
	}

	return hexutil.Bytes(ret), http.StatusOK
}

type mineParams struct {
	Positions uint64 `json:"positions"`
}

type mined struct {
	Height uint64 `json:"height"`
}

// Mine advances the height without a call, on behalf of a verified caller
func (s *RPCService) Mine(r *http.Request) (any, int) {
	_, ok := governor.GetAddressFromContext(r.Context())
	if !ok {
		return nil, http.StatusUnauthorized
	}

	params := mineParams{Positions: 1}
	if r.ContentLength != 0 {
		err := json.NewDecoder(r.Body).Decode(&params)
		if err != nil {
			return err, http.StatusBadRequest
		}
	}

	if params.Positions == 0 {
		return governor.ErrInvalidArguments, http.StatusBadRequest
	}

	h, err := s.d.Chain.Mine(params.Positions)
	if err != nil {
		return err, com.StatusCode(err)
	}

	if s.idx != nil {
		s.d.Chain.View(func() error {
			s.idx.Refresh(h)
			return nil
		})
	}

	return mined{Height: h}, http.StatusOK
}
