package chain

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	com "github.com/omnikdao/governance/internal/common"
)

type Service struct {
	c *Chain
}

// NewService
func NewService(c *Chain) *Service {
	return &Service{
		c,
	}
}

type info struct {
	ChainID  string `json:"chain_id"`
	Height   uint64 `json:"height"`
	Position uint64 `json:"position"`
}

// Info returns the chain id and the current height
func (s *Service) Info(w http.ResponseWriter, r *http.Request) {
	var i info
	s.c.View(func() error {
		i = info{
			ChainID:  s.c.chainID.String(),
			Height:   s.c.height,
			Position: s.c.height + 1,
		}
		return nil
	})

	err := com.Body(w, i, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type balance struct {
	Address common.Address `json:"address"`
	Balance string         `json:"balance"`
	Ether   string         `json:"ether"`
}

// Balance returns the native balance of an address
func (s *Service) Balance(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "addr")
	if !common.IsHexAddress(addr) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	haddr := common.HexToAddress(addr)

	var b balance
	s.c.View(func() error {
		v := s.c.Balance(haddr)
		b = balance{
			Address: haddr,
			Balance: v.String(),
			Ether:   com.FormatEther(v),
		}
		return nil
	})

	err := com.Body(w, b, nil)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
