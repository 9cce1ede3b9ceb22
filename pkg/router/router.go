package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/omnikdao/governance/internal/auth"
	"github.com/omnikdao/governance/internal/chain"
	"github.com/omnikdao/governance/internal/deploy"
	"github.com/omnikdao/governance/internal/governance"
	"github.com/omnikdao/governance/internal/services/db"
	"github.com/omnikdao/governance/internal/version"
	"github.com/omnikdao/governance/pkg/governor"
)

type Router struct {
	apiKey string
	d      *deploy.Deployment
	db     *db.DB
	rpc    *governance.RPCService
}

func NewServer(apiKey string, d *deploy.Deployment, db *db.DB, rpc *governance.RPCService) *Router {
	return &Router{
		apiKey,
		d,
		db,
		rpc,
	}
}

// Handler builds the http handler with every route configured
func (r *Router) Handler() http.Handler {
	cr := chi.NewRouter()

	a := auth.New(r.apiKey)

	// configure middleware
	cr.Use(middleware.RequestID)
	cr.Use(middleware.Logger)

	// configure custom middleware
	cr.Use(OptionsMiddleware)
	cr.Use(HealthMiddleware)
	cr.Use(RequestSizeLimitMiddleware(10 << 20)) // Limit request bodies to 10MB
	cr.Use(a.AuthMiddleware)
	cr.Use(middleware.Compress(9))

	// instantiate handlers
	v := version.NewService()
	ch := chain.NewService(r.d.Chain)
	gov := governance.NewService(r.d, r.db)

	// configure routes
	cr.Get("/version", v.Current)

	cr.Route("/chain", func(cr chi.Router) {
		cr.Get("/", ch.Info)
		cr.Get("/balances/{addr}", ch.Balance)
	})

	cr.Route("/gov", func(cr chi.Router) {
		cr.Get("/proposals", gov.GetProposals)
		cr.Get("/proposals/{id}", gov.GetProposal)
		cr.Get("/proposals/{id}/votes", gov.GetProposalVotes)
		cr.Get("/quorum/{position}", gov.GetQuorum)
	})

	cr.Get("/timelock/operations/{id}", gov.GetOperation)
	cr.Get("/treasury", gov.GetTreasury)
	cr.Get("/accounts/{addr}/votes", gov.GetAccountVotes)

	cr.Post("/rpc", withJSONRPCRequest(map[string]RPCHandlerFunc{
		governor.RPCMethodSendTransaction: withSignature(r.rpc.SendTransaction),
		governor.RPCMethodCall:            r.rpc.Call,
		governor.RPCMethodMine:            withSignature(r.rpc.Mine),
	}))

	return cr
}

// implement the Server interface
func (r *Router) Start(port int) error {
	// start the server
	return http.ListenAndServe(fmt.Sprintf(":%v", port), r.Handler())
}
