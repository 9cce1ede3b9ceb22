package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	com "github.com/omnikdao/governance/internal/common"
	"github.com/omnikdao/governance/pkg/governor"
)

var (
	options sync.Map

	allMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPatch,
		http.MethodPut,
		http.MethodDelete,
	}

	acceptedHeaders = []string{
		"Origin",
		"Content-Type",
		"Content-Length",
		"X-Requested-With",
		"Accept-Encoding",
		"Authorization",
		governor.SignatureHeader,
		governor.AddressHeader,
	}
)

// HealthMiddleware is a middleware that responds to health checks
func HealthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// OptionsMiddleware ensures that we return the correct headers for CORS requests
func OptionsMiddleware(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		ctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)

		var path string
		if r.URL.RawPath != "" {
			path = r.URL.RawPath
		} else {
			path = r.URL.Path
		}

		var methodsStr string
		cached, ok := options.Load(path)
		if ok {
			methodsStr = cached.(string)
		} else {
			var methods []string
			for _, method := range allMethods {
				nctx := chi.NewRouteContext()
				if ctx.Routes.Match(nctx, method, path) {
					methods = append(methods, method)
				}
			}

			methods = append(methods, http.MethodOptions)
			methodsStr = strings.Join(methods, ", ")
			options.Store(path, methodsStr)
		}

		// allowed methods
		w.Header().Set("Allow", methodsStr)

		// allowed methods for CORS
		w.Header().Set("Access-Control-Allow-Methods", methodsStr)

		// allowed origins
		w.Header().Set("Access-Control-Allow-Origin", "*")

		// allowed headers
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(acceptedHeaders, ", "))

		// actually handle the request
		if r.Method != http.MethodOptions {
			h.ServeHTTP(w, r)
			return
		}

		// handle OPTIONS requests
		w.WriteHeader(http.StatusOK)
	}

	return http.HandlerFunc(fn)
}

func RequestSizeLimitMiddleware(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

type BodyEncoding string

const (
	BodyEncodingBase64 BodyEncoding = "base64"
)

type signedBody struct {
	Data     []byte       `json:"data"`
	Encoding BodyEncoding `json:"encoding"`
	Expiry   int64        `json:"expiry"`
	Version  int          `json:"version"`
}

// RPCHandlerFunc answers a JSON-RPC call with a result, or with an error and the status it maps to
type RPCHandlerFunc func(r *http.Request) (any, int)

// withSignature checks the signature of the call params against the request headers
// and passes the signed data on as the params
func withSignature(h RPCHandlerFunc) RPCHandlerFunc {
	return func(r *http.Request) (any, int) {
		// check signature
		signature := r.Header.Get(governor.SignatureHeader)
		if signature == "" {
			return nil, http.StatusUnauthorized
		}

		var req signedBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return err, http.StatusBadRequest
		}
		defer r.Body.Close()

		// get address
		addr := r.Header.Get(governor.AddressHeader)
		if !common.IsHexAddress(addr) {
			return nil, http.StatusUnauthorized
		}

		haccaddr := common.HexToAddress(addr)

		// check signature
		switch req.Version {
		case 2:
			if !verifyV2Signature(req, haccaddr, signature) {
				return nil, http.StatusUnauthorized
			}
		default:
			if !verifyV3Signature(req, haccaddr, signature) {
				return nil, http.StatusUnauthorized
			}
		}

		r.Body = io.NopCloser(strings.NewReader(string(req.Data)))
		r.ContentLength = int64(len(req.Data))

		ctx := context.WithValue(r.Context(), governor.ContextKeyAddress, com.ChecksumAddress(addr))
		ctx = context.WithValue(ctx, governor.ContextKeySignature, signature)

		return h(r.WithContext(ctx))
	}
}

// withJSONRPCRequest is a middleware that handles a JSON RPC request
func withJSONRPCRequest(hmap map[string]RPCHandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// parse request
		var req governor.JsonRPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		if !req.IsValid() {
			com.JSONRPCErrorBody(w, req.ID, http.StatusBadRequest, nil)
			return
		}

		// check if the method is available
		h, ok := hmap[req.Method]
		if !ok {
			com.JSONRPCErrorBody(w, req.ID, http.StatusNotFound, nil)
			return
		}

		r.Body = io.NopCloser(strings.NewReader(string(req.Params)))
		r.ContentLength = int64(len([]byte(req.Params)))

		res, status := h(r)
		if status != http.StatusOK {
			cause, _ := res.(error)
			com.JSONRPCErrorBody(w, req.ID, status, cause)
			return
		}

		err := com.JSONRPCBody(w, req.ID, res)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
}

// verifyV2Signature verifies the signature of the request against the entire request body
func verifyV2Signature(req signedBody, addr common.Address, signature string) bool {
	// verify that the signature is v2
	if req.Version != 2 {
		return false
	}

	// verify if the signature has expired
	if req.Expiry < time.Now().UTC().Unix() {
		return false
	}

	// hash the entire request data
	b, err := json.Marshal(req)
	if err != nil {
		return false
	}

	h := crypto.Keccak256Hash(b)

	// decode the signature
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != 65 {
		return false
	}

	// recover the public key from the signature
	pubkey, _, err := ecdsa.RecoverCompact(sig, h.Bytes())
	if err != nil {
		return false
	}

	// derive the address from the public key
	address := crypto.PubkeyToAddress(*pubkey.ToECDSA())

	// the address in the request must match the address derived from the signature
	if address != addr {
		return false
	}

	// create ModNScalars from the signature manually
	sr, ss := secp256k1.ModNScalar{}, secp256k1.ModNScalar{}

	// set the byteslices manually from the signature
	sr.SetByteSlice(sig[1:33])
	ss.SetByteSlice(sig[33:65])

	// create a new signature from the ModNScalars
	ns := ecdsa.NewSignature(&sr, &ss)

	// verify the signature
	return ns.Verify(h.Bytes(), pubkey)
}

// verifyV3Signature verifies a personal_sign signature over the hash of the entire request body
func verifyV3Signature(req signedBody, addr common.Address, signature string) bool {
	// verify that the signature is v3
	if req.Version != 3 {
		return false
	}

	// verify if the signature has expired
	if req.Expiry < time.Now().UTC().Unix() {
		return false
	}

	// decode the signature
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}

	if sig[crypto.RecoveryIDOffset] == 27 || sig[crypto.RecoveryIDOffset] == 28 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	// hash the entire request data
	b, err := json.Marshal(req)
	if err != nil {
		return false
	}

	h := accounts.TextHash(crypto.Keccak256(b))

	pkey, err := crypto.SigToPub(h, sig)
	if err != nil {
		return false
	}

	// the address in the request must match the address derived from the signature
	return crypto.PubkeyToAddress(*pkey) == addr
}
