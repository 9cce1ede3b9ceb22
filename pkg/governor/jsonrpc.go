package governor

import "encoding/json"

const (
	RPCMethodSendTransaction = "gov_sendTransaction"
	RPCMethodCall            = "gov_call"
	RPCMethodMine            = "gov_mine"
)

type JsonRPCRequest struct {
	Version string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

func (r *JsonRPCRequest) IsValid() bool {
	return r.Version == "2.0" && r.ID > 0 && r.Method != ""
}

type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type JsonRPCResponse struct {
	Version string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}
