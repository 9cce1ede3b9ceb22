package common

import (
	"encoding/json"
	"net/http"

	"github.com/omnikdao/governance/pkg/governor"
)

type ResponseType string

const (
	ResponseTypeObject ResponseType = "object"
	ResponseTypeArray  ResponseType = "array"
	ResponseTypeSecure ResponseType = "secure"
)

type AddressResponse struct {
	Address string `json:"address"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// Response is the default response object
// swagger:response defaultResponse
type Response struct {
	// The response type
	// in: body
	ResponseType ResponseType `json:"response_type"`
	Object       any          `json:"object,omitempty"`
	Array        any          `json:"array,omitempty"`
	Meta         any          `json:"meta,omitempty"`
}

func Body(w http.ResponseWriter, body any, meta any) error {

	b, err := json.Marshal(&Response{
		ResponseType: ResponseTypeObject,
		Object:       body,
		Meta:         meta,
	})
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.Write(b)

	return nil
}

func BodyMultiple(w http.ResponseWriter, body any, meta any) error {

	b, err := json.Marshal(&Response{
		ResponseType: ResponseTypeArray,
		Array:        body,
		Meta:         meta,
	})
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.Write(b)

	return nil
}

func JSONRPCBody(w http.ResponseWriter, id int, body any) error {

	b, err := json.Marshal(&governor.JsonRPCResponse{
		Version: "2.0",
		ID:      id,
		Result:  body,
	})
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.Write(b)

	return nil
}

// JSONRPCErrorBody answers a failed call, code is the http status the failure maps to
func JSONRPCErrorBody(w http.ResponseWriter, id int, code int, cause error) error {
	msg := http.StatusText(code)
	if cause != nil {
		msg = cause.Error()
	}

	b, err := json.Marshal(&governor.JsonRPCResponse{
		Version: "2.0",
		ID:      id,
		Error: &governor.JSONRPCError{
			Code:    code,
			Message: msg,
		},
	})
	if err != nil {
		return err
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)

	return nil
}
