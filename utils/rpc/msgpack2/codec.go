// This is a copy from gorilla's jsonrpc2 using msgpack
//
// Copyright 2009 The Go Authors. All rights reserved.
// Copyright 2012 The Gorilla Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpack2

import (
	"net/http"

	rpc "github.com/alpacahq/rpc/rpc2"
	msgpack "github.com/vmihailenco/msgpack"
)

// ----------------------------------------------------------------------------
// Request and Response
// ----------------------------------------------------------------------------

// serverRequest represents a JSON-RPC request received by the server.
type serverRequest struct {
	// JSON-RPC protocol.
	Version string `msgpack:"jsonrpc"`

	// A String containing the name of the method to be invoked.
	Method string `msgpack:"method"`

	// A Structured value to pass as arguments to the method.
	Params interface{} `msgpack:"params"`

	// The request id. MUST be a string, number or null.
	// Our implementation will not do type checking for id.
	// It will be copied as it is.
	ID interface{} `msgpack:"id"`
}

// serverResponse represents a JSON-RPC response returned by the server.
type serverResponse struct {
	Version string `msgpack:"jsonrpc"`

	// The Object that was returned by the invoked method. This must be null
	// in case there was an error invoking the method.
	Result interface{} `msgpack:"result"`

	// An Error object if there was an error invoking the method. It must be
	// null if there was no error.
	Error *Error `msgpack:"error"`

	// This must be the same id as the request it is responding to.
	ID interface{} `msgpack:"id"`
}

// ----------------------------------------------------------------------------
// Codec
// ----------------------------------------------------------------------------

// NewCodec returns a new msgpack-over-JSON-RPC2 server codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Codec creates a CodecRequest to process each request.
type Codec struct{}

// NewRequest returns a CodecRequest.
func (c *Codec) NewRequest(r *http.Request) rpc.CodecRequest {
	return newCodecRequest(r)
}

// ----------------------------------------------------------------------------
// CodecRequest
// ----------------------------------------------------------------------------

func newCodecRequest(r *http.Request) rpc.CodecRequest {
	// Decode the request body and check if RPC method is valid.
	req := new(serverRequest)
	err := msgpack.NewDecoder(r.Body).Decode(req)
	if err != nil {
		err = &Error{
			Code:    ErrParse,
			Message: err.Error(),
			Data:    req,
		}
	}
	r.Body.Close()
	return &CodecRequest{request: req, err: err}
}

// CodecRequest decodes and encodes a single request.
type CodecRequest struct {
	request *serverRequest
	err     error
}

// Method returns the RPC method for the current request.
//
// The method uses a dotted notation as in "Service.Method".
func (c *CodecRequest) Method() (string, error) {
	if c.err == nil {
		return c.request.Method, nil
	}
	return "", c.err
}

// ReadRequest fills the request object for the RPC method.
//
// ReadRequest parses request parameters in two supported forms in
// accordance with http://www.jsonrpc.org/specification#parameter_structures
//
// by-position: params MUST be an Array, containing the
// values in the Server expected order.
//
// by-name: params MUST be an Object, with member names
// that match the Server expected parameter names. The
// absence of expected names MAY result in an error being
// generated. The names MUST match exactly, including
// case, to the method's expected parameters.
func (c *CodecRequest) ReadRequest(args interface{}) error {
	if c.err == nil && c.request.Params != nil {
		// msgpack has no RawMessage equivalent in this library
		// version, so re-encode the already decoded params and
		// unmarshal into the target type.
		encoded, err := msgpack.Marshal(c.request.Params)
		if err != nil {
			c.err = &Error{
				Code:    ErrInternal,
				Message: err.Error(),
				Data:    c.request.Params,
			}
			return c.err
		}
		if err := msgpack.Unmarshal(encoded, args); err != nil {
			// Params is not a structured object, attempt an
			// unmarshal with params as array value and RPC params
			// as struct.
			params := [1]interface{}{args}
			if err = msgpack.Unmarshal(encoded, &params); err != nil {
				c.err = &Error{
					Code:    ErrBadParams,
					Message: err.Error(),
					Data:    c.request.Params,
				}
			}
		}
	}
	return c.err
}

// WriteResponse encodes the response and writes it to the ResponseWriter.
func (c *CodecRequest) WriteResponse(w http.ResponseWriter, reply interface{}) {
	res := &serverResponse{
		Version: "2.0",
		Result:  reply,
		ID:      c.request.ID,
	}
	c.writeServerResponse(w, res)
}

func (c *CodecRequest) WriteError(w http.ResponseWriter, status int, err error) {
	jsonErr, ok := err.(*Error)
	if !ok {
		jsonErr = &Error{
			Code:    ErrServer,
			Message: err.Error(),
		}
	}
	res := &serverResponse{
		Version: "2.0",
		Error:   jsonErr,
		ID:      c.request.ID,
	}
	c.writeServerResponse(w, res)
}

func (c *CodecRequest) writeServerResponse(w http.ResponseWriter, res *serverResponse) {
	w.Header().Set("Content-Type", "application/x-msgpack; charset=utf-8")
	encoder := msgpack.NewEncoder(w)
	if err := encoder.Encode(res); err != nil {
		rpc.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
