// Package jsonrpc implements a minimal JSON-RPC 2.0 server: method
// registration by reflection, single and batched requests, and a stable
// numeric error-code table.
package jsonrpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
)

// Reserved JSON-RPC 2.0 error codes plus the Starknet-RPC-specific range
// a Starknet-RPC node exposes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeBlockNotFound           = 21
	CodeClassHashNotFound       = 24
	CodeClassAlreadyDeclared    = 28
	CodeContractError           = 40
	CodeInvalidTransactionNonce = 55
	CodeInsufficientMaxFee      = 53
	CodeInsufficientBalance     = 54
)

var ErrInvalidID = errors.New("id must be a string, a number or absent")

// Error is the JSON-RPC error envelope.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// NewError builds an Error with the caller-supplied message, or, when that
// is empty, the canonical message for a reserved JSON-RPC code ("Internal
// error" for any other code).
func NewError(code int, message string, data any) *Error {
	if message == "" {
		message = defaultMessage(code)
	}
	return &Error{Code: code, Message: message, Data: data}
}

func defaultMessage(code int) string {
	switch code {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid Request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	default:
		return "Internal error"
	}
}

type request struct {
	Version string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      any    `json:"id,omitempty"`
}

type response struct {
	Version string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

func (r *request) validate() error {
	if r.Version != "2.0" {
		return errors.New("unsupported jsonrpc version")
	}
	if r.Method == "" {
		return errors.New("method is required")
	}
	if r.Params != nil {
		kind := reflect.TypeOf(r.Params).Kind()
		if kind != reflect.Slice && kind != reflect.Map {
			return errors.New("params must be an array or object")
		}
	}
	if r.ID != nil {
		idType := reflect.TypeOf(r.ID)
		isNumber := idType.Name() == "Number"
		if isNumber && strings.Contains(r.ID.(json.Number).String(), ".") {
			return ErrInvalidID
		}
		if idType.Kind() != reflect.String && !isNumber {
			return ErrInvalidID
		}
	}
	return nil
}

// Param describes one positional/named handler parameter, used to bind
// object-form ("by-name") requests.
type Param struct {
	Name     string
	Optional bool
}

// Method is one registered RPC method. Handler must be a func returning
// exactly (any, *Error) and taking one argument per entry of Params, each
// bound from the request's params; the server passes no context.Context.
type Method struct {
	Name   string
	Params []Param
	Handler any
}

// Server dispatches requests to registered Methods.
type Server struct {
	methods map[string]Method
}

// NewServer returns an empty server; call RegisterMethod to populate it.
func NewServer() *Server {
	return &Server{methods: make(map[string]Method)}
}

// RegisterMethod validates and adds a Method to the dispatch table.
func (s *Server) RegisterMethod(m Method) error {
	handlerType := reflect.TypeOf(m.Handler)
	if handlerType == nil || handlerType.Kind() != reflect.Func {
		return errors.New("handler must be a function")
	}
	if handlerType.NumIn() != len(m.Params) {
		return errors.New("handler arity must match declared params")
	}
	if handlerType.NumOut() != 2 {
		return errors.New("handler must return (result, *jsonrpc.Error)")
	}
	if handlerType.Out(1) != reflect.TypeOf(&Error{}) {
		return errors.New("handler's second return value must be *jsonrpc.Error")
	}
	s.methods[m.Name] = m
	return nil
}

// Handle processes one request or one batch and returns the serialized
// response (nil for a pure notification with no reply expected).
func (s *Server) Handle(data []byte) ([]byte, error) {
	return s.HandleReader(bytes.NewReader(data))
}

// HandleReader is Handle over an io.Reader. The HTTP and WebSocket
// transports in package rpc read the whole body first and call Handle.
func (s *Server) HandleReader(r io.Reader) ([]byte, error) {
	buffered := bufio.NewReader(r)
	if isBatch(buffered) {
		return s.handleBatch(buffered)
	}

	dec := json.NewDecoder(buffered)
	dec.UseNumber()

	req := new(request)
	res := &response{Version: "2.0"}
	if err := dec.Decode(req); err != nil {
		res.Error = NewError(CodeParseError, "", err.Error())
		return json.Marshal(res)
	}

	resObj, err := s.dispatch(req)
	if err != nil {
		if !errors.Is(err, ErrInvalidID) {
			res.ID = req.ID
		}
		res.Error = NewError(CodeInvalidRequest, "", err.Error())
		return json.Marshal(res)
	}
	if resObj == nil {
		return nil, nil
	}
	return json.Marshal(resObj)
}

func (s *Server) handleBatch(r *bufio.Reader) ([]byte, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rawReqs []json.RawMessage
	if err := dec.Decode(&rawReqs); err != nil {
		res := &response{Version: "2.0", Error: NewError(CodeParseError, "", err.Error())}
		return json.Marshal(res)
	}
	if len(rawReqs) == 0 {
		res := &response{Version: "2.0", Error: NewError(CodeInvalidRequest, "empty batch", nil)}
		return json.Marshal(res)
	}

	var results []json.RawMessage
	for _, raw := range rawReqs {
		reqDec := json.NewDecoder(bytes.NewReader(raw))
		reqDec.UseNumber()

		req := new(request)
		var resObj *response
		if err := reqDec.Decode(req); err != nil {
			resObj = &response{Version: "2.0", Error: NewError(CodeInvalidRequest, "", err.Error())}
		} else {
			var dispatchErr error
			resObj, dispatchErr = s.dispatch(req)
			if dispatchErr != nil {
				resObj = &response{Version: "2.0", Error: NewError(CodeInvalidRequest, "", dispatchErr.Error())}
				if !errors.Is(dispatchErr, ErrInvalidID) {
					resObj.ID = req.ID
				}
			}
		}
		if resObj == nil {
			continue // notification: no entry in the batch reply
		}
		encoded, err := json.Marshal(resObj)
		if err != nil {
			return nil, err
		}
		results = append(results, encoded)
	}

	if len(results) == 0 {
		return nil, nil
	}
	return json.Marshal(results)
}

func isBatch(r *bufio.Reader) bool {
	for {
		b, err := r.Peek(1)
		if err != nil {
			return false
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := r.Discard(1); err != nil {
				return false
			}
			continue
		default:
			return b[0] == '['
		}
	}
}

func (s *Server) dispatch(req *request) (*response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	res := &response{Version: "2.0", ID: req.ID}

	method, ok := s.methods[req.Method]
	if !ok {
		res.Error = NewError(CodeMethodNotFound, "", nil)
		return res, nil
	}

	args, err := bindArguments(req.Params, method)
	if err != nil {
		res.Error = NewError(CodeInvalidParams, "", err.Error())
		return res, nil
	}

	out := reflect.ValueOf(method.Handler).Call(args)
	if req.ID == nil {
		return nil, nil // notification: caller never sees a reply
	}

	if errVal := out[len(out)-1].Interface(); !isNilInterface(errVal) {
		res.Error = errVal.(*Error)
		return res, nil
	}
	res.Result = out[0].Interface()
	return res, nil
}

func isNilInterface(v any) bool {
	return v == nil || reflect.ValueOf(v).IsNil()
}

func bindArguments(params any, method Method) ([]reflect.Value, error) {
	handlerType := reflect.TypeOf(method.Handler)
	if params == nil {
		if handlerType.NumIn() != 0 {
			return nil, errors.New("missing params")
		}
		return nil, nil
	}

	bind := func(raw any, t reflect.Type) (reflect.Value, error) {
		dst := reflect.New(t)
		encoded, err := json.Marshal(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if err := json.Unmarshal(encoded, dst.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return dst.Elem(), nil
	}

	var args []reflect.Value
	switch v := params.(type) {
	case []any:
		if len(v) != handlerType.NumIn() {
			return nil, errors.New("wrong number of positional params")
		}
		for i, raw := range v {
			val, err := bind(raw, handlerType.In(i))
			if err != nil {
				return nil, err
			}
			args = append(args, val)
		}
	case map[string]any:
		for i, p := range method.Params {
			raw, found := v[p.Name]
			if !found {
				if !p.Optional {
					return nil, errors.New("missing required param: " + p.Name)
				}
				args = append(args, reflect.New(handlerType.In(i)).Elem())
				continue
			}
			val, err := bind(raw, handlerType.In(i))
			if err != nil {
				return nil, err
			}
			args = append(args, val)
		}
	default:
		return nil, errors.New("params must decode to an array or object")
	}
	return args, nil
}
