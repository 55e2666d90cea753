package jsonrpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func echo(s string) (any, *Error) { return s, nil }

func boom(s string) (any, *Error) { return nil, NewError(CodeContractError, "boom", nil) }

func newEchoServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer()
	if err := s.RegisterMethod(Method{Name: "echo", Params: []Param{{Name: "s"}}, Handler: echo}); err != nil {
		t.Fatalf("register echo: %v", err)
	}
	if err := s.RegisterMethod(Method{Name: "boom", Params: []Param{{Name: "s"}}, Handler: boom}); err != nil {
		t.Fatalf("register boom: %v", err)
	}
	return s
}

func TestHandleSingleRequestByPosition(t *testing.T) {
	s := newEchoServer(t)
	out, err := s.Handle([]byte(`{"jsonrpc":"2.0","method":"echo","params":["hi"],"id":1}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	var res response
	if err := json.Unmarshal(out, &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if res.Result != "hi" {
		t.Fatalf("expected echoed result, got %v", res.Result)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	s := newEchoServer(t)
	out, err := s.Handle([]byte(`{"jsonrpc":"2.0","method":"nope","id":1}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	var res response
	_ = json.Unmarshal(out, &res)
	if res.Error == nil || res.Error.Code != CodeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", res.Error)
	}
}

func TestHandlerErrorIsSurfaced(t *testing.T) {
	s := newEchoServer(t)
	out, err := s.Handle([]byte(`{"jsonrpc":"2.0","method":"boom","params":["x"],"id":1}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	var res response
	_ = json.Unmarshal(out, &res)
	if res.Error == nil || res.Error.Code != CodeContractError {
		t.Fatalf("expected contract-error code, got %+v", res.Error)
	}
}

func TestHandleNotificationProducesNoReply(t *testing.T) {
	s := newEchoServer(t)
	out, err := s.Handle([]byte(`{"jsonrpc":"2.0","method":"echo","params":["hi"]}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if out != nil {
		t.Fatalf("expected no reply for a notification, got %s", out)
	}
}

func TestHandleBatch(t *testing.T) {
	s := newEchoServer(t)
	out, err := s.Handle([]byte(`[{"jsonrpc":"2.0","method":"echo","params":["a"],"id":1},{"jsonrpc":"2.0","method":"echo","params":["b"],"id":2}]`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(string(out), `"a"`) || !strings.Contains(string(out), `"b"`) {
		t.Fatalf("expected both batch results present, got %s", out)
	}
}

func TestInvalidJSONReturnsParseError(t *testing.T) {
	s := newEchoServer(t)
	out, err := s.Handle([]byte(`{not json`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	var res response
	_ = json.Unmarshal(out, &res)
	if res.Error == nil || res.Error.Code != CodeParseError {
		t.Fatalf("expected parse error, got %+v", res.Error)
	}
}
