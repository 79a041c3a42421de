package lspcore

import (
	"encoding/json"
	"testing"
)

func TestID_MarshalJSON(t *testing.T) {
	cases := []struct {
		name string
		id   ID
		want string
	}{
		{"null", ID{}, "null"},
		{"int", NewIntID(42), "42"},
		{"string", NewStringID("abc"), `"abc"`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := json.Marshal(c.id)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte("null"), &id); err != nil {
		t.Fatalf("Unmarshal null: %v", err)
	}
	if !id.IsNull() {
		t.Error("expected null id")
	}

	if err := json.Unmarshal([]byte("7"), &id); err != nil {
		t.Fatalf("Unmarshal int: %v", err)
	}
	if id.IsNull() || id.IsString() || id.Int() != 7 {
		t.Errorf("got %+v, want int id 7", id)
	}

	if err := json.Unmarshal([]byte(`"abc"`), &id); err != nil {
		t.Fatalf("Unmarshal string: %v", err)
	}
	if !id.IsString() || id.String() != "abc" {
		t.Errorf("got %+v, want string id abc", id)
	}

	if err := json.Unmarshal([]byte("true"), &id); err == nil {
		t.Error("expected rejection of a boolean id")
	}
}

func TestID_Equal(t *testing.T) {
	if !NewIntID(1).Equal(NewIntID(1)) {
		t.Error("equal int ids should compare equal")
	}
	if NewIntID(1).Equal(NewIntID(2)) {
		t.Error("distinct int ids should not compare equal")
	}
	if NewIntID(1).Equal(NewStringID("1")) {
		t.Error("int and string ids sharing a literal should not compare equal")
	}
	if !(ID{}).Equal(ID{}) {
		t.Error("two null ids should compare equal")
	}
}

func TestRequest_NotificationOmitsID(t *testing.T) {
	req := Request{JSONRPC: protocolVersion, Method: "exit"}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := raw["id"]; ok {
		t.Errorf("notification wire form should omit id entirely, got %s", data)
	}
}

func TestRequest_CallCarriesID(t *testing.T) {
	req := Request{JSONRPC: protocolVersion, ID: NewIntID(1), Method: "initialize"}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(raw["id"]) != "1" {
		t.Errorf("got id %s, want 1", raw["id"])
	}
}

func TestRequest_UnmarshalExplicitNullIsNotification(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":null,"method":"exit"}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !req.IsNotification() {
		t.Error("explicit id:null should be treated as a notification")
	}
}

func TestRequest_UnmarshalAbsentIDIsNotification(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"exit"}`), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !req.IsNotification() {
		t.Error("absent id should be treated as a notification")
	}
}

func TestDecodeMessage_Request(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Request == nil || msg.Response != nil {
		t.Fatalf("got %+v, want a classified request", msg)
	}
	if msg.Request.Method != "initialize" {
		t.Errorf("got method %q, want initialize", msg.Request.Method)
	}
	if msg.Request.ID.Int() != 1 {
		t.Errorf("got id %v, want 1", msg.Request.ID)
	}
}

func TestDecodeMessage_Notification(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","method":"exit"}`))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Request == nil || !msg.Request.IsNotification() {
		t.Fatalf("got %+v, want a classified notification", msg)
	}
}

func TestDecodeMessage_ResultResponse(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Response == nil || msg.Request != nil {
		t.Fatalf("got %+v, want a classified response", msg)
	}
	if msg.Response.Error != nil {
		t.Errorf("got error %+v, want none", msg.Response.Error)
	}
}

func TestDecodeMessage_ErrorResponse(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"not found"}}`))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Response == nil || msg.Response.Error == nil {
		t.Fatalf("got %+v, want a classified error response", msg)
	}
	if msg.Response.Error.Code != CodeMethodNotFound {
		t.Errorf("got code %d, want %d", msg.Response.Error.Code, CodeMethodNotFound)
	}
}

func TestDecodeMessage_RejectsBothResultAndError(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":-1,"message":"x"}}`))
	if err == nil {
		t.Fatal("expected rejection of a response carrying both result and error")
	}
}

func TestDecodeMessage_RejectsWrongVersion(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"jsonrpc":"1.0","id":1,"method":"x"}`))
	if err == nil {
		t.Fatal("expected rejection of a non-2.0 jsonrpc version")
	}
}

func TestDecodeMessage_RejectsNeitherRequestNorResponse(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":1}`))
	if err == nil {
		t.Fatal("expected rejection of a message with neither method, result, nor error")
	}
}

func TestNewResultResponse_NilResult(t *testing.T) {
	resp, err := NewResultResponse(NewIntID(1), nil)
	if err != nil {
		t.Fatalf("NewResultResponse: %v", err)
	}
	if string(resp.Result) != "null" {
		t.Errorf("got result %s, want null", resp.Result)
	}
}

func TestErrorObject_Error(t *testing.T) {
	err := NewError(CodeInvalidParams, "bad params")
	if err.Error() == "" {
		t.Fatal("expected a non-empty error string")
	}
}
