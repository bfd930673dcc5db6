package gateway

import (
	"testing"
)

func TestDecodeRecords_EnvelopeShapes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"name":"A"},{"name":"B"}]`, 2},
		{"msg array", `{"msg":[{"name":"A"}]}`, 1},
		{"msg object", `{"msg":{"name":"A"}}`, 1},
		{"data array", `{"data":[{"name":"A"},{"name":"B"},{"name":"C"}]}`, 3},
		{"guests array", `{"guests":[{"name":"A"}]}`, 1},
		{"bare object", `{"name":"A"}`, 1},
		{"empty msg array", `{"msg":[]}`, 0},
		{"empty guests array", `{"guests":[]}`, 0},
		{"empty data array", `{"data":[]}`, 0},
		{"null msg", `{"msg":null}`, 0},
		{"malformed", `{bad json`, 0},
		{"scalar", `42`, 0},
		{"empty array", `[]`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeRecords([]byte(tc.body))
			if got == nil {
				t.Fatal("decodeRecords must never return nil")
			}
			if len(got) != tc.want {
				t.Fatalf("want %d records, got %d", tc.want, len(got))
			}
		})
	}
}

func TestDecodeValidation_MsgString(t *testing.T) {
	t.Parallel()
	res := decodeValidation(409, []byte(`{"error":true,"msg":"already checked in","info":{"fullname":"Jane Doe"}}`))
	if !res.Error || res.Status != 409 {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if res.Message != "already checked in" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if res.Info == nil || res.Info["fullname"] != "Jane Doe" {
		t.Fatalf("info must be extracted despite the error flag: %+v", res.Info)
	}
}

func TestDecodeValidation_MsgObject(t *testing.T) {
	t.Parallel()
	res := decodeValidation(200, []byte(`{"error":false,"msg":{"message":"ok","info":{"checkedin":0}}}`))
	if res.Error {
		t.Fatalf("unexpected error flag: %+v", res)
	}
	if res.Message != "ok" {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if res.Info == nil {
		t.Fatal("nested info not extracted")
	}
}

func TestDecodeValidation_MsgObjectIsDetail(t *testing.T) {
	t.Parallel()
	// No message key inside msg: the object is the guest detail itself.
	res := decodeValidation(200, []byte(`{"msg":{"fullname":"Bo","checkedin":1}}`))
	if res.Info == nil || res.Info["fullname"] != "Bo" {
		t.Fatalf("msg object should become info: %+v", res.Info)
	}
}

func TestDecodeValidation_ErrorFlagFromStatus(t *testing.T) {
	t.Parallel()
	res := decodeValidation(500, []byte(`not even json`))
	if !res.Error || res.Status != 500 {
		t.Fatalf("5xx with opaque body must still be an error result: %+v", res)
	}
}
