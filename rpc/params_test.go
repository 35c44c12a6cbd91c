package rpc

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
)

type echoParams struct {
	Text string `json:"text"`
	A    int    `json:"a"`
}

type sumParams struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c" default:"3"`
}

func registerTestMethods(t *testing.T) *Registry {
	t.Helper()
	reg := New()
	reg.MustRegister("echo", func(ctx context.Context, p echoParams) (string, error) {
		return "echo: " + p.Text, nil
	})
	reg.MustRegister("sum", func(ctx context.Context, p sumParams) (int, error) {
		return p.A + p.B + p.C, nil
	})
	reg.MustRegister("ping", func(ctx context.Context) (string, error) {
		return "pong", nil
	})
	return reg
}

func TestDescribeParams(t *testing.T) {
	type specimen struct {
		Text   string `json:"text"`
		Count  int    `json:"count" default:"3"`
		Plain  bool
		Skip   string `json:"-"`
		hidden int
	}
	reg := New()
	reg.MustRegister("m", func(ctx context.Context, p specimen) error { return nil })
	proc, _ := reg.Lookup("m")

	specs := proc.Params()
	wantNames := []string{"text", "count", "Plain"}
	if len(specs) != len(wantNames) {
		t.Fatalf("got %d specs, want %d", len(specs), len(wantNames))
	}
	for i, name := range wantNames {
		if specs[i].Name != name {
			t.Errorf("spec %d: got name %q, want %q", i, specs[i].Name, name)
		}
	}
	if specs[0].HasDefault {
		t.Error("text should not have a default")
	}
	if !specs[1].HasDefault || string(specs[1].Default) != "3" {
		t.Errorf("count: got default %q, want 3", specs[1].Default)
	}
}

func TestDefaultLiteral(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"3", "3"},
		{"true", "true"},
		{`"quoted"`, `"quoted"`},
		{"bare text", `"bare text"`},
		{"[1,2]", "[1,2]"},
	}
	for _, tt := range tests {
		if got := string(defaultLiteral(tt.tag)); got != tt.want {
			t.Errorf("defaultLiteral(%q) = %s, want %s", tt.tag, got, tt.want)
		}
	}
}

func TestBindDiagnostics(t *testing.T) {
	reg := registerTestMethods(t)
	echo, _ := reg.Lookup("echo")
	sum, _ := reg.Lookup("sum")
	ping, _ := reg.Lookup("ping")

	tests := []struct {
		name     string
		proc     *Procedure
		params   string
		wantInfo string
	}{
		{"MissingNamed", echo, `{}`, "Missing 2 required argument(s):  text, a"},
		{"MissingOneNamed", echo, `{"a": 1}`, "Missing 1 required argument(s):  text"},
		{"MissingEmptyList", echo, `[]`, "Missing 2 required argument(s):  text, a"},
		{"Unexpected", sum, `{"a":1,"b":2,"z":3}`, "Got an unexpected argument: z"},
		{"UnexpectedFirstWins", sum, `{"z":1,"q":2}`, "Got an unexpected argument: z"},
		{"TooManyPositional", echo, `[1,2,3]`, "Method takes 2 positional arguments but 3 were given"},
		{"TooFewPositional", echo, `["x"]`, "Method takes 2 positional arguments but 1 was given"},
		{"NoParamsPositional", ping, `[1]`, "Method takes 0 positional arguments but 1 was given"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, bindErr := tt.proc.Bind(json.RawMessage(tt.params))
			if bindErr == nil {
				t.Fatal("expected bind error")
			}
			if bindErr.Code != CodeInvalidParams {
				t.Errorf("got code %d, want %d", bindErr.Code, CodeInvalidParams)
			}
			data, ok := bindErr.Data.(map[string]any)
			if !ok {
				t.Fatalf("got data %T, want map", bindErr.Data)
			}
			if data["info"] != tt.wantInfo {
				t.Errorf("got info %q, want %q", data["info"], tt.wantInfo)
			}
		})
	}
}

func TestBindNamedEqualsPositional(t *testing.T) {
	reg := registerTestMethods(t)
	sum, _ := reg.Lookup("sum")

	named, bindErr := sum.Bind(json.RawMessage(`{"a":1,"b":2,"c":9}`))
	if bindErr != nil {
		t.Fatalf("named bind failed: %v", bindErr)
	}
	positional, bindErr := sum.Bind(json.RawMessage(`[1,2,9]`))
	if bindErr != nil {
		t.Fatalf("positional bind failed: %v", bindErr)
	}
	if !reflect.DeepEqual(named.Interface(), positional.Interface()) {
		t.Errorf("named %+v != positional %+v", named.Interface(), positional.Interface())
	}
}

func TestBindDefaults(t *testing.T) {
	reg := registerTestMethods(t)
	sum, _ := reg.Lookup("sum")

	tests := []struct {
		name   string
		params string
		want   sumParams
	}{
		{"NamedDefault", `{"a":1,"b":2}`, sumParams{1, 2, 3}},
		{"NamedOverride", `{"a":1,"b":2,"c":7}`, sumParams{1, 2, 7}},
		{"PositionalDefault", `[1,2]`, sumParams{1, 2, 3}},
		{"PositionalFull", `[1,2,7]`, sumParams{1, 2, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pv, bindErr := sum.Bind(json.RawMessage(tt.params))
			if bindErr != nil {
				t.Fatalf("bind failed: %v", bindErr)
			}
			got := pv.Elem().Interface().(sumParams)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBindPositionalDefaultBeforeRequired(t *testing.T) {
	type pageParams struct {
		Offset int `json:"offset" default:"1"`
		Limit  int `json:"limit"`
	}
	reg := New()
	reg.MustRegister("page", func(ctx context.Context, p pageParams) (int, error) {
		return p.Offset + p.Limit, nil
	})
	proc, _ := reg.Lookup("page")

	// A list covering only the defaulted field leaves the required one
	// unbound and must fail, even though the count satisfies the gate.
	_, bindErr := proc.Bind(json.RawMessage(`[5]`))
	if bindErr == nil {
		t.Fatal("expected bind error")
	}
	data, ok := bindErr.Data.(map[string]any)
	if !ok {
		t.Fatalf("got data %T, want map", bindErr.Data)
	}
	if want := "Missing 1 required argument(s):  limit"; data["info"] != want {
		t.Errorf("got info %q, want %q", data["info"], want)
	}

	pv, bindErr := proc.Bind(json.RawMessage(`[5, 10]`))
	if bindErr != nil {
		t.Fatalf("full bind failed: %v", bindErr)
	}
	got := pv.Elem().Interface().(pageParams)
	if (got != pageParams{Offset: 5, Limit: 10}) {
		t.Errorf("got %+v", got)
	}
}

func TestBindAbsentParams(t *testing.T) {
	reg := registerTestMethods(t)
	ping, _ := reg.Lookup("ping")

	for _, params := range []string{"", "null", "{}", "[]"} {
		if _, bindErr := ping.Bind(json.RawMessage(params)); bindErr != nil {
			t.Errorf("params %q: unexpected error %v", params, bindErr)
		}
	}
}

func TestBindInvalidValue(t *testing.T) {
	reg := registerTestMethods(t)
	sum, _ := reg.Lookup("sum")

	_, bindErr := sum.Bind(json.RawMessage(`{"a":"not a number","b":2}`))
	if bindErr == nil {
		t.Fatal("expected bind error")
	}
	if bindErr.Code != CodeInvalidParams {
		t.Errorf("got code %d, want %d", bindErr.Code, CodeInvalidParams)
	}
}

func TestCall(t *testing.T) {
	reg := registerTestMethods(t)
	echo, _ := reg.Lookup("echo")

	result, err := echo.Call(context.Background(), json.RawMessage(`{"text":"123","a":1}`))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result != "echo: 123" {
		t.Errorf("got %v, want %q", result, "echo: 123")
	}
}

func TestCallPanicRecovery(t *testing.T) {
	reg := New()
	reg.MustRegister("boom", func(ctx context.Context) error {
		panic("something went wrong")
	})
	proc, _ := reg.Lookup("boom")

	_, err := proc.Call(context.Background(), nil)
	re, ok := err.(*Error)
	if !ok {
		t.Fatalf("got %T, want *Error", err)
	}
	if re.Code != CodeInternalError {
		t.Errorf("got code %d, want %d", re.Code, CodeInternalError)
	}
}

func TestCallPointerParams(t *testing.T) {
	reg := New()
	reg.MustRegister("echo", func(ctx context.Context, p *echoParams) (string, error) {
		return p.Text, nil
	})
	proc, _ := reg.Lookup("echo")

	result, err := proc.Call(context.Background(), json.RawMessage(`{"text":"hi","a":0}`))
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if result != "hi" {
		t.Errorf("got %v, want %q", result, "hi")
	}
}

func TestDecodeObjectPreservesOrder(t *testing.T) {
	members, err := DecodeObject([]byte(`{"z":1,"a":{"nested":true},"m":[1,2]}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	wantKeys := []string{"z", "a", "m"}
	if len(members) != len(wantKeys) {
		t.Fatalf("got %d members, want %d", len(members), len(wantKeys))
	}
	for i, key := range wantKeys {
		if members[i].Key != key {
			t.Errorf("member %d: got key %q, want %q", i, members[i].Key, key)
		}
	}
	if string(members[1].Value) != `{"nested":true}` {
		t.Errorf("got value %s", members[1].Value)
	}
}

func TestDecodeObjectRejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[]`, `"str"`, `5`, `{`} {
		if _, err := DecodeObject([]byte(input)); err == nil {
			t.Errorf("input %q: expected error", input)
		}
	}
}
