package ratings

import (
	"encoding/json"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		want    Value
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "0.00", want: 0},
		{in: "5", want: 500},
		{in: "5.00", want: 500},
		{in: "4.5", want: 450},
		{in: "4.75", want: 475},
		{in: ".5", want: 50},
		{in: "3.", want: 300},
		{in: "5.01", want: 501},
		{in: "-0.1", want: -10},
		{in: "4.755", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "1e2", wantErr: true},
		{in: "1000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseValue(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseValue(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestValueString(t *testing.T) {
	tests := map[Value]string{
		0:   "0.00",
		50:  "0.50",
		475: "4.75",
		500: "5.00",
		-10: "-0.10",
	}
	for v, want := range tests {
		if got := v.String(); got != want {
			t.Errorf("Value(%d).String() = %q, want %q", int(v), got, want)
		}
	}
}

func TestValueJSON(t *testing.T) {
	var body struct {
		Rating Value `json:"rating"`
	}

	for _, in := range []string{`{"rating":4.75}`, `{"rating":"4.75"}`} {
		if err := json.Unmarshal([]byte(in), &body); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", in, err)
		}
		if body.Rating != 475 {
			t.Errorf("Unmarshal(%s) = %d, want 475", in, body.Rating)
		}
	}

	for _, in := range []string{`{"rating":null}`, `{"rating":true}`, `{"rating":"4.123"}`} {
		if err := json.Unmarshal([]byte(in), &body); err == nil {
			t.Errorf("Unmarshal(%s) error = nil, want error", in)
		}
	}

	out, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"rating":"4.75"}` {
		t.Errorf("Marshal = %s", out)
	}
}
