package delim

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Pair
		wantErr bool
	}{
		{"default", Default, false},
		{"custom", Pair{Start: "<%", End: "%>"}, false},
		{"empty start", Pair{Start: "", End: "}}"}, true},
		{"empty end", Pair{Start: "{{", End: ""}, true},
		{"equal", Pair{Start: "|", End: "|"}, true},
		{"start contains end", Pair{Start: "}}}", End: "}}"}, true},
		{"end contains start", Pair{Start: "{", End: "{}"}, true},
	}
	for _, test := range tests {
		err := test.p.Validate()
		if test.wantErr && err == nil {
			t.Errorf("%s: expected an error, got none", test.name)
		}
		if !test.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
		}
	}
}

func TestMaxLen(t *testing.T) {
	if got := Default.MaxLen(); got != 3 {
		t.Errorf("Default.MaxLen() = %d, want 3 (TripleStart/TripleEnd are longer than {{/}})", got)
	}
	p := Pair{Start: "<<<<", End: ">>"}
	if got := p.MaxLen(); got != 4 {
		t.Errorf("MaxLen() = %d, want 4", got)
	}
}
