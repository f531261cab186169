package variable

import "testing"

func TestIntroduceImplicationVariables(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		extensional bool
		want        string
		ok          bool
	}{
		{
			name:        "extensional shared subject",
			in:          "<<ball --> [left]> =/> <ball --> [seen]>>",
			extensional: true,
			want:        "<<$1 --> [left]> =/> <$1 --> [seen]>>",
			ok:          true,
		},
		{
			name:        "intensional shared predicate",
			in:          "<<a --> [red]> =/> <b --> [red]>>",
			extensional: false,
			want:        "<<a --> [$1]> =/> <b --> [$1]>>",
			ok:          true,
		},
		{
			name:        "operation never generalized",
			in:          "<(<x --> ^go> &/ ^go) =/> <y --> ^go>>",
			extensional: false,
			ok:          false,
		},
		{
			name:        "nothing shared",
			in:          "<a =/> b>",
			extensional: true,
			ok:          false,
		},
		{
			name:        "not an implication",
			in:          "<a --> b>",
			extensional: true,
			ok:          false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IntroduceImplicationVariables(term(tt.in), tt.extensional)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (got %s)", ok, tt.ok, got)
			}
			if ok && got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if ok && !got.HasVariable(true, true, false) {
				t.Error("generalized term must contain a variable")
			}
		})
	}
}
