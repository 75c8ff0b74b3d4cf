package plugin

import "testing"

func TestIntersects(t *testing.T) {
	tests := []struct {
		a, b    string
		want    bool
		wantErr bool
	}{
		{a: "1.2.3", b: "^1.0.0", want: true},
		{a: "2.0.0", b: "^1.0.0", want: false},
		{a: "^1.2.0", b: "~1.4.1", want: true},
		{a: "^1.0.0", b: "^2.0.0", want: false},
		{a: ">=1.5.0 <2.0.0", b: "<1.6.0", want: true},
		{a: ">1.2.3", b: "<=1.2.3", want: false},
		{a: ">1.2.3", b: "<1.2.5", want: true},
		{a: "1.x", b: "1.4.2", want: true},
		{a: "*", b: "3.1.4", want: true},
		{a: "", b: "^4.0.0", want: true},
		{a: "^1.0.0 || ^3.0.0", b: "3.2.0", want: true},
		{a: "not-a-version", b: "^1.0.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got, err := Intersects(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Intersects(%q, %q) error = %v, wantErr %v", tt.a, tt.b, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Intersects(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if !tt.wantErr {
				back, _ := Intersects(tt.b, tt.a)
				if back != got {
					t.Errorf("Intersects is not symmetric for %q and %q", tt.a, tt.b)
				}
			}
		})
	}
}
