package gbpsync

import "testing"

func TestDecodeModulesDefaults(t *testing.T) {
	mod := DecodeModules(nil)
	if !mod.Location || !mod.Media || !mod.Reviews || !mod.Performance || !mod.Keywords {
		t.Fatalf("empty input should select everything: %+v", mod)
	}

	mod = DecodeModules([]byte(`{"reviews":true}`))
	if !mod.Reviews || mod.Location || mod.Performance {
		t.Fatalf("explicit selection not honored: %+v", mod)
	}

	mod = DecodeModules([]byte(`not json`))
	if !mod.Location {
		t.Fatalf("malformed input should fall back to defaults: %+v", mod)
	}
}

func TestModulesRoundTrip(t *testing.T) {
	in := SyncModules{Reviews: true, Keywords: true}
	out := DecodeModules(EncodeModules(in))
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestIsEmptyModules(t *testing.T) {
	if !isEmptyModules(SyncModules{}) {
		t.Fatal("zero value should be empty")
	}
	if isEmptyModules(SyncModules{Media: true}) {
		t.Fatal("selection should not be empty")
	}
}
