package permission

import (
	"errors"
	"net/http"
	"testing"
)

func TestHasAddRemove(t *testing.T) {
	m := Add(None, Read)
	m = Add(m, Create)
	if !Has(m, Read) || !Has(m, Create) {
		t.Fatalf("expected read and create in %d", m)
	}
	if Has(m, Delete) {
		t.Fatalf("delete should not be set in %d", m)
	}
	if !Has(m, Read|Create) {
		t.Fatal("expected combined check to pass")
	}
	if Has(m, Read|Delete) {
		t.Fatal("combined check must require every bit")
	}
	if !Has(None, None) {
		t.Fatal("Has(None, None) must be true")
	}

	m = Remove(m, Read)
	if Has(m, Read) {
		t.Fatalf("read should be cleared, got %d", m)
	}
	if Remove(None, Delete) != None {
		t.Fatal("removing from None must stay None")
	}
}

func TestAddRemoveIdempotent(t *testing.T) {
	for m := None; m <= Max; m++ {
		for _, o := range ordered {
			if Add(Add(m, o.bit), o.bit) != Add(m, o.bit) {
				t.Fatalf("Add not idempotent for %d|%d", m, o.bit)
			}
			if Remove(Remove(m, o.bit), o.bit) != Remove(m, o.bit) {
				t.Fatalf("Remove not idempotent for %d|%d", m, o.bit)
			}
			if !Has(Add(m, o.bit), o.bit) {
				t.Fatalf("Has after Add failed for %d|%d", m, o.bit)
			}
			if Has(Remove(m, o.bit), o.bit) {
				t.Fatalf("Has after Remove passed for %d|%d", m, o.bit)
			}
		}
	}
}

func TestName(t *testing.T) {
	cases := map[Bits]string{
		None:                  "No Access",
		Read:                  "Read Only",
		Read | Create | Update: "Read/Write",
		FullAccess:            "Full Access",
		Read | Delete:         "Read, Delete",
		Create:                "Create",
		Create | Update:       "Create, Update",
		Read | Create:         "Read, Create",
		Update | Delete:       "Update, Delete",
		Read | Update | Delete: "Read, Update, Delete",
	}
	for mask, want := range cases {
		if got := Name(mask); got != want {
			t.Fatalf("Name(%d) = %q, want %q", mask, got, want)
		}
	}
	if FullAccess != 15 || Read|Create|Update != 7 {
		t.Fatal("unexpected constant values")
	}
}

func TestNameEveryMaskNonEmpty(t *testing.T) {
	seen := map[string]Bits{}
	for m := None; m <= Max; m++ {
		name := Name(m)
		if name == "" {
			t.Fatalf("empty name for %d", m)
		}
		if prev, dup := seen[name]; dup {
			t.Fatalf("name %q shared by %d and %d", name, prev, m)
		}
		seen[name] = m
	}
}

func TestForMethod(t *testing.T) {
	cases := map[string]Bits{
		http.MethodGet:     Read,
		http.MethodHead:    Read,
		http.MethodOptions: Read,
		http.MethodPost:    Create,
		http.MethodPut:     Update,
		http.MethodPatch:   Update,
		http.MethodDelete:  Delete,
		"TRACE":            None,
		"get":              Read,
		"Delete":           Delete,
		"patch":            Update,
		"trace":            None,
		"":                 None,
	}
	for method, want := range cases {
		if got := ForMethod(method); got != want {
			t.Fatalf("ForMethod(%q) = %d, want %d", method, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	cases := map[string]Bits{
		"0":             None,
		"15":            FullAccess,
		"9":             Read | Delete,
		"Full Access":   FullAccess,
		"read only":     Read,
		"Read/Write":    ReadWrite,
		"No Access":     None,
		"read|create":   Read | Create,
		"Read, Delete":  Read | Delete,
		" UPDATE ":      Update,
		"delete,delete": Delete,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %d, want %d", in, got, want)
		}
	}

	for _, bad := range []string{"", "16", "-1", "write", "read|", "read,,admin"} {
		if _, err := Parse(bad); !errors.Is(err, ErrInvalidBits) {
			t.Fatalf("Parse(%q) expected ErrInvalidBits, got %v", bad, err)
		}
	}
}

func TestParseNameRoundTrip(t *testing.T) {
	for m := None; m <= Max; m++ {
		got, err := Parse(Name(m))
		if err != nil {
			t.Fatalf("Parse(Name(%d)) error: %v", m, err)
		}
		if got != m {
			t.Fatalf("Parse(Name(%d)) = %d", m, got)
		}
	}
}

func TestFromInt(t *testing.T) {
	if _, err := FromInt(16); !errors.Is(err, ErrInvalidBits) {
		t.Fatalf("expected range error, got %v", err)
	}
	b, err := FromInt(6)
	if err != nil || b != Create|Update {
		t.Fatalf("FromInt(6) = %d, %v", b, err)
	}
}

func TestSet(t *testing.T) {
	s := Set{"articles": Read | Create, "billing": None}
	if b, ok := s.Get("billing"); !ok || b != None {
		t.Fatalf("expected present zero entry, got %d %v", b, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatal("missing module must report absent")
	}

	c := s.Clone()
	c["articles"] = FullAccess
	if s["articles"] != Read|Create {
		t.Fatal("Clone must not alias the original")
	}

	mods := s.Modules()
	if len(mods) != 2 || mods[0] != "articles" || mods[1] != "billing" {
		t.Fatalf("unexpected module order %v", mods)
	}

	back := SetFromRaw(map[string]int{"articles": 3, "bad": 99})
	if back["articles"] != Read|Create {
		t.Fatalf("unexpected raw conversion %v", back)
	}
	if _, ok := back["bad"]; ok {
		t.Fatal("invalid raw entries must be dropped")
	}
}
