package relay

import (
	"sort"
	"testing"
)

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()
	r.Register("a")

	p, ok := r.Get("a")
	if !ok {
		t.Fatal("expected participant to exist")
	}
	if p.Language != LanguageUnset {
		t.Errorf("expected default language %q, got %q", LanguageUnset, p.Language)
	}
	if p.VoiceID != "" {
		t.Errorf("expected empty voice id, got %q", p.VoiceID)
	}
}

func TestRegistryUpdates(t *testing.T) {
	r := NewRegistry()
	r.Register("a")

	t.Run("set language", func(t *testing.T) {
		if !r.SetLanguage("a", "es") {
			t.Fatal("expected update to succeed")
		}
		p, _ := r.Get("a")
		if p.Language != "es" {
			t.Errorf("expected es, got %q", p.Language)
		}
	})

	t.Run("voice persists until replaced", func(t *testing.T) {
		r.SetVoice("a", "voice-1")
		r.SetLanguage("a", "fr")
		p, _ := r.Get("a")
		if p.VoiceID != "voice-1" {
			t.Errorf("expected voice-1 to persist, got %q", p.VoiceID)
		}

		r.SetVoice("a", "voice-2")
		p, _ = r.Get("a")
		if p.VoiceID != "voice-2" {
			t.Errorf("expected voice-2, got %q", p.VoiceID)
		}
	})

	t.Run("get returns a copy", func(t *testing.T) {
		p, _ := r.Get("a")
		p.Language = "zz"
		fresh, _ := r.Get("a")
		if fresh.Language == "zz" {
			t.Error("mutating a returned participant leaked into the registry")
		}
	})
}

func TestRegistryUnknownIDsAreNoOps(t *testing.T) {
	r := NewRegistry()

	if r.SetLanguage("ghost", "en") {
		t.Error("expected false for unknown id")
	}
	if r.SetVoice("ghost", "v") {
		t.Error("expected false for unknown id")
	}
	if _, ok := r.Get("ghost"); ok {
		t.Error("expected not found")
	}
	r.Unregister("ghost") // must not panic
}

func TestRegistryForEachOther(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	r.Register("b")
	r.Register("c")

	var seen []string
	r.ForEachOther("a", func(p Participant) {
		seen = append(seen, p.ID)
	})
	sort.Strings(seen)

	if len(seen) != 2 || seen[0] != "b" || seen[1] != "c" {
		t.Errorf("expected [b c], got %v", seen)
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	r.Register("b")
	r.Unregister("a")

	if r.Count() != 1 {
		t.Errorf("expected 1 participant, got %d", r.Count())
	}
	if _, ok := r.Get("a"); ok {
		t.Error("expected a to be gone")
	}
}
