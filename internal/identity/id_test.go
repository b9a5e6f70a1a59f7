package identity

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestTagsAreStructuralNotPrefixes(t *testing.T) {
	// El mismo string puede vivir en los dos tags sin colisionar.
	local := Local("abc-123")
	remote := Remote("abc-123")

	if local == remote {
		t.Fatalf("local and remote tags over the same token must differ")
	}
	if !local.IsLocal() || local.IsRemote() {
		t.Fatalf("bad tag on %v", local)
	}
	if !remote.IsRemote() || remote.IsLocal() {
		t.Fatalf("bad tag on %v", remote)
	}
	if local.Token() != "abc-123" || local.Canonical() != "" {
		t.Fatalf("local accessors: token=%q canonical=%q", local.Token(), local.Canonical())
	}
	if remote.Canonical() != "abc-123" || remote.Token() != "" {
		t.Fatalf("remote accessors: token=%q canonical=%q", remote.Token(), remote.Canonical())
	}
}

func TestNewLocalIsFresh(t *testing.T) {
	a, b := NewLocal(), NewLocal()
	if a == b {
		t.Fatalf("two fresh local ids collided: %v", a)
	}
	if !a.IsLocal() || a.IsZero() {
		t.Fatalf("fresh id must be local and non-zero: %v", a)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for _, id := range []ID{NewLocal(), Remote("rec-9"), {}} {
		b, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal %v: %v", id, err)
		}
		var back ID
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if back != id {
			t.Fatalf("round trip changed id: %v -> %v", id, back)
		}
	}
}

func TestUnmarshalRejectsBothTags(t *testing.T) {
	var id ID
	err := json.Unmarshal([]byte(`{"local":"a","remote":"b"}`), &id)
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestSyncStatePending(t *testing.T) {
	if StateSynced.Pending() {
		t.Fatalf("synced must not be pending")
	}
	for _, st := range []SyncState{StatePendingLocal, StateReconciling, StateDirtyRemote} {
		if !st.Pending() {
			t.Fatalf("%v must be pending", st)
		}
	}
}
