package cart

import (
	"testing"
	"time"
)

func TestNotifierReplacesAndExpires(t *testing.T) {
	n := NewNotifier(20 * time.Millisecond)

	n.Publish("u1", "primeira", NoticeInfo)
	n.Publish("u1", "segunda", NoticeSuccess)

	notice, ok := n.Current("u1")
	if !ok {
		t.Fatal("expected a live notification")
	}
	if notice.Message != "segunda" || notice.Kind != NoticeSuccess {
		t.Fatalf("notification = %+v, new publish must replace the old one", notice)
	}

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := n.Current("u1"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("notification did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifierIsPerUser(t *testing.T) {
	n := NewNotifier(time.Minute)

	n.Publish("u1", "para u1", NoticeInfo)
	if _, ok := n.Current("u2"); ok {
		t.Fatal("u2 should have no notification")
	}
	if notice, ok := n.Current("u1"); !ok || notice.Message != "para u1" {
		t.Fatalf("u1 notification = %+v ok=%t", notice, ok)
	}
}

func TestNotifierReplaceRestartsTimer(t *testing.T) {
	n := NewNotifier(40 * time.Millisecond)

	n.Publish("u1", "primeira", NoticeInfo)
	time.Sleep(25 * time.Millisecond)
	n.Publish("u1", "segunda", NoticeInfo)
	time.Sleep(25 * time.Millisecond)

	if notice, ok := n.Current("u1"); !ok || notice.Message != "segunda" {
		t.Fatalf("replacement must restart the dismiss timer, got %+v ok=%t", notice, ok)
	}
}
