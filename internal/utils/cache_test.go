package utils

import (
	"testing"
	"time"
)

func TestCacheRoundTrip(t *testing.T) {
	c := GetCache()
	c.Set("test:roundtrip", "payload", time.Minute)
	if got := c.Get("test:roundtrip"); got != "payload" {
		t.Errorf("Get = %v, want payload", got)
	}
	if c.Get("test:missing") != nil {
		t.Error("missing key should return nil")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := GetCache()
	c.Set("test:expiry", 42, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	if got := c.Get("test:expiry"); got != nil {
		t.Errorf("expired key returned %v, want nil", got)
	}
}

func TestCacheDeleteAndPurge(t *testing.T) {
	c := GetCache()
	c.Set("test:delete", 1, time.Minute)
	c.Delete("test:delete")
	if c.Get("test:delete") != nil {
		t.Error("deleted key should return nil")
	}

	c.Set("test:purge:a", 1, time.Minute)
	c.Set("test:purge:b", 2, time.Minute)
	c.Purge()
	if c.Get("test:purge:a") != nil || c.Get("test:purge:b") != nil {
		t.Error("purged keys should return nil")
	}
}
