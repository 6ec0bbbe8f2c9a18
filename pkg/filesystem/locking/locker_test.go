package locking

import (
	"os"
	"testing"
)

// TestLockerFailOnDirectory tests that a locker creation fails for a directory.
func TestLockerFailOnDirectory(t *testing.T) {
	if _, err := NewLocker(t.TempDir(), 0600); err == nil {
		t.Fatal("creating a locker on a directory path succeeded")
	}
}

// TestLockerCycle tests the lifecycle of a Locker.
func TestLockerCycle(t *testing.T) {
	// Create a temporary file and defer its removal.
	lockfile, err := os.CreateTemp("", "draft_filesystem_lock")
	if err != nil {
		t.Fatal("unable to create temporary lock file:", err)
	} else if err = lockfile.Close(); err != nil {
		t.Error("unable to close temporary lock file:", err)
	}
	defer os.Remove(lockfile.Name())

	// Create a locker.
	locker, err := NewLocker(lockfile.Name(), 0600)
	if err != nil {
		t.Fatal("unable to create locker:", err)
	}

	// Verify that the lock starts in an unheld state.
	if locker.Held() {
		t.Error("newly created locker incorrectly reports lock as held")
	}

	// Attempt to acquire the lock.
	if err := locker.Lock(true); err != nil {
		t.Fatal("unable to acquire lock:", err)
	}

	// Verify that the lock state is correct.
	if !locker.Held() {
		t.Error("lock incorrectly reported as unlocked")
	}

	// Attempt to release the lock.
	if err := locker.Unlock(); err != nil {
		t.Fatal("unable to release lock:", err)
	}
	if locker.Held() {
		t.Error("lock incorrectly reported as held after release")
	}

	// Attempt to close the locker.
	if err := locker.Close(); err != nil {
		t.Fatal("unable to close locker:", err)
	}
}

// TestLockDuplicateFail tests that a second, independent Locker on the same
// underlying file fails to acquire the lock (non-blocking) while the first
// holds it, and succeeds once the first releases it.
func TestLockDuplicateFail(t *testing.T) {
	// Create a temporary file and defer its removal.
	lockfile, err := os.CreateTemp("", "draft_filesystem_lock")
	if err != nil {
		t.Fatal("unable to create temporary lock file:", err)
	} else if err = lockfile.Close(); err != nil {
		t.Error("unable to close temporary lock file:", err)
	}
	defer os.Remove(lockfile.Name())

	// Create the first locker and acquire the lock.
	first, err := NewLocker(lockfile.Name(), 0600)
	if err != nil {
		t.Fatal("unable to create first locker:", err)
	}
	defer first.Close()
	if err := first.Lock(true); err != nil {
		t.Fatal("unable to acquire first lock:", err)
	}

	// Create a second, independent locker on the same path and attempt a
	// non-blocking acquisition, which should fail while the first lock is
	// held.
	second, err := NewLocker(lockfile.Name(), 0600)
	if err != nil {
		t.Fatal("unable to create second locker:", err)
	}
	defer second.Close()
	if err := second.Lock(false); err == nil {
		t.Error("second non-blocking lock acquisition succeeded unexpectedly")
	}

	// Release the first lock and verify that the second can now acquire it.
	if err := first.Unlock(); err != nil {
		t.Fatal("unable to release first lock:", err)
	}
	if err := second.Lock(false); err != nil {
		t.Error("second lock acquisition failed after first release:", err)
	}
}
