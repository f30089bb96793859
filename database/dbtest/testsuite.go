package dbtest

import (
	"bytes"
	"testing"

	"github.com/bnb-chain/zkbnb-tumbler/database"
)

// TestDatabaseSuite runs a suite of tests against a KVStore implementation.
func TestDatabaseSuite(t *testing.T, New func() database.KVStore) {
	t.Run("KeyValueOperations", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("foo")

		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if got {
			t.Errorf("wrong value: %t", got)
		}

		value := []byte("hello world")
		if err := db.Set(key, value); err != nil {
			t.Error(err)
		}

		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if !got {
			t.Errorf("wrong value: %t", got)
		}

		if got, err := db.Get(key); err != nil {
			t.Error(err)
		} else if !bytes.Equal(got, value) {
			t.Errorf("wrong value: %q", got)
		}

		if err := db.Delete(key); err != nil {
			t.Error(err)
		}

		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if got {
			t.Errorf("wrong value: %t", got)
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		db := New()
		defer db.Close()

		if _, err := db.Get([]byte("absent")); !database.IsNotFound(err) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
		if err := db.Delete([]byte("absent")); err != nil {
			t.Errorf("deleting a missing key: %v", err)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("account:alice")
		for _, v := range []string{"balance=1", "balance=22"} {
			if err := db.Set(key, []byte(v)); err != nil {
				t.Fatal(err)
			}
		}
		if got, err := db.Get(key); err != nil {
			t.Error(err)
		} else if !bytes.Equal(got, []byte("balance=22")) {
			t.Errorf("wrong value: %q", got)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		db := New()
		defer db.Close()

		b := db.NewBatch()
		for _, k := range []string{"1", "2", "3", "4"} {
			if err := b.Set([]byte(k), nil); err != nil {
				t.Fatal(err)
			}
		}

		if has, err := db.Has([]byte("1")); err != nil {
			t.Fatal(err)
		} else if has {
			t.Error("db contains element before batch write")
		}

		if err := b.Write(); err != nil {
			t.Fatal(err)
		}

		b.Reset()

		// Mix writes and deletes in batch
		if b.ValueSize() != 0 {
			t.Errorf("reset batch has size %d", b.ValueSize())
		}
		b.Set([]byte("5"), nil)
		b.Delete([]byte("1"))
		b.Set([]byte("6"), nil)
		b.Delete([]byte("3"))
		b.Set([]byte("3"), []byte("test3"))

		if err := b.Write(); err != nil {
			t.Fatal(err)
		}
		expected := map[string][]byte{
			"2": nil,
			"3": []byte("test3"),
			"4": nil,
			"5": nil,
			"6": nil,
		}
		for _, k := range []string{"1", "2", "3", "4", "5", "6"} {
			want, exists := expected[k]
			if has, err := db.Has([]byte(k)); err != nil {
				t.Error(err)
			} else if has != exists {
				t.Errorf("key %s: has %t, want %t", k, has, exists)
			}
			if !exists {
				continue
			}
			if got, err := db.Get([]byte(k)); err != nil {
				t.Error(err)
			} else if !bytes.Equal(got, want) {
				t.Errorf("key %s: wrong value %q", k, got)
			}
		}
	})

	t.Run("BinaryKeys", func(t *testing.T) {
		db := New()
		defer db.Close()

		// leaf log keys end in a big-endian index and may hold any byte
		keys := [][]byte{
			append([]byte("leaflog:p:leaf:"), 0, 0, 0, 0, 0, 0, 0, 0),
			append([]byte("leaflog:p:leaf:"), 0, 0, 0, 0, 0, 0, 0, 1),
			append([]byte("leaflog:p:leaf:"), 0, 0, 0, 0, 0, 0, 1, 0),
			{0xff, ':', 0x00},
		}
		b := db.NewBatch()
		for i, k := range keys {
			if err := b.Set(k, []byte{byte(i)}); err != nil {
				t.Fatal(err)
			}
		}
		if b.ValueSize() == 0 {
			t.Error("batch reports no queued data")
		}
		if err := b.Write(); err != nil {
			t.Fatal(err)
		}
		for i, k := range keys {
			if got, err := db.Get(k); err != nil {
				t.Error(err)
			} else if !bytes.Equal(got, []byte{byte(i)}) {
				t.Errorf("key %x: wrong value %x", k, got)
			}
		}
	})
}
