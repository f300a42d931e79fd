package indexhook

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// BoltIndex is a concrete, optional subscriber for index-hook events. It
// records membership as a one-byte marker value keyed by "<database>/<collection>" ->
// "<key>", giving a caller that wants a real secondary index a working
// backend without pulling indexing logic into the persistent collections
// themselves. protobase's core never depends on BoltIndex; it is wired in
// by an embedding process that calls Listen.
type BoltIndex struct {
	db  *bolt.DB
	sub Subscriber
	bus *Bus
}

// OpenBoltIndex opens (creating if necessary) a bbolt file at path to back a
// secondary index.
func OpenBoltIndex(path string) (*BoltIndex, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open index store: %w", err)
	}
	return &BoltIndex{db: db}, nil
}

// Listen subscribes to bus and applies every Added/Removed event to the
// corresponding bucket until Stop is called.
func (bi *BoltIndex) Listen(bus *Bus) {
	bi.bus = bus
	bi.sub = bus.Subscribe()
	go func() {
		for evt := range bi.sub {
			_ = bi.apply(evt)
		}
	}()
}

// Stop unsubscribes from the bus and closes the bbolt handle.
func (bi *BoltIndex) Stop() error {
	if bi.bus != nil && bi.sub != nil {
		bi.bus.Unsubscribe(bi.sub)
	}
	return bi.db.Close()
}

func (bi *BoltIndex) apply(evt Event) error {
	bucketName := []byte(evt.Database + "/" + evt.Collection)
	return bi.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return fmt.Errorf("create index bucket: %w", err)
		}
		switch evt.Transition {
		case Added:
			return b.Put([]byte(evt.Key), []byte{1})
		case Removed:
			return b.Delete([]byte(evt.Key))
		default:
			return fmt.Errorf("unknown index transition %q", evt.Transition)
		}
	})
}

// Has reports whether key is currently recorded for database/collection.
func (bi *BoltIndex) Has(database, collection, key string) (bool, error) {
	bucketName := []byte(database + "/" + collection)
	var found bool
	err := bi.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		found = b.Get([]byte(key)) != nil
		return nil
	})
	return found, err
}
