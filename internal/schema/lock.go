package schema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/object-layer/document-store/internal/keycodec"
	"github.com/object-layer/document-store/internal/kvs"
)

// lockRetryInterval is how long acquireLock waits between attempts while
// another process holds the schema lock (spec §4.5's "sleep ~5s and retry").
const lockRetryInterval = 5 * time.Second

// errLockHeld signals acquireLock's backoff loop to retry; it never escapes
// to the caller.
var errLockHeld = errors.New("schema: lock held by another process")

func readRecord(ctx context.Context, tx kvs.Store, codec keycodec.Codec) (*Record, bool, error) {
	b, found, err := tx.Get(ctx, codec.SchemaKey(), kvs.GetOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("schema: reading record: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	r, err := unmarshalRecord(b)
	if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func writeRecord(ctx context.Context, tx kvs.Store, codec keycodec.Codec, r *Record) error {
	b, err := marshalRecord(r)
	if err != nil {
		return err
	}
	_, found, err := tx.Get(ctx, codec.SchemaKey(), kvs.GetOptions{})
	if err != nil {
		return fmt.Errorf("schema: checking record existence: %w", err)
	}
	return tx.Put(ctx, codec.SchemaKey(), b, kvs.PutOptions{CreateIfMissing: !found})
}

// acquireLock sets the record's isLocked flag, retrying every
// lockRetryInterval for as long as ctx allows whenever another process
// already holds it.
func acquireLock(ctx context.Context, kv kvs.Store, codec keycodec.Codec) error {
	attempt := func() error {
		var alreadyLocked bool
		err := kv.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
			r, found, err := readRecord(ctx, tx, codec)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("schema: record disappeared while acquiring lock")
			}
			if r.IsLocked {
				alreadyLocked = true
				return nil
			}
			r.IsLocked = true
			return writeRecord(ctx, tx, codec, r)
		})
		if err != nil {
			return backoff.Permanent(err)
		}
		if alreadyLocked {
			return errLockHeld
		}
		return nil
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(lockRetryInterval), ctx)
	if err := backoff.Retry(attempt, bo); err != nil {
		if errors.Is(err, errLockHeld) {
			return fmt.Errorf("schema: timed out waiting for the schema lock: %w", ctx.Err())
		}
		return err
	}
	return nil
}

func releaseLock(ctx context.Context, kv kvs.Store, codec keycodec.Codec) error {
	return kv.Transaction(ctx, func(ctx context.Context, tx kvs.Store) error {
		r, found, err := readRecord(ctx, tx, codec)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("schema: record disappeared while releasing lock")
		}
		r.IsLocked = false
		return writeRecord(ctx, tx, codec, r)
	})
}
