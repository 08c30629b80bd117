package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// readList decodes a collection holding a JSON array. A collection that was
// never written decodes to an empty list.
func readList[T any](ctx context.Context, cs CollectionStore, name string) ([]T, error) {
	raw, err := cs.ReadCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	return decodeList[T](name, raw)
}

// updateList runs fn over the decoded list inside one Update cycle.
func updateList[T any](ctx context.Context, cs CollectionStore, name string, fn func([]T) ([]T, error)) error {
	return cs.Update(ctx, name, func(current json.RawMessage) (json.RawMessage, error) {
		items, err := decodeList[T](name, current)
		if err != nil {
			return nil, err
		}
		next, err := fn(items)
		if err != nil {
			return nil, err
		}
		return encodeList(name, next)
	})
}

// writeList replaces a collection wholesale.
func writeList[T any](ctx context.Context, cs CollectionStore, name string, items []T) error {
	data, err := encodeList(name, items)
	if err != nil {
		return err
	}
	return cs.WriteCollection(ctx, name, data)
}

func decodeList[T any](name string, raw json.RawMessage) ([]T, error) {
	items := []T{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, storeFailure("decode collection "+name, err)
	}
	return items, nil
}

func encodeList[T any](name string, items []T) (json.RawMessage, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, storeFailure("encode collection "+name, fmt.Errorf("marshal: %w", err))
	}
	return data, nil
}
