package store

import "context"

// NoopFollowStore caches nothing. Every read is a miss.
type NoopFollowStore struct{}

func (NoopFollowStore) GetFollowersCount(context.Context, uint) (int64, bool, error) {
	return 0, false, nil
}
func (NoopFollowStore) SetFollowersCount(context.Context, uint, int64) error { return nil }
func (NoopFollowStore) CondIncrFollowersCount(context.Context, uint) error   { return nil }
func (NoopFollowStore) CondDecrFollowersCount(context.Context, uint) error   { return nil }
func (NoopFollowStore) RecordAccess(context.Context, uint) error             { return nil }
func (NoopFollowStore) GetTopHotKeys(context.Context, int64) ([]uint, error) { return nil, nil }
func (NoopFollowStore) ResetHotKeyScores(context.Context) error              { return nil }
func (NoopFollowStore) Close() error                                         { return nil }

var _ FollowStore = NoopFollowStore{}
