// Package redis connects to Redis with retry and exposes Storage, a prefixed
// key-value facade used for short-lived verification state.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	store := redis.NewStorage(client, cfg.KeyPrefix)
//	_ = store.Set(ctx, "sms:"+id, digest, 5*time.Minute)
//	res, err := store.CompareAndDelete(ctx, "sms:"+id, digest)
//
// CompareAndDelete is implemented as a Lua script so a stored value is consumed
// at most once even under concurrent callers.
package redis
