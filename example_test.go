package bitguard_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/bitguard"
	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/store/redisstore"
)

// ExampleNew builds an engine on the Redis store with production-style settings.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	st := redisstore.New(rdb, redisstore.DefaultPrefix)

	cfg := bitguard.DefaultConfig()
	cfg.Token.Secret = []byte("replace-with-32-or-more-random-bytes!")

	engine, err := bitguard.New().
		WithConfig(cfg).
		WithPrincipalStore(st).
		WithGrantStore(st).
		WithModuleCatalog(st).
		WithRedis(rdb).
		Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// ExampleEngine_Authorize shows how a denial is inspected.
func ExampleEngine_Authorize() {
	var engine *bitguard.Engine
	_, err := engine.Authorize(context.Background(), "<access token>", "articles", "DELETE")

	var authErr *bitguard.AuthError
	if errors.As(err, &authErr) {
		_ = authErr.Code
		_ = authErr.Status
	}
}

func ExampleAuthResult_OwnsOrFull() {
	res := &bitguard.AuthResult{SubjectID: 7, Module: "articles", Grant: permission.Read | permission.Delete}
	fmt.Println(res.OwnsOrFull(7), res.OwnsOrFull(8))
	// Output: true false
}
