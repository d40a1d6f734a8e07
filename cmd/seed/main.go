package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enerflow/metering/modules/metering/seed"
	"github.com/enerflow/metering/pkg/composables"
	"github.com/enerflow/metering/pkg/configuration"
)

func main() {
	conf := configuration.Use()
	defer conf.Unload()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, conf.Database.ConnectionString())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// The whole seed runs in one transaction; a partial org tree is worse
	// than none.
	err = composables.InTx(composables.WithPool(ctx, pool), func(txCtx context.Context) error {
		if err := seed.SeedOrg(txCtx); err != nil {
			return err
		}
		if err := seed.SeedActors(txCtx); err != nil {
			return err
		}
		return seed.SeedTypeRules(txCtx)
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	conf.Logger().Info("seed completed")
}
