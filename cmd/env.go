package main

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/approval"
	"github.com/sells-group/leadflow/internal/discovery"
	"github.com/sells-group/leadflow/internal/secrets"
	"github.com/sells-group/leadflow/internal/store"
	"github.com/sells-group/leadflow/internal/verify"
	"github.com/sells-group/leadflow/pkg/neverbounce"
	"github.com/sells-group/leadflow/pkg/pdl"
)

// env wires the pipeline subsystems for a CLI invocation.
type env struct {
	Store     *store.PostgresStore
	Discovery *discovery.PostgresStore
	Orch      *discovery.Orchestrator
	Worker    *verify.Worker
	Engine    *approval.Engine
}

func initEnv(ctx context.Context) (*env, error) {
	pg, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}

	box, err := secretsBox()
	if err != nil {
		pg.Close()
		return nil, err
	}

	var pdlOpts []pdl.Option
	if cfg.PDL.BaseURL != "" {
		pdlOpts = append(pdlOpts, pdl.WithBaseURL(cfg.PDL.BaseURL))
	}
	if cfg.PDL.PageSize > 0 {
		pdlOpts = append(pdlOpts, pdl.WithPageSize(cfg.PDL.PageSize))
	}
	pdlOpts = append(pdlOpts,
		pdl.WithMaxRetries(cfg.PDL.MaxRetries),
		pdl.WithMinRequestInterval(time.Duration(cfg.PDL.MinRequestIntervalMs)*time.Millisecond),
	)

	discStore := discovery.NewPostgresStore(pg.Pool())
	orch := discovery.NewOrchestrator(discStore, discovery.DefaultRegistry(pdlOpts...), box, cfg.Discovery.DefaultLimit)

	worker := verify.NewWorker(verify.NewPostgresStore(pg.Pool()), box, func(apiKey string) (neverbounce.Client, error) {
		var opts []neverbounce.Option
		if cfg.Verifier.BaseURL != "" {
			opts = append(opts, neverbounce.WithBaseURL(cfg.Verifier.BaseURL))
		}
		opts = append(opts, neverbounce.WithMaxRetries(cfg.Verifier.MaxRetries))
		return neverbounce.NewClient(apiKey, opts...)
	})

	engine := approval.NewEngine(approval.NewPostgresStore(pg.Pool()), cfg.Approval.MaxBatchSize)

	return &env{
		Store:     pg,
		Discovery: discStore,
		Orch:      orch,
		Worker:    worker,
		Engine:    engine,
	}, nil
}

func secretsBox() (*secrets.Box, error) {
	if cfg.Secrets.Key == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(cfg.Secrets.Key)
	if err != nil {
		return nil, eris.Wrap(err, "decode secrets key")
	}
	return secrets.NewBox(key)
}

func (e *env) Close() {
	_ = e.Store.Close()
}
