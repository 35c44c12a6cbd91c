package main

import (
	"context"
	"log"

	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/rpchttp"
)

// Run example/basic first, then this client.
func main() {
	ctx := context.Background()
	clt := jsonrpc.NewClient(rpchttp.Transport("http://localhost:8080/"))

	result, err := clt.Exec(ctx, "sum", map[string]any{"a": 1, "b": 2})
	if err != nil {
		log.Fatalf("sum failed: %v", err)
	}
	log.Printf("sum: %s", result)

	results, err := clt.ExecBatch(ctx,
		clt.NewCall("sum", []any{10, 20, 30}),
		clt.NewCall("div", map[string]any{"a": 1, "b": 0}),
		clt.NewCall("fail", nil, jsonrpc.OneWay()),
	)
	if err != nil {
		log.Fatalf("batch failed: %v", err)
	}
	for i, r := range results {
		if r.Err != nil {
			log.Printf("batch[%d]: error %v", i, r.Err)
			continue
		}
		log.Printf("batch[%d]: %s", i, r.Value)
	}

	// The same server also answers the legacy envelopes.
	legacy := jsonrpc.NewClient(
		rpchttp.Transport("http://localhost:8080/"),
		jsonrpc.WithFormat(jsonrpc.FormatLegacyV2),
	)
	result, err = legacy.Exec(ctx, "sum", map[string]any{"a": 5, "b": 6})
	if err != nil {
		log.Fatalf("legacy sum failed: %v", err)
	}
	log.Printf("legacy sum: %s", result)
}
