// Package rpchttp binds the JSON-RPC engine to HTTP: a server handler
// exposing an Executor on one route (plus an optional liveness route),
// and a client-side transport for jsonrpc.Client.
//
//	reg := rpc.New()
//	// ... register methods ...
//	cfg := rpchttp.LoadConfig()
//	ex := jsonrpc.NewExecutor(reg, jsonrpc.WithDiscover(cfg.DiscoverEnabled))
//	http.ListenAndServe(":8080", rpchttp.Mux(ex, cfg))
//
// On the client side:
//
//	clt := jsonrpc.NewClient(rpchttp.Transport("http://localhost:8080/"))
//
// Cross-cutting concerns (auth, logging) plug in as Processors; a
// processor error becomes a plain HTTP error response, never a JSON-RPC
// error envelope.
package rpchttp
