package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/rpc"
	"github.com/mnehpets/rpcserve/rpchttp"
)

type SumParams struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c" default:"0"`
}

type DivParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

var errDivByZero = rpc.Variant(6000, "Division by zero")

func main() {
	reg := rpc.New(
		rpc.WithTitle("Calculator"),
		rpc.WithVersion("1.0"),
	)

	reg.MustRegister("sum", func(ctx context.Context, p SumParams) (int, error) {
		return p.A + p.B + p.C, nil
	}, rpc.WithDoc("Adds numbers.\n\n@param a: first addend\n@param b: second addend\n@param c: optional extra addend\n@return: the sum"))

	reg.MustRegister("div", func(ctx context.Context, p DivParams) (float64, error) {
		if p.B == 0 {
			return 0, errDivByZero.Err(nil)
		}
		return p.A / p.B, nil
	}, rpc.WithErrors(errDivByZero))

	reg.MustRegister("fail", func(ctx context.Context) error {
		return errors.New("intentional failure")
	})

	cfg := rpchttp.LoadConfig()
	ex := jsonrpc.NewExecutor(reg, jsonrpc.WithDiscover(cfg.DiscoverEnabled))

	log.Println("Starting server on :8080")
	log.Fatal(http.ListenAndServe(":8080", rpchttp.Mux(ex, cfg)))
}
