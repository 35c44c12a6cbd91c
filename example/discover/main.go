package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/mnehpets/rpcserve/openrpc"
	"github.com/mnehpets/rpcserve/rpc"
)

type Address struct {
	City string `json:"city"`
	Zip  string `json:"zip"`
}

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Address   Address   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type GetUserParams struct {
	ID int `json:"id"`
}

var errUserNotFound = rpc.ErrorVariant{
	Code:      404,
	Message:   "User not found",
	DataShape: GetUserParams{},
}

// Prints the generated OpenRPC document for a small API.
func main() {
	reg := rpc.New(
		rpc.WithTitle("User API"),
		rpc.WithDescription("User management."),
		rpc.WithVersion("1.0"),
	)

	reg.MustRegister("users.get", func(ctx context.Context, p GetUserParams) (User, error) {
		return User{ID: p.ID, Name: "bob"}, nil
	},
		rpc.WithErrors(errUserNotFound),
		rpc.WithDoc("Fetch a user.\n\n@param id: user identifier\n@return: the user record"),
	)
	reg.MustRegister("users.list", func(ctx context.Context) ([]User, error) {
		return nil, nil
	}, rpc.Deprecated())

	doc, err := openrpc.Discover(reg)
	if err != nil {
		log.Fatalf("discovery failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		log.Fatalf("encode failed: %v", err)
	}
}
