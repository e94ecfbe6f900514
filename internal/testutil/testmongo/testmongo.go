//go:build integration

package testmongo

import (
	"context"
	"errors"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Handle struct {
	Client *mongo.Client
	DB     *mongo.Database
	cancel func()
	stop   func(context.Context) error
}

func (h *Handle) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if h.Client != nil {
		_ = h.Client.Disconnect(ctx)
	}
	if h.stop != nil {
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Start runs a throwaway mongo container and returns a database named dbName.
func Start(ctx context.Context, dbName string) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	container, err := mongodb.RunContainer(ctx, tc.WithImage("mongo:7"))
	if err != nil {
		cancel()
		return nil, err
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		return nil, err
	}
	if err := waitReady(ctx, client); err != nil {
		_ = container.Terminate(ctx)
		cancel()
		return nil, err
	}

	return &Handle{
		Client: client,
		DB:     client.Database(dbName),
		cancel: cancel,
		stop:   container.Terminate,
	}, nil
}

func waitReady(ctx context.Context, client *mongo.Client) error {
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := client.Ping(ctx, readpref.Primary()); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("mongo not ready")
}
