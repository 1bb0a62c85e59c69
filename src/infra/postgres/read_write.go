package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReadWriteClient separa as leituras (réplica) das escritas (primário).
// Quando réplica e primário são o mesmo endereço, um único pool atende os dois.
type ReadWriteClient struct {
	readPool  *pgxpool.Pool
	writePool *pgxpool.Pool
}

func NewReadWriteClient(
	readHost string,
	writeHost string,
	readPort string,
	writePort string,
	dbname string,
	username string,
	password string,
	maxConnections int,
) (*ReadWriteClient, error) {

	writePool, err := NewPostgresClient(writeHost, writePort, dbname, username, password, maxConnections)
	if err != nil {
		return nil, err
	}

	if readHost == writeHost && readPort == writePort {
		return &ReadWriteClient{readPool: writePool, writePool: writePool}, nil
	}

	readPool, err := NewPostgresClient(readHost, readPort, dbname, username, password, maxConnections)
	if err != nil {
		writePool.Close()
		return nil, err
	}

	return &ReadWriteClient{
		readPool:  readPool,
		writePool: writePool,
	}, nil
}

func (rwc *ReadWriteClient) GetReadPool() *pgxpool.Pool {
	return rwc.readPool
}

func (rwc *ReadWriteClient) GetWritePool() *pgxpool.Pool {
	return rwc.writePool
}

func (rwc *ReadWriteClient) HealthCheck(ctx context.Context) error {
	if err := rwc.writePool.Ping(ctx); err != nil {
		return err
	}
	if rwc.readPool == rwc.writePool {
		return nil
	}
	return rwc.readPool.Ping(ctx)
}

func (rwc *ReadWriteClient) Close() {
	if rwc.readPool != rwc.writePool {
		rwc.readPool.Close()
	}
	rwc.writePool.Close()
}
