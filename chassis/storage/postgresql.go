package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// Schema creates the table used by PGRepository.
const Schema = `
create table if not exists t_message (
	id          bigserial primary key,
	queue       text        not null,
	digest      text        not null,
	body        jsonb       not null,
	attributes  jsonb       not null default '{}',
	received_dt timestamp   not null default localtimestamp,
	constraint t_message_digest_key unique (digest)
);
`

// execer is satisfied by *pgxpool.Pool.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Close()
}

// PGRepository - ...
type PGRepository struct {
	pool execer
}

// InitPGRepository - ...
func InitPGRepository(ctx context.Context, cfg Config) (*PGRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	return &PGRepository{
		pool: pool,
	}, nil
}

// Migrate applies Schema.
func (repo *PGRepository) Migrate(ctx context.Context) error {
	_, err := repo.pool.Exec(ctx, Schema)
	return err
}

// Save inserts msg. A second delivery of the same body yields ErrDuplicate.
func (repo *PGRepository) Save(ctx context.Context, msg *Message) error {
	query := `insert into t_message(queue, digest, body, attributes, received_dt) values ($1, $2, $3, $4, $5)`
	attributes := msg.Attributes
	if attributes == nil {
		attributes = map[string]string{}
	}
	tag, err := repo.pool.Exec(ctx, query, msg.Queue, msg.Digest, msg.Body, attributes, msg.ReceivedDt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("zero rows affected")
	}
	return nil
}

// Close releases the pool.
func (repo *PGRepository) Close() {
	repo.pool.Close()
}
